package cli

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParseAttrs(t *testing.T) {
	vals, err := parseAttrs("175, 70, 120, 80, 50, 100, 150, 200, 90, 70, 30, 1")
	if err != nil {
		t.Fatal(err)
	}
	if vals[0] != 175 || vals[11] != 1 {
		t.Errorf("parsed %v", vals)
	}

	if _, err := parseAttrs("1,2,3"); err == nil {
		t.Error("short tuple accepted")
	}
	if _, err := parseAttrs(strings.Repeat("x,", 11) + "x"); err == nil {
		t.Error("non-numeric tuple accepted")
	}
	if _, err := parseAttrs("1,2,3,4,5,6,7,8,9,10,11,-1"); err == nil {
		t.Error("negative value accepted")
	}
}

func TestInitAndOpenStack(t *testing.T) {
	if testing.Short() {
		t.Skip("key generation is slow")
	}
	stateDir = filepath.Join(t.TempDir(), "state")
	initRequesters = []string{"insurer"}

	if err := runInit(nil, nil); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := runInit(nil, nil); err == nil {
		t.Fatal("second init on the same state dir succeeded")
	}

	s, err := openStack(stateDir)
	if err != nil {
		t.Fatalf("open stack: %v", err)
	}
	defer s.close()
	if st, err := s.core.State("alice", "insurer"); err != nil || st.Label() != "not_submitted" {
		t.Errorf("fresh state = %v, %v", st, err)
	}
}
