package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/cipherscore/internal/fhe/lattice"
	"github.com/ppiankov/cipherscore/internal/registry"
)

var testKeys *lattice.KeyMaterial

func TestMain(m *testing.M) {
	km, err := lattice.GenerateKeys(lattice.TestParametersLiteral())
	if err != nil {
		panic(err)
	}
	testKeys = km
	os.Exit(m.Run())
}

func u64(v uint64) *uint64 { return &v }

var healthyTuple = []uint64{175, 70, 120, 80, 50, 100, 150, 200, 90, 70, 30, 1}

func TestRunFullLifecycle(t *testing.T) {
	s := &Scenario{
		Name:       "full lifecycle",
		Requesters: []string{"insurer"},
		Steps: []Step{
			{Op: "submit", Subject: "alice", Requester: "insurer", Tuple: healthyTuple, Expect: "ok"},
			{Op: "compute", Caller: "clinic", Subject: "alice", Requester: "insurer", Expect: "ok"},
			{Op: "access", Caller: "insurer", Subject: "alice", Requester: "insurer", Expect: "not_authorized"},
			{Op: "grant", Subject: "alice", Requester: "insurer", Expect: "ok"},
			{Op: "access", Caller: "insurer", Subject: "alice", Requester: "insurer", Expect: "ok", Score: u64(70)},
			{Op: "revoke", Subject: "alice", Requester: "insurer", Expect: "ok"},
			{Op: "access", Caller: "insurer", Subject: "alice", Requester: "insurer", Expect: "not_authorized"},
		},
	}
	r := Run(s, testKeys, nil)
	if r.Failed != 0 {
		t.Fatalf("failed steps:\n%s", FormatText([]*RunResult{r}))
	}
	if r.Passed != len(s.Steps) {
		t.Errorf("passed = %d, want %d", r.Passed, len(s.Steps))
	}
}

func TestRunReportsScoreMismatch(t *testing.T) {
	s := &Scenario{
		Name:       "wrong expected score",
		Requesters: []string{"insurer"},
		Steps: []Step{
			{Op: "submit", Subject: "alice", Requester: "insurer", Tuple: healthyTuple, Expect: "ok"},
			{Op: "compute", Subject: "alice", Requester: "insurer", Expect: "ok"},
			{Op: "access", Subject: "alice", Requester: "insurer", Expect: "ok", Score: u64(999)},
		},
	}
	r := Run(s, testKeys, nil)
	if r.Failed != 1 {
		t.Fatalf("failed = %d, want 1", r.Failed)
	}
	last := r.Steps[len(r.Steps)-1]
	if last.Passed || !strings.Contains(last.Detail, "score 70") {
		t.Errorf("mismatch step = %+v", last)
	}
}

func TestRunUnknownOp(t *testing.T) {
	s := &Scenario{
		Name:       "bad op",
		Requesters: []string{"insurer"},
		Steps:      []Step{{Op: "frobnicate", Subject: "a", Requester: "insurer", Expect: "ok"}},
	}
	r := Run(s, testKeys, nil)
	if r.Failed != 1 || r.Steps[0].Actual != "error" {
		t.Fatalf("unexpected result: %+v", r.Steps[0])
	}
}

func TestScenariosAreIsolated(t *testing.T) {
	s := &Scenario{
		Name:       "submit once",
		Requesters: []string{"insurer"},
		Steps: []Step{
			{Op: "submit", Subject: "alice", Requester: "insurer", Tuple: healthyTuple, Expect: "ok"},
		},
	}
	// Running the same scenario twice must succeed both times: each run
	// gets a fresh store.
	for i := 0; i < 2; i++ {
		if r := Run(s, testKeys, nil); r.Failed != 0 {
			t.Fatalf("run %d:\n%s", i, FormatText([]*RunResult{r}))
		}
	}
}

func TestRunFallsBackToSharedRoster(t *testing.T) {
	s := &Scenario{
		Name: "no requester list",
		Steps: []Step{
			{Op: "submit", Subject: "alice", Requester: "insurer", Tuple: healthyTuple, Expect: "ok"},
			{Op: "submit", Subject: "bob", Requester: "clinic", Tuple: healthyTuple, Expect: "not_registered"},
		},
	}
	roster := registry.New("insurer")
	if r := Run(s, testKeys, roster); r.Failed != 0 {
		t.Fatalf("failed steps:\n%s", FormatText([]*RunResult{r}))
	}

	// A swapped roster takes effect on the next run.
	roster.Replace(registry.Roster{Requesters: []registry.Entry{{ID: "insurer"}, {ID: "clinic"}}})
	s.Steps[1].Expect = "ok"
	if r := Run(s, testKeys, roster); r.Failed != 0 {
		t.Fatalf("failed steps after roster swap:\n%s", FormatText([]*RunResult{r}))
	}
}

func TestRunOwnRequestersOverrideRoster(t *testing.T) {
	s := &Scenario{
		Name:       "private registry wins",
		Requesters: []string{"clinic"},
		Steps: []Step{
			{Op: "submit", Subject: "alice", Requester: "insurer", Tuple: healthyTuple, Expect: "not_registered"},
		},
	}
	if r := Run(s, testKeys, registry.New("insurer")); r.Failed != 0 {
		t.Fatalf("failed steps:\n%s", FormatText([]*RunResult{r}))
	}
}

func TestLoadAndRunYAML(t *testing.T) {
	const doc = `
name: submit then double submit
requesters: [insurer]
steps:
  - op: submit
    subject: alice
    requester: insurer
    tuple: [175, 70, 120, 80, 50, 100, 150, 200, 90, 70, 30, 1]
    expect: ok
  - op: submit
    subject: alice
    requester: insurer
    tuple: [175, 70, 120, 80, 50, 100, 150, 200, 90, 70, 30, 1]
    expect: already_submitted
`
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := LoadAndRun(path, testKeys, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Failed != 0 {
		t.Fatalf("failed steps:\n%s", FormatText([]*RunResult{r}))
	}
	if r.File != path || r.Name != "submit then double submit" {
		t.Errorf("metadata: file=%q name=%q", r.File, r.Name)
	}
}

func TestFormatTextFailure(t *testing.T) {
	r := &RunResult{
		Name: "x", Total: 1, Failed: 1,
		Steps: []StepResult{{Index: 1, Op: "grant", Key: "a:b", Expected: "ok", Actual: "score_not_computed"}},
	}
	out := FormatText([]*RunResult{r})
	if !strings.Contains(out, "FAIL  x (0/1)") || !strings.Contains(out, "expected ok, got score_not_computed") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
