package lattice

import (
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/ppiankov/cipherscore/internal/fhe"
	"github.com/ppiankov/cipherscore/internal/model"
	"github.com/ppiankov/cipherscore/internal/proof"
)

func newTestEngine(t testing.TB) *Engine {
	t.Helper()
	km, err := GenerateKeys(TestParametersLiteral())
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}
	return New(km, "core")
}

func mustEncrypt(t testing.TB, e *Engine, v uint64) fhe.Handle {
	t.Helper()
	h, err := e.EncryptScalar(v)
	if err != nil {
		t.Fatalf("encrypt %d: %v", v, err)
	}
	return h
}

func decrypt(t testing.TB, e *Engine, h fhe.Handle) uint64 {
	t.Helper()
	if err := e.MarkUsableBySelf(h); err != nil {
		t.Fatal(err)
	}
	v, err := e.Reveal(h, e.Self())
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	return v
}

func TestAddMulRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	a := mustEncrypt(t, e, 17)
	b := mustEncrypt(t, e, 25)

	sum, err := e.Add(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got := decrypt(t, e, sum); got != 42 {
		t.Errorf("17+25 = %d", got)
	}

	prod, err := e.Mul(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got := decrypt(t, e, prod); got != 425 {
		t.Errorf("17*25 = %d", got)
	}

	scaled, err := e.MulScalar(a, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got := decrypt(t, e, scaled); got != 51 {
		t.Errorf("17*3 = %d", got)
	}
}

func TestCompareScalar(t *testing.T) {
	e := newTestEngine(t)
	cases := []struct {
		v, threshold uint64
		gt, lt       uint64
	}{
		{100, 90, 1, 0},
		{90, 90, 0, 0}, // strict on both sides
		{80, 90, 0, 1},
	}
	for _, tc := range cases {
		h := mustEncrypt(t, e, tc.v)
		gt, err := e.CompareGTScalar(h, tc.threshold)
		if err != nil {
			t.Fatal(err)
		}
		if got := decrypt(t, e, gt); got != tc.gt {
			t.Errorf("%d > %d = %d, want %d", tc.v, tc.threshold, got, tc.gt)
		}
		lt, err := e.CompareLTScalar(h, tc.threshold)
		if err != nil {
			t.Fatal(err)
		}
		if got := decrypt(t, e, lt); got != tc.lt {
			t.Errorf("%d < %d = %d, want %d", tc.v, tc.threshold, got, tc.lt)
		}
	}
}

func TestCompareCiphertexts(t *testing.T) {
	e := newTestEngine(t)
	a := mustEncrypt(t, e, 950000)
	b := mustEncrypt(t, e, 918750)

	gt, err := e.CompareGT(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got := decrypt(t, e, gt); got != 1 {
		t.Errorf("a>b = %d, want 1", got)
	}
	lt, err := e.CompareGT(b, a)
	if err != nil {
		t.Fatal(err)
	}
	if got := decrypt(t, e, lt); got != 0 {
		t.Errorf("b>a = %d, want 0", got)
	}
}

func TestOrTruthTable(t *testing.T) {
	e := newTestEngine(t)
	for _, tc := range []struct{ a, b, want uint64 }{
		{0, 0, 0}, {0, 1, 1}, {1, 0, 1}, {1, 1, 1},
	} {
		h, err := e.Or(mustEncrypt(t, e, tc.a), mustEncrypt(t, e, tc.b))
		if err != nil {
			t.Fatal(err)
		}
		if got := decrypt(t, e, h); got != tc.want {
			t.Errorf("%d or %d = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestSelectIsBranchless(t *testing.T) {
	e := newTestEngine(t)
	ifTrue := mustEncrypt(t, e, 25)
	ifFalse := mustEncrypt(t, e, 10)

	h, err := e.Select(mustEncrypt(t, e, 1), ifTrue, ifFalse)
	if err != nil {
		t.Fatal(err)
	}
	if got := decrypt(t, e, h); got != 25 {
		t.Errorf("select(1) = %d, want 25", got)
	}
	h, err = e.Select(mustEncrypt(t, e, 0), ifTrue, ifFalse)
	if err != nil {
		t.Fatal(err)
	}
	if got := decrypt(t, e, h); got != 10 {
		t.Errorf("select(0) = %d, want 10", got)
	}
}

func TestAccessListGatesReveal(t *testing.T) {
	e := newTestEngine(t)
	h := mustEncrypt(t, e, 70)

	if _, err := e.Reveal(h, "alice"); err == nil {
		t.Fatal("reveal before marking usable should fail")
	}
	if err := e.MarkUsableBy(h, "alice"); err != nil {
		t.Fatal(err)
	}
	if got, err := e.Reveal(h, "alice"); err != nil || got != 70 {
		t.Fatalf("reveal after mark = %d, %v", got, err)
	}
	// The mark is per identity.
	if _, err := e.Reveal(h, "mallory"); err == nil {
		t.Error("unmarked identity revealed the value")
	}
	if e.UsableBy(h, "mallory") {
		t.Error("UsableBy reports mallory as marked")
	}
}

func TestVerifyAndImport(t *testing.T) {
	e := newTestEngine(t)
	vals := [model.AttributeCount]uint64{175, 70, 120, 80, 50, 100, 150, 200, 90, 70, 30, 1}

	raw := make([][]byte, model.AttributeCount)
	digests := make([][]byte, model.AttributeCount)
	for i, v := range vals {
		b, err := e.EncryptInput(v)
		if err != nil {
			t.Fatal(err)
		}
		raw[i] = b
		d := sha256.Sum256(b)
		digests[i] = d[:]
	}
	p, err := proof.Build(vals, digests)
	if err != nil {
		t.Fatal(err)
	}

	handles, err := e.VerifyAndImport(raw, p)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(handles) != model.AttributeCount {
		t.Fatalf("imported %d handles", len(handles))
	}
	for i, h := range handles {
		if got := decrypt(t, e, h); got != vals[i] {
			t.Errorf("attribute %s = %d, want %d", model.AttributeNames[i], got, vals[i])
		}
	}
}

func TestVerifyAndImportRejectsBadProof(t *testing.T) {
	e := newTestEngine(t)
	vals := [model.AttributeCount]uint64{175, 70, 120, 80, 50, 100, 150, 200, 90, 70, 30, 1}

	raw := make([][]byte, model.AttributeCount)
	digests := make([][]byte, model.AttributeCount)
	for i, v := range vals {
		b, err := e.EncryptInput(v)
		if err != nil {
			t.Fatal(err)
		}
		raw[i] = b
		d := sha256.Sum256(b)
		digests[i] = d[:]
	}
	p, err := proof.Build(vals, digests)
	if err != nil {
		t.Fatal(err)
	}

	// Swapping two ciphertexts breaks the digest binding even though the
	// proof itself is well formed.
	raw[0], raw[1] = raw[1], raw[0]
	if _, err := e.VerifyAndImport(raw, p); !errors.Is(err, model.ErrBadProof) {
		t.Fatalf("swapped ciphertexts: err = %v, want ErrBadProof", err)
	}

	raw[0], raw[1] = raw[1], raw[0]
	p[0] ^= 1
	if _, err := e.VerifyAndImport(raw, p); !errors.Is(err, model.ErrBadProof) {
		t.Fatalf("corrupt proof: err = %v, want ErrBadProof", err)
	}
}

func TestVerifyAndImportWrongCount(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.VerifyAndImport(make([][]byte, 3), nil); !errors.Is(err, model.ErrBadProof) {
		t.Fatalf("err = %v, want ErrBadProof", err)
	}
}

func TestPersistentHandlesSurviveReopen(t *testing.T) {
	km, err := GenerateKeys(TestParametersLiteral())
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	e1, err := NewPersistent(km, "core", dir)
	if err != nil {
		t.Fatal(err)
	}
	h, err := e1.EncryptScalar(70)
	if err != nil {
		t.Fatal(err)
	}
	if err := e1.MarkUsableBy(h, "alice"); err != nil {
		t.Fatal(err)
	}

	// A second engine over the same directory resolves the handle and
	// sees the persisted access list.
	e2, err := NewPersistent(km, "core", dir)
	if err != nil {
		t.Fatal(err)
	}
	if !e2.UsableBy(h, "alice") {
		t.Error("access list not persisted")
	}
	if got, err := e2.Reveal(h, "alice"); err != nil || got != 70 {
		t.Fatalf("reveal after reopen = %d, %v", got, err)
	}
	if _, err := e2.Reveal(fhe.Handle("ct-missing"), "alice"); err == nil {
		t.Error("missing handle revealed")
	}
}

func TestKeyMaterialSaveLoad(t *testing.T) {
	km, err := GenerateKeys(TestParametersLiteral())
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	if err := km.Save(dir); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadKeys(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// A value encrypted by the original material decrypts under the
	// reloaded one.
	src := New(km, "core")
	raw, err := src.EncryptInput(42)
	if err != nil {
		t.Fatal(err)
	}
	dst := New(loaded, "core")
	h, err := dst.importCiphertext(raw)
	if err != nil {
		t.Fatal(err)
	}
	if got := decrypt(t, dst, h); got != 42 {
		t.Errorf("round trip = %d, want 42", got)
	}
}
