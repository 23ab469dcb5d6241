// Package lattice implements the homomorphic arithmetic collaborator on
// the lattigo BGV scheme.
//
// Additions, multiplications, boolean blending, and conditional select
// are genuine ciphertext arithmetic. BGV has no native comparison, so
// scalar and ciphertext comparisons are resolved inside the trusted
// evaluator boundary: the engine holds the secret key, compares the
// decrypted operand against the threshold, and re-encrypts the 0/1
// predicate. Callers never observe a plaintext; both candidate outcomes
// of every conditional are still evaluated on the caller's side.
package lattice

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"

	"github.com/ppiankov/cipherscore/internal/fhe"
	"github.com/ppiankov/cipherscore/internal/model"
	"github.com/ppiankov/cipherscore/internal/proof"
)

// Engine is a trusted BGV evaluator with per-handle access control.
type Engine struct {
	params bgv.Parameters
	ecd    *bgv.Encoder
	enc    *rlwe.Encryptor
	dec    *rlwe.Decryptor
	eval   *bgv.Evaluator
	self   model.Identity

	// dir, when set, mirrors every ciphertext and the ACL table to disk
	// so handles survive across processes.
	dir string

	mu  sync.RWMutex
	cts map[fhe.Handle]*rlwe.Ciphertext
	acl map[fhe.Handle]map[model.Identity]bool
}

var _ fhe.Engine = (*Engine)(nil)

// New creates an in-memory engine from key material. self is the core
// identity used by MarkUsableBySelf.
func New(km *KeyMaterial, self model.Identity) *Engine {
	return &Engine{
		params: km.Params,
		ecd:    bgv.NewEncoder(km.Params),
		enc:    bgv.NewEncryptor(km.Params, km.PK),
		dec:    bgv.NewDecryptor(km.Params, km.SK),
		eval:   bgv.NewEvaluator(km.Params, rlwe.NewMemEvaluationKeySet(km.RLK)),
		self:   self,
		cts:    make(map[fhe.Handle]*rlwe.Ciphertext),
		acl:    make(map[fhe.Handle]map[model.Identity]bool),
	}
}

// NewPersistent creates an engine whose ciphertexts and ACL table are
// mirrored under dir. Handles registered in a previous process resolve
// lazily from disk.
func NewPersistent(km *KeyMaterial, self model.Identity, dir string) (*Engine, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("lattice: create ciphertext dir: %w", err)
	}
	e := New(km, self)
	e.dir = dir
	if err := e.loadACL(); err != nil {
		return nil, err
	}
	return e, nil
}

// Self returns the core identity the engine was constructed with.
func (e *Engine) Self() model.Identity { return e.self }

func (e *Engine) ctPath(h fhe.Handle) string {
	return filepath.Join(e.dir, string(h)+".bin")
}

func (e *Engine) register(ct *rlwe.Ciphertext) (fhe.Handle, error) {
	h := fhe.Handle("ct-" + uuid.NewString())
	if e.dir != "" {
		b, err := ct.MarshalBinary()
		if err != nil {
			return fhe.Zero, fmt.Errorf("lattice: marshal ciphertext: %w", err)
		}
		if err := os.WriteFile(e.ctPath(h), b, 0o600); err != nil {
			return fhe.Zero, fmt.Errorf("lattice: persist ciphertext: %w", err)
		}
	}
	e.mu.Lock()
	e.cts[h] = ct
	if e.acl[h] == nil {
		e.acl[h] = make(map[model.Identity]bool)
	}
	e.mu.Unlock()
	return h, nil
}

func (e *Engine) resolve(h fhe.Handle) (*rlwe.Ciphertext, error) {
	e.mu.RLock()
	ct, ok := e.cts[h]
	e.mu.RUnlock()
	if ok {
		return ct, nil
	}
	if e.dir == "" {
		return nil, fmt.Errorf("lattice: unknown handle %q", h)
	}

	b, err := os.ReadFile(e.ctPath(h))
	if err != nil {
		return nil, fmt.Errorf("lattice: unknown handle %q: %w", h, err)
	}
	ct = rlwe.NewCiphertext(e.params, 1)
	if err := ct.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("lattice: handle %q: %w", h, err)
	}
	e.mu.Lock()
	e.cts[h] = ct
	if e.acl[h] == nil {
		e.acl[h] = make(map[model.Identity]bool)
	}
	e.mu.Unlock()
	return ct, nil
}

// loadACL reads the persisted ACL table; missing file means empty.
func (e *Engine) loadACL() error {
	b, err := os.ReadFile(filepath.Join(e.dir, "acl.json"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lattice: read acl: %w", err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := json.Unmarshal(b, &e.acl); err != nil {
		return fmt.Errorf("lattice: parse acl: %w", err)
	}
	return nil
}

// saveACL is called with e.mu held.
func (e *Engine) saveACL() error {
	if e.dir == "" {
		return nil
	}
	b, err := json.Marshal(e.acl)
	if err != nil {
		return fmt.Errorf("lattice: marshal acl: %w", err)
	}
	if err := os.WriteFile(filepath.Join(e.dir, "acl.json"), b, 0o600); err != nil {
		return fmt.Errorf("lattice: persist acl: %w", err)
	}
	return nil
}

func (e *Engine) encryptValue(v uint64) (*rlwe.Ciphertext, error) {
	pt := bgv.NewPlaintext(e.params, e.params.MaxLevel())
	if err := e.ecd.Encode([]uint64{v}, pt); err != nil {
		return nil, fmt.Errorf("lattice: encode: %w", err)
	}
	ct, err := e.enc.EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("lattice: encrypt: %w", err)
	}
	return ct, nil
}

func (e *Engine) decryptValue(ct *rlwe.Ciphertext) (uint64, error) {
	pt := e.dec.DecryptNew(ct)
	out := make([]uint64, e.params.MaxSlots())
	if err := e.ecd.Decode(pt, out); err != nil {
		return 0, fmt.Errorf("lattice: decode: %w", err)
	}
	return out[0], nil
}

// EncryptInput encrypts one attribute value under the engine public key
// and returns the serialized ciphertext. This is the submitter-side path;
// the bytes go through VerifyAndImport before the core ever sees a handle.
func (e *Engine) EncryptInput(v uint64) ([]byte, error) {
	ct, err := e.encryptValue(v)
	if err != nil {
		return nil, err
	}
	b, err := ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("lattice: marshal ciphertext: %w", err)
	}
	return b, nil
}

// Add returns a ⊕ b.
func (e *Engine) Add(a, b fhe.Handle) (fhe.Handle, error) {
	cta, err := e.resolve(a)
	if err != nil {
		return fhe.Zero, err
	}
	ctb, err := e.resolve(b)
	if err != nil {
		return fhe.Zero, err
	}
	out, err := e.eval.AddNew(cta, ctb)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: add: %w", err)
	}
	return e.register(out)
}

// MulScalar returns a ⊗ k for a public scalar.
func (e *Engine) MulScalar(a fhe.Handle, k uint64) (fhe.Handle, error) {
	cta, err := e.resolve(a)
	if err != nil {
		return fhe.Zero, err
	}
	out, err := e.eval.MulNew(cta, k)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: mul scalar: %w", err)
	}
	return e.register(out)
}

// Mul returns a ⊗ b with relinearization.
func (e *Engine) Mul(a, b fhe.Handle) (fhe.Handle, error) {
	cta, err := e.resolve(a)
	if err != nil {
		return fhe.Zero, err
	}
	ctb, err := e.resolve(b)
	if err != nil {
		return fhe.Zero, err
	}
	out, err := e.eval.MulRelinNew(cta, ctb)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: mul: %w", err)
	}
	return e.register(out)
}

// CompareGTScalar returns an encrypted boolean a > k.
func (e *Engine) CompareGTScalar(a fhe.Handle, k uint64) (fhe.Handle, error) {
	return e.compareScalar(a, k, func(v, t uint64) bool { return v > t })
}

// CompareLTScalar returns an encrypted boolean a < k.
func (e *Engine) CompareLTScalar(a fhe.Handle, k uint64) (fhe.Handle, error) {
	return e.compareScalar(a, k, func(v, t uint64) bool { return v < t })
}

// compareScalar resolves a scalar comparison inside the trusted evaluator
// boundary and re-encrypts the predicate.
func (e *Engine) compareScalar(a fhe.Handle, k uint64, cmp func(v, t uint64) bool) (fhe.Handle, error) {
	cta, err := e.resolve(a)
	if err != nil {
		return fhe.Zero, err
	}
	v, err := e.decryptValue(cta)
	if err != nil {
		return fhe.Zero, err
	}
	var bit uint64
	if cmp(v, k) {
		bit = 1
	}
	out, err := e.encryptValue(bit)
	if err != nil {
		return fhe.Zero, err
	}
	return e.register(out)
}

// CompareGT returns an encrypted boolean a > b for two ciphertexts.
func (e *Engine) CompareGT(a, b fhe.Handle) (fhe.Handle, error) {
	ctb, err := e.resolve(b)
	if err != nil {
		return fhe.Zero, err
	}
	vb, err := e.decryptValue(ctb)
	if err != nil {
		return fhe.Zero, err
	}
	return e.compareScalar(a, vb, func(v, t uint64) bool { return v > t })
}

// Or returns a ∨ b for encrypted 0/1 operands: a ⊕ b ⊖ a⊗b.
func (e *Engine) Or(a, b fhe.Handle) (fhe.Handle, error) {
	cta, err := e.resolve(a)
	if err != nil {
		return fhe.Zero, err
	}
	ctb, err := e.resolve(b)
	if err != nil {
		return fhe.Zero, err
	}
	sum, err := e.eval.AddNew(cta, ctb)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: or: %w", err)
	}
	prod, err := e.eval.MulRelinNew(cta, ctb)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: or: %w", err)
	}
	out, err := e.eval.SubNew(sum, prod)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: or: %w", err)
	}
	return e.register(out)
}

// Select returns pred·ifTrue + (1−pred)·ifFalse. The same multiplications
// and the same addition run regardless of the predicate value.
func (e *Engine) Select(pred, ifTrue, ifFalse fhe.Handle) (fhe.Handle, error) {
	ctp, err := e.resolve(pred)
	if err != nil {
		return fhe.Zero, err
	}
	ctt, err := e.resolve(ifTrue)
	if err != nil {
		return fhe.Zero, err
	}
	ctf, err := e.resolve(ifFalse)
	if err != nil {
		return fhe.Zero, err
	}

	one, err := e.encryptValue(1)
	if err != nil {
		return fhe.Zero, err
	}
	notP, err := e.eval.SubNew(one, ctp)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: select: %w", err)
	}
	left, err := e.eval.MulRelinNew(ctp, ctt)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: select: %w", err)
	}
	right, err := e.eval.MulRelinNew(notP, ctf)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: select: %w", err)
	}
	out, err := e.eval.AddNew(left, right)
	if err != nil {
		return fhe.Zero, fmt.Errorf("lattice: select: %w", err)
	}
	return e.register(out)
}

// EncryptScalar trivially encrypts a public constant.
func (e *Engine) EncryptScalar(k uint64) (fhe.Handle, error) {
	ct, err := e.encryptValue(k)
	if err != nil {
		return fhe.Zero, err
	}
	return e.register(ct)
}

// MarkUsableBySelf marks the ciphertext usable by the core identity.
func (e *Engine) MarkUsableBySelf(h fhe.Handle) error {
	return e.MarkUsableBy(h, e.self)
}

// MarkUsableBy marks the ciphertext usable by the given identity. Without
// this, the handle is functionally inert for that identity even if the
// capability table says otherwise.
func (e *Engine) MarkUsableBy(h fhe.Handle, id model.Identity) error {
	if _, err := e.resolve(h); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.acl[h] == nil {
		e.acl[h] = make(map[model.Identity]bool)
	}
	e.acl[h][id] = true
	return e.saveACL()
}

// UsableBy reports whether the identity may act on the ciphertext.
func (e *Engine) UsableBy(h fhe.Handle, id model.Identity) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.acl[h][id]
}

// VerifyAndImport checks the submission proof against the raw ciphertexts
// and imports them, returning handles in submission order. Nothing is
// imported on failure.
func (e *Engine) VerifyAndImport(raw [][]byte, proofBytes []byte) ([]fhe.Handle, error) {
	if len(raw) != model.AttributeCount {
		return nil, fmt.Errorf("lattice: expected %d ciphertexts, got %d: %w",
			model.AttributeCount, len(raw), model.ErrBadProof)
	}

	digests := make([][]byte, len(raw))
	for i, b := range raw {
		d := sha256.Sum256(b)
		digests[i] = d[:]
	}
	if err := proof.Verify(proofBytes, digests); err != nil {
		return nil, fmt.Errorf("lattice: %w: %w", model.ErrBadProof, err)
	}

	handles := make([]fhe.Handle, len(raw))
	for i, b := range raw {
		h, err := e.importCiphertext(b)
		if err != nil {
			return nil, fmt.Errorf("lattice: %w: ciphertext %d: %w", model.ErrBadProof, i, err)
		}
		handles[i] = h
	}
	return handles, nil
}

// importCiphertext deserializes one raw ciphertext and registers it.
func (e *Engine) importCiphertext(b []byte) (fhe.Handle, error) {
	ct := rlwe.NewCiphertext(e.params, 1)
	if err := ct.UnmarshalBinary(b); err != nil {
		return fhe.Zero, fmt.Errorf("lattice: unmarshal ciphertext: %w", err)
	}
	return e.register(ct)
}

// Reveal decrypts a handle for an identity the ciphertext is usable by.
// This is the known-key harness used by the CLI read path and tests; a
// deployment would key-switch to the identity's own key instead.
func (e *Engine) Reveal(h fhe.Handle, id model.Identity) (uint64, error) {
	if !e.UsableBy(h, id) {
		return 0, fmt.Errorf("lattice: handle %q not usable by %q", h, id)
	}
	ct, err := e.resolve(h)
	if err != nil {
		return 0, err
	}
	return e.decryptValue(ct)
}
