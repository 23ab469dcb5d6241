// Package fhe defines the contract between the scoring core and the
// external homomorphic arithmetic engine. The core only ever sees opaque
// ciphertext handles; plaintext never materializes on this side of the
// boundary.
package fhe

import "github.com/ppiankov/cipherscore/internal/model"

// Handle is an opaque reference to an encrypted integer or boolean held
// by the arithmetic engine. Handles are only meaningful in combination
// with the engine that produced them.
type Handle string

// Zero is the nil handle.
const Zero Handle = ""

// Arithmetic is the pure ciphertext arithmetic surface. Every operation
// produces a new handle; operands are never mutated.
type Arithmetic interface {
	// Add returns a ⊕ b.
	Add(a, b Handle) (Handle, error)
	// MulScalar returns a ⊗ k for a public scalar k.
	MulScalar(a Handle, k uint64) (Handle, error)
	// Mul returns a ⊗ b for two ciphertexts.
	Mul(a, b Handle) (Handle, error)
	// CompareGTScalar returns an encrypted boolean a > k for a public
	// threshold k. Scalar comparisons are cheaper than ciphertext ones
	// and the thresholds are not sensitive.
	CompareGTScalar(a Handle, k uint64) (Handle, error)
	// CompareLTScalar returns an encrypted boolean a < k.
	CompareLTScalar(a Handle, k uint64) (Handle, error)
	// CompareGT returns an encrypted boolean a > b for two ciphertexts.
	// Used only by the derived-metric scoring variant.
	CompareGT(a, b Handle) (Handle, error)
	// Or returns the encrypted boolean a ∨ b.
	Or(a, b Handle) (Handle, error)
	// Select returns ifTrue when the encrypted predicate holds, ifFalse
	// otherwise, with no observable difference in operations performed
	// for either branch.
	Select(pred, ifTrue, ifFalse Handle) (Handle, error)
	// EncryptScalar trivially encrypts a public constant.
	EncryptScalar(k uint64) (Handle, error)
}

// AccessList tracks which identities may act on a given ciphertext. The
// engine enforces this independently of any boolean bookkeeping in the
// core; both must be kept in sync or the handle is functionally inert.
type AccessList interface {
	// MarkUsableBySelf marks the ciphertext usable by the core identity.
	MarkUsableBySelf(h Handle) error
	// MarkUsableBy marks the ciphertext usable by the given identity.
	MarkUsableBy(h Handle, id model.Identity) error
	// UsableBy reports whether the identity may act on the ciphertext.
	UsableBy(h Handle, id model.Identity) bool
}

// Importer validates externally supplied ciphertext material. The core
// calls it once per submission, for all twelve attributes together under
// one proof.
type Importer interface {
	// VerifyAndImport checks the proof against the raw ciphertexts and
	// returns internally usable handles, in submission order. On failure
	// nothing is imported.
	VerifyAndImport(raw [][]byte, proof []byte) ([]Handle, error)
}

// Engine is the full collaborator surface the core wires against.
type Engine interface {
	Arithmetic
	AccessList
	Importer
}
