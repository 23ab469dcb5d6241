// Package proof implements the submission proof accompanying externally
// supplied ciphertext material: a Pedersen commitment to the twelve
// attribute values with a Schnorr proof of knowledge of the opening, made
// non-interactive via Fiat–Shamir. The challenge is bound to the SHA-256
// digests of the submitted ciphertexts, so a proof cannot be replayed
// against different ciphertext material.
package proof

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/ppiankov/cipherscore/internal/model"
)

const (
	domainTag = "cipherscore/submission/v1"
	frSize    = fr.Bytes
	g1Size    = bn254.SizeOfG1AffineCompressed

	// C ‖ A ‖ z₁..z₁₂ ‖ zr
	proofSize = 2*g1Size + (model.AttributeCount+1)*frSize
)

// Fixed generators: one per attribute plus one for the blinding term.
// Hashed to the curve so nobody knows their discrete logs.
var (
	attrGens [model.AttributeCount]bn254.G1Affine
	blindGen bn254.G1Affine
)

func init() {
	dst := []byte(domainTag + "/generators")
	for i := range attrGens {
		g, err := bn254.HashToG1([]byte(fmt.Sprintf("attr:%d", i)), dst)
		if err != nil {
			panic(fmt.Sprintf("proof: hash to curve: %v", err))
		}
		attrGens[i] = g
	}
	h, err := bn254.HashToG1([]byte("blind"), dst)
	if err != nil {
		panic(fmt.Sprintf("proof: hash to curve: %v", err))
	}
	blindGen = h
}

// g1Exp returns g^e as an affine point.
func g1Exp(g bn254.G1Affine, e fr.Element) bn254.G1Affine {
	var bi big.Int
	e.BigInt(&bi)
	var out bn254.G1Affine
	out.ScalarMultiplication(&g, &bi)
	return out
}

// commit returns Σ eᵢ·Gᵢ + r·H.
func commit(es [model.AttributeCount]fr.Element, r fr.Element) bn254.G1Affine {
	var acc bn254.G1Jac
	p := g1Exp(attrGens[0], es[0])
	acc.FromAffine(&p)
	for i := 1; i < model.AttributeCount; i++ {
		p = g1Exp(attrGens[i], es[i])
		acc.AddMixed(&p)
	}
	p = g1Exp(blindGen, r)
	acc.AddMixed(&p)
	var out bn254.G1Affine
	out.FromJacobian(&acc)
	return out
}

// challenge derives the Fiat–Shamir challenge from the commitment, the
// announcement, and the ciphertext digests.
func challenge(c, a bn254.G1Affine, digests [][]byte) fr.Element {
	h := sha256.New()
	h.Write([]byte(domainTag))
	cb := c.Bytes()
	h.Write(cb[:])
	ab := a.Bytes()
	h.Write(ab[:])
	for _, d := range digests {
		h.Write(d)
	}
	var e fr.Element
	e.SetBytes(h.Sum(nil))
	return e
}

// Build creates a submission proof for the given attribute values, bound
// to the ciphertext digests (one SHA-256 per raw ciphertext, in
// submission order).
func Build(attrs [model.AttributeCount]uint64, digests [][]byte) ([]byte, error) {
	if len(digests) != model.AttributeCount {
		return nil, fmt.Errorf("proof: expected %d digests, got %d", model.AttributeCount, len(digests))
	}

	var ms [model.AttributeCount]fr.Element
	for i, v := range attrs {
		ms[i].SetUint64(v)
	}
	var r fr.Element
	if _, err := r.SetRandom(); err != nil {
		return nil, fmt.Errorf("proof: sample blinding: %w", err)
	}
	c := commit(ms, r)

	var as [model.AttributeCount]fr.Element
	for i := range as {
		if _, err := as[i].SetRandom(); err != nil {
			return nil, fmt.Errorf("proof: sample nonce: %w", err)
		}
	}
	var s fr.Element
	if _, err := s.SetRandom(); err != nil {
		return nil, fmt.Errorf("proof: sample nonce: %w", err)
	}
	a := commit(as, s)

	e := challenge(c, a, digests)

	// zᵢ = aᵢ + e·mᵢ, zr = s + e·r
	var zs [model.AttributeCount]fr.Element
	for i := range zs {
		var t fr.Element
		t.Mul(&e, &ms[i])
		zs[i].Add(&as[i], &t)
	}
	var zr, t fr.Element
	t.Mul(&e, &r)
	zr.Add(&s, &t)

	out := make([]byte, 0, proofSize)
	cb := c.Bytes()
	out = append(out, cb[:]...)
	ab := a.Bytes()
	out = append(out, ab[:]...)
	for i := range zs {
		zb := zs[i].Bytes()
		out = append(out, zb[:]...)
	}
	zrb := zr.Bytes()
	out = append(out, zrb[:]...)
	return out, nil
}

// Verify checks a submission proof against the ciphertext digests.
func Verify(proofBytes []byte, digests [][]byte) error {
	if len(proofBytes) != proofSize {
		return fmt.Errorf("proof: wrong length %d, expected %d", len(proofBytes), proofSize)
	}
	if len(digests) != model.AttributeCount {
		return fmt.Errorf("proof: expected %d digests, got %d", model.AttributeCount, len(digests))
	}

	var c, a bn254.G1Affine
	off := 0
	if _, err := c.SetBytes(proofBytes[off : off+g1Size]); err != nil {
		return fmt.Errorf("proof: decode commitment: %w", err)
	}
	off += g1Size
	if _, err := a.SetBytes(proofBytes[off : off+g1Size]); err != nil {
		return fmt.Errorf("proof: decode announcement: %w", err)
	}
	off += g1Size

	var zs [model.AttributeCount]fr.Element
	for i := range zs {
		zs[i].SetBytes(proofBytes[off : off+frSize])
		off += frSize
	}
	var zr fr.Element
	zr.SetBytes(proofBytes[off : off+frSize])

	e := challenge(c, a, digests)

	// Σ zᵢ·Gᵢ + zr·H == A + e·C
	lhs := commit(zs, zr)

	ec := g1Exp(c, e)
	var rhsJac bn254.G1Jac
	rhsJac.FromAffine(&a)
	rhsJac.AddMixed(&ec)
	var rhs bn254.G1Affine
	rhs.FromJacobian(&rhsJac)

	if !lhs.Equal(&rhs) {
		return fmt.Errorf("proof: schnorr relation does not hold")
	}
	return nil
}
