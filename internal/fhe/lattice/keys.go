package lattice

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

// plaintextModulus is NTT-friendly (≡ 1 mod 2N for LogN ≤ 15) and wide
// enough for the derived-metric variant, where weight×10⁴ and 30×height²
// must not wrap.
const plaintextModulus = 0x3ee0001

// DefaultParametersLiteral is the production BGV parameter set.
func DefaultParametersLiteral() bgv.ParametersLiteral {
	return bgv.ParametersLiteral{
		LogN:             13,
		LogQ:             []int{54, 54, 54},
		LogP:             []int{55},
		PlaintextModulus: plaintextModulus,
	}
}

// TestParametersLiteral is a smaller parameter set for tests. Same
// plaintext modulus, smaller ring.
func TestParametersLiteral() bgv.ParametersLiteral {
	return bgv.ParametersLiteral{
		LogN:             12,
		LogQ:             []int{45, 45, 45},
		LogP:             []int{50},
		PlaintextModulus: plaintextModulus,
	}
}

// KeyMaterial bundles the engine's BGV parameters and keys. The secret
// key never leaves the trusted evaluator boundary.
type KeyMaterial struct {
	Params bgv.Parameters
	SK     *rlwe.SecretKey
	PK     *rlwe.PublicKey
	RLK    *rlwe.RelinearizationKey
}

// GenerateKeys creates fresh key material for the given parameter literal.
func GenerateKeys(lit bgv.ParametersLiteral) (*KeyMaterial, error) {
	params, err := bgv.NewParametersFromLiteral(lit)
	if err != nil {
		return nil, fmt.Errorf("lattice: bad parameters: %w", err)
	}
	kgen := rlwe.NewKeyGenerator(params)
	sk := kgen.GenSecretKeyNew()
	pk := kgen.GenPublicKeyNew(sk)
	rlk := kgen.GenRelinearizationKeyNew(sk)
	return &KeyMaterial{Params: params, SK: sk, PK: pk, RLK: rlk}, nil
}

// Key file names under the state directory.
const (
	paramsFile = "params.json"
	skFile     = "sk.bin"
	pkFile     = "pk.bin"
	rlkFile    = "rlk.bin"
)

// Save persists the key material under dir.
func (km *KeyMaterial) Save(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("lattice: create key directory: %w", err)
	}
	pj, err := km.Params.MarshalJSON()
	if err != nil {
		return fmt.Errorf("lattice: marshal parameters: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, paramsFile), pj, 0600); err != nil {
		return fmt.Errorf("lattice: write parameters: %w", err)
	}
	for _, f := range []struct {
		name string
		m    interface{ MarshalBinary() ([]byte, error) }
	}{
		{skFile, km.SK},
		{pkFile, km.PK},
		{rlkFile, km.RLK},
	} {
		b, err := f.m.MarshalBinary()
		if err != nil {
			return fmt.Errorf("lattice: marshal %s: %w", f.name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.name), b, 0600); err != nil {
			return fmt.Errorf("lattice: write %s: %w", f.name, err)
		}
	}
	return nil
}

// LoadKeys reads previously saved key material from dir.
func LoadKeys(dir string) (*KeyMaterial, error) {
	pj, err := os.ReadFile(filepath.Join(dir, paramsFile))
	if err != nil {
		return nil, fmt.Errorf("lattice: read parameters: %w", err)
	}
	var params bgv.Parameters
	if err := params.UnmarshalJSON(pj); err != nil {
		return nil, fmt.Errorf("lattice: unmarshal parameters: %w", err)
	}

	km := &KeyMaterial{
		Params: params,
		SK:     rlwe.NewSecretKey(params),
		PK:     rlwe.NewPublicKey(params),
		RLK:    rlwe.NewRelinearizationKey(params),
	}
	for _, f := range []struct {
		name string
		m    interface{ UnmarshalBinary([]byte) error }
	}{
		{skFile, km.SK},
		{pkFile, km.PK},
		{rlkFile, km.RLK},
	} {
		b, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			return nil, fmt.Errorf("lattice: read %s: %w", f.name, err)
		}
		if err := f.m.UnmarshalBinary(b); err != nil {
			return nil, fmt.Errorf("lattice: unmarshal %s: %w", f.name, err)
		}
	}
	return km, nil
}
