// Package scoring computes the composite risk score over encrypted
// attributes. Every conditional factor routes through the engine's
// conditional-select primitive: both candidate outcomes are evaluated
// unconditionally and blended via an encrypted predicate, so no native
// branch ever depends on a secret value. Comparisons are scalar
// (ciphertext vs public threshold) in the canonical variant; the
// derived-metric variant is the one place ciphertext-vs-ciphertext
// comparison is used.
package scoring

import (
	"fmt"

	"github.com/ppiankov/cipherscore/internal/fhe"
	"github.com/ppiankov/cipherscore/internal/store"
)

// Pipeline derives an encrypted composite score from an encrypted record.
// Pure: identical ciphertext inputs and config yield the identical score.
type Pipeline struct {
	arith fhe.Arithmetic
	cfg   *Config
}

// New creates a pipeline over the given arithmetic engine and config.
// A nil config means defaults.
func New(arith fhe.Arithmetic, cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Pipeline{arith: arith, cfg: cfg}
}

// ComputeScore sums the factor contributions homomorphically. Addition is
// commutative and associative, so contribution order carries no meaning.
func (p *Pipeline) ComputeScore(attrs store.Attributes) (fhe.Handle, error) {
	contribs, err := p.Contributions(attrs)
	if err != nil {
		return fhe.Zero, err
	}
	return p.Sum(contribs)
}

// Sum folds contributions into a single encrypted total.
func (p *Pipeline) Sum(contribs []fhe.Handle) (fhe.Handle, error) {
	if len(contribs) == 0 {
		return p.arith.EncryptScalar(0)
	}
	total := contribs[0]
	var err error
	for _, c := range contribs[1:] {
		total, err = p.arith.Add(total, c)
		if err != nil {
			return fhe.Zero, fmt.Errorf("scoring: sum contributions: %w", err)
		}
	}
	return total, nil
}

// Contributions evaluates the nine factor steps and returns one encrypted
// contribution per step, exposed separately so the commutativity property
// can be exercised directly.
func (p *Pipeline) Contributions(attrs store.Attributes) ([]fhe.Handle, error) {
	factors := []struct {
		name string
		eval func(store.Attributes) (fhe.Handle, error)
	}{
		{"age", p.ageFactor},
		{"gender", p.genderFactor},
		{"body", p.bodyFactor},
		{"blood_pressure", p.bloodPressureFactor},
		{"cholesterol", p.cholesterolFactor},
		{"triglycerides", p.triglyceridesFactor},
		{"total_cholesterol", p.totalCholFactor},
		{"blood_sugar", p.bloodSugarFactor},
		{"pulse", p.pulseFactor},
	}

	out := make([]fhe.Handle, 0, len(factors))
	for _, f := range factors {
		c, err := f.eval(attrs)
		if err != nil {
			return nil, fmt.Errorf("scoring: %s factor: %w", f.name, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// selectWeight blends weight-or-zero through the encrypted predicate.
func (p *Pipeline) selectWeight(pred fhe.Handle, weight uint64) (fhe.Handle, error) {
	w, err := p.arith.EncryptScalar(weight)
	if err != nil {
		return fhe.Zero, err
	}
	z, err := p.arith.EncryptScalar(0)
	if err != nil {
		return fhe.Zero, err
	}
	return p.arith.Select(pred, w, z)
}

// stepGT yields weight when v > threshold, zero otherwise.
func (p *Pipeline) stepGT(v fhe.Handle, s StepGT) (fhe.Handle, error) {
	pred, err := p.arith.CompareGTScalar(v, s.Threshold)
	if err != nil {
		return fhe.Zero, err
	}
	return p.selectWeight(pred, s.Weight)
}

// stepLT yields weight when v < threshold, zero otherwise.
func (p *Pipeline) stepLT(v fhe.Handle, s StepLT) (fhe.Handle, error) {
	pred, err := p.arith.CompareLTScalar(v, s.Threshold)
	if err != nil {
		return fhe.Zero, err
	}
	return p.selectWeight(pred, s.Weight)
}

// twoLevelGT yields the high weight above the high threshold, the mid
// weight above the mid threshold, zero otherwise. Both selects run
// regardless of the predicates.
func (p *Pipeline) twoLevelGT(v fhe.Handle, s TwoLevelGT) (fhe.Handle, error) {
	high, err := p.arith.CompareGTScalar(v, s.HighThreshold)
	if err != nil {
		return fhe.Zero, err
	}
	mid, err := p.arith.CompareGTScalar(v, s.MidThreshold)
	if err != nil {
		return fhe.Zero, err
	}
	inner, err := p.selectWeight(mid, s.MidWeight)
	if err != nil {
		return fhe.Zero, err
	}
	hw, err := p.arith.EncryptScalar(s.HighWeight)
	if err != nil {
		return fhe.Zero, err
	}
	return p.arith.Select(high, hw, inner)
}

func (p *Pipeline) ageFactor(attrs store.Attributes) (fhe.Handle, error) {
	return p.arith.MulScalar(attrs.Age, p.cfg.AgeMultiplier)
}

func (p *Pipeline) genderFactor(attrs store.Attributes) (fhe.Handle, error) {
	return p.arith.MulScalar(attrs.Gender, p.cfg.GenderMultiplier)
}

// bodyFactor is the weight/height contribution. The canonical variant
// evaluates two independent scalar steps; the bmi variant blends weight
// and height² homomorphically before thresholding.
func (p *Pipeline) bodyFactor(attrs store.Attributes) (fhe.Handle, error) {
	if p.cfg.Variant == VariantBMI {
		return p.bmiFactor(attrs)
	}
	w, err := p.twoLevelGT(attrs.Weight, p.cfg.Weight)
	if err != nil {
		return fhe.Zero, err
	}
	h, err := p.stepLT(attrs.Height, p.cfg.Height)
	if err != nil {
		return fhe.Zero, err
	}
	return p.arith.Add(w, h)
}

// bmiFactor compares weight×10⁴ against k×height² (height in cm), which
// is BMI > k without any division.
func (p *Pipeline) bmiFactor(attrs store.Attributes) (fhe.Handle, error) {
	scaled, err := p.arith.MulScalar(attrs.Weight, 10000)
	if err != nil {
		return fhe.Zero, err
	}
	h2, err := p.arith.Mul(attrs.Height, attrs.Height)
	if err != nil {
		return fhe.Zero, err
	}
	highRHS, err := p.arith.MulScalar(h2, p.cfg.BMIHigh.HighThreshold)
	if err != nil {
		return fhe.Zero, err
	}
	midRHS, err := p.arith.MulScalar(h2, p.cfg.BMIHigh.MidThreshold)
	if err != nil {
		return fhe.Zero, err
	}
	high, err := p.arith.CompareGT(scaled, highRHS)
	if err != nil {
		return fhe.Zero, err
	}
	mid, err := p.arith.CompareGT(scaled, midRHS)
	if err != nil {
		return fhe.Zero, err
	}
	inner, err := p.selectWeight(mid, p.cfg.BMIHigh.MidWeight)
	if err != nil {
		return fhe.Zero, err
	}
	hw, err := p.arith.EncryptScalar(p.cfg.BMIHigh.HighWeight)
	if err != nil {
		return fhe.Zero, err
	}
	return p.arith.Select(high, hw, inner)
}

func (p *Pipeline) bloodPressureFactor(attrs store.Attributes) (fhe.Handle, error) {
	sys, err := p.arith.CompareGTScalar(attrs.Systolic, p.cfg.SystolicThreshold)
	if err != nil {
		return fhe.Zero, err
	}
	dia, err := p.arith.CompareGTScalar(attrs.Diastolic, p.cfg.DiastolicThreshold)
	if err != nil {
		return fhe.Zero, err
	}
	either, err := p.arith.Or(sys, dia)
	if err != nil {
		return fhe.Zero, err
	}
	return p.selectWeight(either, p.cfg.BloodPressure)
}

// cholesterolFactor: LDL and HDL steps are additive and independent.
func (p *Pipeline) cholesterolFactor(attrs store.Attributes) (fhe.Handle, error) {
	ldl, err := p.stepGT(attrs.LDL, p.cfg.LDL)
	if err != nil {
		return fhe.Zero, err
	}
	hdl, err := p.stepLT(attrs.HDL, p.cfg.HDL)
	if err != nil {
		return fhe.Zero, err
	}
	return p.arith.Add(ldl, hdl)
}

func (p *Pipeline) triglyceridesFactor(attrs store.Attributes) (fhe.Handle, error) {
	return p.stepGT(attrs.Triglycerides, p.cfg.Triglycerides)
}

func (p *Pipeline) totalCholFactor(attrs store.Attributes) (fhe.Handle, error) {
	return p.stepGT(attrs.TotalCholesterol, p.cfg.TotalChol)
}

func (p *Pipeline) bloodSugarFactor(attrs store.Attributes) (fhe.Handle, error) {
	return p.twoLevelGT(attrs.BloodSugar, p.cfg.BloodSugar)
}

// pulseFactor: high and low steps are independent; both may apply.
func (p *Pipeline) pulseFactor(attrs store.Attributes) (fhe.Handle, error) {
	hi, err := p.stepGT(attrs.Pulse, p.cfg.PulseHigh)
	if err != nil {
		return fhe.Zero, err
	}
	lo, err := p.stepLT(attrs.Pulse, p.cfg.PulseLow)
	if err != nil {
		return fhe.Zero, err
	}
	return p.arith.Add(hi, lo)
}
