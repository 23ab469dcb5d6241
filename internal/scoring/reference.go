package scoring

import "github.com/ppiankov/cipherscore/internal/model"

// PlainScore computes the composite score over plaintext attributes, in
// submission order. Used by tests and the scenario runner as the ground
// truth the homomorphic pipeline must reproduce.
func (c *Config) PlainScore(attrs [model.AttributeCount]uint64) uint64 {
	score := attrs[model.AttrAge]*c.AgeMultiplier +
		attrs[model.AttrGender]*c.GenderMultiplier

	if c.Variant == VariantBMI {
		scaled := attrs[model.AttrWeight] * 10000
		h2 := attrs[model.AttrHeight] * attrs[model.AttrHeight]
		switch {
		case scaled > c.BMIHigh.HighThreshold*h2:
			score += c.BMIHigh.HighWeight
		case scaled > c.BMIHigh.MidThreshold*h2:
			score += c.BMIHigh.MidWeight
		}
	} else {
		switch {
		case attrs[model.AttrWeight] > c.Weight.HighThreshold:
			score += c.Weight.HighWeight
		case attrs[model.AttrWeight] > c.Weight.MidThreshold:
			score += c.Weight.MidWeight
		}
		if attrs[model.AttrHeight] < c.Height.Threshold {
			score += c.Height.Weight
		}
	}

	if attrs[model.AttrSystolic] > c.SystolicThreshold ||
		attrs[model.AttrDiastolic] > c.DiastolicThreshold {
		score += c.BloodPressure
	}

	if attrs[model.AttrLDL] > c.LDL.Threshold {
		score += c.LDL.Weight
	}
	if attrs[model.AttrHDL] < c.HDL.Threshold {
		score += c.HDL.Weight
	}
	if attrs[model.AttrTriglycerides] > c.Triglycerides.Threshold {
		score += c.Triglycerides.Weight
	}
	if attrs[model.AttrTotalCholesterol] > c.TotalChol.Threshold {
		score += c.TotalChol.Weight
	}

	switch {
	case attrs[model.AttrBloodSugar] > c.BloodSugar.HighThreshold:
		score += c.BloodSugar.HighWeight
	case attrs[model.AttrBloodSugar] > c.BloodSugar.MidThreshold:
		score += c.BloodSugar.MidWeight
	}

	if attrs[model.AttrPulse] > c.PulseHigh.Threshold {
		score += c.PulseHigh.Weight
	}
	if attrs[model.AttrPulse] < c.PulseLow.Threshold {
		score += c.PulseLow.Weight
	}

	return score
}
