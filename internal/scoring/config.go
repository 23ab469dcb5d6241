package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Variant selects the weight/height contribution path.
const (
	// VariantScalar is the canonical form: independent weight and height
	// steps with scalar thresholds.
	VariantScalar = "scalar"
	// VariantBMI is the historical derived-metric form: weight and
	// height² are blended homomorphically before thresholding. The final
	// composition rule (sum of independent contributions) is unchanged.
	VariantBMI = "bmi"
)

// StepGT is one "add weight if value > threshold" step.
type StepGT struct {
	Threshold uint64 `yaml:"threshold"`
	Weight    uint64 `yaml:"weight"`
}

// StepLT is one "add weight if value < threshold" step.
type StepLT struct {
	Threshold uint64 `yaml:"threshold"`
	Weight    uint64 `yaml:"weight"`
}

// TwoLevelGT is a two-level step: high weight above the high threshold,
// mid weight above the mid threshold, zero otherwise.
type TwoLevelGT struct {
	HighThreshold uint64 `yaml:"high_threshold"`
	HighWeight    uint64 `yaml:"high_weight"`
	MidThreshold  uint64 `yaml:"mid_threshold"`
	MidWeight     uint64 `yaml:"mid_weight"`
}

// Config holds every scoring threshold and contribution weight. The
// defaults reproduce the canonical factor table; a yaml file overrides
// only the fields it names.
type Config struct {
	Variant string `yaml:"variant"`

	AgeMultiplier    uint64 `yaml:"age_multiplier"`
	GenderMultiplier uint64 `yaml:"gender_multiplier"`

	Weight     TwoLevelGT `yaml:"weight"`
	Height     StepLT     `yaml:"height"`
	BloodSugar TwoLevelGT `yaml:"blood_sugar"`

	SystolicThreshold  uint64 `yaml:"systolic_threshold"`
	DiastolicThreshold uint64 `yaml:"diastolic_threshold"`
	BloodPressure      uint64 `yaml:"blood_pressure_weight"`

	LDL           StepGT `yaml:"ldl"`
	HDL           StepLT `yaml:"hdl"`
	Triglycerides StepGT `yaml:"triglycerides"`
	TotalChol     StepGT `yaml:"total_cholesterol"`

	PulseHigh StepGT `yaml:"pulse_high"`
	PulseLow  StepLT `yaml:"pulse_low"`

	// BMI variant only: value thresholds for weight×10⁴ vs k×height².
	BMIHigh TwoLevelGT `yaml:"bmi"`
}

// DefaultConfig returns the built-in factor table.
func DefaultConfig() *Config {
	return &Config{
		Variant:          VariantScalar,
		AgeMultiplier:    2,
		GenderMultiplier: 10,
		Weight:           TwoLevelGT{HighThreshold: 90, HighWeight: 20, MidThreshold: 75, MidWeight: 10},
		Height:           StepLT{Threshold: 160, Weight: 5},
		BloodSugar:       TwoLevelGT{HighThreshold: 126, HighWeight: 25, MidThreshold: 100, MidWeight: 10},

		SystolicThreshold:  140,
		DiastolicThreshold: 90,
		BloodPressure:      15,

		LDL:           StepGT{Threshold: 160, Weight: 10},
		HDL:           StepLT{Threshold: 40, Weight: 10},
		Triglycerides: StepGT{Threshold: 200, Weight: 8},
		TotalChol:     StepGT{Threshold: 240, Weight: 12},

		PulseHigh: StepGT{Threshold: 100, Weight: 5},
		PulseLow:  StepLT{Threshold: 50, Weight: 3},

		BMIHigh: TwoLevelGT{HighThreshold: 30, HighWeight: 20, MidThreshold: 25, MidWeight: 10},
	}
}

// LoadConfig loads scoring configuration from a YAML file. Empty path
// falls back to ~/.cipherscore/scoring.yaml. Missing file returns
// defaults. Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads scoring configuration and returns its SHA-256
// hash over the raw YAML bytes on disk. When no file exists (defaults
// used), the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	emptyHash := func() string {
		h := sha256.Sum256(nil)
		return "sha256:" + hex.EncodeToString(h[:])
	}

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DefaultConfig(), emptyHash(), nil
		}
		path = filepath.Join(home, ".cipherscore", "scoring.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), emptyHash(), nil
		}
		return nil, "", fmt.Errorf("failed to read scoring config: %w", err)
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse scoring config: %w", err)
	}
	if cfg.Variant != VariantScalar && cfg.Variant != VariantBMI {
		return nil, "", fmt.Errorf("unknown scoring variant %q", cfg.Variant)
	}

	return cfg, hash, nil
}

// Save writes the config as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal scoring config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write scoring config: %w", err)
	}
	return nil
}
