package scenario

import (
	"crypto/sha256"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cipherscore/internal/core"
	"github.com/ppiankov/cipherscore/internal/fhe"
	"github.com/ppiankov/cipherscore/internal/fhe/lattice"
	"github.com/ppiankov/cipherscore/internal/model"
	"github.com/ppiankov/cipherscore/internal/proof"
	"github.com/ppiankov/cipherscore/internal/registry"
	"github.com/ppiankov/cipherscore/internal/scoring"
	"github.com/ppiankov/cipherscore/internal/store"
)

// Run executes a scenario against a fresh in-memory stack. Key material
// is passed in because key generation dominates runtime; the engine and
// store are fresh so scenarios never see each other's state. A scenario
// naming its own requesters gets a private registry; otherwise it runs
// against roster, which a caller like `check --watch` keeps hot-reloaded.
func Run(s *Scenario, km *lattice.KeyMaterial, roster *registry.Registry) *RunResult {
	cfg := scoring.DefaultConfig()
	if s.Variant != "" {
		cfg.Variant = s.Variant
	}

	reg := roster
	if len(s.Requesters) > 0 || reg == nil {
		ids := make([]model.Identity, len(s.Requesters))
		for i, r := range s.Requesters {
			ids[i] = model.Identity(r)
		}
		reg = registry.New(ids...)
	}

	engine := lattice.New(km, "core")
	c := core.New(engine, reg, store.NewMemory(), cfg)

	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Steps),
	}

	for i, step := range s.Steps {
		sr := runStep(c, engine, step)
		sr.Index = i + 1
		if sr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Steps = append(result.Steps, sr)
	}
	return result
}

func runStep(c *core.Core, engine *lattice.Engine, step Step) StepResult {
	subject := model.Identity(step.Subject)
	requester := model.Identity(step.Requester)
	caller := model.Identity(step.Caller)
	if caller == "" {
		caller = subject
	}

	sr := StepResult{
		Op:       step.Op,
		Key:      model.RecordKey{Subject: subject, Requester: requester}.String(),
		Expected: step.Expect,
	}

	var err error
	switch step.Op {
	case "submit":
		var raw [][]byte
		var p []byte
		raw, p, err = buildSubmission(engine, step.Tuple)
		if err == nil {
			err = c.Submit(subject, requester, raw, p)
		}
	case "compute":
		err = c.Compute(caller, subject, requester)
	case "grant":
		err = c.Grant(subject, requester)
	case "revoke":
		err = c.Revoke(subject, requester)
	case "access":
		var h fhe.Handle
		h, err = c.Access(caller, subject, requester)
		if err == nil && step.Score != nil {
			got, rerr := engine.Reveal(h, caller)
			if rerr != nil {
				sr.Actual = "error"
				sr.Detail = rerr.Error()
				return sr
			}
			if got != *step.Score {
				sr.Actual = "ok"
				sr.Detail = fmt.Sprintf("score %d, expected %d", got, *step.Score)
				return sr
			}
		}
	default:
		sr.Actual = "error"
		sr.Detail = fmt.Sprintf("unknown op %q", step.Op)
		return sr
	}

	sr.Actual = model.ErrorCode(err)
	if err != nil {
		sr.Detail = err.Error()
	}
	sr.Passed = sr.Actual == sr.Expected
	return sr
}

// buildSubmission plays the submitter side: encrypt each attribute and
// bind the ciphertext digests into a knowledge proof.
func buildSubmission(engine *lattice.Engine, tuple []uint64) ([][]byte, []byte, error) {
	if len(tuple) != model.AttributeCount {
		return nil, nil, fmt.Errorf("scenario: tuple has %d values, want %d", len(tuple), model.AttributeCount)
	}
	var attrs [model.AttributeCount]uint64
	raw := make([][]byte, model.AttributeCount)
	digests := make([][]byte, model.AttributeCount)
	for i, v := range tuple {
		attrs[i] = v
		b, err := engine.EncryptInput(v)
		if err != nil {
			return nil, nil, fmt.Errorf("scenario: encrypt %s: %w", model.AttributeNames[i], err)
		}
		raw[i] = b
		d := sha256.Sum256(b)
		digests[i] = d[:]
	}
	p, err := proof.Build(attrs, digests)
	if err != nil {
		return nil, nil, fmt.Errorf("scenario: %w", err)
	}
	return raw, p, nil
}

// Load parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	return &s, nil
}

// LoadAndRun loads a scenario YAML file and runs it.
func LoadAndRun(path string, km *lattice.KeyMaterial, roster *registry.Registry) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	result := Run(s, km, roster)
	result.File = path
	return result, nil
}
