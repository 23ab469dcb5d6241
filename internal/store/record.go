package store

import (
	"fmt"

	"github.com/ppiankov/cipherscore/internal/fhe"
	"github.com/ppiankov/cipherscore/internal/model"
)

// Attributes holds the twelve encrypted attribute handles of a record.
// Write-once: set entirely at submission, never mutated afterward.
type Attributes struct {
	Height           fhe.Handle `json:"height"`
	Weight           fhe.Handle `json:"weight"`
	Systolic         fhe.Handle `json:"systolic"`
	Diastolic        fhe.Handle `json:"diastolic"`
	HDL              fhe.Handle `json:"hdl"`
	LDL              fhe.Handle `json:"ldl"`
	Triglycerides    fhe.Handle `json:"triglycerides"`
	TotalCholesterol fhe.Handle `json:"total_cholesterol"`
	BloodSugar       fhe.Handle `json:"blood_sugar"`
	Pulse            fhe.Handle `json:"pulse"`
	Age              fhe.Handle `json:"age"`
	Gender           fhe.Handle `json:"gender"`
}

// AttributesFromHandles maps imported handles, in submission order, onto
// named attributes.
func AttributesFromHandles(hs []fhe.Handle) (Attributes, error) {
	if len(hs) != model.AttributeCount {
		return Attributes{}, fmt.Errorf("store: expected %d handles, got %d", model.AttributeCount, len(hs))
	}
	return Attributes{
		Height:           hs[model.AttrHeight],
		Weight:           hs[model.AttrWeight],
		Systolic:         hs[model.AttrSystolic],
		Diastolic:        hs[model.AttrDiastolic],
		HDL:              hs[model.AttrHDL],
		LDL:              hs[model.AttrLDL],
		Triglycerides:    hs[model.AttrTriglycerides],
		TotalCholesterol: hs[model.AttrTotalCholesterol],
		BloodSugar:       hs[model.AttrBloodSugar],
		Pulse:            hs[model.AttrPulse],
		Age:              hs[model.AttrAge],
		Gender:           hs[model.AttrGender],
	}, nil
}

// EncryptedRecord is the per-(subject, requester) record. Created on
// submission, never deleted. Score starts as an encrypted zero and
// transitions to its final value exactly once, guarded by Computed.
type EncryptedRecord struct {
	Key       model.RecordKey `json:"key"`
	Attrs     Attributes      `json:"attrs"`
	Score     fhe.Handle      `json:"score"`
	Submitted bool            `json:"submitted"`
	Computed  bool            `json:"computed"`
}

// State derives the lifecycle state from the record flags.
func (r *EncryptedRecord) State() model.State {
	switch {
	case r == nil || !r.Submitted:
		return model.StateNotSubmitted
	case !r.Computed:
		return model.StateSubmitted
	default:
		return model.StateComputed
	}
}
