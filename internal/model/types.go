package model

import "fmt"

// Identity is an authenticated actor id supplied by the invoking context.
// The core never authenticates identities itself.
type Identity string

// RecordKey is the ordered (subject, requester) pair every record and
// capability is keyed by. At most one record exists per key, ever.
type RecordKey struct {
	Subject   Identity `json:"subject"`
	Requester Identity `json:"requester"`
}

// String renders the key in the canonical "subject:requester" form used
// for storage keys and audit entries.
func (k RecordKey) String() string {
	return fmt.Sprintf("%s:%s", k.Subject, k.Requester)
}

// State is the per-key lifecycle state. The only valid progression is
// NotSubmitted → Submitted → Computed; Computed is terminal.
type State int

const (
	StateNotSubmitted State = iota
	StateSubmitted
	StateComputed
)

// Label returns a human-readable label for the state.
func (s State) Label() string {
	switch s {
	case StateNotSubmitted:
		return "not_submitted"
	case StateSubmitted:
		return "submitted"
	case StateComputed:
		return "computed"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Event names recorded in the audit log, one per invocation outcome.
const (
	EventSubmitted = "submitted"
	EventComputed  = "computed"
	EventGranted   = "granted"
	EventRevoked   = "revoked"
	EventAccessed  = "accessed"
	EventRejected  = "rejected"
)

// AttributeCount is the fixed number of encrypted attributes in a record.
const AttributeCount = 12

// Attribute indices in submission order. Every submission carries all
// twelve ciphertexts together under one proof, in this order.
const (
	AttrHeight = iota
	AttrWeight
	AttrSystolic
	AttrDiastolic
	AttrHDL
	AttrLDL
	AttrTriglycerides
	AttrTotalCholesterol
	AttrBloodSugar
	AttrPulse
	AttrAge
	AttrGender
)

// AttributeNames maps submission-order indices to field names.
var AttributeNames = [AttributeCount]string{
	"height", "weight", "systolic", "diastolic", "hdl", "ldl",
	"triglycerides", "total_cholesterol", "blood_sugar", "pulse",
	"age", "gender",
}
