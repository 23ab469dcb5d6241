package scenario

// Step is one invocation within a scenario. Steps run in order against
// shared state: a scenario is a lifecycle script, not a set of
// independent cases.
type Step struct {
	Op        string   `yaml:"op"` // submit, compute, grant, revoke, access
	Caller    string   `yaml:"caller,omitempty"`
	Subject   string   `yaml:"subject"`
	Requester string   `yaml:"requester"`
	Tuple     []uint64 `yaml:"tuple,omitempty"` // submit only, submission order
	Expect    string   `yaml:"expect"`          // expected outcome code
	Score     *uint64  `yaml:"score,omitempty"` // access only, expected plaintext
}

// Scenario is a named lifecycle script with its own requester roster.
type Scenario struct {
	Name       string   `yaml:"name"`
	Variant    string   `yaml:"variant,omitempty"`
	Requesters []string `yaml:"requesters"`
	Steps      []Step   `yaml:"steps"`
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Op       string `json:"op"`
	Key      string `json:"key"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Detail   string `json:"detail,omitempty"`
}

// RunResult is the outcome of running all steps in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Steps  []StepResult `json:"steps"`
}
