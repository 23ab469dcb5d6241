package audit

// Entry is one line in the hash-chained JSONL audit log: one domain
// event per invocation outcome. All fields are scalars (no map[string]any)
// to guarantee deterministic json.Marshal field order for reproducible
// hashing.
type Entry struct {
	Timestamp  string `json:"ts"`
	EventID    string `json:"event_id"`
	Event      string `json:"event"`
	Actor      string `json:"actor"`
	Subject    string `json:"subject"`
	Requester  string `json:"requester"`
	Outcome    string `json:"outcome"`
	ConfigHash string `json:"config_hash,omitempty"`
	PrevHash   string `json:"prev_hash"`
}
