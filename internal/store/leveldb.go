package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/ppiankov/cipherscore/internal/model"
)

// Key prefixes. Records and capabilities share one DB, two key axes.
const (
	recordPrefix = "record_"
	capPrefix    = "cap_"
)

// Level is the goleveldb-backed store used by the CLI state directory.
type Level struct {
	db *leveldb.DB
}

var _ Store = (*Level)(nil)

// OpenLevel opens (or creates) a leveldb store at path.
func OpenLevel(path string) (*Level, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open leveldb: %w", err)
	}
	return &Level{db: db}, nil
}

func recordKey(key model.RecordKey) []byte { return []byte(recordPrefix + key.String()) }
func capKey(key model.RecordKey) []byte    { return []byte(capPrefix + key.String()) }

// Create writes a new record; fails with ErrExists if the key is taken.
func (l *Level) Create(rec *EncryptedRecord) error {
	k := recordKey(rec.Key)
	ok, err := l.db.Has(k, nil)
	if err != nil {
		return fmt.Errorf("store: check record: %w", err)
	}
	if ok {
		return ErrExists
	}
	return l.put(k, rec)
}

// Get returns the record for the key, and whether it exists.
func (l *Level) Get(key model.RecordKey) (*EncryptedRecord, bool, error) {
	data, err := l.db.Get(recordKey(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: read record: %w", err)
	}
	var rec EncryptedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("store: decode record: %w", err)
	}
	return &rec, true, nil
}

// Update overwrites an existing record.
func (l *Level) Update(rec *EncryptedRecord) error {
	return l.put(recordKey(rec.Key), rec)
}

func (l *Level) put(k []byte, rec *EncryptedRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("store: encode record: %w", err)
	}
	if err := l.db.Put(k, data, nil); err != nil {
		return fmt.Errorf("store: write record: %w", err)
	}
	return nil
}

// SetCapability sets the capability boolean for the key.
func (l *Level) SetCapability(key model.RecordKey, granted bool) error {
	v := []byte("0")
	if granted {
		v = []byte("1")
	}
	if err := l.db.Put(capKey(key), v, nil); err != nil {
		return fmt.Errorf("store: write capability: %w", err)
	}
	return nil
}

// Capability returns the capability boolean, false for absent keys.
func (l *Level) Capability(key model.RecordKey) (bool, error) {
	data, err := l.db.Get(capKey(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("store: read capability: %w", err)
	}
	return len(data) == 1 && data[0] == '1', nil
}

// Close closes the underlying DB.
func (l *Level) Close() error {
	return l.db.Close()
}
