package dashboard

import (
	"encoding/json"
	"time"
)

// MessageType identifies a dashboard message.
type MessageType string

const (
	// MessageTypeRecordUpdate reports a record created or deleted.
	MessageTypeRecordUpdate MessageType = "record_update"

	// MessageTypeSyncComplete reports a finished full sync or file pass.
	MessageTypeSyncComplete MessageType = "sync_complete"

	// MessageTypeFailure reports a source file that failed to reconcile.
	MessageTypeFailure MessageType = "failure"

	// MessageTypeStats carries record statistics.
	MessageTypeStats MessageType = "stats"
)

// Message is the envelope of everything sent to clients.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage stamps and encodes data into a message of type typ.
func NewMessage(typ MessageType, data any) (Message, error) {
	msg := Message{Type: typ, Timestamp: time.Now()}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return msg, err
	}
	msg.Data = raw
	return msg, nil
}

// RecordUpdateData describes one record change.
type RecordUpdateData struct {
	ID        string `json:"id"`
	Action    string `json:"action"` // created, deleted
	Kind      string `json:"kind,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Key       string `json:"key,omitempty"`
	Language  string `json:"language,omitempty"`
	Value     string `json:"value,omitempty"`
}

// SyncCompleteData summarizes a full sync, or a single file pass when Path
// is set.
type SyncCompleteData struct {
	Namespace string        `json:"namespace"`
	Path      string        `json:"path,omitempty"`
	Files     int           `json:"files"`
	Created   int           `json:"created"`
	Deleted   int           `json:"deleted"`
	Unchanged int           `json:"unchanged"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// FailureData is a per-file failure.
type FailureData struct {
	Path    string   `json:"path"`
	Kind    string   `json:"kind"`
	Details []string `json:"details,omitempty"`
}

// StatsData holds record counts and the number of failing files.
type StatsData struct {
	Total      int            `json:"total"`
	ByKind     map[string]int `json:"by_kind"`
	ByLanguage map[string]int `json:"by_language"`
	Failures   int            `json:"failures"`
}
