// Package execlog is the append-only execution log the pipeline writes at
// every meaningful transition. The core only ever appends; nothing in this
// service reads the log back.
package execlog

import (
	"errors"
	"time"
)

// Level classifies an entry.
type Level string

// Supported levels.
const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Action tags group entries by pipeline transition.
const (
	ActionWebhook   = "WEBHOOK"
	ActionFetch     = "FETCH"
	ActionPersist   = "PERSIST"
	ActionTrigger   = "TRIGGER"
	ActionJoin      = "JOIN"
	ActionProvision = "PROVISION"
	ActionImport    = "IMPORT"
)

// Entry is one timestamped log record.
type Entry struct {
	TS      time.Time `json:"ts"`
	Level   Level     `json:"level"`
	Action  string    `json:"action"`
	Message string    `json:"message"`
}

// Validate performs coarse validation on Entry payloads.
func (e Entry) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Level {
	case LevelInfo, LevelWarn, LevelError:
	default:
		return errors.New("unknown level")
	}
	if e.Action == "" {
		return errors.New("action tag is required")
	}
	return nil
}
