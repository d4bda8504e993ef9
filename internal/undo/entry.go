package undo

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/enums"
)

// Payload is a declarative operation description. Replaying it goes through
// the same service APIs that produced it, so invariants hold on undo and redo.
type Payload struct {
	Op   string         `json:"op"`
	Args map[string]any `json:"args"`
}

// Entry is one reversible operation. Forward re-applies it, Inverse reverts it.
type Entry struct {
	ID          uuid.UUID           `json:"id"`
	Type        enums.UndoEntryType `json:"type"`
	Description string              `json:"description"`
	Timestamp   time.Time           `json:"timestamp"`
	Forward     Payload             `json:"forward"`
	Inverse     Payload             `json:"inverse"`
}

// NewEntry stamps identity and time onto an entry.
func NewEntry(entryType enums.UndoEntryType, description string, forward, inverse Payload) Entry {
	return Entry{
		ID:          uuid.New(),
		Type:        entryType,
		Description: description,
		Timestamp:   time.Now().UTC(),
		Forward:     forward,
		Inverse:     inverse,
	}
}

// StringArg extracts a string argument from a payload.
func StringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing arg %q", key)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("arg %q is not a string", key)
	}
	return value, nil
}

// IntArg extracts an integer argument from a payload. JSON round-trips store
// numbers as float64, so both forms are accepted.
func IntArg(args map[string]any, key string) (int, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing arg %q", key)
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	}
	return 0, fmt.Errorf("arg %q is not a number", key)
}

// UUIDArg extracts a UUID argument from a payload.
func UUIDArg(args map[string]any, key string) (uuid.UUID, error) {
	switch v := args[key].(type) {
	case uuid.UUID:
		return v, nil
	case string:
		parsed, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, fmt.Errorf("arg %q is not a uuid: %w", key, err)
		}
		return parsed, nil
	}
	return uuid.Nil, fmt.Errorf("missing or invalid arg %q", key)
}
