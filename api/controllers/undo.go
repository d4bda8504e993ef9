package controllers

import (
	"net/http"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/api/responses"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/undo"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

type undoResult struct {
	Undone      bool   `json:"undone,omitempty"`
	Redone      bool   `json:"redone,omitempty"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// UndoApply reverts the caller's most recent operation. An empty history is
// not an error; the response just reports nothing happened.
func UndoApply(manager *undo.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := manager.Undo(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entry == nil {
			responses.WriteSuccess(w, undoResult{})
			return
		}
		responses.WriteSuccess(w, undoResult{
			Undone:      true,
			Type:        entry.Type.String(),
			Description: entry.Description,
		})
	}
}

// RedoApply re-applies the most recently undone operation.
func RedoApply(manager *undo.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := manager.Redo(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if entry == nil {
			responses.WriteSuccess(w, undoResult{})
			return
		}
		responses.WriteSuccess(w, undoResult{
			Redone:      true,
			Type:        entry.Type.String(),
			Description: entry.Description,
		})
	}
}

type historyEntry struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// UndoHistory lists the session's undoable operations, newest first.
func UndoHistory(manager *undo.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries := manager.History(r.Context())

		out := make([]historyEntry, 0, len(entries))
		for _, entry := range entries {
			out = append(out, historyEntry{
				ID:          entry.ID.String(),
				Type:        entry.Type.String(),
				Description: entry.Description,
				Timestamp:   entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
			})
		}
		responses.WriteSuccess(w, out)
	}
}
