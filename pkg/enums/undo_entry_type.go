package enums

import "fmt"

// UndoEntryType enumerates the reversible operations tracked by the undo log.
type UndoEntryType string

const (
	UndoDeleteItem        UndoEntryType = "DELETE_ITEM"
	UndoUpdateItem        UndoEntryType = "UPDATE_ITEM"
	UndoMoveToFolder      UndoEntryType = "MOVE_TO_FOLDER"
	UndoRestoreItem       UndoEntryType = "RESTORE_ITEM"
	UndoBulkDelete        UndoEntryType = "BULK_DELETE"
	UndoBulkMove          UndoEntryType = "BULK_MOVE"
	UndoReservationAdd    UndoEntryType = "RESERVATION_ADD"
	UndoReservationRemove UndoEntryType = "RESERVATION_REMOVE"
)

func (t UndoEntryType) String() string {
	return string(t)
}

// ParseUndoEntryType validates a raw undo entry type.
func ParseUndoEntryType(value string) (UndoEntryType, error) {
	switch UndoEntryType(value) {
	case UndoDeleteItem, UndoUpdateItem, UndoMoveToFolder, UndoRestoreItem,
		UndoBulkDelete, UndoBulkMove, UndoReservationAdd, UndoReservationRemove:
		return UndoEntryType(value), nil
	}
	return "", fmt.Errorf("invalid undo entry type %q", value)
}
