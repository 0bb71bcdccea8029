package models

import (
	"fmt"
)

// EditStateENUMType edit session state ENUM
type EditStateENUMType string

const (
	// EditStateEmpty no selection, form cleared
	EditStateEmpty EditStateENUMType = "EMPTY"
	// EditStateEditingExisting selection is a persisted record
	EditStateEditingExisting EditStateENUMType = "EDITING_EXISTING"
	// EditStateEditingNew selection is a transient record
	EditStateEditingNew EditStateENUMType = "EDITING_NEW"
)

// EditOperationENUMType edit session operation ENUM
type EditOperationENUMType string

const (
	// EditOperationSelect a persisted record becomes the selection
	EditOperationSelect EditOperationENUMType = "SELECT"
	// EditOperationStartNew a transient record becomes the selection
	EditOperationStartNew EditOperationENUMType = "START_NEW"
	// EditOperationSaved the selection was persisted
	EditOperationSaved EditOperationENUMType = "SAVED"
	// EditOperationDeleted the selection was deleted
	EditOperationDeleted EditOperationENUMType = "DELETED"
	// EditOperationClear the selection was dropped without persisting
	EditOperationClear EditOperationENUMType = "CLEAR"
)

// editStateTransitions the state reached by each allowed operation of each state
var editStateTransitions = map[EditStateENUMType]map[EditOperationENUMType]EditStateENUMType{
	EditStateEmpty: {
		EditOperationSelect:   EditStateEditingExisting,
		EditOperationStartNew: EditStateEditingNew,
		EditOperationClear:    EditStateEmpty,
	},
	EditStateEditingExisting: {
		EditOperationSelect:   EditStateEditingExisting,
		EditOperationStartNew: EditStateEditingNew,
		EditOperationSaved:    EditStateEmpty,
		EditOperationDeleted:  EditStateEmpty,
		EditOperationClear:    EditStateEmpty,
	},
	EditStateEditingNew: {
		EditOperationSelect:   EditStateEditingExisting,
		EditOperationStartNew: EditStateEditingNew,
		EditOperationSaved:    EditStateEmpty,
		EditOperationClear:    EditStateEmpty,
	},
}

/*
NextState the state reached by applying an operation

	@param operation EditOperationENUMType - the operation
	@returns the next state
*/
func (s EditStateENUMType) NextState(operation EditOperationENUMType) (EditStateENUMType, error) {
	availableOperations, ok := editStateTransitions[s]
	if !ok {
		return s, fmt.Errorf("editor can't transition out of state '%s'", s)
	}

	nextState, ok := availableOperations[operation]
	if !ok {
		return s, fmt.Errorf("editor can't apply '%s' in state '%s'", operation, s)
	}

	return nextState, nil
}
