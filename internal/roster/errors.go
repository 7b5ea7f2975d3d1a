package roster

import "fmt"

// ErrorKind names the taxonomy of failures the core can surface, per
// spec.md §7. These are categories, not Go error types, so callers can
// switch on Kind without type assertions across package boundaries.
type ErrorKind string

const (
	InputShape           ErrorKind = "input_shape"
	MissingPlayer        ErrorKind = "missing_player"
	Unplaceable          ErrorKind = "unplaceable"
	EmptySlot            ErrorKind = "empty_slot"
	Infeasible           ErrorKind = "infeasible"
	TimedOut             ErrorKind = "timed_out"
	VerificationMismatch ErrorKind = "verification_mismatch"
)

// CoreError is the error type returned across the Squad Optimisation
// Core's public surface. Offending identifiers are carried in EAIDs
// (MissingPlayer, Unplaceable) or Position (EmptySlot); the other kinds
// carry only Kind and Message.
type CoreError struct {
	Kind    ErrorKind
	Message string
	// EAIDs holds the player identities implicated by the error, when
	// applicable (MissingPlayer, Unplaceable).
	EAIDs []int64
	// Position is set when the error is scoped to a single slot
	// (EmptySlot).
	Position PositionCode
}

func (e *CoreError) Error() string {
	return e.Message
}

func newMissingPlayerError(eaID int64) *CoreError {
	return &CoreError{
		Kind:    MissingPlayer,
		Message: fmt.Sprintf("required player %d not present in catalogue", eaID),
		EAIDs:   []int64{eaID},
	}
}

func newUnplaceableError(eaIDs []int64) *CoreError {
	return &CoreError{
		Kind:    Unplaceable,
		Message: fmt.Sprintf("required player(s) %v cannot be placed in any of the specified positions", eaIDs),
		EAIDs:   eaIDs,
	}
}

func newEmptySlotError(pos PositionCode, slotIndex int) *CoreError {
	return &CoreError{
		Kind:     EmptySlot,
		Message:  fmt.Sprintf("no candidates for position %s at slot %d", pos, slotIndex),
		Position: pos,
	}
}

func newInfeasibleError() *CoreError {
	return &CoreError{
		Kind:    Infeasible,
		Message: "no feasible solution with these constraints",
	}
}

func newTimedOutError() *CoreError {
	return &CoreError{
		Kind:    TimedOut,
		Message: "solver did not produce a solution in time",
	}
}

func newVerificationMismatchError(solverChemistry, evaluatorChemistry int) *CoreError {
	return &CoreError{
		Kind: VerificationMismatch,
		Message: fmt.Sprintf(
			"internal error: solver chemistry %d does not match evaluator chemistry %d",
			solverChemistry, evaluatorChemistry,
		),
	}
}
