package roster

import "fmt"

// PositionCode identifies one of the playable positions a card can carry a
// rating for. The set is closed; anything else is rejected at the input
// boundary.
type PositionCode string

const (
	GK  PositionCode = "GK"
	RB  PositionCode = "RB"
	RWB PositionCode = "RWB"
	CB  PositionCode = "CB"
	LB  PositionCode = "LB"
	LWB PositionCode = "LWB"
	CDM PositionCode = "CDM"
	RM  PositionCode = "RM"
	CM  PositionCode = "CM"
	LM  PositionCode = "LM"
	CAM PositionCode = "CAM"
	RF  PositionCode = "RF"
	RW  PositionCode = "RW"
	ST  PositionCode = "ST"
	LW  PositionCode = "LW"
	LF  PositionCode = "LF"
	CF  PositionCode = "CF"
)

// ValidPositions is the closed set of position codes a lineup slot may
// require.
var ValidPositions = map[PositionCode]bool{
	GK: true, RB: true, RWB: true, CB: true, LB: true, LWB: true,
	CDM: true, RM: true, CM: true, LM: true, CAM: true, RF: true,
	RW: true, ST: true, LW: true, LF: true, CF: true,
}

// SquadSize is the fixed number of slots in a lineup. The core has no
// notion of a partial squad; see spec.md Non-goals.
const SquadSize = 11

// ValidatePositions checks that positions has exactly SquadSize entries,
// each drawn from ValidPositions.
func ValidatePositions(positions []PositionCode) error {
	if len(positions) != SquadSize {
		return &CoreError{
			Kind:    InputShape,
			Message: fmt.Sprintf("must provide exactly %d positions, got %d", SquadSize, len(positions)),
		}
	}
	for i, p := range positions {
		if !ValidPositions[p] {
			return &CoreError{
				Kind:    InputShape,
				Message: fmt.Sprintf("invalid position code %q at slot %d", p, i),
			}
		}
	}
	return nil
}
