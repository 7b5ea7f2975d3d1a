package roster

import "strings"

// FallbackExtinctPrice is charged against the budget for a required player
// who has no market price (the "extinct but mandatory" case of spec.md
// §4.2). See SPEC_FULL.md's open-question resolution: this fallback is
// counted against budget, which can legitimately make tight budgets
// infeasible.
const FallbackExtinctPrice = 1_000_000

// Player is an immutable-during-a-run record of a single FUT card. Pointer
// fields model attributes that may be absent in the source catalogue;
// absence is meaningful (see spec.md §3) and must not be silently
// defaulted to zero.
type Player struct {
	EAID    int64
	Name    string
	ClubID  *int64
	LeagueID *int64
	NationID *int64

	// MarketPrice is nil when the card is extinct (no longer tradeable).
	MarketPrice *int64

	// RatingsByPosition maps a position code to a non-negative rating.
	// Absence of a key means the player is ineligible at that position.
	RatingsByPosition map[PositionCode]float64

	IsIcon bool
	IsHero bool
}

// NormalizedName is the case-insensitive, trimmed secondary uniqueness
// key from spec.md I3.
func (p Player) NormalizedName() string {
	return strings.ToLower(strings.TrimSpace(p.Name))
}

// RatingAt returns the player's rating at pos and whether they are
// eligible there at all (I1).
func (p Player) RatingAt(pos PositionCode) (float64, bool) {
	r, ok := p.RatingsByPosition[pos]
	if !ok || r <= 0 {
		return 0, false
	}
	return r, true
}

// Candidate is a Player annotated with the slot-specific, derived
// attributes the Candidate Provider computes (spec.md §3, §4.2): the
// price the solver should charge against budget, and whether this card
// is owned or mandatory for this optimisation run.
type Candidate struct {
	Player
	Position       PositionCode
	PositionRating float64
	EffectivePrice int64
	IsOwned        bool
	IsRequired     bool
}
