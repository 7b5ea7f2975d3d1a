package roster

import "context"

// BuildRequest is the input to BuildCandidateLists: the slot positions and
// the filtering knobs of the solver request surface (spec.md §6) that bear
// on candidate selection.
type BuildRequest struct {
	Positions      []PositionCode
	OwnedOnly      bool
	IncludePlayers []int64
	CandidateLimit int
	MinRating      float64
}

// SlotCandidates is the ordered, bounded candidate list for one lineup
// slot, per spec.md §4.2.
type SlotCandidates struct {
	Position   PositionCode
	SlotIndex  int
	Candidates []Candidate
}

// BuildCandidateLists runs the Candidate Provider of spec.md §4.2 for all
// SquadSize slots: it queries the catalogue once per slot, resolves each
// eligible player's effective price, and performs the two pre-flight
// checks (empty slot, unplaceable required player) before any model is
// built.
func BuildCandidateLists(ctx context.Context, cat Catalogue, owned OwnedSet, req BuildRequest) ([]SlotCandidates, error) {
	if err := ValidatePositions(req.Positions); err != nil {
		return nil, err
	}
	includeSet := make(map[int64]bool, len(req.IncludePlayers))
	for _, id := range req.IncludePlayers {
		includeSet[id] = true
	}

	for id := range includeSet {
		if _, found, err := cat.PlayerByEAID(ctx, id); err != nil {
			return nil, err
		} else if !found {
			return nil, newMissingPlayerError(id)
		}
	}

	query := CandidateQuery{
		OwnedOnly:  req.OwnedOnly,
		MinRating:  req.MinRating,
		Limit:      req.CandidateLimit,
		IncludeSet: includeSet,
		OwnedSet:   owned,
	}

	slots := make([]SlotCandidates, len(req.Positions))
	placed := make(map[int64]bool, len(includeSet))

	for i, pos := range req.Positions {
		players, err := cat.CandidatesForPosition(ctx, pos, query)
		if err != nil {
			return nil, err
		}
		if len(players) == 0 {
			return nil, newEmptySlotError(pos, i)
		}

		candidates := make([]Candidate, 0, len(players))
		for _, p := range players {
			rating, eligible := p.RatingAt(pos)
			if !eligible {
				continue
			}
			required := includeSet[p.EAID]
			isOwned := owned != nil && owned.Contains(p.EAID)

			price, ok := effectivePrice(p, isOwned, required)
			if !ok {
				continue
			}
			candidates = append(candidates, Candidate{
				Player:         p,
				Position:       pos,
				PositionRating: rating,
				EffectivePrice: price,
				IsOwned:        isOwned,
				IsRequired:     required,
			})
			if required {
				placed[p.EAID] = true
			}
		}
		if len(candidates) == 0 {
			return nil, newEmptySlotError(pos, i)
		}
		slots[i] = SlotCandidates{Position: pos, SlotIndex: i, Candidates: candidates}
	}

	var unplaceable []int64
	for id := range includeSet {
		if !placed[id] {
			unplaceable = append(unplaceable, id)
		}
	}
	if len(unplaceable) > 0 {
		return nil, newUnplaceableError(unplaceable)
	}

	return slots, nil
}

// effectivePrice implements spec.md §4.2 rule 4's price resolution. ok is
// false when the candidate must be rejected outright (no price, not
// owned, not required).
func effectivePrice(p Player, isOwned, isRequired bool) (price int64, ok bool) {
	switch {
	case isOwned:
		return 0, true
	case isRequired && p.MarketPrice != nil:
		return *p.MarketPrice, true
	case isRequired:
		return FallbackExtinctPrice, true
	case p.MarketPrice != nil:
		return *p.MarketPrice, true
	default:
		return 0, false
	}
}
