package roster

import (
	"context"
	"sort"
)

// CandidateQuery narrows a catalogue lookup for one slot, per spec.md §6.
type CandidateQuery struct {
	OwnedOnly bool
	MinRating float64
	Limit     int
	// IncludeSet bypasses MinRating for any ea_id present (spec.md §4.2
	// rule 2): required players are never filtered out by the rating
	// floor.
	IncludeSet map[int64]bool
	// OwnedSet resolves OwnedOnly filtering and the owned ⇒ price 0 rule.
	// Threaded through per-query rather than captured at construction so
	// a single Catalogue instance serves concurrent requests with
	// different owned sets.
	OwnedSet OwnedSet
}

// Catalogue abstracts the external player catalogue of spec.md §6. It
// replaces the source's global database handle (spec.md §9) with a
// dependency-injected interface; see internal/catalogue for the
// Postgres/gorm-backed implementation.
type Catalogue interface {
	// CandidatesForPosition returns players eligible at pos, sorted
	// descending by ratings_by_position[pos] with ea_id ascending as
	// tie-break, subject to opts.
	CandidatesForPosition(ctx context.Context, pos PositionCode, opts CandidateQuery) ([]Player, error)
	// PlayerByEAID looks up a single player by identity, used to resolve
	// include_set membership independent of any one slot's filters.
	PlayerByEAID(ctx context.Context, eaID int64) (Player, bool, error)
}

// OwnedSet abstracts the owned-player set of spec.md §6.
type OwnedSet interface {
	Contains(eaID int64) bool
	IDs() []int64
}

// ownedSet is the trivial in-memory OwnedSet.
type ownedSet struct {
	ids map[int64]bool
}

// NewOwnedSet builds an OwnedSet from a slice of ea_ids.
func NewOwnedSet(ids []int64) OwnedSet {
	s := &ownedSet{ids: make(map[int64]bool, len(ids))}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

func (s *ownedSet) Contains(eaID int64) bool { return s.ids[eaID] }

func (s *ownedSet) IDs() []int64 {
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// InMemoryCatalogue is a Catalogue implementation backed by a plain slice,
// used by the core's own test suite and by embedders that don't need
// Postgres (spec.md §9's "replace the global handle with an interface"
// taken to its natural conclusion — the interface's simplest realisation).
type InMemoryCatalogue struct {
	players []Player
	byEAID  map[int64]Player
}

// NewInMemoryCatalogue indexes players by ea_id for PlayerByEAID lookups.
func NewInMemoryCatalogue(players []Player) *InMemoryCatalogue {
	c := &InMemoryCatalogue{
		players: players,
		byEAID:  make(map[int64]Player, len(players)),
	}
	for _, p := range players {
		c.byEAID[p.EAID] = p
	}
	return c
}

func (c *InMemoryCatalogue) PlayerByEAID(_ context.Context, eaID int64) (Player, bool, error) {
	p, ok := c.byEAID[eaID]
	return p, ok, nil
}

func (c *InMemoryCatalogue) CandidatesForPosition(_ context.Context, pos PositionCode, opts CandidateQuery) ([]Player, error) {
	matches := make([]Player, 0)
	for _, p := range c.players {
		rating, eligible := p.RatingAt(pos)
		if !eligible {
			continue
		}
		required := opts.IncludeSet != nil && opts.IncludeSet[p.EAID]
		owned := opts.OwnedSet != nil && opts.OwnedSet.Contains(p.EAID)
		if rating < opts.MinRating && !required {
			continue
		}
		if opts.OwnedOnly && !owned && !required {
			continue
		}
		matches = append(matches, p)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		ri, _ := matches[i].RatingAt(pos)
		rj, _ := matches[j].RatingAt(pos)
		if ri != rj {
			return ri > rj
		}
		return matches[i].EAID < matches[j].EAID
	})

	limit := opts.Limit
	if opts.IncludeSet != nil {
		limit += len(opts.IncludeSet)
	}
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
