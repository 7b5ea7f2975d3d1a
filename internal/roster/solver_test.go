package roster

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allPositions() []PositionCode {
	return []PositionCode{GK, RB, CB, CB, LB, CDM, CM, CM, RW, ST, LW}
}

// Scenario 1 (spec.md §8): trivial owned-only, all same league/nation,
// budget 0, high min_chemistry.
func TestSolve_Scenario1_TrivialOwnedOnly(t *testing.T) {
	positions := allPositions()
	players := make([]Player, len(positions))
	for i, pos := range positions {
		players[i] = Player{
			EAID:              int64(i + 1),
			Name:              fmt.Sprintf("Player %d", i),
			LeagueID:          idPtr(10),
			NationID:          idPtr(20),
			ClubID:            idPtr(int64(100 + i)),
			RatingsByPosition: map[PositionCode]float64{pos: 80 + float64(i)},
		}
	}
	cat := NewInMemoryCatalogue(players)
	ownedIDs := make([]int64, len(players))
	for i, p := range players {
		ownedIDs[i] = p.EAID
	}
	owned := NewOwnedSet(ownedIDs)

	resp, err := Solve(context.Background(), cat, owned, SolveRequest{
		Positions:      positions,
		Budget:         0,
		MinChemistry:   11,
		OwnedOnly:      true,
		CandidateLimit: 5,
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusOptimal, resp.Status)
	assert.Equal(t, int64(0), resp.TotalCost)
	assert.GreaterOrEqual(t, resp.TotalChemistry, 11)
	for _, e := range resp.Lineup {
		assert.Greater(t, e.SlotChem, 0)
	}
}

// Scenario 2: budget-binding choice between an expensive high-rating
// candidate and a free owned low-rating one.
func TestSolve_Scenario2_BudgetBinding(t *testing.T) {
	positions := allPositions()
	var players []Player
	var owned []int64
	for i, pos := range positions {
		expensiveID := int64(i*2 + 1)
		cheapID := int64(i*2 + 2)
		players = append(players,
			Player{
				EAID:              expensiveID,
				Name:              fmt.Sprintf("Expensive %d", i),
				RatingsByPosition: map[PositionCode]float64{pos: 90},
				MarketPrice:       int64Ptr(1_000_000),
			},
			Player{
				EAID:              cheapID,
				Name:              fmt.Sprintf("Cheap %d", i),
				RatingsByPosition: map[PositionCode]float64{pos: 70},
			},
		)
		owned = append(owned, cheapID)
	}
	cat := NewInMemoryCatalogue(players)
	ownedSet := NewOwnedSet(owned)

	resp, err := Solve(context.Background(), cat, ownedSet, SolveRequest{
		Positions:      positions,
		Budget:         3_000_000,
		MinChemistry:   0,
		CandidateLimit: 5,
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, resp.TotalCost, int64(3_000_000))

	expensivePicks := 0
	for _, e := range resp.Lineup {
		if e.Candidate.MarketPrice != nil {
			expensivePicks++
		}
	}
	assert.Equal(t, 3, expensivePicks)
}

// Scenario 3: mandatory inclusion forces a single-position player into
// their only eligible slot.
func TestSolve_Scenario3_MandatoryInclusionForcesPosition(t *testing.T) {
	positions := allPositions() // contains CDM once
	var players []Player
	mandatoryID := int64(999)
	players = append(players, Player{
		EAID:              mandatoryID,
		Name:              "Mandatory",
		RatingsByPosition: map[PositionCode]float64{CDM: 60},
		MarketPrice:       int64Ptr(5000),
	})
	for i, pos := range positions {
		players = append(players, Player{
			EAID:              int64(1000 + i),
			Name:              fmt.Sprintf("Filler %d", i),
			RatingsByPosition: map[PositionCode]float64{pos: 85},
			MarketPrice:       int64Ptr(1000),
		})
	}
	cat := NewInMemoryCatalogue(players)

	resp, err := Solve(context.Background(), cat, NewOwnedSet(nil), SolveRequest{
		Positions:      positions,
		Budget:         100_000,
		MinChemistry:   0,
		IncludePlayers: []int64{mandatoryID},
		CandidateLimit: 5,
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	found := false
	for _, e := range resp.Lineup {
		if e.Candidate.EAID == mandatoryID {
			found = true
			assert.Equal(t, CDM, e.Position)
		}
	}
	assert.True(t, found)
}

// Scenario 4: infeasibility driven by the chemistry floor.
func TestSolve_Scenario4_InfeasibleByChemistry(t *testing.T) {
	positions := allPositions()
	var players []Player
	for i, pos := range positions {
		players = append(players, Player{
			EAID:              int64(i + 1),
			Name:              fmt.Sprintf("Distinct %d", i),
			ClubID:            idPtr(int64(i + 1)),
			LeagueID:          idPtr(int64(i + 1)),
			NationID:          idPtr(int64(i + 1)),
			RatingsByPosition: map[PositionCode]float64{pos: 80},
			MarketPrice:       int64Ptr(1000),
		})
	}
	cat := NewInMemoryCatalogue(players)

	_, err := Solve(context.Background(), cat, NewOwnedSet(nil), SolveRequest{
		Positions:      positions,
		Budget:         1_000_000,
		MinChemistry:   5,
		CandidateLimit: 5,
		TimeoutSeconds: 5,
	})
	require.Error(t, err)
	var coreErr *CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, Infeasible, coreErr.Kind)
}

// Scenario 6: name-collision guard forbids two slots both picking
// "A. Silva" even though their ea_ids differ.
func TestSolve_Scenario6_NameCollisionGuard(t *testing.T) {
	// The two "A. Silva" cards are the best picks for the ST and LW slots;
	// every slot also has a uniquely named 70-rated filler.
	positions := allPositions()
	players := []Player{
		{EAID: 1, Name: "A. Silva", RatingsByPosition: map[PositionCode]float64{ST: 90}, MarketPrice: int64Ptr(100)},
		{EAID: 2, Name: "A. Silva", RatingsByPosition: map[PositionCode]float64{LW: 85}, MarketPrice: int64Ptr(100)},
	}
	for i, pos := range positions {
		players = append(players, Player{
			EAID:              int64(100 + i),
			Name:              fmt.Sprintf("Filler %d", i),
			RatingsByPosition: map[PositionCode]float64{pos: 70},
			MarketPrice:       int64Ptr(100),
		})
	}
	cat := NewInMemoryCatalogue(players)

	resp, err := Solve(context.Background(), cat, NewOwnedSet(nil), SolveRequest{
		Positions:      positions,
		Budget:         10_000,
		MinChemistry:   0,
		CandidateLimit: 5,
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	names := map[string]bool{}
	for _, e := range resp.Lineup {
		name := e.Candidate.NormalizedName()
		assert.False(t, names[name], "name %q must not repeat across slots", name)
		names[name] = true
	}
}

func TestSolve_InputShape_BadMinChemistry(t *testing.T) {
	cat := NewInMemoryCatalogue(nil)
	_, err := Solve(context.Background(), cat, NewOwnedSet(nil), SolveRequest{
		Positions:    allPositions(),
		MinChemistry: 99,
	})
	require.Error(t, err)
	var coreErr *CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, InputShape, coreErr.Kind)
}

// An already-expired context must surface TIMED_OUT, not INFEASIBLE, when
// no complete assignment was found before the deadline (spec.md §7).
func TestSolve_TimedOut_NoIncumbent(t *testing.T) {
	positions := allPositions()
	var players []Player
	for i, pos := range positions {
		players = append(players, Player{
			EAID:              int64(i + 1),
			Name:              "P",
			RatingsByPosition: map[PositionCode]float64{pos: 80},
			MarketPrice:       int64Ptr(1000),
		})
	}
	cat := NewInMemoryCatalogue(players)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Solve(ctx, cat, NewOwnedSet(nil), SolveRequest{
		Positions:      positions,
		Budget:         1_000_000,
		MinChemistry:   0,
		CandidateLimit: 5,
		TimeoutSeconds: 5,
	})
	require.Error(t, err)
	var coreErr *CoreError
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, TimedOut, coreErr.Kind)
}

// A search cut off after finding at least one complete assignment must
// downgrade OPTIMAL to FEASIBLE rather than claim an optimality it never
// proved (spec.md §4.3/§6).
func TestSolve_TimedOut_WithIncumbent_ReportsFeasible(t *testing.T) {
	// Eleven ST slots share one pool of twelve strikers. The first descent
	// completes a lineup at once, but the per-slot rating bound cannot rule
	// out the other orderings of the same pool, so the search is still
	// running when the 5ms deadline passes.
	positions := fullPositions(ST)
	var players []Player
	for j := 0; j < 12; j++ {
		players = append(players, Player{
			EAID:              int64(j + 1),
			Name:              fmt.Sprintf("P%d", j),
			RatingsByPosition: map[PositionCode]float64{ST: float64(60 + j)},
			MarketPrice:       int64Ptr(1000),
		})
	}
	cat := NewInMemoryCatalogue(players)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	resp, err := Solve(ctx, cat, NewOwnedSet(nil), SolveRequest{
		Positions:      positions,
		Budget:         1_000_000_000,
		MinChemistry:   0,
		CandidateLimit: 12,
		TimeoutSeconds: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusFeasible, resp.Status)
}

func TestSolve_Idempotent(t *testing.T) {
	// P6: running the solver twice on the same inputs yields the same
	// total_rating and status.
	positions := allPositions()
	var players []Player
	for i, pos := range positions {
		for j := 0; j < 3; j++ {
			players = append(players, Player{
				EAID:              int64(i*10 + j),
				Name:              fmt.Sprintf("P%d-%d", i, j),
				RatingsByPosition: map[PositionCode]float64{pos: float64(70 + j*5)},
				MarketPrice:       int64Ptr(1000),
			})
		}
	}
	cat := NewInMemoryCatalogue(players)

	req := SolveRequest{
		Positions:      positions,
		Budget:         50_000,
		MinChemistry:   0,
		CandidateLimit: 5,
		TimeoutSeconds: 5,
	}
	respA, errA := Solve(context.Background(), cat, NewOwnedSet(nil), req)
	respB, errB := Solve(context.Background(), cat, NewOwnedSet(nil), req)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, respA.Status, respB.Status)
	assert.Equal(t, respA.TotalRating, respB.TotalRating)
}
