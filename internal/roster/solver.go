package roster

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"
)

// SolveStatus mirrors the CP-SAT-style result statuses of spec.md §4.3 and
// §6. Values are the literal strings the HTTP response surface uses.
type SolveStatus string

const (
	StatusOptimal    SolveStatus = "OPTIMAL"
	StatusFeasible   SolveStatus = "FEASIBLE"
	StatusInfeasible SolveStatus = "INFEASIBLE"
	StatusTimedOut   SolveStatus = "TIMED_OUT"
)

// SolveRequest is the solver's public entry point (spec.md §6).
type SolveRequest struct {
	Positions      []PositionCode
	Budget         int64
	MinChemistry   int
	OwnedOnly      bool
	IncludePlayers []int64
	CandidateLimit int
	MinRating      float64
	TimeoutSeconds int
	// Workers sets the branch-and-bound worker-pool size. 0 or 1 runs the
	// default single-worker deterministic search (SPEC_FULL.md §9); >1
	// trades assignment determinism for wall-clock speed.
	Workers int
}

// LineupEntry is one slot of a solved Lineup (spec.md §3's Lineup plus the
// solver's slot_chem annotation from §4.3 extraction).
type LineupEntry struct {
	SlotIndex int
	Position  PositionCode
	Candidate Candidate
	SlotChem  int
}

// SolveResponse is the solver's success surface (spec.md §6).
type SolveResponse struct {
	Status           SolveStatus
	Lineup           []LineupEntry
	TotalRating      float64
	TotalCost        int64
	TotalChemistry   int
	OwnedCount       int
	RequiredCount    int
	SolveTimeSeconds float64
}

// Solve runs the Squad Solver of spec.md §4.3: candidate construction,
// branch-and-bound search under the structural and chemistry constraints,
// extraction, and post-solve verification against the Chemistry Evaluator.
//
// Errors of kind InputShape, MissingPlayer, Unplaceable, and EmptySlot are
// raised before any search begins. Infeasible and TimedOut are raised
// after search; VerificationMismatch after extraction. All are *CoreError.
func Solve(ctx context.Context, cat Catalogue, owned OwnedSet, req SolveRequest) (*SolveResponse, error) {
	if req.MinChemistry < 0 || req.MinChemistry > 33 {
		return nil, &CoreError{Kind: InputShape, Message: "min_chemistry must be in [0, 33]"}
	}
	if len(req.IncludePlayers) > SquadSize {
		return nil, &CoreError{Kind: InputShape, Message: "include_players must have at most 11 entries"}
	}
	seen := make(map[int64]bool, len(req.IncludePlayers))
	for _, id := range req.IncludePlayers {
		if seen[id] {
			return nil, &CoreError{Kind: InputShape, Message: "include_players must not contain duplicates"}
		}
		seen[id] = true
	}

	slots, err := BuildCandidateLists(ctx, cat, owned, BuildRequest{
		Positions:      req.Positions,
		OwnedOnly:      req.OwnedOnly,
		IncludePlayers: req.IncludePlayers,
		CandidateLimit: req.CandidateLimit,
		MinRating:      req.MinRating,
	})
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(req.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	solveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	s := newSearch(slots, req.Budget, req.MinChemistry, seen)
	s.run(solveCtx, req.Workers)
	elapsed := time.Since(start).Seconds()

	if s.best == nil {
		if s.timedOut {
			return nil, newTimedOutError()
		}
		return nil, newInfeasibleError()
	}

	resp := buildResponse(s.best, slots, elapsed)
	if s.timedOut {
		resp.Status = StatusFeasible
	}

	verifyLineup := make([]Player, len(resp.Lineup))
	for i, e := range resp.Lineup {
		verifyLineup[i] = e.Candidate.Player
	}
	verification := EvaluateSquadChemistry(verifyLineup)
	if verification.Total != resp.TotalChemistry {
		return nil, newVerificationMismatchError(resp.TotalChemistry, verification.Total)
	}

	return resp, nil
}

// assignment is one candidate chosen per slot, index-aligned with the
// search's slots slice.
type assignment struct {
	picks  []Candidate
	chems  []int
	cost   int64
	rating int64 // scaled ×100, per spec.md §4.3's objective
}

type search struct {
	slots        []SlotCandidates
	budget       int64
	minChemistry int
	required     map[int64]bool
	upperBound   []int64 // suffix sums of max scaled rating per slot

	mu       sync.Mutex
	best     *assignment
	timedOut bool
}

func newSearch(slots []SlotCandidates, budget int64, minChemistry int, required map[int64]bool) *search {
	s := &search{
		slots:        slots,
		budget:       budget,
		minChemistry: minChemistry,
		required:     required,
	}
	n := len(slots)
	maxPerSlot := make([]int64, n)
	for i, slot := range slots {
		var m int64
		for _, c := range slot.Candidates {
			if v := scaledScore(c.PositionRating); v > m {
				m = v
			}
		}
		maxPerSlot[i] = m
	}
	s.upperBound = make([]int64, n+1)
	for i := n - 1; i >= 0; i-- {
		s.upperBound[i] = s.upperBound[i+1] + maxPerSlot[i]
	}
	return s
}

func scaledScore(rating float64) int64 {
	return int64(math.Round(rating * 100))
}

// run drives the search, sequentially when workers <= 1, else fanning out
// across the first slot's candidates through a bounded goroutine pool
// (SPEC_FULL.md §4.3's worker pool).
func (s *search) run(ctx context.Context, workers int) {
	if workers <= 1 || len(s.slots) == 0 {
		state := newSearchState(len(s.slots), s.required)
		s.dfs(ctx, 0, state)
		if ctx.Err() != nil {
			s.mu.Lock()
			s.timedOut = true
			s.mu.Unlock()
		}
		return
	}

	poolSize := runtime.GOMAXPROCS(0)
	if workers < poolSize {
		poolSize = workers
	}
	if poolSize < 1 {
		poolSize = 1
	}

	first := s.slots[0]
	jobs := make(chan Candidate)
	var wg sync.WaitGroup
	for w := 0; w < poolSize; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range jobs {
				if ctx.Err() != nil {
					continue
				}
				state := newSearchState(len(s.slots), s.required)
				if !state.tryPlace(first, c) {
					continue
				}
				s.dfs(ctx, 1, state)
			}
		}()
	}
	for _, c := range first.Candidates {
		jobs <- c
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		s.mu.Lock()
		s.timedOut = true
		s.mu.Unlock()
	}
}

// searchState is the mutable, per-branch state threaded through dfs: the
// uniqueness occupancy sets, running cost, and the partial pick list.
// Each goroutine in the worker pool owns its own searchState; nothing here
// is shared across branches.
type searchState struct {
	usedEAID  map[int64]bool
	usedNames map[string]bool
	picks     []Candidate
	cost      int64
	rating    int64
	remaining map[int64]bool
}

func newSearchState(n int, required map[int64]bool) *searchState {
	remaining := make(map[int64]bool, len(required))
	for id := range required {
		remaining[id] = true
	}
	return &searchState{
		usedEAID:  make(map[int64]bool),
		usedNames: make(map[string]bool),
		picks:     make([]Candidate, 0, n),
		remaining: remaining,
	}
}

// tryPlace attempts to add c to slot's pick, applying C2/C3 uniqueness.
// Returns false and leaves state untouched if c conflicts.
func (st *searchState) tryPlace(slot SlotCandidates, c Candidate) bool {
	if st.usedEAID[c.EAID] {
		return false
	}
	name := c.NormalizedName()
	if name != "" && st.usedNames[name] {
		return false
	}
	st.usedEAID[c.EAID] = true
	if name != "" {
		st.usedNames[name] = true
	}
	st.picks = append(st.picks, c)
	st.cost += c.EffectivePrice
	st.rating += scaledScore(c.PositionRating)
	if st.remaining[c.EAID] {
		delete(st.remaining, c.EAID)
	}
	return true
}

func (st *searchState) undo(c Candidate, wasRemaining bool) {
	delete(st.usedEAID, c.EAID)
	name := c.NormalizedName()
	if name != "" {
		delete(st.usedNames, name)
	}
	st.picks = st.picks[:len(st.picks)-1]
	st.cost -= c.EffectivePrice
	st.rating -= scaledScore(c.PositionRating)
	if wasRemaining {
		st.remaining[c.EAID] = true
	}
}

func (s *search) dfs(ctx context.Context, slotIdx int, st *searchState) {
	if ctx.Err() != nil {
		return
	}
	if slotIdx == len(s.slots) {
		s.considerComplete(st)
		return
	}

	if st.cost > s.budget {
		return
	}
	// Counting prune: each remaining slot holds exactly one player, so
	// all still-unplaced required players must fit in the slots left.
	if len(st.remaining) > len(s.slots)-slotIdx {
		return
	}
	s.mu.Lock()
	bestRating := int64(-1)
	if s.best != nil {
		bestRating = s.best.rating
	}
	s.mu.Unlock()
	if bestRating >= 0 && st.rating+s.upperBound[slotIdx] <= bestRating {
		return
	}

	slot := s.slots[slotIdx]
	for _, c := range slot.Candidates {
		if st.cost+c.EffectivePrice > s.budget {
			continue
		}
		wasRemaining := st.remaining[c.EAID]
		if !st.tryPlace(slot, c) {
			continue
		}
		s.dfs(ctx, slotIdx+1, st)
		st.undo(c, wasRemaining)
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *search) considerComplete(st *searchState) {
	if len(st.remaining) > 0 {
		return
	}
	lineup := make([]Player, len(st.picks))
	for i, c := range st.picks {
		lineup[i] = c.Player
	}
	result := EvaluateSquadChemistry(lineup)
	if result.Total < s.minChemistry {
		return
	}

	chems := make([]int, len(st.picks))
	for i := range lineup {
		chems[i] = result.PerPlayer[i].Chemistry
	}

	candidate := &assignment{
		picks:  append([]Candidate(nil), st.picks...),
		chems:  chems,
		cost:   st.cost,
		rating: st.rating,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.best == nil || candidate.rating > s.best.rating {
		s.best = candidate
	}
}

func buildResponse(best *assignment, slots []SlotCandidates, elapsed float64) *SolveResponse {
	lineup := make([]LineupEntry, len(best.picks))
	var totalRating float64
	var ownedCount, requiredCount int
	for i, c := range best.picks {
		lineup[i] = LineupEntry{
			SlotIndex: slots[i].SlotIndex,
			Position:  slots[i].Position,
			Candidate: c,
			SlotChem:  best.chems[i],
		}
		totalRating += c.PositionRating
		if c.IsOwned {
			ownedCount++
		}
		if c.IsRequired {
			requiredCount++
		}
	}
	sort.SliceStable(lineup, func(i, j int) bool { return lineup[i].SlotIndex < lineup[j].SlotIndex })

	total := 0
	for _, v := range best.chems {
		total += v
	}

	return &SolveResponse{
		Status:           StatusOptimal,
		Lineup:           lineup,
		TotalRating:      totalRating,
		TotalCost:        best.cost,
		TotalChemistry:   total,
		OwnedCount:       ownedCount,
		RequiredCount:    requiredCount,
		SolveTimeSeconds: elapsed,
	}
}
