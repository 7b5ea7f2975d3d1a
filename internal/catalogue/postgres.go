// Package catalogue implements the Postgres-backed roster.Catalogue of
// SPEC_FULL.md §3, §4.2: the read-side shape of the player catalogue and
// owned-player set that spec.md §1 carves out as an external collaborator.
package catalogue

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/fcsquad/optimizer/internal/roster"
)

// RatingsByPosition is the JSONB column mapping position code to rating,
// following the teacher's PositionRequirements Scan/Value pattern
// (shared/types/common.go) applied to a float-valued table instead of an
// int-valued one.
type RatingsByPosition map[string]float64

func (r *RatingsByPosition) Scan(value interface{}) error {
	if value == nil {
		*r = make(RatingsByPosition)
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into RatingsByPosition", value)
	}
	var result map[string]float64
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*r = RatingsByPosition(result)
	return nil
}

func (r RatingsByPosition) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	return json.Marshal(r)
}

// PlayerRecord is the gorm model backing the players table of
// SPEC_FULL.md §3.
type PlayerRecord struct {
	EAID              int64             `gorm:"primaryKey;column:ea_id"`
	Name              string            `gorm:"column:name;index"`
	ClubID            *int64            `gorm:"column:club_id;index"`
	LeagueID          *int64            `gorm:"column:league_id;index"`
	NationID          *int64            `gorm:"column:nation_id;index"`
	MarketPrice       *int64            `gorm:"column:market_price"`
	RatingsByPosition RatingsByPosition `gorm:"column:ratings_by_position;type:jsonb"`
	IsIcon            bool              `gorm:"column:is_icon"`
	IsHero            bool              `gorm:"column:is_hero"`
}

func (PlayerRecord) TableName() string { return "players" }

// OwnedPlayerRecord is the gorm model backing the owned_players table.
type OwnedPlayerRecord struct {
	EAID int64 `gorm:"primaryKey;column:ea_id"`
}

func (OwnedPlayerRecord) TableName() string { return "owned_players" }

func (r PlayerRecord) toPlayer() roster.Player {
	ratings := make(map[roster.PositionCode]float64, len(r.RatingsByPosition))
	for pos, rating := range r.RatingsByPosition {
		ratings[roster.PositionCode(pos)] = rating
	}
	return roster.Player{
		EAID:              r.EAID,
		Name:              r.Name,
		ClubID:            r.ClubID,
		LeagueID:          r.LeagueID,
		NationID:          r.NationID,
		MarketPrice:       r.MarketPrice,
		RatingsByPosition: ratings,
		IsIcon:            r.IsIcon,
		IsHero:            r.IsHero,
	}
}

// Catalogue is the gorm/Postgres implementation of roster.Catalogue.
type Catalogue struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Catalogue {
	return &Catalogue{db: db}
}

func (c *Catalogue) PlayerByEAID(ctx context.Context, eaID int64) (roster.Player, bool, error) {
	var record PlayerRecord
	err := c.db.WithContext(ctx).First(&record, "ea_id = ?", eaID).Error
	if err == gorm.ErrRecordNotFound {
		return roster.Player{}, false, nil
	}
	if err != nil {
		return roster.Player{}, false, fmt.Errorf("catalogue: player lookup failed: %w", err)
	}
	return record.toPlayer(), true, nil
}

// CandidatesForPosition resolves "all players with a rating for position
// P, sorted descending, optionally filtered by ownership and minimum
// rating, limited to K" (spec.md §6) as a single indexed JSONB query,
// with an ea_id ascending tie-break (spec.md §4.2).
func (c *Catalogue) CandidatesForPosition(ctx context.Context, pos roster.PositionCode, opts roster.CandidateQuery) ([]roster.Player, error) {
	if !roster.ValidPositions[pos] {
		return nil, fmt.Errorf("catalogue: invalid position code %q", pos)
	}
	posStr := string(pos)

	// "??" escapes a literal "?" so gorm doesn't mistake Postgres's JSONB
	// key-exists operator for a bind placeholder.
	query := c.db.WithContext(ctx).Model(&PlayerRecord{}).
		Where("ratings_by_position ?? ?", posStr).
		Where(gorm.Expr("(ratings_by_position->>?)::float8 > 0", posStr))

	if len(opts.IncludeSet) > 0 {
		includeIDs := make([]int64, 0, len(opts.IncludeSet))
		for id := range opts.IncludeSet {
			includeIDs = append(includeIDs, id)
		}
		query = query.Where(
			"(ratings_by_position->>?)::float8 >= ? OR ea_id IN ?",
			posStr, opts.MinRating, includeIDs,
		)
	} else {
		query = query.Where(gorm.Expr("(ratings_by_position->>?)::float8 >= ?", posStr, opts.MinRating))
	}

	if opts.OwnedOnly && opts.OwnedSet != nil {
		ownedIDs := opts.OwnedSet.IDs()
		includeIDs := make([]int64, 0, len(opts.IncludeSet))
		for id := range opts.IncludeSet {
			includeIDs = append(includeIDs, id)
		}
		allowed := append(ownedIDs, includeIDs...)
		if len(allowed) == 0 {
			return nil, nil
		}
		query = query.Where("ea_id IN ?", allowed)
	}

	limit := opts.Limit
	if len(opts.IncludeSet) > 0 {
		limit += len(opts.IncludeSet)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	query = query.
		Order(gorm.Expr("(ratings_by_position->>?)::float8 DESC", posStr)).
		Order("ea_id ASC")

	var records []PlayerRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("catalogue: candidate query failed for position %s: %w", pos, err)
	}

	players := make([]roster.Player, len(records))
	for i, r := range records {
		players[i] = r.toPlayer()
	}
	return players, nil
}

// LoadOwnedSet loads the owned_players table into an in-memory roster.OwnedSet
// snapshot, per spec.md §6's "read-only input" contract.
func LoadOwnedSet(ctx context.Context, db *gorm.DB) (roster.OwnedSet, error) {
	var records []OwnedPlayerRecord
	if err := db.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("catalogue: failed to load owned players: %w", err)
	}
	ids := make([]int64, len(records))
	for i, r := range records {
		ids[i] = r.EAID
	}
	return roster.NewOwnedSet(ids), nil
}
