package db

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/banshee-data/kilter.report/internal/aggregate"
	"github.com/banshee-data/kilter.report/internal/board"
	"github.com/banshee-data/kilter.report/internal/crosstab"
	"github.com/banshee-data/kilter.report/internal/leaderboard"
)

// HoldCatalog returns every physical hold position.
func (db *DB) HoldCatalog(ctx context.Context) ([]board.Hold, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, x, y FROM holes`)
	if err != nil {
		return nil, fmt.Errorf("query holes: %w", err)
	}
	defer rows.Close()

	var out []board.Hold
	for rows.Next() {
		var h board.Hold
		if err := rows.Scan(&h.ID, &h.X, &h.Y); err != nil {
			return nil, fmt.Errorf("scan hole: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Placements returns the placements of one layout.
func (db *DB) Placements(ctx context.Context, layoutID int) ([]board.Placement, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, hole_id FROM placements WHERE layout_id = ?`, layoutID)
	if err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}
	defer rows.Close()

	var out []board.Placement
	for rows.Next() {
		var p board.Placement
		if err := rows.Scan(&p.ID, &p.HoldID); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadLayout reads the hold catalog and one layout's placements and indexes
// them for placement resolution.
func (db *DB) LoadLayout(ctx context.Context, layoutID int) (*board.Layout, error) {
	catalog, err := db.HoldCatalog(ctx)
	if err != nil {
		return nil, err
	}
	placements, err := db.Placements(ctx, layoutID)
	if err != nil {
		return nil, err
	}
	return board.NewLayout(catalog, placements)
}

// ListedClimbs returns the published climbs of a layout, one record per
// climb. Grade, angle and ascent fields are left zero.
func (db *DB) ListedClimbs(ctx context.Context, layoutID int) ([]aggregate.Climb, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT uuid, frames FROM climbs WHERE layout_id = ? AND is_listed = 1 ORDER BY uuid`, layoutID)
	if err != nil {
		return nil, fmt.Errorf("query climbs: %w", err)
	}
	defer rows.Close()

	var out []aggregate.Climb
	for rows.Next() {
		var (
			c      aggregate.Climb
			frames sql.NullString
		)
		if err := rows.Scan(&c.UUID, &frames); err != nil {
			return nil, fmt.Errorf("scan climb: %w", err)
		}
		c.Frames = frames.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListedClimbStats returns the published climbs of a layout joined with
// their per-angle statistics: one record per (climb, angle).
func (db *DB) ListedClimbStats(ctx context.Context, layoutID int) ([]aggregate.Climb, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.uuid, c.frames, s.display_difficulty, s.angle, s.ascensionist_count
		FROM climbs c
		JOIN climb_stats s ON s.climb_uuid = c.uuid
		WHERE c.layout_id = ? AND c.is_listed = 1
		ORDER BY c.uuid, s.angle`, layoutID)
	if err != nil {
		return nil, fmt.Errorf("query climb stats: %w", err)
	}
	defer rows.Close()

	var out []aggregate.Climb
	for rows.Next() {
		var (
			c          aggregate.Climb
			frames     sql.NullString
			difficulty sql.NullFloat64
			ascents    sql.NullInt64
		)
		if err := rows.Scan(&c.UUID, &frames, &difficulty, &c.Angle, &ascents); err != nil {
			return nil, fmt.Errorf("scan climb stats: %w", err)
		}
		c.Frames = frames.String
		c.Difficulty = math.NaN()
		if difficulty.Valid {
			c.Difficulty = difficulty.Float64
		}
		c.Ascents = int(ascents.Int64)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ClimbStats returns every climb_stats row, across all layouts.
func (db *DB) ClimbStats(ctx context.Context) ([]crosstab.Stat, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT climb_uuid, angle, display_difficulty, ascensionist_count FROM climb_stats`)
	if err != nil {
		return nil, fmt.Errorf("query climb_stats: %w", err)
	}
	defer rows.Close()

	var out []crosstab.Stat
	for rows.Next() {
		var (
			s          crosstab.Stat
			difficulty sql.NullFloat64
			ascents    sql.NullInt64
		)
		if err := rows.Scan(&s.ClimbUUID, &s.Angle, &difficulty, &ascents); err != nil {
			return nil, fmt.Errorf("scan climb_stats: %w", err)
		}
		// A missing difficulty is NaN so the tabulator rejects it instead
		// of filing it under grade -10.
		s.Difficulty = math.NaN()
		if difficulty.Valid {
			s.Difficulty = difficulty.Float64
		}
		s.Ascents = int(ascents.Int64)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ClimbNames returns the names of every climb of a layout.
func (db *DB) ClimbNames(ctx context.Context, layoutID int) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM climbs WHERE layout_id = ?`, layoutID)
	if err != nil {
		return nil, fmt.Errorf("query climb names: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name sql.NullString
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan climb name: %w", err)
		}
		out = append(out, name.String)
	}
	return out, rows.Err()
}

// SetterCounts returns the number of climbs per setter.
func (db *DB) SetterCounts(ctx context.Context) ([]leaderboard.Entry, error) {
	return db.countBy(ctx, `SELECT setter_username, COUNT(*) FROM climbs GROUP BY setter_username`)
}

// VideoUploaderCounts returns the number of beta videos per uploader.
func (db *DB) VideoUploaderCounts(ctx context.Context) ([]leaderboard.Entry, error) {
	return db.countBy(ctx, `SELECT foreign_username, COUNT(*) FROM beta_links GROUP BY foreign_username`)
}

func (db *DB) countBy(ctx context.Context, query string) ([]leaderboard.Entry, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query counts: %w", err)
	}
	defer rows.Close()

	var out []leaderboard.Entry
	for rows.Next() {
		var (
			name sql.NullString
			e    leaderboard.Entry
		)
		if err := rows.Scan(&name, &e.Count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		e.Key = name.String
		out = append(out, e)
	}
	return out, rows.Err()
}
