package db

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/kilter.report/internal/board"
	"github.com/banshee-data/kilter.report/internal/crosstab"
)

// Fixture is the content of a synthetic snapshot.
type Fixture struct {
	Holds      []board.Hold
	Placements []FixturePlacement
	Climbs     []FixtureClimb
	Stats      []crosstab.Stat
	BetaLinks  []FixtureBetaLink
}

// FixturePlacement is a placement row with its layout.
type FixturePlacement struct {
	ID       int
	LayoutID int
	HoldID   int
}

// FixtureClimb is a climbs row.
type FixtureClimb struct {
	UUID     string
	LayoutID int
	Name     string
	Setter   string
	Frames   string
	Listed   bool
}

// FixtureBetaLink is a beta_links row.
type FixtureBetaLink struct {
	ClimbUUID string
	Link      string
	Username  string
}

// CreateFixture writes f into a new snapshot database at path. The file
// must not exist yet.
func CreateFixture(ctx context.Context, path string, f *Fixture) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("refusing to overwrite existing file %s", path)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	sqlDB.SetMaxOpenConns(1)

	db := &DB{sqlDB}
	if err := db.MigrateUp(); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	layouts := map[int]bool{}
	for _, p := range f.Placements {
		layouts[p.LayoutID] = true
	}
	for _, c := range f.Climbs {
		layouts[c.LayoutID] = true
	}
	for id := range layouts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO layouts (id, product_id, name) VALUES (?, 1, ?)`, id, fmt.Sprintf("Layout %d", id)); err != nil {
			return fmt.Errorf("insert layout: %w", err)
		}
	}

	for _, h := range f.Holds {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO holes (id, product_id, name, x, y) VALUES (?, 1, ?, ?, ?)`,
			h.ID, fmt.Sprintf("%d,%d", h.X, h.Y), h.X, h.Y); err != nil {
			return fmt.Errorf("insert hole %d: %w", h.ID, err)
		}
	}
	for _, p := range f.Placements {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO placements (id, layout_id, hole_id, set_id) VALUES (?, ?, ?, 1)`,
			p.ID, p.LayoutID, p.HoldID); err != nil {
			return fmt.Errorf("insert placement %d: %w", p.ID, err)
		}
	}
	for _, c := range f.Climbs {
		listed := 0
		if c.Listed {
			listed = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO climbs (uuid, layout_id, setter_username, name, frames, is_listed) VALUES (?, ?, ?, ?, ?, ?)`,
			c.UUID, c.LayoutID, c.Setter, c.Name, c.Frames, listed); err != nil {
			return fmt.Errorf("insert climb %s: %w", c.UUID, err)
		}
	}
	for _, s := range f.Stats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO climb_stats (climb_uuid, angle, display_difficulty, ascensionist_count) VALUES (?, ?, ?, ?)`,
			s.ClimbUUID, s.Angle, s.Difficulty, s.Ascents); err != nil {
			return fmt.Errorf("insert climb_stats %s@%d: %w", s.ClimbUUID, s.Angle, err)
		}
	}
	for _, b := range f.BetaLinks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO beta_links (climb_uuid, link, foreign_username, is_listed) VALUES (?, ?, ?, 1)`,
			b.ClimbUUID, b.Link, b.Username); err != nil {
			return fmt.Errorf("insert beta link: %w", err)
		}
	}

	return tx.Commit()
}

var (
	fixtureWords   = []string{"crimp", "dyno", "pinch", "sloper", "the", "of", "moon", "kilter", "project", "jug", "heel", "toe", "sends", "little", "big"}
	fixtureEmoji   = []string{"🔥", "💪", "🧗", "🌙"}
	fixtureSetters = []string{"jwebxl", "alice", "bob", "setter_ted", "kilterboard"}
	fixtureUsers   = []string{"beta_queen", "bob", "climbcam", "alice"}
	startCodes     = []string{"12", "12", "12", "20", "24", "42"}
)

// SyntheticFixture generates a deterministic snapshot for layout 1 with
// the given number of climbs. The hole pattern covers the plotted board and
// adds a short extension row above it, so some holds fall outside the grid.
func SyntheticFixture(seed int64, climbs int) *Fixture {
	rng := rand.New(rand.NewSource(seed))
	f := &Fixture{}

	holdID := 1
	for y := 4; y <= 168; y += 8 {
		for x := -16; x <= 160; x += 8 {
			f.Holds = append(f.Holds, board.Hold{ID: holdID, X: x, Y: y})
			f.Placements = append(f.Placements, FixturePlacement{ID: 1000 + holdID, LayoutID: 1, HoldID: holdID})
			holdID++
		}
	}
	// A second layout sharing the catalog.
	for i := 1; i <= 20; i++ {
		f.Placements = append(f.Placements, FixturePlacement{ID: 5000 + i, LayoutID: 2, HoldID: i})
	}

	layoutPlacements := len(f.Holds)
	for i := 0; i < climbs; i++ {
		id, _ := uuid.NewRandomFromReader(rng)
		climbUUID := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))

		var frames strings.Builder
		pick := func(code string) {
			fmt.Fprintf(&frames, "p%04dr%s", 1001+rng.Intn(layoutPlacements), code)
		}
		pick(startCodes[rng.Intn(len(startCodes))])
		if rng.Intn(2) == 0 {
			pick("12")
		}
		for n := 2 + rng.Intn(6); n > 0; n-- {
			pick("13")
		}
		for n := rng.Intn(4); n > 0; n-- {
			pick("15")
		}
		if rng.Intn(10) == 0 {
			fmt.Fprintf(&frames, "x%04d", rng.Intn(10000))
		}
		pick("14")

		nameWords := make([]string, 1+rng.Intn(3))
		for w := range nameWords {
			nameWords[w] = fixtureWords[rng.Intn(len(fixtureWords))]
		}
		name := strings.Join(nameWords, " ")
		if rng.Intn(5) == 0 {
			name += " " + fixtureEmoji[rng.Intn(len(fixtureEmoji))]
		}

		f.Climbs = append(f.Climbs, FixtureClimb{
			UUID:     climbUUID,
			LayoutID: 1,
			Name:     name,
			Setter:   fixtureSetters[rng.Intn(len(fixtureSetters))],
			Frames:   frames.String(),
			Listed:   rng.Intn(10) != 0,
		})

		angles := rng.Perm(11)[:1+rng.Intn(3)]
		for _, a := range angles {
			f.Stats = append(f.Stats, crosstab.Stat{
				ClimbUUID:  climbUUID,
				Angle:      20 + 5*a,
				Difficulty: 10 + rng.Float64()*23.9,
				Ascents:    rng.Intn(500),
			})
		}

		if rng.Intn(3) == 0 {
			f.BetaLinks = append(f.BetaLinks, FixtureBetaLink{
				ClimbUUID: climbUUID,
				Link:      fmt.Sprintf("https://www.instagram.com/p/%s/", climbUUID[:11]),
				Username:  fixtureUsers[rng.Intn(len(fixtureUsers))],
			})
		}
	}
	return f
}
