// Package report runs the analysis passes over a snapshot and hands their
// results to a render.Sink.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/banshee-data/kilter.report/internal/aggregate"
	"github.com/banshee-data/kilter.report/internal/board"
	"github.com/banshee-data/kilter.report/internal/config"
	"github.com/banshee-data/kilter.report/internal/crosstab"
	"github.com/banshee-data/kilter.report/internal/leaderboard"
	"github.com/banshee-data/kilter.report/internal/monitoring"
	"github.com/banshee-data/kilter.report/internal/render"
	"github.com/banshee-data/kilter.report/internal/timeutil"
	"github.com/banshee-data/kilter.report/internal/version"
)

// Source is the snapshot data the report reads. *db.DB implements it.
type Source interface {
	SQLiteVersion(ctx context.Context) (string, error)
	LoadLayout(ctx context.Context, layoutID int) (*board.Layout, error)
	ListedClimbs(ctx context.Context, layoutID int) ([]aggregate.Climb, error)
	ListedClimbStats(ctx context.Context, layoutID int) ([]aggregate.Climb, error)
	ClimbStats(ctx context.Context) ([]crosstab.Stat, error)
	ClimbNames(ctx context.Context, layoutID int) ([]string, error)
	SetterCounts(ctx context.Context) ([]leaderboard.Entry, error)
	VideoUploaderCounts(ctx context.Context) ([]leaderboard.Entry, error)
}

// Summary is written as manifest.json at the end of a run.
type Summary struct {
	RunID         string       `json:"run_id"`
	Build         version.Info `json:"build"`
	Source        string       `json:"source"`
	SQLiteVersion string       `json:"sqlite_version"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    time.Time    `json:"finished_at"`

	LayoutID   int `json:"layout_id"`
	Holds      int `json:"holds"`
	Placements int `json:"placements"`

	Words    int `json:"name_words"`
	Emojis   int `json:"name_emojis"`
	Setters  int `json:"setters"`
	Climbs   int `json:"climbs_total"`
	Uploads  int `json:"videos"`
	Uploader int `json:"video_uploaders"`

	StatsRows     int `json:"climb_stats_rows"`
	StatsRejected int `json:"climb_stats_rejected"`
	TotalAscents  int `json:"ascents_total"`

	ListedClimbs int            `json:"listed_climbs"`
	HoldUses     map[string]int `json:"hold_uses"`
	OutOfBounds  map[string]int `json:"hold_out_of_bounds"`
	UnknownRoles int            `json:"unknown_roles"`

	Strata         int `json:"strata,omitempty"`
	StrataRejected int `json:"strata_rejected,omitempty"`

	Artifacts []render.Artifact `json:"artifacts"`
}

// Runner holds the state of one report run.
type Runner struct {
	src     Source
	cfg     *config.ReportConfig
	sink    render.Sink
	out     *render.Output
	metrics *monitoring.RunMetrics

	// Clock stamps the manifest and times the passes.
	Clock timeutil.Clock

	layout  *board.Layout
	summary Summary
}

// NewRunner prepares a run. metrics may be nil.
func NewRunner(src Source, cfg *config.ReportConfig, sink render.Sink, out *render.Output, metrics *monitoring.RunMetrics) *Runner {
	return &Runner{src: src, cfg: cfg, sink: sink, out: out, metrics: metrics, Clock: timeutil.RealClock{}}
}

// Run executes every pass in order and writes the manifest. The sink is
// closed before Run returns, also on error, and before the manifest is
// written so that artifacts flushed on Close are listed. Any decode or
// referential error aborts the run.
func (r *Runner) Run(ctx context.Context, sourceName string) (sum *Summary, err error) {
	closed := false
	defer func() {
		if !closed {
			r.sink.Close()
		}
	}()

	start := r.Clock.Now()
	r.summary = Summary{
		RunID:     uuid.NewString(),
		Build:     version.Current(),
		Source:    sourceName,
		StartedAt: start.UTC(),
		LayoutID:  r.cfg.LayoutID,
	}

	if r.summary.SQLiteVersion, err = r.src.SQLiteVersion(ctx); err != nil {
		return nil, fmt.Errorf("sqlite version: %w", err)
	}
	monitoring.Logf("SQLite version: %s", r.summary.SQLiteVersion)

	if r.layout, err = r.src.LoadLayout(ctx, r.cfg.LayoutID); err != nil {
		return nil, fmt.Errorf("load layout %d: %w", r.cfg.LayoutID, err)
	}
	r.summary.Holds = r.layout.NumHolds()
	r.summary.Placements = r.layout.NumPlacements()
	monitoring.Logf("TOTAL holds found: %d", r.summary.Holds)
	monitoring.Logf("TOTAL holds placement found: %d", r.summary.Placements)

	passes := []struct {
		name string
		run  func(context.Context) error
	}{
		{"leaderboards", r.leaderboards},
		{"grade/angle", r.gradeAngle},
		{"board ids", r.boardIDs},
		{"hold usage", r.holdUsage},
	}
	if r.cfg.Stratified {
		passes = append(passes, struct {
			name string
			run  func(context.Context) error
		}{"stratified hold usage", r.stratified})
	}

	for _, p := range passes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		passStart := r.Clock.Now()
		if err := p.run(ctx); err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		monitoring.Logf("pass %s done in %s", p.name, r.Clock.Since(passStart).Round(time.Millisecond))
	}

	closed = true
	if err := r.sink.Close(); err != nil {
		return nil, fmt.Errorf("close sink: %w", err)
	}

	finish := r.Clock.Now()
	if r.metrics != nil {
		r.metrics.LastRunSeconds.Set(finish.Sub(start).Seconds())
	}
	r.summary.FinishedAt = finish.UTC()
	if err := r.writeManifest(); err != nil {
		return nil, err
	}
	out := r.summary
	return &out, nil
}

// writeManifest records the run, including the manifest itself.
func (r *Runner) writeManifest() error {
	r.summary.Artifacts = append(r.out.Artifacts(), render.Artifact{Path: manifestName, Kind: "json"})
	data, err := json.MarshalIndent(r.summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return r.out.Write(manifestName, "json", data)
}

const manifestName = "manifest.json"

func (r *Runner) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return r.out.Write(name, "json", data)
}
