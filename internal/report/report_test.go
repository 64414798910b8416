package report

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/kilter.report/internal/aggregate"
	"github.com/banshee-data/kilter.report/internal/board"
	"github.com/banshee-data/kilter.report/internal/config"
	"github.com/banshee-data/kilter.report/internal/crosstab"
	"github.com/banshee-data/kilter.report/internal/db"
	"github.com/banshee-data/kilter.report/internal/fsutil"
	"github.com/banshee-data/kilter.report/internal/holds"
	"github.com/banshee-data/kilter.report/internal/leaderboard"
	"github.com/banshee-data/kilter.report/internal/monitoring"
	"github.com/banshee-data/kilter.report/internal/render"
	"github.com/banshee-data/kilter.report/internal/timeutil"
)

func init() {
	monitoring.SetLogger(nil)
}

type fakeSource struct {
	holds      []board.Hold
	placements []board.Placement
	climbs     []aggregate.Climb
	climbStats []aggregate.Climb
	stats      []crosstab.Stat
	names      []string
	setters    []leaderboard.Entry
	videos     []leaderboard.Entry

	failStats error
}

func (f *fakeSource) SQLiteVersion(context.Context) (string, error) { return "3.test", nil }

func (f *fakeSource) LoadLayout(context.Context, int) (*board.Layout, error) {
	return board.NewLayout(f.holds, f.placements)
}

func (f *fakeSource) ListedClimbs(context.Context, int) ([]aggregate.Climb, error) {
	return f.climbs, nil
}

func (f *fakeSource) ListedClimbStats(context.Context, int) ([]aggregate.Climb, error) {
	return f.climbStats, nil
}

func (f *fakeSource) ClimbStats(context.Context) ([]crosstab.Stat, error) {
	return f.stats, f.failStats
}

func (f *fakeSource) ClimbNames(context.Context, int) ([]string, error) { return f.names, nil }

func (f *fakeSource) SetterCounts(context.Context) ([]leaderboard.Entry, error) {
	return f.setters, nil
}

func (f *fakeSource) VideoUploaderCounts(context.Context) ([]leaderboard.Entry, error) {
	return f.videos, nil
}

// threeClimbSource places holds at (20,20), (24,24) and (200,200) behind
// placements 1, 2 and 3, and lists one start, one hand and one foot climb.
func threeClimbSource() *fakeSource {
	return &fakeSource{
		holds:      []board.Hold{{ID: 101, X: 20, Y: 20}, {ID: 102, X: 24, Y: 24}, {ID: 103, X: 200, Y: 200}},
		placements: []board.Placement{{ID: 1, HoldID: 101}, {ID: 2, HoldID: 102}, {ID: 3, HoldID: 103}},
		climbs: []aggregate.Climb{
			{UUID: "A", Frames: "p0001r12"},
			{UUID: "B", Frames: "p0002r13"},
			{UUID: "C", Frames: "p0003r15"},
		},
		climbStats: []aggregate.Climb{
			{UUID: "A", Frames: "p0001r12", Difficulty: 16.7, Angle: 40, Ascents: 4},
			{UUID: "A", Frames: "p0001r12", Difficulty: 18, Angle: 45, Ascents: 2},
			{UUID: "B", Frames: "p0002r13", Difficulty: 34, Angle: 27, Ascents: 9},
		},
		stats: []crosstab.Stat{
			{ClimbUUID: "A", Angle: 40, Difficulty: 16.7, Ascents: 4},
			{ClimbUUID: "A", Angle: 45, Difficulty: 18, Ascents: 2},
			{ClimbUUID: "B", Angle: 27, Difficulty: 34, Ascents: 9},
			{ClimbUUID: "C", Angle: 30, Difficulty: math.NaN(), Ascents: 1},
		},
		names:   []string{"Moon 🌙 crimp", "crimp city", "pinch"},
		setters: []leaderboard.Entry{{Key: "alice", Count: 2}, {Key: "bob", Count: 1}},
		videos:  []leaderboard.Entry{{Key: "cam", Count: 3}},
	}
}

// recordingSink remembers every grid, bar series and table it receives.
type recordingSink struct {
	boardHeat map[string]render.Grid
	boardNums map[string]render.Grid
	heat      map[string]render.Grid
	bars      map[string]render.Bars
	tables    map[string]render.Table
	order     []string
	closed    int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		boardHeat: map[string]render.Grid{},
		boardNums: map[string]render.Grid{},
		heat:      map[string]render.Grid{},
		bars:      map[string]render.Bars{},
		tables:    map[string]render.Table{},
	}
}

func (s *recordingSink) BoardHeatmap(g render.Grid) error {
	s.boardHeat[g.Name] = g
	s.order = append(s.order, g.Name)
	return nil
}

func (s *recordingSink) BoardNumbers(g render.Grid) error {
	s.boardNums[g.Name] = g
	s.order = append(s.order, g.Name)
	return nil
}

func (s *recordingSink) Heatmap(g render.Grid) error {
	s.heat[g.Name] = g
	s.order = append(s.order, g.Name)
	return nil
}

func (s *recordingSink) Bars(b render.Bars) error {
	s.bars[b.Name] = b
	s.order = append(s.order, b.Name)
	return nil
}

func (s *recordingSink) Table(t render.Table) error {
	s.tables[t.Name] = t
	s.order = append(s.order, t.Name)
	return nil
}

func (s *recordingSink) Close() error {
	s.closed++
	return nil
}

func testConfig() *config.ReportConfig {
	cfg := config.Default()
	cfg.OutputDir = "out"
	cfg.Stratified = true
	return cfg
}

func newTestRunner(src Source, cfg *config.ReportConfig) (*Runner, *recordingSink, *fsutil.MemoryFileSystem, *monitoring.RunMetrics) {
	fsys := fsutil.NewMemoryFileSystem()
	out := render.NewOutput(fsys, cfg.OutputDir)
	metrics := monitoring.NewRunMetrics()
	out.Metrics = metrics
	sink := newRecordingSink()
	r := NewRunner(src, cfg, sink, out, metrics)
	r.Clock = timeutil.NewSteppingClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), time.Second)
	return r, sink, fsys, metrics
}

func TestRun_ThreeClimbScenario(t *testing.T) {
	r, sink, fsys, metrics := newTestRunner(threeClimbSource(), testConfig())

	sum, err := r.Run(context.Background(), "fake.sqlite3")
	require.NoError(t, err)
	assert.Equal(t, 1, sink.closed)

	assert.Equal(t, "fake.sqlite3", sum.Source)
	assert.Equal(t, "3.test", sum.SQLiteVersion)
	assert.Equal(t, 3, sum.Holds)
	assert.Equal(t, 3, sum.Placements)
	assert.Equal(t, 3, sum.ListedClimbs)
	assert.Equal(t, map[string]int{"start": 1, "hand": 1, "foot": 1, "finish": 0}, sum.HoldUses)
	assert.Equal(t, map[string]int{"start": 0, "hand": 0, "foot": 1, "finish": 0}, sum.OutOfBounds)

	start := sink.boardHeat["starts_array"].Data
	assert.Equal(t, 1.0, start.At(4, 10))
	assert.Equal(t, 1.0, mat.Sum(start))
	hand := sink.boardHeat["hands_array"].Data
	assert.Equal(t, 1.0, hand.At(5, 11))
	assert.Equal(t, 0.0, mat.Sum(sink.boardHeat["foot_array"].Data))
	assert.Equal(t, 0.0, mat.Sum(sink.boardHeat["top_array"].Data))

	pct := sink.boardHeat["starts_percent_array"]
	assert.True(t, pct.Percent)
	assert.Equal(t, 3, pct.Precision)
	assert.InDelta(t, 1.0, mat.Sum(pct.Data), 1e-12)
	assert.InDelta(t, 1.0, mat.Sum(sink.boardHeat["starts_heatmap_array"].Data), 1e-9)
	assert.Equal(t, "Total Numbers Boulders/Routes with START hold", sink.boardHeat["starts_array"].Title)

	// The out-of-grid foot hold is listed without a cell.
	foot := sink.tables["hold_summary_foot_table"]
	require.Len(t, foot.Rows, 1)
	assert.Equal(t, []string{"103", "3", "15", "-", "-", "1"}, foot.Rows[0])

	assert.Contains(t, sink.boardNums, "hold_id")
	assert.Equal(t, 101.0, sink.boardNums["hold_id"].Data.At(4, 10))
	assert.Equal(t, 2.0, sink.boardNums["placement_id"].Data.At(5, 11))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HoldUses.WithLabelValues("foot")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.OutOfBounds.WithLabelValues("foot")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.ClimbsDecoded))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RejectedStats))
	assert.Greater(t, testutil.ToFloat64(metrics.LastRunSeconds), 0.0)

	assert.True(t, fsys.Exists("out/hold_summary_starts.json"))
	assert.True(t, fsys.Exists("out/manifest.json"))

	// Passes run in a fixed order.
	pos := func(name string) int { return slices.Index(sink.order, name) }
	assert.Less(t, pos("video_uploaders_count"), pos("boulders_routes_grade_vs_angle"))
	assert.Less(t, pos("histo_ascents_angle_percent"), pos("hold_id"))
	assert.Less(t, pos("placement_id"), pos("starts_array"))
	assert.Less(t, pos("hold_summary_foot_table"), pos("strata/grade06_angle08_starts_heatmap"))
}

func TestRun_GradeAngle(t *testing.T) {
	r, sink, _, _ := newTestRunner(threeClimbSource(), testConfig())

	sum, err := r.Run(context.Background(), "fake")
	require.NoError(t, err)

	// Difficulty 34 and a missing difficulty are both rejected.
	assert.Equal(t, 4, sum.StatsRows)
	assert.Equal(t, 2, sum.StatsRejected)
	assert.Equal(t, 6, sum.TotalAscents)

	climbs := sink.heat["boulders_routes_grade_vs_angle"]
	assert.Equal(t, 1.0, climbs.Data.At(6, 8))
	assert.Equal(t, 1.0, climbs.Data.At(8, 9))
	assert.Equal(t, 2.0, mat.Sum(climbs.Data))
	assert.Equal(t, crosstab.AngleLabels[:], climbs.XTicks)
	assert.Equal(t, crosstab.GradeLabels[:], climbs.YTicks)

	share := sink.heat["ascents_grade_vs_angle_percent"]
	assert.True(t, share.Percent)
	assert.Equal(t, 2, share.Precision)
	assert.InDelta(t, 4.0/6.0, share.Data.At(6, 8), 1e-12)

	for _, name := range []string{
		"histo_boulders_routes_grade", "histo_boulders_routes_grade_percent",
		"histo_ascents_grade", "histo_ascents_grade_percent",
		"histo_boulders_routes_angle", "histo_boulders_routes_angle_percent",
		"histo_ascents_angle", "histo_ascents_angle_percent",
	} {
		assert.Contains(t, sink.bars, name)
	}
	assert.Len(t, sink.bars["histo_ascents_angle"].Values, crosstab.NumAngles)
	assert.Equal(t, "Angle", sink.bars["histo_ascents_angle"].XLabel)
	assert.Len(t, sink.bars["histo_ascents_grade"].Values, crosstab.NumGrades)
}

func TestRun_Leaderboards(t *testing.T) {
	cfg := testConfig()
	cfg.LeaderboardRows = 1
	r, sink, _, _ := newTestRunner(threeClimbSource(), cfg)

	sum, err := r.Run(context.Background(), "fake")
	require.NoError(t, err)

	words := sink.tables["boulder_name_word_count_table"]
	require.NotEmpty(t, words.Rows)
	assert.Equal(t, []string{"1", "crimp", "2", "40.00%"}, words.Rows[0])
	assert.Equal(t, []string{"crimp"}, sink.bars["boulder_name_word_count"].Labels)

	setters := sink.tables["setters_count_table"]
	assert.Equal(t, [][]string{{"1", "alice", "2", "66.67%"}, {"2", "bob", "1", "33.33%"}}, setters.Rows)
	assert.Equal(t, 3, sum.Climbs)
	assert.Equal(t, 2, sum.Setters)
	assert.Equal(t, 1, sum.Uploader)
	assert.Equal(t, 3, sum.Uploads)
	assert.Equal(t, 4, sum.Words)
	assert.Contains(t, sink.tables, "boulder_name_emoji_count_table")
}

func TestRun_Stratified(t *testing.T) {
	r, sink, fsys, _ := newTestRunner(threeClimbSource(), testConfig())

	sum, err := r.Run(context.Background(), "fake")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Strata)
	assert.Equal(t, 1, sum.StrataRejected)

	g := sink.boardHeat["strata/grade06_angle08_starts_heatmap"]
	require.NotNil(t, g.Data)
	assert.InDelta(t, 1.0, mat.Sum(g.Data), 1e-9)
	assert.Contains(t, sink.boardHeat, "strata/grade08_angle09_starts_heatmap")
	assert.NotContains(t, sink.boardHeat, "strata/grade24_angle05_hands_heatmap")

	b, err := fsys.ReadFile("out/strata.json")
	require.NoError(t, err)
	var strata []StratumSummary
	require.NoError(t, json.Unmarshal(b, &strata))
	require.Len(t, strata, 2)
	assert.Equal(t, 6, strata[0].Grade)
	assert.Equal(t, 8, strata[0].Angle)
	assert.Equal(t, 1, strata[0].Records)
	assert.Equal(t, 1, strata[0].HoldUses["start"])
}

func TestRun_StratifiedDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Stratified = false
	r, sink, fsys, _ := newTestRunner(threeClimbSource(), cfg)

	sum, err := r.Run(context.Background(), "fake")
	require.NoError(t, err)
	assert.Zero(t, sum.Strata)
	assert.False(t, fsys.Exists("out/strata.json"))
	for name := range sink.boardHeat {
		assert.NotContains(t, name, "strata/")
	}
}

func TestRun_Manifest(t *testing.T) {
	r, _, fsys, _ := newTestRunner(threeClimbSource(), testConfig())

	sum, err := r.Run(context.Background(), "fake")
	require.NoError(t, err)

	b, err := fsys.ReadFile("out/manifest.json")
	require.NoError(t, err)
	var got Summary
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Equal(t, sum.RunID, got.RunID)
	assert.Len(t, got.RunID, 36)
	assert.Equal(t, "dev", got.Build.Version)
	assert.True(t, got.FinishedAt.After(got.StartedAt))

	paths := make(map[string]string, len(got.Artifacts))
	for _, a := range got.Artifacts {
		paths[a.Path] = a.Kind
	}
	assert.Equal(t, "json", paths["hold_summary_hands.json"])
	assert.Equal(t, "json", paths["strata.json"])
	assert.Equal(t, "json", paths["manifest.json"])
}

func TestRun_DecodeErrorIsFatal(t *testing.T) {
	src := threeClimbSource()
	src.climbs = append(src.climbs, aggregate.Climb{UUID: "BROKEN", Frames: "p0001r1"})
	r, sink, fsys, _ := newTestRunner(src, testConfig())

	_, err := r.Run(context.Background(), "fake")
	var de *holds.DecodeError
	require.True(t, errors.As(err, &de), "got %v", err)
	assert.Contains(t, err.Error(), "BROKEN")
	assert.Equal(t, 1, sink.closed)
	assert.False(t, fsys.Exists("out/manifest.json"))
}

func TestRun_ReferentialErrorIsFatal(t *testing.T) {
	src := threeClimbSource()
	src.climbs = append(src.climbs, aggregate.Climb{UUID: "GHOST", Frames: "p0077r12"})
	r, _, _, _ := newTestRunner(src, testConfig())

	_, err := r.Run(context.Background(), "fake")
	var re *board.ReferentialError
	require.True(t, errors.As(err, &re), "got %v", err)
	assert.Contains(t, err.Error(), "hold usage")
}

func TestRun_SourceError(t *testing.T) {
	src := threeClimbSource()
	src.failStats = errors.New("disk gone")
	r, _, _, _ := newTestRunner(src, testConfig())

	_, err := r.Run(context.Background(), "fake")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "grade/angle")
	assert.Contains(t, err.Error(), "disk gone")
}

func TestRun_Cancelled(t *testing.T) {
	r, _, _, _ := newTestRunner(threeClimbSource(), testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, "fake")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_UnknownRoleWarning(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, monitoring.Init(monitoring.LogConfig{Level: "warn", Format: "json", Output: &buf}))
	defer monitoring.SetLogger(nil)

	src := threeClimbSource()
	src.climbs = append(src.climbs, aggregate.Climb{UUID: "ODD", Frames: "p0002r99"})
	r, _, _, _ := newTestRunner(src, testConfig())

	sum, err := r.Run(context.Background(), "fake")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.UnknownRoles)
	assert.Contains(t, buf.String(), `"climb":"ODD"`)
	assert.Contains(t, buf.String(), "climb stats row out of range")
}

func TestBuildSink(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	out := render.NewOutput(fsys, "out")

	cfg := config.Default()
	cfg.PNG, cfg.HTML, cfg.TextTables = false, false, false
	s, err := BuildSink(cfg, out)
	require.NoError(t, err)
	assert.Equal(t, render.Discard{}, s)

	cfg.TextTables = true
	s, err = BuildSink(cfg, out)
	require.NoError(t, err)
	assert.IsType(t, &render.TextSink{}, s)

	cfg.PNG, cfg.HTML = true, true
	s, err = BuildSink(cfg, out)
	require.NoError(t, err)
	assert.Len(t, s, 3)

	cfg.BoardImage = "missing.png"
	_, err = BuildSink(cfg, out)
	assert.Error(t, err)
}

func TestRun_SyntheticSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("builds a sqlite snapshot")
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "synthetic.sqlite3")
	require.NoError(t, db.CreateFixture(ctx, path, db.SyntheticFixture(7, 60)))

	snap, err := db.Open(ctx, path)
	require.NoError(t, err)
	defer snap.Close()

	cfg := testConfig()
	cfg.PNG, cfg.HTML = false, false
	fsys := fsutil.NewMemoryFileSystem()
	out := render.NewOutput(fsys, cfg.OutputDir)
	sink, err := BuildSink(cfg, out)
	require.NoError(t, err)

	sum, err := NewRunner(snap, cfg, sink, out, nil).Run(ctx, path)
	require.NoError(t, err)
	assert.Positive(t, sum.ListedClimbs)
	assert.Positive(t, sum.HoldUses["start"])
	assert.Positive(t, sum.StatsRows)
	assert.Equal(t, 0, sum.StatsRejected)

	assert.True(t, fsys.Exists("out/setters_count_table.txt"))
	assert.True(t, fsys.Exists("out/boulders_routes_grade_vs_angle.txt"))
	assert.True(t, fsys.Exists("out/hold_summary_top_table.txt"))
	assert.True(t, fsys.Exists("out/manifest.json"))
}

func TestRun_ManifestListsFlushedArtifacts(t *testing.T) {
	cfg := testConfig()
	cfg.PNG, cfg.TextTables = false, false
	fsys := fsutil.NewMemoryFileSystem()
	out := render.NewOutput(fsys, cfg.OutputDir)
	sink, err := BuildSink(cfg, out)
	require.NoError(t, err)

	sum, err := NewRunner(threeClimbSource(), cfg, sink, out, nil).Run(context.Background(), "fake")
	require.NoError(t, err)

	var kinds []string
	for _, a := range sum.Artifacts {
		if a.Path == "report.html" {
			kinds = append(kinds, a.Kind)
		}
	}
	assert.Equal(t, []string{"html"}, kinds)
	assert.True(t, fsys.Exists("out/report.html"))
}
