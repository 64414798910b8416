package report

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/banshee-data/kilter.report/internal/aggregate"
	"github.com/banshee-data/kilter.report/internal/board"
	"github.com/banshee-data/kilter.report/internal/crosstab"
	"github.com/banshee-data/kilter.report/internal/holds"
	"github.com/banshee-data/kilter.report/internal/leaderboard"
	"github.com/banshee-data/kilter.report/internal/monitoring"
	"github.com/banshee-data/kilter.report/internal/render"
)

// roleStems names the artifacts of each role.
var roleStems = map[holds.Role]string{
	holds.Start:  "starts",
	holds.Finish: "top",
	holds.Hand:   "hands",
	holds.Foot:   "foot",
}

// Stem returns the artifact stem of role r.
func Stem(r holds.Role) string { return roleStems[r] }

type ranking struct {
	name   string
	title  string
	column string
	board  leaderboard.Board
}

func (r *Runner) leaderboards(ctx context.Context) error {
	names, err := r.src.ClimbNames(ctx, r.cfg.LayoutID)
	if err != nil {
		return err
	}
	setters, err := r.src.SetterCounts(ctx)
	if err != nil {
		return err
	}
	videos, err := r.src.VideoUploaderCounts(ctx)
	if err != nil {
		return err
	}

	rankings := []ranking{
		{"boulder_name_word_count", "Most used words in boulder names", "word", leaderboard.Words(names)},
		{"boulder_name_emoji_count", "Most used emojis in boulder names", "emoji", leaderboard.Emojis(names)},
		{"setters_count", "Boulders/routes per setter", "setter", leaderboard.New(setters)},
		{"video_uploaders_count", "Beta videos per uploader", "uploader", leaderboard.New(videos)},
	}
	r.summary.Words = len(rankings[0].board.Entries)
	r.summary.Emojis = len(rankings[1].board.Entries)
	r.summary.Setters = len(rankings[2].board.Entries)
	r.summary.Climbs = rankings[2].board.Total
	r.summary.Uploader = len(rankings[3].board.Entries)
	r.summary.Uploads = rankings[3].board.Total

	for _, rk := range rankings {
		if err := r.ranking(rk); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) ranking(rk ranking) error {
	b := rk.board
	t := render.Table{
		Name:   rk.name + "_table",
		Title:  rk.title,
		Header: []string{"#", rk.column, "count", "percent"},
	}
	for i, e := range b.Entries {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(i + 1), e.Key, strconv.Itoa(e.Count), fmt.Sprintf("%.2f%%", b.Percent(e)),
		})
	}
	if err := r.sink.Table(t); err != nil {
		return err
	}

	top := b.Top(r.cfg.LeaderboardRows)
	bars := render.Bars{
		Name:   rk.name,
		Title:  fmt.Sprintf("%s (top %d of %d)", rk.title, len(top), len(b.Entries)),
		XLabel: rk.column,
		YLabel: "count",
	}
	for _, e := range top {
		bars.Labels = append(bars.Labels, e.Key)
		bars.Values = append(bars.Values, float64(e.Count))
	}
	if err := r.sink.Bars(bars); err != nil {
		return err
	}

	monitoring.Logf("%s: %d distinct, %d total", rk.title, len(b.Entries), b.Total)
	for i, e := range b.Top(r.cfg.ConsoleTop) {
		monitoring.Logf("%3d. %-24s %6d  %5.2f%%", i+1, e.Key, e.Count, b.Percent(e))
	}
	return nil
}

func (r *Runner) gradeAngle(ctx context.Context) error {
	stats, err := r.src.ClimbStats(ctx)
	if err != nil {
		return err
	}

	tab := crosstab.New()
	for _, s := range stats {
		if err := tab.Add(s); err != nil {
			var re *crosstab.RangeError
			if !errors.As(err, &re) {
				return err
			}
			r.rejected(err, s.ClimbUUID, s.Angle)
		}
	}
	r.summary.StatsRows = len(stats)
	r.summary.StatsRejected = tab.Rejected
	r.summary.TotalAscents = tab.TotalAscents
	monitoring.Logf("TOTAL boulders/routes at an angle: %d (%d rejected)", tab.TotalClimbs, tab.Rejected)
	monitoring.Logf("TOTAL ascents: %d", tab.TotalAscents)

	xticks := crosstab.AngleLabels[:]
	yticks := crosstab.GradeLabels[:]
	grids := []render.Grid{
		{Name: "boulders_routes_grade_vs_angle", Title: "Number of boulders/routes per grade and angle", Data: tab.Climbs()},
		{Name: "boulders_routes_grade_vs_angle_percent", Title: "Share of boulders/routes per grade and angle", Data: tab.ClimbShare(), Percent: true, Precision: 2},
		{Name: "ascents_grade_vs_angle", Title: "Number of ascents per grade and angle", Data: tab.Ascents()},
		{Name: "ascents_grade_vs_angle_percent", Title: "Share of ascents per grade and angle", Data: tab.AscentShare(), Percent: true, Precision: 2},
	}
	for _, g := range grids {
		g.Annotate = true
		g.XLabel, g.YLabel = "Angles", "Grades"
		g.XTicks, g.YTicks = xticks, yticks
		if err := r.sink.Heatmap(g); err != nil {
			return err
		}
	}

	m := tab.Marginals()
	histos := []render.Bars{
		{Name: "histo_boulders_routes_grade", Title: "Boulders/routes per grade", Labels: yticks, Values: m.ClimbsByGrade},
		{Name: "histo_boulders_routes_grade_percent", Title: "Boulders/routes per grade", Labels: yticks, Values: m.ClimbsByGradePercent, Percent: true},
		{Name: "histo_ascents_grade", Title: "Ascents per grade", Labels: yticks, Values: m.AscentsByGrade},
		{Name: "histo_ascents_grade_percent", Title: "Ascents per grade", Labels: yticks, Values: m.AscentsByGradePercent, Percent: true},
		{Name: "histo_boulders_routes_angle", Title: "Boulders/routes per angle", Labels: xticks, Values: m.ClimbsByAngle},
		{Name: "histo_boulders_routes_angle_percent", Title: "Boulders/routes per angle", Labels: xticks, Values: m.ClimbsByAnglePercent, Percent: true},
		{Name: "histo_ascents_angle", Title: "Ascents per angle", Labels: xticks, Values: m.AscentsByAngle},
		{Name: "histo_ascents_angle_percent", Title: "Ascents per angle", Labels: xticks, Values: m.AscentsByAnglePercent, Percent: true},
	}
	for _, b := range histos {
		b.XLabel = "Grade"
		if len(b.Labels) == crosstab.NumAngles {
			b.XLabel = "Angle"
		}
		b.YLabel = "Number"
		if b.Percent {
			b.YLabel = "Percent"
		}
		if err := r.sink.Bars(b); err != nil {
			return err
		}
	}
	return nil
}

// rejected logs and counts a row dropped for an out-of-range grade or angle.
func (r *Runner) rejected(err error, climb string, angle int) {
	if r.metrics != nil {
		r.metrics.RejectedStats.Inc()
	}
	monitoring.Logger().Warn().
		Err(err).
		Str("climb", climb).
		Int("angle", angle).
		Msg("climb stats row out of range")
}

func (r *Runner) boardIDs(context.Context) error {
	holdIDs, placementIDs := board.IdentityGrids(r.layout)
	if err := r.sink.BoardNumbers(render.Grid{Name: "hold_id", Title: "Holds ID", Data: holdIDs}); err != nil {
		return err
	}
	return r.sink.BoardNumbers(render.Grid{Name: "placement_id", Title: "Holds placement ID", Data: placementIDs})
}

func (r *Runner) holdUsage(ctx context.Context) error {
	climbs, err := r.src.ListedClimbs(ctx, r.cfg.LayoutID)
	if err != nil {
		return err
	}
	monitoring.Logf("TOTAL listed boulders/routes on layout %d: %d", r.cfg.LayoutID, len(climbs))

	sp := aggregate.NewSpatial(r.layout)
	sp.Metrics = r.metrics
	if err := sp.AddAll(climbs); err != nil {
		return err
	}

	r.summary.ListedClimbs = sp.Climbs
	r.summary.UnknownRoles = sp.UnknownRoles
	r.summary.HoldUses = make(map[string]int, len(holds.Roles))
	r.summary.OutOfBounds = make(map[string]int, len(holds.Roles))

	for _, role := range holds.Roles {
		stem := Stem(role)
		label := role.Label()
		r.summary.HoldUses[role.String()] = sp.Total(role)
		r.summary.OutOfBounds[role.String()] = sp.OutOfBounds(role)
		monitoring.Logf("%s holds: %d uses, %d outside the grid", label, sp.Total(role), sp.OutOfBounds(role))

		grids := []render.Grid{
			{Name: stem + "_array", Title: fmt.Sprintf("Total Numbers Boulders/Routes with %s hold", label), Data: sp.Counts(role), Annotate: true},
			{Name: stem + "_percent_array", Title: fmt.Sprintf("Percentage Numbers Boulders/Routes with %s hold", label), Data: sp.Percent(role), Annotate: true, Percent: true, Precision: 3},
			{Name: stem + "_heatmap_array", Title: fmt.Sprintf("%s hold heatmap", label), Data: sp.Smoothed(role, r.cfg.SmoothingSigma)},
		}
		for _, g := range grids {
			if err := r.sink.BoardHeatmap(g); err != nil {
				return err
			}
		}

		summary := sp.HoldSummary(role)
		if err := r.sink.Table(holdTable(stem, label, summary)); err != nil {
			return err
		}
		if err := r.writeJSON("hold_summary_"+stem+".json", summary); err != nil {
			return err
		}
	}
	return nil
}

func holdTable(stem, label string, summary []aggregate.HoldUsage) render.Table {
	t := render.Table{
		Name:   "hold_summary_" + stem + "_table",
		Title:  fmt.Sprintf("%s holds by use", label),
		Header: []string{"hold_id", "placement_id", "hold_role", "x", "y", "count"},
	}
	for _, h := range summary {
		x, y := strconv.Itoa(h.Col), strconv.Itoa(h.Row)
		if !h.InGrid {
			x, y = "-", "-"
		}
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(h.HoldID), strconv.Itoa(h.PlacementID), h.RoleCode, x, y, strconv.Itoa(h.Count),
		})
	}
	return t
}

// StratumSummary is one entry of strata.json.
type StratumSummary struct {
	Grade    int            `json:"grade"`
	Angle    int            `json:"angle"`
	Label    string         `json:"label"`
	Records  int            `json:"records"`
	HoldUses map[string]int `json:"hold_uses"`
}

func (r *Runner) stratified(ctx context.Context) error {
	records, err := r.src.ListedClimbStats(ctx, r.cfg.LayoutID)
	if err != nil {
		return err
	}

	st := aggregate.NewStratified(r.layout)
	for _, c := range records {
		if err := st.Add(c); err != nil {
			var re *crosstab.RangeError
			if !errors.As(err, &re) {
				return err
			}
			r.rejected(err, c.UUID, c.Angle)
		}
	}
	strata := st.Strata()
	r.summary.Strata = len(strata)
	r.summary.StrataRejected = st.Rejected
	monitoring.Logf("stratified %d records into %d strata (%d rejected)", len(records), len(strata), st.Rejected)

	out := make([]StratumSummary, 0, len(strata))
	for _, key := range strata {
		sp := st.Get(key)
		ss := StratumSummary{
			Grade:    key.Grade,
			Angle:    key.Angle,
			Label:    key.Label(),
			Records:  sp.Climbs,
			HoldUses: make(map[string]int, len(holds.Roles)),
		}
		for _, role := range holds.Roles {
			ss.HoldUses[role.String()] = sp.Total(role)
			g := render.Grid{
				Name:  fmt.Sprintf("strata/grade%02d_angle%02d_%s_heatmap", key.Grade, key.Angle, Stem(role)),
				Title: fmt.Sprintf("%s hold heatmap, %s", role.Label(), key.Label()),
				Data:  sp.Smoothed(role, r.cfg.SmoothingSigma),
			}
			if err := r.sink.BoardHeatmap(g); err != nil {
				return err
			}
		}
		out = append(out, ss)
	}
	return r.writeJSON("strata.json", out)
}
