package report

import (
	"fmt"
	"image"

	"github.com/banshee-data/kilter.report/internal/config"
	"github.com/banshee-data/kilter.report/internal/render"
)

// BuildSink assembles the sinks enabled in cfg. The board image, when
// configured, is read through the output filesystem.
func BuildSink(cfg *config.ReportConfig, out *render.Output) (render.Sink, error) {
	var sinks render.Multi

	if cfg.PNG {
		var photo image.Image
		if cfg.BoardImage != "" {
			img, err := render.LoadImage(out.FS(), cfg.BoardImage)
			if err != nil {
				return nil, fmt.Errorf("board image: %w", err)
			}
			photo = img
		}
		ps := render.NewPlotSink(out, photo, cfg.ImageInches)
		ps.MaxTableRows = cfg.LeaderboardRows
		sinks = append(sinks, ps)
	}
	if cfg.HTML {
		sinks = append(sinks, render.NewEChartsSink(out, "report.html", "Kilter Board report", ""))
	}
	if cfg.TextTables {
		sinks = append(sinks, render.NewTextSink(out))
	}

	switch len(sinks) {
	case 0:
		return render.Discard{}, nil
	case 1:
		return sinks[0], nil
	}
	return sinks, nil
}
