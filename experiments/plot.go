package experiments

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/pkg/errors"
)

// Plot renders per-episode returns as one line per algorithm into an HTML
// page next to the CSV output.
func Plot(dir string, records []EpisodeRecord) error {
	series := map[string][]float64{}
	maxEpisodes := 0
	for _, r := range records {
		series[r.Algorithm] = append(series[r.Algorithm], r.Return)
		if len(series[r.Algorithm]) > maxEpisodes {
			maxEpisodes = len(series[r.Algorithm])
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Episode return by planner",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)

	var episodes []string
	for i := 0; i < maxEpisodes; i++ {
		episodes = append(episodes, strconv.Itoa(i))
	}
	algorithms := make([]string, 0, len(series))
	for algorithm := range series {
		algorithms = append(algorithms, algorithm)
	}
	sort.Strings(algorithms)

	line = line.SetXAxis(episodes)
	for _, algorithm := range algorithms {
		items := make([]opts.LineData, 0, len(series[algorithm]))
		for _, ret := range series[algorithm] {
			items = append(items, opts.LineData{Value: ret})
		}
		line.AddSeries(algorithm, items)
	}

	page := components.NewPage()
	page.AddCharts(line)

	f, err := os.Create(filepath.Join(dir, "returns.html"))
	if err != nil {
		return errors.Wrap(err, "create plot file")
	}
	defer f.Close()
	return errors.Wrap(page.Render(f), "render plot")
}
