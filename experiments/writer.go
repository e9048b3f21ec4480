package experiments

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"nsmdp/config"

	"github.com/pkg/errors"
)

// Writer persists experiment records under a timestamped directory.
type Writer struct {
	baseDir string
}

func NewWriter(name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	baseDir := filepath.Join("results", name, timestamp)
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrap(err, "create results directory")
	}
	return &Writer{baseDir: baseDir}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteConfigs(configs []config.Planner) error {
	header := []string{"algorithm", "exploration", "discount", "horizon", "budget", "sweeps", "tolerance", "reuse", "seed", "cluster_radius"}
	rows := make([][]string, 0, len(configs))
	for _, cfg := range configs {
		rows = append(rows, []string{
			cfg.Algorithm,
			strconv.FormatFloat(cfg.Exploration, 'g', -1, 64),
			strconv.FormatFloat(cfg.Discount, 'g', -1, 64),
			strconv.Itoa(cfg.Horizon),
			strconv.Itoa(cfg.Budget),
			strconv.Itoa(cfg.Sweeps),
			strconv.FormatFloat(cfg.Tolerance, 'g', -1, 64),
			strconv.FormatBool(cfg.Reuse),
			strconv.FormatUint(cfg.Seed, 10),
			strconv.FormatFloat(cfg.ClusterRadius, 'g', -1, 64),
		})
	}
	return w.write("planner_configs.csv", header, rows)
}

func (w *Writer) WriteEpisodeRecords(records []EpisodeRecord) error {
	header := []string{"algorithm", "episode", "steps", "return", "discounted_return"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Algorithm,
			strconv.Itoa(r.Episode),
			strconv.Itoa(r.Steps),
			strconv.FormatFloat(r.Return, 'g', -1, 64),
			strconv.FormatFloat(r.Discounted, 'g', -1, 64),
		})
	}
	return w.write("episodes.csv", header, rows)
}

func (w *Writer) WriteDecisionRecords(records []DecisionRecord) error {
	header := []string{"algorithm", "episode", "step", "reward", "duration", "simulations", "sweeps", "full_rollouts", "tree_reused", "tree_size"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Algorithm,
			strconv.Itoa(r.Episode),
			strconv.Itoa(r.Step),
			strconv.FormatFloat(r.Reward, 'g', -1, 64),
			r.Duration.String(),
			strconv.Itoa(r.Simulations),
			strconv.Itoa(r.Sweeps),
			strconv.Itoa(r.FullRollouts),
			strconv.FormatBool(r.TreeReused),
			strconv.Itoa(r.TreeSize),
		})
	}
	return w.write("decisions.csv", header, rows)
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	f, err := os.Create(filepath.Join(w.baseDir, name))
	if err != nil {
		return errors.Wrapf(err, "create %s", name)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return errors.Wrapf(err, "write %s header", name)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return errors.Wrapf(err, "write %s row", name)
		}
	}
	return nil
}
