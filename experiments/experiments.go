// Package experiments runs planners against the built-in models, records
// per-decision search metrics and per-episode returns, and writes them out
// as CSV files and reward plots.
package experiments

import (
	"context"

	"nsmdp/config"
	"nsmdp/mdp"
	"nsmdp/searcher"
	"nsmdp/searcher/metrics"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type EpisodeRecord struct {
	Algorithm  string
	Episode    int
	Steps      int
	Return     float64
	Discounted float64
}

type DecisionRecord struct {
	Algorithm string
	Episode   int
	Step      int
	Reward    float64
	metrics.SearchMetric
}

// NewPlanner builds the planner named by the configuration. The clustered
// variant requires a model with a state metric.
func NewPlanner(cfg config.Planner, model mdp.Model, collector metrics.Collector) (searcher.Planner, error) {
	options := append(cfg.Options(), searcher.WithMetrics(collector))
	switch cfg.Algorithm {
	case config.AlgorithmMC:
		return searcher.NewMC(model, options...), nil
	case config.AlgorithmUCT:
		return searcher.NewUCT(model, options...), nil
	case config.AlgorithmOLUCT:
		dist, ok := model.(mdp.DistanceModel)
		if !ok {
			return nil, errors.Errorf("model %T has no state metric, required by %s", model, cfg.Algorithm)
		}
		return searcher.NewOLUCT(dist, options...), nil
	case config.AlgorithmADP:
		return searcher.NewADP(model, options...), nil
	default:
		return nil, errors.Errorf("unknown algorithm %q", cfg.Algorithm)
	}
}

// RunEpisodes plays the configured planner against the model for a number of
// episodes, starting each from start at step 0.
func RunEpisodes(ctx context.Context, cfg config.Planner, model mdp.Model, start mdp.State, episodes int) ([]EpisodeRecord, []DecisionRecord, error) {
	var episodeRecords []EpisodeRecord
	var decisionRecords []DecisionRecord

	for episode := 0; episode < episodes; episode++ {
		collector := metrics.NewCollector()
		planner, err := NewPlanner(cfg, model, collector)
		if err != nil {
			return nil, nil, err
		}

		record := EpisodeRecord{Algorithm: cfg.Algorithm, Episode: episode}
		state, t, discount := start, 0, 1.0
		for !model.IsTerminal(state, t) {
			action, err := planner.Plan(ctx, state, t)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "%s episode %d step %d", cfg.Algorithm, episode, t)
			}
			step, err := model.Step(state, t, action)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "%s episode %d step %d", cfg.Algorithm, episode, t)
			}
			planner.Advance(action, step.State, t+1)

			record.Return += step.Reward
			record.Discounted += discount * step.Reward
			discount *= cfg.Discount
			decisionRecords = append(decisionRecords, DecisionRecord{
				Algorithm:    cfg.Algorithm,
				Episode:      episode,
				Step:         t,
				Reward:       step.Reward,
				SearchMetric: collector.Complete(),
			})

			state, t = step.State, t+1
			record.Steps = t
		}

		log.Info().
			Str("algorithm", cfg.Algorithm).
			Int("episode", episode).
			Int("steps", record.Steps).
			Float64("return", record.Return).
			Msg("episode finished")
		episodeRecords = append(episodeRecords, record)
	}
	return episodeRecords, decisionRecords, nil
}
