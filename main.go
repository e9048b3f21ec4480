package main

import (
	"context"
	"os"

	"nsmdp/config"
	"nsmdp/experiments"
	"nsmdp/mdp"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	episodes = 10
	seed     = 42
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := runComparison(); err != nil {
		log.Fatal().Err(err).Msg("experiment failed")
	}
}

// runComparison plays each planner on a noisy non-stationary chain whose
// best branch only pays off late, and writes returns, search metrics and a
// reward plot.
func runComparison() error {
	model := mdp.NewNoisyChain(mdp.Chain{
		NumActions: 3,
		Horizon:    8,
		Reward: func(branch, t int) float64 {
			switch branch {
			case 0:
				return 1
			case 1:
				if t >= 5 {
					return 4
				}
				return 0
			default:
				return 0.5
			}
		},
	}, 0.05, seed)

	base := config.Default()
	base.Horizon = 8
	base.Budget = 400
	base.Reuse = true
	base.Seed = seed

	configs := make([]config.Planner, 0, 4)
	for _, algorithm := range []string{config.AlgorithmMC, config.AlgorithmUCT, config.AlgorithmOLUCT, config.AlgorithmADP} {
		cfg := base
		cfg.Algorithm = algorithm
		if algorithm == config.AlgorithmOLUCT {
			cfg.ClusterRadius = 0.2
		}
		configs = append(configs, cfg)
	}

	writer, err := experiments.NewWriter("comparison")
	if err != nil {
		return err
	}
	if err := writer.WriteConfigs(configs); err != nil {
		return err
	}

	var episodeRecords []experiments.EpisodeRecord
	var decisionRecords []experiments.DecisionRecord
	for _, cfg := range configs {
		log.Info().Str("algorithm", cfg.Algorithm).Msg("running planner")
		eps, decs, err := experiments.RunEpisodes(context.Background(), cfg, model, mdp.Start(), episodes)
		if err != nil {
			return err
		}
		episodeRecords = append(episodeRecords, eps...)
		decisionRecords = append(decisionRecords, decs...)
	}

	if err := writer.WriteEpisodeRecords(episodeRecords); err != nil {
		return err
	}
	if err := writer.WriteDecisionRecords(decisionRecords); err != nil {
		return err
	}
	if err := experiments.Plot(writer.Dir(), episodeRecords); err != nil {
		return err
	}
	log.Info().Str("dir", writer.Dir()).Msg("experiment complete")
	return nil
}
