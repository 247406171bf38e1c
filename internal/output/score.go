package output

import (
	"math"

	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
)

// Weights is the report weight of each platform.
type Weights map[core.Platform]float64

// WeightsFromConfig reads platform weights from cfg.
func WeightsFromConfig(cfg *config.Config) Weights {
	w := make(Weights, len(core.AllPlatforms))
	for _, p := range core.AllPlatforms {
		if pc, ok := cfg.Platform(p); ok {
			w[p] = pc.Weight
		}
	}
	return w
}

// GlobalScore is the weighted mean across platforms of each platform's best
// score over results. Every platform that appears in results counts toward
// the denominator, so a failing platform pulls the score down. The value is
// rounded to two decimals.
func GlobalScore(results []*core.AggregateResult, weights Weights) float64 {
	best := make(map[core.Platform]float64)
	seen := make(map[core.Platform]bool)
	for _, agg := range results {
		if agg == nil {
			continue
		}
		for _, res := range agg.Platforms {
			seen[res.Platform] = true
			if res.Success && res.Score != nil && *res.Score > best[res.Platform] {
				best[res.Platform] = *res.Score
			}
		}
	}

	var sum, total float64
	for _, p := range core.AllPlatforms {
		if !seen[p] {
			continue
		}
		w := weights[p]
		sum += w * best[p]
		total += w
	}
	if total == 0 {
		return 0
	}
	return round2(sum / total)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
