package ailink

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gsokit/gsoscope/internal/core"
)

func TestDemoClientIsDeterministic(t *testing.T) {
	for _, p := range core.AllPlatforms {
		client := NewDemoClient(p, 0)
		first, err := client.Call(context.Background(), "agence SEO Luxembourg", "seo-ia.lu")
		require.NoError(t, err)
		second, err := client.Call(context.Background(), "agence SEO Luxembourg", "seo-ia.lu")
		require.NoError(t, err)

		assert.Equal(t, *first.Position, *second.Position, p)
		assert.Equal(t, *first.Score, *second.Score, p)
		assert.Equal(t, first.Snippet, second.Snippet, p)
		assert.True(t, first.Simulated, p)
		assert.True(t, first.Success, p)
	}
}

func TestDemoPositionStaysInDistribution(t *testing.T) {
	queries := []string{"a", "b", "agence seo", "consultant ia", "référencement"}
	for _, p := range core.AllPlatforms {
		allowed := map[int]bool{}
		for _, v := range demoPositions[p] {
			allowed[v] = true
		}
		for _, q := range queries {
			pos := DemoPosition(p, "seo-ia.lu", q)
			assert.True(t, allowed[pos], "%s %q -> %d", p, q, pos)
		}
	}
}

func TestDemoResultMatchesScoreTable(t *testing.T) {
	client := NewDemoClient(core.PlatformPerplexity, 0)
	res, err := client.Call(context.Background(), "agence SEO", "seo-ia.lu")
	require.NoError(t, err)

	require.Equal(t, core.ScoreForPosition(core.PlatformPerplexity, *res.Position), *res.Score)
	if *res.Position > 0 {
		require.Equal(t, "https://seo-ia.lu", res.URL)
	} else {
		require.Empty(t, res.URL)
	}
}

func TestDemoLatencyHonorsContext(t *testing.T) {
	client := NewDemoClient(core.PlatformClaude, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Call(ctx, "q", "seo-ia.lu")
	require.Equal(t, core.ErrorTimeout, core.KindOf(err))
}

func TestDemoPositionUnknownPlatform(t *testing.T) {
	require.Zero(t, DemoPosition(core.Platform("bing"), "seo-ia.lu", "q"))
}
