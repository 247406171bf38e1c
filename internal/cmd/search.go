package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gsokit/gsoscope/internal/ailink"
	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/core/engine"
	"github.com/gsokit/gsoscope/internal/metrics"
	"github.com/gsokit/gsoscope/internal/observability"
	"github.com/gsokit/gsoscope/internal/output"
)

var searchCmd = &cobra.Command{
	Use:   "search <domain>",
	Short: "Measure how each platform cites a domain",
	Long: `Send each query to every enabled platform concurrently and report the
position at which the domain is cited in each answer.

Examples:
  gsoscope search seo-ia.lu -q "agence seo luxembourg"
  gsoscope search seo-ia.lu --queries-file queries.txt --output markdown
  gsoscope search seo-ia.lu -q "best geo agency" --platforms chatgpt,claude --demo`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringArrayP("query", "q", nil, "Query to send (repeatable)")
	searchCmd.Flags().String("queries-file", "", "File with one query per line (- for stdin)")
	searchCmd.Flags().Duration("timeout", 0, "Deadline per query across all platforms (defaults to search.timeout)")
	searchCmd.Flags().Bool("demo", false, "Use deterministic demo responses instead of live APIs")
	searchCmd.Flags().StringSlice("platforms", nil, "Restrict to these platforms (chatgpt, perplexity, google_ai, claude)")
	searchCmd.Flags().StringP("output", "o", "table", "Output format: table, json, markdown, yaml")
	searchCmd.Flags().String("out", "", "Write output to file instead of stdout")
}

func runSearch(cmd *cobra.Command, args []string) (err error) {
	defer func() { metrics.RecordCommand("search", err == nil) }()

	domain := strings.TrimSpace(args[0])

	flagQueries, err := cmd.Flags().GetStringArray("query")
	if err != nil {
		return err
	}
	queriesFile, err := cmd.Flags().GetString("queries-file")
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return err
	}
	if timeout < 0 {
		return fmt.Errorf("%w: --timeout must not be negative", core.ErrInvalidRequest)
	}
	demo, err := cmd.Flags().GetBool("demo")
	if err != nil {
		return err
	}
	platformNames, err := cmd.Flags().GetStringSlice("platforms")
	if err != nil {
		return err
	}
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return err
	}
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}

	queries, err := resolveQueries(flagQueries, queriesFile)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg, err = applySearchOverrides(cfg, demo, platformNames)
	if err != nil {
		return err
	}

	reqs := make([]core.QueryRequest, 0, len(queries))
	for _, q := range queries {
		reqs = append(reqs, core.QueryRequest{Domain: domain, Query: q, Timeout: timeout})
	}

	mgr, set, err := buildSearchManager(cfg)
	if err != nil {
		return err
	}

	log := observability.CLILogger
	log.Debug("Starting search",
		zap.String("domain", domain),
		zap.Int("queries", len(reqs)),
		zap.String("mode", string(set.Mode)),
		zap.Int("platforms", len(mgr.Platforms)))

	started := time.Now()
	results, err := mgr.SearchBatch(cmd.Context(), reqs)
	if err != nil {
		return err
	}
	log.Debug("Search complete", zap.Duration("elapsed", time.Since(started)))

	rendered, err := output.FormatSearch(format, output.WeightsFromConfig(cfg), results)
	if err != nil {
		return err
	}

	sink, err := openSink(outPath, format)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	if err := sink.write(rendered); err != nil {
		return err
	}
	if sink.path != "-" {
		log.Info("Report written", zap.String("path", sink.path))
	}
	return nil
}

// applySearchOverrides layers --demo and --platforms over cfg.
func applySearchOverrides(cfg *config.Config, demo bool, platformNames []string) (*config.Config, error) {
	if demo {
		clone := *cfg
		clone.Search.DemoMode = true
		cfg = &clone
	}

	if len(platformNames) == 0 {
		return cfg, nil
	}
	keep := make([]core.Platform, 0, len(platformNames))
	for _, name := range platformNames {
		p, err := core.ParsePlatform(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
		}
		keep = append(keep, p)
	}
	cfg = cfg.OnlyPlatforms(keep)
	if len(cfg.EnabledPlatforms()) == 0 {
		return nil, fmt.Errorf("%w: none of %s is enabled", core.ErrInvalidRequest, strings.Join(platformNames, ", "))
	}
	return cfg, nil
}

func buildSearchManager(cfg *config.Config) (*engine.SearchManager, *ailink.ClientSet, error) {
	set, err := ailink.NewClients(cfg, ailink.Options{
		Tracer: tracer,
		Logger: observability.Logger(),
	})
	if err != nil {
		return nil, nil, err
	}
	mgr, err := engine.NewSearchManager(cfg, set.Clients)
	if err != nil {
		return nil, nil, err
	}
	mgr.Logger = observability.Logger()
	return mgr, set, nil
}
