package cmd

import (
	"fmt"
	"runtime"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gsokit/gsoscope/internal/ailink"
	"github.com/gsokit/gsoscope/internal/ailink/prompt"
	"github.com/gsokit/gsoscope/internal/appid"
	"github.com/gsokit/gsoscope/internal/config"
	"github.com/gsokit/gsoscope/internal/core"
	"github.com/gsokit/gsoscope/internal/observability"
)

// doctorReport collects check outcomes; warnings do not fail the run.
type doctorReport struct {
	failed   int
	warnings int
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check configuration, platform credentials, and prompt templates, and report which mode searches will run in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := observability.CLILogger
		identity := appid.Get()
		report := &doctorReport{}

		log.Info("=== " + identity.BinaryName + " doctor ===")

		goVersion := runtime.Version()
		log.Info(fmt.Sprintf("Go runtime... ✅ %s %s/%s", goVersion, runtime.GOOS, runtime.GOARCH),
			zap.String("go_version", goVersion))

		version := crucible.GetVersion()
		log.Info(fmt.Sprintf("Gofulmen... ✅ v%s (crucible v%s)", version.Gofulmen, version.Crucible))

		if used := viper.ConfigFileUsed(); used != "" {
			log.Info("Config file... ✅ "+used, zap.String("config_file", used))
		} else if dir := gfconfig.GetAppConfigDir(identity.ConfigName); dir != "" {
			log.Info("Config file... ⚠️  none found, using defaults (searched " + dir + ")")
			report.warnings++
		} else {
			log.Warn("Config file... ⚠️  cannot resolve config directory")
			report.warnings++
		}

		cfg, err := loadConfig()
		if err != nil {
			log.Error("Config validation... ❌", zap.Error(err))
			report.failed++
			return report.result()
		}
		log.Info("Config validation... ✅")

		for _, p := range core.AllPlatforms {
			pc, _ := cfg.Platform(p)
			switch {
			case !pc.Enabled:
				log.Info(fmt.Sprintf("Platform %s... disabled", p.DisplayName()))
			case pc.HasCredentials():
				log.Info(fmt.Sprintf("Platform %s... ✅ key set (%s)", p.DisplayName(), pc.Model))
			default:
				log.Warn(fmt.Sprintf("Platform %s... ⚠️  no key, set %s", p.DisplayName(), pc.APIKeyEnv))
				report.warnings++
			}
		}

		report.checkPrompts(cfg)

		mode := ailink.SelectMode(cfg)
		switch mode {
		case ailink.ModeReal:
			log.Info("Search mode... ✅ live platform APIs")
		case ailink.ModeDemo:
			log.Info("Search mode... demo (search.demo_mode is set)")
		default:
			log.Warn("Search mode... ⚠️  degraded: no credentials, demo responses only")
			report.warnings++
		}

		return report.result()
	},
}

func (r *doctorReport) checkPrompts(cfg *config.Config) {
	log := observability.CLILogger
	reg, err := prompt.DefaultRegistry(cfg.Search.PromptsDir)
	if err != nil {
		log.Error("Prompt templates... ❌", zap.String("prompts_dir", cfg.Search.PromptsDir), zap.Error(err))
		r.failed++
		return
	}
	for _, p := range cfg.EnabledPlatforms() {
		if _, err := reg.Get(string(p)); err != nil {
			log.Error(fmt.Sprintf("Prompt template for %s... ❌", p.DisplayName()), zap.Error(err))
			r.failed++
			return
		}
	}
	log.Info("Prompt templates... ✅")
}

func (r *doctorReport) result() error {
	log := observability.CLILogger
	switch {
	case r.failed > 0:
		return fmt.Errorf("doctor: %d check(s) failed", r.failed)
	case r.warnings > 0:
		log.Info(fmt.Sprintf("Done with %d warning(s)", r.warnings))
	default:
		log.Info("All checks passed")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
