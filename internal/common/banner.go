package common

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application banner and the effective run settings
func PrintBanner(config *Config, logger arbor.ILogger) {
	banner.Print("TodayVN", GetVersion())

	logger.Info().
		Str("version", GetFullVersion()).
		Str("timezone", config.App.Timezone).
		Str("data_dir", config.Storage.DataDir).
		Str("llm_provider", string(config.LLM.DefaultProvider)).
		Int("outlets", len(config.Sources.Outlets)).
		Bool("upload_enabled", config.Pipeline.UploadEnabled).
		Msg("TodayVN starting")
}
