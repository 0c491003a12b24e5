package config

import (
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "LOGMIND"

// Override keys. Each is read from a bound flag first, then from
// LOGMIND_<KEY> in the environment.
const (
	KeyModelType   = "model_type"
	KeyModel       = "model"
	KeyBaseURL     = "base_url"
	KeyAPIKey      = "api_key"
	KeyTemperature = "temperature"
	KeyMaxTokens   = "max_tokens"
)

// NewViper returns a viper instance reading LOGMIND_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides copies per-run overrides from v into cfg. The file on disk is
// not touched. The backend override is applied first so that model, base_url
// and api_key land on the selected backend.
func ApplyOverrides(cfg *Config, v *viper.Viper) {
	if v.IsSet(KeyModelType) {
		cfg.AIConfig.ModelType = v.GetString(KeyModelType)
	}

	b := cfg.ActiveBackend()
	if v.IsSet(KeyModel) {
		b.ModelName = v.GetString(KeyModel)
	}
	if v.IsSet(KeyBaseURL) {
		b.BaseURL = v.GetString(KeyBaseURL)
	}
	if v.IsSet(KeyAPIKey) {
		b.APIKey = v.GetString(KeyAPIKey)
	}

	if v.IsSet(KeyTemperature) {
		cfg.AIConfig.AnalysisParams.Temperature = v.GetFloat64(KeyTemperature)
	}
	if v.IsSet(KeyMaxTokens) {
		cfg.AIConfig.AnalysisParams.MaxTokens = v.GetInt(KeyMaxTokens)
	}
}
