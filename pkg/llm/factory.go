package llm

import (
	"fmt"
	"time"

	"github.com/helmcode/logmind/pkg/config"
)

// Connection test parameters, kept small so the check is cheap.
const (
	ConnectionTestTemperature = 0.1
	ConnectionTestMaxTokens   = 50
)

// Params are the sampling parameters of one call.
type Params struct {
	Temperature float64
	MaxTokens   int
}

// NewFromConfig creates a client for the active backend with the configured
// analysis parameters and proxy.
func NewFromConfig(cfg *config.Config) (*OpenAI, error) {
	p := cfg.AIConfig.AnalysisParams
	return NewForBackend(cfg, cfg.AIConfig.ModelType, Params{
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	})
}

// NewForBackend creates a client for modelType ("local" or "remote") with
// explicit sampling parameters.
func NewForBackend(cfg *config.Config, modelType string, params Params) (*OpenAI, error) {
	if modelType != config.ModelTypeLocal && modelType != config.ModelTypeRemote {
		return nil, fmt.Errorf("unsupported backend: %s (supported: local, remote)", modelType)
	}

	b := cfg.Backend(modelType)
	if b.BaseURL == "" {
		return nil, fmt.Errorf("%s backend has no base_url", modelType)
	}
	if b.ModelName == "" {
		return nil, fmt.Errorf("%s backend has no model_name", modelType)
	}

	timeout := time.Duration(cfg.AIConfig.AnalysisParams.TimeoutSeconds) * time.Second

	return NewOpenAI(Options{
		BaseURL:     b.BaseURL,
		APIKey:      b.APIKey,
		Model:       b.ModelName,
		Temperature: params.Temperature,
		MaxTokens:   params.MaxTokens,
		HTTPClient:  NewHTTPClient(cfg.ProxyConfig.ProxyURL(), timeout),
	}), nil
}

// NewConnectionTester creates a client for modelType with the connection
// test parameters.
func NewConnectionTester(cfg *config.Config, modelType string) (*OpenAI, error) {
	return NewForBackend(cfg, modelType, Params{
		Temperature: ConnectionTestTemperature,
		MaxTokens:   ConnectionTestMaxTokens,
	})
}
