package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	DefaultFileName = "logmind_config.json"

	ModelTypeLocal  = "local"
	ModelTypeRemote = "remote"

	LanguageEnglish = "en"
	LanguageChinese = "zh"
)

type (
	Config struct {
		Language       string         `json:"language"`
		AIConfig       AIConfig       `json:"ai_config"`
		UIConfig       UIConfig       `json:"ui_config"`
		AnalysisConfig AnalysisConfig `json:"analysis_config"`
		ProxyConfig    ProxyConfig    `json:"proxy_config"`
		HistoryConfig  HistoryConfig  `json:"history_config"`
	}

	AIConfig struct {
		ModelType      string         `json:"model_type"`
		Local          Backend        `json:"local"`
		Remote         Backend        `json:"remote"`
		AnalysisParams AnalysisParams `json:"analysis_params"`
	}

	// Backend is one OpenAI-compatible endpoint.
	Backend struct {
		BaseURL   string `json:"base_url"`
		APIKey    string `json:"api_key"`
		ModelName string `json:"model_name"`
	}

	AnalysisParams struct {
		Temperature    float64 `json:"temperature"`
		MaxTokens      int     `json:"max_tokens"`
		TimeoutSeconds int     `json:"timeout_seconds"`
	}

	UIConfig struct {
		ProblemDescription ProblemDescriptionUI `json:"problem_description"`
		LogInput           LogInputUI           `json:"log_input"`
	}

	ProblemDescriptionUI struct {
		Enabled         bool   `json:"enabled"`
		PlaceholderText string `json:"placeholder_text"`
		MinHeight       int    `json:"min_height"`
		MaxLength       int    `json:"max_length"`
	}

	LogInputUI struct {
		MinHeight int `json:"min_height"`
		MaxLength int `json:"max_length"`
	}

	AnalysisConfig struct {
		InputWeights     InputWeights     `json:"input_weights"`
		AnalysisGuidance AnalysisGuidance `json:"analysis_guidance"`
		RedactSecrets    bool             `json:"redact_secrets"`
		ContextLines     int              `json:"context_lines"`
		MaxCodeFileBytes int              `json:"max_code_file_bytes"`
	}

	InputWeights struct {
		ProblemDescription float64 `json:"problem_description"`
		Log                float64 `json:"log"`
		Code               float64 `json:"code"`
	}

	// AnalysisGuidance overrides the closing instruction of the prompt. Empty
	// fields fall back to the built-in text for the configured language.
	AnalysisGuidance struct {
		WithDescriptionAndLog string `json:"with_description_and_log"`
		WithDescriptionOnly   string `json:"with_description_only"`
		WithLogOnly           string `json:"with_log_only"`
	}

	ProxyConfig struct {
		Enabled  bool   `json:"enabled"`
		Host     string `json:"host"`
		Port     Port   `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
	}

	HistoryConfig struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path"`
	}
)

// Port is kept as a string on disk; numeric values are accepted on read.
type Port string

func (p *Port) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*p = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Port(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("proxy port: %w", err)
	}
	*p = Port(n.String())
	return nil
}

func Default() *Config {
	return &Config{
		Language: LanguageEnglish,
		AIConfig: AIConfig{
			ModelType: ModelTypeLocal,
			Local: Backend{
				BaseURL:   "http://localhost:11434/v1",
				APIKey:    "sk-no-key-required",
				ModelName: "qwen:14b",
			},
			Remote: Backend{
				BaseURL:   "https://api.openai.com/v1",
				APIKey:    "",
				ModelName: "gpt-4-turbo",
			},
			AnalysisParams: AnalysisParams{
				Temperature:    0.1,
				MaxTokens:      2000,
				TimeoutSeconds: 120,
			},
		},
		UIConfig: UIConfig{
			ProblemDescription: ProblemDescriptionUI{
				Enabled:         true,
				PlaceholderText: "Describe the problem: when it happens, how often, what is affected...",
				MinHeight:       150,
				MaxLength:       2000,
			},
			LogInput: LogInputUI{
				MinHeight: 600,
				MaxLength: 10000,
			},
		},
		AnalysisConfig: AnalysisConfig{
			InputWeights: InputWeights{
				ProblemDescription: 0.4,
				Log:                0.4,
				Code:               0.2,
			},
			ContextLines:     10,
			MaxCodeFileBytes: 20000,
		},
		HistoryConfig: HistoryConfig{
			Enabled: true,
		},
	}
}

// ActiveBackend returns the backend selected by ai_config.model_type.
func (c *Config) ActiveBackend() *Backend {
	return c.Backend(c.AIConfig.ModelType)
}

// Backend returns the backend for modelType; anything but "remote" is local.
func (c *Config) Backend(modelType string) *Backend {
	if modelType == ModelTypeRemote {
		return &c.AIConfig.Remote
	}
	return &c.AIConfig.Local
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Redacted returns a copy safe to print: api keys and the proxy password are masked.
func (c *Config) Redacted() *Config {
	cp := c.Clone()
	cp.AIConfig.Local.APIKey = mask(cp.AIConfig.Local.APIKey)
	cp.AIConfig.Remote.APIKey = mask(cp.AIConfig.Remote.APIKey)
	cp.ProxyConfig.Password = mask(cp.ProxyConfig.Password)
	return cp
}

// HistoryPath resolves history_config.path, defaulting to ~/.logmind/history.db.
func (c *Config) HistoryPath() (string, error) {
	if c.HistoryConfig.Path != "" {
		return c.HistoryConfig.Path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get user home dir: %w", err)
	}
	return filepath.Join(home, ".logmind", "history.db"), nil
}

func mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 8:
		return "****"
	default:
		return "****" + s[len(s)-4:]
	}
}
