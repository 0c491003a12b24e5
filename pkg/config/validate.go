package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/helmcode/logmind/pkg/apperr"
)

// Validate checks the structure of the configuration. It does not require the
// active backend to be complete; see CheckReady.
func (c *Config) Validate() error {
	var errs []error

	switch c.AIConfig.ModelType {
	case ModelTypeLocal, ModelTypeRemote:
	default:
		errs = append(errs, fmt.Errorf("ai_config.model_type must be %q or %q, got %q", ModelTypeLocal, ModelTypeRemote, c.AIConfig.ModelType))
	}

	switch c.Language {
	case LanguageEnglish, LanguageChinese:
	default:
		errs = append(errs, fmt.Errorf("language must be %q or %q, got %q", LanguageEnglish, LanguageChinese, c.Language))
	}

	for name, b := range map[string]Backend{"local": c.AIConfig.Local, "remote": c.AIConfig.Remote} {
		if b.BaseURL == "" {
			continue
		}
		if err := checkHTTPURL(b.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("ai_config.%s.base_url: %w", name, err))
		}
	}

	p := c.AIConfig.AnalysisParams
	if p.Temperature < 0 || p.Temperature > 2 {
		errs = append(errs, fmt.Errorf("ai_config.analysis_params.temperature must be between 0 and 2, got %g", p.Temperature))
	}
	if p.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("ai_config.analysis_params.max_tokens must be greater than 0, got %d", p.MaxTokens))
	}
	if p.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("ai_config.analysis_params.timeout_seconds must not be negative, got %d", p.TimeoutSeconds))
	}

	if c.UIConfig.ProblemDescription.MaxLength <= 0 {
		errs = append(errs, errors.New("ui_config.problem_description.max_length must be greater than 0"))
	}
	if c.UIConfig.LogInput.MaxLength <= 0 {
		errs = append(errs, errors.New("ui_config.log_input.max_length must be greater than 0"))
	}
	if c.AnalysisConfig.ContextLines < 0 {
		errs = append(errs, errors.New("analysis_config.context_lines must not be negative"))
	}
	if c.AnalysisConfig.MaxCodeFileBytes <= 0 {
		errs = append(errs, errors.New("analysis_config.max_code_file_bytes must be greater than 0"))
	}

	if c.ProxyConfig.Enabled {
		if c.ProxyConfig.Host == "" || c.ProxyConfig.Port == "" {
			errs = append(errs, errors.New("proxy_config: host and port are required when the proxy is enabled"))
		} else if port, err := strconv.Atoi(string(c.ProxyConfig.Port)); err != nil || port < 1 || port > 65535 {
			errs = append(errs, fmt.Errorf("proxy_config.port must be a number between 1 and 65535, got %q", c.ProxyConfig.Port))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return apperr.New(apperr.TypeConfiguration, "invalid configuration", errors.Join(errs...)).
		WithSuggestion("Fix the listed fields with: logmind config set KEY VALUE")
}

// CheckReady reports whether the active backend can be called.
func (c *Config) CheckReady() error {
	b := c.ActiveBackend()
	switch {
	case b.BaseURL == "":
		return apperr.ErrBackendNotReady.WithError(fmt.Errorf("ai_config.%s.base_url is empty", c.AIConfig.ModelType))
	case b.ModelName == "":
		return apperr.ErrBackendNotReady.WithError(fmt.Errorf("ai_config.%s.model_name is empty", c.AIConfig.ModelType))
	case c.AIConfig.ModelType == ModelTypeRemote && b.APIKey == "":
		return apperr.ErrBackendNotReady.WithError(errors.New("ai_config.remote.api_key is empty"))
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is empty")
	}
	return nil
}
