package apperr

import (
	"errors"
	"fmt"
)

// ErrorType is the category shown to the user in front of the message.
type ErrorType string

const (
	TypeConfiguration ErrorType = "CONFIGURATION"
	TypeInput         ErrorType = "INPUT"
	TypeAI            ErrorType = "AI"
	TypeKubernetes    ErrorType = "KUBERNETES"
	TypeStorage       ErrorType = "STORAGE"
	TypeInternal      ErrorType = "INTERNAL"
)

// AppError is an error meant to be read by a person, optionally with a hint
// on how to fix it.
type AppError struct {
	Type       ErrorType
	Message    string
	Err        error
	Suggestion string
}

func New(t ErrorType, msg string, err error) *AppError {
	return &AppError{Type: t, Message: msg, Err: err}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches copies made with WithError or WithSuggestion against the value
// they were made from.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Message == t.Message
}

// WithError returns a copy of e wrapping err.
func (e *AppError) WithError(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// WithSuggestion returns a copy of e carrying s.
func (e *AppError) WithSuggestion(s string) *AppError {
	c := *e
	c.Suggestion = s
	return &c
}

// Suggestion returns the first suggestion found in err's chain.
func Suggestion(err error) string {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return ""
		}
		if appErr.Suggestion != "" {
			return appErr.Suggestion
		}
		err = appErr.Err
	}
	return ""
}

var (
	ErrEmptyInput = New(TypeInput, "a problem description or log text is required", nil).
			WithSuggestion("Pass a problem as argument, or logs with --log FILE (use - for stdin)")

	ErrBackendNotReady = New(TypeConfiguration, "the selected AI backend is not fully configured", nil).
				WithSuggestion("Run: logmind config set ai_config.<local|remote>.<field> VALUE")

	ErrAIRequest = New(TypeAI, "the model request failed", nil).
			WithSuggestion("Check base_url, api_key and model_name, then run: logmind config test")

	ErrAnalysisStopped = New(TypeAI, "analysis stopped", nil)
)
