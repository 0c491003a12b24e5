package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/helmcode/logmind/pkg/parser"
)

// Input is what the user hands over for one analysis.
type Input struct {
	Problem string
	Log     string
	// Folders are searched for the file named by the log's first stack frame.
	Folders []string
	// Files are attached as-is; each entry is "path" or "path:line".
	Files []string
}

type CodeFile struct {
	Name      string `json:"name" yaml:"name"`
	Path      string `json:"path" yaml:"path"`
	Line      int    `json:"line,omitempty" yaml:"line,omitempty"`
	Content   string `json:"content" yaml:"content"`
	Truncated bool   `json:"truncated,omitempty" yaml:"truncated,omitempty"`
}

// Request is a prepared analysis: bounded inputs, the code gathered for
// them and the prompt that will be sent.
type Request struct {
	Problem   string          `json:"problem,omitempty" yaml:"problem,omitempty"`
	Log       string          `json:"log,omitempty" yaml:"log,omitempty"`
	Location  parser.Location `json:"location" yaml:"location"`
	CodeFiles []CodeFile      `json:"code_files,omitempty" yaml:"code_files,omitempty"`
	Prompt    string          `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Warnings  []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func (r *Request) HasProblem() bool { return r.Problem != "" }
func (r *Request) HasLog() bool     { return r.Log != "" }

type Backend struct {
	ModelType string `json:"model_type" yaml:"model_type"`
	Model     string `json:"model" yaml:"model"`
	BaseURL   string `json:"base_url" yaml:"base_url"`
}

type Analysis struct {
	ID         string    `json:"id" yaml:"id"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
	Backend    Backend   `json:"backend" yaml:"backend"`
	Request    Request   `json:"request" yaml:"request"`
	Result     string    `json:"result,omitempty" yaml:"result,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64     `json:"duration_ms" yaml:"duration_ms"`
}

func NewAnalysis(req Request, backend Backend) *Analysis {
	return &Analysis{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Backend:   backend,
		Request:   req,
	}
}

// Finish records the outcome of the model call.
func (a *Analysis) Finish(result string, err error, elapsed time.Duration) {
	a.Result = result
	if err != nil {
		a.Error = err.Error()
	}
	a.DurationMS = elapsed.Milliseconds()
}

func (a *Analysis) Failed() bool {
	return a.Error != ""
}

// ShortID is the prefix of id shown in listings; history accepts it back.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (a *Analysis) ShortID() string {
	return ShortID(a.ID)
}
