package summarizer

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// DefaultMapPrompt follows the classic map_reduce summarization chain.
const DefaultMapPrompt = `Write a concise summary of the following:


"{{ .Text | trim }}"


CONCISE SUMMARY:`

// DefaultReducePrompt combines ordered partial summaries.
const DefaultReducePrompt = `The following are {{ .Total }} partial summaries of consecutive sections of one document, in document order:


"{{ .Text | trim }}"


Combine them into a single concise summary that keeps the order of events and ideas.
CONCISE SUMMARY:`

// PromptData is the template input for both stages.
type PromptData struct {
	Text  string
	Index int
	Total int
	Round int
}

// Prompts holds the parsed map and reduce templates.
type Prompts struct {
	mapTmpl    *template.Template
	reduceTmpl *template.Template
}

// NewPrompts parses both templates; blank inputs fall back to the defaults.
func NewPrompts(mapPrompt, reducePrompt string) (*Prompts, error) {
	if strings.TrimSpace(mapPrompt) == "" {
		mapPrompt = DefaultMapPrompt
	}
	if strings.TrimSpace(reducePrompt) == "" {
		reducePrompt = DefaultReducePrompt
	}
	mapTmpl, err := parsePrompt("map", mapPrompt)
	if err != nil {
		return nil, err
	}
	reduceTmpl, err := parsePrompt("reduce", reducePrompt)
	if err != nil {
		return nil, err
	}
	return &Prompts{mapTmpl: mapTmpl, reduceTmpl: reduceTmpl}, nil
}

func parsePrompt(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("parse %s prompt: %v", name, err))
	}
	if !strings.Contains(text, ".Text") {
		return nil, NewValidationError(fmt.Sprintf("%s prompt must reference .Text", name))
	}
	return tmpl, nil
}

// Render fills the template of the given stage.
func (p *Prompts) Render(stage Stage, data PromptData) (string, error) {
	tmpl := p.mapTmpl
	if stage == StageReduce {
		tmpl = p.reduceTmpl
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", stage, err)
	}
	return b.String(), nil
}
