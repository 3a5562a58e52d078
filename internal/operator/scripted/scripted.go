// Package scripted provides a non-interactive operator that answers prompts
// from a fixed script. Used by tests and unattended dry runs.
package scripted

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/disambiguate"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/operator"
)

// ErrExhausted is returned when a prompt arrives after the last answer
var ErrExhausted = errors.New("script exhausted")

type answer func(prompt disambiguate.Prompt) (disambiguate.Response, error)

// Operator replays answers in order and keeps every prompt it was shown
type Operator struct {
	answers  []answer
	fallback *disambiguate.Response

	Prompts []disambiguate.Prompt
}

// New creates an operator that answers with responses in order
func New(responses ...disambiguate.Response) *Operator {
	o := &Operator{}
	for _, r := range responses {
		r := r
		o.answers = append(o.answers, func(disambiguate.Prompt) (disambiguate.Response, error) {
			return r, nil
		})
	}
	return o
}

// FromReader reads one command per line. Blank lines and lines starting with
// # are ignored. Commands are parsed against the prompt they answer.
func FromReader(r io.Reader) (*Operator, error) {
	o := &Operator{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n := lineNo
		o.answers = append(o.answers, func(prompt disambiguate.Prompt) (disambiguate.Response, error) {
			resp, err := operator.ParseCommand(prompt, line)
			if err != nil {
				return disambiguate.Response{}, fmt.Errorf("script line %d: %w", n, err)
			}
			return resp, nil
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	return o, nil
}

// FromFile loads a script file
func FromFile(path string) (*Operator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return FromReader(f)
}

// WithFallback answers every prompt past the end of the script with resp
func (o *Operator) WithFallback(resp disambiguate.Response) *Operator {
	o.fallback = &resp
	return o
}

// Remaining returns how many scripted answers are left
func (o *Operator) Remaining() int {
	return len(o.answers)
}

// Present implements disambiguate.Operator
func (o *Operator) Present(ctx context.Context, prompt disambiguate.Prompt) (disambiguate.Response, error) {
	if err := ctx.Err(); err != nil {
		return disambiguate.Response{}, err
	}
	o.Prompts = append(o.Prompts, prompt)

	if len(o.answers) == 0 {
		if o.fallback != nil {
			return fallbackFor(prompt.Kind, *o.fallback), nil
		}
		return disambiguate.Response{}, ErrExhausted
	}
	next := o.answers[0]
	o.answers = o.answers[1:]
	return next(prompt)
}

// Edit prompts only accept edits, whatever the fallback is
func fallbackFor(kind disambiguate.PromptKind, resp disambiguate.Response) disambiguate.Response {
	if kind == disambiguate.PromptEdit && resp.Action != disambiguate.ActionEdit {
		return disambiguate.KeepFields()
	}
	return resp
}

var _ disambiguate.Operator = (*Operator)(nil)
