// Package operator parses the line commands shared by the interactive and
// scripted operator channels.
package operator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/disambiguate"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
)

// ErrEmptyInput is returned for blank lines where no default applies
var ErrEmptyInput = errors.New("empty input")

// ParseCommand converts one line of operator input into a response for the
// prompt it answers.
//
//	single:   y | n | i | 1 | 0
//	multiple: <n> | n | i | 0
//	edit:     s | <payee>|<notes>
//
// 0 names the target row. A blank line on a self-mode pairing prompt means
// no duplicates.
func ParseCommand(prompt disambiguate.Prompt, line string) (disambiguate.Response, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		if prompt.Mode == matcher.ModeSelf && prompt.Kind != disambiguate.PromptEdit {
			return disambiguate.Reject(), nil
		}
		return disambiguate.Response{}, ErrEmptyInput
	}

	if prompt.Kind == disambiguate.PromptEdit {
		return parseEdit(line), nil
	}

	switch strings.ToLower(line) {
	case "y", "yes":
		return disambiguate.Confirm(), nil
	case "n", "no", "none":
		return disambiguate.Reject(), nil
	case "i", "investigate":
		return disambiguate.Investigate(), nil
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return disambiguate.Response{}, fmt.Errorf("unrecognized command %q", line)
	}
	// Candidates are shown 1-based; 0 becomes TargetIndex
	return disambiguate.Select(n - 1), nil
}

func parseEdit(line string) disambiguate.Response {
	switch strings.ToLower(line) {
	case "s", "skip", "-":
		return disambiguate.KeepFields()
	}
	payee, notes, _ := strings.Cut(line, "|")
	return disambiguate.Edit(strings.TrimSpace(payee), strings.TrimSpace(notes))
}

// Help returns the command summary for a prompt
func Help(prompt disambiguate.Prompt) string {
	reject := "n"
	if prompt.Mode == matcher.ModeSelf {
		reject = "n/enter"
	}

	var opts []string
	switch prompt.Kind {
	case disambiguate.PromptSingle:
		opts = []string{"y = duplicate", reject + " = not a duplicate"}
	case disambiguate.PromptMultiple:
		opts = []string{fmt.Sprintf("1-%d = pick duplicate", len(prompt.Candidates)), reject + " = none are duplicates"}
	case disambiguate.PromptEdit:
		return "payee|notes to update, s to skip"
	}
	if prompt.AllowTarget {
		opts = append(opts, "0 = target is the duplicate")
	}
	if prompt.AllowInvestigate {
		opts = append(opts, "i = investigate")
	}
	return strings.Join(opts, ", ")
}
