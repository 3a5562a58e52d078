// Package terminal implements the interactive operator on a line-oriented
// terminal.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/disambiguate"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/matcher"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/operator"
)

const (
	colorHeader  lipgloss.Color = "#89b4fa"
	colorTarget  lipgloss.Color = "#f9e2af"
	colorMuted   lipgloss.Color = "#7f849c"
	colorError   lipgloss.Color = "#f38ba8"
	colorSuccess lipgloss.Color = "#a6e3a1"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorHeader)
	targetStyle = lipgloss.NewStyle().Foreground(colorTarget)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	matchStyle  = lipgloss.NewStyle().Foreground(colorSuccess)

	colIndex  = lipgloss.NewStyle().Width(5)
	colDate   = lipgloss.NewStyle().Width(12)
	colDiff   = lipgloss.NewStyle().Width(6)
	colAmount = lipgloss.NewStyle().Width(12).Align(lipgloss.Right).PaddingRight(2)
	colPayee  = lipgloss.NewStyle().Width(32)
	colSim    = lipgloss.NewStyle().Width(6)
)

// Operator reads commands from in and renders prompts to out
type Operator struct {
	in  *bufio.Reader
	out io.Writer

	once  sync.Once
	lines chan inputLine
}

type inputLine struct {
	text string
	err  error
}

// New creates a terminal operator
func New(in io.Reader, out io.Writer) *Operator {
	return &Operator{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan inputLine),
	}
}

// readLoop feeds lines to Present until the input fails. A blocking read
// cannot be interrupted, so it runs apart from the prompt loop.
func (o *Operator) readLoop() {
	defer close(o.lines)
	for {
		text, err := o.in.ReadString('\n')
		o.lines <- inputLine{text: text, err: err}
		if err != nil {
			return
		}
	}
}

// readLine waits for the next line or for ctx to be done
func (o *Operator) readLine(ctx context.Context) (string, error) {
	o.once.Do(func() { go o.readLoop() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-o.lines:
		if !ok {
			return "", io.EOF
		}
		return l.text, l.err
	}
}

// Present renders the prompt and reads lines until one parses. Parse errors
// are reported and re-read here; choices the controller refuses come back
// with Prompt.Invalid set.
func (o *Operator) Present(ctx context.Context, prompt disambiguate.Prompt) (disambiguate.Response, error) {
	if err := ctx.Err(); err != nil {
		return disambiguate.Response{}, err
	}

	fmt.Fprintln(o.out, o.Render(prompt))
	for {
		fmt.Fprintf(o.out, "%s\n> ", mutedStyle.Render(operator.Help(prompt)))
		line, err := o.readLine(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return disambiguate.Response{}, ctxErr
		}
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return disambiguate.Response{}, fmt.Errorf("failed to read input: %w", err)
		}

		resp, perr := operator.ParseCommand(prompt, line)
		if perr == nil {
			return resp, nil
		}
		fmt.Fprintln(o.out, errorStyle.Render(perr.Error()))
		if err != nil {
			// EOF after a bad final line
			return disambiguate.Response{}, fmt.Errorf("failed to read input: %w", err)
		}
	}
}

// Render formats a prompt for display
func (o *Operator) Render(prompt disambiguate.Prompt) string {
	var b strings.Builder

	if prompt.Invalid != "" {
		b.WriteString(errorStyle.Render("Invalid choice: "+prompt.Invalid) + "\n")
	}

	switch prompt.Kind {
	case disambiguate.PromptEdit:
		rec := prompt.Record
		b.WriteString(headerStyle.Render(fmt.Sprintf("Update %s %s", sourceLabel(rec.Source), rec.ID)) + "\n")
		b.WriteString(fmt.Sprintf("  Payee: %s\n", rec.Payee))
		b.WriteString(fmt.Sprintf("  Notes: %s", rec.Notes))
		return b.String()
	case disambiguate.PromptSingle:
		b.WriteString(headerStyle.Render("Possible duplicate found") + "\n")
	default:
		b.WriteString(headerStyle.Render(fmt.Sprintf("%d possible duplicates found", len(prompt.Candidates))) + "\n")
	}

	t := prompt.Target
	b.WriteString(mutedStyle.Render(fmt.Sprintf("Account: %s", t.AccountName)) + "\n")
	index := ""
	if prompt.AllowTarget {
		index = "0)"
	}
	b.WriteString(row(index, t.DateString(), "", t.AmountString(), t.Payee, "", targetStyle) + "\n")
	for i, c := range prompt.Candidates {
		b.WriteString(candidateRow(i, c) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func candidateRow(i int, c matcher.Candidate) string {
	style := lipgloss.NewStyle()
	if c.DateDiffDays == 0 {
		style = matchStyle
	}
	return row(
		fmt.Sprintf("%d)", i+1),
		c.Record.DateString(),
		fmt.Sprintf("%+dd", c.DateDiffDays),
		c.Record.AmountString(),
		c.Record.Payee,
		fmt.Sprintf("%.0f%%", c.PayeeSimilarity*100),
		style,
	)
}

func row(index, date, diff, amount, payee, sim string, style lipgloss.Style) string {
	return style.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		colIndex.Render(index),
		colDate.Render(date),
		colDiff.Render(diff),
		colAmount.Render(amount),
		colPayee.Render(truncate(payee, 30)),
		colSim.Render(sim),
	))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func sourceLabel(s transaction.Source) string {
	if s == transaction.SourceReference {
		return "reference"
	}
	return "transaction"
}

var _ disambiguate.Operator = (*Operator)(nil)
