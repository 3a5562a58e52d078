package csvfile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

// Format selects a CSV column layout
type Format string

const (
	// FormatLunchMoney is the Lunch Money transaction export
	FormatLunchMoney Format = "lunchmoney"
	// FormatMint is the Mint transaction export. Amounts are unsigned with a
	// separate debit/credit column.
	FormatMint Format = "mint"
)

// Annotation columns added to every output file
const (
	ColumnAction    = "action"
	ColumnRelatedID = "related_id"
)

// ParseFormat validates a configured format name
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatLunchMoney:
		return FormatLunchMoney, nil
	case FormatMint:
		return FormatMint, nil
	}
	return "", fmt.Errorf("unknown source format %q (want lunchmoney or mint)", s)
}

// StateLabel is the label written to the action column
func StateLabel(s transaction.State) string {
	switch s {
	case transaction.StateDuplicate:
		return "Duplicate"
	case transaction.StateNotDuplicate:
		return "Not-Duplicate"
	case transaction.StateKeep:
		return "Keep"
	case transaction.StateMatch:
		return "Match"
	case transaction.StateInvestigate:
		return "Investigate"
	}
	return ""
}

type layout struct {
	columns []string // Output column order, annotation columns excluded
	known   map[string]bool
	decode  func(r row) (*transaction.Record, []error)
	encode  func(rec *transaction.Record) map[string]string
}

func newLayout(columns []string, aliases []string, decode func(row) (*transaction.Record, []error), encode func(*transaction.Record) map[string]string) layout {
	known := make(map[string]bool)
	for _, c := range append(append([]string{}, columns...), aliases...) {
		known[strings.ToLower(c)] = true
	}
	known[ColumnAction] = true
	known[ColumnRelatedID] = true
	return layout{columns: columns, known: known, decode: decode, encode: encode}
}

func layoutFor(f Format) layout {
	if f == FormatMint {
		return mintLayout
	}
	return lunchMoneyLayout
}

var lunchMoneyLayout = newLayout(
	[]string{"id", "date", "payee", "amount", "notes", "account_display_name", "source", "tags", "is_pending", "has_children", "parent_id"},
	[]string{"plaid_account_display_name", "plaid_account_name", "asset_display_name", "asset_name"},
	decodeLunchMoney,
	encodeLunchMoney,
)

var mintLayout = newLayout(
	[]string{"id", "Date", "Description", "Amount", "Transaction Type", "Account Name", "Labels", "Notes"},
	nil,
	decodeMint,
	encodeMint,
)

func decodeLunchMoney(r row) (*transaction.Record, []error) {
	var problems []error
	rec := &transaction.Record{
		ID:            r.get("id"),
		Payee:         r.get("payee"),
		Notes:         r.get("notes"),
		AccountName:   r.get("account_display_name", "plaid_account_display_name", "plaid_account_name", "asset_display_name", "asset_name"),
		Origin:        r.get("source"),
		Tags:          parseTags(r.get("tags")),
		IsPending:     parseBool(r.get("is_pending")),
		IsSplitParent: parseBool(r.get("has_children")),
		ParentID:      r.get("parent_id"),
	}
	if rec.ID == "" {
		rec.ID = "row-" + strconv.Itoa(r.line)
		problems = append(problems, fmt.Errorf("missing id"))
	}

	var err error
	if rec.Amount, err = parseAmount(r.get("amount")); err != nil {
		problems = append(problems, err)
	}
	if rec.Date, err = parseDate(r.get("date")); err != nil {
		problems = append(problems, err)
	}
	return rec, problems
}

func encodeLunchMoney(rec *transaction.Record) map[string]string {
	return map[string]string{
		"id":                   rec.ID,
		"date":                 rec.DateString(),
		"payee":                rec.Payee,
		"amount":               rec.AmountString(),
		"notes":                rec.Notes,
		"account_display_name": rec.AccountName,
		"source":               rec.Origin,
		"tags":                 strings.Join(outputTags(rec), ","),
		"is_pending":           strconv.FormatBool(rec.IsPending),
		"has_children":         strconv.FormatBool(rec.IsSplitParent),
		"parent_id":            rec.ParentID,
	}
}

// Mint records carry no id; a previously annotated file has one, otherwise
// the row position is used.
func decodeMint(r row) (*transaction.Record, []error) {
	var problems []error
	rec := &transaction.Record{
		ID:          r.get("id"),
		Payee:       r.get("Description", "Original Description"),
		Notes:       r.get("Notes"),
		AccountName: r.get("Account Name"),
		Origin:      string(FormatMint),
		Tags:        strings.Fields(r.get("Labels")),
	}
	if rec.ID == "" {
		rec.ID = strconv.Itoa(r.line)
	}

	amount, err := parseAmount(r.get("Amount"))
	if err != nil {
		problems = append(problems, err)
	} else {
		// Debits are spending, positive like Lunch Money
		d := amount.Decimal.Abs()
		if strings.EqualFold(r.get("Transaction Type"), "credit") {
			d = d.Neg()
		}
		amount.Decimal = d
		rec.Amount = amount
	}
	if rec.Date, err = parseDate(r.get("Date")); err != nil {
		problems = append(problems, err)
	}
	return rec, problems
}

func encodeMint(rec *transaction.Record) map[string]string {
	out := map[string]string{
		"id":           rec.ID,
		"Date":         rec.DateString(),
		"Description":  rec.Payee,
		"Account Name": rec.AccountName,
		"Labels":       strings.Join(outputTags(rec), " "),
		"Notes":        rec.Notes,
	}
	if rec.Amount.Valid {
		out["Amount"] = rec.Amount.Decimal.Abs().StringFixed(2)
		out["Transaction Type"] = "debit"
		if rec.Amount.Decimal.IsNegative() {
			out["Transaction Type"] = "credit"
		}
	}
	return out
}

// outputTags adds the Not-Duplicate tag to records judged distinct so the
// originating system skips them next time
func outputTags(rec *transaction.Record) []string {
	tags := rec.Tags
	if rec.State == transaction.StateNotDuplicate && !rec.HasAnyTag(transaction.NotDuplicateTags...) {
		tags = append(append([]string{}, tags...), transaction.NotDuplicateTags[0])
	}
	return tags
}

// header returns the output columns: the layout columns, then any extra
// source columns in sorted order, then the annotation columns
func (l layout) header(records []*transaction.Record) []string {
	seen := make(map[string]bool)
	var extra []string
	for _, rec := range records {
		for name := range rec.Fields {
			if !seen[name] && !l.known[strings.ToLower(name)] {
				seen[name] = true
				extra = append(extra, name)
			}
		}
	}
	sort.Strings(extra)

	header := append([]string{}, l.columns...)
	header = append(header, extra...)
	return append(header, ColumnAction, ColumnRelatedID)
}
