package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/lunchmoney-reconcile/internal/adapters/sources"
	"github.com/eshaffer321/lunchmoney-reconcile/internal/domain/transaction"
)

const lunchMoneyCSV = `id,date,payee,amount,currency,notes,category_name,account_display_name,source,tags,is_pending,has_children,parent_id
101,2024-01-10,COFFEE SHOP,4.50,usd,,Coffee,Chase Checking,plaid,"[{'name': 'Not-Duplicate', 'id': 3}]",false,false,
102,2024-01-11,GROCER,"$1,020.00",usd,weekly,Groceries,Chase Checking,plaid,,true,false,
103,2024-01-12,SPLIT,30.00,usd,,,Chase Checking,csv,,false,true,
104,bad-date,UNKNOWN,nope,usd,,,Chase Checking,plaid,,false,false,
105,2023-12-01,OLD,1.00,usd,,,Chase Checking,plaid,,false,false,
`

const mintCSV = `Date,Description,Original Description,Amount,Transaction Type,Category,Account Name,Labels,Notes
1/10/24,Coffee Shop,COFFEE SHOP #12,4.50,debit,Coffee Shops,CHASE CHECKING,,
01/12/2024,Refund,REFUND,20.00,credit,Shopping,CHASE CHECKING,returns gift,thanks
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoader_LunchMoney(t *testing.T) {
	// Arrange
	path := writeFile(t, "lm.csv", lunchMoneyCSV)
	loader := NewLoader(path, FormatLunchMoney, transaction.SourcePrimary, nil)
	opts := sources.LoadOptions{StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}

	// Act
	records, err := loader.Load(context.Background(), opts)

	// Assert
	require.NoError(t, err)
	require.Len(t, records, 4, "row before the start date is dropped")

	coffee := records[0]
	assert.Equal(t, "101", coffee.ID)
	assert.Equal(t, transaction.SourcePrimary, coffee.Source)
	assert.Equal(t, "Chase Checking", coffee.AccountName)
	assert.Equal(t, "4.50", coffee.AmountString())
	assert.Equal(t, "2024-01-10", coffee.DateString())
	assert.Equal(t, "plaid", coffee.Origin)
	assert.Equal(t, []string{"Not-Duplicate"}, coffee.Tags)
	assert.Equal(t, "Coffee", coffee.Fields["category_name"])
	assert.Equal(t, transaction.StateUnresolved, coffee.State)

	assert.Equal(t, "1020.00", records[1].AmountString())
	assert.True(t, records[1].IsPending)
	assert.True(t, records[2].IsSplitParent)

	bad := records[3]
	assert.False(t, bad.Amount.Valid)
	assert.True(t, bad.Date.IsZero())
	assert.Error(t, bad.Validate())
	assert.Equal(t, 3, bad.Seq)
}

func TestLoader_Mint(t *testing.T) {
	path := writeFile(t, "transactions.csv", mintCSV)
	loader := NewLoader(path, FormatMint, transaction.SourceReference, nil)

	records, err := loader.Load(context.Background(), sources.LoadOptions{})

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "0", records[0].ID)
	assert.Equal(t, "4.50", records[0].AmountString(), "debits are positive")
	assert.Equal(t, "2024-01-10", records[0].DateString())
	assert.Equal(t, "Coffee Shop", records[0].Payee)
	assert.Equal(t, "-20.00", records[1].AmountString(), "credits are negative")
	assert.Equal(t, []string{"returns", "gift"}, records[1].Tags)
	assert.Equal(t, "Shopping", records[1].Fields["Category"])
	assert.Equal(t, "mint", loader.Name())
}

func TestLoader_MissingFile(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.csv"), FormatLunchMoney, transaction.SourcePrimary, nil)

	_, err := loader.Load(context.Background(), sources.LoadOptions{})

	assert.Error(t, err)
}

func TestWriter_RoundTripRestoresState(t *testing.T) {
	// Arrange
	ctx := context.Background()
	path := writeFile(t, "lm.csv", lunchMoneyCSV)
	records, err := NewLoader(path, FormatLunchMoney, transaction.SourcePrimary, nil).Load(ctx, sources.LoadOptions{})
	require.NoError(t, err)
	records[0].State = transaction.StateDuplicate
	records[0].RelatedID = "7"
	records[1].State = transaction.StateNotDuplicate

	out := filepath.Join(t.TempDir(), "out", "annotated.csv")

	// Act
	require.NoError(t, NewWriter(out, FormatLunchMoney).Write(ctx, records))
	reread, err := NewLoader(out, FormatLunchMoney, transaction.SourcePrimary, nil).Load(ctx, sources.LoadOptions{})

	// Assert
	require.NoError(t, err)
	require.Len(t, reread, len(records))
	assert.Equal(t, transaction.StateDuplicate, reread[0].State)
	assert.Equal(t, "7", reread[0].RelatedID)
	assert.Equal(t, transaction.StateNotDuplicate, reread[1].State)
	assert.Contains(t, reread[1].Tags, "Not-Duplicate")
	assert.Equal(t, transaction.StateUnresolved, reread[2].State)
	assert.Equal(t, "Coffee", reread[0].Fields["category_name"])
	assert.Equal(t, "usd", reread[0].Fields["currency"])

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	header := strings.SplitN(string(raw), "\n", 2)[0]
	assert.True(t, strings.HasSuffix(header, "action,related_id"))
}

func TestWriter_MintRoundTripKeepsIDs(t *testing.T) {
	ctx := context.Background()
	path := writeFile(t, "transactions.csv", mintCSV)
	records, err := NewLoader(path, FormatMint, transaction.SourceReference, nil).Load(ctx, sources.LoadOptions{})
	require.NoError(t, err)
	records[1].State = transaction.StateMatch
	records[1].RelatedID = "101"

	out := filepath.Join(t.TempDir(), "mint_analyzed.csv")
	require.NoError(t, NewWriter(out, FormatMint).Write(ctx, records))
	reread, err := NewLoader(out, FormatMint, transaction.SourceReference, nil).Load(ctx, sources.LoadOptions{})

	require.NoError(t, err)
	require.Len(t, reread, 2)
	assert.Equal(t, "1", reread[1].ID)
	assert.Equal(t, "-20.00", reread[1].AmountString())
	assert.Equal(t, transaction.StateMatch, reread[1].State)
	assert.Equal(t, "COFFEE SHOP #12", reread[0].Fields["Original Description"])
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	today := time.Date(2024, 4, 25, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, filepath.Join(dir, "plaid.csv"), OutputPath(dir, "plaid.csv", today))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "plaid.csv"), nil, 0o644))
	assert.Equal(t, filepath.Join(dir, "plaid-2024-04-25.csv"), OutputPath(dir, "plaid.csv", today))

	t.Run("same day runs get a counter", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "plaid-2024-04-25.csv"), nil, 0o644))
		assert.Equal(t, filepath.Join(dir, "plaid-2024-04-25-2.csv"), OutputPath(dir, "plaid.csv", today))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "plaid-2024-04-25-2.csv"), nil, 0o644))
		assert.Equal(t, filepath.Join(dir, "plaid-2024-04-25-3.csv"), OutputPath(dir, "plaid.csv", today))
	})
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"-42.50", "-42.50", true},
		{"$1,234.56", "1234.56", true},
		{"-$5.00", "-5.00", true},
		{"(12.00)", "-12.00", true},
		{"", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseAmount(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Decimal.StringFixed(2))
		})
	}
}

func TestParseTags(t *testing.T) {
	assert.Nil(t, parseTags(""))
	assert.Nil(t, parseTags("[]"))
	assert.Equal(t, []string{"a", "b"}, parseTags("a, b"))
	assert.Equal(t, []string{"Not-Duplicate", "Travel"}, parseTags(`[{'name': 'Not-Duplicate', 'id': 1}, {"name": "Travel"}]`))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("MINT")
	require.NoError(t, err)
	assert.Equal(t, FormatMint, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatLunchMoney, f)

	_, err = ParseFormat("ofx")
	assert.Error(t, err)
}
