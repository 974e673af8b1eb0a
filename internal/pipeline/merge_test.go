package pipeline_test

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/pipeline"
)

// partition splits n items into random contiguous non-empty groups.
func partition(rng *rand.Rand, n int) []int {
	var sizes []int
	for n > 0 {
		s := 1 + rng.Intn(n)
		sizes = append(sizes, s)
		n -= s
	}
	return sizes
}

func TestMerge_ProductItemCountIsPreserved(t *testing.T) {
	all := make([]domain.LineItem, 37)
	for i := range all {
		all[i] = lineItem(fmt.Sprintf("item-%02d", i), "1", "1", "1")
	}

	for seed := int64(1); seed <= 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		var docs []*domain.TypedDocument
		off := 0
		for _, size := range partition(rng, len(all)) {
			docs = append(docs, invoiceWith(all[off:off+size], ""))
			off += size
		}

		merged, err := pipeline.Merge(docs)
		require.NoError(t, err, "seed %d", seed)
		assert.Equal(t, all, merged.ProductInvoice.Items, "seed %d", seed)
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	first := invoiceWith([]domain.LineItem{lineItem("a", "1", "1", "1")}, "10")
	second := invoiceWith([]domain.LineItem{lineItem("b", "1", "1", "1")}, "")

	merged, err := pipeline.Merge([]*domain.TypedDocument{first, second})
	require.NoError(t, err)

	assert.Len(t, merged.ProductInvoice.Items, 2)
	assert.Len(t, first.ProductInvoice.Items, 1)
	assert.Len(t, second.ProductInvoice.Items, 1)
	assert.NotSame(t, first.ProductInvoice, merged.ProductInvoice)
}

func TestMerge_ServiceDescriptions(t *testing.T) {
	docs := []*domain.TypedDocument{
		domain.NewServiceInvoiceDocument(&domain.ServiceInvoice{Number: "1", Description: "Parte um", VerificationCode: "V"}),
		domain.NewServiceInvoiceDocument(&domain.ServiceInvoice{Number: "1", Description: "  "}),
		domain.NewServiceInvoiceDocument(&domain.ServiceInvoice{Number: "1", Description: "Parte dois"}),
	}

	merged, err := pipeline.Merge(docs)
	require.NoError(t, err)
	assert.Equal(t, "Parte um\n\nParte dois", merged.ServiceInvoice.Description)
	assert.Equal(t, "V", merged.ServiceInvoice.VerificationCode)
	assert.Equal(t, "Parte um", docs[0].ServiceInvoice.Description)
}

func randomEntries(rng *rand.Rand, n int) []domain.StatementEntry {
	out := make([]domain.StatementEntry, n)
	for i := range out {
		dir := domain.EntryCredit
		if rng.Intn(2) == 0 {
			dir = domain.EntryDebit
		}
		out[i] = domain.StatementEntry{
			Date:        domain.NewDate(2024, time.May, 1+rng.Intn(30)),
			Description: fmt.Sprintf("mov %d", i),
			Direction:   dir,
			Amount:      decimal.New(int64(1+rng.Intn(100000)), -2),
		}
	}
	return out
}

func TestMerge_StatementClosingBalanceIsOrderIndependent(t *testing.T) {
	opening := decimal.RequireFromString("1500.37")

	for seed := int64(1); seed <= 30; seed++ {
		rng := rand.New(rand.NewSource(seed))
		entries := randomEntries(rng, 25)

		credits, debits := decimal.Zero, decimal.Zero
		for _, e := range entries {
			if e.Direction == domain.EntryCredit {
				credits = credits.Add(e.Amount)
			} else {
				debits = debits.Add(e.Amount)
			}
		}
		want := opening.Add(credits).Sub(debits)

		rng.Shuffle(len(entries), func(i, j int) { entries[i], entries[j] = entries[j], entries[i] })
		var docs []*domain.TypedDocument
		off := 0
		for _, size := range partition(rng, len(entries)) {
			docs = append(docs, domain.NewFinancialStatementDocument(&domain.FinancialStatement{
				Entries:        entries[off : off+size],
				OpeningBalance: domain.Money(opening),
				// Per-batch totals are deliberately wrong.
				TotalCredits:   domain.MustMoney("1"),
				ClosingBalance: domain.MustMoney("2"),
			}))
			off += size
		}

		merged, err := pipeline.Merge(docs)
		require.NoError(t, err)
		st := merged.FinancialStatement
		assert.Len(t, st.Entries, 25)
		assert.True(t, st.ClosingBalance.Decimal.Sub(want).Abs().LessThanOrEqual(decimal.RequireFromString("0.01")),
			"seed %d: got %s want %s", seed, st.ClosingBalance.Decimal, want)
		assert.True(t, st.TotalCredits.Decimal.Equal(credits), "seed %d", seed)
		assert.True(t, st.TotalDebits.Decimal.Equal(debits), "seed %d", seed)
	}
}

func TestMerge_StatementWithoutOpeningKeepsLastClosing(t *testing.T) {
	e := domain.StatementEntry{Direction: domain.EntryCredit, Amount: decimal.NewFromInt(5)}
	docs := []*domain.TypedDocument{
		domain.NewFinancialStatementDocument(&domain.FinancialStatement{Entries: []domain.StatementEntry{e}, ClosingBalance: domain.MustMoney("5")}),
		domain.NewFinancialStatementDocument(&domain.FinancialStatement{Entries: []domain.StatementEntry{e}, ClosingBalance: domain.MustMoney("10")}),
		domain.NewFinancialStatementDocument(&domain.FinancialStatement{Entries: []domain.StatementEntry{e}}),
	}

	merged, err := pipeline.Merge(docs)
	require.NoError(t, err)
	assert.Equal(t, "10", merged.FinancialStatement.ClosingBalance.Decimal.String())
	assert.Equal(t, "15", merged.FinancialStatement.TotalCredits.Decimal.String())
}

func TestMerge_Errors(t *testing.T) {
	_, err := pipeline.Merge(nil)
	assert.Error(t, err)

	_, err = pipeline.Merge([]*domain.TypedDocument{
		invoiceWith(nil, ""),
		domain.NewServiceInvoiceDocument(&domain.ServiceInvoice{Number: "1"}),
	})
	assert.Error(t, err)

	_, err = pipeline.Merge([]*domain.TypedDocument{{Type: domain.DocumentTypeProductInvoice}})
	assert.Error(t, err)
}
