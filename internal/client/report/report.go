// Package report turns the backend's pre-computed reports into display rows.
// Only presentation sums happen here; every figure comes from the backend.
package report

import (
	"strconv"

	"ledgerdesk/internal/client/api"

	"github.com/shopspring/decimal"
)

// Kind is how a row is displayed.
type Kind int

const (
	Heading Kind = iota
	Item
	Subtotal
	Total
	Note
)

// Row is one line of a rendered report.
type Row struct {
	Kind   Kind
	Label  string
	Amount decimal.Decimal
	// Text replaces Amount for Note rows.
	Text   string
	// Adds lists the rows this one totals, as offsets back from it.
	Adds   []int
}

// Table is a report ready for the terminal or a workbook.
type Table struct {
	Title    string
	Subtitle string
	Currency string
	Rows     []Row
}

// section groups items under their category, in order of first appearance,
// and adds a subtotal per category when there is more than one.
func section(heading, totalLabel string, items []api.LineItem) ([]Row, decimal.Decimal) {
	rows := []Row{{Kind: Heading, Label: heading}}

	var order []string
	groups := map[string][]api.LineItem{}
	for _, it := range items {
		if _, ok := groups[it.Category]; !ok {
			order = append(order, it.Category)
		}
		groups[it.Category] = append(groups[it.Category], it)
	}

	total := decimal.Zero
	var parts []int
	for _, cat := range order {
		grouped := cat != "" && len(order) > 1
		sub := decimal.Zero
		if grouped {
			rows = append(rows, Row{Kind: Heading, Label: cat})
		}
		var items []int
		for _, it := range groups[cat] {
			items = append(items, len(rows))
			rows = append(rows, Row{Kind: Item, Label: it.Name, Amount: it.Amount})
			sub = sub.Add(it.Amount)
		}
		if grouped {
			parts = append(parts, len(rows))
			rows = append(rows, Row{Kind: Subtotal, Label: "Total " + cat, Amount: sub, Adds: offsets(len(rows), items)})
		} else {
			parts = append(parts, items...)
		}
		total = total.Add(sub)
	}
	rows = append(rows, Row{Kind: Total, Label: totalLabel, Amount: total, Adds: offsets(len(rows), parts)})
	return rows, total
}

// offsets turns row indexes into offsets back from the row at index at.
func offsets(at int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = j - at
	}
	return out
}

func sum(items []api.LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

// BalanceSummary holds the totals of a balance sheet.
type BalanceSummary struct {
	Assets      decimal.Decimal
	Liabilities decimal.Decimal
	Equity      decimal.Decimal
	// Difference is assets minus liabilities and equity; zero when balanced.
	Difference  decimal.Decimal
}

func (s BalanceSummary) Balanced() bool { return s.Difference.IsZero() }

func SummarizeBalance(bs *api.BalanceSheet) BalanceSummary {
	s := BalanceSummary{
		Assets:      sum(bs.Assets),
		Liabilities: sum(bs.Liabilities),
		Equity:      sum(bs.Equity),
	}
	s.Difference = s.Assets.Sub(s.Liabilities.Add(s.Equity))
	return s
}

func BalanceSheetTable(bs *api.BalanceSheet) Table {
	t := Table{Title: "Balance Sheet", Subtitle: asOf(bs.AsOf), Currency: bs.Currency}

	assets, _ := section("Assets", "Total Assets", bs.Assets)
	liabilities, _ := section("Liabilities", "Total Liabilities", bs.Liabilities)
	equity, _ := section("Equity", "Total Equity", bs.Equity)
	t.Rows = append(t.Rows, assets...)
	t.Rows = append(t.Rows, liabilities...)
	t.Rows = append(t.Rows, equity...)

	s := SummarizeBalance(bs)
	liabilitiesTotal := len(t.Rows) - len(equity) - 1
	t.Rows = append(t.Rows, Row{
		Kind:   Total,
		Label:  "Total Liabilities and Equity",
		Amount: s.Liabilities.Add(s.Equity),
		Adds:   offsets(len(t.Rows), []int{liabilitiesTotal, len(t.Rows) - 1}),
	})
	check := "balanced"
	if !s.Balanced() {
		check = "out of balance by " + s.Difference.StringFixed(2)
	}
	t.Rows = append(t.Rows, Row{Kind: Note, Label: "Balance check", Text: check})
	return t
}

// CashFlowSummary holds the per-section nets of a cash flow statement.
type CashFlowSummary struct {
	Operating decimal.Decimal
	Investing decimal.Decimal
	Financing decimal.Decimal
	NetChange decimal.Decimal
	Opening   decimal.Decimal
	Closing   decimal.Decimal
}

func SummarizeCashFlow(cf *api.CashFlow) CashFlowSummary {
	s := CashFlowSummary{
		Operating: sum(cf.Operating),
		Investing: sum(cf.Investing),
		Financing: sum(cf.Financing),
		Opening:   cf.OpeningCash,
	}
	s.NetChange = s.Operating.Add(s.Investing).Add(s.Financing)
	s.Closing = s.Opening.Add(s.NetChange)
	return s
}

func CashFlowTable(cf *api.CashFlow) Table {
	t := Table{Title: "Cash Flow Statement", Subtitle: period(cf.PeriodStart, cf.PeriodEnd), Currency: cf.Currency}

	var nets []int
	for _, sec := range []struct {
		name  string
		items []api.LineItem
	}{
		{"Operating Activities", cf.Operating},
		{"Investing Activities", cf.Investing},
		{"Financing Activities", cf.Financing},
	} {
		rows, _ := section(sec.name, "Net Cash from "+sec.name, sec.items)
		t.Rows = append(t.Rows, rows...)
		nets = append(nets, len(t.Rows)-1)
	}

	s := SummarizeCashFlow(cf)
	t.Rows = append(t.Rows,
		Row{Kind: Total, Label: "Net Change in Cash", Amount: s.NetChange, Adds: offsets(len(t.Rows), nets)},
		Row{Kind: Item, Label: "Opening Cash", Amount: s.Opening},
		Row{Kind: Total, Label: "Closing Cash", Amount: s.Closing, Adds: []int{-2, -1}},
	)
	return t
}

// TaxSummary carries the backend's tax figures. Taxable and Due are shown as
// reported; the item sums only feed the consistency check.
type TaxSummary struct {
	Income     decimal.Decimal
	Deductions decimal.Decimal
	Taxable    decimal.Decimal
	Rate       decimal.Decimal
	Due        decimal.Decimal
	Paid       decimal.Decimal
	// Balance is due minus paid; negative means a refund.
	Balance    decimal.Decimal
	// Difference is income minus deductions minus the reported taxable income.
	Difference decimal.Decimal
}

func SummarizeTax(tr *api.TaxReport) TaxSummary {
	s := TaxSummary{
		Income:     sum(tr.Income),
		Deductions: sum(tr.Deductions),
		Taxable:    tr.TaxableIncome,
		Rate:       tr.TaxRate,
		Due:        tr.TaxDue,
		Paid:       tr.TaxPaid,
	}
	s.Balance = s.Due.Sub(s.Paid)
	s.Difference = s.Income.Sub(s.Deductions).Sub(s.Taxable)
	return s
}

func TaxTable(tr *api.TaxReport) Table {
	t := Table{Title: "Tax Report", Currency: tr.Currency}
	if tr.Year != 0 {
		t.Subtitle = "Tax year " + strconv.Itoa(tr.Year)
	}

	income, _ := section("Income", "Total Income", tr.Income)
	deductions, _ := section("Deductions", "Total Deductions", tr.Deductions)
	t.Rows = append(t.Rows, income...)
	t.Rows = append(t.Rows, deductions...)

	s := SummarizeTax(tr)
	t.Rows = append(t.Rows,
		Row{Kind: Total, Label: "Taxable Income", Amount: s.Taxable},
		Row{Kind: Note, Label: "Tax Rate", Text: s.Rate.Mul(decimal.NewFromInt(100)).String() + "%"},
		Row{Kind: Total, Label: "Tax Due", Amount: s.Due},
		Row{Kind: Item, Label: "Tax Paid", Amount: s.Paid},
	)
	label := "Balance Due"
	if s.Balance.IsNegative() {
		label = "Refund Due"
	}
	t.Rows = append(t.Rows, Row{Kind: Total, Label: label, Amount: s.Balance.Abs()})

	check := "matches items"
	if !s.Difference.IsZero() {
		check = "items net " + s.Income.Sub(s.Deductions).StringFixed(2) + ", reported " + s.Taxable.StringFixed(2)
	}
	t.Rows = append(t.Rows, Row{Kind: Note, Label: "Taxable income check", Text: check})
	return t
}

func asOf(date string) string {
	if date == "" {
		return ""
	}
	return "As of " + date
}

func period(start, end string) string {
	switch {
	case start != "" && end != "":
		return start + " to " + end
	case start != "":
		return "From " + start
	case end != "":
		return "Through " + end
	}
	return ""
}
