package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// LineItem is one pre-computed figure of a report.
type LineItem struct {
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
}

type BalanceSheet struct {
	AsOf        string     `json:"as_of"`
	Currency    string     `json:"currency"`
	Assets      []LineItem `json:"assets"`
	Liabilities []LineItem `json:"liabilities"`
	Equity      []LineItem `json:"equity"`
}

type CashFlow struct {
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Currency    string          `json:"currency"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
	Operating   []LineItem      `json:"operating"`
	Investing   []LineItem      `json:"investing"`
	Financing   []LineItem      `json:"financing"`
}

type TaxReport struct {
	Year          int             `json:"year"`
	Currency      string          `json:"currency"`
	Income        []LineItem      `json:"income"`
	Deductions    []LineItem      `json:"deductions"`
	TaxableIncome decimal.Decimal `json:"taxable_income"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
	TaxDue        decimal.Decimal `json:"tax_due"`
	TaxPaid       decimal.Decimal `json:"tax_paid"`
}

// ReportQuery narrows a report; empty fields are omitted.
type ReportQuery struct {
	AsOf  string
	Start string
	End   string
	Year  int
}

func (q ReportQuery) encode() string {
	v := url.Values{}
	if q.AsOf != "" {
		v.Set("as_of", q.AsOf)
	}
	if q.Start != "" {
		v.Set("start_date", q.Start)
	}
	if q.End != "" {
		v.Set("end_date", q.End)
	}
	if q.Year != 0 {
		v.Set("year", fmt.Sprint(q.Year))
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) BalanceSheet(ctx context.Context, q ReportQuery) (*BalanceSheet, error) {
	var out BalanceSheet
	if err := c.get(ctx, "/balance-sheet/"+q.encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CashFlow(ctx context.Context, q ReportQuery) (*CashFlow, error) {
	var out CashFlow
	if err := c.get(ctx, "/cash-flow/"+q.encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TaxReport(ctx context.Context, q ReportQuery) (*TaxReport, error) {
	var out TaxReport
	if err := c.get(ctx, "/tax-reports/"+q.encode(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Report PDF families.
const (
	PDFBalanceSheet = "/balance-sheet/pdf/"
	PDFCashFlow     = "/cash-flow/pdf/"
	PDFTaxReport    = "/tax-reports/pdf/"
)

// ReportPDF fetches a backend-rendered PDF and returns the decoded bytes.
func (c *Client) ReportPDF(ctx context.Context, family string, q ReportQuery) ([]byte, error) {
	body, err := c.raw(ctx, http.MethodGet, family+q.encode(), nil)
	if err != nil {
		return nil, err
	}
	return decodePDF(payload(body))
}

func decodePDF(data []byte) ([]byte, error) {
	var out struct {
		PDF       string `json:"pdf"`
		PDFBase64 string `json:"pdf_base64"`
		File      string `json:"file"`
	}
	encoded := ""
	if err := json.Unmarshal(data, &out); err == nil {
		for _, s := range []string{out.PDF, out.PDFBase64, out.File} {
			if s != "" {
				encoded = s
				break
			}
		}
	} else {
		// a bare JSON string
		_ = json.Unmarshal(data, &encoded)
	}
	if encoded == "" {
		return nil, errors.New("response carries no pdf")
	}
	if i := strings.Index(encoded, "base64,"); i >= 0 {
		encoded = encoded[i+len("base64,"):]
	}

	pdf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode pdf: %w", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return nil, errors.New("decoded file is not a pdf")
	}
	return pdf, nil
}
