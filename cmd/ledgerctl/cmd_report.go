package main

import (
	"context"
	"fmt"

	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/client/report"

	"github.com/spf13/pflag"
)

func reportCommand(ctx context.Context, getApp appFunc) *Command {
	return &Command{
		Name:    "report",
		Summary: "Show or export financial reports",
		Subcommands: []*Command{
			reportKind(ctx, getApp, "balance-sheet", "Balance sheet", api.PDFBalanceSheet,
				func(a *app, q api.ReportQuery) (report.Table, error) {
					bs, err := a.api.BalanceSheet(ctx, q)
					if err != nil {
						return report.Table{}, err
					}
					return report.BalanceSheetTable(bs), nil
				}),
			reportKind(ctx, getApp, "cash-flow", "Cash flow statement", api.PDFCashFlow,
				func(a *app, q api.ReportQuery) (report.Table, error) {
					cf, err := a.api.CashFlow(ctx, q)
					if err != nil {
						return report.Table{}, err
					}
					return report.CashFlowTable(cf), nil
				}),
			reportKind(ctx, getApp, "tax", "Tax report", api.PDFTaxReport,
				func(a *app, q api.ReportQuery) (report.Table, error) {
					tr, err := a.api.TaxReport(ctx, q)
					if err != nil {
						return report.Table{}, err
					}
					return report.TaxTable(tr), nil
				}),
		},
	}
}

func reportKind(ctx context.Context, getApp appFunc, name, summary, pdfFamily string, fetch func(*app, api.ReportQuery) (report.Table, error)) *Command {
	var q api.ReportQuery
	var xlsxPath, pdfPath string
	return &Command{
		Name:    name,
		Summary: summary,
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
			fs.StringVar(&q.AsOf, "as-of", "", "report date (YYYY-MM-DD)")
			fs.StringVar(&q.Start, "from", "", "period start (YYYY-MM-DD)")
			fs.StringVar(&q.End, "to", "", "period end (YYYY-MM-DD)")
			fs.IntVar(&q.Year, "year", 0, "tax year")
			fs.StringVar(&xlsxPath, "xlsx", "", "also write an Excel workbook to this file")
			fs.StringVar(&pdfPath, "pdf", "", "also save the server's PDF to this file")
			return fs
		},
		Run: func(args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			t, err := fetch(a, q)
			if err != nil {
				return err
			}
			fmt.Print(report.Render(t))

			if xlsxPath != "" {
				if err := report.SaveXLSX(xlsxPath, t); err != nil {
					return fmt.Errorf("excel export: %w", err)
				}
				fmt.Printf("Saved %s\n", xlsxPath)
			}
			if pdfPath != "" {
				pdf, err := a.api.ReportPDF(ctx, pdfFamily, q)
				if err != nil {
					return fmt.Errorf("pdf export: %w", err)
				}
				if err := report.SavePDF(pdfPath, pdf); err != nil {
					return err
				}
				fmt.Printf("Saved %s\n", pdfPath)
			}
			return nil
		},
	}
}
