package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// amountNumFmt is the built-in "#,##0.00" format.
const amountNumFmt = 4

// Workbook builds an xlsx file with one sheet per table. The amount column
// holds numbers, not text; subtotals and totals are SUM formulas over the rows
// they add up, so the sheet stays consistent when an item is edited.
func Workbook(tables ...Table) (*excelize.File, error) {
	f := excelize.NewFile()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})
	if err != nil {
		f.Close()
		return nil, err
	}
	boldAmount, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt, Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	for i, t := range tables {
		sheet := sheetName(t.Title, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				f.Close()
				return nil, err
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			f.Close()
			return nil, err
		}
		if err := writeSheet(f, sheet, t, bold, amount, boldAmount); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", sheet, err)
		}
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, t Table, bold, amount, boldAmount int) error {
	row := 1
	set := func(col string, v interface{}) error {
		return f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
	}
	style := func(col string, id int) error {
		cell := fmt.Sprintf("%s%d", col, row)
		return f.SetCellStyle(sheet, cell, cell, id)
	}

	if err := set("A", t.Title); err != nil {
		return err
	}
	if err := style("A", bold); err != nil {
		return err
	}
	row++
	if t.Subtitle != "" {
		if err := set("A", t.Subtitle); err != nil {
			return err
		}
		row++
	}
	if t.Currency != "" {
		if err := set("A", "Currency: "+t.Currency); err != nil {
			return err
		}
		row++
	}
	row++

	for _, r := range t.Rows {
		label := r.Label
		if r.Kind == Item {
			label = "  " + label
		}
		if err := set("A", label); err != nil {
			return err
		}
		switch r.Kind {
		case Heading:
			if err := style("A", bold); err != nil {
				return err
			}
		case Item:
			if err := setAmount(set, style, r, amount); err != nil {
				return err
			}
		case Subtotal, Total:
			if err := style("A", bold); err != nil {
				return err
			}
			if err := setAmount(set, style, r, boldAmount); err != nil {
				return err
			}
			if formula := sumFormula(row, r.Adds); formula != "" {
				if err := f.SetCellFormula(sheet, fmt.Sprintf("B%d", row), formula); err != nil {
					return err
				}
			}
		case Note:
			if err := set("B", r.Text); err != nil {
				return err
			}
		}
		row++
	}

	if err := f.SetColWidth(sheet, "A", "A", 42); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "B", 18)
}

func setAmount(set func(string, interface{}) error, style func(string, int) error, r Row, id int) error {
	if err := set("B", r.Amount.InexactFloat64()); err != nil {
		return err
	}
	return style("B", id)
}

// sumFormula adds the amount cells at the given offsets from row; a run of
// adjacent rows becomes a range.
func sumFormula(row int, adds []int) string {
	if len(adds) == 0 {
		return ""
	}
	contiguous := true
	for i := 1; i < len(adds); i++ {
		if adds[i] != adds[i-1]+1 {
			contiguous = false
			break
		}
	}
	if contiguous && len(adds) > 1 {
		return fmt.Sprintf("SUM(B%d:B%d)", row+adds[0], row+adds[len(adds)-1])
	}
	refs := make([]string, len(adds))
	for i, o := range adds {
		refs[i] = fmt.Sprintf("B%d", row+o)
	}
	return "SUM(" + strings.Join(refs, ",") + ")"
}

// sheetName fits Excel's 31 character limit.
func sheetName(title string, i int) string {
	if title == "" {
		title = fmt.Sprintf("Report %d", i+1)
	}
	if len(title) > 31 {
		title = title[:31]
	}
	return title
}

// WriteXLSX writes the workbook for tables to w.
func WriteXLSX(w io.Writer, tables ...Table) error {
	f, err := Workbook(tables...)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

// SaveXLSX writes the workbook to path.
func SaveXLSX(path string, tables ...Table) error {
	f, err := Workbook(tables...)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.SaveAs(path)
}

// SavePDF writes backend-rendered PDF bytes to path.
func SavePDF(path string, pdf []byte) error {
	return os.WriteFile(path, pdf, 0o644)
}
