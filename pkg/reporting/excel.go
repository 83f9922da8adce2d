package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExcelReporter exports the session trade log as an XLSX workbook
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	Header   int
	Number   int
	Currency int
}

// WriteSessionXLSX writes the trade log and session summary to path
func (r *ExcelReporter) WriteSessionXLSX(log *TradeLog, summary SessionSummary, path string) error {
	// Ensure directory exists before creating file
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const summarySheet = "Summary"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	fx.NewSheet(summarySheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, tradesSheet, log, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, summarySheet, summary, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	// Header style - dark background with white text
	styles.Header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.Number, err = fx.NewStyle(&excelize.Style{
		NumFmt: 4, // #,##0.00
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.Currency, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7, // Currency format with $ symbol
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, log *TradeLog, styles excelStyles) error {
	headers := []string{"Time", "Symbol", "Side", "Quantity", "Price", "Stop Loss", "Take Profit", "Reason"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, cell, cell, styles.Header); err != nil {
			return err
		}
	}

	for row, tr := range log.Trades() {
		values := []interface{}{
			tr.Time.Format("2006-01-02 15:04:05"),
			tr.Symbol,
			tr.Side,
			tr.Quantity.InexactFloat64(),
			tr.Price.InexactFloat64(),
		}
		if tr.StopLoss != nil {
			values = append(values, tr.StopLoss.InexactFloat64())
		} else {
			values = append(values, "")
		}
		if tr.TakeProfit != nil {
			values = append(values, tr.TakeProfit.InexactFloat64())
		} else {
			values = append(values, "")
		}
		values = append(values, tr.Reason)

		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
			if col >= 3 && col <= 6 {
				if err := fx.SetCellStyle(sheet, cell, cell, styles.Number); err != nil {
					return err
				}
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "H", 18)
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, summary SessionSummary, styles excelStyles) error {
	rows := []struct {
		label    string
		value    interface{}
		currency bool
	}{
		{"Start Balance", summary.StartBalance.InexactFloat64(), true},
		{"End Balance", summary.EndBalance.InexactFloat64(), true},
		{"PnL", summary.PnL().InexactFloat64(), true},
		{"Return %", summary.ReturnPct().InexactFloat64(), false},
		{"Total Trades", summary.TotalTrades, false},
		{"Buys", summary.BuyTrades, false},
		{"Sells", summary.SellTrades, false},
		{"Started", summary.Started.Format("2006-01-02 15:04:05"), false},
		{"Ended", summary.Ended.Format("2006-01-02 15:04:05"), false},
	}

	for i, row := range rows {
		labelCell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		valueCell, err := excelize.CoordinatesToCellName(2, i+1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, labelCell, row.label); err != nil {
			return err
		}
		if err := fx.SetCellStyle(sheet, labelCell, labelCell, styles.Header); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, valueCell, row.value); err != nil {
			return err
		}
		if row.currency {
			if err := fx.SetCellStyle(sheet, valueCell, valueCell, styles.Currency); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "B", 22)
}
