package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ConsoleReporter renders session reports as terminal tables
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a reporter writing to stdout
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterTo creates a reporter writing to the given writer
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// PrintTrades renders the trade log
func (r *ConsoleReporter) PrintTrades(log *TradeLog) {
	trades := log.Trades()
	if len(trades) == 0 {
		fmt.Fprintln(r.out, "No trades executed this session")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("SESSION TRADES")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Time", "Symbol", "Side", "Qty", "Price", "Stop Loss", "Take Profit", "Reason"})
	for _, tr := range trades {
		stop := "-"
		if tr.StopLoss != nil {
			stop = tr.StopLoss.String()
		}
		tp := "-"
		if tr.TakeProfit != nil {
			tp = tr.TakeProfit.String()
		}
		t.AppendRow(table.Row{
			tr.Time.Format("2006-01-02 15:04:05"),
			tr.Symbol,
			tr.Side,
			tr.Quantity.String(),
			tr.Price.String(),
			stop,
			tp,
			tr.Reason,
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignCenter},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	t.Render()
	fmt.Fprintln(r.out)
}

// PrintSummary renders the end-of-session summary
func (r *ConsoleReporter) PrintSummary(summary SessionSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("SESSION SUMMARY")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Start Balance", "$" + summary.StartBalance.StringFixed(2)},
		{"💰 End Balance", "$" + summary.EndBalance.StringFixed(2)},
		{"📈 PnL", "$" + summary.PnL().StringFixed(2)},
		{"📈 Return", summary.ReturnPct().StringFixed(2) + "%"},
	})

	t.AppendSeparator()

	t.AppendRows([]table.Row{
		{"🔄 Total Trades", summary.TotalTrades},
		{"🟢 Buys", summary.BuyTrades},
		{"🔴 Sells", summary.SellTrades},
		{"⏰ Started", summary.Started.Format("2006-01-02 15:04:05")},
		{"⏰ Ended", summary.Ended.Format("2006-01-02 15:04:05")},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 16, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 22, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Fprintln(r.out)
}
