package present

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")).Bold(true)
	amountStyle  = lipgloss.NewStyle().Bold(true)
	cardStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#6B7280")).Padding(0, 1)
)

// Renderer draws lists, cards and charts as terminal text.
type Renderer struct {
	Money CurrencyFormatter
	// Width bounds chart bars; zero means 40 columns.
	Width int
}

// Badge renders the category name in its chart color.
func Badge(c core.Category) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(CategoryColor(c))).Render(string(c))
}

// ErrorAlert renders a failure message line.
func ErrorAlert(msg string) string {
	return errorStyle.Render("✗ " + msg)
}

// SuccessAlert renders a confirmation line.
func SuccessAlert(msg string) string {
	return successStyle.Render("✓ " + msg)
}

// ExpenseList renders the list header followed by one block per expense.
func (r Renderer) ExpenseList(all, view []core.Expense, filter core.Filter) string {
	sum := Summarize(all, view, filter)
	var b strings.Builder

	if sum.Empty() {
		b.WriteString(titleStyle.Render(sum.EmptyTitle))
		b.WriteByte('\n')
		b.WriteString(mutedStyle.Render(sum.EmptyHint))
		b.WriteByte('\n')
		return b.String()
	}

	fmt.Fprintf(&b, "%s  %s  %s %s\n",
		titleStyle.Render(sum.Heading),
		labelStyle.Render(sum.CountLabel),
		labelStyle.Render("Total:"),
		valueStyle.Render(r.Money.Format(sum.Total)))

	for _, e := range view {
		fmt.Fprintf(&b, "\n#%d %s  [%s]  %s\n", e.ID, valueStyle.Render(e.Title), Badge(e.Category), amountStyle.Render(r.Money.Format(e.Amount)))
		if e.Description != "" {
			fmt.Fprintf(&b, "   %s\n", e.Description)
		}
		dates := FormatDate(e.ExpenseDate)
		if created := FormatTimestamp(e.CreatedAt); created != "" {
			dates += " • " + created
		}
		fmt.Fprintf(&b, "   %s\n", mutedStyle.Render(dates))
	}
	return b.String()
}

// Expense renders a single expense with every field.
func (r Renderer) Expense(e core.Expense) string {
	rows := [][2]string{
		{"ID", fmt.Sprint(e.ID)},
		{"Title", e.Title},
		{"Amount", r.Money.Format(e.Amount)},
		{"Category", Badge(e.Category)},
		{"Date", FormatDate(e.ExpenseDate)},
		{"Description", e.Description},
		{"Created", FormatTimestamp(e.CreatedAt)},
	}
	var b strings.Builder
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", row[0]+":")), row[1])
	}
	return b.String()
}

// Cards renders the statistics cards side by side.
func (r Renderer) Cards(stats *core.Statistics) string {
	cards := StatsCards(stats, r.Money)
	blocks := make([]string, 0, len(cards))
	for _, c := range cards {
		blocks = append(blocks, cardStyle.Render(labelStyle.Render(c.Title)+"\n"+valueStyle.Render(c.Value)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
}

// CategoryChart renders horizontal bars, one per category.
func (r Renderer) CategoryChart(totals core.CategoryTotals) string {
	series := CategorySeries(totals)
	if len(series) == 0 {
		return mutedStyle.Render("No category data available")
	}
	amounts := make([]decimal.Decimal, len(series))
	for i, s := range series {
		amounts[i] = s.Amount
	}
	bars := r.bars(amounts)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Expenses by Category"))
	b.WriteByte('\n')
	for i, s := range series {
		bar := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render(bars[i])
		fmt.Fprintf(&b, "%-15s %s %s (%s%%)\n", s.Category, bar, r.Money.Format(s.Amount), s.Percent.StringFixed(1))
	}
	return b.String()
}

// MonthlyChart renders one bar per month, oldest first.
func (r Renderer) MonthlyChart(totals core.MonthlyTotals) string {
	series := MonthlySeries(totals)
	if len(series) == 0 {
		return mutedStyle.Render("No monthly data available")
	}
	amounts := make([]decimal.Decimal, len(series))
	for i, p := range series {
		amounts[i] = p.Amount
	}
	bars := r.bars(amounts)

	barStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#3b82f6"))
	var b strings.Builder
	b.WriteString(titleStyle.Render("Monthly Spending"))
	b.WriteByte('\n')
	for i, p := range series {
		fmt.Fprintf(&b, "%-9s %s %s\n", p.Label, barStyle.Render(bars[i]), r.Money.Format(p.Amount))
	}
	return b.String()
}

// bars scales amounts to the renderer width; the largest gets the full width
// and any positive amount at least one cell.
func (r Renderer) bars(amounts []decimal.Decimal) []string {
	width := r.Width
	if width <= 0 {
		width = 40
	}
	top := decimal.Zero
	for _, a := range amounts {
		top = decimal.Max(top, a)
	}
	out := make([]string, len(amounts))
	for i, a := range amounts {
		n := 0
		if top.IsPositive() && a.IsPositive() {
			n = int(a.Div(top).Mul(decimal.NewFromInt(int64(width))).Round(0).IntPart())
			n = max(n, 1)
		}
		out[i] = strings.Repeat("█", n)
	}
	return out
}
