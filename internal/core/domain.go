package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	General        Category = "General"
	Food           Category = "Food"
	Transportation Category = "Transportation"
	Entertainment  Category = "Entertainment"
	Healthcare     Category = "Healthcare"
	Shopping       Category = "Shopping"
	Utilities      Category = "Utilities"
	Education      Category = "Education"
	Travel         Category = "Travel"
)

// All is the filter sentinel that selects every expense.
const All Filter = "All"

const dateLayout = "2006-01-02"

type (
	// Category is one label from the fixed expense classification.
	Category string

	// Filter is either All or exactly one Category.
	Filter string

	// Date is a calendar day without a time zone.
	Date struct {
		time.Time
	}

	// Timestamp accepts RFC 3339 as well as zone-less local date-times.
	Timestamp struct {
		time.Time
	}

	// Expense is a server-owned spending record. ID and CreatedAt are assigned
	// by the backend and never change.
	Expense struct {
		ID          int64           `json:"id"`
		Title       string          `json:"title"`
		Description string          `json:"description,omitempty"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		ExpenseDate Date            `json:"expenseDate"`
		CreatedAt   Timestamp       `json:"createdAt"`
		UpdatedAt   Timestamp       `json:"updatedAt"`
	}

	// ExpenseInput carries the editable fields sent on create and update.
	ExpenseInput struct {
		Title       string          `json:"title"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"`
		Category    Category        `json:"category"`
		ExpenseDate Date            `json:"expenseDate"`
	}

	// Statistics is the aggregate snapshot computed by the server.
	Statistics struct {
		TotalExpenses     decimal.Decimal `json:"totalExpenses"`
		CurrentMonthTotal decimal.Decimal `json:"currentMonthTotal"`
		TotalCount        int64           `json:"totalCount"`
		AverageExpense    decimal.Decimal `json:"averageExpense"`
	}

	// CategoryTotals maps a category to the sum of its expenses. Only
	// categories with at least one expense are present.
	CategoryTotals map[Category]decimal.Decimal

	// MonthlyTotals maps a "YYYY-MM" key to the sum of that month's expenses.
	MonthlyTotals map[string]decimal.Decimal
)

var (
	ErrEmptyTitle      = errors.New("Title is required")
	ErrInvalidAmount   = errors.New("Amount must be greater than 0")
	ErrMissingDate     = errors.New("Date is required")
	ErrUnknownCategory = errors.New("unknown category")
	ErrTitleTooLong    = errors.New("Title cannot exceed 255 characters")
	ErrDescTooLong     = errors.New("Description cannot exceed 1000 characters")
)

var categories = []Category{
	General, Food, Transportation, Entertainment, Healthcare,
	Shopping, Utilities, Education, Travel,
}

// Categories returns the enumeration in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// Valid reports whether c belongs to the enumeration.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory matches s against the enumeration ignoring case.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range categories {
		if strings.EqualFold(s, string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// ParseFilter accepts "All" (or an empty string) and any category name.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(All)) {
		return All, nil
	}
	c, err := ParseCategory(s)
	if err != nil {
		return "", err
	}
	return FilterFor(c), nil
}

// FilterFor selects exactly one category.
func FilterFor(c Category) Filter { return Filter(c) }

// IsAll reports whether the filter is the All sentinel.
func (f Filter) IsAll() bool { return f == All || f == "" }

// Matches uses strict equality; unknown categories never fall back to General.
func (f Filter) Matches(e Expense) bool {
	if f.IsAll() {
		return true
	}
	return string(e.Category) == string(f)
}

func (f Filter) String() string {
	if f == "" {
		return string(All)
	}
	return string(f)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MonthKey returns the "YYYY-MM" bucket the date falls into.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	// Some backends serialise LocalDate as a full timestamp.
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339Nano) + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			*t = Timestamp{Time: parsed}
			return nil
		}
	}
	return fmt.Errorf("parse timestamp %q", s)
}

// Validate applies the expense form rules. The first failing rule wins.
func (in ExpenseInput) Validate() error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > 255 {
		return ErrTitleTooLong
	}
	if len(in.Description) > 1000 {
		return ErrDescTooLong
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if in.ExpenseDate.IsZero() {
		return ErrMissingDate
	}
	if in.Category != "" && !in.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, in.Category)
	}
	return nil
}

// Normalized trims text fields and defaults the category to General.
func (in ExpenseInput) Normalized() ExpenseInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Category == "" {
		in.Category = General
	}
	return in
}

// Input returns the editable fields of e, used to prefill an edit form.
func (e Expense) Input() ExpenseInput {
	return ExpenseInput{
		Title:       e.Title,
		Description: e.Description,
		Amount:      e.Amount,
		Category:    e.Category,
		ExpenseDate: e.ExpenseDate,
	}
}
