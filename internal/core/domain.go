package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// RawRecord is one ledger row exactly as the storage collaborator yields it.
	RawRecord struct {
		Row      int // 1-based position in the source; 0 means "use the slice index"
		Date     string
		Amount   string
		Category string
		Payer    string
	}

	Date struct {
		time.Time
	}

	// Transaction is a validated ledger row with its derived calendar fields.
	Transaction struct {
		Date     Date
		Day      Date
		Month    string // YYYY-MM
		Amount   decimal.Decimal
		Category string
		Payer    string
	}

	// Budget holds the two thresholds the dashboard compares spend against.
	// Usage is measured against Ideal while overage is measured against Max.
	Budget struct {
		Ideal decimal.Decimal
		Max   decimal.Decimal
	}
)

var (
	ErrMalformedRecord     = errors.New("malformed record")
	ErrInvalidBudgetConfig = errors.New("invalid budget config")

	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyPayer    = errors.New("empty payer")
)

// RecordError describes which ledger row failed normalization and why.
// It matches both ErrMalformedRecord and the underlying cause with errors.Is.
type RecordError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed record at row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
}

func (e *RecordError) Unwrap() []error {
	return []error{ErrMalformedRecord, e.Err}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Truncate drops the time of day, keeping the calendar day of the original location.
func (d Date) Truncate() Date {
	y, m, day := d.Date()
	return Date{Time: time.Date(y, m, day, 0, 0, 0, 0, time.UTC)}
}

// DayKey returns the sortable YYYY-MM-DD label.
func (d Date) DayKey() string {
	return d.Format("2006-01-02")
}

// MonthKey returns the sortable YYYY-MM label.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// NewBudget parses the two thresholds. The result still has to pass Validate.
func NewBudget(ideal, maximum string) (Budget, error) {
	i, err := ParseAmount(ideal)
	if err != nil {
		return Budget{}, fmt.Errorf("%w: ideal budget %q: %v", ErrInvalidBudgetConfig, ideal, err)
	}
	m, err := ParseAmount(maximum)
	if err != nil {
		return Budget{}, fmt.Errorf("%w: max budget %q: %v", ErrInvalidBudgetConfig, maximum, err)
	}
	return Budget{Ideal: i, Max: m}, nil
}

func (b Budget) Validate() error {
	if !b.Ideal.IsPositive() {
		return fmt.Errorf("%w: ideal budget must be positive, got %s", ErrInvalidBudgetConfig, b.Ideal)
	}
	if !b.Max.IsPositive() {
		return fmt.Errorf("%w: max budget must be positive, got %s", ErrInvalidBudgetConfig, b.Max)
	}
	if b.Ideal.GreaterThanOrEqual(b.Max) {
		return fmt.Errorf("%w: ideal budget %s must be lower than max budget %s", ErrInvalidBudgetConfig, b.Ideal, b.Max)
	}
	return nil
}

// String renders the budget as a stable cache key.
func (b Budget) String() string {
	return b.Ideal.String() + "/" + b.Max.String()
}

// IsBlank reports whether a category or payer label carries no usable text.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
