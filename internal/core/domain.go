package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed expense categories shared by both partners.
type Category string

const (
	CategoryHousing   Category = "housing"
	CategoryGroceries Category = "groceries"
	CategoryTransport Category = "transport"
	CategoryDining    Category = "dining"
	CategoryHealth    Category = "health"
	CategoryLeisure   Category = "leisure"
	CategoryTravel    Category = "travel"
	CategoryKids      Category = "kids"
	CategoryGifts     Category = "gifts"
	CategoryBills     Category = "bills"
	CategoryOther     Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryHousing,
	CategoryGroceries,
	CategoryTransport,
	CategoryDining,
	CategoryHealth,
	CategoryLeisure,
	CategoryTravel,
	CategoryKids,
	CategoryGifts,
	CategoryBills,
	CategoryOther,
}

// IsValid reports whether c belongs to the closed category set.
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory converts a form value into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

type (
	Date struct {
		time.Time
	}

	// Period identifies one calendar month.
	Period struct {
		Year  int
		Month time.Month
	}

	Expense struct {
		ID          int64
		UserID      string
		Date        Date
		Description string
		Amount      decimal.Decimal
		Category    Category
		Shared      bool // visible to the linked partner
	}

	Budget struct {
		ID       int64
		UserID   string
		Category Category
		Period   Period
		Limit    decimal.Decimal
	}

	Debt struct {
		ID             int64
		UserID         string
		Name           string
		TotalAmount    decimal.Decimal
		MonthlyPayment decimal.Decimal
		DueDay         int
		StartDate      Date
	}

	Goal struct {
		ID            int64
		UserID        string
		Name          string
		TargetAmount  decimal.Decimal
		CurrentAmount decimal.Decimal
		Deadline      Date
		Primary       bool
	}

	// AchievementType names an entry of the closed achievement catalog.
	AchievementType string

	Achievement struct {
		UserID   string
		Type     AchievementType
		EarnedAt time.Time
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyName          = errors.New("empty name")
	ErrMissingUser        = errors.New("missing user id")
	ErrDeadlineNotFuture  = errors.New("deadline must be in the future")
	ErrGoalAboveTarget    = errors.New("current amount exceeds target")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD form value.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// DaysUntil returns the whole days from d to other; negative when other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int(other.Time.Sub(d.Time).Hours() / 24)
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// NewPeriod builds a period, rejecting months outside 1-12.
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ErrInvalidMonth
	}
	return Period{Year: year, Month: time.Month(month)}, nil
}

// Contains reports whether the day falls inside the period.
func (p Period) Contains(d Date) bool {
	return d.Year() == p.Year && d.Month() == p.Month
}

// Start is the first day of the period.
func (p Period) Start() Date {
	return Date{Time: time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)}
}

// End is the first day of the following period.
func (p Period) End() Date {
	return Date{Time: time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC)}
}

// Previous returns the month before p.
func (p Period) Previous() Period {
	return PeriodOf(time.Date(p.Year, p.Month-1, 1, 0, 0, 0, 0, time.UTC))
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.UserID) == "" {
		return ErrMissingUser
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if !InRange(e.Amount) {
		return ErrInvalidAmount
	}
	if !e.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return ErrMissingUser
	}
	if !b.Category.IsValid() {
		return ErrInvalidCategory
	}
	if b.Period.Month < 1 || b.Period.Month > 12 {
		return ErrInvalidMonth
	}
	if b.Limit.IsNegative() || b.Limit.GreaterThan(MaxAmount) {
		return ErrInvalidAmount
	}
	return nil
}

func (d Debt) Validate() error {
	if strings.TrimSpace(d.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if !InRange(d.TotalAmount) || !InRange(d.MonthlyPayment) {
		return ErrInvalidAmount
	}
	if d.DueDay < 1 || d.DueDay > 31 {
		return ErrInvalidDay
	}
	if err := d.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !InRange(g.TargetAmount) || g.CurrentAmount.IsNegative() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.GreaterThan(g.TargetAmount) {
		return ErrGoalAboveTarget
	}
	if err := g.Deadline.Validate(); err != nil {
		return fmt.Errorf("invalid deadline: %w", err)
	}
	return nil
}

// ValidateNew applies the creation-time rules on top of Validate.
func (g Goal) ValidateNew(today Date) error {
	if err := g.Validate(); err != nil {
		return err
	}
	if !g.Deadline.After(today.Time) {
		return ErrDeadlineNotFuture
	}
	return nil
}
