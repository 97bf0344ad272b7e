package periods

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PeriodStatus enumerates valid period states.
type PeriodStatus string

const (
	PeriodStatusOpen   PeriodStatus = "OPEN"
	PeriodStatusClosed PeriodStatus = "CLOSED"
	PeriodStatusLocked PeriodStatus = "LOCKED"
)

// Period represents a monthly accounting window, or the year-end record when Month is nil.
type Period struct {
	ID        int64
	TenantID  uuid.UUID
	Year      int
	Month     *int
	StartDate time.Time
	EndDate   time.Time
	Status    PeriodStatus
	ClosedAt  *time.Time
	ClosedBy  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key identifies a period by year and optional month.
type Key struct {
	Year  int
	Month int
}

// MonthKey builds the key of a calendar month.
func MonthKey(year, month int) Key {
	return Key{Year: year, Month: month}
}

// YearKey builds the key of a year-end record.
func YearKey(year int) Key {
	return Key{Year: year}
}

// KeyFor returns the month key containing date.
func KeyFor(date time.Time) Key {
	return Key{Year: date.Year(), Month: int(date.Month())}
}

// IsYear reports whether the key denotes the year-end record.
func (k Key) IsYear() bool {
	return k.Month == 0
}

// Validate checks the year and month ranges.
func (k Key) Validate() error {
	if k.Year < 1900 || k.Year > 9999 {
		return fmt.Errorf("periods: year %d out of range", k.Year)
	}
	if k.Month < 0 || k.Month > 12 {
		return fmt.Errorf("periods: month %d out of range", k.Month)
	}
	return nil
}

// Bounds returns the first and last calendar day covered by the key.
func (k Key) Bounds() (time.Time, time.Time) {
	if k.IsYear() {
		start := time.Date(k.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, time.Date(k.Year, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	start := time.Date(k.Year, time.Month(k.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, -1)
}

func (k Key) String() string {
	if k.IsYear() {
		return fmt.Sprintf("%04d", k.Year)
	}
	return fmt.Sprintf("%04d-%02d", k.Year, k.Month)
}

// Key returns the key of the period.
func (p Period) Key() Key {
	if p.Month == nil {
		return YearKey(p.Year)
	}
	return MonthKey(p.Year, *p.Month)
}

// New builds an OPEN period for key.
func New(tenantID uuid.UUID, key Key) Period {
	start, end := key.Bounds()
	p := Period{
		TenantID:  tenantID,
		Year:      key.Year,
		StartDate: start,
		EndDate:   end,
		Status:    PeriodStatusOpen,
	}
	if !key.IsYear() {
		month := key.Month
		p.Month = &month
	}
	return p
}

// AcceptsPosting reports whether journals dated inside the period may be created or posted.
func (p Period) AcceptsPosting() bool {
	return p.Status == PeriodStatusOpen
}

// DateOnly truncates t to a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
