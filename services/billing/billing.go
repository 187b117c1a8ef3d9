// Package billing holds the fee arithmetic shared by the payment endpoints,
// the student endpoints and the spreadsheet import. All money is THB.
package billing

import (
	"fmt"
	"strconv"
	"time"
)

// RegistrationFee is the flat one-time enrollment charge. It is intentionally
// independent of the per-grade registration fee shown on the settings page.
const RegistrationFee = 535.0

// Settings are the school-wide billing knobs stored in admin_settings.
type Settings struct {
	// CollectionDay is when staff go collecting. Informational only, it
	// never changes an amount.
	CollectionDay int
	// LateFeeAfterDay is the day of the month after which a prepaid
	// payment counts as late.
	LateFeeAfterDay int
	// LateFeeAmount is the flat surcharge applied once a payment is late.
	LateFeeAmount float64
}

// DefaultSettings are used whenever the stored values are missing or
// unreadable.
func DefaultSettings() Settings {
	return Settings{
		CollectionDay:   18,
		LateFeeAfterDay: 25,
		LateFeeAmount:   50,
	}
}

// PerSubjectFee returns the monthly rate for one subject at the given grade.
// Kindergarten levels and grades 1-6 bill at the primary rate, grades 7-12 at
// the secondary rate. Unknown grades fall back to the primary rate.
func PerSubjectFee(grade string) float64 {
	switch grade {
	case "K", "PK1", "PK2":
		return 1700
	}
	n, err := strconv.Atoi(grade)
	if err != nil {
		return 1700
	}
	if n >= 7 {
		return 1800
	}
	return 1700
}

// MonthlyFee is the standard tuition for a student: per-subject rate times the
// subject count, with a floor of one subject so an empty list still bills.
func MonthlyFee(grade string, subjectCount int) float64 {
	if subjectCount < 1 {
		subjectCount = 1
	}
	return PerSubjectFee(grade) * float64(subjectCount)
}

// ParseMonth parses a YYYY-MM key into its first day, local time.
func ParseMonth(month string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01", month, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return t, nil
}

// FormatMonth renders a YYYY-MM key for display, e.g. "September 2025".
// Unparseable keys come back unchanged.
func FormatMonth(month string) string {
	t, err := ParseMonth(month)
	if err != nil {
		return month
	}
	return t.Format("January 2006")
}

// MonthKey returns the YYYY-MM key for a point in time.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

// CurrentMonth returns this month's key.
func CurrentMonth() string {
	return MonthKey(time.Now())
}

// NextMonthKey returns the key of the month after the one containing t.
// Anchored to the first of the month: AddDate on a day-of-month that the
// next month lacks (Aug 31, Jan 30) would normalize past it.
func NextMonthKey(t time.Time) string {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return MonthKey(first.AddDate(0, 1, 0))
}

// MonthsOfYear lists the twelve keys of a calendar year in order.
func MonthsOfYear(year int) []string {
	months := make([]string, 0, 12)
	for m := 1; m <= 12; m++ {
		months = append(months, fmt.Sprintf("%04d-%02d", year, m))
	}
	return months
}

// DueDate returns the prepaid deadline for a billing month: day
// lateFeeAfterDay of the month BEFORE it. Tuition for September is due in
// late August. When the previous month is too short for the configured day,
// time.Date normalization rolls the deadline into the following days, which
// is the documented behavior.
func DueDate(month string, lateFeeAfterDay int) (time.Time, error) {
	start, err := ParseMonth(month)
	if err != nil {
		return time.Time{}, err
	}
	prev := start.AddDate(0, -1, 0)
	return time.Date(prev.Year(), prev.Month(), lateFeeAfterDay, 0, 0, 0, 0, time.Local), nil
}

// atMidnight truncates to the local calendar date so lateness is decided per
// day, not per clock tick.
func atMidnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// LateFee returns the surcharge for paying baseAmount on evalDate.
//
// With a billing month set this is the prepaid rule: a flat cfg.LateFeeAmount
// once evalDate is strictly past the due date, zero otherwise. Paying on the
// due date itself is on time.
//
// With no billing month the pre-migration rule applies: legacyRate is owed
// from day cfg.LateFeeAfterDay of evalDate's own month onward. Old unpaid
// rows are the only callers of that path.
func LateFee(baseAmount, legacyRate float64, evalDate time.Time, cfg Settings, month string) float64 {
	_ = baseAmount // the prepaid surcharge is flat, not proportional

	if month != "" {
		due, err := DueDate(month, cfg.LateFeeAfterDay)
		if err != nil {
			return 0
		}
		if atMidnight(evalDate).After(atMidnight(due)) {
			return cfg.LateFeeAmount
		}
		return 0
	}

	monthStart := time.Date(evalDate.Year(), evalDate.Month(), 1, 0, 0, 0, 0, evalDate.Location())
	cutoff := monthStart.AddDate(0, 0, cfg.LateFeeAfterDay-1)
	if atMidnight(evalDate).Before(cutoff) {
		return 0
	}
	return legacyRate
}

// IsLate reports whether an unpaid row for month is overdue as of now. Used
// by the missing-payments reports; the cutoff here sits inside the month
// itself.
func IsLate(month string, cfg Settings, now time.Time) bool {
	start, err := ParseMonth(month)
	if err != nil {
		return false
	}
	cutoff := time.Date(start.Year(), start.Month(), cfg.LateFeeAfterDay, 0, 0, 0, 0, time.Local)
	return atMidnight(now).After(atMidnight(cutoff))
}

// Charge is the full breakdown of one payment.
type Charge struct {
	EffectiveAmount float64 `json:"effective_amount"`
	LateFee         float64 `json:"late_fee"`
	RegistrationFee float64 `json:"registration_fee"`
	Total           float64 `json:"total"`
}

// Options modify a charge. Zero value bills a plain full month.
type Options struct {
	HalfMonth         bool
	Registration      bool
	WaiveRegistration bool
}

// Compute builds the charge for baseAmount paid on evalDate toward month.
// Order matters: the half-month discount applies first, the late fee is
// assessed on the discounted amount, then the registration fee joins the
// total.
func Compute(baseAmount float64, opts Options, evalDate time.Time, cfg Settings, month string) Charge {
	effective := baseAmount
	if opts.HalfMonth {
		effective = baseAmount / 2
	}

	var ch Charge
	ch.EffectiveAmount = effective
	ch.LateFee = LateFee(effective, 0, evalDate, cfg, month)
	if opts.Registration && !opts.WaiveRegistration {
		ch.RegistrationFee = RegistrationFee
	}
	ch.Total = ch.EffectiveAmount + ch.RegistrationFee + ch.LateFee
	return ch
}
