package services

import (
	"errors"
	"fmt"
	"time"

	"schoolfees_go/database"
	"schoolfees_go/models"
	"schoolfees_go/services/billing"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrPaymentValidation indicates a user-facing validation error on a payment operation
var ErrPaymentValidation = errors.New("payment validation error")

// PaymentService owns the payment lifecycle: lazy row creation, recording
// payments and reverting them.
type PaymentService struct {
	settings *SettingsService
}

func NewPaymentService() *PaymentService {
	return &PaymentService{settings: NewSettingsService()}
}

func paymentValidationError(message string) error {
	return fmt.Errorf("%w: %s", ErrPaymentValidation, message)
}

// EnsureMonth makes sure every active student has a payment row for month and
// returns the rows with students preloaded. Unpaid rows are re-synced to the
// student's current monthly fee so a subject change before payment shows the
// up-to-date amount.
func (s *PaymentService) EnsureMonth(month string) ([]models.Payment, error) {
	if _, err := billing.ParseMonth(month); err != nil {
		return nil, paymentValidationError(err.Error())
	}

	var students []models.Student
	if err := database.DB.Find(&students).Error; err != nil {
		return nil, err
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		for _, st := range students {
			var p models.Payment
			err := tx.Where("student_id = ? AND month = ?", st.ID, month).First(&p).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				p = models.Payment{
					StudentID:   st.ID,
					Month:       month,
					Amount:      st.MonthlyFee,
					TotalAmount: st.MonthlyFee,
				}
				if err := tx.Create(&p).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				if !p.IsPaid && p.Amount != st.MonthlyFee {
					if err := tx.Model(&p).Updates(map[string]interface{}{
						"amount":       st.MonthlyFee,
						"total_amount": st.MonthlyFee,
					}).Error; err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var payments []models.Payment
	if err := database.DB.Preload("Student").Where("month = ?", month).
		Joins("JOIN students ON students.id = payments.student_id AND students.deleted_at IS NULL").
		Order("payments.id").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

// EnsureMonthForAll is the scheduler entry point; it creates the rows and
// drops the result.
func (s *PaymentService) EnsureMonthForAll(month string) error {
	_, err := s.EnsureMonth(month)
	return err
}

// PayOptions are the checkboxes on the record-payment form.
type PayOptions struct {
	HalfMonth         bool   `json:"half_month"`
	Registration      bool   `json:"registration"`
	WaiveRegistration bool   `json:"waive_registration"`
	PaymentMethod     string `json:"payment_method"`
	Reference         string `json:"reference"`
}

// Preview computes the charge for a payment as of now without writing
// anything. This backs the amount shown on the form before confirmation.
func (s *PaymentService) Preview(paymentID uint, opts PayOptions) (*models.Payment, billing.Charge, error) {
	var p models.Payment
	if err := database.DB.Preload("Student").First(&p, paymentID).Error; err != nil {
		return nil, billing.Charge{}, err
	}
	cfg := s.settings.BillingSettings()
	ch := billing.Compute(p.Amount, billing.Options{
		HalfMonth:         opts.HalfMonth,
		Registration:      opts.Registration,
		WaiveRegistration: opts.WaiveRegistration,
	}, time.Now(), cfg, p.Month)
	return &p, ch, nil
}

// MarkPaid records a payment. The stored amounts are exactly what the
// calculator produced at this moment; later settings changes never touch a
// paid row.
func (s *PaymentService) MarkPaid(paymentID uint, opts PayOptions) (*models.Payment, error) {
	var p models.Payment
	if err := database.DB.Preload("Student").First(&p, paymentID).Error; err != nil {
		return nil, err
	}
	if p.IsPaid {
		return nil, paymentValidationError("payment already recorded")
	}
	if opts.PaymentMethod == "" {
		opts.PaymentMethod = "cash"
	}

	cfg := s.settings.BillingSettings()
	now := time.Now()
	ch := billing.Compute(p.Amount, billing.Options{
		HalfMonth:         opts.HalfMonth,
		Registration:      opts.Registration,
		WaiveRegistration: opts.WaiveRegistration,
	}, now, cfg, p.Month)

	updates := map[string]interface{}{
		"amount":                 ch.EffectiveAmount,
		"late_fee":               ch.LateFee,
		"total_amount":           ch.Total,
		"is_paid":                true,
		"paid_at":                now,
		"payment_method":         opts.PaymentMethod,
		"reference":              opts.Reference,
		"is_registration":        opts.Registration,
		"waive_registration_fee": opts.Registration && opts.WaiveRegistration,
		"is_half_month":          opts.HalfMonth,
	}
	if err := database.DB.Model(&p).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := database.DB.Preload("Student").First(&p, p.ID).Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": p.ID,
		"student_id": p.StudentID,
		"month":      p.Month,
		"total":      p.TotalAmount,
	}).Info("Payment recorded")
	return &p, nil
}

// MarkUnpaid reverts a recorded payment back to the pristine unpaid state at
// the student's current monthly fee.
func (s *PaymentService) MarkUnpaid(paymentID uint) (*models.Payment, error) {
	var p models.Payment
	if err := database.DB.Preload("Student").First(&p, paymentID).Error; err != nil {
		return nil, err
	}
	if !p.IsPaid {
		return nil, paymentValidationError("payment is not recorded")
	}

	updates := map[string]interface{}{
		"amount":                 p.Student.MonthlyFee,
		"late_fee":               0,
		"total_amount":           p.Student.MonthlyFee,
		"is_paid":                false,
		"paid_at":                nil,
		"payment_method":         "",
		"reference":              "",
		"is_registration":        false,
		"waive_registration_fee": false,
		"is_half_month":          false,
	}
	if err := database.DB.Model(&p).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := database.DB.Preload("Student").First(&p, p.ID).Error; err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"payment_id": p.ID,
		"student_id": p.StudentID,
		"month":      p.Month,
	}).Info("Payment reverted to unpaid")
	return &p, nil
}

// MonthStats is the dashboard block for a single month.
type MonthStats struct {
	Month        string   `json:"month"`
	MonthLabel   string   `json:"month_label"`
	PaidCount    int      `json:"paid_count"`
	UnpaidCount  int      `json:"unpaid_count"`
	PaidAmount   float64  `json:"paid_amount"`
	UnpaidAmount float64  `json:"unpaid_amount"`
	PaidNames    []string `json:"paid_names"`
	UnpaidNames  []string `json:"unpaid_names"`
}

// StatsForMonth aggregates a month, creating missing rows first so the counts
// always cover every enrolled student.
func (s *PaymentService) StatsForMonth(month string) (*MonthStats, error) {
	payments, err := s.EnsureMonth(month)
	if err != nil {
		return nil, err
	}

	stats := &MonthStats{
		Month:       month,
		MonthLabel:  billing.FormatMonth(month),
		PaidNames:   []string{},
		UnpaidNames: []string{},
	}
	for _, p := range payments {
		if p.IsPaid {
			stats.PaidCount++
			stats.PaidAmount += p.TotalAmount
			stats.PaidNames = append(stats.PaidNames, p.Student.Name)
		} else {
			stats.UnpaidCount++
			stats.UnpaidAmount += p.TotalAmount
			stats.UnpaidNames = append(stats.UnpaidNames, p.Student.Name)
		}
	}
	return stats, nil
}

// StatsForYear aggregates all twelve months of a calendar year. Only months
// that already have rows are summed; the yearly view must not fabricate
// twelve months of rows for every student.
func (s *PaymentService) StatsForYear(year int) ([]MonthStats, error) {
	out := make([]MonthStats, 0, 12)
	for _, month := range billing.MonthsOfYear(year) {
		var payments []models.Payment
		if err := database.DB.Preload("Student").Where("month = ?", month).Find(&payments).Error; err != nil {
			return nil, err
		}
		stats := MonthStats{
			Month:       month,
			MonthLabel:  billing.FormatMonth(month),
			PaidNames:   []string{},
			UnpaidNames: []string{},
		}
		for _, p := range payments {
			if p.IsPaid {
				stats.PaidCount++
				stats.PaidAmount += p.TotalAmount
				stats.PaidNames = append(stats.PaidNames, p.Student.Name)
			} else {
				stats.UnpaidCount++
				stats.UnpaidAmount += p.TotalAmount
				stats.UnpaidNames = append(stats.UnpaidNames, p.Student.Name)
			}
		}
		out = append(out, stats)
	}
	return out, nil
}

// MissingForMonth lists students with no recorded payment for month, with a
// flag for rows already past the late cutoff.
type MissingPayment struct {
	Payment models.Payment `json:"payment"`
	IsLate  bool           `json:"is_late"`
}

func (s *PaymentService) MissingForMonth(month string) ([]MissingPayment, error) {
	payments, err := s.EnsureMonth(month)
	if err != nil {
		return nil, err
	}
	cfg := s.settings.BillingSettings()
	now := time.Now()

	out := []MissingPayment{}
	for _, p := range payments {
		if p.IsPaid {
			continue
		}
		out = append(out, MissingPayment{
			Payment: p,
			IsLate:  billing.IsLate(month, cfg, now),
		})
	}
	return out, nil
}

// MissingPast lists every unpaid row strictly before the current month.
// Month keys sort chronologically so a plain string compare works.
func (s *PaymentService) MissingPast() ([]models.Payment, error) {
	var payments []models.Payment
	if err := database.DB.Preload("Student").
		Where("is_paid = ? AND month < ?", false, billing.CurrentMonth()).
		Order("month, id").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
