package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"schoolfees_go/database"
	"schoolfees_go/models"
	"schoolfees_go/services/billing"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Keys the settings screen knows about. Anything else is rejected on write.
var knownSettingKeys = map[string]struct{}{
	"collection_day":     {},
	"late_fee_after_day": {},
	"late_fee_amount":    {},
	"currency":           {},
	"school1_name":       {},
	"school1_address":    {},
	"school1_phone":      {},
	"school1_email":      {},
	"school2_name":       {},
	"school2_address":    {},
	"school2_phone":      {},
	"school2_email":      {},
}

// ErrSettingsValidation indicates a user-facing validation error while updating settings
var ErrSettingsValidation = errors.New("settings validation error")

// SettingsInternalError wraps non-user (server-side) failures with a short machine code
// so the controller layer can surface a stable error code while hiding internals.
type SettingsInternalError struct {
	Code string
	Err  error
}

func (e *SettingsInternalError) Error() string { return e.Err.Error() }
func (e *SettingsInternalError) Unwrap() error { return e.Err }

// SettingsService manages the key/value admin settings and per-grade fees
type SettingsService struct{}

// NewSettingsService creates a new service instance
func NewSettingsService() *SettingsService {
	return &SettingsService{}
}

// SchoolInfo is the campus letterhead block printed on receipts.
type SchoolInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// GetAll returns every stored setting as a flat key/value map.
func (s *SettingsService) GetAll() (map[string]string, error) {
	var rows []models.AdminSetting
	if err := database.DB.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row.SettingKey] = row.SettingValue
	}
	return out, nil
}

// BillingSettings resolves the billing knobs, falling back to defaults for
// any value that is missing or unreadable. Billing must keep working on a
// half-seeded database.
func (s *SettingsService) BillingSettings() billing.Settings {
	cfg := billing.DefaultSettings()

	stored, err := s.GetAll()
	if err != nil {
		logrus.WithError(err).Warn("Failed to load admin settings, using billing defaults")
		return cfg
	}

	if v, ok := stored["collection_day"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 1 && n <= 31 {
			cfg.CollectionDay = n
		}
	}
	if v, ok := stored["late_fee_after_day"]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 1 && n <= 31 {
			cfg.LateFeeAfterDay = n
		}
	}
	if v, ok := stored["late_fee_amount"]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 {
			cfg.LateFeeAmount = f
		}
	}
	return cfg
}

// SchoolInfo returns the letterhead for campus 1 or 2.
func (s *SettingsService) SchoolInfo(campus int) (SchoolInfo, error) {
	if campus != 1 && campus != 2 {
		return SchoolInfo{}, validationError(fmt.Sprintf("unknown campus %d", campus))
	}
	stored, err := s.GetAll()
	if err != nil {
		return SchoolInfo{}, &SettingsInternalError{Code: "DB_READ_FAILED", Err: err}
	}
	prefix := fmt.Sprintf("school%d_", campus)
	return SchoolInfo{
		Name:    stored[prefix+"name"],
		Address: stored[prefix+"address"],
		Phone:   stored[prefix+"phone"],
		Email:   stored[prefix+"email"],
	}, nil
}

// Currency returns the display currency code, THB when unset.
func (s *SettingsService) Currency() string {
	var row models.AdminSetting
	if err := database.DB.Where("setting_key = ?", "currency").First(&row).Error; err != nil {
		return "THB"
	}
	if strings.TrimSpace(row.SettingValue) == "" {
		return "THB"
	}
	return row.SettingValue
}

// Update upserts a batch of settings. Unknown keys and out-of-range billing
// values are rejected before anything is written.
func (s *SettingsService) Update(values map[string]string) error {
	if len(values) == 0 {
		return validationError("no settings provided")
	}

	for key, value := range values {
		if _, ok := knownSettingKeys[key]; !ok {
			return validationError(fmt.Sprintf("unknown setting '%s'", key))
		}
		if err := validateSettingValue(key, value); err != nil {
			return err
		}
	}

	return database.DB.Transaction(func(tx *gorm.DB) error {
		for key, value := range values {
			var row models.AdminSetting
			err := tx.Where("setting_key = ?", key).First(&row).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				row = models.AdminSetting{SettingKey: key, SettingValue: value}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			case err != nil:
				return err
			default:
				if err := tx.Model(&row).Update("setting_value", value).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func validateSettingValue(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "collection_day", "late_fee_after_day":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 31 {
			return validationError(fmt.Sprintf("%s must be a day of month (1-31)", key))
		}
	case "late_fee_amount":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return validationError("late_fee_amount must be a non-negative number")
		}
	}
	return nil
}

// FeeSettings returns the per-grade reference fee rows.
func (s *SettingsService) FeeSettings() ([]models.FeeSetting, error) {
	var rows []models.FeeSetting
	if err := database.DB.Order("grade").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FeeSettingInput carries one editable fee row.
type FeeSettingInput struct {
	Grade           string  `json:"grade"`
	MonthlyFee      float64 `json:"monthly_fee"`
	RegistrationFee float64 `json:"registration_fee"`
	LateFeeRate     float64 `json:"late_fee_rate"`
}

// UpsertFeeSetting creates or updates the fee row for a grade.
func (s *SettingsService) UpsertFeeSetting(input FeeSettingInput) (*models.FeeSetting, error) {
	input.Grade = strings.TrimSpace(input.Grade)
	if input.Grade == "" {
		return nil, validationError("grade is required")
	}
	if input.MonthlyFee < 0 || input.RegistrationFee < 0 || input.LateFeeRate < 0 {
		return nil, validationError("fees cannot be negative")
	}

	var row models.FeeSetting
	err := database.DB.Where("grade = ?", input.Grade).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		row = models.FeeSetting{
			Grade:           input.Grade,
			MonthlyFee:      input.MonthlyFee,
			RegistrationFee: input.RegistrationFee,
			LateFeeRate:     input.LateFeeRate,
		}
		if err := database.DB.Create(&row).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		updates := map[string]interface{}{
			"monthly_fee":      input.MonthlyFee,
			"registration_fee": input.RegistrationFee,
			"late_fee_rate":    input.LateFeeRate,
		}
		if err := database.DB.Model(&row).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := database.DB.First(&row, row.ID).Error; err != nil {
			return nil, err
		}
	}
	return &row, nil
}

func validationError(message string) error {
	return fmt.Errorf("%w: %s", ErrSettingsValidation, message)
}
