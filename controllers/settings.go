package controllers

import (
	"errors"

	"schoolfees_go/middleware"
	"schoolfees_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type SettingsController struct {
	settings *services.SettingsService
}

func NewSettingsController() *SettingsController {
	return &SettingsController{settings: services.NewSettingsService()}
}

func handleSettingsError(c *fiber.Ctx, err error) error {
	if errors.Is(err, services.ErrSettingsValidation) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	var internal *services.SettingsInternalError
	if errors.As(err, &internal) {
		logrus.WithError(internal.Err).WithField("code", internal.Code).Error("Settings operation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Settings operation failed",
			"code":  internal.Code,
		})
	}
	logrus.WithError(err).Error("Settings operation failed")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Settings operation failed"})
}

// GetSettings returns every stored setting plus the effective billing values
// (defaults filled in where a key is missing or malformed).
func (sc *SettingsController) GetSettings(c *fiber.Ctx) error {
	all, err := sc.settings.GetAll()
	if err != nil {
		return handleSettingsError(c, err)
	}
	return c.JSON(fiber.Map{
		"settings": all,
		"billing":  sc.settings.BillingSettings(),
	})
}

// UpdateSettings applies a key/value patch. Unknown keys and out-of-range
// billing values are rejected wholesale.
func (sc *SettingsController) UpdateSettings(c *fiber.Ctx) error {
	var body map[string]string
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No settings provided"})
	}

	if err := sc.settings.Update(body); err != nil {
		return handleSettingsError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "admin_settings", 0, fiber.Map{"keys": settingKeys(body)})

	all, err := sc.settings.GetAll()
	if err != nil {
		return handleSettingsError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Settings updated successfully",
		"settings": all,
		"billing":  sc.settings.BillingSettings(),
	})
}

// GetFeeSettings returns the per-grade reference fee table
func (sc *SettingsController) GetFeeSettings(c *fiber.Ctx) error {
	rows, err := sc.settings.FeeSettings()
	if err != nil {
		return handleSettingsError(c, err)
	}
	return c.JSON(fiber.Map{"fee_settings": rows})
}

// UpsertFeeSetting creates or updates one grade's fee row
func (sc *SettingsController) UpsertFeeSetting(c *fiber.Ctx) error {
	var input services.FeeSettingInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	row, err := sc.settings.UpsertFeeSetting(input)
	if err != nil {
		return handleSettingsError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "fee_settings", row.ID, fiber.Map{
		"grade":       row.Grade,
		"monthly_fee": row.MonthlyFee,
	})

	return c.JSON(fiber.Map{
		"message":     "Fee setting saved successfully",
		"fee_setting": row,
	})
}

func settingKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
