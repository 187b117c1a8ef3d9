package controllers

import (
	"fmt"
	"time"

	"schoolfees_go/middleware"
	"schoolfees_go/services"
	"schoolfees_go/services/billing"
	"schoolfees_go/services/exports"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// PaymentExportController serves the monthly Excel reports the office
// prints and files.
type PaymentExportController struct {
	payments *services.PaymentService
	settings *services.SettingsService
}

func NewPaymentExportController() *PaymentExportController {
	return &PaymentExportController{
		payments: services.NewPaymentService(),
		settings: services.NewSettingsService(),
	}
}

// Export builds the requested workbook. ?kind= is paid, unpaid, all
// (default) or by-grade; ?month= defaults to the current month.
func (pec *PaymentExportController) Export(c *fiber.Ctx) error {
	kind, err := exports.ParseKind(c.Query("kind"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	month := c.Query("month", billing.CurrentMonth())

	payments, err := pec.payments.EnsureMonth(month)
	if err != nil {
		return handlePaymentError(c, err)
	}

	f, err := exports.Build(kind, exports.Input{
		Month:    month,
		Payments: payments,
		Settings: pec.settings.BillingSettings(),
		Currency: pec.settings.Currency(),
		Now:      time.Now(),
	})
	if err != nil {
		logrus.WithError(err).Error("Export build failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build export"})
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		logrus.WithError(err).Error("Export serialization failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build export"})
	}

	middleware.LogActivity(c, "CREATE", "exports", 0, fiber.Map{
		"kind":  string(kind),
		"month": month,
	})

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", exports.Filename(kind, month)))
	return c.Send(buf.Bytes())
}
