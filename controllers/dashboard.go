package controllers

import (
	"strconv"
	"time"

	"schoolfees_go/services"
	"schoolfees_go/services/billing"
	"schoolfees_go/utils"

	"github.com/gofiber/fiber/v2"
)

type DashboardController struct {
	payments *services.PaymentService
	settings *services.SettingsService
}

func NewDashboardController() *DashboardController {
	return &DashboardController{
		payments: services.NewPaymentService(),
		settings: services.NewSettingsService(),
	}
}

// GetMonthStats returns paid/unpaid counts and collected totals for one month
func (dc *DashboardController) GetMonthStats(c *fiber.Ctx) error {
	month := c.Query("month", billing.CurrentMonth())

	stats, err := dc.payments.StatsForMonth(month)
	if err != nil {
		return handlePaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"month":       month,
		"month_label": billing.FormatMonth(month),
		"stats":       stats,
	})
}

// GetYearStats returns one stats row per month of the requested year.
// Months with no payment rows yet come back zeroed rather than omitted.
func (dc *DashboardController) GetYearStats(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Query("year", strconv.Itoa(time.Now().Year())))
	if err != nil || year < 1900 || year > 3000 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid year"})
	}

	stats, err := dc.payments.StatsForYear(year)
	if err != nil {
		return handlePaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"year":   year,
		"months": stats,
	})
}

// GetMissingCurrent lists students who have not paid the given month yet,
// flagging the ones already past the late cutoff.
func (dc *DashboardController) GetMissingCurrent(c *fiber.Ctx) error {
	month := c.Query("month", billing.CurrentMonth())

	missing, err := dc.payments.MissingForMonth(month)
	if err != nil {
		return handlePaymentError(c, err)
	}

	type missingEntry struct {
		Payment utils.PaymentDTO `json:"payment"`
		IsLate  bool             `json:"is_late"`
	}
	entries := make([]missingEntry, 0, len(missing))
	for _, m := range missing {
		entries = append(entries, missingEntry{
			Payment: utils.ToPaymentDTO(m.Payment),
			IsLate:  m.IsLate,
		})
	}

	return c.JSON(fiber.Map{
		"month":       month,
		"month_label": billing.FormatMonth(month),
		"count":       len(entries),
		"missing":     entries,
	})
}

// GetMissingPast lists unpaid rows from months before the current one
func (dc *DashboardController) GetMissingPast(c *fiber.Ctx) error {
	payments, err := dc.payments.MissingPast()
	if err != nil {
		return handlePaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"count":    len(payments),
		"payments": utils.ToPaymentDTOs(payments),
	})
}
