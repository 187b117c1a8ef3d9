package controllers

import (
	"errors"
	"fmt"
	"strconv"

	"schoolfees_go/database"
	"schoolfees_go/middleware"
	"schoolfees_go/models"
	"schoolfees_go/services"
	"schoolfees_go/services/billing"
	"schoolfees_go/services/receipts"
	"schoolfees_go/storage"
	"schoolfees_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type PaymentController struct {
	payments *services.PaymentService
	settings *services.SettingsService
}

func NewPaymentController() *PaymentController {
	return &PaymentController{
		payments: services.NewPaymentService(),
		settings: services.NewSettingsService(),
	}
}

func handlePaymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrPaymentValidation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment not found"})
	default:
		logrus.WithError(err).Error("Payment operation failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Payment operation failed"})
	}
}

func paymentIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid payment ID")
	}
	return uint(id), nil
}

// GetPayments lists the month's payments, creating missing rows on the way.
// Month defaults to the current one.
func (pc *PaymentController) GetPayments(c *fiber.Ctx) error {
	month := c.Query("month", billing.CurrentMonth())

	payments, err := pc.payments.EnsureMonth(month)
	if err != nil {
		return handlePaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"month":       month,
		"month_label": billing.FormatMonth(month),
		"payments":    utils.ToPaymentDTOs(payments),
	})
}

// PreviewPayment returns the charge breakdown for the given options as of
// now, without recording anything.
func (pc *PaymentController) PreviewPayment(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var opts services.PayOptions
	if err := c.BodyParser(&opts); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	payment, charge, err := pc.payments.Preview(id, opts)
	if err != nil {
		return handlePaymentError(c, err)
	}

	return c.JSON(fiber.Map{
		"payment": utils.ToPaymentDTO(*payment),
		"charge":  charge,
	})
}

// MarkPaid records a payment with the calculator's breakdown
func (pc *PaymentController) MarkPaid(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var opts services.PayOptions
	if err := c.BodyParser(&opts); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if opts.PaymentMethod != "" && !utils.IsValidPaymentMethod(opts.PaymentMethod) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment method"})
	}

	payment, err := pc.payments.MarkPaid(id, opts)
	if err != nil {
		return handlePaymentError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "payments", payment.ID, fiber.Map{
		"action": "mark_paid",
		"month":  payment.Month,
		"total":  payment.TotalAmount,
	})

	return c.JSON(fiber.Map{
		"message": "Payment recorded successfully",
		"payment": utils.ToPaymentDTO(*payment),
	})
}

// MarkUnpaid reverts a recorded payment
func (pc *PaymentController) MarkUnpaid(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	payment, err := pc.payments.MarkUnpaid(id)
	if err != nil {
		return handlePaymentError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "payments", payment.ID, fiber.Map{
		"action": "mark_unpaid",
		"month":  payment.Month,
	})

	return c.JSON(fiber.Map{
		"message": "Payment reverted to unpaid",
		"payment": utils.ToPaymentDTO(*payment),
	})
}

// GetReceipt renders the receipt PDF for a paid payment. ?campus=2 switches
// the letterhead; ?archive=true also stores a copy in S3.
func (pc *PaymentController) GetReceipt(c *fiber.Ctx) error {
	id, err := paymentIDParam(c)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var p models.Payment
	if err := database.DB.Preload("Student").First(&p, id).Error; err != nil {
		return handlePaymentError(c, err)
	}
	if !p.IsPaid {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Receipt is only available for paid payments"})
	}

	campus, _ := strconv.Atoi(c.Query("campus", "1"))
	school, err := pc.settings.SchoolInfo(campus)
	if err != nil {
		if errors.Is(err, services.ErrSettingsValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return handlePaymentError(c, err)
	}

	pdfBytes, err := receipts.Generate(receipts.ReceiptData{
		Payment:  p,
		School:   school,
		Currency: pc.settings.Currency(),
	})
	if err != nil {
		logrus.WithError(err).Error("Receipt rendering failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to render receipt"})
	}

	if c.Query("archive") == "true" {
		go archiveReceipt(p, pdfBytes)
	}

	middleware.LogActivity(c, "CREATE", "receipts", p.ID, fiber.Map{
		"receipt_no": receipts.ReceiptNumber(p),
		"month":      p.Month,
	})

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=receipt-%s.pdf", receipts.ReceiptNumber(p)))
	return c.Send(pdfBytes)
}

func archiveReceipt(p models.Payment, pdfBytes []byte) {
	svc, err := storage.NewStorageService()
	if err != nil {
		logrus.WithError(err).Warn("Receipt archive skipped, storage unavailable")
		return
	}
	url, err := svc.UploadBytes(pdfBytes, "receipts", p.StudentID, "pdf")
	if err != nil {
		logrus.WithError(err).WithField("payment_id", p.ID).Warn("Failed to archive receipt to S3")
		return
	}
	logrus.WithFields(logrus.Fields{
		"payment_id": p.ID,
		"url":        url,
	}).Info("Receipt archived")
}
