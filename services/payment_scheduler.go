package services

import (
	"time"

	"schoolfees_go/config"
	"schoolfees_go/database"
	"schoolfees_go/models"
	"schoolfees_go/services/billing"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// PaymentScheduler runs the recurring billing jobs: opening payment rows for
// a new month and nudging the admin group about overdue students.
type PaymentScheduler struct {
	payments *PaymentService
	settings *SettingsService
	line     *LineMessagingService
	cron     *cron.Cron
}

func NewPaymentScheduler() *PaymentScheduler {
	return &PaymentScheduler{
		payments: NewPaymentService(),
		settings: NewSettingsService(),
		line:     NewLineMessagingService(),
		cron:     cron.New(),
	}
}

// Start registers the jobs and launches the cron loop in the background.
func (ps *PaymentScheduler) Start() {
	// Open the new month's rows shortly after midnight on the 1st
	if _, err := ps.cron.AddFunc("0 2 1 * *", ps.RollNewMonth); err != nil {
		logrus.WithError(err).Error("Failed to schedule monthly payment roll")
	}
	// Morning check for overdue prepaid tuition
	if _, err := ps.cron.AddFunc("0 9 * * *", ps.NotifyOverdue); err != nil {
		logrus.WithError(err).Error("Failed to schedule overdue reminder")
	}
	ps.cron.Start()
	logrus.Info("Payment scheduler started")
}

// Stop halts the cron loop, waiting for running jobs.
func (ps *PaymentScheduler) Stop() {
	ctx := ps.cron.Stop()
	<-ctx.Done()
}

// RollNewMonth ensures every student has a payment row for the month that
// just started.
func (ps *PaymentScheduler) RollNewMonth() {
	month := billing.CurrentMonth()
	if err := ps.payments.EnsureMonthForAll(month); err != nil {
		logrus.WithError(err).WithField("month", month).Error("Failed to open payment rows for new month")
		return
	}
	logrus.WithField("month", month).Info("Opened payment rows for new month")
}

// NotifyOverdue pushes one LINE summary of unpaid students once the prepaid
// due date for next month's tuition has passed. Next month's tuition is due
// this month, so the check looks one month ahead.
func (ps *PaymentScheduler) NotifyOverdue() {
	if !config.AppConfig.LineEnabled() {
		return
	}

	cfg := ps.settings.BillingSettings()
	now := time.Now()
	nextMonth := billing.NextMonthKey(now)

	due, err := billing.DueDate(nextMonth, cfg.LateFeeAfterDay)
	if err != nil {
		logrus.WithError(err).Error("Failed to compute due date for overdue reminder")
		return
	}
	if !now.After(due.AddDate(0, 0, 1)) {
		return
	}

	var unpaid []models.Payment
	if err := database.DB.Preload("Student").
		Where("month = ? AND is_paid = ?", nextMonth, false).
		Order("students.id").
		Joins("JOIN students ON students.id = payments.student_id AND students.deleted_at IS NULL").
		Find(&unpaid).Error; err != nil {
		logrus.WithError(err).Error("Failed to load unpaid payments for overdue reminder")
		return
	}
	if len(unpaid) == 0 {
		return
	}

	if err := ps.line.SendOverdueSummary(nextMonth, unpaid); err != nil {
		logrus.WithError(err).Error("Failed to push overdue summary to LINE")
		return
	}
	logrus.WithFields(logrus.Fields{"month": nextMonth, "unpaid": len(unpaid)}).Info("Sent overdue summary to admin group")
}
