package utils

import (
	"time"

	"schoolfees_go/models"
)

// Compact representations used across APIs
type StudentShort struct {
	ID         uint     `json:"id"`
	Name       string   `json:"name"`
	Grade      string   `json:"grade"`
	Year       int      `json:"year"`
	Subjects   []string `json:"subjects"`
	MonthlyFee float64  `json:"monthly_fee"`
}

type PaymentDTO struct {
	ID                   uint         `json:"id"`
	Month                string       `json:"month"`
	Amount               float64      `json:"amount"`
	LateFee              float64      `json:"late_fee"`
	TotalAmount          float64      `json:"total_amount"`
	IsPaid               bool         `json:"is_paid"`
	PaidAt               *time.Time   `json:"paid_at,omitempty"`
	PaymentMethod        string       `json:"payment_method,omitempty"`
	Reference            string       `json:"reference,omitempty"`
	IsRegistration       bool         `json:"is_registration"`
	WaiveRegistrationFee bool         `json:"waive_registration_fee"`
	IsHalfMonth          bool         `json:"is_half_month"`
	Student              StudentShort `json:"student"`
}

// ToStudentShort maps a student row to its compact form.
func ToStudentShort(s models.Student) StudentShort {
	subjects := s.SubjectList()
	if subjects == nil {
		subjects = []string{}
	}
	return StudentShort{
		ID:         s.ID,
		Name:       s.Name,
		Grade:      s.Grade,
		Year:       s.Year,
		Subjects:   subjects,
		MonthlyFee: s.MonthlyFee,
	}
}

// ToPaymentDTO maps a payment row to the wire shape. The caller preloads
// Student.
func ToPaymentDTO(p models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:                   p.ID,
		Month:                p.Month,
		Amount:               p.Amount,
		LateFee:              p.LateFee,
		TotalAmount:          p.TotalAmount,
		IsPaid:               p.IsPaid,
		PaidAt:               p.PaidAt,
		PaymentMethod:        p.PaymentMethod,
		Reference:            p.Reference,
		IsRegistration:       p.IsRegistration,
		WaiveRegistrationFee: p.WaiveRegistrationFee,
		IsHalfMonth:          p.IsHalfMonth,
		Student:              ToStudentShort(p.Student),
	}
}

// ToPaymentDTOs maps a slice, preserving order.
func ToPaymentDTOs(payments []models.Payment) []PaymentDTO {
	out := make([]PaymentDTO, 0, len(payments))
	for _, p := range payments {
		out = append(out, ToPaymentDTO(p))
	}
	return out
}
