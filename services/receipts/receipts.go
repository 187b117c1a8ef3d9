// Package receipts renders tuition receipts as A4 PDFs, two stacked copies
// per page (one for the parent, one for the office file).
package receipts

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"schoolfees_go/config"
	"schoolfees_go/models"
	"schoolfees_go/services"
	"schoolfees_go/services/billing"

	"github.com/jung-kurt/gofpdf"
)

// methodLabels are the counter payment methods as printed on paper.
var methodLabels = map[string]string{
	"cash":      "เงินสด (Cash)",
	"transfer":  "โอนเงิน (Bank Transfer)",
	"credit":    "บัตรเครดิต (Credit Card)",
	"promptpay": "พร้อมเพย์ (PromptPay)",
}

// ReceiptData is everything one receipt needs, resolved before rendering.
type ReceiptData struct {
	Payment  models.Payment
	School   services.SchoolInfo
	Currency string
}

// ReceiptNumber builds the printed receipt number from the billing month and
// the payment row id, e.g. "September-00042".
func ReceiptNumber(p models.Payment) string {
	monthName := billing.FormatMonth(p.Month)
	if idx := strings.Index(monthName, " "); idx > 0 {
		monthName = monthName[:idx]
	}
	return fmt.Sprintf("%s-%05d", monthName, p.ID)
}

// StudentCode is the short identifier printed next to the student name.
func StudentCode(s models.Student) string {
	first := s.Name
	if idx := strings.Index(first, " "); idx > 0 {
		first = first[:idx]
	}
	return fmt.Sprintf("%d-%s", s.Year, first)
}

// Generate renders the receipt PDF and returns its bytes.
func Generate(data ReceiptData) ([]byte, error) {
	if !data.Payment.IsPaid {
		return nil, fmt.Errorf("payment %d is not recorded as paid", data.Payment.ID)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	font := "Arial"
	if path := config.AppConfig.ReceiptFontPath; path != "" {
		// A UTF-8 font is required for Thai school names and labels
		pdf.AddUTF8Font("receipt", "", path)
		pdf.AddUTF8Font("receipt", "B", path)
		font = "receipt"
	}
	pdf.AddPage()

	drawCopy(pdf, font, data, 10, "ต้นฉบับ (Original)")
	// Divider between the two copies
	pdf.SetDrawColor(150, 150, 150)
	pdf.SetLineWidth(0.2)
	pdf.SetDashPattern([]float64{2, 2}, 0)
	pdf.Line(10, 148, 200, 148)
	pdf.SetDashPattern([]float64{}, 0)
	drawCopy(pdf, font, data, 152, "สำเนา (Copy)")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// drawCopy renders one half-page receipt starting at the given Y offset.
func drawCopy(pdf *gofpdf.Fpdf, font string, data ReceiptData, top float64, copyLabel string) {
	p := data.Payment
	pdf.SetXY(10, top)

	// Letterhead
	pdf.SetFont(font, "B", 14)
	pdf.CellFormat(150, 7, data.School.Name, "", 0, "L", false, 0, "")
	pdf.SetFont(font, "", 9)
	pdf.CellFormat(40, 7, copyLabel, "", 1, "R", false, 0, "")
	pdf.SetX(10)
	pdf.CellFormat(0, 5, data.School.Address, "", 1, "L", false, 0, "")
	pdf.SetX(10)
	pdf.CellFormat(0, 5, fmt.Sprintf("โทร %s  อีเมล %s", data.School.Phone, data.School.Email), "", 1, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.4)
	pdf.Line(10, pdf.GetY()+1, 200, pdf.GetY()+1)
	pdf.Ln(4)

	// Title and receipt metadata
	pdf.SetX(10)
	pdf.SetFont(font, "B", 12)
	pdf.CellFormat(100, 7, "ใบเสร็จรับเงิน (RECEIPT)", "", 0, "L", false, 0, "")
	pdf.SetFont(font, "", 9)
	pdf.CellFormat(90, 7, "เลขที่ "+ReceiptNumber(p), "", 1, "R", false, 0, "")

	paidAt := time.Now()
	if p.PaidAt != nil {
		paidAt = *p.PaidAt
	}
	pdf.SetX(10)
	pdf.CellFormat(100, 5, fmt.Sprintf("นักเรียน: %s (%s)", p.Student.Name, StudentCode(p.Student)), "", 0, "L", false, 0, "")
	pdf.CellFormat(90, 5, "วันที่ "+paidAt.Format("02/01/2006"), "", 1, "R", false, 0, "")
	pdf.SetX(10)
	pdf.CellFormat(100, 5, fmt.Sprintf("ระดับชั้น: %s  ประจำเดือน: %s", p.Student.Grade, billing.FormatMonth(p.Month)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	// Fee table
	pdf.SetX(10)
	pdf.SetFont(font, "B", 9)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(140, 7, "รายการ (Description)", "1", 0, "L", true, 0, "")
	pdf.CellFormat(50, 7, fmt.Sprintf("จำนวนเงิน (%s)", data.Currency), "1", 1, "R", true, 0, "")

	pdf.SetFont(font, "", 9)
	tuitionLabel := "ค่าธรรมเนียมการเรียน (Tuition)"
	if p.IsHalfMonth {
		tuitionLabel = "ค่าธรรมเนียมการเรียน ครึ่งเดือน (Tuition, half month)"
	}
	feeRow(pdf, tuitionLabel, p.Amount)
	if p.IsRegistration {
		if p.WaiveRegistrationFee {
			feeRow(pdf, "ค่าแรกเข้า ยกเว้น (Registration, waived)", 0)
		} else {
			feeRow(pdf, "ค่าแรกเข้า (Registration)", billing.RegistrationFee)
		}
	}
	if p.LateFee > 0 {
		feeRow(pdf, "ค่าปรับชำระล่าช้า (Late fee)", p.LateFee)
	}

	pdf.SetX(10)
	pdf.SetFont(font, "B", 10)
	pdf.CellFormat(140, 7, "รวมทั้งสิ้น (Total)", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 7, formatAmount(p.TotalAmount), "1", 1, "R", false, 0, "")
	pdf.Ln(3)

	// Payment method and signature
	method := methodLabels[p.PaymentMethod]
	if method == "" {
		method = p.PaymentMethod
	}
	pdf.SetX(10)
	pdf.SetFont(font, "", 9)
	pdf.CellFormat(100, 5, "ชำระโดย: "+method, "", 0, "L", false, 0, "")
	if p.Reference != "" {
		pdf.CellFormat(90, 5, "อ้างอิง: "+p.Reference, "", 1, "R", false, 0, "")
	} else {
		pdf.Ln(5)
	}
	pdf.Ln(8)
	pdf.SetX(110)
	pdf.CellFormat(90, 5, "ลงชื่อ ______________________ ผู้รับเงิน", "", 1, "C", false, 0, "")
}

func feeRow(pdf *gofpdf.Fpdf, label string, amount float64) {
	pdf.SetX(10)
	pdf.CellFormat(140, 6, label, "1", 0, "L", false, 0, "")
	pdf.CellFormat(50, 6, formatAmount(amount), "1", 1, "R", false, 0, "")
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
