// Package exports builds the payment workbooks the office downloads at the
// end of each collection round.
package exports

import (
	"fmt"
	"strings"
	"time"

	"schoolfees_go/models"
	"schoolfees_go/services/billing"

	"github.com/xuri/excelize/v2"
)

// Kind selects which workbook to build.
type Kind string

const (
	KindPaid    Kind = "paid"
	KindUnpaid  Kind = "unpaid"
	KindAll     Kind = "all"
	KindByGrade Kind = "by-grade"
)

// ParseKind validates a kind query value.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindPaid:
		return KindPaid, nil
	case KindUnpaid:
		return KindUnpaid, nil
	case KindAll, Kind(""):
		return KindAll, nil
	case KindByGrade:
		return KindByGrade, nil
	}
	return "", fmt.Errorf("unknown export kind %q", s)
}

// Input is everything a workbook needs, resolved by the caller.
type Input struct {
	Month    string
	Payments []models.Payment // Student preloaded
	Settings billing.Settings
	Currency string
	Now      time.Time
}

// Filename suggests a download name for the workbook.
func Filename(kind Kind, month string) string {
	return fmt.Sprintf("payments-%s-%s.xlsx", kind, month)
}

// Build renders the requested workbook.
func Build(kind Kind, in Input) (*excelize.File, error) {
	switch kind {
	case KindPaid:
		return buildPaid(in)
	case KindUnpaid:
		return buildUnpaid(in)
	case KindAll:
		return buildAll(in)
	case KindByGrade:
		return buildByGrade(in)
	}
	return nil, fmt.Errorf("unknown export kind %q", kind)
}

func split(in Input) (paid, unpaid []models.Payment) {
	for _, p := range in.Payments {
		if p.IsPaid {
			paid = append(paid, p)
		} else {
			unpaid = append(unpaid, p)
		}
	}
	return
}

func sum(payments []models.Payment) float64 {
	var total float64
	for _, p := range payments {
		total += p.TotalAmount
	}
	return total
}

// DaysOverdue counts whole days past the prepaid due date, zero when not yet
// due.
func DaysOverdue(month string, cfg billing.Settings, now time.Time) int {
	due, err := billing.DueDate(month, cfg.LateFeeAfterDay)
	if err != nil {
		return 0
	}
	days := int(now.Sub(due).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// writeSummaryHeader writes the block above the data rows: title, month and
// totals. Data always starts at row 6 so the office macros keep working.
func writeSummaryHeader(f *excelize.File, sheet, title string, in Input, lines [][]interface{}) {
	f.SetCellValue(sheet, "A1", title)
	f.SetCellValue(sheet, "A2", "ประจำเดือน: "+billing.FormatMonth(in.Month))
	row := 3
	for _, line := range lines {
		for i, v := range line {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(sheet, cell, v)
		}
		row++
	}
}

func setWidths(f *excelize.File, sheet string, widths map[string]float64) {
	for col, w := range widths {
		f.SetColWidth(sheet, col, col, w)
	}
}

var paidColumns = []string{"Student", "Grade", "Tuition", "Late Fee", "Total", "Paid At", "Method", "Reference"}

func writePaidSheet(f *excelize.File, sheet string, in Input, paid []models.Payment) {
	writeSummaryHeader(f, sheet, "รายงานการชำระค่าธรรมเนียม (Paid)", in, [][]interface{}{
		{"จำนวนที่ชำระแล้ว", len(paid)},
		{"ยอดรวม (" + in.Currency + ")", sum(paid)},
	})
	for i, h := range paidColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		f.SetCellValue(sheet, cell, h)
	}
	for i, p := range paid {
		row := 7 + i
		paidAt := ""
		if p.PaidAt != nil {
			paidAt = p.PaidAt.Format("02/01/2006")
		}
		values := []interface{}{p.Student.Name, p.Student.Grade, p.Amount, p.LateFee, p.TotalAmount, paidAt, p.PaymentMethod, p.Reference}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}
	setWidths(f, sheet, map[string]float64{"A": 28, "B": 8, "C": 12, "D": 10, "E": 12, "F": 12, "G": 12, "H": 18})
}

var unpaidColumns = []string{"Student", "Grade", "Amount Due", "Days Overdue", "Status"}

func writeUnpaidSheet(f *excelize.File, sheet string, in Input, unpaid []models.Payment) {
	writeSummaryHeader(f, sheet, "รายงานค้างชำระ (Unpaid)", in, [][]interface{}{
		{"จำนวนที่ค้างชำระ", len(unpaid)},
		{"ยอดค้างรวม (" + in.Currency + ")", sum(unpaid)},
	})
	for i, h := range unpaidColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		f.SetCellValue(sheet, cell, h)
	}
	days := DaysOverdue(in.Month, in.Settings, in.Now)
	for i, p := range unpaid {
		row := 7 + i
		status := ""
		if days > 7 {
			status = "URGENT"
		} else if days > 0 {
			status = "OVERDUE"
		}
		values := []interface{}{p.Student.Name, p.Student.Grade, p.TotalAmount, days, status}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}
	setWidths(f, sheet, map[string]float64{"A": 28, "B": 8, "C": 12, "D": 14, "E": 10})
}

func buildPaid(in Input) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetName(sheet, "Paid")
	paid, _ := split(in)
	writePaidSheet(f, "Paid", in, paid)
	return f, nil
}

func buildUnpaid(in Input) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetName(sheet, "Unpaid")
	_, unpaid := split(in)
	writeUnpaidSheet(f, "Unpaid", in, unpaid)
	return f, nil
}

func buildAll(in Input) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetName(sheet, "Summary")
	paid, unpaid := split(in)

	total := len(in.Payments)
	rate := 0.0
	if total > 0 {
		rate = float64(len(paid)) / float64(total) * 100
	}
	writeSummaryHeader(f, "Summary", "สรุปการเก็บค่าธรรมเนียม (Collection Summary)", in, [][]interface{}{
		{"นักเรียนทั้งหมด", total},
		{"ชำระแล้ว", len(paid), sum(paid)},
		{"ค้างชำระ", len(unpaid), sum(unpaid)},
		{"อัตราการเก็บ (%)", rate},
	})
	setWidths(f, "Summary", map[string]float64{"A": 24, "B": 12, "C": 14})

	f.NewSheet("Paid")
	writePaidSheet(f, "Paid", in, paid)
	f.NewSheet("Unpaid")
	writeUnpaidSheet(f, "Unpaid", in, unpaid)
	return f, nil
}

func buildByGrade(in Input) (*excelize.File, error) {
	f := excelize.NewFile()
	first := f.GetSheetName(0)

	byGrade := map[string][]models.Payment{}
	order := []string{}
	for _, p := range in.Payments {
		if _, seen := byGrade[p.Student.Grade]; !seen {
			order = append(order, p.Student.Grade)
		}
		byGrade[p.Student.Grade] = append(byGrade[p.Student.Grade], p)
	}

	if len(order) == 0 {
		f.SetSheetName(first, "Empty")
		writeSummaryHeader(f, "Empty", "ไม่มีข้อมูล (No data)", in, nil)
		return f, nil
	}

	for i, grade := range order {
		sheet := "Grade " + grade
		if i == 0 {
			f.SetSheetName(first, sheet)
		} else {
			f.NewSheet(sheet)
		}
		sub := in
		sub.Payments = byGrade[grade]
		writeGradeSheet(f, sheet, sub)
	}
	return f, nil
}

var gradeColumns = []string{"Student", "Tuition", "Late Fee", "Total", "Status", "Paid At"}

// writeGradeSheet lists every student of one grade with their payment status.
func writeGradeSheet(f *excelize.File, sheet string, in Input) {
	paid, unpaid := split(in)
	writeSummaryHeader(f, sheet, "รายชั้นเรียน (By Grade)", in, [][]interface{}{
		{"ชำระแล้ว", len(paid), sum(paid)},
		{"ค้างชำระ", len(unpaid), sum(unpaid)},
	})
	for i, h := range gradeColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 6)
		f.SetCellValue(sheet, cell, h)
	}
	for i, p := range in.Payments {
		row := 7 + i
		status := "UNPAID"
		paidAt := ""
		if p.IsPaid {
			status = "PAID"
			if p.PaidAt != nil {
				paidAt = p.PaidAt.Format("02/01/2006")
			}
		}
		values := []interface{}{p.Student.Name, p.Amount, p.LateFee, p.TotalAmount, status, paidAt}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}
	setWidths(f, sheet, map[string]float64{"A": 28, "B": 12, "C": 10, "D": 12, "E": 10, "F": 12})
}
