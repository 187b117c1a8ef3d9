package exports

import (
	"testing"
	"time"

	"schoolfees_go/models"
	"schoolfees_go/services/billing"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"paid", KindPaid, true},
		{"Unpaid", KindUnpaid, true},
		{"all", KindAll, true},
		{"", KindAll, true},
		{"by-grade", KindByGrade, true},
		{"everything", "", false},
	}
	for _, c := range cases {
		got, err := ParseKind(c.in)
		if c.ok && (err != nil || got != c.want) {
			t.Fatalf("ParseKind(%q) = %v, %v", c.in, got, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("ParseKind(%q) expected error", c.in)
		}
	}
}

func TestDaysOverdue(t *testing.T) {
	cfg := billing.DefaultSettings()
	cases := []struct {
		name string
		now  time.Time
		want int
	}{
		{"before due", date(2025, time.August, 20), 0},
		{"on due date", date(2025, time.August, 25), 0},
		{"five days over", date(2025, time.August, 30), 5},
		{"into next month", date(2025, time.September, 4), 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DaysOverdue("2025-09", cfg, c.now); got != c.want {
				t.Fatalf("DaysOverdue = %d, want %d", got, c.want)
			}
		})
	}
}

func testInput() Input {
	paidAt := date(2025, time.August, 20)
	mk := func(id uint, name, grade string, total float64, paid bool) models.Payment {
		p := models.Payment{
			StudentID:   id,
			Month:       "2025-09",
			Amount:      total,
			TotalAmount: total,
			IsPaid:      paid,
			Student:     models.Student{Name: name, Grade: grade, Year: 2025},
		}
		p.ID = id
		if paid {
			p.PaidAt = &paidAt
			p.PaymentMethod = "cash"
		}
		return p
	}
	return Input{
		Month: "2025-09",
		Payments: []models.Payment{
			mk(1, "สมชาย ใจดี", "4", 3400, true),
			mk(2, "สมหญิง รักเรียน", "8", 5400, false),
			mk(3, "เด็กหญิงมินนี่", "K", 1700, true),
		},
		Settings: billing.DefaultSettings(),
		Currency: "THB",
		Now:      date(2025, time.September, 4),
	}
}

func TestBuildAll(t *testing.T) {
	f, err := Build(KindAll, testInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, sheet := range []string{"Summary", "Paid", "Unpaid"} {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			t.Fatalf("missing sheet %q", sheet)
		}
	}

	// Paid count and total on the summary sheet
	if v, _ := f.GetCellValue("Summary", "B4"); v != "2" {
		t.Fatalf("paid count = %q", v)
	}
	if v, _ := f.GetCellValue("Summary", "C4"); v != "5100" {
		t.Fatalf("paid total = %q", v)
	}

	// Data starts at row 7 under the row-6 header
	if v, _ := f.GetCellValue("Paid", "A6"); v != "Student" {
		t.Fatalf("paid header = %q", v)
	}
	if v, _ := f.GetCellValue("Paid", "A7"); v != "สมชาย ใจดี" {
		t.Fatalf("first paid row = %q", v)
	}
	if v, _ := f.GetCellValue("Unpaid", "A7"); v != "สมหญิง รักเรียน" {
		t.Fatalf("first unpaid row = %q", v)
	}
	// Ten days past the cutoff flags the row urgent
	if v, _ := f.GetCellValue("Unpaid", "E7"); v != "URGENT" {
		t.Fatalf("unpaid status = %q", v)
	}
}

func TestBuildByGrade(t *testing.T) {
	f, err := Build(KindByGrade, testInput())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, sheet := range []string{"Grade 4", "Grade 8", "Grade K"} {
		if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
			t.Fatalf("missing sheet %q", sheet)
		}
	}
	if v, _ := f.GetCellValue("Grade 8", "E7"); v != "UNPAID" {
		t.Fatalf("grade 8 status = %q", v)
	}
}
