package receipts

import (
	"testing"

	"schoolfees_go/models"
)

func TestReceiptNumber(t *testing.T) {
	p := models.Payment{Month: "2025-09"}
	p.ID = 42
	if got := ReceiptNumber(p); got != "September-00042" {
		t.Fatalf("ReceiptNumber = %q", got)
	}

	p.Month = "garbage"
	if got := ReceiptNumber(p); got != "garbage-00042" {
		t.Fatalf("ReceiptNumber fallback = %q", got)
	}
}

func TestStudentCode(t *testing.T) {
	cases := []struct {
		name string
		s    models.Student
		want string
	}{
		{"thai full name", models.Student{Name: "สมชาย ใจดี", Year: 2025}, "2025-สมชาย"},
		{"single name", models.Student{Name: "Minnie", Year: 2024}, "2024-Minnie"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := StudentCode(c.s); got != c.want {
				t.Fatalf("StudentCode = %q, want %q", got, c.want)
			}
		})
	}
}
