package importer

import (
	"reflect"
	"testing"
)

func TestParseYear(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"2025", 2025},
		{"2025 - 2026", 2025},
		{"2025/2026", 2025},
		{" 2024 ", 2024},
		{"abc", 0},
		{"99", 0},
		{"", 0},
	}
	for _, c := range cases {
		if got := ParseYear(c.in); got != c.want {
			t.Fatalf("ParseYear(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestSplitSubjects(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"THAI, MATH", []string{"THAI", "MATH"}},
		{"thai math english", []string{"THAI", "MATH", "ENGLISH"}},
		{"THAI,,MATH,  thai", []string{"THAI", "MATH"}},
		{"", []string{}},
	}
	for _, c := range cases {
		if got := SplitSubjects(c.in); !reflect.DeepEqual(got, c.want) {
			t.Fatalf("SplitSubjects(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestNormalizeGrade(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"4", "4"},
		{"Grade 7", "7"},
		{"k", "K"},
		{"pk1", "PK1"},
		{"13", ""},
		{"nursery", ""},
	}
	for _, c := range cases {
		if got := NormalizeGrade(c.in); got != c.want {
			t.Fatalf("NormalizeGrade(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestDetectHeaderWithTitleBlock(t *testing.T) {
	rows := [][]string{
		{"Student list export"},
		{""},
		{"Name", "Grade", "Year", "Monthly Fee", "Subjects"},
		{"สมชาย ใจดี", "4", "2025", "3400", "THAI, MATH"},
	}
	idx, cols, err := DetectHeader(rows)
	if err != nil {
		t.Fatalf("DetectHeader: %v", err)
	}
	if idx != 2 {
		t.Fatalf("header index = %d", idx)
	}
	if cols["name"] != 0 || cols["grade"] != 1 || cols["subjects"] != 4 {
		t.Fatalf("column map = %v", cols)
	}
}

func TestParse(t *testing.T) {
	rows := [][]string{
		{"Name", "Grade", "Year", "Monthly Fee", "Subjects"},
		{"สมชาย ใจดี", "4", "2025", "999", "THAI"},
		{"สมชาย ใจดี", "4", "", "", "MATH"}, // merges with row above
		{"สมหญิง รักเรียน", "8", "2025 - 2026", "", "THAI MATH ENGLISH"},
		{"", "4", "2025", "", ""}, // skipped, no name
		{"น้องโม", "nursery", "2025", "", "THAI"},
	}
	res, err := Parse(rows, 2025)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(res.Students) != 2 {
		t.Fatalf("students = %d, want 2", len(res.Students))
	}
	if res.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", res.Skipped)
	}
	if len(res.Errors) != 1 || res.Errors[0].Row != 6 {
		t.Fatalf("errors = %+v", res.Errors)
	}

	first := res.Students[0]
	if !reflect.DeepEqual(first.Subjects, []string{"THAI", "MATH"}) {
		t.Fatalf("merged subjects = %v", first.Subjects)
	}
	// Fee column from the sheet is ignored and recomputed
	if first.MonthlyFee != 3400 {
		t.Fatalf("recomputed fee = %v", first.MonthlyFee)
	}

	second := res.Students[1]
	if second.Year != 2025 {
		t.Fatalf("range year = %d", second.Year)
	}
	if second.MonthlyFee != 5400 {
		t.Fatalf("secondary fee = %v", second.MonthlyFee)
	}
}

func TestParseNoHeader(t *testing.T) {
	rows := [][]string{
		{"just", "some", "cells"},
		{"more", "random", "cells"},
	}
	if _, err := Parse(rows, 2025); err == nil {
		t.Fatal("expected error for missing header")
	}
}
