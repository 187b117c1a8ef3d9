// Package importer turns the office's student spreadsheets into clean
// student rows. The sheets arrive in whatever shape the previous system
// exported, so parsing is deliberately forgiving about headers and casing.
package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"schoolfees_go/services/billing"
	"schoolfees_go/utils"

	"github.com/xuri/excelize/v2"
)

var subjectSplitter = regexp.MustCompile(`[,\s]+`)

// headerAliases maps the column names seen in the wild to canonical fields.
var headerAliases = map[string]string{
	"name":         "name",
	"student name": "name",
	"ชื่อ":         "name",
	"ชื่อ-นามสกุล": "name",
	"grade":        "grade",
	"ระดับชั้น":    "grade",
	"ชั้น":         "grade",
	"year":         "year",
	"ปีการศึกษา":   "year",
	"monthly fee":  "fee",
	"fee":          "fee",
	"ค่าเทอม":      "fee",
	"subjects":     "subjects",
	"วิชา":         "subjects",
}

// ParsedStudent is one deduplicated student ready for insert.
type ParsedStudent struct {
	Name       string
	Grade      string
	Year       int
	Subjects   []string
	MonthlyFee float64
}

// RowError reports one rejected row by its 1-based sheet position.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Result is what the upload endpoint reports back.
type Result struct {
	Students []ParsedStudent
	Errors   []RowError
	Skipped  int
}

// DetectHeader finds the header row within the first few rows and returns its
// index and the column position of each canonical field. The office template
// has the header on row 1 but exports from the previous system padded a title
// block above it.
func DetectHeader(rows [][]string) (int, map[string]int, error) {
	limit := len(rows)
	if limit > 5 {
		limit = 5
	}
	for i := 0; i < limit; i++ {
		cols := mapHeader(rows[i])
		if _, ok := cols["name"]; ok {
			if _, ok := cols["grade"]; ok {
				return i, cols, nil
			}
		}
	}
	return 0, nil, fmt.Errorf("no header row with name and grade columns found")
}

func mapHeader(row []string) map[string]int {
	cols := map[string]int{}
	for i, cell := range row {
		key := strings.ToLower(strings.TrimSpace(cell))
		if canonical, ok := headerAliases[key]; ok {
			if _, taken := cols[canonical]; !taken {
				cols[canonical] = i
			}
		}
	}
	return cols
}

// ParseYear accepts "2025" and range forms like "2025 - 2026", taking the
// first year. Zero means unparseable.
func ParseYear(s string) int {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, "-/"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1900 || n > 3000 {
		return 0
	}
	return n
}

// SplitSubjects breaks a subject cell on commas and whitespace, uppercasing
// codes and dropping empties.
func SplitSubjects(s string) []string {
	parts := subjectSplitter.Split(strings.TrimSpace(s), -1)
	out := make([]string, 0, len(parts))
	seen := map[string]struct{}{}
	for _, part := range parts {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	return out
}

// NormalizeGrade maps the spellings seen in uploads onto canonical grade
// codes. Empty string means unknown.
func NormalizeGrade(s string) string {
	g := strings.ToUpper(strings.TrimSpace(s))
	g = strings.TrimPrefix(g, "GRADE ")
	g = strings.TrimPrefix(g, "ป.")
	g = strings.TrimPrefix(g, "ม.")
	switch g {
	case "K", "อนุบาล":
		return "K"
	case "PK1", "อ.1":
		return "PK1"
	case "PK2", "อ.2":
		return "PK2"
	}
	if utils.IsValidGrade(g) {
		return g
	}
	return ""
}

// Parse processes raw sheet rows into deduplicated students. Rows sharing a
// name (case-insensitive) and grade merge into one student with the union of
// their subjects; the fee column is ignored and recomputed from the rate
// table so a stale sheet cannot smuggle in old prices.
func Parse(rows [][]string, defaultYear int) (*Result, error) {
	headerIdx, cols, err := DetectHeader(rows)
	if err != nil {
		return nil, err
	}

	get := func(row []string, field string) string {
		idx, ok := cols[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	res := &Result{Errors: []RowError{}}
	type groupKey struct {
		name  string
		grade string
	}
	groups := map[groupKey]*ParsedStudent{}
	order := []groupKey{}

	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		rowNum := i + 1

		name := get(row, "name")
		if name == "" {
			res.Skipped++
			continue
		}
		grade := NormalizeGrade(get(row, "grade"))
		if grade == "" {
			res.Errors = append(res.Errors, RowError{Row: rowNum, Message: fmt.Sprintf("unknown grade %q", get(row, "grade"))})
			continue
		}
		year := ParseYear(get(row, "year"))
		if year == 0 {
			year = defaultYear
		}
		subjects := SplitSubjects(get(row, "subjects"))

		key := groupKey{name: strings.ToLower(name), grade: grade}
		if g, ok := groups[key]; ok {
			// merge subjects, keep first-seen name and year
			seen := map[string]struct{}{}
			for _, s := range g.Subjects {
				seen[s] = struct{}{}
			}
			for _, s := range subjects {
				if _, dup := seen[s]; !dup {
					g.Subjects = append(g.Subjects, s)
				}
			}
			continue
		}
		groups[key] = &ParsedStudent{Name: name, Grade: grade, Year: year, Subjects: subjects}
		order = append(order, key)
	}

	for _, key := range order {
		g := groups[key]
		g.MonthlyFee = billing.MonthlyFee(g.Grade, len(g.Subjects))
		res.Students = append(res.Students, *g)
	}
	return res, nil
}

// Template builds the blank upload sheet the office can download.
func Template() *excelize.File {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	f.SetSheetName(sheet, "Students")
	headers := []string{"Name", "Grade", "Year", "Monthly Fee", "Subjects"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue("Students", cell, h)
	}
	example := []interface{}{"สมชาย ใจดี", "4", 2025, "", "THAI, MATH"}
	for i, v := range example {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		f.SetCellValue("Students", cell, v)
	}
	f.SetColWidth("Students", "A", "A", 28)
	f.SetColWidth("Students", "E", "E", 24)
	return f
}
