package controllers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"schoolfees_go/database"
	"schoolfees_go/middleware"
	"schoolfees_go/models"
	"schoolfees_go/services/importer"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// StudentImportController handles bulk student uploads from the office's
// Excel and CSV roster files.
type StudentImportController struct{}

// Import parses an uploaded roster and inserts the students it does not
// already know. Existing name+grade+year combinations are skipped, not
// updated, so a re-upload is safe.
func (sic *StudentImportController) Import(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}

	defaultYear := time.Now().Year()
	if y := c.FormValue("year"); y != "" {
		parsed, err := strconv.Atoi(strings.TrimSpace(y))
		if err != nil || parsed < 1900 || parsed > 3000 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid year"})
		}
		defaultYear = parsed
	}

	filename := strings.ToLower(fileHeader.Filename)
	var rows [][]string
	var parseErr error

	switch {
	case strings.HasSuffix(filename, ".csv"):
		file, err := fileHeader.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot open file"})
		}
		defer file.Close()
		rows, parseErr = readRosterCSV(file)
	case strings.HasSuffix(filename, ".xlsx"), strings.HasSuffix(filename, ".xls"):
		tmpDir, _ := os.MkdirTemp("", "sfroster-")
		tmp := filepath.Join(tmpDir, fmt.Sprintf("%d_%s", time.Now().UnixNano(), sanitizeRosterFilename(fileHeader.Filename)))
		if err := c.SaveFile(fileHeader, tmp); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to buffer upload"})
		}
		rows, parseErr = readRosterXLSX(tmp)
		_ = os.Remove(tmp)
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unsupported file type (csv, xlsx)"})
	}
	if parseErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": parseErr.Error()})
	}

	result, err := importer.Parse(rows, defaultYear)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if len(result.Students) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "no valid student rows found",
			"errors": result.Errors,
		})
	}

	inserted := 0
	duplicates := 0
	err = database.DB.Transaction(func(tx *gorm.DB) error {
		for _, ps := range result.Students {
			var count int64
			if err := tx.Model(&models.Student{}).
				Where("name = ? AND grade = ? AND year = ?", ps.Name, ps.Grade, ps.Year).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				duplicates++
				continue
			}
			subjectsJSON, _ := json.Marshal(ps.Subjects)
			student := models.Student{
				Name:       ps.Name,
				Grade:      ps.Grade,
				Year:       ps.Year,
				Subjects:   models.JSON(subjectsJSON),
				MonthlyFee: ps.MonthlyFee,
			}
			if err := tx.Create(&student).Error; err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to import students"})
	}

	middleware.LogActivity(c, "CREATE", "students", 0, fiber.Map{
		"action":    "import",
		"file_name": fileHeader.Filename,
		"inserted":  inserted,
	})

	return c.JSON(fiber.Map{
		"success":    true,
		"file_name":  fileHeader.Filename,
		"inserted":   inserted,
		"duplicates": duplicates,
		"skipped":    result.Skipped,
		"errors":     result.Errors,
	})
}

// Template serves an empty roster workbook with the expected headers
func (sic *StudentImportController) Template(c *fiber.Ctx) error {
	f := importer.Template()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build template"})
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", "attachment; filename=student-import-template.xlsx")
	return c.Send(buf.Bytes())
}

func readRosterCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readRosterXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sht := f.GetSheetName(0)
	if sht == "" {
		sht = "Sheet1"
	}
	return f.GetRows(sht)
}

func sanitizeRosterFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return name
}
