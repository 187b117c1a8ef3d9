package controllers

import (
	"encoding/json"
	"strconv"
	"strings"

	"schoolfees_go/database"
	"schoolfees_go/middleware"
	"schoolfees_go/models"
	"schoolfees_go/services/billing"
	"schoolfees_go/utils"

	"github.com/gofiber/fiber/v2"
)

type StudentController struct{}

// StudentRequest is the create/update body. The monthly fee is never taken
// from the client; it is always recomputed from grade and subjects.
type StudentRequest struct {
	Name     string   `json:"name" validate:"required"`
	Grade    string   `json:"grade" validate:"required"`
	Year     int      `json:"year" validate:"required"`
	Subjects []string `json:"subjects"`
}

func (r *StudentRequest) normalize() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Grade = strings.TrimSpace(r.Grade)
	if r.Name == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Name is required")
	}
	if !utils.IsValidGrade(r.Grade) {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid grade")
	}
	if r.Year < 1900 || r.Year > 3000 {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid academic year")
	}
	cleaned := make([]string, 0, len(r.Subjects))
	for _, s := range r.Subjects {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			cleaned = append(cleaned, s)
		}
	}
	r.Subjects = cleaned
	return nil
}

// GetStudents returns all students with pagination
func (sc *StudentController) GetStudents(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	offset := (page - 1) * limit

	var students []models.Student
	var total int64

	query := database.DB.Model(&models.Student{})

	// Filter by grade if specified
	if grade := c.Query("grade"); grade != "" {
		query = query.Where("grade = ?", grade)
	}

	// Filter by academic year if specified
	if year := c.Query("year"); year != "" {
		query = query.Where("year = ?", year)
	}

	// Name search
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	// Get total count
	query.Count(&total)

	if err := query.Order("grade, name").Offset(offset).Limit(limit).Find(&students).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch students",
		})
	}

	return c.JSON(fiber.Map{
		"students": students,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetStudent returns a specific student by ID
func (sc *StudentController) GetStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var student models.Student
	if err := database.DB.First(&student, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	return c.JSON(fiber.Map{
		"student": student,
	})
}

// CreateStudent adds a new student with a fee derived from the rate table
func (sc *StudentController) CreateStudent(c *fiber.Ctx) error {
	var req StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := req.normalize(); err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	subjectsJSON, _ := json.Marshal(req.Subjects)
	student := models.Student{
		Name:       req.Name,
		Grade:      req.Grade,
		Year:       req.Year,
		Subjects:   subjectsJSON,
		MonthlyFee: billing.MonthlyFee(req.Grade, len(req.Subjects)),
	}

	if err := database.DB.Create(&student).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create student",
		})
	}

	middleware.LogActivity(c, "CREATE", "students", student.ID, fiber.Map{
		"name":  student.Name,
		"grade": student.Grade,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Student created successfully",
		"student": student,
	})
}

// UpdateStudent edits a student, recomputing the monthly fee. Unpaid payment
// rows pick up the new fee the next time their month is listed.
func (sc *StudentController) UpdateStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var student models.Student
	if err := database.DB.First(&student, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	var req StudentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if err := req.normalize(); err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	subjectsJSON, _ := json.Marshal(req.Subjects)
	updates := map[string]interface{}{
		"name":        req.Name,
		"grade":       req.Grade,
		"year":        req.Year,
		"subjects":    models.JSON(subjectsJSON),
		"monthly_fee": billing.MonthlyFee(req.Grade, len(req.Subjects)),
	}

	if err := database.DB.Model(&student).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update student",
		})
	}
	if err := database.DB.First(&student, student.ID).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to reload student",
		})
	}

	middleware.LogActivity(c, "UPDATE", "students", student.ID, fiber.Map{
		"name":  student.Name,
		"grade": student.Grade,
	})

	return c.JSON(fiber.Map{
		"message": "Student updated successfully",
		"student": student,
	})
}

// DeleteStudent soft deletes a student. Payment history stays in place for
// the yearly reports.
func (sc *StudentController) DeleteStudent(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid student ID",
		})
	}

	var student models.Student
	if err := database.DB.First(&student, uint(id)).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Student not found",
		})
	}

	if err := database.DB.Delete(&student).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete student",
		})
	}

	middleware.LogActivity(c, "DELETE", "students", student.ID, fiber.Map{
		"name": student.Name,
	})

	return c.JSON(fiber.Map{
		"message": "Student deleted successfully",
	})
}
