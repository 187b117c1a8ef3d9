package seeders

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"schoolfees_go/database"
	"schoolfees_go/models"
	"schoolfees_go/services/billing"
	"schoolfees_go/utils"
)

// SeedAll runs all seeders
func SeedAll() {
	log.Println("Starting database seeding...")

	SeedUsers()
	SeedAdminSettings()
	SeedFeeSettings()
	SeedStudents()

	log.Println("Database seeding completed successfully!")
}

// SeedUsers seeds the users table
func SeedUsers() {
	var count int64
	database.DB.Model(&models.User{}).Count(&count)
	if count > 0 {
		log.Println("Users already seeded, skipping...")
		return
	}

	// Hash the default password
	hashedPassword, _ := utils.HashPassword("password123")

	users := []models.User{
		{
			BaseModel: models.BaseModel{ID: 1, CreatedAt: time.Date(2025, 8, 15, 2, 28, 56, 0, time.UTC)},
			Username:  "admin",
			Password:  hashedPassword,
			Email:     "admin@school.ac.th",
			Phone:     "0812345678",
			Role:      "admin",
			Status:    "active",
		},
		{
			BaseModel: models.BaseModel{ID: 2, CreatedAt: time.Date(2025, 8, 15, 2, 28, 56, 0, time.UTC)},
			Username:  "frontdesk",
			Password:  hashedPassword,
			Email:     "frontdesk@school.ac.th",
			Phone:     "0812345679",
			Role:      "staff",
			Status:    "active",
		},
	}

	for _, user := range users {
		if err := database.DB.Create(&user).Error; err != nil {
			log.Printf("Error seeding user %s: %v", user.Username, err)
		}
	}

	log.Println("Users seeded successfully")
}

// SeedAdminSettings seeds the school-wide key/value settings
func SeedAdminSettings() {
	var count int64
	database.DB.Model(&models.AdminSetting{}).Count(&count)
	if count > 0 {
		log.Println("Admin settings already seeded, skipping...")
		return
	}

	defaults := billing.DefaultSettings()
	settings := map[string]string{
		"collection_day":     fmt.Sprintf("%d", defaults.CollectionDay),
		"late_fee_after_day": fmt.Sprintf("%d", defaults.LateFeeAfterDay),
		"late_fee_amount":    fmt.Sprintf("%.0f", defaults.LateFeeAmount),
		"currency":           "THB",
		"school1_name":       "โรงเรียนอนุบาลสองภาษา วิทยาเขต 1",
		"school1_address":    "123 ถนนมิตรภาพ นครราชสีมา 30000",
		"school1_phone":      "044-111222",
		"school1_email":      "campus1@school.ac.th",
		"school2_name":       "โรงเรียนอนุบาลสองภาษา วิทยาเขต 2",
		"school2_address":    "456 ถนนสุรนารายณ์ นครราชสีมา 30000",
		"school2_phone":      "044-333444",
		"school2_email":      "campus2@school.ac.th",
	}

	for key, value := range settings {
		row := models.AdminSetting{SettingKey: key, SettingValue: value}
		if err := database.DB.Create(&row).Error; err != nil {
			log.Printf("Error seeding admin setting %s: %v", key, err)
		}
	}

	log.Println("Admin settings seeded successfully")
}

// SeedFeeSettings seeds one reference row per grade
func SeedFeeSettings() {
	var count int64
	database.DB.Model(&models.FeeSetting{}).Count(&count)
	if count > 0 {
		log.Println("Fee settings already seeded, skipping...")
		return
	}

	grades := []string{"PK1", "PK2", "K", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12"}
	for _, grade := range grades {
		row := models.FeeSetting{
			Grade:           grade,
			MonthlyFee:      billing.PerSubjectFee(grade),
			RegistrationFee: 500,
			LateFeeRate:     50,
		}
		if err := database.DB.Create(&row).Error; err != nil {
			log.Printf("Error seeding fee setting for grade %s: %v", grade, err)
		}
	}

	log.Println("Fee settings seeded successfully")
}

// SeedStudents seeds a handful of sample students for development
func SeedStudents() {
	var count int64
	database.DB.Model(&models.Student{}).Count(&count)
	if count > 0 {
		log.Println("Students already seeded, skipping...")
		return
	}

	type sample struct {
		name     string
		grade    string
		subjects []string
	}
	samples := []sample{
		{"สมชาย ใจดี", "4", []string{"THAI", "MATH"}},
		{"สมหญิง รักเรียน", "8", []string{"THAI", "MATH", "ENGLISH"}},
		{"เด็กหญิงมินนี่", "K", []string{"ENGLISH"}},
	}

	for i, s := range samples {
		subjects, _ := json.Marshal(s.subjects)
		student := models.Student{
			BaseModel:  models.BaseModel{ID: uint(i + 1), CreatedAt: time.Date(2025, 8, 15, 2, 28, 57, 0, time.UTC)},
			Name:       s.name,
			Grade:      s.grade,
			Year:       2025,
			Subjects:   subjects,
			MonthlyFee: billing.MonthlyFee(s.grade, len(s.subjects)),
		}
		if err := database.DB.Create(&student).Error; err != nil {
			log.Printf("Error seeding student %s: %v", student.Name, err)
		}
	}

	log.Println("Students seeded successfully")
}
