package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User model (back office accounts only, parents never log in)
type User struct {
	BaseModel
	Username string `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password string `json:"-" gorm:"size:255;not null"`
	Email    string `json:"email" gorm:"size:255;uniqueIndex"`
	Phone    string `json:"phone" gorm:"size:20"`
	Role     string `json:"role" gorm:"size:50;not null;default:'staff';type:enum('admin','staff')"` // admin, staff
	Status   string `json:"status" gorm:"size:50;not null;default:'active';type:enum('active','inactive','suspended')"`
}

// Student model. MonthlyFee is denormalized from grade and subject count so
// payment rows can be stamped without recomputing at read time.
type Student struct {
	BaseModel
	Name       string  `json:"name" gorm:"size:200;not null;index"`
	Grade      string  `json:"grade" gorm:"size:10;not null;index"` // K, PK1, PK2, 1..12
	Year       int     `json:"year" gorm:"not null;index"`          // academic year, e.g. 2025
	Subjects   JSON    `json:"subjects" gorm:"type:json"`           // array of subject codes
	MonthlyFee float64 `json:"monthly_fee" gorm:"not null;default:0"`

	Payments []Payment `json:"payments,omitempty" gorm:"foreignKey:StudentID"`
}

// SubjectList decodes the Subjects column; a null or malformed column reads
// as an empty list.
func (s *Student) SubjectList() []string {
	if s.Subjects.IsNull() {
		return nil
	}
	var out []string
	if err := json.Unmarshal(s.Subjects, &out); err != nil {
		return nil
	}
	return out
}

// Payment model, one row per student per billing month. Rows are created
// lazily when a month is first listed and stay unpaid until an admin records
// the payment.
type Payment struct {
	BaseModel
	StudentID            uint       `json:"student_id" gorm:"not null;uniqueIndex:idx_student_month"`
	Month                string     `json:"month" gorm:"size:7;not null;uniqueIndex:idx_student_month;index"` // YYYY-MM
	Amount               float64    `json:"amount" gorm:"not null;default:0"` // tuition portion actually charged
	LateFee              float64    `json:"late_fee" gorm:"not null;default:0"`
	TotalAmount          float64    `json:"total_amount" gorm:"not null;default:0"`
	IsPaid               bool       `json:"is_paid" gorm:"default:false;index"`
	PaidAt               *time.Time `json:"paid_at"`
	PaymentMethod        string     `json:"payment_method" gorm:"size:50"` // cash, transfer, credit, promptpay
	Reference            string     `json:"reference" gorm:"size:255"`
	IsRegistration       bool       `json:"is_registration" gorm:"default:false"`
	WaiveRegistrationFee bool       `json:"waive_registration_fee" gorm:"default:false"`
	IsHalfMonth          bool       `json:"is_half_month" gorm:"default:false"`

	Student Student `json:"student,omitempty" gorm:"foreignKey:StudentID"`
}

// FeeSetting holds the per-grade reference fees shown on the settings page.
// LateFeeRate is the legacy per-month surcharge kept for old records; the
// live late fee comes from AdminSetting.
type FeeSetting struct {
	BaseModel
	Grade           string  `json:"grade" gorm:"size:10;not null;uniqueIndex"`
	MonthlyFee      float64 `json:"monthly_fee" gorm:"not null;default:0"`
	RegistrationFee float64 `json:"registration_fee" gorm:"not null;default:0"`
	LateFeeRate     float64 `json:"late_fee_rate" gorm:"not null;default:0"`
}

// AdminSetting is a key/value row. Known keys: collection_day,
// late_fee_after_day, late_fee_amount, currency, school1_name,
// school1_address, school1_phone, school1_email and the school2_* set.
type AdminSetting struct {
	BaseModel
	SettingKey   string `json:"setting_key" gorm:"size:100;not null;uniqueIndex"`
	SettingValue string `json:"setting_value" gorm:"size:500"`
}

// ActivityLog model
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// LogArchive tracks activity-log batches shipped to S3
type LogArchive struct {
	BaseModel
	FileName    string    `json:"file_name" gorm:"size:255;not null"`
	S3Key       string    `json:"s3_key" gorm:"size:500;not null"`
	StartDate   time.Time `json:"start_date" gorm:"not null"`
	EndDate     time.Time `json:"end_date" gorm:"not null"`
	RecordCount int       `json:"record_count" gorm:"not null"`
	FileSize    int64     `json:"file_size" gorm:"not null"`
	Status      string    `json:"status" gorm:"size:50;not null;default:'pending';type:enum('pending','completed','failed')"`
	Error       string    `json:"error" gorm:"type:text"`
}
