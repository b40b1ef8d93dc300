package model

import "time"

// CalendarStatus lifecycle state of a year or semester
type CalendarStatus string

const (
	CalendarInactive CalendarStatus = "inactive"
	CalendarActive   CalendarStatus = "active"
	CalendarArchived CalendarStatus = "archived"
)

// AcademicYear table academic_years
type AcademicYear struct {
	AcademicYearID string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"  json:"academic_year_id"`
	Name           string         `gorm:"type:varchar(100);not null"                      json:"name"`
	StartDate      time.Time      `gorm:"type:date;not null"                              json:"start_date"`
	EndDate        time.Time      `gorm:"type:date;not null"                              json:"end_date"`
	Status         CalendarStatus `gorm:"type:varchar(20);not null;default:'inactive'"    json:"status"`
	BaseModel
}

func (AcademicYear) TableName() string { return "academic_years" }

// AcademicSemester table academic_semesters, owned by an AcademicYear
type AcademicSemester struct {
	AcademicSemesterID string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"academic_semester_id"`
	AcademicYearID     string         `gorm:"type:uuid;not null"                             json:"academic_year_id"`
	Name               string         `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate          time.Time      `gorm:"type:date;not null"                             json:"start_date"`
	EndDate            time.Time      `gorm:"type:date;not null"                             json:"end_date"`
	Status             CalendarStatus `gorm:"type:varchar(20);not null;default:'inactive'"   json:"status"`
	BaseModel
}

func (AcademicSemester) TableName() string { return "academic_semesters" }
