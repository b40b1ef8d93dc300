package model

// RecognitionStatus accreditation state of an organization or council
type RecognitionStatus string

const (
	RecognitionRecognized   RecognitionStatus = "recognized"
	RecognitionPending      RecognitionStatus = "pending"
	RecognitionUnrecognized RecognitionStatus = "unrecognized"
)

// Organization table organizations, scoped to one academic year
type Organization struct {
	OrganizationID    string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"organization_id"`
	Name              string            `gorm:"type:varchar(200);not null"                     json:"name"`
	AcademicYearID    string            `gorm:"type:uuid;not null"                             json:"academic_year_id"`
	RecognitionStatus RecognitionStatus `gorm:"type:varchar(20);not null;default:'pending'"    json:"recognition_status"`
	PresidentID       *string           `gorm:"type:uuid"                                      json:"president_id,omitempty"`
	AdviserID         *string           `gorm:"type:uuid"                                      json:"adviser_id,omitempty"`
	BaseModel
}

func (Organization) TableName() string { return "organizations" }

// Council table councils, scoped to one academic year
type Council struct {
	CouncilID         string            `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"council_id"`
	Name              string            `gorm:"type:varchar(200);not null"                     json:"name"`
	AcademicYearID    string            `gorm:"type:uuid;not null"                             json:"academic_year_id"`
	RecognitionStatus RecognitionStatus `gorm:"type:varchar(20);not null;default:'pending'"    json:"recognition_status"`
	PresidentID       *string           `gorm:"type:uuid"                                      json:"president_id,omitempty"`
	AdviserID         *string           `gorm:"type:uuid"                                      json:"adviser_id,omitempty"`
	BaseModel
}

func (Council) TableName() string { return "councils" }
