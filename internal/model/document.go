package model

import "time"

// DocumentKind which registry workflow produced the document
type DocumentKind string

const (
	DocumentOrganization DocumentKind = "organization"
	DocumentEvent        DocumentKind = "event"
	DocumentCouncil      DocumentKind = "council"
)

// ComplianceStatus review state of a submitted document
type ComplianceStatus string

const (
	CompliancePending              ComplianceStatus = "pending"
	ComplianceApproved             ComplianceStatus = "approved"
	ComplianceRejectedWithDeadline ComplianceStatus = "rejected_with_deadline"
	ComplianceResubmitted          ComplianceStatus = "resubmitted"
)

// Document table documents. OwnerID points at the organization (kinds organization and
// event) or the council (kind council) that submitted it.
type Document struct {
	DocumentID           string           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"document_id"`
	Kind                 DocumentKind     `gorm:"type:varchar(20);not null"                      json:"kind"`
	Title                string           `gorm:"type:varchar(255);not null"                     json:"title"`
	OwnerID              string           `gorm:"type:uuid;not null"                             json:"owner_id"`
	AcademicYearID       string           `gorm:"type:uuid;not null"                             json:"academic_year_id"`
	ComplianceStatus     ComplianceStatus `gorm:"type:varchar(30);not null;default:'pending'"    json:"compliance_status"`
	ResubmissionDeadline *time.Time       `json:"resubmission_deadline,omitempty"`
	PresidentID          *string          `gorm:"type:uuid"                                      json:"president_id,omitempty"`
	AdviserID            *string          `gorm:"type:uuid"                                      json:"adviser_id,omitempty"`
	BaseModel
}

func (Document) TableName() string { return "documents" }

// AwaitingResubmission reports whether the document still owes a resubmission.
func (d *Document) AwaitingResubmission() bool {
	return d.ComplianceStatus == ComplianceRejectedWithDeadline && d.ResubmissionDeadline != nil
}
