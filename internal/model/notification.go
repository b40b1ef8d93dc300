package model

// Owning entity types stored in Notification.RelatedType
const (
	OwnerAcademicYear     = "academic_year"
	OwnerAcademicSemester = "academic_semester"
	OwnerOrganization     = "organization"
	OwnerCouncil          = "council"
	OwnerDocument         = "document"
)

// NotificationTypeDeadlineReminder in-app reminder of an upcoming resubmission deadline
const NotificationTypeDeadlineReminder = "deadline_reminder"

// Notification table notifications
type Notification struct {
	NotificationID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"notification_id"`
	UserID         string  `gorm:"type:uuid;not null"                             json:"user_id"`
	Type           string  `gorm:"type:varchar(50);not null"                      json:"type"`
	Title          string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content        string  `gorm:"type:text;not null"                             json:"content"`
	IsRead         bool    `gorm:"not null;default:false"                         json:"is_read"`
	RelatedType    *string `gorm:"type:varchar(30)"                               json:"related_type,omitempty"` // owning entity type
	RelatedID      *string `gorm:"type:uuid"                                      json:"related_id,omitempty"`
	BaseModel
}

func (Notification) TableName() string { return "notifications" }
