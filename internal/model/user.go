package model

// User table users (read-only here: reminder recipients)
type User struct {
	UserID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Name   string `gorm:"type:varchar(150);not null"                     json:"name"`
	Email  string `gorm:"type:varchar(255);not null"                     json:"email"`
	Role   string `gorm:"type:varchar(30);not null;default:'student'"    json:"role"`
	BaseModel
}

func (User) TableName() string { return "users" }
