package db

import "time"

const (
	UserRoleAdmin = "admin"
	UserRoleUser  = "user"
)

// User 表示持久化的用户账户。
type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Email        string    `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"column:username;type:varchar(64);uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	DisplayName  string    `gorm:"column:display_name;type:varchar(255)" json:"display_name"`
	Bio          string    `gorm:"column:bio;type:text" json:"bio"`
	AvatarURL    string    `gorm:"column:avatar_url;type:varchar(1024)" json:"avatar_url"`
	Role         string    `gorm:"column:role;type:varchar(50);index;not null" json:"role"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

// TableName 指定表名。
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the account may moderate other users' content.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == UserRoleAdmin
}
