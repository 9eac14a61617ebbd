package dto

import "time"

// UserSummary is a lightweight user description returned to clients.
type UserSummary struct {
	ID          uint      `json:"id"`
	Email       string    `json:"email,omitempty"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        string    `json:"role,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProfileUpdateRequest is the payload for updating the caller's profile.
type ProfileUpdateRequest struct {
	DisplayName *string `json:"display_name,omitempty" binding:"omitempty,max=255"`
	Bio         *string `json:"bio,omitempty" binding:"omitempty,max=1000"`
	AvatarURL   *string `json:"avatar_url,omitempty" binding:"omitempty,url"`
}

// UserResponse wraps a single user.
type UserResponse struct {
	Success bool        `json:"success"`
	User    UserSummary `json:"user"`
}
