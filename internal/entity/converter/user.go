package converter

import (
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"
)

// UserToSummary converts a db.User to dto.UserSummary.
func UserToSummary(u *db.User) dto.UserSummary {
	if u == nil {
		return dto.UserSummary{}
	}
	return dto.UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Bio:         u.Bio,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

// UserToPublicSummary drops the fields only the account owner may see.
func UserToPublicSummary(u *db.User) dto.UserSummary {
	s := UserToSummary(u)
	s.Email = ""
	s.Role = ""
	return s
}

// UserToAuthor converts a db.User to the author block of a post.
func UserToAuthor(u *db.User) dto.AuthorSummary {
	if u == nil {
		return dto.AuthorSummary{}
	}
	return dto.AuthorSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}
