package entity

// UserUpdates 用户更新字段
type UserUpdates struct {
	DisplayName  *string
	Bio          *string
	AvatarURL    *string
	Role         *string
	PasswordHash *string
	IsActive     *bool
}

// ToMap 转换为 GORM 更新 map（内部使用）
func (u UserUpdates) ToMap() map[string]interface{} {
	updates := make(map[string]interface{})
	if u.DisplayName != nil {
		updates["display_name"] = *u.DisplayName
	}
	if u.Bio != nil {
		updates["bio"] = *u.Bio
	}
	if u.AvatarURL != nil {
		updates["avatar_url"] = *u.AvatarURL
	}
	if u.Role != nil {
		updates["role"] = *u.Role
	}
	if u.PasswordHash != nil {
		updates["password_hash"] = *u.PasswordHash
	}
	if u.IsActive != nil {
		updates["is_active"] = *u.IsActive
	}
	return updates
}

// IsEmpty 检查是否没有任何更新字段
func (u UserUpdates) IsEmpty() bool {
	return len(u.ToMap()) == 0
}

// PostCounterDeltas 帖子计数器增量
type PostCounterDeltas struct {
	Likes    int64
	Comments int64
	Shares   int64
	Saves    int64
	Views    int64
}

// Columns 返回需要自增的列及增量
func (d PostCounterDeltas) Columns() map[string]int64 {
	cols := make(map[string]int64)
	if d.Likes != 0 {
		cols["likes_count"] = d.Likes
	}
	if d.Comments != 0 {
		cols["comments_count"] = d.Comments
	}
	if d.Shares != 0 {
		cols["shares_count"] = d.Shares
	}
	if d.Saves != 0 {
		cols["saves_count"] = d.Saves
	}
	if d.Views != 0 {
		cols["views_count"] = d.Views
	}
	return cols
}
