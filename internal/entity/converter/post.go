package converter

import (
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"
)

// TagToDTO converts db.Tag to dto.Tag.
func TagToDTO(t *db.Tag) dto.Tag {
	if t == nil {
		return dto.Tag{}
	}
	return dto.Tag{
		ID:         t.ID,
		Name:       t.Name,
		UsageCount: t.UsageCount,
		CreatedAt:  t.CreatedAt,
	}
}

// TagsToDTOs converts a slice of db.Tag to dto.Tag.
func TagsToDTOs(tags []db.Tag) []dto.Tag {
	dtos := make([]dto.Tag, len(tags))
	for i := range tags {
		dtos[i] = TagToDTO(&tags[i])
	}
	return dtos
}

// PostToItem converts db.Post to dto.PostItem.
func PostToItem(p *db.Post) dto.PostItem {
	if p == nil {
		return dto.PostItem{}
	}

	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t.Name)
	}

	item := dto.PostItem{
		ID:            p.ID,
		Author:        dto.AuthorSummary{ID: p.UserID},
		Category:      p.Category,
		Title:         p.Title,
		Caption:       p.Caption,
		MediaURL:      p.MediaURL,
		ThumbnailURL:  p.ThumbnailURL,
		IsAIGenerated: p.IsAIGenerated,
		Tags:          tags,
		Visibility:    p.Visibility,
		Status:        p.Status,
		LikesCount:    p.LikesCount,
		CommentsCount: p.CommentsCount,
		SharesCount:   p.SharesCount,
		SavesCount:    p.SavesCount,
		ViewsCount:    p.ViewsCount,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.User != nil {
		item.Author = UserToAuthor(p.User)
	}
	if p.IsAIGenerated {
		prov := p.AIProvenance.Data()
		item.AIProvenance = &dto.AIProvenance{
			GenerationID:      prov.GenerationID,
			Provider:          prov.Provider,
			Model:             prov.Model,
			Prompt:            prov.Prompt,
			AspectRatio:       prov.Parameters.AspectRatio,
			NumInferenceSteps: prov.Parameters.NumInferenceSteps,
			GuidanceScale:     prov.Parameters.GuidanceScale,
			Seed:              prov.Seed,
		}
	}
	return item
}

// PostsToItems converts a slice of db.Post to dto.PostItem.
func PostsToItems(posts []db.Post) []dto.PostItem {
	items := make([]dto.PostItem, len(posts))
	for i := range posts {
		items[i] = PostToItem(&posts[i])
	}
	return items
}
