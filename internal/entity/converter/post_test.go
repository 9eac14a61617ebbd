package converter

import (
	"testing"

	"leelaaverse/internal/entity/db"

	"gorm.io/datatypes"
)

func TestPostToItemProvenance(t *testing.T) {
	seed := int64(42)
	post := &db.Post{
		ID:            7,
		UserID:        3,
		User:          &db.User{ID: 3, Username: "leela", DisplayName: "Leela"},
		Category:      db.PostCategoryImage,
		Caption:       "A cat in space",
		MediaURL:      "https://cdn.example.com/posts/3/a.png",
		IsAIGenerated: true,
		AIProvenance: datatypes.NewJSONType(db.AIProvenance{
			GenerationID: 11,
			Provider:     "fal",
			Model:        "flux-schnell",
			Prompt:       "A cat in space",
			Parameters:   db.GenerationParameters{AspectRatio: "1:1", NumInferenceSteps: 4},
			Seed:         &seed,
		}),
		Tags: []db.Tag{{Name: "cats"}, {Name: "space"}},
	}

	item := PostToItem(post)
	if item.Author.Username != "leela" {
		t.Fatalf("author = %+v", item.Author)
	}
	if item.AIProvenance == nil || item.AIProvenance.Model != "flux-schnell" || *item.AIProvenance.Seed != 42 {
		t.Fatalf("provenance = %+v", item.AIProvenance)
	}
	if len(item.Tags) != 2 || item.Tags[1] != "space" {
		t.Fatalf("tags = %v", item.Tags)
	}
}

func TestPostToItemWithoutProvenance(t *testing.T) {
	item := PostToItem(&db.Post{ID: 1, Category: db.PostCategoryText, Caption: "hello"})
	if item.AIProvenance != nil {
		t.Fatal("text post should not expose provenance")
	}
	if item.Tags == nil {
		t.Fatal("tags should be an empty slice")
	}
}

func TestGenerationToStatus(t *testing.T) {
	completed := GenerationToStatus(&db.GenerationRecord{Status: db.GenerationStatusCompleted, ResultURL: "https://x/y.png"})
	if completed.ImageURL != "https://x/y.png" {
		t.Fatalf("image url = %q", completed.ImageURL)
	}
	failed := GenerationToStatus(&db.GenerationRecord{Status: db.GenerationStatusFailed, ErrorMessage: "nsfw", ResultURL: "ignored"})
	if failed.ImageURL != "" || failed.Error != "nsfw" {
		t.Fatalf("failed response = %+v", failed)
	}
}
