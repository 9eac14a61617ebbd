package sql

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"leelaaverse/internal/entity"
	"leelaaverse/internal/entity/db"
	"leelaaverse/internal/entity/dto"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.SetupJoinTable(&db.Post{}, "Tags", &db.PostTag{}); err != nil {
		t.Fatalf("join table: %v", err)
	}
	if err := conn.AutoMigrate(&db.User{}, &db.GenerationRecord{}, &db.Tag{}, &db.Post{}, &db.PostTag{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGormRepository(conn)
}

func seedUser(t *testing.T, repo *GormRepository, username string) *db.User {
	t.Helper()
	user := &db.User{Email: username + "@example.com", Username: username, PasswordHash: "x", Role: db.UserRoleUser, IsActive: true}
	if err := repo.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func seedGeneration(t *testing.T, repo *GormRepository, userID uint, jobID string) *db.GenerationRecord {
	t.Helper()
	record := &db.GenerationRecord{
		UserID:        userID,
		ExternalJobID: jobID,
		Provider:      "fal",
		Model:         "flux-schnell",
		Prompt:        "A cat in space",
		Parameters:    datatypes.NewJSONType(db.GenerationParameters{AspectRatio: "1:1", ImageSize: "square_hd", NumInferenceSteps: 4}),
	}
	if err := repo.CreateGenerationRecord(context.Background(), record); err != nil {
		t.Fatalf("create record: %v", err)
	}
	return record
}

func TestCreateGenerationRecordDefaults(t *testing.T) {
	repo := newTestRepo(t)
	user := seedUser(t, repo, "leela")
	record := seedGeneration(t, repo, user.ID, "job-1")

	if record.Status != db.GenerationStatusProcessing {
		t.Fatalf("status = %q, want processing", record.Status)
	}

	dup := &db.GenerationRecord{UserID: user.ID, ExternalJobID: "job-1"}
	if err := repo.CreateGenerationRecord(context.Background(), dup); err == nil {
		t.Fatal("expected unique violation for duplicate job id")
	}

	loaded, err := repo.GetGenerationRecordByJobID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := loaded.Parameters.Data().ImageSize; got != "square_hd" {
		t.Fatalf("image size = %q", got)
	}

	if _, err := repo.GetGenerationRecordByJobID(context.Background(), "missing"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGenerationTerminalTransitions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "leela")
	seedGeneration(t, repo, user.ID, "job-ok")
	seedGeneration(t, repo, user.ID, "job-bad")

	seed := int64(1234)
	if err := repo.MarkGenerationCompleted(ctx, "job-ok", "https://fal.media/a.png", &seed); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := repo.MarkGenerationCompleted(ctx, "job-ok", "https://fal.media/b.png", nil); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("second complete err = %v, want ErrInvalidTransition", err)
	}
	if err := repo.MarkGenerationFailed(ctx, "job-ok", "late failure"); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("fail after complete err = %v", err)
	}

	record, err := repo.GetGenerationRecordByJobID(ctx, "job-ok")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if record.ResultURL != "https://fal.media/a.png" || record.Seed == nil || *record.Seed != 1234 {
		t.Fatalf("terminal data changed: %+v", record)
	}
	if record.CompletedAt == nil {
		t.Fatal("completed_at not set")
	}

	if err := repo.MarkGenerationFailed(ctx, "job-bad", "nsfw content"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	if err := repo.MarkGenerationCompleted(ctx, "job-bad", "https://fal.media/c.png", nil); !errors.Is(err, entity.ErrInvalidTransition) {
		t.Fatalf("complete after fail err = %v", err)
	}
	failed, _ := repo.GetGenerationRecordByJobID(ctx, "job-bad")
	if failed.Status != db.GenerationStatusFailed || failed.ResultURL != "" {
		t.Fatalf("failed record = %+v", failed)
	}

	if err := repo.MarkGenerationFailed(ctx, "job-unknown", "x"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unknown job err = %v", err)
	}
}

func TestConcurrentCompletionSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "leela")
	seedGeneration(t, repo, user.ID, "job-race")

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.MarkGenerationCompleted(ctx, "job-race", "https://fal.media/race.png", nil)
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, entity.ErrInvalidTransition):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want 1", wins)
	}
}

func TestCreatePostFromGeneration(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "leela")
	record := seedGeneration(t, repo, user.ID, "job-pub")

	post := &db.Post{UserID: user.ID, Category: db.PostCategoryImage, MediaURL: "https://cdn/x.png", Visibility: db.PostVisibilityPublic, Status: db.PostStatusPublished}
	if err := repo.CreatePostFromGeneration(ctx, post, nil, record.ID); !errors.Is(err, entity.ErrGenerationNotCompleted) {
		t.Fatalf("publish processing record err = %v", err)
	}
	if post.ID != 0 {
		t.Fatal("post must not be created for an incomplete record")
	}

	if err := repo.MarkGenerationCompleted(ctx, "job-pub", "https://fal.media/x.png", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := repo.CreatePostFromGeneration(ctx, post, []string{"#Cats", "space", "cats"}, record.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	loaded, err := repo.GetGenerationRecordByJobID(ctx, "job-pub")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PostID == nil || *loaded.PostID != post.ID {
		t.Fatalf("record not linked: %+v", loaded.PostID)
	}

	stored, err := repo.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("get post: %v", err)
	}
	if len(stored.Tags) != 2 {
		t.Fatalf("tags = %+v", stored.Tags)
	}

	again := &db.Post{UserID: user.ID, Category: db.PostCategoryImage, MediaURL: "https://cdn/y.png", Visibility: db.PostVisibilityPublic, Status: db.PostStatusPublished}
	if err := repo.CreatePostFromGeneration(ctx, again, nil, record.ID); !errors.Is(err, entity.ErrAlreadyPublished) {
		t.Fatalf("second publish err = %v", err)
	}
}

func TestListPostsVisibilityAndSoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	alice := seedUser(t, repo, "alice")
	bob := seedUser(t, repo, "bob")

	mk := func(owner uint, visibility, category string, tags ...string) *db.Post {
		p := &db.Post{UserID: owner, Category: category, Caption: "c", MediaURL: "https://cdn/p.png", Visibility: visibility, Status: db.PostStatusPublished}
		if err := repo.CreatePost(ctx, p, tags); err != nil {
			t.Fatalf("create post: %v", err)
		}
		return p
	}
	public := mk(alice.ID, db.PostVisibilityPublic, db.PostCategoryImage, "cats")
	mk(alice.ID, db.PostVisibilityPrivate, db.PostCategoryImage)
	mk(bob.ID, db.PostVisibilityPublic, db.PostCategoryText)

	tests := []struct {
		name  string
		query dto.FeedQuery
		want  int64
	}{
		{name: "anonymous", query: dto.FeedQuery{}, want: 2},
		{name: "owner sees private", query: dto.FeedQuery{ViewerID: alice.ID}, want: 3},
		{name: "other user", query: dto.FeedQuery{ViewerID: bob.ID}, want: 2},
		{name: "category", query: dto.FeedQuery{Category: db.PostCategoryText}, want: 1},
		{name: "tag", query: dto.FeedQuery{Tag: "#Cats"}, want: 1},
		{name: "author", query: dto.FeedQuery{AuthorID: alice.ID}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			posts, meta, err := repo.ListPosts(ctx, &q)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if meta.Total != tt.want || int64(len(posts)) != tt.want {
				t.Fatalf("total = %d len = %d, want %d", meta.Total, len(posts), tt.want)
			}
		})
	}

	if err := repo.DeletePost(ctx, public.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetPost(ctx, public.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("deleted post still readable: %v", err)
	}
	if err := repo.DeletePost(ctx, public.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("double delete err = %v", err)
	}
	posts, _, err := repo.ListPosts(ctx, &dto.FeedQuery{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("feed after delete = %d posts", len(posts))
	}
}

func TestSweepStaleGenerations(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "leela")
	seedGeneration(t, repo, user.ID, "job-old")
	seedGeneration(t, repo, user.ID, "job-done")
	if err := repo.MarkGenerationCompleted(ctx, "job-done", "https://fal.media/d.png", nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	swept, err := repo.SweepStaleGenerations(ctx, time.Now().Add(time.Minute), "generation timed out")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if len(swept) != 1 || swept[0].ExternalJobID != "job-old" {
		t.Fatalf("swept = %+v", swept)
	}
	done, _ := repo.GetGenerationRecordByJobID(ctx, "job-done")
	if done.Status != db.GenerationStatusCompleted {
		t.Fatalf("completed record was swept: %q", done.Status)
	}
}

func TestIncrementPostCountersAndTags(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	user := seedUser(t, repo, "leela")
	post := &db.Post{UserID: user.ID, Category: db.PostCategoryText, Caption: "hi", Visibility: db.PostVisibilityPublic, Status: db.PostStatusPublished}
	if err := repo.CreatePost(ctx, post, []string{"hello"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.IncrementPostCounters(ctx, post.ID, entity.PostCounterDeltas{Views: 2}); err != nil {
		t.Fatalf("increment: %v", err)
	}
	stored, _ := repo.GetPost(ctx, post.ID)
	if stored.ViewsCount != 2 {
		t.Fatalf("views = %d", stored.ViewsCount)
	}

	tags, err := repo.ListTags(ctx, 10)
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	if len(tags) != 1 || tags[0].Name != "hello" || tags[0].UsageCount != 1 {
		t.Fatalf("tags = %+v", tags)
	}
}

func TestLinkGenerationToPostOnce(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	user := seedUser(t, repo, "linker")
	record := seedGeneration(t, repo, user.ID, "job-link")

	if err := repo.LinkGenerationToPost(ctx, record.ID, 7); err != nil {
		t.Fatalf("first link: %v", err)
	}
	if err := repo.LinkGenerationToPost(ctx, record.ID, 8); !errors.Is(err, entity.ErrAlreadyPublished) {
		t.Fatalf("second link err = %v, want ErrAlreadyPublished", err)
	}
	if err := repo.LinkGenerationToPost(ctx, 9999, 8); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unknown record err = %v", err)
	}

	got, err := repo.GetGenerationRecordByJobID(ctx, "job-link")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.PostID == nil || *got.PostID != 7 {
		t.Fatalf("post id = %v, want 7", got.PostID)
	}
}
