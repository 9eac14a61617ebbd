package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuildObjectPath(t *testing.T) {
	tests := []struct {
		name       string
		category   string
		base       string
		ext        string
		wantPrefix string
		wantSuffix string
	}{
		{name: "nested category", category: "posts/42", base: "flux-schnell_1", ext: "png", wantPrefix: "posts/42/", wantSuffix: "/flux-schnell_1.png"},
		{name: "dot segments dropped", category: "../posts/./7", base: "a", ext: ".JPG", wantPrefix: "posts/7/", wantSuffix: "/a.jpg"},
		{name: "empty category", category: "", base: "a", ext: "", wantPrefix: "misc/", wantSuffix: "/a.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := buildObjectPath(tt.category, tt.base, tt.ext)
			if !strings.HasPrefix(got, tt.wantPrefix) || !strings.HasSuffix(got, tt.wantSuffix) {
				t.Fatalf("buildObjectPath() = %q", got)
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	tests := []struct {
		base string
		key  string
		want string
	}{
		{base: "", key: "posts/1/a.png", want: "/files/posts/1/a.png"},
		{base: "https://cdn.example.com/", key: "/posts/1/a.png", want: "https://cdn.example.com/posts/1/a.png"},
		{base: "media", key: "a.png", want: "/media/a.png"},
		{base: "/files", key: "https://fal.media/x.png", want: "https://fal.media/x.png"},
		{base: "/files", key: "  ", want: ""},
	}
	for _, tt := range tests {
		if got := PublicURL(tt.base, tt.key); got != tt.want {
			t.Errorf("PublicURL(%q, %q) = %q, want %q", tt.base, tt.key, got, tt.want)
		}
	}
}

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	ctx := context.Background()

	key, err := store.Save(ctx, []byte("png-bytes"), SaveOptions{Category: "posts/9", BaseName: "img", Extension: "png"})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	abs := filepath.Join(dir, filepath.FromSlash(key))
	if data, err := os.ReadFile(abs); err != nil || string(data) != "png-bytes" {
		t.Fatalf("read back: %q %v", data, err)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(abs); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("file still present: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}

	if _, err := store.Save(ctx, nil, SaveOptions{}); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("empty payload err = %v", err)
	}
}

func TestLocalStorageResolveStaysInBase(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	got, err := store.resolve("../../etc/passwd")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(got, dir) {
		t.Fatalf("resolved path %q escaped %q", got, dir)
	}
}

func TestThumbnailDirectives(t *testing.T) {
	if got := (&ossStorage{}).ThumbnailDirective(400); got != "x-oss-process=image/resize,w_400" {
		t.Fatalf("oss directive = %q", got)
	}
	if got := (&cosStorage{}).ThumbnailDirective(320); got != "imageMogr2/thumbnail/320x" {
		t.Fatalf("cos directive = %q", got)
	}
}

func TestR2Endpoint(t *testing.T) {
	tests := []struct {
		name      string
		endpoint  string
		accountID string
		want      string
		wantErr   bool
	}{
		{name: "explicit", endpoint: "https://r2.example.com/", want: "https://r2.example.com"},
		{name: "no scheme", endpoint: "r2.example.com", want: "https://r2.example.com"},
		{name: "account id", accountID: "abc123", want: "https://abc123.r2.cloudflarestorage.com"},
		{name: "missing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r2Endpoint(tt.endpoint, tt.accountID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if got != tt.want {
				t.Fatalf("r2Endpoint() = %q, want %q", got, tt.want)
			}
		})
	}
}
