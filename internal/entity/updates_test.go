package entity

import "testing"

func TestUserUpdatesToMap(t *testing.T) {
	name := "Leela"
	active := false
	u := UserUpdates{DisplayName: &name, IsActive: &active}

	got := u.ToMap()
	if len(got) != 2 {
		t.Fatalf("expected 2 columns, got %v", got)
	}
	if got["display_name"] != "Leela" || got["is_active"] != false {
		t.Fatalf("unexpected map %v", got)
	}
	if u.IsEmpty() {
		t.Fatal("updates should not be empty")
	}
	if !(UserUpdates{}).IsEmpty() {
		t.Fatal("zero updates should be empty")
	}
}

func TestPostCounterDeltasColumns(t *testing.T) {
	cols := PostCounterDeltas{Views: 1, Likes: -1}.Columns()
	if cols["views_count"] != 1 || cols["likes_count"] != -1 {
		t.Fatalf("unexpected columns %v", cols)
	}
	if _, ok := cols["shares_count"]; ok {
		t.Fatal("zero deltas must be omitted")
	}
}
