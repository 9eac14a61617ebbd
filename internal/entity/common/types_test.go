package common

import "testing"

func TestBaseParamsNormalize(t *testing.T) {
	tests := []struct {
		name         string
		in           BaseParams
		wantPage     int64
		wantPageSize int64
		wantOffset   int
	}{
		{name: "defaults", in: BaseParams{}, wantPage: 1, wantPageSize: 20, wantOffset: 0},
		{name: "capped", in: BaseParams{Page: 2, PageSize: 500}, wantPage: 2, wantPageSize: 50, wantOffset: 50},
		{name: "kept", in: BaseParams{Page: 3, PageSize: 10}, wantPage: 3, wantPageSize: 10, wantOffset: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Normalize(20, 50)
			if p.Page != tt.wantPage || p.PageSize != tt.wantPageSize {
				t.Fatalf("got page=%d size=%d", p.Page, p.PageSize)
			}
			if got := p.Offset(); got != tt.wantOffset {
				t.Fatalf("offset = %d, want %d", got, tt.wantOffset)
			}
		})
	}
}

func TestMetaPages(t *testing.T) {
	m := Meta{Page: 1, PageSize: 20, Total: 41}
	if m.Pages() != 3 {
		t.Fatalf("pages = %d", m.Pages())
	}
	if !m.HasMore() {
		t.Fatal("expected more pages")
	}
	last := Meta{Page: 3, PageSize: 20, Total: 41}
	if last.HasMore() {
		t.Fatal("last page should not report more")
	}
}

func TestStringArrayScan(t *testing.T) {
	var a StringArray
	if err := a.Scan([]byte(`["cat","space"]`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !a.Contains("space") || len(a) != 2 {
		t.Fatalf("unexpected value %v", a)
	}
	if err := a.Scan(42); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
