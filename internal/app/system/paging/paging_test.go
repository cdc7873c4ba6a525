package paging

import (
	"net/http/httptest"
	"testing"
)

func TestLimitPlusOne(t *testing.T) {
	if got := LimitPlusOne(); got != int64(PageSize+1) {
		t.Errorf("LimitPlusOne() = %d, want %d", got, PageSize+1)
	}
}

func TestParseStart(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"start=1", 1},
		{"start=51", 51},
		{"start=0", 1},
		{"start=-5", 1},
		{"start=abc", 1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/list?"+tt.query, nil)
			if got := ParseStart(r); got != tt.want {
				t.Errorf("ParseStart(?%s) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestTrimPage(t *testing.T) {
	t.Run("full page plus lookahead", func(t *testing.T) {
		rows := make([]int, PageSize+1)
		res := TrimPage(&rows, 1)
		if len(rows) != PageSize {
			t.Errorf("len = %d, want %d", len(rows), PageSize)
		}
		if !res.HasNext {
			t.Error("expected HasNext with a lookahead row")
		}
		if res.HasPrev {
			t.Error("first page must not report HasPrev")
		}
	})

	t.Run("partial page", func(t *testing.T) {
		rows := make([]int, 3)
		res := TrimPage(&rows, 51)
		if len(rows) != 3 {
			t.Errorf("len = %d, want 3", len(rows))
		}
		if res.HasNext {
			t.Error("partial page must not report HasNext")
		}
		if !res.HasPrev {
			t.Error("start > 1 should report HasPrev")
		}
	})
}

func TestComputeRange(t *testing.T) {
	tests := []struct {
		name         string
		start, shown int
		want         Range
	}{
		{"empty", 1, 0, Range{Start: 0, End: 0, PrevStart: 1, NextStart: 1}},
		{"first page", 1, PageSize, Range{Start: 1, End: PageSize, PrevStart: 1, NextStart: PageSize + 1}},
		{"second page", PageSize + 1, 10, Range{Start: PageSize + 1, End: PageSize + 10, PrevStart: 1, NextStart: PageSize + 11}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeRange(tt.start, tt.shown); got != tt.want {
				t.Errorf("ComputeRange(%d, %d) = %+v, want %+v", tt.start, tt.shown, got, tt.want)
			}
		})
	}
}
