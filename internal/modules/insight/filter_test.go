package insight

import (
	"fmt"
	"testing"
	"time"

	"github.com/subsight/core/internal/models"
)

func analysisAt(title, url string, created time.Time) models.SavedAnalysisModel {
	m := models.SavedAnalysisModel{URL: url, Title: title}
	m.CreatedAt = created
	return m
}

func TestFilter_KeywordCaseInsensitive(t *testing.T) {
	now := time.Now()
	items := []models.SavedAnalysisModel{
		analysisAt("Foo launch thread", "https://reddit.com/r/startups/comments/1/a", now),
		analysisAt("Unrelated", "https://reddit.com/r/golang/comments/2/foobar", now),
		analysisAt("Nothing here", "https://reddit.com/r/misc/comments/3/c", now),
	}

	got := ListFilter{Keyword: "FOO"}.Apply(items)
	if len(got) != 2 {
		t.Fatalf("expected keyword to match title and URL, got %d items", len(got))
	}
}

func TestFilter_EmptyKeywordMatchesAll(t *testing.T) {
	now := time.Now()
	items := []models.SavedAnalysisModel{
		analysisAt("a", "u1", now),
		analysisAt("b", "u2", now),
	}
	if got := (ListFilter{}).Apply(items); len(got) != 2 {
		t.Fatalf("expected all items, got %d", len(got))
	}
}

func TestFilter_DateBoundsInclusive(t *testing.T) {
	items := []models.SavedAnalysisModel{
		analysisAt("before", "u", time.Date(2026, 3, 9, 23, 59, 0, 0, time.Local)),
		analysisAt("on start", "u", time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)),
		analysisAt("inside", "u", time.Date(2026, 3, 11, 12, 0, 0, 0, time.Local)),
		analysisAt("end of last day", "u", time.Date(2026, 3, 12, 23, 59, 59, 0, time.Local)),
		analysisAt("after", "u", time.Date(2026, 3, 13, 0, 0, 1, 0, time.Local)),
	}

	start, err := ParseStartDate("2026-03-10")
	if err != nil {
		t.Fatalf("ParseStartDate: %v", err)
	}
	end, err := ParseEndDate("2026-03-12")
	if err != nil {
		t.Fatalf("ParseEndDate: %v", err)
	}

	got := ListFilter{StartDate: start, EndDate: end}.Apply(items)
	if len(got) != 3 {
		t.Fatalf("expected 3 items inside the inclusive range, got %d", len(got))
	}
	if got[0].Title != "on start" || got[2].Title != "end of last day" {
		t.Errorf("unexpected range boundaries: %q .. %q", got[0].Title, got[2].Title)
	}
}

func TestParseDates_EmptyMeansUnbounded(t *testing.T) {
	if v, err := ParseStartDate(""); err != nil || v != nil {
		t.Errorf("expected nil bound for empty start, got %v, %v", v, err)
	}
	if v, err := ParseEndDate(" "); err != nil || v != nil {
		t.Errorf("expected nil bound for blank end, got %v, %v", v, err)
	}
	if _, err := ParseStartDate("03/10/2026"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestPage_TwentyFiveItemsAcrossThreePages(t *testing.T) {
	items := make([]models.SavedAnalysisModel, 25)
	for i := range items {
		items[i] = analysisAt(fmt.Sprintf("item %d", i), "u", time.Now())
	}

	page1, meta := Page(items, 1)
	if len(page1) != 12 {
		t.Fatalf("page 1: expected 12 items, got %d", len(page1))
	}
	if meta.Total != 25 || meta.TotalPage != 3 || meta.Size != PageSize || !meta.HasNextPage {
		t.Errorf("unexpected page 1 metadata %+v", meta)
	}

	page2, _ := Page(items, 2)
	if len(page2) != 12 || page2[0].Title != "item 12" {
		t.Fatalf("page 2: expected 12 items starting at item 12, got %d starting at %q", len(page2), page2[0].Title)
	}

	page3, meta := Page(items, 3)
	if len(page3) != 1 || page3[0].Title != "item 24" {
		t.Fatalf("page 3: expected the final item, got %d items", len(page3))
	}
	if meta.HasNextPage {
		t.Error("page 3 should not report a next page")
	}
}

func TestPage_OutOfRangeYieldsEmpty(t *testing.T) {
	items := []models.SavedAnalysisModel{analysisAt("only", "u", time.Now())}

	got, meta := Page(items, 5)
	if len(got) != 0 {
		t.Fatalf("expected empty page, got %d items", len(got))
	}
	if meta.CurrentPage != 5 || meta.Total != 1 {
		t.Errorf("unexpected metadata %+v", meta)
	}
}
