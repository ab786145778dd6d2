package insight

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/subsight/core/internal/config"
	"github.com/subsight/core/internal/middleware"
	"github.com/subsight/core/internal/models"
	"github.com/subsight/core/internal/modules/identity"
	"github.com/subsight/core/internal/modules/reddit"
	"github.com/subsight/core/internal/pkg/jwt"
	"gorm.io/gorm"
)

type fixedHostTransport struct {
	target *url.URL
}

func (ft fixedHostTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = ft.target.Scheme
	req.URL.Host = ft.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

// newTestRouter wires a full API router against in-memory storage, a stubbed
// generator, and an upstream test server standing in for reddit.
func newTestRouter(t *testing.T, upstream *httptest.Server, gen Generator) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	idSvc := identity.NewService(db)
	svc := NewService(db, idSvc)

	var httpClient *http.Client
	if upstream != nil {
		target, _ := url.Parse(upstream.URL)
		httpClient = &http.Client{Transport: fixedHostTransport{target: target}}
	}
	fetcher := reddit.NewClient(config.RedditConfig{UserAgent: "test-agent/1.0"}, nil, httpClient, nil)

	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(db))
	NewHandler(fetcher, NewExtractor(gen), svc, nil).RegisterRoutes(api, middleware.Auth(db))
	return router, db
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.Sign(subject, subject+"@example.com", time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	decoded := map[string]json.RawMessage{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: non-object response %q", method, path, w.Body.String())
		}
	}
	return w, decoded
}

func TestAnalyze_RequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t, nil, &fakeGenerator{out: validOutput})

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/analyze?url=https://reddit.com/r/x/comments/1/p", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
}

func TestAnalyze_MissingAndInvalidURL(t *testing.T) {
	router, _ := newTestRouter(t, nil, &fakeGenerator{out: validOutput})
	token := signToken(t, "analyst")

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/analyze", token, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing url, got %d", w.Code)
	}
	if string(body["error"]) != `"URL parameter required"` {
		t.Errorf("unexpected error payload %s", body["error"])
	}

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/analyze?url=https://example.com/x", token, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-reddit url, got %d", w.Code)
	}
}

func TestAnalyze_ReturnsResultAndPersists(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"data":{"children":[{"data":{"title":"Test Post","selftext":"body"}}]}},{"data":{"children":[{"data":{"body":"first"}},{"data":{"body":"[deleted]"}},{"data":{"body":"second"}}]}}]`)
	}))
	defer upstream.Close()

	gen := &fakeGenerator{out: `{
		"pain_points": ["setup is confusing"],
		"buying_intent": ["would pay for this"],
		"repeated_patterns": ["docs come up repeatedly"],
		"exact_user_quotes": ["I gave up after an hour"]
	}`}
	router, db := newTestRouter(t, upstream, gen)
	token := signToken(t, "analyst")

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/analyze?url=https://reddit.com/r/x/comments/1/test_post", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if string(body["title"]) != `"Test Post"` {
		t.Errorf("expected result title from thread, got %s", body["title"])
	}
	for _, key := range []string{"pain_points", "buying_intent", "repeated_patterns", "exact_user_quotes"} {
		var arr []string
		if err := json.Unmarshal(body[key], &arr); err != nil || len(arr) == 0 {
			t.Errorf("expected non-empty %q, got %s", key, body[key])
		}
	}

	// Only the two surviving comments reach the generation prompt.
	if !strings.Contains(gen.gotPrompt, "first") || !strings.Contains(gen.gotPrompt, "second") {
		t.Errorf("prompt missing surviving comments: %q", gen.gotPrompt)
	}
	if strings.Contains(gen.gotPrompt, "[deleted]") {
		t.Errorf("prompt carries deleted sentinel: %q", gen.gotPrompt)
	}

	var rows []models.SavedAnalysisModel
	if err := db.Find(&rows).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one persisted analysis, got %d", len(rows))
	}
	if rows[0].Title != "Test Post" {
		t.Errorf("unexpected persisted title %q", rows[0].Title)
	}
	if rows[0].URL != "https://reddit.com/r/x/comments/1/test_post" {
		t.Errorf("unexpected persisted URL %q", rows[0].URL)
	}
}

func TestAnalyze_UpstreamFailures(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "missing"):
			fmt.Fprint(w, `[{"data":{"children":[]}}]`)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer upstream.Close()

	router, _ := newTestRouter(t, upstream, &fakeGenerator{out: validOutput})
	token := signToken(t, "analyst")

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/analyze?url=https://reddit.com/r/x/comments/1/missing", token, "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for thread without a post, got %d", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/analyze?url=https://reddit.com/r/x/comments/1/other", token, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for upstream failure, got %d", w.Code)
	}
}

func TestAnalyze_ExtractionFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"data":{"children":[{"data":{"title":"t","selftext":"b"}}]}}]`)
	}))
	defer upstream.Close()

	router, _ := newTestRouter(t, upstream, &fakeGenerator{out: "not json at all"})
	token := signToken(t, "analyst")

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/analyze?url=https://reddit.com/r/x/comments/1/p", token, "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for extraction failure, got %d", w.Code)
	}
}

func TestInsights_RequireAuth(t *testing.T) {
	router, _ := newTestRouter(t, nil, &fakeGenerator{out: validOutput})

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/insights"},
		{http.MethodGet, "/api/v1/insights/list"},
		{http.MethodGet, "/api/v1/insights/some-id"},
		{http.MethodDelete, "/api/v1/insights"},
	} {
		w, _ := doJSON(t, router, tc.method, tc.path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401 without token, got %d", tc.method, tc.path, w.Code)
		}
	}
}

func TestInsights_SaveGetListDeleteLifecycle(t *testing.T) {
	router, _ := newTestRouter(t, nil, &fakeGenerator{out: validOutput})
	token := signToken(t, "owner")

	payload := `{"url":"https://reddit.com/r/x/comments/1/p","title":"Test Post","insights":{"pain_points":["p"],"buying_intent":[],"repeated_patterns":[],"exact_user_quotes":["q"]}}`
	w, body := doJSON(t, router, http.MethodPost, "/api/v1/insights", token, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if string(body["success"]) != "true" {
		t.Errorf("save: expected success true, got %s", body["success"])
	}
	var id string
	if err := json.Unmarshal(body["id"], &id); err != nil || id == "" {
		t.Fatalf("save: missing id in %s", w.Body.String())
	}

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/insights/"+id, token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var row models.SavedAnalysisModel
	if err := json.Unmarshal(body["response"], &row); err != nil {
		t.Fatalf("get: bad response envelope: %v", err)
	}
	if row.ID != id || row.Title != "Test Post" {
		t.Errorf("get: unexpected row %+v", row)
	}

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/insights/list", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var rows []models.SavedAnalysisModel
	if err := json.Unmarshal(body["responses"], &rows); err != nil {
		t.Fatalf("list: bad responses envelope: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("list: expected 1 row, got %d", len(rows))
	}
	if _, ok := body["pagination"]; ok {
		t.Error("list: unfiltered response should not carry pagination")
	}

	w, body = doJSON(t, router, http.MethodDelete, "/api/v1/insights", token, fmt.Sprintf(`{"id":%q}`, id))
	if w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if string(body["success"]) != "true" {
		t.Errorf("delete: expected success true, got %s", body["success"])
	}

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/insights", token, fmt.Sprintf(`{"id":%q}`, id))
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", w.Code)
	}
}

// Repeat deletes keep their normal status codes even with the duplicate-submit
// guard in the chain, since it only engages on an explicit idempotence key.
func TestInsights_DeleteTwiceWithDuplicateGuardMounted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db := newTestDB(t)
	idSvc := identity.NewService(db)
	svc := NewService(db, idSvc)
	fetcher := reddit.NewClient(config.RedditConfig{UserAgent: "test-agent/1.0"}, nil, nil, nil)

	router := gin.New()
	router.Use(middleware.Idempotence(rdb))
	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(db))
	NewHandler(fetcher, NewExtractor(&fakeGenerator{out: validOutput}), svc, nil).RegisterRoutes(api, middleware.Auth(db))

	token := signToken(t, "owner")
	payload := `{"url":"https://reddit.com/r/x/comments/1/p","title":"Test Post","insights":{"pain_points":["p"],"buying_intent":[],"repeated_patterns":[],"exact_user_quotes":[]}}`
	w, body := doJSON(t, router, http.MethodPost, "/api/v1/insights", token, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var id string
	if err := json.Unmarshal(body["id"], &id); err != nil || id == "" {
		t.Fatalf("save: missing id in %s", w.Body.String())
	}

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/insights", token, fmt.Sprintf(`{"id":%q}`, id))
	if w.Code != http.StatusOK {
		t.Fatalf("first delete: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/insights", token, fmt.Sprintf(`{"id":%q}`, id))
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestInsights_OwnershipAcrossIdentities(t *testing.T) {
	router, _ := newTestRouter(t, nil, &fakeGenerator{out: validOutput})
	ownerToken := signToken(t, "owner")
	otherToken := signToken(t, "other")

	payload := `{"url":"https://reddit.com/r/x/comments/1/p","insights":{"pain_points":[],"buying_intent":[],"repeated_patterns":[],"exact_user_quotes":[]}}`
	w, body := doJSON(t, router, http.MethodPost, "/api/v1/insights", ownerToken, payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d", w.Code)
	}
	var id string
	if err := json.Unmarshal(body["id"], &id); err != nil {
		t.Fatalf("save: missing id")
	}

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/insights/"+id, otherToken, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("get by non-owner: expected 403, got %d", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/insights", otherToken, fmt.Sprintf(`{"id":%q}`, id))
	if w.Code != http.StatusNotFound {
		t.Errorf("delete by non-owner: expected 404, got %d", w.Code)
	}

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/insights/list", otherToken, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var rows []models.SavedAnalysisModel
	if err := json.Unmarshal(body["responses"], &rows); err != nil {
		t.Fatalf("list: bad responses envelope: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("foreign list should be empty, got %d rows", len(rows))
	}
}

func TestInsights_SaveValidation(t *testing.T) {
	router, _ := newTestRouter(t, nil, &fakeGenerator{out: validOutput})
	token := signToken(t, "owner")

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/insights", token, `{"title":"no url","insights":{"pain_points":[],"buying_intent":[],"repeated_patterns":[],"exact_user_quotes":[]}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing url: expected 400, got %d", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/insights", token, `{"url":"https://reddit.com/r/x/comments/1/p"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing insights: expected 400, got %d", w.Code)
	}

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/insights", token, `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing id: expected 400, got %d", w.Code)
	}
}

func TestInsights_ListFilterAndPagination(t *testing.T) {
	router, _ := newTestRouter(t, nil, &fakeGenerator{out: validOutput})
	token := signToken(t, "owner")

	for i := 0; i < 15; i++ {
		title := fmt.Sprintf("thread %d", i)
		if i%3 == 0 {
			title = fmt.Sprintf("golang thread %d", i)
		}
		payload := fmt.Sprintf(`{"url":"https://reddit.com/r/x/comments/%d/p","title":%q,"insights":{"pain_points":[],"buying_intent":[],"repeated_patterns":[],"exact_user_quotes":[]}}`, i, title)
		if w, _ := doJSON(t, router, http.MethodPost, "/api/v1/insights", token, payload); w.Code != http.StatusCreated {
			t.Fatalf("save %d: expected 201, got %d", i, w.Code)
		}
	}

	w, body := doJSON(t, router, http.MethodGet, "/api/v1/insights/list?page=1", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("page 1: expected 200, got %d", w.Code)
	}
	var rows []models.SavedAnalysisModel
	if err := json.Unmarshal(body["responses"], &rows); err != nil {
		t.Fatalf("page 1: bad envelope: %v", err)
	}
	if len(rows) != 12 {
		t.Errorf("page 1: expected 12 rows, got %d", len(rows))
	}
	pag := map[string]json.RawMessage{}
	if err := json.Unmarshal(body["pagination"], &pag); err != nil {
		t.Fatalf("page 1: missing pagination: %v", err)
	}
	if string(pag["total"]) != "15" || string(pag["total_page"]) != "2" || string(pag["has_next_page"]) != "true" {
		t.Errorf("page 1: unexpected pagination %s", body["pagination"])
	}

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/insights/list?page=2", token, "")
	if err := json.Unmarshal(body["responses"], &rows); err != nil {
		t.Fatalf("page 2: bad envelope: %v", err)
	}
	if len(rows) != 3 {
		t.Errorf("page 2: expected 3 rows, got %d", len(rows))
	}

	w, body = doJSON(t, router, http.MethodGet, "/api/v1/insights/list?keyword=GOLANG", token, "")
	if err := json.Unmarshal(body["responses"], &rows); err != nil {
		t.Fatalf("keyword: bad envelope: %v", err)
	}
	if len(rows) != 5 {
		t.Errorf("keyword: expected 5 matches, got %d", len(rows))
	}

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/insights/list?start=bad-date", token, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", w.Code)
	}
}
