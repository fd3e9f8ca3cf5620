package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/x402-media-gateway/internal/config"
	"github.com/tbourn/x402-media-gateway/internal/domain"
	"github.com/tbourn/x402-media-gateway/internal/payment"
	"github.com/tbourn/x402-media-gateway/internal/repo"
	"github.com/tbourn/x402-media-gateway/internal/routes"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:router_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// nopFacilitator fails the test if the gate ever reaches it.
type nopFacilitator struct{ t *testing.T }

func (f nopFacilitator) Verify(context.Context, json.RawMessage, payment.Requirement) (*payment.VerifyResponse, error) {
	f.t.Fatalf("unexpected verify")
	return nil, nil
}

func (f nopFacilitator) Settle(context.Context, json.RawMessage, payment.Requirement) (*payment.SettleResponse, error) {
	f.t.Fatalf("unexpected settle")
	return nil, nil
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	reg, err := routes.NewRegistry([]routes.Definition{{
		Route: "/fox", Quality: "low", Default: true, Model: "fal-ai/flux/schnell", Price: "10",
		Description: "Generate a fox image", ResponseURLPath: "images.0.url",
		DefaultPrompt: "a fox", MediaType: "image", OutputExtension: "png",
	}}, 18)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return Deps{
		DB:       newTestDB(t),
		Registry: reg,
		Gate: &payment.Gate{
			Facilitator: nopFacilitator{t},
			Network:     "base",
			PayTo:       "0xwallet",
			Token:       payment.Token{Address: "0xtoken", Symbol: "STARKBOT", Decimals: 18},
			Logger:      zerolog.Nop(),
		},
		Version: "test",
	}
}

func testConfig() config.Config {
	return config.Config{
		RateRPS:   100,
		RateBurst: 10,
		CORS:      config.CORSConfig{AllowedOrigins: nil},
		Security:  config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0},
		OTEL:      config.OTELConfig{ServiceName: "test-svc"},
		Payment:   config.PaymentConfig{Network: "base", TokenSymbol: "STARKBOT", TokenDecimals: 18},
		Pipeline:  config.PipelineConfig{ArtifactTTL: time.Hour},
	}
}

func serve(r http.Handler, method, target string, hdr map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, testDeps(t), testConfig())

	w := serve(r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	w = serve(r, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	if w = serve(r, http.MethodGet, "/nope", nil); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}
	if w = serve(r, http.MethodPost, "/health", nil); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	RegisterRoutes(r, testDeps(t), cfg)

	w := serve(r, http.MethodGet, "/health", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_MountsConfiguredRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, testDeps(t), testConfig())

	w := serve(r, http.MethodGet, "/fox?prompt=hi", nil)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("GET /fox expected 402, got %d: %s", w.Code, w.Body.String())
	}
	var ch payment.RequiredResponse
	if err := json.Unmarshal(w.Body.Bytes(), &ch); err != nil {
		t.Fatalf("challenge json: %v", err)
	}
	if len(ch.Accepts) != 1 || ch.Accepts[0].MaxAmountRequired != "10000000000000000000" {
		t.Fatalf("unexpected challenge: %+v", ch)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Fatalf("challenge Cache-Control = %q", got)
	}

	w = serve(r, http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET / = %d", w.Code)
	}
	var info struct {
		Service   string `json:"service"`
		Endpoints []struct {
			Path string `json:"path"`
		} `json:"endpoints"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &info); err != nil {
		t.Fatalf("info json: %v", err)
	}
	if info.Service != "test-svc" || len(info.Endpoints) != 1 || info.Endpoints[0].Path != "/fox" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestRegisterRoutes_CORSPreflightAllowsPaymentHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, testDeps(t), testConfig())

	w := serve(r, http.MethodOptions, "/fox", map[string]string{
		"Origin":                         "http://wallet.example",
		"Access-Control-Request-Method":  "GET",
		"Access-Control-Request-Headers": "X-PAYMENT",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(strings.ToLower(got), "x-payment") {
		t.Fatalf("X-PAYMENT should be allowed, got %q", got)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour}
	RegisterRoutes(r, testDeps(t), cfg)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.URL.Scheme = "https"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}
}

func Test_MediaRepoShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	shim := MediaRepoShim{}
	ctx := context.Background()
	now := time.Now().UTC()

	live := &domain.GeneratedMedia{
		EndpointPath: "/fox", Prompt: "a fox", PromptHash: "h1",
		S3Key: "fox/h1.png", S3URL: "https://cdn.test/fox/h1.png", MediaType: "image",
		CreatedAt: now, ExpiresAt: now.Add(time.Hour),
	}
	liveID, err := shim.InsertMedia(ctx, db, live)
	if err != nil || liveID == "" {
		t.Fatalf("InsertMedia: id=%q err=%v", liveID, err)
	}
	old := &domain.GeneratedMedia{
		EndpointPath: "/fox", Prompt: "old", PromptHash: "h2",
		S3Key: "fox/h2.png", S3URL: "https://cdn.test/fox/h2.png", MediaType: "image",
		CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour),
	}
	oldID, err := shim.InsertMedia(ctx, db, old)
	if err != nil {
		t.Fatalf("InsertMedia old: %v", err)
	}

	got, err := shim.FindActiveMedia(ctx, db, "/fox", "h1", now)
	if err != nil || got.ID != liveID {
		t.Fatalf("FindActiveMedia: got=%+v err=%v", got, err)
	}

	expired, err := shim.FindExpiredMedia(ctx, db, now)
	if err != nil || len(expired) != 1 || expired[0].ID != oldID {
		t.Fatalf("FindExpiredMedia: %+v err=%v", expired, err)
	}

	if err := shim.DeleteMedia(ctx, db, oldID); err != nil {
		t.Fatalf("DeleteMedia: %v", err)
	}
	if expired, _ = shim.FindExpiredMedia(ctx, db, now); len(expired) != 0 {
		t.Fatalf("expected no expired rows after delete, got %d", len(expired))
	}

	stats, err := statsShim{db: db}.MediaStats(ctx)
	if err != nil || len(stats) != 1 || stats[0].Count != 1 {
		t.Fatalf("MediaStats: %+v err=%v", stats, err)
	}
}
