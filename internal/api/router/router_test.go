package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/internal/classifier"
	"github.com/wolfman30/govsense/internal/classifyapi"
	"github.com/wolfman30/govsense/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/govsense/internal/http/middleware"
	"github.com/wolfman30/govsense/internal/webchat"
	"github.com/wolfman30/govsense/pkg/logging"
)

var fixedNow = time.Date(2025, 3, 4, 10, 20, 30, 0, time.UTC)

type staticBackend struct{}

func (staticBackend) ClassifyText(ctx context.Context, text string) (*classification.Result, error) {
	return &classification.Result{
		Category:    classification.CategoryConstructive,
		Confidence:  0.92,
		Explanation: "Kritik berbasis data.",
		Timestamp:   classification.NewInstant(fixedNow),
		Scores:      map[classification.Criterion]int{classification.CriterionFactualGrounding: 88},
		FinalScores: &classification.FinalScores{
			ConstructivePercentage: 85,
			DestructivePercentage:  5,
			Classification:         classification.BandStronglyConstructive,
		},
	}, nil
}

func (b staticBackend) ClassifyImage(ctx context.Context, img classifier.ImageInput) (*classification.Result, error) {
	return b.ClassifyText(ctx, "")
}

func newTestConfig() *Config {
	logger := logging.New("error")
	return &Config{
		Logger:          logger,
		ClassifyHandler: handlers.NewClassifyHandler(staticBackend{}, logger),
		Now:             func() time.Time { return fixedNow },
	}
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := New(newTestConfig())

	for _, path := range []string{"/", "/health"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status %d, got %d", path, http.StatusOK, rr.Code)
		}

		var resp map[string]string
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode health response: %v", err)
		}
		if resp["status"] != "online" {
			t.Errorf("expected status 'online', got %q", resp["status"])
		}
		if resp["service"] != "GovSense API" {
			t.Errorf("unexpected service %q", resp["service"])
		}
	}
}

func TestRouterClassifyText(t *testing.T) {
	router := New(newTestConfig())

	req := httptest.NewRequest(http.MethodPost, "/classify_text", strings.NewReader(`{"text":"Kebijakan ini perlu dievaluasi."}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var result classification.Result
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.FinalScores == nil || result.FinalScores.Classification != classification.BandStronglyConstructive {
		t.Errorf("unexpected final scores %+v", result.FinalScores)
	}
}

func TestRouterRateLimitsClassification(t *testing.T) {
	limiter := httpmiddleware.NewRateLimiter(0.001, 1)
	t.Cleanup(limiter.Stop)
	cfg := newTestConfig()
	cfg.RateLimiter = limiter
	router := New(cfg)

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/classify_text", strings.NewReader(`{"text":"halo"}`))
		req.RemoteAddr = "10.0.0.1:5000"
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [200 429], got %v", codes)
	}

	// Health is not rate limited.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.1:5000"
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected health to bypass the limiter, got %d", rr.Code)
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	cfg := newTestConfig()
	cfg.CORSAllowedOrigins = []string{"http://localhost:5173"}
	router := New(cfg)

	req := httptest.NewRequest(http.MethodOptions, "/classify_text", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	cfg := newTestConfig()
	cfg.MetricsHandler = promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	router := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

// TestRouterWebChatMissingWithoutHandler documents that /chat/ws is only
// mounted when a web chat handler is configured.
func TestRouterWebChatMissingWithoutHandler(t *testing.T) {
	router := New(newTestConfig())

	req := httptest.NewRequest(http.MethodGet, "/chat/ws", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without web chat, got %d", rr.Code)
	}
}

// TestRouterWebChatRoundTrip drives a web chat session whose classification
// client calls back into the same router.
func TestRouterWebChatRoundTrip(t *testing.T) {
	var router http.Handler
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := newTestConfig()
	client := classifyapi.New(srv.URL, classifyapi.WithTimeout(5*time.Second))
	cfg.WebChat = webchat.NewHandler(client, cfg.Logger)
	router = New(cfg)

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/chat/ws", "", srv.URL)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set deadline: %v", err)
	}

	if err := websocket.JSON.Send(conn, webchat.InboundMessage{Type: "submit", Mode: "text", Text: "Kebijakan ini perlu dievaluasi."}); err != nil {
		t.Fatalf("send: %v", err)
	}

	var reply *webchat.OutboundMessage
	for reply == nil {
		var msg webchat.OutboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			t.Fatalf("receive: %v", err)
		}
		if msg.Type == "turn" && msg.Turn != nil && msg.Turn.Seq == 2 {
			reply = &msg
		}
	}

	if reply.Turn.Error != "" {
		t.Fatalf("unexpected failure turn: %s", reply.Turn.Error)
	}
	if reply.View == nil || reply.View.Band == nil {
		t.Fatalf("expected an interpreted view, got %+v", reply.View)
	}
	if reply.View.Band.Display != classification.DisplayStronglyConstructive {
		t.Errorf("unexpected display band %q", reply.View.Band.Display)
	}
	if !bytes.Contains([]byte(reply.View.Confidence), []byte("92.0%")) {
		t.Errorf("unexpected confidence %q", reply.View.Confidence)
	}
}
