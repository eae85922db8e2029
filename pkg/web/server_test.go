package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/cofure/cofure/pkg/logger/zerolog"
)

type captureProcessor struct {
	mu      sync.Mutex
	updates []tb.Update
}

func (c *captureProcessor) ProcessUpdate(u tb.Update) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updates = append(c.updates, u)
}

func (c *captureProcessor) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updates)
}

func (c *captureProcessor) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for c.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d updates, got %d", n, c.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestServer(t *testing.T, processor UpdateProcessor) *Server {
	t.Helper()
	log, err := zerolog.New("disabled", "2006-01-02 15:04:05", false, false)
	require.NoError(t, err)
	return New(3000, "123:abc", processor, log)
}

func TestServer_Liveness(t *testing.T) {
	server := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "✅ Cofure bot vẫn đang hoạt động!", rec.Body.String())
}

func TestServer_Health(t *testing.T) {
	server := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestServer_WebhookAcceptsUpdate(t *testing.T) {
	processor := &captureProcessor{}
	server := newTestServer(t, processor)

	body := strings.NewReader(`{"update_id":7,"message":{"message_id":1,"text":"/start"}}`)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bot123:abc", body))

	require.Equal(t, http.StatusOK, rec.Code)

	processor.waitFor(t, 1)
	require.Equal(t, 7, processor.updates[0].ID)
}

func TestServer_WebhookRejectsWrongToken(t *testing.T) {
	processor := &captureProcessor{}
	server := newTestServer(t, processor)

	body := strings.NewReader(`{"update_id":7}`)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bot999:wrong", body))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Zero(t, processor.count())
}

func TestServer_WebhookToleratesMalformedBody(t *testing.T) {
	processor := &captureProcessor{}
	server := newTestServer(t, processor)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bot123:abc", strings.NewReader("not json")))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Zero(t, processor.count())
}

func TestServer_NoWebhookRouteWithoutProcessor(t *testing.T) {
	server := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bot123:abc", strings.NewReader("{}")))

	require.Equal(t, http.StatusNotFound, rec.Code)
}
