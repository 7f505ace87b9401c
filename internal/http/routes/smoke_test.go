package routes_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/briangreenhill/ytcache/cache"
	appmw "github.com/briangreenhill/ytcache/internal/http/middleware"
	"github.com/briangreenhill/ytcache/internal/http/routes"
	"github.com/briangreenhill/ytcache/internal/proxy"
	"github.com/briangreenhill/ytcache/youtube"
)

// MockYouTubeServer serves a fixed channel and honours If-None-Match.
type MockYouTubeServer struct {
	server *httptest.Server
	calls  atomic.Int32
	status atomic.Int32
}

const channelBody = `{"items":[{"id":"UC1","snippet":{"title":"Creator"}}]}`

func NewMockYouTubeServer(t *testing.T) *MockYouTubeServer {
	m := &MockYouTubeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		m.calls.Add(1)
		if r.URL.Query().Get("key") != "server-key" || r.URL.Query().Has("handle") {
			t.Errorf("unexpected upstream query %q", r.URL.RawQuery)
		}
		if s := m.status.Load(); s != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(int(s))
			_, _ = fmt.Fprintf(w, `{"error":{"code":%d}}`, s)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=UTF-8")
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(channelBody))
	})
	m.server = httptest.NewServer(mux)
	return m
}

func (m *MockYouTubeServer) Close() { m.server.Close() }

// TestSmokeTest drives the full stack: router, pipeline, gateway, store.
func TestSmokeTest(t *testing.T) {
	upstream := NewMockYouTubeServer(t)
	defer upstream.Close()

	yt, err := youtube.New("server-key", youtube.WithBaseURL(upstream.server.URL), youtube.WithHTTPClient(upstream.server.Client()))
	require.NoError(t, err)

	store := cache.NewMemoryStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, err := proxy.New(proxy.Options{
		Store:    store,
		Upstream: yt,
		Policy:   cache.DefaultPolicy(),
		Now:      func() time.Time { return now },
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)

	server := routes.New(routes.ServerOptions{
		Proxy:  svc,
		CORS:   appmw.CORS{AllowedOrigins: []string{"http://localhost:5173"}},
		Logger: zerolog.Nop(),
	})

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		server.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	t.Run("miss then hit", func(t *testing.T) {
		first := get("/channels?forHandle=@creator")
		require.Equal(t, http.StatusOK, first.Code)
		require.Equal(t, "MISS", first.Header().Get("X-Cache"))
		require.Equal(t, channelBody, first.Body.String())
		require.Equal(t, int32(1), upstream.calls.Load())
		require.Equal(t, 1, store.Len())

		rec, err := store.Get(context.Background(), "channels?forHandle=@creator::handle=")
		require.NoError(t, err)
		require.Equal(t, channelBody, string(rec.Body))

		now = now.Add(5 * time.Hour)
		second := get("/channels?forHandle=@creator")
		require.Equal(t, "HIT", second.Header().Get("X-Cache"))
		require.Equal(t, first.Body.String(), second.Body.String())
		require.Equal(t, int32(1), upstream.calls.Load())
	})

	t.Run("stale revalidates", func(t *testing.T) {
		now = now.Add(2 * time.Hour)
		rec := get("/channels?forHandle=@creator")
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "REVALIDATED", rec.Header().Get("X-Cache"))
		require.Equal(t, channelBody, rec.Body.String())
		require.Equal(t, "application/json; charset=UTF-8", rec.Header().Get("Content-Type"))
		require.Equal(t, int32(2), upstream.calls.Load())
	})

	t.Run("upstream failure keeps record", func(t *testing.T) {
		upstream.status.Store(http.StatusServiceUnavailable)
		defer upstream.status.Store(0)

		now = now.Add(7 * time.Hour)
		rec := get("/channels?forHandle=@creator")
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "MISS-REFETCH", rec.Header().Get("X-Cache"))

		stored, err := store.Get(context.Background(), "channels?forHandle=@creator::handle=")
		require.NoError(t, err)
		require.Equal(t, channelBody, string(stored.Body))
	})

	t.Run("partitions do not share entries", func(t *testing.T) {
		before := upstream.calls.Load()
		rec := get("/channels?forHandle=@creator&handle=@tenant")
		require.Equal(t, "MISS", rec.Header().Get("X-Cache"))
		require.Equal(t, before+1, upstream.calls.Load())
	})

	t.Run("forbidden endpoint", func(t *testing.T) {
		before := upstream.calls.Load()
		rec := get("/comments?id=1")
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Equal(t, before, upstream.calls.Load())
	})
}
