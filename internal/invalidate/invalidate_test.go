package invalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type recorder struct {
	paths []string
	err   error
}

func (r *recorder) Invalidate(_ context.Context, path string) error {
	r.paths = append(r.paths, path)
	return r.err
}

func TestDispatcherSkipsEmptyAndKeepsOrder(t *testing.T) {
	rec := &recorder{}
	d := NewDispatcher(rec, zerolog.Nop(), nil)
	d.Invalidate(context.Background(), "/new", "", "/old")
	if !reflect.DeepEqual(rec.paths, []string{"/new", "/old"}) {
		t.Fatalf("paths = %v", rec.paths)
	}
}

func TestDispatcherSwallowsAndLogsFailures(t *testing.T) {
	var logs bytes.Buffer
	reg := prometheus.NewRegistry()
	d := NewDispatcher(&recorder{err: errors.New("cdn down")}, zerolog.New(&logs), reg)

	d.Invalidate(context.Background(), "/andy")

	if !strings.Contains(logs.String(), "cdn down") || !strings.Contains(logs.String(), `"path":"/andy"`) {
		t.Fatalf("expected failure to be logged, got %s", logs.String())
	}
	if got := testutil.ToFloat64(d.total.WithLabelValues("error")); got != 1 {
		t.Fatalf("error counter = %v, want 1", got)
	}
}

func TestDispatcherIgnoresCanceledCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var sawErr error
	d := NewDispatcher(NotifierFunc(func(ctx context.Context, _ string) error {
		sawErr = ctx.Err()
		return nil
	}), zerolog.Nop(), nil)
	d.Invalidate(ctx, "/andy")
	if sawErr != nil {
		t.Fatalf("notifier saw canceled context: %v", sawErr)
	}
}

func TestFanoutJoinsErrors(t *testing.T) {
	a, b := &recorder{}, &recorder{err: errors.New("b failed")}
	err := Fanout{a, nil, b}.Invalidate(context.Background(), "/x")
	if err == nil || !strings.Contains(err.Error(), "b failed") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(a.paths) != 1 || len(b.paths) != 1 {
		t.Fatalf("every notifier should be called: %v %v", a.paths, b.paths)
	}
}

func TestRedisDeletesKeyAndPublishes(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	ctx := context.Background()

	if err := s.Set("page:/andy", "<html>stale</html>"); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	sub := client.Subscribe(ctx, DefaultChannel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	n := NewRedis(client, "", "page:")
	if err := n.Invalidate(ctx, "/andy"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}

	if s.Exists("page:/andy") {
		t.Fatal("cached page should be deleted")
	}
	select {
	case msg := <-sub.Channel():
		if msg.Payload != "/andy" {
			t.Fatalf("published %q, want /andy", msg.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no invalidation published")
	}
}

func TestRedisReportsConnectionFailure(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr(), MaxRetries: -1})
	defer client.Close()
	s.Close()

	if err := NewRedis(client, "", "page:").Invalidate(context.Background(), "/andy"); err == nil {
		t.Fatal("expected error with redis down")
	}
}

func TestWebhookPostsPathWithSecret(t *testing.T) {
	var gotPath, gotSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Path string `json:"path"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotPath = body.Path
		gotSecret = r.Header.Get(SecretHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := NewWebhook(srv.URL, "s3cret").Invalidate(context.Background(), "/andy"); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if gotPath != "/andy" || gotSecret != "s3cret" {
		t.Fatalf("path=%q secret=%q", gotPath, gotSecret)
	}
}

func TestWebhookRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	if err := NewWebhook(srv.URL, "").Invalidate(context.Background(), "/andy"); err == nil {
		t.Fatal("expected error for 401")
	}
}
