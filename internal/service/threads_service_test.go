package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	config "github.com/declanh/threadcast/configs"
	"github.com/declanh/threadcast/internal/models"
	"github.com/declanh/threadcast/internal/pipeline"
	"github.com/declanh/threadcast/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

type fakeAccountRepo struct {
	account *models.ThreadsAccount
}

func (f *fakeAccountRepo) Upsert(ctx context.Context, account *models.ThreadsAccount) (int64, error) {
	f.account = account
	return 1, nil
}

func (f *fakeAccountRepo) Get(ctx context.Context) (*models.ThreadsAccount, error) {
	return f.account, nil
}

func (f *fakeAccountRepo) ListExpiringBefore(ctx context.Context, cutoff time.Time) ([]*models.ThreadsAccount, error) {
	return nil, nil
}

func (f *fakeAccountRepo) SetToken(ctx context.Context, id int64, encryptedToken string, expiresAt time.Time) error {
	return nil
}

func (f *fakeAccountRepo) Remove(ctx context.Context, id int64) error { return nil }

func connectedAccount(t *testing.T) *models.ThreadsAccount {
	t.Helper()

	encrypted, err := utils.Encrypt([]byte("token"), []byte(testSecretKey))
	require.NoError(t, err)
	return &models.ThreadsAccount{
		ID:              1,
		AccountID:       "123",
		AccountUsername: "tester",
		AccessToken:     encrypted,
		TokenExpiresAt:  time.Now().Add(time.Hour),
	}
}

func newTestThreadsService(t *testing.T, handler http.Handler) (*threadsService, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{SecretKey: testSecretKey}
	cfg.Worker.PublishTimeout = 5 * time.Second

	return &threadsService{
		cfg:         cfg,
		ar:          &fakeAccountRepo{account: connectedAccount(t)},
		client:      srv.Client(),
		graphURL:    srv.URL,
		pollDelay:   10 * time.Millisecond,
		maxPollTime: 200 * time.Millisecond,
	}, srv
}

// graphStub records container creations and hands out sequential ids.
type graphStub struct {
	mu         sync.Mutex
	containers []map[string]string
	published  []string
}

func (g *graphStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/123/threads", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		g.mu.Lock()
		defer g.mu.Unlock()

		params := make(map[string]string)
		for key := range r.PostForm {
			params[key] = r.PostForm.Get(key)
		}
		g.containers = append(g.containers, params)
		json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("c%d", len(g.containers))})
	})
	mux.HandleFunc("/v1.0/123/threads_publish", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		g.mu.Lock()
		defer g.mu.Unlock()

		g.published = append(g.published, r.PostForm.Get("creation_id"))
		json.NewEncoder(w).Encode(map[string]string{"id": fmt.Sprintf("p%d", len(g.published))})
	})
	return mux
}

func TestPublishTextPost(t *testing.T) {
	stub := &graphStub{}
	s, _ := newTestThreadsService(t, stub.handler())

	post := &models.Post{ID: 7, PostType: models.PostTypeText, MergeLinks: "https://example.com"}
	id, err := s.Publish(context.Background(), post, "hello threads")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	require.Len(t, stub.containers, 1)
	assert.Equal(t, "TEXT", stub.containers[0]["media_type"])
	assert.Equal(t, "hello threads\n\nhttps://example.com", stub.containers[0]["text"])
	assert.Equal(t, []string{"c1"}, stub.published)
}

func TestPublishImagePost(t *testing.T) {
	stub := &graphStub{}
	s, _ := newTestThreadsService(t, stub.handler())

	post := &models.Post{ID: 7, PostType: models.PostTypeImage, ImageURLs: []string{"https://cdn/a.jpg"}}
	id, err := s.Publish(context.Background(), post, "caption")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	require.Len(t, stub.containers, 1)
	assert.Equal(t, "IMAGE", stub.containers[0]["media_type"])
	assert.Equal(t, "https://cdn/a.jpg", stub.containers[0]["image_url"])
}

func TestPublishCarouselPost(t *testing.T) {
	stub := &graphStub{}
	s, _ := newTestThreadsService(t, stub.handler())

	post := &models.Post{
		ID:        7,
		PostType:  models.PostTypeCarousel,
		ImageURLs: []string{"https://cdn/a.jpg", "https://cdn/b.jpg"},
	}
	id, err := s.Publish(context.Background(), post, "caption")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)

	require.Len(t, stub.containers, 3)
	assert.Equal(t, "true", stub.containers[0]["is_carousel_item"])
	assert.Equal(t, "true", stub.containers[1]["is_carousel_item"])
	assert.Equal(t, "CAROUSEL", stub.containers[2]["media_type"])
	assert.Equal(t, "c1,c2", stub.containers[2]["children"])
	assert.Equal(t, []string{"c3"}, stub.published)
}

func TestPublishVideoPostWaitsForProcessing(t *testing.T) {
	stub := &graphStub{}
	mux := http.NewServeMux()
	base := stub.handler()
	var polls int
	mux.HandleFunc("/v1.0/c1", func(w http.ResponseWriter, r *http.Request) {
		polls++
		status := "IN_PROGRESS"
		if polls >= 2 {
			status = "FINISHED"
		}
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
	mux.Handle("/", base)

	s, _ := newTestThreadsService(t, mux)

	post := &models.Post{ID: 7, PostType: models.PostTypeVideo, VideoURL: "https://cdn/v.mp4"}
	id, err := s.Publish(context.Background(), post, "caption")
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	assert.GreaterOrEqual(t, polls, 2)
}

func TestPublishClassifiesPlatformErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"bad gateway", http.StatusBadGateway, true},
		{"validation rejection", http.StatusBadRequest, false},
		{"policy rejection", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestThreadsService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			}))

			post := &models.Post{ID: 7, PostType: models.PostTypeText}
			_, err := s.Publish(context.Background(), post, "hello")
			require.Error(t, err)

			var transient *pipeline.TransientPublishError
			var permanent *pipeline.PermanentPublishError
			if tt.transient {
				assert.ErrorAs(t, err, &transient)
			} else {
				assert.ErrorAs(t, err, &permanent)
			}
		})
	}
}

func TestPublishNetworkFailureIsTransient(t *testing.T) {
	stub := &graphStub{}
	s, srv := newTestThreadsService(t, stub.handler())
	srv.Close()

	post := &models.Post{ID: 7, PostType: models.PostTypeText}
	_, err := s.Publish(context.Background(), post, "hello")
	require.Error(t, err)

	var transient *pipeline.TransientPublishError
	assert.ErrorAs(t, err, &transient)
}

func TestCommentFailureDoesNotFailPublish(t *testing.T) {
	stub := &graphStub{}
	base := stub.handler()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1.0/123/threads", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("reply_to_id") != "" {
			http.Error(w, "reply rejected", http.StatusBadRequest)
			return
		}
		base.ServeHTTP(w, r)
	})
	mux.Handle("/", base)

	s, _ := newTestThreadsService(t, mux)

	post := &models.Post{ID: 7, PostType: models.PostTypeText, CommentText: "follow-up"}
	id, err := s.Publish(context.Background(), post, "hello")
	require.NoError(t, err, "a comment failure is a warning, not a publish failure")
	assert.Equal(t, "p1", id)
}

func TestPublishInvalidMediaIsPermanent(t *testing.T) {
	stub := &graphStub{}
	s, _ := newTestThreadsService(t, stub.handler())

	post := &models.Post{ID: 7, PostType: models.PostTypeImage} // no image urls
	_, err := s.Publish(context.Background(), post, "caption")
	require.Error(t, err)

	var permanent *pipeline.PermanentPublishError
	assert.ErrorAs(t, err, &permanent)
	assert.Empty(t, stub.containers, "platform never contacted")
}

func TestPublishWithoutConnectedAccount(t *testing.T) {
	stub := &graphStub{}
	s, _ := newTestThreadsService(t, stub.handler())
	s.ar = &fakeAccountRepo{}

	post := &models.Post{ID: 7, PostType: models.PostTypeText}
	_, err := s.Publish(context.Background(), post, "hello")
	require.Error(t, err)

	var permanent *pipeline.PermanentPublishError
	assert.ErrorAs(t, err, &permanent)
}
