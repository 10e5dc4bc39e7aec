package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"dms-comments/internal/domain"
	"dms-comments/internal/repository/sqlite"
	"dms-comments/internal/usecase"
)

type recordingPublisher struct {
	events []domain.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event domain.Event) error {
	r.events = append(r.events, event)
	return r.err
}

func newSQLiteHandler(t *testing.T, pub *recordingPublisher) *Handler {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.NewDB(ctx, filepath.Join(t.TempDir(), "comments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, sqlite.MigrateUp(ctx, db))

	repo, err := sqlite.NewCommentRepository(db)
	require.NoError(t, err)
	svc, err := usecase.NewCommentService(repo, pub, "com.globomantics.dms", "com.globomantics.dms.comments", 0)
	require.NoError(t, err)
	return mustNewHandler(t, svc)
}

func TestCommentLifecycle(t *testing.T) {
	pub := &recordingPublisher{}
	h := newSQLiteHandler(t, pub)
	ctx := context.Background()

	resp, err := h.Handle(ctx, makeEvent(http.MethodGet, "/comments/doc-1", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, parseBody[[]domain.Comment](t, resp.Body))

	resp, err = h.Handle(ctx, makeEvent(http.MethodPost, "/comments/doc-1", `{"Comment":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := parseBody[domain.Comment](t, resp.Body)
	require.Equal(t, "doc-1", created.DocumentID)
	require.True(t, strings.HasPrefix(created.CommentID, "Comment#"))
	require.NotEmpty(t, created.DateAdded)
	require.Equal(t, domain.AnonymousOwner, created.Owner)
	require.Equal(t, "hello", created.Content)

	require.Len(t, pub.events, 1)
	var detail domain.CommentAdded
	require.NoError(t, json.Unmarshal(pub.events[0].Detail, &detail))
	require.Equal(t, domain.CommentAdded{DocumentID: "doc-1", CommentID: created.CommentID}, detail)

	resp, err = h.Handle(ctx, makeEvent(http.MethodGet, "/comments/doc-1", ""))
	require.NoError(t, err)
	require.Equal(t, []domain.Comment{created}, parseBody[[]domain.Comment](t, resp.Body))

	id := strings.TrimPrefix(created.CommentID, "Comment#")
	resp, err = h.Handle(ctx, makeEvent(http.MethodDelete, "/comments/doc-1/"+id, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = h.Handle(ctx, makeEvent(http.MethodGet, "/comments/doc-1", ""))
	require.NoError(t, err)
	require.Empty(t, parseBody[[]domain.Comment](t, resp.Body))

	// Deleting again is still a success.
	resp, err = h.Handle(ctx, makeEvent(http.MethodDelete, "/comments/doc-1/"+id, ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCommentLifecycle_RejectsMissingComment(t *testing.T) {
	pub := &recordingPublisher{}
	h := newSQLiteHandler(t, pub)
	ctx := context.Background()

	resp, err := h.Handle(ctx, makeEvent(http.MethodPost, "/comments/doc-1", `{"Text":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, pub.events)

	resp, err = h.Handle(ctx, makeEvent(http.MethodGet, "/comments/doc-1", ""))
	require.NoError(t, err)
	require.Empty(t, parseBody[[]domain.Comment](t, resp.Body))
}

func TestCommentLifecycle_PublishFailureStillCreates(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("bus unavailable")}
	h := newSQLiteHandler(t, pub)
	ctx := context.Background()

	resp, err := h.Handle(ctx, makeEvent(http.MethodPost, "/comments/doc-1", `{"Comment":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, pub.events, 1)

	resp, err = h.Handle(ctx, makeEvent(http.MethodGet, "/comments/doc-1", ""))
	require.NoError(t, err)
	require.Len(t, parseBody[[]domain.Comment](t, resp.Body), 1)
}

func TestHTTPAdapter_ServesHandler(t *testing.T) {
	pub := &recordingPublisher{}
	srv := httptest.NewServer(NewHTTPAdapter(newSQLiteHandler(t, pub)))
	t.Cleanup(srv.Close)

	resp, err := http.Post(srv.URL+"/comments/doc-1", "application/json", strings.NewReader(`{"Comment":"over http"}`))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NotEmpty(t, resp.Header.Get("X-Correlation-Id"))
	require.Equal(t, "over http", parseBody[domain.Comment](t, string(body)).Content)

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/comments/doc-1", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	require.Equal(t, "GET, POST", resp.Header.Get("Allow"))
}
