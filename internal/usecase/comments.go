package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"dms-comments/internal/domain"
	"dms-comments/internal/logging"
)

const (
	defaultMaxCommentLength = 2000
	dateAddedLayout         = "2006-01-02T15:04:05.000Z07:00"
)

// CommentStore is the key-value store port for comment items.
type CommentStore interface {
	ListComments(ctx context.Context, documentID string) ([]domain.Comment, error)
	PutComment(ctx context.Context, comment domain.Comment) error
	DeleteComment(ctx context.Context, documentID, sk string) error
}

// EventPublisher delivers domain events to an event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

type CommentService struct {
	store        CommentStore
	events       EventPublisher
	busName      string
	source       string
	maxCommentLn int

	now func() time.Time
}

type CreateCommentInput struct {
	DocumentID string
	Identity   domain.Identity
	Body       []byte
}

// createCommentBody lists every attribute a caller may set on a new comment.
type createCommentBody struct {
	Comment *string `json:"Comment"`
}

func NewCommentService(store CommentStore, events EventPublisher, busName, source string, maxCommentLen int) (*CommentService, error) {
	if store == nil {
		return nil, errors.New("usecase: comment store must not be nil")
	}
	if events == nil {
		return nil, errors.New("usecase: event publisher must not be nil")
	}
	busName = strings.TrimSpace(busName)
	if busName == "" {
		return nil, errors.New("usecase: event bus name must not be empty")
	}
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, errors.New("usecase: event source must not be empty")
	}
	if maxCommentLen <= 0 {
		maxCommentLen = defaultMaxCommentLength
	}
	return &CommentService{
		store:        store,
		events:       events,
		busName:      busName,
		source:       source,
		maxCommentLn: maxCommentLen,
		now:          time.Now,
	}, nil
}

// ListComments returns every comment stored for a document in store order.
func (s *CommentService) ListComments(ctx context.Context, documentID string) ([]domain.Comment, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, newError(ErrorInvalidInput, "missing_document_id", nil)
	}
	comments, err := s.store.ListComments(ctx, documentID)
	if err != nil {
		return nil, newError(ErrorInternal, "store_query_error", err)
	}
	if comments == nil {
		comments = []domain.Comment{}
	}
	return comments, nil
}

// CreateComment stores a new comment and then announces it on the event bus.
// A failed announcement is logged and does not fail the call.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (domain.Comment, error) {
	if strings.TrimSpace(in.DocumentID) == "" {
		return domain.Comment{}, newError(ErrorInvalidInput, "missing_document_id", nil)
	}
	text, err := s.decodeBody(in.Body)
	if err != nil {
		return domain.Comment{}, err
	}

	comment := domain.Comment{
		DocumentID: in.DocumentID,
		CommentID:  domain.CommentSK(newCommentID()),
		DateAdded:  s.now().UTC().Format(dateAddedLayout),
		Owner:      in.Identity.Owner(),
		Content:    text,
	}
	if err := s.store.PutComment(ctx, comment); err != nil {
		return domain.Comment{}, newError(ErrorInternal, "store_write_error", err)
	}

	s.announce(ctx, comment)
	return comment, nil
}

// DeleteComment removes a comment. Deleting a comment that does not exist
// succeeds.
func (s *CommentService) DeleteComment(ctx context.Context, documentID, commentID string) error {
	if strings.TrimSpace(documentID) == "" {
		return newError(ErrorInvalidInput, "missing_document_id", nil)
	}
	if strings.TrimSpace(commentID) == "" {
		return newError(ErrorInvalidInput, "missing_comment_id", nil)
	}
	if err := s.store.DeleteComment(ctx, documentID, domain.CommentSK(commentID)); err != nil {
		return newError(ErrorInternal, "store_delete_error", err)
	}
	return nil
}

func (s *CommentService) decodeBody(body []byte) (string, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", newError(ErrorInvalidInput, "missing_body", nil)
	}

	if !json.Valid(body) {
		return "", newError(ErrorInvalidInput, "malformed_body", nil)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var in createCommentBody
	if err := dec.Decode(&in); err != nil {
		if strings.Contains(err.Error(), "unknown field") {
			return "", newError(ErrorInvalidInput, "unknown_field", err)
		}
		return "", newError(ErrorInvalidInput, "malformed_body", err)
	}

	if in.Comment == nil {
		return "", newError(ErrorInvalidInput, "missing_comment", nil)
	}
	if strings.TrimSpace(*in.Comment) == "" {
		return "", newError(ErrorInvalidInput, "empty_comment", nil)
	}
	if utf8.RuneCountInString(*in.Comment) > s.maxCommentLn {
		return "", newError(ErrorInvalidInput, "comment_too_long", nil)
	}
	return *in.Comment, nil
}

func (s *CommentService) announce(ctx context.Context, comment domain.Comment) {
	log := logging.FromContext(ctx).With("document_id", comment.DocumentID, "comment_id", comment.CommentID)

	detail, err := json.Marshal(domain.CommentAdded{
		DocumentID: comment.DocumentID,
		CommentID:  comment.CommentID,
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to encode comment event", "err", err)
		return
	}

	err = s.events.Publish(ctx, domain.Event{
		DetailType: domain.DetailTypeCommentAdded,
		Source:     s.source,
		BusName:    s.busName,
		Detail:     detail,
	})
	if err != nil {
		log.ErrorContext(ctx, "failed to publish comment event", "err", fmt.Errorf("usecase: publish %s: %w", domain.DetailTypeCommentAdded, err))
		return
	}
	log.DebugContext(ctx, "published comment event")
}

var newCommentID = func() string {
	return uuid.NewString()
}
