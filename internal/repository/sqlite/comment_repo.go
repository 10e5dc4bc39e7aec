package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"

	"dms-comments/internal/domain"
)

const tableComments = "comments"

const (
	commentFieldDocumentID = "document_id"
	commentFieldCommentID  = "comment_id"
	commentFieldDateAdded  = "date_added"
	commentFieldOwner      = "owner"
	commentFieldContent    = "content"
)

func commentColumns() []string {
	return []string{
		commentFieldDocumentID,
		commentFieldCommentID,
		commentFieldDateAdded,
		commentFieldOwner,
		commentFieldContent,
	}
}

type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) (*CommentRepository, error) {
	if db == nil {
		return nil, errors.New("sqlite: db must not be nil")
	}
	return &CommentRepository{db: db}, nil
}

func scanComment(row sq.RowScanner) (domain.Comment, error) {
	var comment domain.Comment

	err := row.Scan(
		&comment.DocumentID,
		&comment.CommentID,
		&comment.DateAdded,
		&comment.Owner,
		&comment.Content,
	)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("failed to scan row: %w", err)
	}

	return comment, nil
}

func (repo *CommentRepository) ListComments(ctx context.Context, documentID string) ([]domain.Comment, error) {
	query := sq.Select(commentColumns()...).
		From(tableComments).
		Where(sq.Eq{commentFieldDocumentID: documentID}).
		Where(sq.Expr(commentFieldCommentID+" GLOB ?", domain.CommentSKPrefix+"*")).
		RunWith(repo.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListComments query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "err", err)
		}
	}()

	comments := make([]domain.Comment, 0)

	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: ListComments: %w", err)
		}

		comments = append(comments, comment)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("sqlite: ListComments rows: %w", err)
	}

	return comments, nil
}

func (repo *CommentRepository) PutComment(ctx context.Context, comment domain.Comment) error {
	if comment.DocumentID == "" || comment.CommentID == "" {
		return errors.New("sqlite: PutComment: document id and comment id are required")
	}

	q := sq.Insert(tableComments).
		Columns(commentColumns()...).
		Values(
			comment.DocumentID,
			comment.CommentID,
			comment.DateAdded,
			comment.Owner,
			comment.Content,
		).
		RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: PutComment: %w", err)
	}

	return nil
}

func (repo *CommentRepository) DeleteComment(ctx context.Context, documentID, sk string) error {
	q := sq.Delete(tableComments).
		Where(sq.Eq{
			commentFieldDocumentID: documentID,
			commentFieldCommentID:  sk,
		}).
		RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("sqlite: DeleteComment: %w", err)
	}

	return nil
}
