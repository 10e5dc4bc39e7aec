package domain

import "strings"

// CommentSKPrefix is the sort key prefix shared by every comment item.
const CommentSKPrefix = "Comment#"

// Comment is a single persisted comment on a document.
type Comment struct {
	DocumentID string `json:"PK" dynamodbav:"PK"`
	CommentID  string `json:"SK" dynamodbav:"SK"`
	DateAdded  string `json:"DateAdded" dynamodbav:"DateAdded"`
	Owner      string `json:"Owner" dynamodbav:"Owner"`
	Content    string `json:"Comment" dynamodbav:"Comment"`
}

// CommentSK returns the sort key for a bare comment id.
func CommentSK(commentID string) string {
	return CommentSKPrefix + commentID
}

// IsCommentSK reports whether sk addresses a comment item.
func IsCommentSK(sk string) bool {
	return strings.HasPrefix(sk, CommentSKPrefix) && len(sk) > len(CommentSKPrefix)
}

// CommentAdded is the event detail published after a comment is stored.
type CommentAdded struct {
	DocumentID string `json:"DocumentId"`
	CommentID  string `json:"CommentId"`
}
