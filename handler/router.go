package handler

import (
	"net/http"
	"net/url"
	"strings"

	"dms-comments/internal/usecase"
)

const collectionName = "comments"

type operation int

const (
	opListComments operation = iota
	opCreateComment
	opDeleteComment
)

type route struct {
	op         operation
	documentID string
	commentID  string
}

// resolveRoute matches a method and raw path against the comment routes:
//
//	GET    /comments/{documentId}
//	POST   /comments/{documentId}
//	DELETE /comments/{documentId}/{commentId}
//
// A path that matches a route with the wrong method yields a
// METHOD_NOT_ALLOWED error and the allowed methods.
func resolveRoute(method, rawPath string) (route, []string, error) {
	segments, ok := splitPath(rawPath)
	if !ok || len(segments) < 2 || len(segments) > 3 || segments[0] != collectionName {
		return route{}, nil, usecase.NewError(usecase.ErrorNotFound, "unknown_route")
	}

	method = strings.ToUpper(method)
	if len(segments) == 2 {
		switch method {
		case http.MethodGet:
			return route{op: opListComments, documentID: segments[1]}, nil, nil
		case http.MethodPost:
			return route{op: opCreateComment, documentID: segments[1]}, nil, nil
		}
		return route{}, []string{http.MethodGet, http.MethodPost}, usecase.NewError(usecase.ErrorMethodNotAllowed, "method_not_allowed")
	}

	if method == http.MethodDelete {
		return route{op: opDeleteComment, documentID: segments[1], commentID: segments[2]}, nil, nil
	}
	return route{}, []string{http.MethodDelete}, usecase.NewError(usecase.ErrorMethodNotAllowed, "method_not_allowed")
}

// splitPath trims surrounding slashes and unescapes each segment. Empty
// inner segments are kept so that validation can reject them.
func splitPath(rawPath string) ([]string, bool) {
	trimmed := strings.Trim(rawPath, "/")
	if trimmed == "" {
		return nil, false
	}
	parts := strings.Split(trimmed, "/")
	for i, p := range parts {
		unescaped, err := url.PathUnescape(p)
		if err != nil {
			return nil, false
		}
		parts[i] = unescaped
	}
	return parts, true
}

// stripStage removes the stage prefix API Gateway keeps in rawPath for
// named stages.
func stripStage(rawPath, stage string) string {
	if stage == "" || stage == "$default" {
		return rawPath
	}
	prefix := "/" + stage
	if rawPath == prefix || strings.HasPrefix(rawPath, prefix+"/") {
		return strings.TrimPrefix(rawPath, prefix)
	}
	return rawPath
}
