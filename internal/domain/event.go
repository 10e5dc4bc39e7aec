package domain

// Event is a domain event addressed to an event bus.
type Event struct {
	DetailType string
	Source     string
	BusName    string
	Detail     []byte
}

const DetailTypeCommentAdded = "CommentAdded"
