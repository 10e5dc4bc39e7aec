package domain

// AnonymousOwner is stored as the owner of comments created without an
// authenticated caller.
const AnonymousOwner = "anonymous"

// Identity describes who issued a request.
type Identity struct {
	userID string
}

// Anonymous returns the identity of an unauthenticated caller.
func Anonymous() Identity {
	return Identity{}
}

// Authenticated returns the identity of a verified user. An empty id yields
// the anonymous identity.
func Authenticated(userID string) Identity {
	return Identity{userID: userID}
}

func (i Identity) IsAnonymous() bool {
	return i.userID == ""
}

// UserID returns the authenticated user id, or "" for anonymous callers.
func (i Identity) UserID() string {
	return i.userID
}

// Owner is the value persisted in a comment's Owner attribute.
func (i Identity) Owner() string {
	if i.IsAnonymous() {
		return AnonymousOwner
	}
	return i.userID
}
