package cancel

import (
	"fmt"
	"strconv"
	"strings"
)

// ConfirmationPathPattern is the route pattern of the mailed confirmation link.
// The segment layout is a compatibility contract with links already sent out.
const ConfirmationPathPattern = "/user/:id/cancel/confirm/:timestamp/:token"

// ConfirmationLink is the mailed link that confirms a pending cancellation.
type ConfirmationLink struct {
	AccountID int64  `json:"account_id"`
	Timestamp int64  `json:"timestamp"`
	Token     string `json:"token"`
}

// Path renders the link path.
func (l ConfirmationLink) Path() string {
	return fmt.Sprintf("/user/%d/cancel/confirm/%d/%s", l.AccountID, l.Timestamp, l.Token)
}

// URL renders the absolute link using baseURL, or the bare path when empty.
func (l ConfirmationLink) URL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + l.Path()
}

// ParseConfirmationPath parses a confirmation link path. Malformed links are
// reported as ErrInvalidToken so callers answer with not-authorized.
func ParseConfirmationPath(path string) (ConfirmationLink, error) {
	path = strings.Trim(path, "/")
	parts := strings.Split(path, "/")
	if len(parts) != 6 || parts[0] != "user" || parts[2] != "cancel" || parts[3] != "confirm" {
		return ConfirmationLink{}, ErrInvalidToken
	}
	return ParseConfirmationSegments(parts[1], parts[4], parts[5])
}

// ParseConfirmationSegments parses the raw route parameters of a confirmation link.
func ParseConfirmationSegments(id, timestamp, token string) (ConfirmationLink, error) {
	accountID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || accountID < 0 {
		return ConfirmationLink{}, ErrInvalidToken
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil || ts <= 0 {
		return ConfirmationLink{}, ErrInvalidToken
	}

	if !isTokenString(token) {
		return ConfirmationLink{}, ErrInvalidToken
	}

	return ConfirmationLink{AccountID: accountID, Timestamp: ts, Token: token}, nil
}

func isTokenString(s string) bool {
	if s == "" || len(s) > 128 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
