package cancel

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"time"

	"golang.org/x/crypto/blake2b"
)

// DefaultTokenWindow is how long a confirmation link stays usable.
const DefaultTokenWindow = 24 * time.Hour

// MinSigningKeyLength is the shortest signing key accepted.
const MinSigningKeyLength = 16

// Key purposes used to derive independent subkeys from the signing key.
const (
	KeyPurposeConfirmationLink = "cancel.confirmation-link"
	KeyPurposeInvokerToken     = "cancel.invoker-token"
)

// DeriveKey derives a 32 byte subkey of secret bound to purpose.
func DeriveKey(secret []byte, purpose string) []byte {
	// blake2b accepts keys up to 64 bytes
	if len(secret) > blake2b.Size {
		sum := blake2b.Sum512(secret)
		secret = sum[:]
	}
	mac, err := blake2b.New256(secret)
	if err != nil {
		return nil
	}
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}

// TokenService issues and validates account cancellation tokens.
type TokenService interface {
	Issue(account *Account, timestamp int64) string
	Validate(account *Account, timestamp int64, token string) error
}

// TokenServiceOption customizes the token service.
type TokenServiceOption func(*tokenService)

// WithTokenClock injects a custom clock (useful for tests).
func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(ts *tokenService) {
		if clock != nil {
			ts.now = clock
		}
	}
}

// WithTokenWindow overrides the validity window.
func WithTokenWindow(window time.Duration) TokenServiceOption {
	return func(ts *tokenService) {
		if window > 0 {
			ts.window = window
		}
	}
}

// WithTokenLogger overrides the logger.
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *tokenService) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

type tokenService struct {
	signingKey []byte
	window     time.Duration
	now        func() time.Time
	logger     Logger
}

// NewTokenService creates a TokenService keyed by signingKey.
//
// Tokens are a keyed BLAKE2b MAC over the account id, the link timestamp,
// the last login time and the secret hash. They are never stored: logging in
// again or rotating the secret silently invalidates every issued link.
// Keys shorter than MinSigningKeyLength are rejected with ErrWeakSigningKey.
func NewTokenService(signingKey []byte, opts ...TokenServiceOption) (TokenService, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, ErrWeakSigningKey
	}

	ts := &tokenService{
		signingKey: DeriveKey(signingKey, KeyPurposeConfirmationLink),
		window:     DefaultTokenWindow,
		now:        time.Now,
		logger:     defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts, nil
}

func (ts *tokenService) Issue(account *Account, timestamp int64) string {
	if account == nil {
		return ""
	}

	mac, err := blake2b.New256(ts.signingKey)
	if err != nil {
		// subkeys are always 32 bytes
		ts.logger.Error("token mac init failed: %v", err)
		return ""
	}

	var buf [8]byte
	write := func(v int64) {
		binary.BigEndian.PutUint64(buf[:], uint64(v))
		mac.Write(buf[:])
	}

	write(account.ID)
	write(timestamp)
	write(lastLoginUnix(account))
	mac.Write([]byte(account.SecretHash))

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (ts *tokenService) Validate(account *Account, timestamp int64, token string) error {
	if account == nil || token == "" {
		return ErrInvalidToken
	}

	expected := ts.Issue(account, timestamp)
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(token)) != 1 {
		return ErrInvalidToken
	}

	if IsOutsideWindow(ts.now(), time.Unix(timestamp, 0), ts.window) {
		return ErrExpiredToken
	}

	return nil
}

func lastLoginUnix(account *Account) int64 {
	if account.LastLoginAt == nil {
		return 0
	}
	return account.LastLoginAt.Unix()
}
