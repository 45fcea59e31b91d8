package cancel

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	DefaultBatchSize            = 10
	DefaultBulkConcurrency      = 4
	DefaultAnonymousDisplayName = "Anonymous"
)

// Options is the default Config implementation.
type Options struct {
	CancelMethod         string        `json:"cancel_method"`
	NotifyOnCancel       bool          `json:"notify_on_cancel"`
	AnonymousDisplayName string        `json:"anonymous_display_name"`
	SigningKey           string        `json:"signing_key"`
	InvokerSigningKey    string        `json:"invoker_signing_key"`
	TokenWindow          time.Duration `json:"token_window"`
	BatchSize            int           `json:"batch_size"`
	BulkConcurrency      int           `json:"bulk_concurrency"`
	LinkBaseURL          string        `json:"link_base_url"`
}

var _ Config = (*Options)(nil)

// DefaultOptions returns options with every tunable set to its default.
func DefaultOptions(signingKey string) *Options {
	return &Options{
		CancelMethod:         PolicyBlock.ID(),
		AnonymousDisplayName: DefaultAnonymousDisplayName,
		SigningKey:           signingKey,
		TokenWindow:          DefaultTokenWindow,
		BatchSize:            DefaultBatchSize,
		BulkConcurrency:      DefaultBulkConcurrency,
	}
}

func (o *Options) GetCancelMethod() string { return o.CancelMethod }

func (o *Options) GetNotifyOnCancel() bool { return o.NotifyOnCancel }

func (o *Options) GetAnonymousDisplayName() string {
	if o.AnonymousDisplayName == "" {
		return DefaultAnonymousDisplayName
	}
	return o.AnonymousDisplayName
}

func (o *Options) GetSigningKey() string { return o.SigningKey }

// GetInvokerSigningKey returns the key for invoker session tokens. When unset
// it is derived from SigningKey, never shared with confirmation links.
func (o *Options) GetInvokerSigningKey() string { return o.InvokerSigningKey }

func (o *Options) GetTokenWindow() time.Duration {
	if o.TokenWindow <= 0 {
		return DefaultTokenWindow
	}
	return o.TokenWindow
}

func (o *Options) GetBatchSize() int {
	if o.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return o.BatchSize
}

func (o *Options) GetBulkConcurrency() int {
	if o.BulkConcurrency <= 0 {
		return DefaultBulkConcurrency
	}
	return o.BulkConcurrency
}

func (o *Options) GetLinkBaseURL() string { return o.LinkBaseURL }

// Validate checks the options before they are handed to the scheduler.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(
			&o.CancelMethod,
			validation.Required,
			validation.By(func(value any) error {
				_, err := ParsePolicy(value.(string))
				return err
			}),
		),
		validation.Field(&o.SigningKey, validation.Required, validation.Length(MinSigningKeyLength, 0)),
		validation.Field(&o.InvokerSigningKey, validation.Length(MinSigningKeyLength, 0)),
		validation.Field(&o.BatchSize, validation.Min(0), validation.Max(1000)),
		validation.Field(&o.BulkConcurrency, validation.Min(0), validation.Max(64)),
		validation.Field(&o.LinkBaseURL, is.URL),
	)
}

// InvokerSigningKey returns the HS256 key for invoker tokens: the explicit
// invoker key when configured, otherwise a subkey derived from the signing
// key. Confirmation links use a different subkey.
func InvokerSigningKey(cfg Config) []byte {
	if key := cfg.GetInvokerSigningKey(); key != "" {
		return []byte(key)
	}
	return DeriveKey([]byte(cfg.GetSigningKey()), KeyPurposeInvokerToken)
}
