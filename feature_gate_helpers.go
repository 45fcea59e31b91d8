package cancel

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-featuregate/gate/guard"
)

// FeatureAccountCancel is the feature key guarding account cancellation.
const FeatureAccountCancel = "users.cancel"

func normalizeFeatureGateError(err error) error {
	if err == nil {
		return nil
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return err
	}

	return errors.Wrap(err, errors.CategoryAuthz, "Feature gate check failed").
		WithCode(errors.CodeForbidden)
}

func (s *Scheduler) requireFeature(ctx context.Context) error {
	if s.featureGate == nil {
		return nil
	}
	return guard.Require(ctx, s.featureGate, FeatureAccountCancel,
		guard.WithDisabledError(ErrCancellationDisabled),
		guard.WithErrorMapper(normalizeFeatureGateError),
	)
}
