package common

import (
	"errors"
	"fmt"
)

// Sentinel errors for the invoicing and coupon domain. Services wrap these
// with context via fmt.Errorf("...: %w", Err...); handlers map them to HTTP
// responses without leaking store internals.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientStock = errors.New("insufficient stock")

	// Coupon validation failures. Non-fatal, surfaced verbatim to callers.
	ErrInvalidCode         = errors.New("invalid coupon code")
	ErrCouponExpired       = errors.New("coupon has expired")
	ErrCouponNotYetActive  = errors.New("coupon is not yet active")
	ErrUsageLimitExceeded  = errors.New("coupon usage limit exceeded")
	ErrMinimumNotMet       = errors.New("minimum order amount not met")
	ErrCustomerNotEligible = errors.New("coupon not applicable for this customer")
	ErrProductNotEligible  = errors.New("coupon not applicable for selected products")
)

// ValidationError builds a field-qualified validation failure.
func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundError reports an absent entity by name.
func NotFoundError(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// IsCouponRejection reports whether err is one of the coupon validation
// failures, as opposed to an infrastructure error.
func IsCouponRejection(err error) bool {
	for _, target := range []error{
		ErrInvalidCode, ErrCouponExpired, ErrCouponNotYetActive,
		ErrUsageLimitExceeded, ErrMinimumNotMet,
		ErrCustomerNotEligible, ErrProductNotEligible,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
