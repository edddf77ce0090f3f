package gateway

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// Verification is the result of asking a gateway about a transaction
// reference.
type Verification struct {
	Verified  bool
	Amount    decimal.Decimal
	Currency  enums.Currency
	Reference string
}

// Verifier resolves an opaque transaction reference against an external
// payment gateway. Implementations must treat the call as slow and
// fail-capable; the order engine aborts its transaction on any error.
type Verifier interface {
	Verify(ctx context.Context, reference string) (Verification, error)
}

// Registry routes a payment method to its gateway client.
type Registry struct {
	verifiers map[enums.PaymentMethod]Verifier
}

// NewRegistry builds a registry from the provided method/verifier pairs.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[enums.PaymentMethod]Verifier)}
}

// Register binds a verifier to a payment method.
func (r *Registry) Register(method enums.PaymentMethod, verifier Verifier) {
	if verifier == nil {
		return
	}
	r.verifiers[method] = verifier
}

// For returns the verifier for the given method.
func (r *Registry) For(method enums.PaymentMethod) (Verifier, error) {
	verifier, ok := r.verifiers[method]
	if !ok {
		return nil, errors.New("no gateway registered for payment method " + method.String())
	}
	return verifier, nil
}
