// Package billing talks to the hosted subscription billing API.
package billing

import "context"

// Subscription statuses that count as a paid subscription.
const (
	StatusActive   = "active"
	StatusTrialing = "trialing"
)

// Provider is the subset of the billing API the server uses.
type Provider interface {
	// CreateCustomer registers a customer tagged with the local user id and
	// returns the provider's customer id.
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	// ListSubscriptionStatuses returns the status of every subscription of
	// the customer, whatever its state.
	ListSubscriptionStatuses(ctx context.Context, customerID string) ([]string, error)
	// CreateCheckoutSession starts a subscription checkout for one unit of
	// priceID and returns the hosted page URL.
	CreateCheckoutSession(ctx context.Context, customerID, priceID, successURL, cancelURL string) (string, error)
	// CreatePortalSession returns the URL of a customer portal session.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

// IsActiveStatus reports whether status grants access.
func IsActiveStatus(status string) bool {
	return status == StatusActive || status == StatusTrialing
}
