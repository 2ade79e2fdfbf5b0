package payments

import "context"

// Gateway abstracts the external payment processor: synchronous intent
// creation at order time and signature verification of asynchronous webhook
// deliveries. Implementations hold their own explicitly constructed client;
// there is no package-level state.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	VerifyAndParseEvent(payload []byte, sigHeader string) (Event, error)
}

// IntentRequest describes one payment authorization to create.
type IntentRequest struct {
	// Amount in the smallest currency unit (cents).
	Amount   int64
	Currency string
	Metadata map[string]string
	// DestinationAccount routes the charge directly to the venue operator's
	// connected payout account when set.
	DestinationAccount string
}

// Intent is the gateway-side payment authorization created for a card order.
// ClientSecret is handed to the customer once at order creation and never
// stored.
type Intent struct {
	ID           string
	ClientSecret string
}

// Event is a verified webhook event. The concrete types below are the only
// ones the reconciler acts on; anything else arrives as Unrecognized.
type Event interface {
	event()
}

type PaymentSucceeded struct {
	IntentID string
}

type PaymentFailed struct {
	IntentID string
}

type AccountUpdated struct {
	AccountID      string
	ChargesEnabled bool
	PayoutsEnabled bool
}

type Unrecognized struct {
	Type string
}

func (PaymentSucceeded) event() {}
func (PaymentFailed) event()    {}
func (AccountUpdated) event()   {}
func (Unrecognized) event()     {}
