package model

// WebhookEvent is the provider-delivered event envelope. Deliveries are
// at-least-once and unordered relative to synchronous verify calls.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

// EventChargeSuccess is the only event kind that mutates transaction state;
// all other kinds are acknowledged and discarded.
const EventChargeSuccess = "charge.success"

type WebhookEventData struct {
	Reference string          `json:"reference"`
	Amount    int64           `json:"amount"` // minor units
	Status    string          `json:"status"`
	Customer  WebhookCustomer `json:"customer"`
}

type WebhookCustomer struct {
	Email string `json:"email"`
}
