package events

// Topics emitted by the order ledger.
const (
	// TopicOrderSaved fires after an order draft is persisted with its totals snapshot.
	TopicOrderSaved = "order.saved"
	// TopicPreviousDueSettled fires after the settlement worker adjusts a customer balance.
	TopicPreviousDueSettled = "customer.previous_due_settled"
)
