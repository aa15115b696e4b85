package main

// orderMessage is the payload sent from API -> SQS -> worker.
type orderMessage struct {
	OrderID       string `json:"order_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
