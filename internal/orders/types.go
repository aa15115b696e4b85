package orders

import "time"

// Order statuses. Placement writes PENDING; the worker confirms.
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusFailed    = "FAILED"
)

// LineItem references one lesson by its external id with an ordered quantity.
type LineItem struct {
	LessonID string `json:"id" dynamodbav:"lesson_id"`
	Quantity int    `json:"quantity" dynamodbav:"quantity"`
}

// Order is the item stored in the orders DynamoDB table.
type Order struct {
	OrderID   string     `dynamodbav:"order_id"` // PK, generated at placement
	Lessons   []LineItem `dynamodbav:"lessons"`
	Status    string     `dynamodbav:"status"` // PENDING | CONFIRMED | FAILED
	CreatedAt time.Time  `dynamodbav:"created_at"`
	UpdatedAt time.Time  `dynamodbav:"updated_at"`
}
