package lessons

// Lesson is the item stored in the lessons DynamoDB table. The id attribute
// is the stable external identifier and also the partition key, so every
// reference to a lesson uses the same key.
type Lesson struct {
	ID        string  `json:"id" dynamodbav:"id"` // PK
	Subject   string  `json:"subject" dynamodbav:"subject"`
	Location  string  `json:"location" dynamodbav:"location"`
	Price     float64 `json:"price" dynamodbav:"price"`
	Available int     `json:"available" dynamodbav:"available"` // remaining seats, never negative
}
