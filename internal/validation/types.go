package validation

// OrderLine is one lesson reference in an order submission.
type OrderLine struct {
	ID       string `json:"id" validate:"required"`             // external lesson id
	Quantity int    `json:"quantity" validate:"required,min=1"` // seats ordered
}

// OrderPayload is the order object nested in the request body.
type OrderPayload struct {
	Lessons []OrderLine `json:"lessons" validate:"required,min=1,dive"`
}

// PlaceOrderRequest is the payload for POST /api/order.
type PlaceOrderRequest struct {
	Order *OrderPayload `json:"order" validate:"required"`
}

// UpdateAvailabilityRequest is the payload for PUT /api/lessons/:id.
// The field name matches the stored document attribute from day one, so
// existing clients keep working. Available is validated at the struct level:
// a plain required tag would reject the legitimate absolute value zero.
type UpdateAvailabilityRequest struct {
	Available *int `json:"Available"`
}
