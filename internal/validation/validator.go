package validation

import (
	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation
// registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// An order may reference each lesson at most once: the placement
	// transaction cannot apply two updates to the same item, and a client
	// wanting more seats raises the quantity instead.
	v.RegisterStructValidation(orderPayloadStructValidation, OrderPayload{})

	// Available must be present and non-negative, but zero is a valid
	// absolute seat count.
	v.RegisterStructValidation(updateAvailabilityStructValidation, UpdateAvailabilityRequest{})

	return v
}

func updateAvailabilityStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(UpdateAvailabilityRequest)

	if req.Available == nil {
		sl.ReportError(req.Available, "Available", "Available", "required", "")
		return
	}
	if *req.Available < 0 {
		sl.ReportError(req.Available, "Available", "Available", "gte", "0")
	}
}

func orderPayloadStructValidation(sl validatorv10.StructLevel) {
	payload := sl.Current().Interface().(OrderPayload)

	seen := make(map[string]bool, len(payload.Lessons))
	for _, line := range payload.Lessons {
		if seen[line.ID] {
			sl.ReportError(payload.Lessons, "lessons", "Lessons", "unique_lesson_ids", line.ID)
			return
		}
		seen[line.ID] = true
	}
}
