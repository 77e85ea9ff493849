package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is missing or owned by another tenant.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrDuplicatePhone is returned when a lead with the same phone already
	// exists for the tenant.
	ErrDuplicatePhone = errors.New("a lead with this phone already exists")
)
