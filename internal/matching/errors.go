package matching

import "errors"

var (
	// ErrAlreadyTaken means an accept attempt lost the race: the ride was no
	// longer pending at commit time. Not retried; the driver picks another ride.
	ErrAlreadyTaken = errors.New("ride already taken")
	// ErrInvalidRole means the actor is not permitted to perform the operation.
	ErrInvalidRole = errors.New("role not permitted for this operation")
	// ErrInvalidTransition means the ride was not in the expected prior status
	// for a progress edge (start/complete).
	ErrInvalidTransition = errors.New("ride not in expected status")
)
