package device

import "errors"

var (
	// ErrAlreadyReserved is returned by Reserve when another controller holds the reservation.
	ErrAlreadyReserved = errors.New("device already reserved by another controller")

	// ErrNotOwner is returned by Release when the caller does not hold the reservation.
	ErrNotOwner = errors.New("release requested by a controller that does not own the reservation")

	// ErrUnknownPolicy is returned when parsing an unsupported policy name.
	ErrUnknownPolicy = errors.New("unknown reservation policy")
)
