package device

import "fmt"

// ReservePolicy decides what happens when a second controller tries to reserve.
type ReservePolicy string

// ReleasePolicy decides who may release a reservation.
type ReleasePolicy string

const (
	// ReserveReject keeps the first owner and rejects later reservations.
	ReserveReject ReservePolicy = "reject"
	// ReserveTransfer hands ownership to the most recent requester.
	ReserveTransfer ReservePolicy = "transfer"

	// ReleaseOwner allows only the current owner to release.
	ReleaseOwner ReleasePolicy = "owner"
	// ReleaseAny allows any controller to release.
	ReleaseAny ReleasePolicy = "any"
)

// ParseReservePolicy validates a reserve policy name.
func ParseReservePolicy(s string) (ReservePolicy, error) {
	switch p := ReservePolicy(s); p {
	case ReserveReject, ReserveTransfer:
		return p, nil
	default:
		return "", fmt.Errorf("%w: reserve policy %q", ErrUnknownPolicy, s)
	}
}

// ParseReleasePolicy validates a release policy name.
func ParseReleasePolicy(s string) (ReleasePolicy, error) {
	switch p := ReleasePolicy(s); p {
	case ReleaseOwner, ReleaseAny:
		return p, nil
	default:
		return "", fmt.Errorf("%w: release policy %q", ErrUnknownPolicy, s)
	}
}
