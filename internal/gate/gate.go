// Package gate provides the microphone-permission and network-reachability
// checks that guard every capture attempt and transcription submission.
//
// Results are never cached across attempts: both permission and
// connectivity can change between sessions, so callers re-check each time.
package gate

import "context"

// PermissionStatus is the outcome of a microphone authorization check.
type PermissionStatus int

const (
	// PermissionUndetermined - the user has not been asked yet.
	PermissionUndetermined PermissionStatus = iota
	// PermissionGranted - capture may proceed.
	PermissionGranted
	// PermissionDenied - capture is blocked until the user changes settings.
	PermissionDenied
)

// String returns the string representation of the status.
func (s PermissionStatus) String() string {
	switch s {
	case PermissionUndetermined:
		return "UNDETERMINED"
	case PermissionGranted:
		return "GRANTED"
	case PermissionDenied:
		return "DENIED"
	default:
		return "UNKNOWN"
	}
}

// Microphone exposes the platform microphone authorization primitives.
type Microphone interface {
	// Status returns the current authorization state without prompting.
	Status(ctx context.Context) (PermissionStatus, error)

	// Request prompts the user if the state is undetermined and returns
	// the resulting state.
	Request(ctx context.Context) (PermissionStatus, error)
}

// Reachability describes point-in-time network state, distinguishing
// "no link" from "link but no internet".
type Reachability int

const (
	// ReachabilityNone - no network interface is up.
	ReachabilityNone Reachability = iota
	// ReachabilityLinkOnly - a link exists but the internet is unreachable.
	ReachabilityLinkOnly
	// ReachabilityInternet - the internet is reachable.
	ReachabilityInternet
)

// String returns the string representation of the reachability state.
func (r Reachability) String() string {
	switch r {
	case ReachabilityNone:
		return "NONE"
	case ReachabilityLinkOnly:
		return "LINK_ONLY"
	case ReachabilityInternet:
		return "INTERNET"
	default:
		return "UNKNOWN"
	}
}

// Online reports whether the internet is reachable.
func (r Reachability) Online() bool {
	return r == ReachabilityInternet
}

// Connectivity exposes a point-in-time reachability query.
type Connectivity interface {
	Check(ctx context.Context) (Reachability, error)
}

// Gate bundles the two checks the pipeline performs before capture and
// before submission.
type Gate struct {
	Mic Microphone
	Net Connectivity
}

// AllowCapture resolves microphone permission, prompting if needed.
func (g *Gate) AllowCapture(ctx context.Context) (bool, error) {
	status, err := g.Mic.Status(ctx)
	if err != nil {
		return false, err
	}
	if status == PermissionUndetermined {
		status, err = g.Mic.Request(ctx)
		if err != nil {
			return false, err
		}
	}
	return status == PermissionGranted, nil
}

// AllowSubmit re-verifies reachability for a transcription submission.
func (g *Gate) AllowSubmit(ctx context.Context) (bool, error) {
	r, err := g.Net.Check(ctx)
	if err != nil {
		return false, err
	}
	return r.Online(), nil
}
