package model

import "errors"

// Sentinel errors for well-known failure conditions that cross package
// boundaries. Callers should use [errors.Is] to match these.
var (
	// ErrDomainNotFound means the requested domain is not configured.
	ErrDomainNotFound = errors.New("domain not configured")

	// ErrProjectNotFound means the requested testing project does not exist
	// or is inactive.
	ErrProjectNotFound = errors.New("testing project not found")

	// ErrProjectExists is returned when creating a testing project whose
	// name is already taken.
	ErrProjectExists = errors.New("testing project already exists")

	// ErrForbidden indicates the client address is not allow-listed.
	ErrForbidden = errors.New("client address not allowed")

	// ErrWakeDeclined means actuation was refused before any signal was
	// sent (Wake-on-LAN disabled or MAC address unset).
	ErrWakeDeclined = errors.New("wake declined")
)
