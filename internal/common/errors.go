// Package common defines shared constants, sentinel errors and small
// crypto-adjacent utilities used across VaultLink components. Callers should
// use errors.Is to match the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Cipher engine errors.
	ErrKey       = errors.New("invalid key material")
	ErrIntegrity = errors.New("integrity check failed")

	// Discovery errors (listener bind failure; fatal to that operation only).
	ErrDiscovery = errors.New("discovery error")

	// Pairing errors (always terminal for the attempt, never retried).
	ErrPairing           = errors.New("pairing failed")
	ErrInvitationExpired = errors.New("invitation expired")

	// Policy errors (malformed authorization state).
	ErrPolicy = errors.New("invalid sync policy state")
)
