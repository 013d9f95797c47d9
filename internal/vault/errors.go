package vault

import "errors"

var (
	// Validation errors.
	ErrZeroAmount             = errors.New("zero amount")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidAddressOrAmount = errors.New("invalid address or amount")

	// Authorization errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotHubCaller = errors.New("caller is not the hub")

	// State-precondition errors.
	ErrNoSupply            = errors.New("no claim tokens minted")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAssetNotSupported   = errors.New("asset not supported")
	ErrNoRewardToClaim     = errors.New("no reward to claim")

	// ErrReentrancy rejects a call arriving while a guarded operation is
	// still in flight, typically via an asset transfer callback.
	ErrReentrancy = errors.New("reentrant call")
)
