package token

import "errors"

// Ledger errors mirroring the contract's panic conditions.
var (
	// ErrNotRegistered is returned when the sender or receiver has no
	// storage-registered account on the token.
	ErrNotRegistered = errors.New("account not registered")

	// ErrInsufficientBalance is returned when a transfer exceeds the
	// sender's balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrZeroAmount is returned for transfers of amount zero.
	ErrZeroAmount = errors.New("amount must be positive")

	// ErrSelfTransfer is returned when sender and receiver are the same.
	ErrSelfTransfer = errors.New("sender and receiver must differ")

	// ErrReceiverIsSessionVault is returned when a plain transfer targets
	// the configured session vault account.
	ErrReceiverIsSessionVault = errors.New("recipient cannot be session vault")

	// ErrOneYoctoRequired is returned when a state-changing call does not
	// attach exactly one yoctoNEAR.
	ErrOneYoctoRequired = errors.New("exactly one yoctoNEAR must be attached")

	// ErrInsufficientDeposit is returned when a storage deposit is below
	// the registration minimum.
	ErrInsufficientDeposit = errors.New("attached deposit below storage minimum")

	// ErrBalanceNonZero is returned when unregistering an account that
	// still holds tokens without force.
	ErrBalanceNonZero = errors.New("account holds a positive balance")

	// ErrNotOwner is returned when an owner-only call is made by another
	// account.
	ErrNotOwner = errors.New("caller is not the owner")

	// ErrSupplyOverflow is returned when a mint would push total supply
	// past u128.
	ErrSupplyOverflow = errors.New("total supply exceeds u128")
)
