package token

import (
	"github.com/brainstems/itlx-nep141-token/internal/domain"
)

// StorageBalanceBounds returns the registration deposit bounds. Min and max
// are equal, so registered accounts never have withdrawable storage balance.
func (l *Ledger) StorageBalanceBounds() StorageBalanceBounds {
	return StorageBalanceBounds{Min: StorageMinimumBalance, Max: StorageMinimumBalance}
}

// StorageBalanceOf returns the storage balance of an account, nil if the
// account is not registered.
func (l *Ledger) StorageBalanceOf(account domain.AccountID) *StorageBalance {
	if !l.Registered(account) {
		return nil
	}
	return &StorageBalance{Total: StorageMinimumBalance}
}

// StorageDeposit registers account (or the payer when account is empty),
// paying the registration cost from the attached deposit. Depositing for an
// already registered account is a no-op and the whole deposit is refunded.
// Returns the resulting storage balance and the refund owed to the payer.
func (l *Ledger) StorageDeposit(payer domain.AccountID, account domain.AccountID, attached domain.Balance) (StorageBalance, domain.Balance, error) {
	target := account
	if target == "" {
		target = payer
	}
	if err := target.Validate(); err != nil {
		return StorageBalance{}, domain.Balance{}, err
	}

	if l.Registered(target) {
		// Already registered: refund the full deposit.
		return StorageBalance{Total: StorageMinimumBalance}, attached, nil
	}

	if attached.Cmp(StorageMinimumBalance) < 0 {
		return StorageBalance{}, domain.Balance{}, ErrInsufficientDeposit
	}

	l.balances[target] = domain.Balance{}
	refund := attached.Sub(StorageMinimumBalance)
	return StorageBalance{Total: StorageMinimumBalance}, refund, nil
}

// StorageWithdraw returns the caller's storage balance. Since min equals max
// the available balance is always zero, so any positive requested amount
// fails. Requires exactly one yoctoNEAR attached.
func (l *Ledger) StorageWithdraw(caller domain.AccountID, amount *domain.Balance, attached domain.Balance) (StorageBalance, error) {
	if attached.Cmp(OneYocto) != 0 {
		return StorageBalance{}, ErrOneYoctoRequired
	}
	if !l.Registered(caller) {
		return StorageBalance{}, ErrNotRegistered
	}
	if amount != nil && !amount.IsZero() {
		return StorageBalance{}, ErrInsufficientBalance
	}
	return StorageBalance{Total: StorageMinimumBalance}, nil
}

// StorageUnregister removes the caller's registration and refunds the
// storage deposit. Fails on a positive token balance unless force is set,
// in which case the balance is burned. Returns false if the caller was not
// registered. Requires exactly one yoctoNEAR attached.
func (l *Ledger) StorageUnregister(caller domain.AccountID, force bool, attached domain.Balance) (bool, error) {
	if attached.Cmp(OneYocto) != 0 {
		return false, ErrOneYoctoRequired
	}

	balance, ok := l.balances[caller]
	if !ok {
		return false, nil
	}

	if !balance.IsZero() {
		if !force {
			return false, ErrBalanceNonZero
		}
		// Force: the account's tokens are burned, reducing total supply.
		l.totalSupply = l.totalSupply.Sub(balance)
		l.emit(domain.TokenEvent{
			Kind:   domain.EventBurn,
			From:   caller,
			Amount: balance,
		})
	}

	delete(l.balances, caller)
	return true, nil
}
