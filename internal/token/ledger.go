// Package token implements the NEP-141 fungible token semantics of the ITLX
// contract as an in-process ledger. It serves two purposes: dry-running the
// deployment init call before touching the chain, and replaying indexed
// events into a balance replica that can be checked against on-chain state.
//
// Balance arithmetic is capped at u128 and amounts cross the API as base-10
// strings, matching the contract's JSON interface.
package token

import (
	"fmt"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
)

// OneYocto is the deposit state-changing token calls must attach.
var OneYocto = domain.NewBalance(1)

// StorageMinimumBalance is the registration cost per account: min and max
// of the storage balance bounds are equal, so available balance is always
// zero. 0.00125 NEAR in yocto.
var StorageMinimumBalance = mustBalance("1250000000000000000000")

func mustBalance(s string) domain.Balance {
	b, err := domain.ParseBalance(s)
	if err != nil {
		panic(err)
	}
	return b
}

// StorageBalance is an account's storage deposit state.
type StorageBalance struct {
	Total     domain.Balance `json:"total"`
	Available domain.Balance `json:"available"`
}

// StorageBalanceBounds are the min/max storage deposits the token accepts.
type StorageBalanceBounds struct {
	Min domain.Balance `json:"min"`
	Max domain.Balance `json:"max"`
}

// Ledger is the token state: registered accounts, balances and metadata.
// It is not safe for concurrent use; callers serialize access.
type Ledger struct {
	metadata     domain.TokenMetadata
	owner        domain.AccountID
	sessionVault *domain.AccountID
	totalSupply  domain.Balance
	balances     map[domain.AccountID]domain.Balance

	events []domain.TokenEvent
}

// New initializes the ledger with the given total supply owned by owner,
// emitting the initial ft_mint event. Mirrors the contract's new call:
// the owner account is registered and credited with the whole supply.
func New(owner domain.AccountID, totalSupply domain.Balance, md domain.TokenMetadata) (*Ledger, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	if err := md.Validate(); err != nil {
		return nil, err
	}

	l := &Ledger{
		metadata: md,
		owner:    owner,
		balances: make(map[domain.AccountID]domain.Balance),
	}

	l.balances[owner] = domain.Balance{}
	l.deposit(owner, totalSupply)

	memo := "new tokens are minted"
	l.emit(domain.TokenEvent{
		Kind:   domain.EventMint,
		To:     owner,
		Amount: totalSupply,
		Memo:   &memo,
	})

	return l, nil
}

// Owner returns the account that initialized the token.
func (l *Ledger) Owner() domain.AccountID {
	return l.owner
}

// Metadata returns the token metadata, as ft_metadata would.
func (l *Ledger) Metadata() domain.TokenMetadata {
	return l.metadata
}

// TotalSupply returns the current total supply, as ft_total_supply would.
func (l *Ledger) TotalSupply() domain.Balance {
	return l.totalSupply
}

// BalanceOf returns the balance of an account, zero if unregistered,
// as ft_balance_of would.
func (l *Ledger) BalanceOf(account domain.AccountID) domain.Balance {
	return l.balances[account]
}

// Registered reports whether the account has a storage registration.
func (l *Ledger) Registered(account domain.AccountID) bool {
	_, ok := l.balances[account]
	return ok
}

// SetSessionVault restricts plain transfers from targeting vault.
// Owner-only, mirroring set_session_vault_id.
func (l *Ledger) SetSessionVault(caller, vault domain.AccountID) error {
	if caller != l.owner {
		return ErrNotOwner
	}
	if err := vault.Validate(); err != nil {
		return err
	}
	l.sessionVault = &vault
	return nil
}

// Transfer moves amount from sender to receiver. Both accounts must be
// registered, the amount positive, and exactly one yoctoNEAR attached.
func (l *Ledger) Transfer(sender, receiver domain.AccountID, amount domain.Balance, memo *string, attached domain.Balance) error {
	if l.sessionVault != nil && receiver == *l.sessionVault {
		return ErrReceiverIsSessionVault
	}
	if err := l.transfer(sender, receiver, amount, attached); err != nil {
		return err
	}

	l.emit(domain.TokenEvent{
		Kind:   domain.EventTransfer,
		From:   sender,
		To:     receiver,
		Amount: amount,
		Memo:   memo,
	})
	return nil
}

// PendingTransfer is an in-flight ft_transfer_call awaiting resolution.
type PendingTransfer struct {
	Sender   domain.AccountID
	Receiver domain.AccountID
	Amount   domain.Balance
}

// TransferCall moves amount to the receiver and returns the pending
// transfer to be settled with ResolveTransfer once the receiver reports
// how much it used. The session vault restriction does not apply here,
// matching the contract.
func (l *Ledger) TransferCall(sender, receiver domain.AccountID, amount domain.Balance, memo *string, attached domain.Balance) (*PendingTransfer, error) {
	if err := l.transfer(sender, receiver, amount, attached); err != nil {
		return nil, err
	}

	l.emit(domain.TokenEvent{
		Kind:   domain.EventTransfer,
		From:   sender,
		To:     receiver,
		Amount: amount,
		Memo:   memo,
	})

	return &PendingTransfer{Sender: sender, Receiver: receiver, Amount: amount}, nil
}

// ResolveTransfer settles a transfer-call refund. used is clamped to the
// transferred amount; the unused remainder is returned to the sender,
// capped at the receiver's current balance. If the sender was unregistered
// in the meantime the refund is burned instead. Returns the amount the
// receiver kept and the amount burned.
func (l *Ledger) ResolveTransfer(p *PendingTransfer, used domain.Balance) (kept, burned domain.Balance) {
	used = used.Min(p.Amount)
	unused := p.Amount.Sub(used)
	if unused.IsZero() {
		return used, domain.Balance{}
	}

	receiverBalance := l.balances[p.Receiver]
	refund := unused.Min(receiverBalance)
	if refund.IsZero() {
		return p.Amount, domain.Balance{}
	}

	l.balances[p.Receiver] = receiverBalance.Sub(refund)

	if senderBalance, ok := l.balances[p.Sender]; ok {
		l.balances[p.Sender] = senderBalance.Add(refund)
		memo := "refund"
		l.emit(domain.TokenEvent{
			Kind:   domain.EventTransfer,
			From:   p.Receiver,
			To:     p.Sender,
			Amount: refund,
			Memo:   &memo,
		})
		return p.Amount.Sub(refund), domain.Balance{}
	}

	// Sender account is gone; the refund cannot be returned and is burned.
	l.totalSupply = l.totalSupply.Sub(refund)
	l.emit(domain.TokenEvent{
		Kind:   domain.EventBurn,
		From:   p.Receiver,
		Amount: refund,
	})
	return p.Amount.Sub(refund), refund
}

// TakeEvents drains and returns the events emitted since the last call.
func (l *Ledger) TakeEvents() []domain.TokenEvent {
	evs := l.events
	l.events = nil
	return evs
}

// transfer performs the shared checks and balance movement of Transfer
// and TransferCall.
func (l *Ledger) transfer(sender, receiver domain.AccountID, amount domain.Balance, attached domain.Balance) error {
	if attached.Cmp(OneYocto) != 0 {
		return ErrOneYoctoRequired
	}
	if sender == receiver {
		return ErrSelfTransfer
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}

	senderBalance, ok := l.balances[sender]
	if !ok {
		return fmt.Errorf("sender %s: %w", sender, ErrNotRegistered)
	}
	if _, ok := l.balances[receiver]; !ok {
		return fmt.Errorf("receiver %s: %w", receiver, ErrNotRegistered)
	}
	if senderBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	l.balances[sender] = senderBalance.Sub(amount)
	l.balances[receiver] = l.balances[receiver].Add(amount)
	return nil
}

// deposit credits a registered account and grows total supply.
func (l *Ledger) deposit(account domain.AccountID, amount domain.Balance) {
	l.balances[account] = l.balances[account].Add(amount)
	l.totalSupply = l.totalSupply.Add(amount)
}

func (l *Ledger) emit(ev domain.TokenEvent) {
	l.events = append(l.events, ev)
}
