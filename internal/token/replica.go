package token

import (
	"fmt"
	"sync"

	"github.com/brainstems/itlx-nep141-token/internal/domain"
)

// Replica is a balance replica built purely from indexed NEP-297 events.
// Unlike Ledger it has no registration rules: accounts appear on first
// credit and are dropped when their balance reaches zero, matching what an
// indexer can observe from the event stream alone.
//
// Safe for concurrent use.
type Replica struct {
	mu          sync.RWMutex
	contract    domain.AccountID
	totalSupply domain.Balance
	balances    map[domain.AccountID]domain.Balance
	applied     int64
}

// NewReplica creates an empty replica for the given token contract.
func NewReplica(contract domain.AccountID) *Replica {
	return &Replica{
		contract: contract,
		balances: make(map[domain.AccountID]domain.Balance),
	}
}

// Apply folds one event into the replica. Mints grow supply, burns shrink
// it, transfers move balance. A debit exceeding the tracked balance means
// the replica missed events and is reported as an error; the event is not
// applied.
func (r *Replica) Apply(ev *domain.TokenEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch ev.Kind {
	case domain.EventMint:
		supply := r.totalSupply.Add(ev.Amount)
		if supply.ExceedsU128() {
			return fmt.Errorf("%w: mint %s onto supply %s", ErrSupplyOverflow, ev.Amount, r.totalSupply)
		}
		r.balances[ev.To] = r.balances[ev.To].Add(ev.Amount)
		r.totalSupply = supply

	case domain.EventBurn:
		if err := r.debit(ev.From, ev.Amount); err != nil {
			return err
		}
		r.totalSupply = r.totalSupply.Sub(r.totalSupply.Min(ev.Amount))

	case domain.EventTransfer:
		if err := r.debit(ev.From, ev.Amount); err != nil {
			return err
		}
		r.balances[ev.To] = r.balances[ev.To].Add(ev.Amount)

	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}

	r.applied++
	return nil
}

func (r *Replica) debit(account domain.AccountID, amount domain.Balance) error {
	balance := r.balances[account]
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("replica divergence: debit %s from %s holding %s", amount, account, balance)
	}
	rest := balance.Sub(amount)
	if rest.IsZero() {
		delete(r.balances, account)
	} else {
		r.balances[account] = rest
	}
	return nil
}

// Contract returns the token contract this replica tracks.
func (r *Replica) Contract() domain.AccountID {
	return r.contract
}

// TotalSupply returns the replicated total supply.
func (r *Replica) TotalSupply() domain.Balance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalSupply
}

// BalanceOf returns the replicated balance of an account.
func (r *Replica) BalanceOf(account domain.AccountID) domain.Balance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[account]
}

// Holders returns a copy of all nonzero balances.
func (r *Replica) Holders() map[domain.AccountID]domain.Balance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[domain.AccountID]domain.Balance, len(r.balances))
	for k, v := range r.balances {
		out[k] = v
	}
	return out
}

// Applied returns the number of events folded in so far.
func (r *Replica) Applied() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.applied
}
