package asset

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrInvalidTransfer       = errors.New("invalid transfer")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Token is the fungible-transfer surface the vault core depends on.
// Any transfer failure aborts the calling vault operation.
type Token interface {
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error
	TransferFrom(ctx context.Context, spender, from, to common.Address, amount *big.Int) error
	Approve(owner, spender common.Address, amount *big.Int)
	BalanceOf(addr common.Address) *big.Int
	TotalSupply() *big.Int
}

// Ledger is an in-memory fungible token with allowance semantics.
type Ledger struct {
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
	supply     *big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
		supply:     big.NewInt(0),
	}
}

// Mint credits freshly created units to an address.
func (l *Ledger) Mint(to common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 || to == (common.Address{}) {
		return
	}
	l.credit(to, amount)
	l.supply.Add(l.supply, amount)
}

func (l *Ledger) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	return l.move(from, to, amount)
}

func (l *Ledger) TransferFrom(ctx context.Context, spender, from, to common.Address, amount *big.Int) error {
	if spender != from {
		allowed := l.allowance(from, spender)
		if allowed.Cmp(amount) < 0 {
			return fmt.Errorf("%w: %s of %s from %s", ErrInsufficientAllowance, allowed, amount, from.Hex())
		}
		if err := l.move(from, to, amount); err != nil {
			return err
		}
		allowed.Sub(allowed, amount)
		return nil
	}
	return l.move(from, to, amount)
}

func (l *Ledger) Approve(owner, spender common.Address, amount *big.Int) {
	byOwner := l.allowances[owner]
	if byOwner == nil {
		byOwner = make(map[common.Address]*big.Int)
		l.allowances[owner] = byOwner
	}
	byOwner[spender] = new(big.Int).Set(amount)
}

func (l *Ledger) BalanceOf(addr common.Address) *big.Int {
	if bal, ok := l.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return big.NewInt(0)
}

func (l *Ledger) TotalSupply() *big.Int {
	return new(big.Int).Set(l.supply)
}

func (l *Ledger) move(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 || to == (common.Address{}) || from == (common.Address{}) {
		return ErrInvalidTransfer
	}
	bal := l.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientFunds, from.Hex(), l.BalanceOf(from), amount)
	}
	bal.Sub(bal, amount)
	l.credit(to, amount)
	return nil
}

func (l *Ledger) credit(to common.Address, amount *big.Int) {
	if bal, ok := l.balances[to]; ok {
		bal.Add(bal, amount)
		return
	}
	l.balances[to] = new(big.Int).Set(amount)
}

// LedgerState is the serialized form of the in-memory token ledger.
// Big integers are decimal strings.
type LedgerState struct {
	Supply     string                       `json:"supply"`
	Balances   map[string]string            `json:"balances"`
	Allowances map[string]map[string]string `json:"allowances"`
}

// State exports the ledger for host-side persistence.
func (l *Ledger) State() LedgerState {
	state := LedgerState{
		Supply:     l.supply.String(),
		Balances:   make(map[string]string, len(l.balances)),
		Allowances: make(map[string]map[string]string, len(l.allowances)),
	}
	for addr, bal := range l.balances {
		state.Balances[addr.Hex()] = bal.String()
	}
	for owner, byOwner := range l.allowances {
		entry := make(map[string]string, len(byOwner))
		for spender, allowed := range byOwner {
			entry[spender.Hex()] = allowed.String()
		}
		state.Allowances[owner.Hex()] = entry
	}
	return state
}

// Restore replaces the ledger contents with an exported state.
func (l *Ledger) Restore(state LedgerState) error {
	supply, err := parseAmount(state.Supply)
	if err != nil {
		return fmt.Errorf("supply: %w", err)
	}
	balances := make(map[common.Address]*big.Int, len(state.Balances))
	for addr, value := range state.Balances {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid address: %s", addr)
		}
		bal, err := parseAmount(value)
		if err != nil {
			return fmt.Errorf("balance %s: %w", addr, err)
		}
		balances[common.HexToAddress(addr)] = bal
	}
	allowances := make(map[common.Address]map[common.Address]*big.Int, len(state.Allowances))
	for owner, byOwner := range state.Allowances {
		if !common.IsHexAddress(owner) {
			return fmt.Errorf("invalid address: %s", owner)
		}
		entry := make(map[common.Address]*big.Int, len(byOwner))
		for spender, value := range byOwner {
			if !common.IsHexAddress(spender) {
				return fmt.Errorf("invalid address: %s", spender)
			}
			allowed, err := parseAmount(value)
			if err != nil {
				return fmt.Errorf("allowance %s/%s: %w", owner, spender, err)
			}
			entry[common.HexToAddress(spender)] = allowed
		}
		allowances[common.HexToAddress(owner)] = entry
	}

	l.supply = supply
	l.balances = balances
	l.allowances = allowances
	return nil
}

func parseAmount(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func (l *Ledger) allowance(owner, spender common.Address) *big.Int {
	byOwner := l.allowances[owner]
	if byOwner == nil {
		return big.NewInt(0)
	}
	allowed := byOwner[spender]
	if allowed == nil {
		return big.NewInt(0)
	}
	return allowed
}
