package auth

import (
	"github.com/ethereum/go-ethereum/common"
)

// Capability identifies a privileged operation class.
type Capability string

const (
	// CapInjector allows injecting reward asset into the accumulator.
	CapInjector Capability = "injector"
	// CapPricer allows appending entries to the price series.
	CapPricer Capability = "pricer"
	// CapTreasurer allows custody deposits and withdrawals.
	CapTreasurer Capability = "treasurer"
	// CapOperator allows claiming rewards on behalf of any holder.
	CapOperator Capability = "operator"
)

// Policy answers whether an address holds a capability. Role assignment
// lives outside the core; the engine only ever asks this question.
type Policy interface {
	Allow(addr common.Address, cap Capability) bool
}

// StaticPolicy is a fixed in-memory grant table.
type StaticPolicy struct {
	grants map[common.Address]map[Capability]bool
}

func NewStaticPolicy() *StaticPolicy {
	return &StaticPolicy{grants: make(map[common.Address]map[Capability]bool)}
}

// Grant adds a capability for an address.
func (p *StaticPolicy) Grant(addr common.Address, cap Capability) {
	caps := p.grants[addr]
	if caps == nil {
		caps = make(map[Capability]bool)
		p.grants[addr] = caps
	}
	caps[cap] = true
}

func (p *StaticPolicy) Allow(addr common.Address, cap Capability) bool {
	if p == nil {
		return false
	}
	return p.grants[addr][cap]
}

// AllowAll grants every capability to every address.
type AllowAll struct{}

func (AllowAll) Allow(common.Address, Capability) bool { return true }
