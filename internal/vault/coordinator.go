package vault

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"shareVault/internal/asset"
	"shareVault/internal/auth"
	"shareVault/internal/model"
)

type pricePoint struct {
	id    uint64
	price *big.Int
}

// Coordinator custodies the underlying asset and converts between asset
// and claim-token amounts through the current price. It is the only
// entity allowed to mint or burn on the claim ledger.
type Coordinator struct {
	custody   common.Address
	token     asset.Token
	assetAddr common.Address
	ledger    *ClaimLedger
	acc       *RewardAccumulator
	policy    auth.Policy
	guard     *reentryGuard
	prices    []pricePoint
	emit      func(string, any)
}

func newCoordinator(token asset.Token, assetAddr, custody common.Address, policy auth.Policy, guard *reentryGuard, initialPrice *big.Int, emit func(string, any)) *Coordinator {
	return &Coordinator{
		custody:   custody,
		token:     token,
		assetAddr: assetAddr,
		policy:    policy,
		guard:     guard,
		prices:    []pricePoint{{id: 0, price: new(big.Int).Set(initialPrice)}},
		emit:      emit,
	}
}

// Subscribe pulls amount of the underlying asset from caller and mints
// shares at the current price. Shares = amount * PRECISION / price,
// truncating.
func (c *Coordinator) Subscribe(ctx context.Context, caller, assetAddr common.Address, amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if assetAddr != c.assetAddr {
		return nil, fmt.Errorf("%s: %w", assetAddr.Hex(), ErrAssetNotSupported)
	}
	shares := c.toShares(amount)
	if shares.Sign() == 0 {
		return nil, fmt.Errorf("amount below one share at current price: %w", ErrInvalidAmount)
	}
	if err := c.guard.enter(); err != nil {
		return nil, err
	}
	defer c.guard.leave()

	if err := c.token.TransferFrom(ctx, c.custody, caller, c.custody, amount); err != nil {
		return nil, fmt.Errorf("pull asset: %w", err)
	}
	if err := c.ledger.Mint(c.custody, caller, shares); err != nil {
		return nil, err
	}

	c.emit(model.EventRequestedSubscription, model.SubscriptionEventData{
		User:   caller.Hex(),
		Amount: amount.String(),
		Shares: shares.String(),
	})
	return shares, nil
}

// Redeem burns shares and pays out the matching asset amount from
// custody. Amount = shares * price / PRECISION, truncating. The outbound
// transfer runs before the burn so a failed transfer leaves no state
// behind; the burn preconditions are validated up front and stay valid
// because the shared guard blocks ledger mutation during the payout.
func (c *Coordinator) Redeem(ctx context.Context, caller common.Address, shares *big.Int) (*big.Int, error) {
	if shares == nil || shares.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if c.ledger.BalanceOf(caller).Cmp(shares) < 0 {
		return nil, fmt.Errorf("redeem %s shares: %w", shares, ErrInsufficientBalance)
	}
	amount := c.toAssetAmount(shares)
	if amount.Sign() == 0 {
		return nil, fmt.Errorf("shares below one asset unit at current price: %w", ErrInvalidAmount)
	}
	if c.Reserve().Cmp(amount) < 0 {
		return nil, fmt.Errorf("reserve short of %s: %w", amount, ErrInsufficientBalance)
	}
	if err := c.guard.enter(); err != nil {
		return nil, err
	}
	defer c.guard.leave()

	if err := c.token.Transfer(ctx, c.custody, caller, amount); err != nil {
		return nil, fmt.Errorf("pay asset: %w", err)
	}
	if err := c.ledger.Burn(c.custody, caller, shares); err != nil {
		return nil, err
	}

	c.emit(model.EventRequestedRedemption, model.RedemptionEventData{
		User:   caller.Hex(),
		Shares: shares.String(),
		Amount: amount.String(),
	})
	return amount, nil
}

// SetPrice appends a price entry and advances the current price id.
func (c *Coordinator) SetPrice(caller common.Address, price *big.Int) (uint64, error) {
	if !c.policy.Allow(caller, auth.CapPricer) {
		return 0, fmt.Errorf("set price by %s: %w", caller.Hex(), ErrUnauthorized)
	}
	if price == nil || price.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if c.guard.held() {
		return 0, ErrReentrancy
	}
	id := c.prices[len(c.prices)-1].id + 1
	c.prices = append(c.prices, pricePoint{id: id, price: new(big.Int).Set(price)})

	c.emit(model.EventPriceUpdated, model.PriceUpdatedEventData{
		PriceID: id,
		Price:   price.String(),
	})
	return id, nil
}

// DepositAsset tops up custody independent of share accounting.
func (c *Coordinator) DepositAsset(ctx context.Context, caller common.Address, amount *big.Int) error {
	if !c.policy.Allow(caller, auth.CapTreasurer) {
		return fmt.Errorf("deposit by %s: %w", caller.Hex(), ErrUnauthorized)
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.leave()

	if err := c.token.TransferFrom(ctx, c.custody, caller, c.custody, amount); err != nil {
		return fmt.Errorf("pull asset: %w", err)
	}
	return nil
}

// WithdrawAsset drains custody. Fails when the reserve cannot cover it.
func (c *Coordinator) WithdrawAsset(ctx context.Context, caller common.Address, amount *big.Int) error {
	if !c.policy.Allow(caller, auth.CapTreasurer) {
		return fmt.Errorf("withdraw by %s: %w", caller.Hex(), ErrUnauthorized)
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if c.Reserve().Cmp(amount) < 0 {
		return fmt.Errorf("reserve short of %s: %w", amount, ErrInsufficientBalance)
	}
	if err := c.guard.enter(); err != nil {
		return err
	}
	defer c.guard.leave()

	if err := c.token.Transfer(ctx, c.custody, caller, amount); err != nil {
		return fmt.Errorf("pay asset: %w", err)
	}
	return nil
}

// CurrentPrice returns the latest price entry.
func (c *Coordinator) CurrentPrice() (uint64, *big.Int) {
	last := c.prices[len(c.prices)-1]
	return last.id, new(big.Int).Set(last.price)
}

// Reserve is the custody balance of the underlying asset.
func (c *Coordinator) Reserve() *big.Int {
	return c.token.BalanceOf(c.custody)
}

func (c *Coordinator) toShares(amount *big.Int) *big.Int {
	_, price := c.CurrentPrice()
	shares := new(big.Int).Mul(amount, Precision)
	return shares.Div(shares, price)
}

func (c *Coordinator) toAssetAmount(shares *big.Int) *big.Int {
	_, price := c.CurrentPrice()
	amount := new(big.Int).Mul(shares, price)
	return amount.Div(amount, Precision)
}
