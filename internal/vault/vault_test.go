package vault

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"shareVault/internal/asset"
	"shareVault/internal/auth"
)

type testEnv struct {
	ctx       context.Context
	v         *Vault
	token     *asset.Ledger
	assetAddr common.Address
	custody   common.Address
	pool      common.Address
	admin     common.Address
	alice     common.Address
	bob       common.Address
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		ctx:       context.Background(),
		token:     asset.NewLedger(),
		assetAddr: common.BytesToAddress([]byte{0xaa}),
		custody:   common.BytesToAddress([]byte{0x01}),
		pool:      common.BytesToAddress([]byte{0x02}),
		admin:     common.BytesToAddress([]byte{0x10}),
		alice:     common.BytesToAddress([]byte{0x11}),
		bob:       common.BytesToAddress([]byte{0x12}),
	}

	policy := auth.NewStaticPolicy()
	policy.Grant(env.admin, auth.CapInjector)
	policy.Grant(env.admin, auth.CapPricer)
	policy.Grant(env.admin, auth.CapTreasurer)
	policy.Grant(env.admin, auth.CapOperator)

	v, err := New(Config{
		Asset:        env.token,
		AssetAddress: env.assetAddr,
		Custody:      env.custody,
		RewardPool:   env.pool,
		Policy:       policy,
	})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}
	env.v = v
	return env
}

func (env *testEnv) fund(t *testing.T, user common.Address, amount int64, spender common.Address) {
	t.Helper()
	env.token.Mint(user, big.NewInt(amount))
	env.token.Approve(user, spender, big.NewInt(amount))
}

func (env *testEnv) subscribe(t *testing.T, user common.Address, amount int64) *big.Int {
	t.Helper()
	env.fund(t, user, amount, env.custody)
	shares, err := env.v.Subscribe(env.ctx, user, env.assetAddr, big.NewInt(amount))
	if err != nil {
		t.Fatalf("subscribe %d for %s: %v", amount, user.Hex(), err)
	}
	return shares
}

func (env *testEnv) inject(t *testing.T, amount int64) {
	t.Helper()
	env.fund(t, env.admin, amount, env.pool)
	if err := env.v.Inject(env.ctx, env.admin, big.NewInt(amount)); err != nil {
		t.Fatalf("inject %d: %v", amount, err)
	}
}

func TestSubscribeMintsSharesAtParity(t *testing.T) {
	env := newTestEnv(t)

	shares := env.subscribe(t, env.alice, 1000)
	if shares.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("shares = %s, want 1000", shares)
	}
	if got := env.v.BalanceOf(env.alice); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("balance = %s, want 1000", got)
	}
	if got := env.v.TotalSupply(); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("supply = %s, want 1000", got)
	}
	if got := env.v.Reserve(); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("reserve = %s, want 1000", got)
	}
}

func TestSubscribeValidation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.v.Subscribe(env.ctx, env.alice, env.assetAddr, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: got %v, want ErrInvalidAmount", err)
	}
	other := common.BytesToAddress([]byte{0xbb})
	if _, err := env.v.Subscribe(env.ctx, env.alice, other, big.NewInt(10)); !errors.Is(err, ErrAssetNotSupported) {
		t.Fatalf("wrong asset: got %v, want ErrAssetNotSupported", err)
	}
}

func TestRoundTripRestoresAssetBalance(t *testing.T) {
	env := newTestEnv(t)

	env.fund(t, env.alice, 1000, env.custody)
	before := env.token.BalanceOf(env.alice)

	shares, err := env.v.Subscribe(env.ctx, env.alice, env.assetAddr, big.NewInt(1000))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if _, err := env.v.Redeem(env.ctx, env.alice, shares); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	after := env.token.BalanceOf(env.alice)
	if before.Cmp(after) != 0 {
		t.Fatalf("asset balance %s != pre-subscription %s", after, before)
	}
	if got := env.v.TotalSupply(); got.Sign() != 0 {
		t.Fatalf("supply = %s, want 0", got)
	}
}

func TestOverRedemptionRejected(t *testing.T) {
	env := newTestEnv(t)

	env.subscribe(t, env.alice, 100)
	_, err := env.v.Redeem(env.ctx, env.alice, big.NewInt(101))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if got := env.v.BalanceOf(env.alice); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("balance changed on failed redeem: %s", got)
	}
	if got := env.v.Reserve(); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("reserve changed on failed redeem: %s", got)
	}
}

func TestSetPriceControlsConversion(t *testing.T) {
	env := newTestEnv(t)

	doublePrice := new(big.Int).Mul(big.NewInt(2), Precision)
	id, err := env.v.SetPrice(env.admin, doublePrice)
	if err != nil {
		t.Fatalf("set price: %v", err)
	}
	if id != 1 {
		t.Fatalf("price id = %d, want 1", id)
	}

	shares := env.subscribe(t, env.alice, 1000)
	if shares.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("shares at 2:1 = %s, want 500", shares)
	}

	amount, err := env.v.Redeem(env.ctx, env.alice, big.NewInt(500))
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("redeemed = %s, want 1000", amount)
	}

	if _, err := env.v.SetPrice(env.alice, doublePrice); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unprivileged set price: got %v, want ErrUnauthorized", err)
	}
	if _, err := env.v.SetPrice(env.admin, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero price: got %v, want ErrInvalidAmount", err)
	}
}

func TestMintBurnHubOnly(t *testing.T) {
	env := newTestEnv(t)

	if err := env.v.ledger.Mint(env.alice, env.alice, big.NewInt(10)); !errors.Is(err, ErrNotHubCaller) {
		t.Fatalf("mint by outsider: got %v, want ErrNotHubCaller", err)
	}
	if err := env.v.ledger.Burn(env.alice, env.alice, big.NewInt(10)); !errors.Is(err, ErrNotHubCaller) {
		t.Fatalf("burn by outsider: got %v, want ErrNotHubCaller", err)
	}
	if err := env.v.ledger.Mint(env.custody, common.Address{}, big.NewInt(10)); !errors.Is(err, ErrInvalidAddressOrAmount) {
		t.Fatalf("mint to zero address: got %v, want ErrInvalidAddressOrAmount", err)
	}
	if err := env.v.ledger.Mint(env.custody, env.alice, big.NewInt(0)); !errors.Is(err, ErrInvalidAddressOrAmount) {
		t.Fatalf("mint zero amount: got %v, want ErrInvalidAddressOrAmount", err)
	}
}

func TestDepositWithdrawAsset(t *testing.T) {
	env := newTestEnv(t)

	env.fund(t, env.admin, 500, env.custody)
	if err := env.v.DepositAsset(env.ctx, env.admin, big.NewInt(500)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if got := env.v.Reserve(); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("reserve = %s, want 500", got)
	}

	if err := env.v.WithdrawAsset(env.ctx, env.admin, big.NewInt(600)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overdrawn withdraw: got %v, want ErrInsufficientBalance", err)
	}
	if err := env.v.WithdrawAsset(env.ctx, env.admin, big.NewInt(500)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if got := env.v.Reserve(); got.Sign() != 0 {
		t.Fatalf("reserve = %s, want 0", got)
	}

	if err := env.v.DepositAsset(env.ctx, env.alice, big.NewInt(1)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("unprivileged deposit: got %v, want ErrUnauthorized", err)
	}
}

func TestConservationAcrossOperations(t *testing.T) {
	env := newTestEnv(t)

	env.subscribe(t, env.alice, 1000)
	env.subscribe(t, env.bob, 500)
	if err := env.v.Transfer(env.alice, env.bob, big.NewInt(250)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	env.inject(t, 300)
	if _, err := env.v.Redeem(env.ctx, env.bob, big.NewInt(100)); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	snap := env.v.Snapshot(0)
	if err := CheckSnapshot(snap); err != nil {
		t.Fatalf("invariants: %v", err)
	}

	sum := big.NewInt(0)
	for _, h := range snap.Holders {
		bal, ok := new(big.Int).SetString(h.Balance, 10)
		if !ok {
			t.Fatalf("bad balance: %s", h.Balance)
		}
		sum.Add(sum, bal)
	}
	if sum.Cmp(env.v.TotalSupply()) != 0 {
		t.Fatalf("balance sum %s != supply %s", sum, env.v.TotalSupply())
	}

	// Reserve equals subscriptions minus redemptions.
	if got := env.v.Reserve(); got.Cmp(big.NewInt(1400)) != 0 {
		t.Fatalf("reserve = %s, want 1400", got)
	}
}

func TestRedeemCallbackCannotMoveShares(t *testing.T) {
	token := &callbackToken{Ledger: asset.NewLedger()}
	assetAddr := common.BytesToAddress([]byte{0xaa})
	custody := common.BytesToAddress([]byte{0x01})
	pool := common.BytesToAddress([]byte{0x02})
	alice := common.BytesToAddress([]byte{0x11})
	mallory := common.BytesToAddress([]byte{0x13})

	v, err := New(Config{
		Asset:        token,
		AssetAddress: assetAddr,
		Custody:      custody,
		RewardPool:   pool,
		Policy:       auth.NewStaticPolicy(),
	})
	if err != nil {
		t.Fatalf("new vault: %v", err)
	}

	ctx := context.Background()
	token.Mint(alice, big.NewInt(1000))
	token.Approve(alice, custody, big.NewInt(1000))
	if _, err := v.Subscribe(ctx, alice, assetAddr, big.NewInt(1000)); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	// A hostile asset fires during the redemption payout and tries to move
	// the shares the pending burn is about to destroy.
	var reentrantErr error
	token.onTransfer = func() {
		reentrantErr = v.Transfer(alice, mallory, big.NewInt(1000))
	}

	amount, err := v.Redeem(ctx, alice, big.NewInt(1000))
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if amount.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("redeemed = %s, want 1000", amount)
	}
	if !errors.Is(reentrantErr, ErrReentrancy) {
		t.Fatalf("callback transfer: got %v, want ErrReentrancy", reentrantErr)
	}

	// The redeemed shares are gone and no unbacked shares survive.
	if got := v.BalanceOf(mallory); got.Sign() != 0 {
		t.Fatalf("accomplice shares = %s, want 0", got)
	}
	if got := v.TotalSupply(); got.Sign() != 0 {
		t.Fatalf("supply = %s, want 0", got)
	}
	if got := v.Reserve(); got.Sign() != 0 {
		t.Fatalf("reserve = %s, want 0", got)
	}
	if got := token.BalanceOf(alice); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("holder asset balance = %s, want 1000", got)
	}
	if err := CheckSnapshot(v.Snapshot(0)); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	env.subscribe(t, env.alice, 1000)
	env.inject(t, 100)
	if err := env.v.Transfer(env.alice, env.bob, big.NewInt(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	snap := env.v.Snapshot(42)
	if snap.LastSeq != 42 {
		t.Fatalf("last seq = %d, want 42", snap.LastSeq)
	}

	restored := newTestEnv(t)
	if err := restored.v.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	for _, holder := range []common.Address{env.alice, env.bob} {
		if got, want := restored.v.BalanceOf(holder), env.v.BalanceOf(holder); got.Cmp(want) != 0 {
			t.Fatalf("balance %s = %s, want %s", holder.Hex(), got, want)
		}
		if got, want := restored.v.Earned(holder), env.v.Earned(holder); got.Cmp(want) != 0 {
			t.Fatalf("earned %s = %s, want %s", holder.Hex(), got, want)
		}
	}
	if got, want := restored.v.UnclaimedTotal(), env.v.UnclaimedTotal(); got.Cmp(want) != 0 {
		t.Fatalf("unclaimed = %s, want %s", got, want)
	}
	gotID, gotPrice := restored.v.CurrentPrice()
	wantID, wantPrice := env.v.CurrentPrice()
	if gotID != wantID || gotPrice.Cmp(wantPrice) != 0 {
		t.Fatalf("price = (%d, %s), want (%d, %s)", gotID, gotPrice, wantID, wantPrice)
	}
}
