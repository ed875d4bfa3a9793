package bounty

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-registry/core/apperr"
	"dataset-registry/core/models"
)

// fakeRegistry keeps bounty escrow state in memory
type fakeRegistry struct {
	mu       sync.Mutex
	bounties map[uint64]*models.Bounty
	nextID   uint64
	creator  common.Address
	txCount  int
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		bounties: make(map[uint64]*models.Bounty),
		nextID:   1,
		creator:  common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
}

func (f *fakeRegistry) CreateBounty(ctx context.Context, amountWei *big.Int) (*models.BountyCreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.bounties[id] = &models.Bounty{ID: id, Amount: amountWei, Creator: f.creator}
	f.txCount++
	return &models.BountyCreateResult{BountyID: id, TxHash: "0xabc", GasUsed: 21000}, nil
}

func (f *fakeRegistry) AddContributor(ctx context.Context, bountyID uint64, contributor common.Address) (*models.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bounties[bountyID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "bounty does not exist")
	}
	b.Contributors = append(b.Contributors, contributor)
	f.txCount++
	return &models.TxResult{TxHash: "0xdef", GasUsed: 30000}, nil
}

func (f *fakeRegistry) DistributeBounty(ctx context.Context, bountyID uint64) (*models.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bounties[bountyID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "bounty does not exist")
	}
	b.Distributed = true
	f.txCount++
	return &models.TxResult{TxHash: "0xfed", GasUsed: 50000}, nil
}

func (f *fakeRegistry) GetBounty(ctx context.Context, bountyID uint64) (*models.Bounty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bounties[bountyID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "bounty does not exist")
	}
	snapshot := *b
	snapshot.Contributors = append([]common.Address(nil), b.Contributors...)
	return &snapshot, nil
}

func (f *fakeRegistry) NextBountyID(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextID, nil
}

const contributorA = "0x2222222222222222222222222222222222222222"

func TestBountyLifecycle(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry()
	mgr := NewManager(reg)

	created, err := mgr.Create(ctx, "0.5")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), created.BountyID)

	_, err = mgr.AddContributor(ctx, created.BountyID, contributorA)
	require.NoError(t, err)

	result, err := mgr.Distribute(ctx, created.BountyID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ContributorCount)
	assert.Equal(t, "0.500000", result.RewardPerContributor)

	// terminal state: a second distribution is rejected, flag stays set
	_, err = mgr.Distribute(ctx, created.BountyID)
	assert.Equal(t, apperr.AlreadyDistributed, apperr.KindOf(err))

	view, err := mgr.Get(ctx, created.BountyID)
	require.NoError(t, err)
	assert.True(t, view.Distributed)
}

func TestDistributedBountyRejectsAllMutations(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry()
	mgr := NewManager(reg)

	created, _ := mgr.Create(ctx, "1")
	_, _ = mgr.AddContributor(ctx, created.BountyID, contributorA)
	_, err := mgr.Distribute(ctx, created.BountyID)
	require.NoError(t, err)

	before := reg.txCount
	_, err = mgr.AddContributor(ctx, created.BountyID, "0x3333333333333333333333333333333333333333")
	assert.Equal(t, apperr.AlreadyDistributed, apperr.KindOf(err))
	_, err = mgr.Distribute(ctx, created.BountyID)
	assert.Equal(t, apperr.AlreadyDistributed, apperr.KindOf(err))
	assert.Equal(t, before, reg.txCount, "rejected mutations must not reach the chain")
}

func TestDistributeRequiresContributors(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry()
	mgr := NewManager(reg)

	created, _ := mgr.Create(ctx, "2")
	_, err := mgr.Distribute(ctx, created.BountyID)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestCreateAmountBoundaries(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(newFakeRegistry())

	for _, amount := range []string{"0", "-1", "abc", "100.000001"} {
		_, err := mgr.Create(ctx, amount)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err), "amount %q", amount)
	}
	for _, amount := range []string{"0.000001", "100"} {
		_, err := mgr.Create(ctx, amount)
		assert.NoError(t, err, "amount %q", amount)
	}
}

func TestAddContributorValidation(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry()
	mgr := NewManager(reg)

	created, _ := mgr.Create(ctx, "1")

	_, err := mgr.AddContributor(ctx, created.BountyID, "not-an-address")
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	_, err = mgr.AddContributor(ctx, created.BountyID, contributorA)
	require.NoError(t, err)
	_, err = mgr.AddContributor(ctx, created.BountyID, contributorA)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err), "duplicate contributor")

	_, err = mgr.AddContributor(ctx, 999, contributorA)
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestRewardDisplayRounding(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry()
	mgr := NewManager(reg)

	created, _ := mgr.Create(ctx, "1")
	for _, addr := range []string{
		contributorA,
		"0x3333333333333333333333333333333333333333",
		"0x4444444444444444444444444444444444444444",
	} {
		_, err := mgr.AddContributor(ctx, created.BountyID, addr)
		require.NoError(t, err)
	}

	result, err := mgr.Distribute(ctx, created.BountyID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.ContributorCount)
	assert.Equal(t, "0.333333", result.RewardPerContributor)
}

func TestListAndListByCreator(t *testing.T) {
	ctx := context.Background()
	reg := newFakeRegistry()
	mgr := NewManager(reg)

	_, _ = mgr.Create(ctx, "1")
	_, _ = mgr.Create(ctx, "2")

	views, err := mgr.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, uint64(1), views[0].ID)
	assert.Equal(t, decimal.RequireFromString("2").String(), views[1].AmountEth)

	byCreator, err := mgr.ListByCreator(ctx, reg.creator.Hex())
	require.NoError(t, err)
	assert.Len(t, byCreator, 2)

	none, err := mgr.ListByCreator(ctx, contributorA)
	require.NoError(t, err)
	assert.Empty(t, none)
}
