// Package bounty enforces the escrow state machine ahead of the contract:
// created → contributor-added* → distributed, with distributed terminal.
package bounty

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dataset-registry/core/apperr"
	"dataset-registry/core/models"
)

var log = logrus.WithField("component", "bounty")

var maxBountyEth = decimal.NewFromInt(100)

const listConcurrency = 8

// Registry is the on-chain surface the manager delegates to
type Registry interface {
	CreateBounty(ctx context.Context, amountWei *big.Int) (*models.BountyCreateResult, error)
	AddContributor(ctx context.Context, bountyID uint64, contributor common.Address) (*models.TxResult, error)
	DistributeBounty(ctx context.Context, bountyID uint64) (*models.TxResult, error)
	GetBounty(ctx context.Context, bountyID uint64) (*models.Bounty, error)
	NextBountyID(ctx context.Context) (uint64, error)
}

// View is a bounty prepared for display, with amounts in decimal ETH
type View struct {
	ID           uint64   `json:"id"`
	AmountEth    string   `json:"amount_eth"`
	Creator      string   `json:"creator"`
	Contributors []string `json:"contributors"`
	Distributed  bool     `json:"distributed"`
}

// DistributeResult reports a payout. The per-contributor reward is display
// math rounded to 6 decimals; the on-chain payout is authoritative.
type DistributeResult struct {
	models.TxResult
	ContributorCount     int    `json:"contributor_count"`
	RewardPerContributor string `json:"reward_per_contributor"`
}

// Manager guards bounty transitions before delegating to the registry
type Manager struct {
	reg Registry
}

// NewManager creates a bounty lifecycle manager
func NewManager(reg Registry) *Manager {
	return &Manager{reg: reg}
}

// Create funds a new escrow. The amount is decimal ETH, bounded to (0, 100].
func (m *Manager) Create(ctx context.Context, amount string) (*models.BountyCreateResult, error) {
	d, err := models.ParseEth(amount)
	if err != nil {
		return nil, apperr.Invalid("bounty amount is not a number", "amount")
	}
	if d.Sign() <= 0 {
		return nil, apperr.Invalid("bounty amount must be greater than zero", "amount")
	}
	if d.GreaterThan(maxBountyEth) {
		return nil, apperr.Invalid("bounty amount must not exceed 100 ETH", "amount")
	}
	return m.reg.CreateBounty(ctx, models.EthToWei(d))
}

// AddContributor records a contributor on an active bounty. Duplicates are
// rejected here by convention; the contract does not necessarily enforce it.
func (m *Manager) AddContributor(ctx context.Context, bountyID uint64, address string) (*models.TxResult, error) {
	if bountyID < 1 {
		return nil, apperr.Invalid("bounty id must be positive", "bounty_id")
	}
	if !common.IsHexAddress(address) {
		return nil, apperr.Invalid("invalid contributor address", "address")
	}
	contributor := common.HexToAddress(address)

	b, err := m.reg.GetBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if b.Distributed {
		return nil, apperr.New(apperr.AlreadyDistributed, "bounty already distributed")
	}
	for _, existing := range b.Contributors {
		if existing == contributor {
			return nil, apperr.Invalid("contributor already added", "address")
		}
	}

	return m.reg.AddContributor(ctx, bountyID, contributor)
}

// Distribute closes an active bounty and pays out its contributors. Requires
// at least one contributor; rejected once the distributed flag is set.
func (m *Manager) Distribute(ctx context.Context, bountyID uint64) (*DistributeResult, error) {
	if bountyID < 1 {
		return nil, apperr.Invalid("bounty id must be positive", "bounty_id")
	}

	b, err := m.reg.GetBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	if b.Distributed {
		return nil, apperr.New(apperr.AlreadyDistributed, "bounty already distributed")
	}
	if len(b.Contributors) == 0 {
		return nil, apperr.Invalid("bounty has no contributors", "bounty_id")
	}

	tx, err := m.reg.DistributeBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}

	reward := models.WeiToEth(b.Amount).
		Div(decimal.NewFromInt(int64(len(b.Contributors)))).
		StringFixed(6)

	log.WithFields(logrus.Fields{"bounty": bountyID, "contributors": len(b.Contributors)}).Info("bounty distributed")
	return &DistributeResult{
		TxResult:             *tx,
		ContributorCount:     len(b.Contributors),
		RewardPerContributor: reward,
	}, nil
}

// Get reads one bounty for display
func (m *Manager) Get(ctx context.Context, bountyID uint64) (*View, error) {
	if bountyID < 1 {
		return nil, apperr.Invalid("bounty id must be positive", "bounty_id")
	}
	b, err := m.reg.GetBounty(ctx, bountyID)
	if err != nil {
		return nil, err
	}
	return toView(b), nil
}

// List reads every bounty the contract has assigned an id to. The counter
// gives the exact range, so reads fan out with bounded concurrency instead of
// probing ids until a revert.
func (m *Manager) List(ctx context.Context) ([]*View, error) {
	next, err := m.reg.NextBountyID(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*View, 0)
	if next <= 1 {
		return views, nil
	}

	results := make([]*View, next)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for id := uint64(1); id < next; id++ {
		id := id
		g.Go(func() error {
			b, err := m.reg.GetBounty(gctx, id)
			if err != nil {
				if apperr.IsKind(err, apperr.NotFound) {
					return nil
				}
				return err
			}
			results[id] = toView(b)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, v := range results {
		if v != nil {
			views = append(views, v)
		}
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views, nil
}

// ListByCreator filters the full listing down to one creator address
func (m *Manager) ListByCreator(ctx context.Context, address string) ([]*View, error) {
	if !common.IsHexAddress(address) {
		return nil, apperr.Invalid("invalid creator address", "address")
	}
	creator := common.HexToAddress(address).Hex()

	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]*View, 0)
	for _, v := range all {
		if v.Creator == creator {
			views = append(views, v)
		}
	}
	return views, nil
}

func toView(b *models.Bounty) *View {
	contributors := make([]string, 0, len(b.Contributors))
	for _, addr := range b.Contributors {
		contributors = append(contributors, addr.Hex())
	}
	return &View{
		ID:           b.ID,
		AmountEth:    models.WeiToEth(b.Amount).String(),
		Creator:      b.Creator.Hex(),
		Contributors: contributors,
		Distributed:  b.Distributed,
	}
}
