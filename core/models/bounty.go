package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Bounty mirrors the contract's escrow record. Ids are assigned by the
// contract and increase monotonically; the distributed flag only ever flips
// from false to true.
type Bounty struct {
	ID           uint64           `json:"id"`
	Amount       *big.Int         `json:"-"`
	Creator      common.Address   `json:"creator"`
	Contributors []common.Address `json:"contributors"`
	Distributed  bool             `json:"distributed"`
}

// BountyCreateResult reports a funded escrow
type BountyCreateResult struct {
	BountyID uint64 `json:"bounty_id"`
	TxHash   string `json:"tx_hash"`
	GasUsed  uint64 `json:"gas_used"`
}
