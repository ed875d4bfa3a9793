package models

import (
	"github.com/ethereum/go-ethereum/common"
)

// NFTMetadata mirrors the on-chain metadata record for a minted dataset.
// The chain owns this data; this system only reads it after the mint.
type NFTMetadata struct {
	TokenID       uint64         `json:"token_id"`
	SourceURL     string         `json:"source_url"`
	ContentHash   string         `json:"content_hash"`
	ContentLink   string         `json:"content_link"`
	EmbedVectorID string         `json:"embed_vector_id"`
	CreatedAt     int64          `json:"created_at"`
	Tags          []string       `json:"tags"`
	Owner         common.Address `json:"owner"`
}

// MintRequest carries the fields submitted to the registry contract's mint
type MintRequest struct {
	SourceURL     string   `json:"source_url"`
	ContentHash   string   `json:"content_hash"`
	ContentLink   string   `json:"content_link"`
	EmbedVectorID string   `json:"embed_vector_id"`
	CreatedAt     int64    `json:"created_at"`
	Tags          []string `json:"tags"`
	TokenURI      string   `json:"token_uri"`
}

// MintResult reports the outcome of a mint transaction
type MintResult struct {
	TokenID uint64 `json:"token_id"`
	TxHash  string `json:"tx_hash"`
	GasUsed uint64 `json:"gas_used"`
}

// TxResult reports the outcome of a generic mutating contract call
type TxResult struct {
	TxHash  string `json:"tx_hash"`
	GasUsed uint64 `json:"gas_used"`
}

// DonationResult reports a completed donation. The balance delta is read
// immediately around the transaction; concurrent external transfers to the
// creator show up as noise in the delta and are not corrected for.
type DonationResult struct {
	TxResult
	Creator       common.Address `json:"creator"`
	BalanceBefore string         `json:"balance_before_eth"`
	BalanceAfter  string         `json:"balance_after_eth"`
	Received      string         `json:"received_eth"`
}
