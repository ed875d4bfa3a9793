// Package registry is the typed facade over the on-chain registry contract.
// Mutating calls validate inputs, submit a signed transaction, wait for
// inclusion and parse the emitted event; reverts come back as tagged errors.
package registry

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"dataset-registry/core/apperr"
	"dataset-registry/core/models"
)

var log = logrus.WithField("component", "registry")

var (
	maxDonationWei = models.EthToWei(decimal.NewFromInt(10))
	maxBountyWei   = models.EthToWei(decimal.NewFromInt(100))
)

// Client submits transactions and read calls against the registry contract.
// The chain serializes transactions per signing key by nonce; no local queue
// is kept.
type Client struct {
	eth      *ethclient.Client
	contract abi.ABI
	addr     common.Address
	key      *ecdsa.PrivateKey
	from     common.Address
	chainID  *big.Int
}

// Dial connects to the RPC endpoint and binds the signing key to the deployed
// contract address.
func Dial(ctx context.Context, rpcURL, contractAddr, privateKeyHex string) (*Client, error) {
	if !common.IsHexAddress(contractAddr) {
		return nil, apperr.Invalid("invalid contract address", "contract_address")
	}

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, xerrors.Errorf("parse registry abi: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, xerrors.Errorf("parse signing key: %w", err)
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerrors.Errorf("dial rpc endpoint: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		return nil, xerrors.Errorf("read chain id: %w", err)
	}

	return &Client{
		eth:      eth,
		contract: parsed,
		addr:     common.HexToAddress(contractAddr),
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
	}, nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	c.eth.Close()
}

// Signer returns the address transactions are sent from
func (c *Client) Signer() common.Address {
	return c.from
}

// Mint registers a new metadata NFT and returns the assigned token id
func (c *Client) Mint(ctx context.Context, req models.MintRequest) (*models.MintResult, error) {
	var missing []string
	if strings.TrimSpace(req.ContentHash) == "" {
		missing = append(missing, "content_hash")
	}
	if strings.TrimSpace(req.ContentLink) == "" {
		missing = append(missing, "content_link")
	}
	if strings.TrimSpace(req.TokenURI) == "" {
		missing = append(missing, "token_uri")
	}
	if len(missing) > 0 {
		return nil, apperr.Invalid("mint request is missing required fields", missing...)
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	receipt, err := c.transact(ctx, "mintMetadataNFT", nil,
		req.SourceURL, req.ContentHash, req.ContentLink, req.EmbedVectorID,
		big.NewInt(req.CreatedAt), tags, req.TokenURI)
	if err != nil {
		return nil, err
	}

	tokenID, err := c.eventID(receipt, "MetadataMinted")
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"token": tokenID, "tx": receipt.TxHash.Hex()}).Info("metadata NFT minted")
	return &models.MintResult{
		TokenID: tokenID,
		TxHash:  receipt.TxHash.Hex(),
		GasUsed: receipt.GasUsed,
	}, nil
}

// GetMetadata reads one token's on-chain metadata record
func (c *Client) GetMetadata(ctx context.Context, tokenID uint64) (*models.NFTMetadata, error) {
	out, err := c.call(ctx, "getMetadata", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return nil, err
	}

	meta := &models.NFTMetadata{TokenID: tokenID}
	meta.SourceURL, _ = out[0].(string)
	meta.ContentHash, _ = out[1].(string)
	meta.ContentLink, _ = out[2].(string)
	meta.EmbedVectorID, _ = out[3].(string)
	if createdAt, ok := out[4].(*big.Int); ok {
		meta.CreatedAt = createdAt.Int64()
	}
	meta.Tags, _ = out[5].([]string)
	meta.Owner, _ = out[6].(common.Address)
	return meta, nil
}

// GetMetadataByCreator lists the token ids minted by an address. An address
// with no tokens yields an empty slice, not an error.
func (c *Client) GetMetadataByCreator(ctx context.Context, creator common.Address) ([]uint64, error) {
	out, err := c.call(ctx, "getMetadataByCreator", creator)
	if err != nil {
		return nil, err
	}

	raw, _ := out[0].([]*big.Int)
	ids := make([]uint64, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, id.Uint64())
	}
	return ids, nil
}

// OwnerOf reads a token's current owner; a revert means the token is absent
func (c *Client) OwnerOf(ctx context.Context, tokenID uint64) (common.Address, error) {
	out, err := c.call(ctx, "ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return common.Address{}, err
	}
	owner, _ := out[0].(common.Address)
	return owner, nil
}

// TokenURI reads a token's metadata document URI
func (c *Client) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	out, err := c.call(ctx, "tokenURI", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return "", err
	}
	uri, _ := out[0].(string)
	return uri, nil
}

// Donate sends amountWei to the token's creator. The token is probed first so
// a missing token is reported before any transaction is submitted. The
// creator's balance is read immediately before and after the transaction to
// report the actually received amount.
func (c *Client) Donate(ctx context.Context, tokenID uint64, amountWei *big.Int) (*models.DonationResult, error) {
	if amountWei == nil || amountWei.Sign() <= 0 {
		return nil, apperr.Invalid("donation amount must be greater than zero", "amount")
	}
	if amountWei.Cmp(maxDonationWei) > 0 {
		return nil, apperr.Invalid("donation amount must not exceed 10 ETH", "amount")
	}

	owner, err := c.OwnerOf(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	before, err := c.eth.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "read creator balance", err)
	}

	receipt, err := c.transact(ctx, "donateToCreator", amountWei, new(big.Int).SetUint64(tokenID))
	if err != nil {
		return nil, err
	}

	after, err := c.eth.BalanceAt(ctx, owner, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "read creator balance", err)
	}

	received := new(big.Int).Sub(after, before)
	return &models.DonationResult{
		TxResult:      models.TxResult{TxHash: receipt.TxHash.Hex(), GasUsed: receipt.GasUsed},
		Creator:       owner,
		BalanceBefore: models.WeiToEth(before).String(),
		BalanceAfter:  models.WeiToEth(after).String(),
		Received:      models.WeiToEth(received).String(),
	}, nil
}

// CreateBounty funds a new escrow and returns the contract-assigned bounty id
func (c *Client) CreateBounty(ctx context.Context, amountWei *big.Int) (*models.BountyCreateResult, error) {
	if amountWei == nil || amountWei.Sign() <= 0 {
		return nil, apperr.Invalid("bounty amount must be greater than zero", "amount")
	}
	if amountWei.Cmp(maxBountyWei) > 0 {
		return nil, apperr.Invalid("bounty amount must not exceed 100 ETH", "amount")
	}

	receipt, err := c.transact(ctx, "createBounty", amountWei)
	if err != nil {
		return nil, err
	}

	bountyID, err := c.eventID(receipt, "BountyCreated")
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"bounty": bountyID, "tx": receipt.TxHash.Hex()}).Info("bounty created")
	return &models.BountyCreateResult{
		BountyID: bountyID,
		TxHash:   receipt.TxHash.Hex(),
		GasUsed:  receipt.GasUsed,
	}, nil
}

// AddContributor records a contributor on an active bounty (admin-only on chain)
func (c *Client) AddContributor(ctx context.Context, bountyID uint64, contributor common.Address) (*models.TxResult, error) {
	receipt, err := c.transact(ctx, "addContributor", nil, new(big.Int).SetUint64(bountyID), contributor)
	if err != nil {
		return nil, err
	}
	return &models.TxResult{TxHash: receipt.TxHash.Hex(), GasUsed: receipt.GasUsed}, nil
}

// DistributeBounty pays the escrow out to the bounty's contributors and flips
// the distributed flag permanently (admin-only on chain).
func (c *Client) DistributeBounty(ctx context.Context, bountyID uint64) (*models.TxResult, error) {
	receipt, err := c.transact(ctx, "distributeBounty", nil, new(big.Int).SetUint64(bountyID))
	if err != nil {
		return nil, err
	}
	return &models.TxResult{TxHash: receipt.TxHash.Hex(), GasUsed: receipt.GasUsed}, nil
}

// GetBounty reads one bounty's escrow record
func (c *Client) GetBounty(ctx context.Context, bountyID uint64) (*models.Bounty, error) {
	out, err := c.call(ctx, "getBounty", new(big.Int).SetUint64(bountyID))
	if err != nil {
		return nil, err
	}

	bounty := &models.Bounty{ID: bountyID}
	bounty.Amount, _ = out[0].(*big.Int)
	bounty.Creator, _ = out[1].(common.Address)
	bounty.Contributors, _ = out[2].([]common.Address)
	bounty.Distributed, _ = out[3].(bool)
	return bounty, nil
}

// NextBountyID reads the contract's bounty counter. Ids below it exist; this
// is the enumeration method, not a scan-until-revert probe.
func (c *Client) NextBountyID(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, "nextBountyId")
	if err != nil {
		return 0, err
	}
	next, _ := out[0].(*big.Int)
	if next == nil {
		return 0, xerrors.New("nextBountyId returned no value")
	}
	return next.Uint64(), nil
}

// call executes a read-only contract call and unpacks its outputs
func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := c.contract.Pack(method, args...)
	if err != nil {
		return nil, xerrors.Errorf("pack %s: %w", method, err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.addr, Data: data}, nil)
	if err != nil {
		return nil, classifyRevert(method, err)
	}
	// some nodes signal reverts on view calls with empty return data
	if len(raw) == 0 {
		return nil, apperr.New(apperr.NotFound, method+" reverted")
	}

	out, err := c.contract.Unpack(method, raw)
	if err != nil {
		return nil, xerrors.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

// transact packs, signs, submits and waits for one mutating call. Gas is
// estimated up front, which also surfaces reverts before anything is sent.
func (c *Client) transact(ctx context.Context, method string, value *big.Int, args ...interface{}) (*types.Receipt, error) {
	data, err := c.contract.Pack(method, args...)
	if err != nil {
		return nil, xerrors.Errorf("pack %s: %w", method, err)
	}
	if value == nil {
		value = new(big.Int)
	}

	msg := ethereum.CallMsg{From: c.from, To: &c.addr, Value: value, Data: data}
	gas, err := c.eth.EstimateGas(ctx, msg)
	if err != nil {
		return nil, classifyRevert(method, err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "read account nonce", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "read gas price", err)
	}

	tx := types.NewTransaction(nonce, c.addr, value, gas+gas/5, gasPrice, data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return nil, xerrors.Errorf("sign %s transaction: %w", method, err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, classifyRevert(method, err)
	}

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "wait for "+method+" inclusion", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, apperr.New(apperr.Upstream, method+" transaction reverted on chain")
	}
	return receipt, nil
}

// eventID extracts the uint256 id from the first indexed topic of the named
// event in a receipt.
func (c *Client) eventID(receipt *types.Receipt, event string) (uint64, error) {
	ev, ok := c.contract.Events[event]
	if !ok {
		return 0, xerrors.Errorf("unknown event %s", event)
	}
	for _, lg := range receipt.Logs {
		if len(lg.Topics) > 1 && lg.Topics[0] == ev.ID {
			return new(big.Int).SetBytes(lg.Topics[1].Bytes()).Uint64(), nil
		}
	}
	return 0, apperr.New(apperr.Upstream, event+" event missing from receipt")
}
