// Package pipeline sequences the provenance flow: generate rows, canonicalize
// and hash the verified subset, publish data then metadata to durable storage,
// optionally mint, then append history. Each run is strictly sequential; a
// failed publish stops the run before anything is minted.
package pipeline

import (
	"context"
	"encoding/json"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"dataset-registry/core/apperr"
	"dataset-registry/core/contentaddr"
	"dataset-registry/core/history"
	"dataset-registry/core/models"
)

var log = logrus.WithField("component", "pipeline")

var maxDonationEth = decimal.NewFromInt(10)

const (
	enrichTimeout      = 3 * time.Second
	probeConcurrency   = 8
	defaultProbeLimit  = 256
	defaultPreviewRows = 5
)

// Generator produces dataset records from input text
type Generator interface {
	Generate(ctx context.Context, inputText string, sampleSize int) (*models.DatasetRecord, error)
	TestPrompt(ctx context.Context, inputText string) (*models.PromptResult, error)
}

// Publisher writes payloads to the durable storage network and reads them back
type Publisher interface {
	Publish(ctx context.Context, payload []byte, tags []models.Tag) (url, id string, err error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Registry is the on-chain surface the pipeline consumes
type Registry interface {
	Mint(ctx context.Context, req models.MintRequest) (*models.MintResult, error)
	GetMetadata(ctx context.Context, tokenID uint64) (*models.NFTMetadata, error)
	GetMetadataByCreator(ctx context.Context, creator common.Address) ([]uint64, error)
	OwnerOf(ctx context.Context, tokenID uint64) (common.Address, error)
	TokenURI(ctx context.Context, tokenID uint64) (string, error)
	Donate(ctx context.Context, tokenID uint64, amountWei *big.Int) (*models.DonationResult, error)
}

// Service runs the provenance pipeline
type Service struct {
	gen        Generator
	pub        Publisher
	reg        Registry
	ledger     history.Ledger
	probeLimit uint64
}

// NewService wires the pipeline. probeLimit bounds the marketplace token scan;
// zero uses the default.
func NewService(gen Generator, pub Publisher, reg Registry, ledger history.Ledger, probeLimit uint64) *Service {
	if probeLimit == 0 {
		probeLimit = defaultProbeLimit
	}
	return &Service{gen: gen, pub: pub, reg: reg, ledger: ledger, probeLimit: probeLimit}
}

// publishedDataset is the exact document uploaded to storage. It carries only
// the synthetic payloads: the sensitive source text never leaves the process.
type publishedDataset struct {
	Rows      []models.SyntheticPayload `json:"rows"`
	RowCount  int                       `json:"row_count"`
	CreatedAt time.Time                 `json:"created_at"`
}

// metadataDocument is the off-chain NFT metadata uploaded alongside the data
type metadataDocument struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	ContentHash   string   `json:"content_hash"`
	ContentLink   string   `json:"content_link"`
	EmbedVectorID string   `json:"embed_vector_id"`
	CreatedAt     int64    `json:"created_at"`
	Tags          []string `json:"tags"`
	RowCount      int      `json:"row_count"`
}

// PublishResult is the outcome of a generate+publish run
type PublishResult struct {
	Record        *models.DatasetRecord   `json:"record"`
	Content       models.ContentReference `json:"content"`
	MetadataURL   string                  `json:"metadata_url"`
	EmbedVectorID string                  `json:"embed_vector_id"`
}

// MintOutcome extends a publish result with the on-chain registration
type MintOutcome struct {
	PublishResult
	Mint *models.MintResult `json:"mint"`
}

// GenerateAndPublish generates rows and anchors the verified subset on storage
func (s *Service) GenerateAndPublish(ctx context.Context, inputText string, sampleSize int, tags []models.Tag) (*PublishResult, error) {
	result, err := s.generateAndPublish(ctx, inputText, sampleSize, tags)
	if err != nil {
		return nil, err
	}
	s.appendHistory(ctx, inputText, result, nil)
	return result, nil
}

// GenerateAndMint runs the full pipeline through the on-chain mint
func (s *Service) GenerateAndMint(ctx context.Context, inputText string, sampleSize int, tags []models.Tag) (*MintOutcome, error) {
	result, err := s.generateAndPublish(ctx, inputText, sampleSize, tags)
	if err != nil {
		return nil, err
	}

	mint, err := s.reg.Mint(ctx, models.MintRequest{
		SourceURL:     result.Content.URL,
		ContentHash:   result.Content.ContentHash,
		ContentLink:   result.Content.URL,
		EmbedVectorID: result.EmbedVectorID,
		CreatedAt:     result.Record.CreatedAt.Unix(),
		Tags:          tagValues(result.Content.Tags),
		TokenURI:      result.MetadataURL,
	})
	if err != nil {
		return nil, err
	}

	s.appendHistory(ctx, inputText, result, &mint.TokenID)
	return &MintOutcome{PublishResult: *result, Mint: mint}, nil
}

func (s *Service) generateAndPublish(ctx context.Context, inputText string, sampleSize int, tags []models.Tag) (*PublishResult, error) {
	record, err := s.gen.Generate(ctx, inputText, sampleSize)
	if err != nil {
		return nil, err
	}

	verified := record.VerifiedRows()
	payloads := make([]models.SyntheticPayload, 0, len(verified))
	for _, row := range verified {
		payloads = append(payloads, row.Payload)
	}

	payload, err := contentaddr.Canonical(publishedDataset{
		Rows:      payloads,
		RowCount:  len(payloads),
		CreatedAt: record.CreatedAt,
	})
	if err != nil {
		return nil, err
	}
	hash := contentaddr.Digest(payload)

	uploadTags := withStandardTags(tags, hash)
	dataURL, _, err := s.pub.Publish(ctx, payload, uploadTags)
	if err != nil {
		return nil, err
	}

	embedVectorID := uuid.NewString()
	metaPayload, err := contentaddr.Canonical(metadataDocument{
		Name:          "Synthetic dataset " + hash[:10],
		Description:   "Synthetic dataset anchored at " + dataURL,
		ContentHash:   hash,
		ContentLink:   dataURL,
		EmbedVectorID: embedVectorID,
		CreatedAt:     record.CreatedAt.Unix(),
		Tags:          tagValues(uploadTags),
		RowCount:      len(payloads),
	})
	if err != nil {
		return nil, err
	}

	// metadata upload strictly follows a successful data upload
	metaURL, _, err := s.pub.Publish(ctx, metaPayload, withStandardTags(nil, contentaddr.Digest(metaPayload)))
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{"rows": len(payloads), "hash": hash}).Info("dataset published")
	return &PublishResult{
		Record: record,
		Content: models.ContentReference{
			URL:         dataURL,
			ContentHash: hash,
			Tags:        uploadTags,
		},
		MetadataURL:   metaURL,
		EmbedVectorID: embedVectorID,
	}, nil
}

// appendHistory records the run. A ledger failure is logged, not surfaced: the
// published content and any mint already happened and must not be reported as
// failed.
func (s *Service) appendHistory(ctx context.Context, inputText string, result *PublishResult, tokenID *uint64) {
	entry := models.HistoryEntry{
		ID:          uuid.NewString(),
		InputText:   inputText,
		Rows:        result.Record.Rows,
		ContentHash: result.Content.ContentHash,
		ContentURL:  result.Content.URL,
		MetadataURL: result.MetadataURL,
		TokenID:     tokenID,
		CreatedAt:   result.Record.CreatedAt,
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		log.WithError(err).Error("failed to append history entry")
	}
}

// TestPrompt issues a single generation call for prompt debugging
func (s *Service) TestPrompt(ctx context.Context, inputText string) (*models.PromptResult, error) {
	return s.gen.TestPrompt(ctx, inputText)
}

// UploadDataset anchors caller-supplied JSON on storage without generation
func (s *Service) UploadDataset(ctx context.Context, payload json.RawMessage, tags []models.Tag) (*models.ContentReference, error) {
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, apperr.Invalid("payload must be a JSON document", "payload")
	}

	hash := contentaddr.Digest(payload)
	uploadTags := withStandardTags(tags, hash)
	url, _, err := s.pub.Publish(ctx, payload, uploadTags)
	if err != nil {
		return nil, err
	}
	return &models.ContentReference{URL: url, ContentHash: hash, Tags: uploadTags}, nil
}

// MintExisting registers already-published content. CreatedAt defaults to now.
func (s *Service) MintExisting(ctx context.Context, req models.MintRequest) (*models.MintResult, error) {
	if req.CreatedAt == 0 {
		req.CreatedAt = time.Now().Unix()
	}
	if req.EmbedVectorID == "" {
		req.EmbedVectorID = uuid.NewString()
	}
	return s.reg.Mint(ctx, req)
}

// GetNFT reads one token's on-chain metadata
func (s *Service) GetNFT(ctx context.Context, tokenID uint64) (*models.NFTMetadata, error) {
	if tokenID < 1 {
		return nil, apperr.Invalid("token id must be positive", "token_id")
	}
	return s.reg.GetMetadata(ctx, tokenID)
}

// TokensByCreator lists the token ids minted by one address
func (s *Service) TokensByCreator(ctx context.Context, address string) ([]uint64, error) {
	if !common.IsHexAddress(address) {
		return nil, apperr.Invalid("invalid creator address", "address")
	}
	return s.reg.GetMetadataByCreator(ctx, common.HexToAddress(address))
}

// DatasetInfo is the display enrichment attached to donation responses
type DatasetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DonationOutcome is a completed donation plus best-effort display enrichment
type DonationOutcome struct {
	*models.DonationResult
	Dataset DatasetInfo `json:"dataset"`
}

// Donate validates the amount, verifies the token exists before anything is
// submitted, sends the donation and enriches the response best effort.
func (s *Service) Donate(ctx context.Context, tokenID uint64, amount string) (*DonationOutcome, error) {
	if tokenID < 1 {
		return nil, apperr.Invalid("token id must be positive", "token_id")
	}
	d, err := models.ParseEth(amount)
	if err != nil {
		return nil, apperr.Invalid("donation amount is not a number", "amount")
	}
	if d.Sign() <= 0 {
		return nil, apperr.Invalid("donation amount must be greater than zero", "amount")
	}
	if d.GreaterThan(maxDonationEth) {
		return nil, apperr.Invalid("donation amount must not exceed 10 ETH", "amount")
	}

	// existence probe: a missing token is reported before any transaction
	if _, err := s.reg.OwnerOf(ctx, tokenID); err != nil {
		return nil, err
	}

	result, err := s.reg.Donate(ctx, tokenID, models.EthToWei(d))
	if err != nil {
		return nil, err
	}

	return &DonationOutcome{
		DonationResult: result,
		Dataset:        s.enrich(ctx, tokenID),
	}, nil
}

// DonationInfoResult describes a token for a prospective donor
type DonationInfoResult struct {
	TokenID  uint64         `json:"token_id"`
	Owner    common.Address `json:"owner"`
	TokenURI string         `json:"token_uri"`
	Dataset  DatasetInfo    `json:"dataset"`
}

// DonationInfo reports where a donation for the token would go
func (s *Service) DonationInfo(ctx context.Context, tokenID uint64) (*DonationInfoResult, error) {
	if tokenID < 1 {
		return nil, apperr.Invalid("token id must be positive", "token_id")
	}

	owner, err := s.reg.OwnerOf(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	uri, err := s.reg.TokenURI(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	return &DonationInfoResult{
		TokenID:  tokenID,
		Owner:    owner,
		TokenURI: uri,
		Dataset:  s.enrich(ctx, tokenID),
	}, nil
}

// enrich fetches the token's metadata document best effort. Any failure
// degrades to placeholder fields; the primary operation never depends on it.
func (s *Service) enrich(ctx context.Context, tokenID uint64) DatasetInfo {
	unknown := DatasetInfo{Name: "unknown", Description: "unknown"}

	ectx, cancel := context.WithTimeout(ctx, enrichTimeout)
	defer cancel()

	uri, err := s.reg.TokenURI(ectx, tokenID)
	if err != nil {
		log.WithError(err).WithField("token", tokenID).Warn("metadata enrichment skipped")
		return unknown
	}
	raw, err := s.pub.Fetch(ectx, uri)
	if err != nil {
		log.WithError(err).WithField("token", tokenID).Warn("metadata enrichment skipped")
		return unknown
	}

	var doc metadataDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.WithError(err).WithField("token", tokenID).Warn("metadata enrichment skipped")
		return unknown
	}
	if doc.Name == "" {
		doc.Name = "unknown"
	}
	if doc.Description == "" {
		doc.Description = "unknown"
	}
	return DatasetInfo{Name: doc.Name, Description: doc.Description}
}

// Preview fetches a token's published content, re-verifies its hash and
// returns the first rows.
func (s *Service) Preview(ctx context.Context, tokenID uint64, rows int) ([]models.SyntheticPayload, error) {
	if rows <= 0 {
		rows = defaultPreviewRows
	}

	meta, err := s.GetNFT(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	raw, err := s.pub.Fetch(ctx, meta.ContentLink)
	if err != nil {
		return nil, err
	}
	if contentaddr.Digest(raw) != meta.ContentHash {
		return nil, apperr.New(apperr.Upstream, "content integrity check failed")
	}

	var doc publishedDataset
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "published content is not a dataset document", err)
	}
	if len(doc.Rows) > rows {
		doc.Rows = doc.Rows[:rows]
	}
	return doc.Rows, nil
}

// Listing is one marketplace entry
type Listing struct {
	TokenID     uint64   `json:"token_id"`
	SourceURL   string   `json:"source_url"`
	ContentHash string   `json:"content_hash"`
	ContentLink string   `json:"content_link"`
	CreatedAt   int64    `json:"created_at"`
	Tags        []string `json:"tags"`
	Owner       string   `json:"owner"`
}

// Marketplace lists minted tokens. The contract exposes no total count, so
// existence probes fan out over the id range with bounded concurrency, capped
// by the configured probe limit.
func (s *Service) Marketplace(ctx context.Context) ([]Listing, error) {
	var mu sync.Mutex
	listings := make([]Listing, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for id := uint64(1); id <= s.probeLimit; id++ {
		id := id
		g.Go(func() error {
			meta, err := s.reg.GetMetadata(gctx, id)
			if err != nil {
				if apperr.IsKind(err, apperr.NotFound) {
					return nil
				}
				return err
			}
			mu.Lock()
			listings = append(listings, Listing{
				TokenID:     meta.TokenID,
				SourceURL:   meta.SourceURL,
				ContentHash: meta.ContentHash,
				ContentLink: meta.ContentLink,
				CreatedAt:   meta.CreatedAt,
				Tags:        meta.Tags,
				Owner:       meta.Owner.Hex(),
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(listings, func(i, j int) bool { return listings[i].TokenID < listings[j].TokenID })
	return listings, nil
}

// History returns the most recent ledger entries
func (s *Service) History(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	return s.ledger.Recent(ctx, limit)
}

func withStandardTags(tags []models.Tag, hash string) []models.Tag {
	merged := []models.Tag{
		{Name: "App-Name", Value: "dataset-registry"},
		{Name: "Content-Type", Value: "application/json"},
		{Name: "Content-Hash", Value: hash},
	}
	return append(merged, tags...)
}

func tagValues(tags []models.Tag) []string {
	values := make([]string, 0, len(tags))
	for _, t := range tags {
		values = append(values, t.Name+":"+t.Value)
	}
	return values
}
