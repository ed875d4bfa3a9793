package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataset-registry/api/rest/routes"
	"dataset-registry/core/apperr"
	"dataset-registry/core/bounty"
	"dataset-registry/core/models"
	"dataset-registry/core/pipeline"
)

// fakeBackend implements the pipeline and bounty registry surfaces plus the
// generator, publisher and ledger, so requests run through the real service
// and manager code.
type fakeBackend struct {
	mu         sync.Mutex
	stored     map[string][]byte
	storeN     int
	tokens     map[uint64]*models.NFTMetadata
	uris       map[uint64]string
	nextToken  uint64
	bounties   map[uint64]*models.Bounty
	nextBounty uint64
	entries    []models.HistoryEntry
	genFail    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		stored:     make(map[string][]byte),
		tokens:     make(map[uint64]*models.NFTMetadata),
		uris:       make(map[uint64]string),
		nextToken:  1,
		bounties:   make(map[uint64]*models.Bounty),
		nextBounty: 1,
	}
}

// generator

func (f *fakeBackend) Generate(ctx context.Context, inputText string, sampleSize int) (*models.DatasetRecord, error) {
	if inputText == "" {
		return nil, apperr.Invalid("input text is required", "input_text")
	}
	if sampleSize < 1 {
		return nil, apperr.Invalid("sample size must be between 1 and 50", "sample_size")
	}
	if f.genFail {
		return nil, apperr.New(apperr.Upstream, "generation failed, no usable results")
	}
	return &models.DatasetRecord{
		InputText: inputText,
		Rows: []models.GeneratedRow{{
			SourceText: inputText,
			Payload:    models.SyntheticPayload{Question: "q", Answer: "a", Category: "c"},
			Status:     models.RowStatusVerified,
		}},
	}, nil
}

func (f *fakeBackend) TestPrompt(ctx context.Context, inputText string) (*models.PromptResult, error) {
	if inputText == "" {
		return nil, apperr.Invalid("input text is required", "input_text")
	}
	return &models.PromptResult{Raw: `{"question":"q","answer":"a","category":"c"}`}, nil
}

// publisher

func (f *fakeBackend) Publish(ctx context.Context, payload []byte, tags []models.Tag) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.storeN++
	url := "https://store.test/" + string(rune('0'+f.storeN))
	f.stored[url] = append([]byte(nil), payload...)
	return url, "tx", nil
}

func (f *fakeBackend) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.stored[url]
	if !ok {
		return nil, apperr.New(apperr.Upstream, "storage fetch returned status 404")
	}
	return payload, nil
}

// registry: NFT side

func (f *fakeBackend) Mint(ctx context.Context, req models.MintRequest) (*models.MintResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextToken
	f.nextToken++
	f.tokens[id] = &models.NFTMetadata{
		TokenID: id, SourceURL: req.SourceURL, ContentHash: req.ContentHash,
		ContentLink: req.ContentLink, CreatedAt: req.CreatedAt, Tags: req.Tags,
		Owner: common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
	f.uris[id] = req.TokenURI
	return &models.MintResult{TokenID: id, TxHash: "0xmint", GasUsed: 100000}, nil
}

func (f *fakeBackend) GetMetadata(ctx context.Context, tokenID uint64) (*models.NFTMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.tokens[tokenID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "token does not exist")
	}
	return meta, nil
}

func (f *fakeBackend) GetMetadataByCreator(ctx context.Context, creator common.Address) ([]uint64, error) {
	return []uint64{}, nil
}

func (f *fakeBackend) OwnerOf(ctx context.Context, tokenID uint64) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.tokens[tokenID]
	if !ok {
		return common.Address{}, apperr.New(apperr.NotFound, "token does not exist")
	}
	return meta.Owner, nil
}

func (f *fakeBackend) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uri, ok := f.uris[tokenID]
	if !ok {
		return "", apperr.New(apperr.NotFound, "token does not exist")
	}
	return uri, nil
}

func (f *fakeBackend) Donate(ctx context.Context, tokenID uint64, amountWei *big.Int) (*models.DonationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.tokens[tokenID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "token does not exist")
	}
	return &models.DonationResult{
		TxResult: models.TxResult{TxHash: "0xdonate", GasUsed: 30000},
		Creator:  meta.Owner,
		Received: models.WeiToEth(amountWei).String(),
	}, nil
}

// registry: bounty side

func (f *fakeBackend) CreateBounty(ctx context.Context, amountWei *big.Int) (*models.BountyCreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextBounty
	f.nextBounty++
	f.bounties[id] = &models.Bounty{
		ID: id, Amount: amountWei,
		Creator: common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
	return &models.BountyCreateResult{BountyID: id, TxHash: "0xabc", GasUsed: 21000}, nil
}

func (f *fakeBackend) AddContributor(ctx context.Context, bountyID uint64, contributor common.Address) (*models.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bounties[bountyID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "bounty does not exist")
	}
	b.Contributors = append(b.Contributors, contributor)
	return &models.TxResult{TxHash: "0xdef", GasUsed: 30000}, nil
}

func (f *fakeBackend) DistributeBounty(ctx context.Context, bountyID uint64) (*models.TxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bounties[bountyID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "bounty does not exist")
	}
	b.Distributed = true
	return &models.TxResult{TxHash: "0xfed", GasUsed: 50000}, nil
}

func (f *fakeBackend) GetBounty(ctx context.Context, bountyID uint64) (*models.Bounty, error) {
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

func (f *fakeBackend) NextBountyID(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextBounty, nil
}

// ledger

func (f *fakeBackend) Append(ctx context.Context, entry models.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeBackend) Recent(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.HistoryEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

func (f *fakeBackend) Close() error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	pipe := pipeline.NewService(backend, backend, backend, backend, 16)
	mgr := bounty.NewManager(backend)

	r := mux.NewRouter()
	routes.SetupRoutes(r, pipe, mgr)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, backend
}

func doJSON(t *testing.T, method, url string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestGenerateValidationError(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := doJSON(t, "POST", ts.URL+"/v1/datasets/generate", map[string]interface{}{
		"input_text":  "",
		"sample_size": 3,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
	assert.Contains(t, body["missing_fields"], "input_text")
}

func TestGenerateAndMintFlow(t *testing.T) {
	ts, backend := newTestServer(t)

	resp, body := doJSON(t, "POST", ts.URL+"/v1/datasets/generate-and-mint", map[string]interface{}{
		"input_text":  "confidential report",
		"sample_size": 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	mint := body["mint"].(map[string]interface{})
	assert.Equal(t, float64(1), mint["token_id"])
	assert.Len(t, backend.entries, 1)

	// the minted token is now readable
	resp, nft := doJSON(t, "GET", ts.URL+"/v1/nft/1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, nft["content_hash"])
}

func TestGenerationUpstreamFailureIs502(t *testing.T) {
	ts, backend := newTestServer(t)
	backend.genFail = true

	resp, body := doJSON(t, "POST", ts.URL+"/v1/datasets/generate", map[string]interface{}{
		"input_text":  "text",
		"sample_size": 3,
	})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "generation failed, no usable results", body["error"])
}

func TestBountyScenario(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, created := doJSON(t, "POST", ts.URL+"/v1/bounties", map[string]interface{}{"amount": "0.5"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1), created["bounty_id"])

	resp, _ = doJSON(t, "POST", ts.URL+"/v1/bounties/1/contributors", map[string]interface{}{
		"address": "0x2222222222222222222222222222222222222222",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, dist := doJSON(t, "POST", ts.URL+"/v1/bounties/1/distribute", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), dist["contributor_count"])
	assert.Equal(t, "0.500000", dist["reward_per_contributor"])

	// terminal: second distribution conflicts
	resp, conflict := doJSON(t, "POST", ts.URL+"/v1/bounties/1/distribute", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "bounty already distributed", conflict["error"])

	resp, view := doJSON(t, "GET", ts.URL+"/v1/bounties/1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, view["distributed"])
}

func TestBountyAmountRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, "POST", ts.URL+"/v1/bounties", map[string]interface{}{"amount": "101"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDonateMissingTokenIs404(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, "POST", ts.URL+"/v1/nft/999/donate", map[string]interface{}{"amount": "0.01"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDonateAmountRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, "POST", ts.URL+"/v1/datasets/generate-and-mint", map[string]interface{}{
		"input_text":  "text",
		"sample_size": 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, "POST", ts.URL+"/v1/nft/1/donate", map[string]interface{}{"amount": "10.5"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, donated := doJSON(t, "POST", ts.URL+"/v1/nft/1/donate", map[string]interface{}{"amount": "10"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "10", donated["received_eth"])
}

func TestHistoryListing(t *testing.T) {
	ts, _ := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp, _ := doJSON(t, "POST", ts.URL+"/v1/datasets/generate", map[string]interface{}{
			"input_text":  "text",
			"sample_size": 1,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := doJSON(t, "GET", ts.URL+"/v1/history", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 2)
}

func TestMarketplaceListing(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, "POST", ts.URL+"/v1/datasets/generate-and-mint", map[string]interface{}{
		"input_text":  "text",
		"sample_size": 1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, "GET", ts.URL+"/v1/marketplace", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 1)
}

func TestBadPathParameter(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doJSON(t, "GET", ts.URL+"/v1/bounties/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, "POST", ts.URL+"/v1/bounties/0/distribute", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
