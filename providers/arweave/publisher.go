// Package arweave publishes payloads to the permanent storage network. Uploads
// are data transactions carrying the caller's tag set; the network is
// append-only, so re-uploading identical bytes can only add a location.
package arweave

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/everFinance/goar"
	"github.com/everFinance/goar/types"
	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"dataset-registry/core/apperr"
	"dataset-registry/core/models"
)

var log = logrus.WithField("component", "arweave")

const fetchTimeout = 15 * time.Second

// Publisher uploads byte payloads and reads them back through the gateway
type Publisher struct {
	wallet  *goar.Wallet
	gateway string
	httpc   *http.Client
}

// NewPublisher loads the signing wallet and binds it to a gateway node
func NewPublisher(walletPath, gateway string) (*Publisher, error) {
	gateway = strings.TrimRight(gateway, "/")

	wallet, err := goar.NewWalletFromPath(walletPath, gateway)
	if err != nil {
		return nil, xerrors.Errorf("load arweave wallet from %s: %w", walletPath, err)
	}

	return &Publisher{
		wallet:  wallet,
		gateway: gateway,
		httpc:   &http.Client{Timeout: fetchTimeout},
	}, nil
}

// Publish uploads payload with the given tags and returns the permanent
// retrieval URL plus the transaction id.
func (p *Publisher) Publish(ctx context.Context, payload []byte, tags []models.Tag) (string, string, error) {
	arTags := make([]types.Tag, 0, len(tags))
	for _, t := range tags {
		arTags = append(arTags, types.Tag{Name: t.Name, Value: t.Value})
	}

	tx, err := p.wallet.SendData(payload, arTags)
	if err != nil {
		return "", "", apperr.Wrap(apperr.Upstream, "storage publish failed", err)
	}

	url := p.gateway + "/" + tx.ID
	log.WithFields(logrus.Fields{"tx": tx.ID, "bytes": len(payload)}).Info("payload published")
	return url, tx.ID, nil
}

// Fetch reads the bytes behind a retrieval URL. Used by the round-trip
// integrity check and the best-effort metadata enrichment.
func (p *Publisher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.Errorf("build fetch request: %w", err)
	}

	resp, err := p.httpc.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Upstream, "storage fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.Upstream, "storage fetch returned status "+resp.Status)
	}
	return io.ReadAll(resp.Body)
}
