package shippo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jordanvales/threadswap-backend/pkg/config"
	"github.com/jordanvales/threadswap-backend/pkg/types"
)

// TransactionStatusSuccess is the only upstream status that yields a usable label.
const TransactionStatusSuccess = "SUCCESS"

var errAPIKeyRequired = errors.New("shippo api key is required")

// Client is a thin HTTP client for the shipping provider's shipments and
// transactions resources.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient builds a provider client from configuration.
func NewClient(cfg config.ShippoConfig) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.goshippo.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// ShipmentRequest is the payload for creating a shipment and quoting rates.
// Parcel dimensions are numeric on the wire, never string-formatted.
type ShipmentRequest struct {
	AddressFrom types.Address `json:"address_from"`
	AddressTo   types.Address `json:"address_to"`
	Parcel      types.Parcel  `json:"parcel"`
}

// Rate is one carrier/service quote attached to a shipment.
type Rate struct {
	ObjectID      string `json:"object_id"`
	Provider      string `json:"provider"`
	ServiceLevel  string `json:"servicelevel_name"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	EstimatedDays int    `json:"estimated_days"`
}

// AmountCents parses the provider's decimal-string amount into minor units.
func (r Rate) AmountCents() (int64, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return 0, fmt.Errorf("parse rate amount %q: %w", r.Amount, err)
	}
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart(), nil
}

// Shipment is the provider's quote response.
type Shipment struct {
	ObjectID string `json:"object_id"`
	Status   string `json:"status"`
	Rates    []Rate `json:"rates"`
}

// Transaction is the provider's label purchase response.
type Transaction struct {
	ObjectID       string   `json:"object_id"`
	Status         string   `json:"status"`
	TrackingNumber string   `json:"tracking_number"`
	LabelURL       string   `json:"label_url"`
	Rate           Rate     `json:"rate"`
	Messages       []string `json:"messages,omitempty"`
}

type transactionRequest struct {
	Rate          string `json:"rate"`
	LabelFileType string `json:"label_file_type"`
	Async         bool   `json:"async"`
}

// CreateShipment creates a shipment upstream and returns its rate quotes.
func (c *Client) CreateShipment(ctx context.Context, req ShipmentRequest) (*Shipment, error) {
	var shipment Shipment
	if err := c.post(ctx, "/shipments", req, &shipment); err != nil {
		return nil, err
	}
	return &shipment, nil
}

// PurchaseTransaction buys a label for the given rate.
func (c *Client) PurchaseTransaction(ctx context.Context, rateID string) (*Transaction, error) {
	if strings.TrimSpace(rateID) == "" {
		return nil, errors.New("rate id is required")
	}
	req := transactionRequest{
		Rate:          rateID,
		LabelFileType: "PDF",
		Async:         false,
	}
	var txn Transaction
	if err := c.post(ctx, "/transactions", req, &txn); err != nil {
		return nil, err
	}
	return &txn, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "ShippoToken "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("provider %s returned %d: %s", path, resp.StatusCode, truncate(raw, 512))
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
