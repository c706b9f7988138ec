// Package posclient implements the POS catalog, order and payment port
// against a Square-compatible REST API, plus an in-memory stand-in.
package posclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/pos"
)

const (
	retrieveObjectPath = "/v2/catalog/object/%s"
	upsertObjectPath   = "/v2/catalog/object"
	searchCatalogPath  = "/v2/catalog/search"
	createOrderPath    = "/v2/orders"
	paymentsPath       = "/v2/payments"

	// maxPaymentPages bounds cursor pagination when scanning payments
	maxPaymentPages = 10
)

// SquareConfig holds the credentials and endpoint of the POS API
type SquareConfig struct {
	BaseURL     string
	AccessToken string
	APIVersion  string
	LocationID  string
	Timeout     time.Duration
}

// Validate validates the configuration
func (c *SquareConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("pos: base URL is required")
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("pos: invalid base URL: %w", err)
	}
	if c.AccessToken == "" {
		return errors.New("pos: access token is required")
	}
	return nil
}

// SquareClient implements pos.Client over HTTPS
type SquareClient struct {
	config     SquareConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSquareClient creates a new POS API client. Outbound requests are traced.
func NewSquareClient(config SquareConfig, logger *zap.Logger) (*SquareClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &SquareClient{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}, nil
}

type squareError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

type squareErrorResponse struct {
	Errors []squareError `json:"errors"`
}

// RetrieveObject fetches one catalog object, optionally with related objects
func (c *SquareClient) RetrieveObject(ctx context.Context, objectID string, includeRelated bool) (*pos.RetrieveResult, error) {
	path := fmt.Sprintf(retrieveObjectPath, url.PathEscape(objectID))
	if includeRelated {
		path += "?include_related_objects=true"
	}

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result pos.RetrieveResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", pos.ErrInvalidReply, err)
	}
	if result.Object.ID == "" {
		return nil, pos.ErrObjectNotFound
	}
	return &result, nil
}

// UpsertObject creates or updates a catalog object
func (c *SquareClient) UpsertObject(ctx context.Context, idempotencyKey string, object pos.CatalogObject) (*pos.UpsertResult, error) {
	body, err := json.Marshal(struct {
		IdempotencyKey string            `json:"idempotency_key"`
		Object         pos.CatalogObject `json:"object"`
	}{idempotencyKey, object})
	if err != nil {
		return nil, fmt.Errorf("pos: failed to marshal upsert: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, upsertObjectPath, body)
	if err != nil {
		return nil, err
	}

	var result pos.UpsertResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", pos.ErrInvalidReply, err)
	}
	return &result, nil
}

type exactQuery struct {
	AttributeName  string `json:"attribute_name"`
	AttributeValue string `json:"attribute_value"`
}

type searchCatalogRequest struct {
	ObjectTypes []pos.ObjectType `json:"object_types"`
	Query       struct {
		ExactQuery exactQuery `json:"exact_query"`
	} `json:"query"`
	Limit int `json:"limit,omitempty"`
}

type searchCatalogResponse struct {
	Objects []pos.CatalogObject `json:"objects"`
}

// SearchCategoryByName returns the category named name, or pos.ErrObjectNotFound
func (c *SquareClient) SearchCategoryByName(ctx context.Context, name string) (*pos.CatalogObject, error) {
	req := searchCatalogRequest{
		ObjectTypes: []pos.ObjectType{pos.ObjectTypeCategory},
		Limit:       1,
	}
	req.Query.ExactQuery = exactQuery{AttributeName: "name", AttributeValue: name}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("pos: failed to marshal search: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, searchCatalogPath, body)
	if err != nil {
		return nil, err
	}

	var result searchCatalogResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", pos.ErrInvalidReply, err)
	}
	for i := range result.Objects {
		obj := result.Objects[i]
		if obj.Type == pos.ObjectTypeCategory && !obj.IsDeleted && obj.CategoryData != nil && obj.CategoryData.Name == name {
			return &obj, nil
		}
	}
	return nil, pos.ErrObjectNotFound
}

// CreateOrder creates a POS order at the configured location
func (c *SquareClient) CreateOrder(ctx context.Context, idempotencyKey string, order pos.Order) (*pos.Order, error) {
	if order.LocationID == "" {
		order.LocationID = c.config.LocationID
	}
	body, err := json.Marshal(struct {
		IdempotencyKey string    `json:"idempotency_key"`
		Order          pos.Order `json:"order"`
	}{idempotencyKey, order})
	if err != nil {
		return nil, fmt.Errorf("pos: failed to marshal order: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, createOrderPath, body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Order pos.Order `json:"order"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", pos.ErrInvalidReply, err)
	}
	return &result.Order, nil
}

// CreatePayment creates a payment against an order
func (c *SquareClient) CreatePayment(ctx context.Context, idempotencyKey string, payment pos.Payment) (*pos.Payment, error) {
	if payment.LocationID == "" {
		payment.LocationID = c.config.LocationID
	}
	body, err := json.Marshal(struct {
		IdempotencyKey string `json:"idempotency_key"`
		pos.Payment
	}{idempotencyKey, payment})
	if err != nil {
		return nil, fmt.Errorf("pos: failed to marshal payment: %w", err)
	}

	respBody, err := c.doRequest(ctx, http.MethodPost, paymentsPath, body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Payment pos.Payment `json:"payment"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", pos.ErrInvalidReply, err)
	}
	return &result.Payment, nil
}

// ListPaymentsByReference lists the location's payments whose reference id
// equals referenceID. The API has no server-side reference filter, so pages
// are scanned and filtered here.
func (c *SquareClient) ListPaymentsByReference(ctx context.Context, referenceID string) ([]pos.Payment, error) {
	var (
		matched []pos.Payment
		cursor  string
	)
	for page := 0; page < maxPaymentPages; page++ {
		q := url.Values{}
		if c.config.LocationID != "" {
			q.Set("location_id", c.config.LocationID)
		}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		path := paymentsPath
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return nil, err
		}

		var result struct {
			Payments []pos.Payment `json:"payments"`
			Cursor   string        `json:"cursor"`
		}
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, fmt.Errorf("%w: %v", pos.ErrInvalidReply, err)
		}
		for _, p := range result.Payments {
			if p.ReferenceID == referenceID {
				matched = append(matched, p)
			}
		}
		if result.Cursor == "" {
			return matched, nil
		}
		cursor = result.Cursor
	}

	c.logger.Warn("Payment scan stopped at page limit",
		zap.String("reference_id", referenceID),
		zap.Int("pages", maxPaymentPages),
	)
	return matched, nil
}

// doRequest performs an authenticated HTTP request to the POS API
func (c *SquareClient) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("pos: failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	if c.config.APIVersion != "" {
		req.Header.Set("Square-Version", c.config.APIVersion)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pos.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pos: failed to read response: %w", err)
	}

	c.logger.Debug("POS request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode == http.StatusNotFound {
		return nil, pos.ErrObjectNotFound
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: HTTP %d", pos.ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var errResp squareErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && len(errResp.Errors) > 0 {
			first := errResp.Errors[0]
			return nil, fmt.Errorf("%w: %s - %s", pos.ErrRequestFailed, first.Code, first.Detail)
		}
		return nil, fmt.Errorf("%w: HTTP %d", pos.ErrRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

var _ pos.Client = (*SquareClient)(nil)
