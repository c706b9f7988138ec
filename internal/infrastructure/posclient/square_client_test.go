package posclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomtab/backend/internal/domain/pos"
)

func newTestSquareClient(t *testing.T, handler http.HandlerFunc) *SquareClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewSquareClient(SquareConfig{
		BaseURL:     server.URL,
		AccessToken: "test-token",
		APIVersion:  "2024-01-18",
		LocationID:  "LOC1",
	}, nil)
	require.NoError(t, err)
	return client
}

func TestSquareConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  SquareConfig
		wantErr bool
	}{
		{"valid", SquareConfig{BaseURL: "https://pos.example.com", AccessToken: "tok"}, false},
		{"missing base URL", SquareConfig{AccessToken: "tok"}, true},
		{"missing token", SquareConfig{BaseURL: "https://pos.example.com"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSquareClient_RetrieveObject(t *testing.T) {
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/catalog/object/VAR1", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("include_related_objects"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-01-18", r.Header.Get("Square-Version"))

		_, _ = io.WriteString(w, `{
			"object": {"type": "ITEM_VARIATION", "id": "VAR1", "version": 3,
				"item_variation_data": {"item_id": "ITEM1", "name": "Tab", "pricing_type": "FIXED_PRICING",
					"price_money": {"amount": 20000, "currency": "JPY"}}},
			"related_objects": [{"type": "ITEM", "id": "ITEM1", "item_data": {"name": "fg#11-2501"}}]
		}`)
	})

	result, err := client.RetrieveObject(context.Background(), "VAR1", true)
	require.NoError(t, err)

	price, ok := result.Object.VariationPrice()
	require.True(t, ok)
	assert.Equal(t, int64(20000), price.Amount)
	assert.Equal(t, "JPY", price.Currency)

	parent, ok := result.Related("ITEM1")
	require.True(t, ok)
	assert.Equal(t, "fg#11-2501", parent.ItemData.Name)
}

func TestSquareClient_RetrieveObject_NotFound(t *testing.T) {
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"errors":[{"category":"INVALID_REQUEST_ERROR","code":"NOT_FOUND","detail":"Object not found"}]}`)
	})

	_, err := client.RetrieveObject(context.Background(), "missing", true)
	assert.ErrorIs(t, err, pos.ErrObjectNotFound)
}

func TestSquareClient_UpsertObject(t *testing.T) {
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/catalog/object", r.URL.Path)

		var body struct {
			IdempotencyKey string            `json:"idempotency_key"`
			Object         pos.CatalogObject `json:"object"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key-1", body.IdempotencyKey)
		assert.Equal(t, "#shadow-item", body.Object.ID)
		require.Len(t, body.Object.ItemData.Variations, 1)

		_, _ = io.WriteString(w, `{
			"catalog_object": {"type": "ITEM", "id": "ITEM9"},
			"id_mappings": [
				{"client_object_id": "#shadow-item", "object_id": "ITEM9"},
				{"client_object_id": "#shadow-variation", "object_id": "VAR9"}
			]
		}`)
	})

	result, err := client.UpsertObject(context.Background(), "key-1", pos.CatalogObject{
		Type: pos.ObjectTypeItem,
		ID:   "#shadow-item",
		ItemData: &pos.ItemData{
			Name: "fg#11-2501",
			Variations: []pos.CatalogObject{{
				Type:              pos.ObjectTypeItemVariation,
				ID:                "#shadow-variation",
				ItemVariationData: &pos.ItemVariationData{ItemID: "#shadow-item", PricingType: pos.PricingFixed},
			}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "VAR9", result.ResolveID("#shadow-variation"))
	assert.Equal(t, "ITEM9", result.ResolveID("#shadow-item"))
	assert.Equal(t, "OTHER", result.ResolveID("OTHER"))
}

func TestSquareClient_SearchCategoryByName(t *testing.T) {
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/catalog/search", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []any{"CATEGORY"}, body["object_types"])

		_, _ = io.WriteString(w, `{"objects":[{"type":"CATEGORY","id":"CAT1","category_data":{"name":"Room Tabs"}}]}`)
	})

	cat, err := client.SearchCategoryByName(context.Background(), "Room Tabs")
	require.NoError(t, err)
	assert.Equal(t, "CAT1", cat.ID)

	_, err = client.SearchCategoryByName(context.Background(), "Other")
	assert.ErrorIs(t, err, pos.ErrObjectNotFound)
}

func TestSquareClient_ListPaymentsByReference_Paginates(t *testing.T) {
	calls := 0
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "LOC1", r.URL.Query().Get("location_id"))
		if r.URL.Query().Get("cursor") == "" {
			_, _ = io.WriteString(w, `{"payments":[{"id":"P1","reference_id":"S1","amount_money":{"amount":100,"currency":"JPY"}},
				{"id":"P2","reference_id":"S2","amount_money":{"amount":200,"currency":"JPY"}}],"cursor":"next"}`)
			return
		}
		_, _ = io.WriteString(w, `{"payments":[{"id":"P3","reference_id":"S1","amount_money":{"amount":300,"currency":"JPY"}}]}`)
	})

	payments, err := client.ListPaymentsByReference(context.Background(), "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, payments, 2)
	assert.Equal(t, "P1", payments[0].ID)
	assert.Equal(t, "P3", payments[1].ID)
}

func TestSquareClient_CreatePayment_FlattensBody(t *testing.T) {
	client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "key-2", body["idempotency_key"])
		assert.Equal(t, "S1", body["reference_id"])
		assert.Equal(t, "LOC1", body["location_id"])

		_, _ = io.WriteString(w, `{"payment":{"id":"P9","reference_id":"S1","status":"COMPLETED","amount_money":{"amount":500,"currency":"JPY"}}}`)
	})

	payment, err := client.CreatePayment(context.Background(), "key-2", pos.Payment{
		SourceID:    "EXTERNAL",
		ReferenceID: "S1",
		AmountMoney: pos.Money{Amount: 500, Currency: "JPY"},
	})
	require.NoError(t, err)
	assert.Equal(t, "P9", payment.ID)
	assert.Equal(t, "COMPLETED", payment.Status)
}

func TestSquareClient_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusServiceUnavailable, ``, pos.ErrUnavailable},
		{"bad request with detail", http.StatusBadRequest, `{"errors":[{"code":"INVALID_VALUE","detail":"bad price"}]}`, pos.ErrRequestFailed},
		{"bad request without body", http.StatusUnauthorized, ``, pos.ErrRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestSquareClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.UpsertObject(context.Background(), "k", pos.CatalogObject{Type: pos.ObjectTypeItem})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
