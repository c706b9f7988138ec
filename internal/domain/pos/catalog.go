// Package pos defines the point-of-sale catalog, order and payment model
// the room tab mirrors into, and the client port implemented by adapters.
package pos

import (
	"context"
	"errors"
)

// ObjectType is the type of a catalog object
type ObjectType string

const (
	ObjectTypeItem          ObjectType = "ITEM"
	ObjectTypeItemVariation ObjectType = "ITEM_VARIATION"
	ObjectTypeCategory      ObjectType = "CATEGORY"
)

// PricingFixed is the only pricing type used for shadow variations
const PricingFixed = "FIXED_PRICING"

// Money is an amount in the smallest currency unit. For zero-decimal
// currencies such as JPY the amount equals the display amount.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CatalogObject is a POS catalog entry
type CatalogObject struct {
	Type                  ObjectType         `json:"type"`
	ID                    string             `json:"id"`
	Version               int64              `json:"version,omitempty"`
	IsDeleted             bool               `json:"is_deleted,omitempty"`
	PresentAtAllLocations *bool              `json:"present_at_all_locations,omitempty"`
	ItemData              *ItemData          `json:"item_data,omitempty"`
	ItemVariationData     *ItemVariationData `json:"item_variation_data,omitempty"`
	CategoryData          *CategoryData      `json:"category_data,omitempty"`
}

// ItemData describes a sellable item
type ItemData struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CategoryID  string          `json:"category_id,omitempty"`
	IsArchived  bool            `json:"is_archived,omitempty"`
	Variations  []CatalogObject `json:"variations,omitempty"`
}

// ItemVariationData describes a priced variation of an item
type ItemVariationData struct {
	ItemID      string `json:"item_id"`
	Name        string `json:"name"`
	PricingType string `json:"pricing_type"`
	PriceMoney  *Money `json:"price_money,omitempty"`
}

// CategoryData describes a catalog category
type CategoryData struct {
	Name string `json:"name"`
}

// RetrieveResult is a catalog object together with its related objects
type RetrieveResult struct {
	Object         CatalogObject   `json:"object"`
	RelatedObjects []CatalogObject `json:"related_objects,omitempty"`
}

// Related returns the related object with the given id, if present
func (r *RetrieveResult) Related(id string) (*CatalogObject, bool) {
	for i := range r.RelatedObjects {
		if r.RelatedObjects[i].ID == id {
			return &r.RelatedObjects[i], true
		}
	}
	return nil, false
}

// IDMapping maps a client-supplied temporary id to the id the POS assigned
type IDMapping struct {
	ClientObjectID string `json:"client_object_id"`
	ObjectID       string `json:"object_id"`
}

// UpsertResult is the response to a catalog upsert
type UpsertResult struct {
	Object     CatalogObject `json:"catalog_object"`
	IDMappings []IDMapping   `json:"id_mappings,omitempty"`
}

// ResolveID returns the POS id for a client id, or the id itself when unmapped
func (r *UpsertResult) ResolveID(clientID string) string {
	for _, m := range r.IDMappings {
		if m.ClientObjectID == clientID {
			return m.ObjectID
		}
	}
	return clientID
}

// VariationPrice returns the price of an ITEM_VARIATION object
func (o *CatalogObject) VariationPrice() (Money, bool) {
	if o.Type != ObjectTypeItemVariation || o.ItemVariationData == nil || o.ItemVariationData.PriceMoney == nil {
		return Money{}, false
	}
	return *o.ItemVariationData.PriceMoney, true
}

// OrderLineItem is one line of a POS order
type OrderLineItem struct {
	CatalogObjectID string `json:"catalog_object_id,omitempty"`
	Name            string `json:"name,omitempty"`
	Quantity        string `json:"quantity"`
	BasePriceMoney  *Money `json:"base_price_money,omitempty"`
}

// Order is a POS order
type Order struct {
	ID          string          `json:"id,omitempty"`
	LocationID  string          `json:"location_id"`
	ReferenceID string          `json:"reference_id,omitempty"`
	LineItems   []OrderLineItem `json:"line_items"`
	TotalMoney  *Money          `json:"total_money,omitempty"`
	State       string          `json:"state,omitempty"`
}

// Payment is a POS payment
type Payment struct {
	ID          string `json:"id,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
	LocationID  string `json:"location_id,omitempty"`
	ReferenceID string `json:"reference_id,omitempty"`
	AmountMoney Money  `json:"amount_money"`
	Status      string `json:"status,omitempty"`
}

// Errors returned by POS clients
var (
	ErrObjectNotFound = errors.New("pos: catalog object not found")
	ErrUnavailable    = errors.New("pos: service unavailable")
	ErrRequestFailed  = errors.New("pos: request failed")
	ErrInvalidReply   = errors.New("pos: invalid response")
)

// Client is the POS catalog/order/payment API the mirror sync engine depends on.
// Transport, authentication and TLS are the implementation's concern.
type Client interface {
	// RetrieveObject fetches one catalog object, optionally with related objects
	RetrieveObject(ctx context.Context, objectID string, includeRelated bool) (*RetrieveResult, error)
	// UpsertObject creates or updates a catalog object
	UpsertObject(ctx context.Context, idempotencyKey string, object CatalogObject) (*UpsertResult, error)
	// SearchCategoryByName returns the category named name, or ErrObjectNotFound
	SearchCategoryByName(ctx context.Context, name string) (*CatalogObject, error)
	// CreateOrder creates a POS order
	CreateOrder(ctx context.Context, idempotencyKey string, order Order) (*Order, error)
	// CreatePayment creates a payment against an order
	CreatePayment(ctx context.Context, idempotencyKey string, payment Payment) (*Payment, error)
	// ListPaymentsByReference lists payments whose reference id equals referenceID
	ListPaymentsByReference(ctx context.Context, referenceID string) ([]Payment, error)
}
