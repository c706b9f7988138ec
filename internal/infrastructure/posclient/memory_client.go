package posclient

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/roomtab/backend/internal/domain/pos"
)

// MemoryClient is an in-process POS used for development and tests.
// Objects live in a map keyed by id; client ids starting with '#' are
// replaced by generated ids on upsert, as the real API does.
type MemoryClient struct {
	mu          sync.Mutex
	objects     map[string]pos.CatalogObject
	orders      map[string]pos.Order
	payments    []pos.Payment
	priceSkew   map[string]int64
	failures    map[string]error
	upsertCalls int
	seq         int
}

// NewMemoryClient creates an empty in-memory POS
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		objects:   make(map[string]pos.CatalogObject),
		orders:    make(map[string]pos.Order),
		priceSkew: make(map[string]int64),
		failures:  make(map[string]error),
	}
}

// Operation names accepted by FailNext
const (
	OpRetrieve      = "retrieve"
	OpUpsert        = "upsert"
	OpSearch        = "search"
	OpCreateOrder   = "create_order"
	OpCreatePayment = "create_payment"
	OpListPayments  = "list_payments"
)

// FailNext makes the next call of op return err
func (m *MemoryClient) FailNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// SkewReadPrice makes reads of the variation report its stored price plus
// delta, simulating a POS that did not apply an update.
func (m *MemoryClient) SkewReadPrice(variationID string, delta int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceSkew[variationID] = delta
}

// Object returns a stored object without applying any read skew
func (m *MemoryClient) Object(id string) (pos.CatalogObject, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[id]
	return cloneObject(obj), ok
}

// ObjectsOfType returns all stored objects of the given type
func (m *MemoryClient) ObjectsOfType(t pos.ObjectType) []pos.CatalogObject {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pos.CatalogObject
	for _, obj := range m.objects {
		if obj.Type == t {
			out = append(out, cloneObject(obj))
		}
	}
	return out
}

// UpsertCalls returns how many upserts were accepted
func (m *MemoryClient) UpsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertCalls
}

// AddPayment records a payment as if it had been taken at the terminal
func (m *MemoryClient) AddPayment(p pos.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = m.nextID("PAY")
	}
	if p.Status == "" {
		p.Status = "COMPLETED"
	}
	m.payments = append(m.payments, p)
}

func (m *MemoryClient) takeFailure(op string) error {
	if err, ok := m.failures[op]; ok {
		delete(m.failures, op)
		return err
	}
	return nil
}

func (m *MemoryClient) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%06d", prefix, m.seq)
}

// cloneObject deep-copies obj so callers never alias stored state
func cloneObject(obj pos.CatalogObject) pos.CatalogObject {
	if obj.PresentAtAllLocations != nil {
		v := *obj.PresentAtAllLocations
		obj.PresentAtAllLocations = &v
	}
	if obj.ItemData != nil {
		d := *obj.ItemData
		if d.Variations != nil {
			vs := make([]pos.CatalogObject, len(d.Variations))
			for i, v := range d.Variations {
				vs[i] = cloneObject(v)
			}
			d.Variations = vs
		}
		obj.ItemData = &d
	}
	if obj.ItemVariationData != nil {
		d := *obj.ItemVariationData
		if d.PriceMoney != nil {
			p := *d.PriceMoney
			d.PriceMoney = &p
		}
		obj.ItemVariationData = &d
	}
	if obj.CategoryData != nil {
		d := *obj.CategoryData
		obj.CategoryData = &d
	}
	return obj
}

// readView applies the configured price skew to a copy of obj
func (m *MemoryClient) readView(obj pos.CatalogObject) pos.CatalogObject {
	obj = cloneObject(obj)
	delta, ok := m.priceSkew[obj.ID]
	if !ok || obj.ItemVariationData == nil || obj.ItemVariationData.PriceMoney == nil {
		return obj
	}
	vd := *obj.ItemVariationData
	price := *vd.PriceMoney
	price.Amount += delta
	vd.PriceMoney = &price
	obj.ItemVariationData = &vd
	return obj
}

// RetrieveObject implements pos.Client
func (m *MemoryClient) RetrieveObject(_ context.Context, objectID string, includeRelated bool) (*pos.RetrieveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(OpRetrieve); err != nil {
		return nil, err
	}

	obj, ok := m.objects[objectID]
	if !ok || obj.IsDeleted {
		return nil, pos.ErrObjectNotFound
	}
	result := &pos.RetrieveResult{Object: m.readView(obj)}
	if includeRelated && obj.ItemVariationData != nil {
		if parent, ok := m.objects[obj.ItemVariationData.ItemID]; ok {
			result.RelatedObjects = append(result.RelatedObjects, cloneObject(parent))
		}
	}
	return result, nil
}

// UpsertObject implements pos.Client
func (m *MemoryClient) UpsertObject(_ context.Context, _ string, object pos.CatalogObject) (*pos.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(OpUpsert); err != nil {
		return nil, err
	}

	object = cloneObject(object)
	result := &pos.UpsertResult{}
	resolve := func(id string, t pos.ObjectType) string {
		if !strings.HasPrefix(id, "#") {
			return id
		}
		for _, mp := range result.IDMappings {
			if mp.ClientObjectID == id {
				return mp.ObjectID
			}
		}
		newID := m.nextID(string(t))
		result.IDMappings = append(result.IDMappings, pos.IDMapping{ClientObjectID: id, ObjectID: newID})
		return newID
	}

	object.ID = resolve(object.ID, object.Type)
	if object.ItemData != nil {
		data := *object.ItemData
		variations := make([]pos.CatalogObject, len(data.Variations))
		for i, v := range data.Variations {
			v.ID = resolve(v.ID, pos.ObjectTypeItemVariation)
			if v.ItemVariationData != nil {
				vd := *v.ItemVariationData
				vd.ItemID = object.ID
				v.ItemVariationData = &vd
			}
			v.Version = m.objects[v.ID].Version + 1
			m.objects[v.ID] = cloneObject(v)
			variations[i] = v
		}
		data.Variations = variations
		object.ItemData = &data
	}
	if object.ItemVariationData != nil {
		vd := *object.ItemVariationData
		vd.ItemID = resolve(vd.ItemID, pos.ObjectTypeItem)
		object.ItemVariationData = &vd
		if parent, ok := m.objects[vd.ItemID]; ok && parent.ItemData != nil {
			pd := *parent.ItemData
			pd.Variations = replaceVariation(pd.Variations, cloneObject(object))
			parent.ItemData = &pd
			m.objects[parent.ID] = parent
		}
	}
	object.Version = m.objects[object.ID].Version + 1
	m.objects[object.ID] = cloneObject(object)
	m.upsertCalls++

	result.Object = object
	return result, nil
}

func replaceVariation(variations []pos.CatalogObject, v pos.CatalogObject) []pos.CatalogObject {
	out := make([]pos.CatalogObject, 0, len(variations)+1)
	found := false
	for _, existing := range variations {
		if existing.ID == v.ID {
			out = append(out, v)
			found = true
			continue
		}
		out = append(out, existing)
	}
	if !found {
		out = append(out, v)
	}
	return out
}

// SearchCategoryByName implements pos.Client
func (m *MemoryClient) SearchCategoryByName(_ context.Context, name string) (*pos.CatalogObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(OpSearch); err != nil {
		return nil, err
	}
	for _, obj := range m.objects {
		if obj.Type == pos.ObjectTypeCategory && !obj.IsDeleted && obj.CategoryData != nil && obj.CategoryData.Name == name {
			found := cloneObject(obj)
			return &found, nil
		}
	}
	return nil, pos.ErrObjectNotFound
}

// CreateOrder implements pos.Client
func (m *MemoryClient) CreateOrder(_ context.Context, _ string, order pos.Order) (*pos.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(OpCreateOrder); err != nil {
		return nil, err
	}

	order.ID = m.nextID("ORDER")
	order.State = "OPEN"
	var total int64
	currency := ""
	for _, li := range order.LineItems {
		price := li.BasePriceMoney
		if price == nil && li.CatalogObjectID != "" {
			if v, ok := m.objects[li.CatalogObjectID]; ok {
				if money, ok := v.VariationPrice(); ok {
					price = &money
				}
			}
		}
		if price == nil {
			continue
		}
		var qty int64
		if _, err := fmt.Sscanf(li.Quantity, "%d", &qty); err != nil || qty <= 0 {
			qty = 1
		}
		total += price.Amount * qty
		currency = price.Currency
	}
	order.TotalMoney = &pos.Money{Amount: total, Currency: currency}
	m.orders[order.ID] = order
	return &order, nil
}

// CreatePayment implements pos.Client
func (m *MemoryClient) CreatePayment(_ context.Context, _ string, payment pos.Payment) (*pos.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(OpCreatePayment); err != nil {
		return nil, err
	}

	payment.ID = m.nextID("PAY")
	payment.Status = "COMPLETED"
	if order, ok := m.orders[payment.OrderID]; ok {
		order.State = "COMPLETED"
		m.orders[order.ID] = order
	}
	m.payments = append(m.payments, payment)
	return &payment, nil
}

// ListPaymentsByReference implements pos.Client
func (m *MemoryClient) ListPaymentsByReference(_ context.Context, referenceID string) ([]pos.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(OpListPayments); err != nil {
		return nil, err
	}
	var out []pos.Payment
	for _, p := range m.payments {
		if p.ReferenceID == referenceID {
			out = append(out, p)
		}
	}
	return out, nil
}

var _ pos.Client = (*MemoryClient)(nil)
