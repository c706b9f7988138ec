package tab

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/roomtab/backend/internal/domain/pos"
	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/telemetry"
)

const (
	syncModeUpdate = "update"
	syncModeCreate = "create"
)

// MirrorSyncConfig configures the shadow item engine
type MirrorSyncConfig struct {
	Currency     string
	CategoryName string // optional; shadow items are filed under it when set
}

// MirrorSync keeps one POS shadow item per session priced at the session's
// running subtotal. Prices are verified by reading the variation back.
type MirrorSync struct {
	client   pos.Client
	sessions tab.SessionRepository
	notifier Notifier
	metrics  *telemetry.TabMetrics
	logger   *zap.Logger
	cfg      MirrorSyncConfig

	categoryMu sync.Mutex
	categoryID string
}

// NewMirrorSync creates a new MirrorSync
func NewMirrorSync(client pos.Client, sessions tab.SessionRepository, notifier Notifier, metrics *telemetry.TabMetrics, cfg MirrorSyncConfig, logger *zap.Logger) *MirrorSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if cfg.Currency == "" {
		cfg.Currency = "JPY"
	}
	return &MirrorSync{
		client:   client,
		sessions: sessions,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
	}
}

// SyncShadowItem prices the session's shadow item at newTotal and returns its
// variation id. An existing variation is updated in place; when that fails a
// fresh item is created and the stale one archived. Only a failed create is
// an error. Totals that are fractional or beyond tab.MaxAmount are refused
// before any POS write.
func (s *MirrorSync) SyncShadowItem(ctx context.Context, session *tab.OrderSession, newTotal decimal.Decimal) (string, error) {
	if !tab.ValidAmount(newTotal) {
		return "", shared.WrapDomainError(shared.ErrMirrorSyncFailed,
			fmt.Errorf("total %s is not a whole amount within %s", newTotal, tab.MaxAmount))
	}

	var stale string
	if session.HasMirror() {
		start := time.Now()
		id, err := s.updateShadowItem(ctx, session, newTotal)
		if err == nil {
			return id, nil
		}
		stale = session.MirrorVariationID
		s.metrics.RecordMirrorSync(ctx, syncModeUpdate, telemetry.MirrorOutcomeFailed, time.Since(start))
		s.logger.Warn("Shadow item update failed, creating a new item",
			zap.String("session_id", session.ID),
			zap.String("variation_id", stale),
			zap.Error(err),
		)
	}

	start := time.Now()
	id, err := s.createShadowItem(ctx, session, newTotal)
	if err != nil {
		s.metrics.RecordMirrorSync(ctx, syncModeCreate, telemetry.MirrorOutcomeFailed, time.Since(start))
		return "", err
	}
	if stale != "" && stale != id {
		if err := s.ArchiveShadowItem(ctx, stale); err != nil {
			s.logger.Warn("Failed to archive replaced shadow item",
				zap.String("session_id", session.ID),
				zap.String("variation_id", stale),
				zap.Error(err),
			)
		}
	}
	return id, nil
}

// updateShadowItem returns an error only when the retrieve or the upsert failed
func (s *MirrorSync) updateShadowItem(ctx context.Context, session *tab.OrderSession, newTotal decimal.Decimal) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "mirror_sync.update",
		attribute.String(telemetry.SpanAttrSessionID, session.ID),
		attribute.String(telemetry.SpanAttrVariationID, session.MirrorVariationID),
		attribute.String(telemetry.SpanAttrAmount, newTotal.String()),
	)
	defer span.End()
	start := time.Now()
	variationID := session.MirrorVariationID

	current, err := s.client.RetrieveObject(ctx, variationID, true)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("retrieve variation %s: %w", variationID, err)
	}
	variation := current.Object
	if variation.Type != pos.ObjectTypeItemVariation || variation.ItemVariationData == nil {
		err := fmt.Errorf("object %s is %s, not an item variation", variationID, variation.Type)
		telemetry.RecordError(span, err)
		return "", err
	}

	data := *variation.ItemVariationData
	data.PricingType = pos.PricingFixed
	data.PriceMoney = &pos.Money{Amount: newTotal.IntPart(), Currency: s.cfg.Currency}
	variation.ItemVariationData = &data

	if _, err := s.client.UpsertObject(ctx, uuid.NewString(), variation); err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("upsert variation %s: %w", variationID, err)
	}

	actual, err := s.readBackPrice(ctx, variationID)
	if err != nil {
		s.logger.Warn("Shadow item price read-back failed",
			zap.String("session_id", session.ID),
			zap.String("variation_id", variationID),
			zap.Error(err),
		)
		s.metrics.RecordMirrorSync(ctx, syncModeUpdate, telemetry.MirrorOutcomeOK, time.Since(start))
		return variationID, nil
	}
	if !actual.Equal(newTotal) {
		s.reportMismatch(ctx, session, newTotal, actual)
		s.metrics.RecordMirrorSync(ctx, syncModeUpdate, telemetry.MirrorOutcomePriceMismatch, time.Since(start))
		return variationID, nil
	}

	itemID := data.ItemID
	if itemID == "" {
		itemID = session.MirrorItemID
	}
	if err := s.sessions.UpdateMirror(ctx, session.ID, itemID, variationID); err != nil {
		s.logger.Warn("Failed to persist shadow item ids",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
	} else {
		session.SetMirror(itemID, variationID)
	}
	s.metrics.RecordMirrorSync(ctx, syncModeUpdate, telemetry.MirrorOutcomeOK, time.Since(start))
	s.logger.Debug("Shadow item updated",
		zap.String("session_id", session.ID),
		zap.String("variation_id", variationID),
		zap.String("total", newTotal.String()),
	)
	return variationID, nil
}

func (s *MirrorSync) createShadowItem(ctx context.Context, session *tab.OrderSession, newTotal decimal.Decimal) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "mirror_sync.create",
		attribute.String(telemetry.SpanAttrSessionID, session.ID),
		attribute.String(telemetry.SpanAttrRoomID, session.RoomID),
		attribute.String(telemetry.SpanAttrAmount, newTotal.String()),
	)
	defer span.End()
	start := time.Now()

	itemClientID := "#item-" + uuid.NewString()
	variationClientID := "#variation-" + uuid.NewString()
	present := true
	item := pos.CatalogObject{
		Type:                  pos.ObjectTypeItem,
		ID:                    itemClientID,
		PresentAtAllLocations: &present,
		ItemData: &pos.ItemData{
			Name:        session.ShadowItemName(),
			Description: "session:" + session.ID,
			CategoryID:  s.shadowCategoryID(ctx),
			Variations: []pos.CatalogObject{{
				Type: pos.ObjectTypeItemVariation,
				ID:   variationClientID,
				ItemVariationData: &pos.ItemVariationData{
					ItemID:      itemClientID,
					Name:        "Tab",
					PricingType: pos.PricingFixed,
					PriceMoney:  &pos.Money{Amount: newTotal.IntPart(), Currency: s.cfg.Currency},
				},
			}},
		},
	}

	result, err := s.client.UpsertObject(ctx, uuid.NewString(), item)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Error("Shadow item creation failed",
			zap.String("session_id", session.ID),
			zap.String("room_id", session.RoomID),
			zap.Error(err),
		)
		return "", shared.WrapDomainError(shared.ErrMirrorSyncFailed, err)
	}

	itemID := result.ResolveID(itemClientID)
	variationID := result.ResolveID(variationClientID)
	if variationID == variationClientID && result.Object.ItemData != nil && len(result.Object.ItemData.Variations) > 0 {
		variationID = result.Object.ItemData.Variations[0].ID
	}
	if variationID == "" || variationID == variationClientID {
		err := fmt.Errorf("upsert returned no id for %s", variationClientID)
		telemetry.RecordError(span, err)
		return "", shared.WrapDomainError(shared.ErrMirrorSyncFailed, err)
	}
	if itemID == itemClientID && result.Object.ID != "" {
		itemID = result.Object.ID
	}
	span.SetAttributes(attribute.String(telemetry.SpanAttrVariationID, variationID))

	outcome := telemetry.MirrorOutcomeOK
	actual, err := s.readBackPrice(ctx, variationID)
	switch {
	case err != nil:
		s.logger.Warn("Shadow item price read-back failed",
			zap.String("session_id", session.ID),
			zap.String("variation_id", variationID),
			zap.Error(err),
		)
	case !actual.Equal(newTotal):
		outcome = telemetry.MirrorOutcomePriceMismatch
		s.reportMismatch(ctx, session, newTotal, actual)
	}

	if err := s.sessions.UpdateMirror(ctx, session.ID, itemID, variationID); err != nil {
		telemetry.RecordError(span, err)
		return "", shared.WrapDomainError(shared.ErrStorage, err)
	}
	session.SetMirror(itemID, variationID)

	s.metrics.RecordMirrorSync(ctx, syncModeCreate, outcome, time.Since(start))
	s.logger.Info("Shadow item created",
		zap.String("session_id", session.ID),
		zap.String("item_id", itemID),
		zap.String("variation_id", variationID),
		zap.String("total", newTotal.String()),
	)
	return variationID, nil
}

func (s *MirrorSync) readBackPrice(ctx context.Context, variationID string) (decimal.Decimal, error) {
	result, err := s.client.RetrieveObject(ctx, variationID, false)
	if err != nil {
		return decimal.Zero, err
	}
	price, ok := result.Object.VariationPrice()
	if !ok {
		return decimal.Zero, fmt.Errorf("variation %s has no price", variationID)
	}
	telemetry.AddEvent(ctx, "price_read",
		attribute.String(telemetry.SpanAttrVariationID, variationID),
		attribute.Int64(telemetry.SpanAttrAmount, price.Amount),
	)
	return decimal.NewFromInt(price.Amount), nil
}

func (s *MirrorSync) reportMismatch(ctx context.Context, session *tab.OrderSession, expected, actual decimal.Decimal) {
	s.logger.Warn("Shadow item price mismatch",
		zap.String("session_id", session.ID),
		zap.String("room_id", session.RoomID),
		zap.String("expected", expected.String()),
		zap.String("actual", actual.String()),
	)
	s.notifier.NotifyPriceMismatch(ctx, session, expected, actual)
}

// shadowCategoryID returns the configured category id, creating the category
// on first use. Failures only cost the item its category.
func (s *MirrorSync) shadowCategoryID(ctx context.Context) string {
	if s.cfg.CategoryName == "" {
		return ""
	}
	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()
	if s.categoryID != "" {
		return s.categoryID
	}

	found, err := s.client.SearchCategoryByName(ctx, s.cfg.CategoryName)
	if err == nil {
		s.categoryID = found.ID
		return s.categoryID
	}
	if !errors.Is(err, pos.ErrObjectNotFound) {
		s.logger.Warn("Shadow category lookup failed",
			zap.String("category", s.cfg.CategoryName),
			zap.Error(err),
		)
		return ""
	}

	clientID := "#category-" + uuid.NewString()
	result, err := s.client.UpsertObject(ctx, uuid.NewString(), pos.CatalogObject{
		Type:         pos.ObjectTypeCategory,
		ID:           clientID,
		CategoryData: &pos.CategoryData{Name: s.cfg.CategoryName},
	})
	if err != nil {
		s.logger.Warn("Shadow category creation failed",
			zap.String("category", s.cfg.CategoryName),
			zap.Error(err),
		)
		return ""
	}
	s.categoryID = result.ResolveID(clientID)
	s.logger.Info("Shadow category created",
		zap.String("category", s.cfg.CategoryName),
		zap.String("category_id", s.categoryID),
	)
	return s.categoryID
}

// ArchiveShadowItem hides the parent item of variationID from every location
func (s *MirrorSync) ArchiveShadowItem(ctx context.Context, variationID string) error {
	ctx, span := telemetry.StartSpan(ctx, "mirror_sync.archive",
		attribute.String(telemetry.SpanAttrVariationID, variationID))
	defer span.End()

	current, err := s.client.RetrieveObject(ctx, variationID, true)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("retrieve variation %s: %w", variationID, err)
	}
	if current.Object.ItemVariationData == nil {
		err := fmt.Errorf("object %s is not an item variation", variationID)
		telemetry.RecordError(span, err)
		return err
	}
	parentID := current.Object.ItemVariationData.ItemID
	parent, ok := current.Related(parentID)
	if !ok {
		retrieved, err := s.client.RetrieveObject(ctx, parentID, false)
		if err != nil {
			telemetry.RecordError(span, err)
			return fmt.Errorf("retrieve item %s: %w", parentID, err)
		}
		parent = &retrieved.Object
	}
	if parent.ItemData == nil {
		err := fmt.Errorf("object %s is not an item", parentID)
		telemetry.RecordError(span, err)
		return err
	}

	item := *parent
	data := *parent.ItemData
	data.IsArchived = true
	item.ItemData = &data
	absent := false
	item.PresentAtAllLocations = &absent

	if _, err := s.client.UpsertObject(ctx, uuid.NewString(), item); err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("archive item %s: %w", parentID, err)
	}
	s.logger.Info("Shadow item archived",
		zap.String("item_id", parentID),
		zap.String("variation_id", variationID),
	)
	return nil
}

// RestorePrice sets the variation back to total after a failed order insert.
// Best effort: failures are logged.
func (s *MirrorSync) RestorePrice(ctx context.Context, session *tab.OrderSession, total decimal.Decimal) {
	if !session.HasMirror() {
		return
	}
	if _, err := s.updateShadowItem(ctx, session, total); err != nil {
		s.logger.Error("Failed to restore shadow item price",
			zap.String("session_id", session.ID),
			zap.String("variation_id", session.MirrorVariationID),
			zap.String("total", total.String()),
			zap.Error(err),
		)
	}
}
