package sharecart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/sharecart-backend/internal/sharelinks"
	"github.com/angelmondragon/sharecart-backend/internal/sharestats"
	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sharecart-backend/pkg/errors"
	"github.com/angelmondragon/sharecart-backend/pkg/logger"
	"github.com/angelmondragon/sharecart-backend/pkg/metrics"
	"github.com/angelmondragon/sharecart-backend/pkg/types"
)

// Caller identifies who is acting on a shared cart.
type Caller struct {
	SessionID string
	UserID    *string
	Address   string
}

// GenerateInput is the payload for creating a share link.
type GenerateInput struct {
	ReferrerName string
	Note         *string
}

// GeneratedLink is returned to the shopper who shared their cart.
type GeneratedLink struct {
	URL       string
	Key       string
	ExpiresAt time.Time
}

// AddAllInput selects the link whose lines are copied into the caller's cart.
type AddAllInput struct {
	Key         string
	ReplaceCart bool
}

// AddAllResult reports how many snapshot lines made it into the cart.
type AddAllResult struct {
	AddedCount int
	TotalCount int
	CartURL    string
}

// AddSingleInput adds one line, optionally attributed to a share link.
type AddSingleInput struct {
	ShareKey *string
	Item     types.CartLine
}

// AddSingleResult points the caller at their cart.
type AddSingleResult struct {
	CartURL string
}

// OrderPlacedResult reports what the order hook did.
type OrderPlacedResult struct {
	Attributed bool
	Converted  bool
	ShareID    int64
}

// SharedCartItem is one snapshot line decorated with catalog data.
type SharedCartItem struct {
	Line    types.CartLine
	Product *models.Product
}

// SharedCartView is the display form of a live share link.
type SharedCartView struct {
	Link  *models.ShareLink
	Items []SharedCartItem
}

// Service orchestrates the share link lifecycle.
type Service interface {
	GenerateLink(ctx context.Context, caller Caller, input GenerateInput) (*GeneratedLink, error)
	ResolveSharedCart(ctx context.Context, caller Caller, key string) (*models.ShareLink, error)
	ViewSharedCart(ctx context.Context, caller Caller, key string) (*SharedCartView, error)
	OpenSharedCart(ctx context.Context, caller Caller, key string) (*AddAllResult, error)
	AddAllItems(ctx context.Context, caller Caller, input AddAllInput) (*AddAllResult, error)
	AddSingleItem(ctx context.Context, caller Caller, input AddSingleInput) (*AddSingleResult, error)
	OnOrderPlaced(ctx context.Context, caller Caller, orderID int64) (*OrderPlacedResult, error)
}

// ServiceParams configure the share service.
type ServiceParams struct {
	Links   sharelinks.Store
	Stats   sharestats.Store
	Cart    Cart
	Catalog Catalog
	Session Session
	Hasher  AddressHasher
	Logger  *logger.Logger
	Metrics *metrics.ShareCartMetrics
	BaseURL string
	TTL     time.Duration
	Now     func() time.Time
}

type service struct {
	links   sharelinks.Store
	stats   sharestats.Store
	cart    Cart
	catalog Catalog
	session Session
	hasher  AddressHasher
	logg    *logger.Logger
	metrics *metrics.ShareCartMetrics
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewService builds the share service.
func NewService(params ServiceParams) (Service, error) {
	if params.Links == nil {
		return nil, fmt.Errorf("link store required")
	}
	if params.Stats == nil {
		return nil, fmt.Errorf("stats store required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(params.BaseURL) == "" {
		return nil, fmt.Errorf("base url required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		links:   params.Links,
		stats:   params.Stats,
		cart:    params.Cart,
		catalog: params.Catalog,
		session: params.Session,
		hasher:  params.Hasher,
		logg:    params.Logger,
		metrics: params.Metrics,
		baseURL: strings.TrimRight(params.BaseURL, "/"),
		ttl:     params.TTL,
		now:     now,
	}, nil
}

// ShareURL builds the public link for key.
func ShareURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/shared-cart/" + key + "/"
}

func (s *service) GenerateLink(ctx context.Context, caller Caller, input GenerateInput) (*GeneratedLink, error) {
	name := strings.TrimSpace(input.ReferrerName)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please enter your name").
			WithDetails(map[string]any{"field": "referrer_name"})
	}

	lines, err := s.cart.Items(ctx, caller.SessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not read cart")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "your cart is empty")
	}

	snapshot := make(types.CartSnapshot, 0, len(lines))
	for _, line := range lines {
		snapshot = append(snapshot, line.Normalized())
	}

	link, err := s.links.Create(ctx, sharelinks.CreateInput{
		Snapshot:       snapshot,
		ReferrerName:   name,
		ReferrerUserID: caller.UserID,
		Note:           input.Note,
		TTL:            s.ttl,
	}, s.now())
	if err != nil {
		return nil, err
	}

	s.metrics.IncLinkGenerated()
	ctx = s.logg.WithFields(s.logg.WithShareKey(ctx, link.ShareKey), map[string]any{
		"lines":    len(snapshot),
		"quantity": snapshot.TotalQuantity(),
	})
	s.logg.Info(ctx, "share link generated")

	return &GeneratedLink{
		URL:       ShareURL(s.baseURL, link.ShareKey),
		Key:       link.ShareKey,
		ExpiresAt: link.ExpiresAt,
	}, nil
}

func (s *service) ResolveSharedCart(ctx context.Context, caller Caller, key string) (*models.ShareLink, error) {
	now := s.now()
	link, err := s.findLive(ctx, key, now)
	if err != nil {
		return nil, err
	}

	s.recordVisit(ctx, link, caller.Address, now)
	if err := s.storeReferral(ctx, caller.SessionID, link); err != nil {
		s.logg.WarnErr(s.logg.WithShareKey(ctx, link.ShareKey), "failed to store referral in session", err)
	}
	return link, nil
}

func (s *service) ViewSharedCart(ctx context.Context, caller Caller, key string) (*SharedCartView, error) {
	link, err := s.ResolveSharedCart(ctx, caller, key)
	if err != nil {
		return nil, err
	}

	view := &SharedCartView{Link: link, Items: make([]SharedCartItem, 0, len(link.CartSnapshot))}
	for _, line := range link.CartSnapshot {
		product, err := s.catalog.Product(ctx, line.ProductID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not load product")
		}
		if product == nil {
			continue
		}
		view.Items = append(view.Items, SharedCartItem{Line: line, Product: product})
	}
	return view, nil
}

// OpenSharedCart is the landing flow: the visit is recorded, the caller's cart is
// replaced with the snapshot and the referral is kept for checkout.
func (s *service) OpenSharedCart(ctx context.Context, caller Caller, key string) (*AddAllResult, error) {
	link, err := s.ResolveSharedCart(ctx, caller, key)
	if err != nil {
		return nil, err
	}
	return s.addLines(ctx, caller, link, true)
}

func (s *service) AddAllItems(ctx context.Context, caller Caller, input AddAllInput) (*AddAllResult, error) {
	link, err := s.findLive(ctx, input.Key, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.storeReferral(ctx, caller.SessionID, link); err != nil {
		s.logg.WarnErr(s.logg.WithShareKey(ctx, link.ShareKey), "failed to store referral in session", err)
	}
	return s.addLines(ctx, caller, link, input.ReplaceCart)
}

func (s *service) addLines(ctx context.Context, caller Caller, link *models.ShareLink, replace bool) (*AddAllResult, error) {
	ctx = s.logg.WithShareKey(ctx, link.ShareKey)
	if replace {
		if err := s.cart.Empty(ctx, caller.SessionID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not empty cart")
		}
	}

	added := 0
	var failures error
	for _, line := range link.CartSnapshot {
		ok, err := s.cart.Add(ctx, caller.SessionID, line)
		if err != nil {
			failures = multierr.Append(failures, fmt.Errorf("product %d: %w", line.ProductID, err))
			continue
		}
		if ok {
			added++
		}
	}
	total := len(link.CartSnapshot)
	if failures != nil {
		s.logg.WarnErr(s.logg.WithField(ctx, "failed_items", len(multierr.Errors(failures))), "some shared items could not be added", failures)
	}
	s.metrics.AddItems("all", added, total-added)

	return &AddAllResult{AddedCount: added, TotalCount: total, CartURL: s.cart.URL()}, nil
}

func (s *service) AddSingleItem(ctx context.Context, caller Caller, input AddSingleInput) (*AddSingleResult, error) {
	item := input.Item.Normalized()
	if item.ProductID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
			WithDetails(map[string]any{"field": "product_id"})
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	if input.ShareKey != nil && strings.TrimSpace(*input.ShareKey) != "" {
		link, err := s.findLive(ctx, *input.ShareKey, s.now())
		switch {
		case err == nil:
			if err := s.storeReferral(ctx, caller.SessionID, link); err != nil {
				s.logg.WarnErr(s.logg.WithShareKey(ctx, link.ShareKey), "failed to store referral in session", err)
			}
		case sharelinks.IsNotFound(err):
			// an expired link still lets the visitor buy the item
		default:
			return nil, err
		}
	}

	ok, err := s.cart.Add(ctx, caller.SessionID, item)
	if err != nil {
		s.metrics.AddItems("single", 0, 1)
		return nil, pkgerrors.Wrap(pkgerrors.CodeCartAdd, err, "could not add item to cart").
			WithDetails(map[string]any{"product_id": item.ProductID})
	}
	if !ok {
		s.metrics.AddItems("single", 0, 1)
		return nil, pkgerrors.New(pkgerrors.CodeCartAdd, "this item is not available").
			WithDetails(map[string]any{"product_id": item.ProductID})
	}
	s.metrics.AddItems("single", 1, 0)
	return &AddSingleResult{CartURL: s.cart.URL()}, nil
}

func (s *service) OnOrderPlaced(ctx context.Context, caller Caller, orderID int64) (*OrderPlacedResult, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required").
			WithDetails(map[string]any{"field": "order_id"})
	}
	ctx = s.logg.WithField(ctx, "order_id", orderID)

	ref, err := s.loadReferral(ctx, caller.SessionID)
	if err != nil {
		s.logg.WarnErr(ctx, "discarding unreadable referral", err)
		if clearErr := s.session.Clear(ctx, caller.SessionID, ReferralSessionKey); clearErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, clearErr, "could not clear referral")
		}
		s.metrics.IncConversion("unattributed")
		return &OrderPlacedResult{}, nil
	}
	if ref == nil {
		s.metrics.IncConversion("unattributed")
		return &OrderPlacedResult{}, nil
	}
	ctx = s.logg.WithShareKey(ctx, ref.Key)

	now := s.now()
	converted, err := s.stats.RecordConversion(ctx, ref.ShareID, orderID, now)
	if err != nil {
		return nil, err
	}
	if _, err := s.stats.SaveOrderReferral(ctx, sharestats.ReferralInput{
		OrderID:      orderID,
		ShareID:      ref.ShareID,
		ShareKey:     ref.Key,
		ReferrerName: ref.ReferrerName,
		Note:         ref.Note,
	}, now); err != nil {
		return nil, err
	}
	if err := s.session.Clear(ctx, caller.SessionID, ReferralSessionKey); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not clear referral")
	}

	result := "no_match"
	if converted {
		result = "converted"
	}
	s.metrics.IncConversion(result)
	s.logg.Info(s.logg.WithField(ctx, "converted", converted), "order attributed to shared cart")

	return &OrderPlacedResult{Attributed: true, Converted: converted, ShareID: ref.ShareID}, nil
}

func (s *service) findLive(ctx context.Context, key string, now time.Time) (*models.ShareLink, error) {
	link, err := s.links.FindLive(ctx, key, now)
	s.metrics.IncResolution(err == nil)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func (s *service) recordVisit(ctx context.Context, link *models.ShareLink, address string, now time.Time) {
	ctx = s.logg.WithShareKey(ctx, link.ShareKey)
	var stored *string
	if s.hasher != nil {
		hashed, err := s.hasher.Hash(address)
		if err != nil {
			s.logg.WarnErr(ctx, "failed to hash visitor address", err)
		} else {
			stored = hashed
		}
	} else if address != "" {
		stored = &address
	}
	if _, err := s.stats.RecordVisit(ctx, link.ID, stored, now); err != nil {
		s.metrics.IncVisitFailure()
		s.logg.WarnErr(ctx, "failed to record share visit", err)
	}
}
