package sharestats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/sharecart-backend/pkg/db"
	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sharecart-backend/pkg/errors"
)

// ReferrerAggregate is the per-link visit summary.
type ReferrerAggregate struct {
	ShareID          int64  `gorm:"column:share_id"`
	ShareKey         string `gorm:"column:share_key"`
	ReferrerName     string `gorm:"column:referrer_name"`
	TotalVisits      int64  `gorm:"column:total_visits"`
	TotalConversions int64  `gorm:"column:total_conversions"`
	TotalOrders      int64  `gorm:"column:total_orders"`
}

// ConversionRate returns conversions/visits as a percentage rounded to two places.
func (a ReferrerAggregate) ConversionRate() decimal.Decimal {
	return ConversionRate(a.TotalConversions, a.TotalVisits)
}

// ConversionRate is zero when there are no visits.
func ConversionRate(conversions, visits int64) decimal.Decimal {
	if visits <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(conversions).
		Mul(decimal.NewFromInt(100)).
		DivRound(decimal.NewFromInt(visits), 2)
}

// FormatRate renders a rate the way reports display it, e.g. "33.33%".
func FormatRate(rate decimal.Decimal) string {
	return rate.StringFixed(2) + "%"
}

// ReferralInput describes the referral attached to a placed order.
type ReferralInput struct {
	OrderID      int64
	ShareID      int64
	ShareKey     string
	ReferrerName string
	Note         *string
}

// Store records visits and conversions for share links.
type Store interface {
	RecordVisit(ctx context.Context, shareID int64, visitorAddress *string, now time.Time) (*models.ShareVisit, error)
	RecordConversion(ctx context.Context, shareID, orderID int64, now time.Time) (bool, error)
	AggregateByReferrer(ctx context.Context) ([]ReferrerAggregate, error)
	SaveOrderReferral(ctx context.Context, input ReferralInput, now time.Time) (bool, error)
	FindOrderReferral(ctx context.Context, orderID int64) (*models.OrderReferral, error)
}

type store struct {
	repo Repository
}

// NewStore builds a stats store.
func NewStore(repo Repository) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("share stats repository required")
	}
	return &store{repo: repo}, nil
}

func (s *store) RecordVisit(ctx context.Context, shareID int64, visitorAddress *string, now time.Time) (*models.ShareVisit, error) {
	if shareID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "share id is required")
	}
	visit := &models.ShareVisit{
		ShareID:        shareID,
		VisitorAddress: visitorAddress,
		VisitedAt:      now.UTC(),
	}
	if err := s.repo.InsertVisit(ctx, visit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not record share visit")
	}
	return visit, nil
}

func (s *store) RecordConversion(ctx context.Context, shareID, orderID int64, now time.Time) (bool, error) {
	if shareID <= 0 || orderID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "share id and order id are required")
	}
	converted, err := s.repo.ClaimConversion(ctx, shareID, orderID, now.UTC())
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not record share conversion")
	}
	return converted, nil
}

func (s *store) AggregateByReferrer(ctx context.Context) ([]ReferrerAggregate, error) {
	rows, err := s.repo.AggregateByShare(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not aggregate share stats")
	}
	return rows, nil
}

func (s *store) SaveOrderReferral(ctx context.Context, input ReferralInput, now time.Time) (bool, error) {
	if input.OrderID <= 0 || input.ShareID <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id and share id are required")
	}
	referral := &models.OrderReferral{
		OrderID:      input.OrderID,
		ShareID:      input.ShareID,
		ShareKey:     input.ShareKey,
		ReferrerName: strings.TrimSpace(input.ReferrerName),
		Note:         input.Note,
		CreatedAt:    now.UTC(),
	}
	saved, err := s.repo.InsertOrderReferral(ctx, referral)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not save order referral")
	}
	return saved, nil
}

// FindOrderReferral returns the shared cart an order came from, or NotFound.
func (s *store) FindOrderReferral(ctx context.Context, orderID int64) (*models.OrderReferral, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required").
			WithDetails(map[string]any{"field": "order_id"})
	}
	referral, err := s.repo.FindOrderReferral(ctx, orderID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no shared cart referral for this order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not load order referral")
	}
	return referral, nil
}
