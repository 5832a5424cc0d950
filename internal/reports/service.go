package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/angelmondragon/sharecart-backend/internal/sharestats"
	"github.com/angelmondragon/sharecart-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sharecart-backend/pkg/errors"
)

const referrerSheet = "Referrers"

type statsReader interface {
	AggregateByReferrer(ctx context.Context) ([]sharestats.ReferrerAggregate, error)
	FindOrderReferral(ctx context.Context, orderID int64) (*models.OrderReferral, error)
}

// ReferrerRow is one line of the referrer report.
type ReferrerRow struct {
	ShareID          int64           `json:"share_id"`
	ShareKey         string          `json:"share_key"`
	ReferrerName     string          `json:"referrer_name"`
	TotalVisits      int64           `json:"total_visits"`
	TotalConversions int64           `json:"total_conversions"`
	TotalOrders      int64           `json:"total_orders"`
	ConversionRate   decimal.Decimal `json:"conversion_rate"`
	Rate             string          `json:"rate"`
}

// OrderReferralRow tells an operator which shared cart an order came from.
type OrderReferralRow struct {
	OrderID      int64     `json:"order_id"`
	ShareID      int64     `json:"share_id"`
	ShareKey     string    `json:"share_key"`
	ReferrerName string    `json:"referrer_name"`
	Note         *string   `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Service builds operator reports over share link statistics.
type Service struct {
	stats statsReader
	now   func() time.Time
}

func NewService(stats statsReader, now func() time.Time) (*Service, error) {
	if stats == nil {
		return nil, fmt.Errorf("share stats store required")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{stats: stats, now: now}, nil
}

func (s *Service) ReferrerReport(ctx context.Context) ([]ReferrerRow, error) {
	aggregates, err := s.stats.AggregateByReferrer(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]ReferrerRow, 0, len(aggregates))
	for _, agg := range aggregates {
		rate := agg.ConversionRate()
		rows = append(rows, ReferrerRow{
			ShareID:          agg.ShareID,
			ShareKey:         agg.ShareKey,
			ReferrerName:     agg.ReferrerName,
			TotalVisits:      agg.TotalVisits,
			TotalConversions: agg.TotalConversions,
			TotalOrders:      agg.TotalOrders,
			ConversionRate:   rate,
			Rate:             sharestats.FormatRate(rate),
		})
	}
	return rows, nil
}

// OrderReferral returns the referral saved when orderID was placed.
func (s *Service) OrderReferral(ctx context.Context, orderID int64) (*OrderReferralRow, error) {
	referral, err := s.stats.FindOrderReferral(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderReferralRow{
		OrderID:      referral.OrderID,
		ShareID:      referral.ShareID,
		ShareKey:     referral.ShareKey,
		ReferrerName: referral.ReferrerName,
		Note:         referral.Note,
		CreatedAt:    referral.CreatedAt,
	}, nil
}

// ExportXLSX renders the referrer report as a single-sheet workbook.
func (s *Service) ExportXLSX(ctx context.Context) (string, []byte, error) {
	rows, err := s.ReferrerReport(ctx)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	if err := xl.SetSheetName(xl.GetSheetName(0), referrerSheet); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not build referrer report")
	}
	header := []any{"share_id", "share_key", "referrer_name", "visits", "conversions", "orders", "conversion_rate"}
	if err := xl.SetSheetRow(referrerSheet, "A1", &header); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not build referrer report")
	}
	for i, row := range rows {
		record := []any{
			row.ShareID,
			row.ShareKey,
			row.ReferrerName,
			row.TotalVisits,
			row.TotalConversions,
			row.TotalOrders,
			row.Rate,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not build referrer report")
		}
		if err := xl.SetSheetRow(referrerSheet, cell, &record); err != nil {
			return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not build referrer report")
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not write referrer report")
	}
	filename := fmt.Sprintf("sharecart_referrers_%s.xlsx", s.now().UTC().Format("20060102"))
	return filename, buf.Bytes(), nil
}
