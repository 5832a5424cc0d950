package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/sharecart-backend/api/responses"
	"github.com/angelmondragon/sharecart-backend/internal/reports"
	pkgerrors "github.com/angelmondragon/sharecart-backend/pkg/errors"
	"github.com/angelmondragon/sharecart-backend/pkg/logger"
)

// ReferrerReporter is implemented by reports.Service.
type ReferrerReporter interface {
	ReferrerReport(ctx context.Context) ([]reports.ReferrerRow, error)
	ExportXLSX(ctx context.Context) (string, []byte, error)
}

// OrderReferralFinder is implemented by reports.Service.
type OrderReferralFinder interface {
	OrderReferral(ctx context.Context, orderID int64) (*reports.OrderReferralRow, error)
}

// AdminReporter is everything the admin report routes need.
type AdminReporter interface {
	ReferrerReporter
	OrderReferralFinder
}

func AdminReferrerReport(svc ReferrerReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}
		rows, err := svc.ReferrerReport(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"referrers": rows})
	}
}

func AdminReferrerReportXLSX(svc ReferrerReporter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}
		name, data, err := svc.ExportXLSX(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteXLSX(w, name, data)
	}
}

// AdminOrderReferral shows which shared cart, if any, an order came from.
func AdminOrderReferral(svc OrderReferralFinder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "report service unavailable"))
			return
		}
		orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
		if err != nil || orderID <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id must be a positive integer").
				WithDetails(map[string]any{"field": "orderID"}))
			return
		}
		referral, err := svc.OrderReferral(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, referral)
	}
}
