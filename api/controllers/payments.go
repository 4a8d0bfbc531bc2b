package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/cuzonet/cuzonet-backend/api/responses"
	"github.com/cuzonet/cuzonet-backend/api/validators"
	"github.com/cuzonet/cuzonet-backend/internal/payments"
	"github.com/cuzonet/cuzonet-backend/internal/subscribers"
	pkgerrors "github.com/cuzonet/cuzonet-backend/pkg/errors"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
)

type paymentRecordRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PeriodLabel string          `json:"period_label,omitempty"`
	Method      string          `json:"method,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	Note        string          `json:"note,omitempty"`
}

// PaymentRecord registers a payment against a subscriber, restoring service
// when the account was suspended or cut off.
func PaymentRecord(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriber service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload paymentRecordRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.RecordPayment(r.Context(), id, subscribers.PaymentParams{
			Amount:      payload.Amount,
			PeriodLabel: payload.PeriodLabel,
			Method:      payload.Method,
			Reference:   payload.Reference,
			Note:        payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

// PaymentList returns every recorded payment, newest first.
func PaymentList(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// PaymentListBySubscriber returns one subscriber's payment history.
func PaymentListBySubscriber(svc *payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBySubscriber(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// PaymentDelete voids a payment and restores its amount to the subscriber's
// balance.
func PaymentDelete(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriber service unavailable"))
			return
		}

		id, err := validators.ParseIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeletePayment(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
