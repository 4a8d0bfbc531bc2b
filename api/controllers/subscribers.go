package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cuzonet/cuzonet-backend/api/responses"
	"github.com/cuzonet/cuzonet-backend/api/validators"
	"github.com/cuzonet/cuzonet-backend/internal/subscribers"
	"github.com/cuzonet/cuzonet-backend/pkg/db/models"
	"github.com/cuzonet/cuzonet-backend/pkg/enums"
	pkgerrors "github.com/cuzonet/cuzonet-backend/pkg/errors"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
)

type subscriberRegisterRequest struct {
	Name         string          `json:"name" validate:"required,min=1"`
	IPAddress    string          `json:"ip_address" validate:"required,ipv4"`
	PlanID       *uint           `json:"plan_id,omitempty"`
	PlanLabel    string          `json:"plan_label,omitempty"`
	DownloadRate string          `json:"download_rate,omitempty"`
	UploadRate   string          `json:"upload_rate,omitempty"`
	Price        decimal.Decimal `json:"price,omitempty"`
	CutoffDay    int             `json:"cutoff_day,omitempty"`
	Phone        string          `json:"phone,omitempty"`
	Email        string          `json:"email,omitempty" validate:"omitempty,email"`
	Street       string          `json:"street,omitempty"`
	NationalID   string          `json:"national_id,omitempty"`
}

func (r subscriberRegisterRequest) toParams() subscribers.RegisterParams {
	return subscribers.RegisterParams{
		Name:         r.Name,
		IPAddress:    r.IPAddress,
		PlanID:       r.PlanID,
		PlanLabel:    r.PlanLabel,
		DownloadRate: r.DownloadRate,
		UploadRate:   r.UploadRate,
		Price:        r.Price,
		CutoffDay:    r.CutoffDay,
		Phone:        r.Phone,
		Email:        r.Email,
		Street:       r.Street,
		NationalID:   r.NationalID,
	}
}

// SubscriberRegister creates a subscriber and its device queue.
func SubscriberRegister(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriber service unavailable"))
			return
		}

		var payload subscriberRegisterRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscriber, err := svc.Register(r.Context(), payload.toParams())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, subscriber)
	}
}

// SubscriberList returns subscribers, optionally filtered by state or a
// name/address search term.
func SubscriberList(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscriber service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 1000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := subscribers.ListQuery{
			Search: strings.TrimSpace(r.URL.Query().Get("search")),
			Limit:  limit,
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("state")); raw != "" {
			state, err := enums.ParseSubscriberState(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid state filter"))
				return
			}
			query.State = &state
		}

		list, err := svc.List(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// SubscriberGet returns one subscriber by id.
func SubscriberGet(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
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

		subscriber, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, subscriber)
	}
}

type subscriberContactRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=1"`
	Phone      *string `json:"phone,omitempty"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email"`
	Street     *string `json:"street,omitempty"`
	NationalID *string `json:"national_id,omitempty"`
	CutoffDay  *int    `json:"cutoff_day,omitempty"`
}

// SubscriberUpdateContact edits registry-only data entry fields.
func SubscriberUpdateContact(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload subscriberContactRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscriber, err := svc.UpdateContact(r.Context(), id, subscribers.ContactParams{
			Name:       payload.Name,
			Phone:      payload.Phone,
			Email:      payload.Email,
			Street:     payload.Street,
			NationalID: payload.NationalID,
			CutoffDay:  payload.CutoffDay,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, subscriber)
	}
}

type subscriberPlanRequest struct {
	PlanID       *uint            `json:"plan_id,omitempty"`
	DownloadRate string           `json:"download_rate,omitempty"`
	UploadRate   string           `json:"upload_rate,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
}

// SubscriberUpdatePlan changes the rate pair and price, patching the device
// queue when one exists.
func SubscriberUpdatePlan(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload subscriberPlanRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscriber, err := svc.UpdatePlan(r.Context(), id, subscribers.UpdatePlanParams{
			PlanID:       payload.PlanID,
			DownloadRate: payload.DownloadRate,
			UploadRate:   payload.UploadRate,
			Price:        payload.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, subscriber)
	}
}

type subscriberAddressRequest struct {
	IPAddress string `json:"ip_address" validate:"required,ipv4"`
}

// SubscriberUpdateAddress moves a subscriber to a new network address,
// retargeting the device queue and migrating block-list membership.
func SubscriberUpdateAddress(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload subscriberAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		subscriber, err := svc.UpdateAddress(r.Context(), id, payload.IPAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, subscriber)
	}
}

// SubscriberSuspend disables the subscriber's queue.
func SubscriberSuspend(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, (*subscribers.Service).Suspend)
}

// SubscriberCutOff adds the subscriber to the firewall block list.
func SubscriberCutOff(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, (*subscribers.Service).CutOff)
}

// SubscriberActivate restores service, re-enabling the queue and clearing
// block-list membership.
func SubscriberActivate(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
	return transitionHandler(svc, logg, (*subscribers.Service).Activate)
}

// SubscriberDelete removes the registry row after best-effort device cleanup.
func SubscriberDelete(svc *subscribers.Service, logg *logger.Logger) http.HandlerFunc {
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

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type transitionFunc func(svc *subscribers.Service, ctx context.Context, id uint) (*models.Subscriber, error)

func transitionHandler(svc *subscribers.Service, logg *logger.Logger, transition transitionFunc) http.HandlerFunc {
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

		subscriber, err := transition(svc, r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, subscriber)
	}
}
