package controllers

import (
	"context"
	"net/http"

	"github.com/cuzonet/cuzonet-backend/api/responses"
	"github.com/cuzonet/cuzonet-backend/api/validators"
	"github.com/cuzonet/cuzonet-backend/internal/devicestatus"
	"github.com/cuzonet/cuzonet-backend/internal/importer"
	"github.com/cuzonet/cuzonet-backend/pkg/config"
	pkgerrors "github.com/cuzonet/cuzonet-backend/pkg/errors"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
	"github.com/cuzonet/cuzonet-backend/pkg/routeros"
)

// ImportRunner is the slice of the import job the trigger endpoint needs.
type ImportRunner interface {
	Run(ctx context.Context) (importer.Result, error)
}

// DeviceStatus serves the cached connectivity probe.
func DeviceStatus(cache *devicestatus.Cache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "status cache unavailable"))
			return
		}

		responses.WriteSuccess(w, cache.Get(r.Context()))
	}
}

type deviceTestRequest struct {
	Host       string `json:"host" validate:"required"`
	Port       int    `json:"port,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	UseTLS     bool   `json:"use_tls,omitempty"`
	SkipVerify bool   `json:"skip_verify,omitempty"`
}

// DeviceTest probes the supplied connection parameters without persisting
// them, so an operator can verify credentials before changing the config.
func DeviceTest(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload deviceTestRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cfg := config.DeviceConfig{
			Host:       payload.Host,
			Port:       payload.Port,
			Username:   payload.Username,
			Password:   payload.Password,
			UseTLS:     payload.UseTLS,
			SkipVerify: payload.SkipVerify,
		}
		if cfg.Port == 0 {
			cfg.Port = 80
		}

		client, err := routeros.NewClient(cfg, logg, nil)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid device parameters"))
			return
		}

		identity, err := client.TestConnectivity(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"connected": true,
			"identity":  identity,
		})
	}
}

// DeviceImport pulls the device's queue list into the registry. Addresses
// already registered are skipped, never overwritten.
func DeviceImport(job ImportRunner, cache *devicestatus.Cache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if job == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeStateConflict, "no device configured"))
			return
		}

		result, err := job.Run(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if cache != nil {
			cache.Invalidate()
		}

		responses.WriteSuccess(w, result)
	}
}
