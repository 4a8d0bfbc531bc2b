// Package importer merges the device's existing simple queues into the
// subscriber registry. The merge is additive only: subscribers already known
// by address are never overwritten.
package importer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/cuzonet/cuzonet-backend/internal/subscribers"
	"github.com/cuzonet/cuzonet-backend/pkg/db/models"
	"github.com/cuzonet/cuzonet-backend/pkg/enums"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
	"github.com/cuzonet/cuzonet-backend/pkg/routeros"
)

// DefaultPlanLabel is attached to imported rows whose queue has no comment.
const DefaultPlanLabel = "Importado de MikroTik"

// QueueLister is the slice of the device client the job needs.
type QueueLister interface {
	ListQueues(ctx context.Context) ([]routeros.Queue, error)
}

// JobParams groups dependencies for the import job.
type JobParams struct {
	Device    QueueLister
	Repo      subscribers.Repository
	Logger    *logger.Logger
	ErrorCap  int
	PlanLabel string
}

// Job pulls device queues into the registry.
type Job struct {
	device    QueueLister
	repo      subscribers.Repository
	logger    *logger.Logger
	errorCap  int
	planLabel string
}

// Result summarizes one import run. Errors holds at most the configured cap
// of per-row messages; TotalErrors counts them all.
type Result struct {
	Imported    int      `json:"imported"`
	Skipped     int      `json:"skipped"`
	Errors      []string `json:"errors"`
	TotalErrors int      `json:"total_errors"`
}

// NewJob builds an import job.
func NewJob(params JobParams) (*Job, error) {
	if params.Device == nil {
		return nil, errors.New("device client is required")
	}
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	errorCap := params.ErrorCap
	if errorCap <= 0 {
		errorCap = 10
	}
	planLabel := strings.TrimSpace(params.PlanLabel)
	if planLabel == "" {
		planLabel = DefaultPlanLabel
	}
	return &Job{
		device:    params.Device,
		repo:      params.Repo,
		logger:    params.Logger,
		errorCap:  errorCap,
		planLabel: planLabel,
	}, nil
}

// Run lists the device queues and creates a subscriber for every queue whose
// address is valid and not yet registered.
func (j *Job) Run(ctx context.Context) (Result, error) {
	queues, err := j.device.ListQueues(ctx)
	if err != nil {
		return Result{}, err
	}

	var result Result
	for _, queue := range queues {
		address := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(queue.Target), "/32"))
		if ip := net.ParseIP(address); ip == nil || ip.To4() == nil {
			// Queues without a plain IPv4 target are not subscriber
			// queues; skip them silently.
			continue
		}

		existing, err := j.repo.FindByAddress(ctx, address)
		if err != nil {
			result.addError(j.errorCap, fmt.Sprintf("%s: %v", queue.Name, err))
			continue
		}
		if existing != nil {
			result.Skipped++
			continue
		}

		uploadRate, downloadRate := splitMaxLimit(queue.MaxLimit)

		state := enums.SubscriberStateActive
		if queue.IsDisabled() {
			state = enums.SubscriberStateSuspended
		}

		planLabel := strings.TrimSpace(queue.Comment)
		if planLabel == "" {
			planLabel = j.planLabel
		}

		subscriber := &models.Subscriber{
			Name:         queue.Name,
			IPAddress:    address,
			State:        state,
			PlanLabel:    planLabel,
			DownloadRate: downloadRate,
			UploadRate:   uploadRate,
			QueueID:      queue.ID,
			QueueName:    queue.Name,
			CutoffDay:    1,
		}
		if err := j.repo.Create(ctx, subscriber); err != nil {
			result.addError(j.errorCap, fmt.Sprintf("%s: %v", queue.Name, err))
			continue
		}
		result.Imported++
	}

	logCtx := j.logger.WithFields(ctx, map[string]any{
		"imported": result.Imported,
		"skipped":  result.Skipped,
		"errors":   result.TotalErrors,
	})
	j.logger.Info(logCtx, "device import finished")
	return result, nil
}

func (r *Result) addError(limit int, msg string) {
	r.TotalErrors++
	if len(r.Errors) < limit {
		r.Errors = append(r.Errors, msg)
	}
}

// splitMaxLimit parses the device's combined "upload/download" rate field.
func splitMaxLimit(maxLimit string) (upload, download string) {
	upload, download = "5M", "10M"
	parts := strings.Split(strings.TrimSpace(maxLimit), "/")
	if len(parts) > 0 && parts[0] != "" {
		upload = parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		download = parts[1]
	}
	return upload, download
}
