package importer

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/cuzonet/cuzonet-backend/internal/subscribers"
	"github.com/cuzonet/cuzonet-backend/pkg/db/models"
	"github.com/cuzonet/cuzonet-backend/pkg/enums"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
	"github.com/cuzonet/cuzonet-backend/pkg/routeros"
)

type stubLister struct {
	queues []routeros.Queue
	err    error
}

func (s *stubLister) ListQueues(ctx context.Context) ([]routeros.Queue, error) {
	return s.queues, s.err
}

type stubRepo struct {
	existing  map[string]*models.Subscriber
	created   []*models.Subscriber
	createErr error
}

func (r *stubRepo) WithTx(tx *gorm.DB) subscribers.Repository { return r }

func (r *stubRepo) Create(ctx context.Context, subscriber *models.Subscriber) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.created = append(r.created, subscriber)
	return nil
}

func (r *stubRepo) Update(ctx context.Context, subscriber *models.Subscriber) error { return nil }
func (r *stubRepo) Delete(ctx context.Context, id uint) error                       { return nil }
func (r *stubRepo) FindByID(ctx context.Context, id uint) (*models.Subscriber, error) {
	return nil, nil
}

func (r *stubRepo) FindByAddress(ctx context.Context, address string) (*models.Subscriber, error) {
	if r.existing == nil {
		return nil, nil
	}
	return r.existing[address], nil
}

func (r *stubRepo) List(ctx context.Context, query subscribers.ListQuery) ([]models.Subscriber, error) {
	return nil, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard})
}

func newJob(t *testing.T, lister QueueLister, repo subscribers.Repository, errorCap int) *Job {
	t.Helper()
	job, err := NewJob(JobParams{Device: lister, Repo: repo, Logger: testLogger(), ErrorCap: errorCap})
	if err != nil {
		t.Fatalf("building job: %v", err)
	}
	return job
}

func TestRun_ImportsNewQueues(t *testing.T) {
	lister := &stubLister{queues: []routeros.Queue{
		{ID: "*1", Name: "cliente-a", Target: "10.0.0.5/32", MaxLimit: "5M/10M", Comment: "Plan Basico"},
		{ID: "*2", Name: "cliente-b", Target: "10.0.0.6/32", MaxLimit: "10M/20M", Disabled: "true"},
	}}
	repo := &stubRepo{}
	job := newJob(t, lister, repo, 10)

	result, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Imported != 2 || result.Skipped != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	first := repo.created[0]
	if first.IPAddress != "10.0.0.5" {
		t.Fatalf("single-host suffix not stripped: %q", first.IPAddress)
	}
	if first.UploadRate != "5M" || first.DownloadRate != "10M" {
		t.Fatalf("max-limit not split upload/download: %s/%s", first.UploadRate, first.DownloadRate)
	}
	if first.PlanLabel != "Plan Basico" {
		t.Fatalf("comment not used as plan label: %q", first.PlanLabel)
	}
	if first.QueueID != "*1" {
		t.Fatalf("queue id not attached: %q", first.QueueID)
	}
	if first.State != enums.SubscriberStateActive {
		t.Fatalf("expected active, got %s", first.State)
	}

	second := repo.created[1]
	if second.State != enums.SubscriberStateSuspended {
		t.Fatalf("disabled queue must import as suspended, got %s", second.State)
	}
	if second.PlanLabel != DefaultPlanLabel {
		t.Fatalf("expected placeholder plan label, got %q", second.PlanLabel)
	}
}

func TestRun_SkipsExistingAndInvalid(t *testing.T) {
	lister := &stubLister{queues: []routeros.Queue{
		{ID: "*1", Name: "known", Target: "10.0.0.5/32", MaxLimit: "5M/10M"},
		{ID: "*2", Name: "not-a-host", Target: "all-lan", MaxLimit: "5M/10M"},
		{ID: "*3", Name: "bad-ip", Target: "300.1.1.1/32", MaxLimit: "5M/10M"},
	}}
	repo := &stubRepo{existing: map[string]*models.Subscriber{
		"10.0.0.5": {ID: 1, IPAddress: "10.0.0.5"},
	}}
	job := newJob(t, lister, repo, 10)

	result, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Imported != 0 {
		t.Fatalf("nothing should import, got %d", result.Imported)
	}
	if result.Skipped != 1 {
		t.Fatalf("existing address must count as skipped, got %d", result.Skipped)
	}
	if result.TotalErrors != 0 {
		t.Fatalf("invalid targets skip silently, got %d errors", result.TotalErrors)
	}
}

func TestRun_ErrorListIsCapped(t *testing.T) {
	queues := make([]routeros.Queue, 5)
	for i := range queues {
		queues[i] = routeros.Queue{
			ID:       "*1",
			Name:     "q",
			Target:   "10.0.0.5/32",
			MaxLimit: "5M/10M",
		}
	}
	// Distinct addresses so every row reaches Create.
	queues[1].Target = "10.0.0.6/32"
	queues[2].Target = "10.0.0.7/32"
	queues[3].Target = "10.0.0.8/32"
	queues[4].Target = "10.0.0.9/32"

	repo := &stubRepo{createErr: errors.New("insert failed")}
	job := newJob(t, &stubLister{queues: queues}, repo, 2)

	result, err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected capped error list of 2, got %d", len(result.Errors))
	}
	if result.TotalErrors != 5 {
		t.Fatalf("expected 5 total errors, got %d", result.TotalErrors)
	}
}

func TestRun_DeviceFailurePropagates(t *testing.T) {
	job := newJob(t, &stubLister{err: errors.New("device unreachable")}, &stubRepo{}, 10)
	if _, err := job.Run(context.Background()); err == nil {
		t.Fatal("expected device listing failure to propagate")
	}
}
