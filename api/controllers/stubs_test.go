package controllers

import (
	"context"
	"io"
	"testing"

	"gorm.io/gorm"

	"github.com/cuzonet/cuzonet-backend/internal/payments"
	"github.com/cuzonet/cuzonet-backend/internal/subscribers"
	"github.com/cuzonet/cuzonet-backend/pkg/db/models"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

type stubSubscriberRepo struct {
	byID      map[uint]*models.Subscriber
	byAddress map[string]*models.Subscriber
	nextID    uint
}

func newStubSubscriberRepo() *stubSubscriberRepo {
	return &stubSubscriberRepo{
		byID:      map[uint]*models.Subscriber{},
		byAddress: map[string]*models.Subscriber{},
		nextID:    1,
	}
}

func (r *stubSubscriberRepo) WithTx(tx *gorm.DB) subscribers.Repository { return r }

func (r *stubSubscriberRepo) Create(ctx context.Context, s *models.Subscriber) error {
	s.ID = r.nextID
	r.nextID++
	copied := *s
	r.byID[s.ID] = &copied
	r.byAddress[s.IPAddress] = &copied
	return nil
}

func (r *stubSubscriberRepo) Update(ctx context.Context, s *models.Subscriber) error {
	copied := *s
	r.byID[s.ID] = &copied
	r.byAddress[s.IPAddress] = &copied
	return nil
}

func (r *stubSubscriberRepo) Delete(ctx context.Context, id uint) error {
	if existing, ok := r.byID[id]; ok {
		delete(r.byAddress, existing.IPAddress)
	}
	delete(r.byID, id)
	return nil
}

func (r *stubSubscriberRepo) FindByID(ctx context.Context, id uint) (*models.Subscriber, error) {
	if existing, ok := r.byID[id]; ok {
		copied := *existing
		return &copied, nil
	}
	return nil, nil
}

func (r *stubSubscriberRepo) FindByAddress(ctx context.Context, address string) (*models.Subscriber, error) {
	if existing, ok := r.byAddress[address]; ok {
		copied := *existing
		return &copied, nil
	}
	return nil, nil
}

func (r *stubSubscriberRepo) List(ctx context.Context, query subscribers.ListQuery) ([]models.Subscriber, error) {
	out := make([]models.Subscriber, 0, len(r.byID))
	for _, s := range r.byID {
		if query.State != nil && s.State != *query.State {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

type stubPaymentRepo struct {
	byID   map[uint]*models.Payment
	nextID uint
}

func newStubPaymentRepo() *stubPaymentRepo {
	return &stubPaymentRepo{byID: map[uint]*models.Payment{}, nextID: 1}
}

func (r *stubPaymentRepo) WithTx(tx *gorm.DB) payments.Repository { return r }

func (r *stubPaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	p.ID = r.nextID
	r.nextID++
	copied := *p
	r.byID[p.ID] = &copied
	return nil
}

func (r *stubPaymentRepo) Delete(ctx context.Context, id uint) error {
	delete(r.byID, id)
	return nil
}

func (r *stubPaymentRepo) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	if existing, ok := r.byID[id]; ok {
		copied := *existing
		return &copied, nil
	}
	return nil, nil
}

func (r *stubPaymentRepo) List(ctx context.Context) ([]models.Payment, error) {
	out := make([]models.Payment, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (r *stubPaymentRepo) ListBySubscriber(ctx context.Context, subscriberID uint) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range r.byID {
		if p.SubscriberID == subscriberID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func newTestSubscriberService(t *testing.T, repo *stubSubscriberRepo, paymentRepo *stubPaymentRepo) *subscribers.Service {
	t.Helper()
	svc, err := subscribers.NewService(subscribers.ServiceParams{
		Repo:     repo,
		Payments: paymentRepo,
		Tx:       stubTxRunner{},
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}
