// Package subscribers implements the lifecycle engine that keeps the
// subscriber registry and the device's queues and block list in step. Device
// calls always run before the registry commit, so a rejected call never
// leaves a half-applied transition.
package subscribers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/cuzonet/cuzonet-backend/internal/payments"
	"github.com/cuzonet/cuzonet-backend/pkg/db"
	"github.com/cuzonet/cuzonet-backend/pkg/db/models"
	"github.com/cuzonet/cuzonet-backend/pkg/enums"
	pkgerrors "github.com/cuzonet/cuzonet-backend/pkg/errors"
	"github.com/cuzonet/cuzonet-backend/pkg/locks"
	"github.com/cuzonet/cuzonet-backend/pkg/logger"
	"github.com/cuzonet/cuzonet-backend/pkg/routeros"
	"github.com/cuzonet/cuzonet-backend/pkg/sanitize"
)

// DeviceClient is the slice of the device control client the engine uses.
// A nil DeviceClient means no device is configured: transitions then run as
// registry-only bookkeeping.
type DeviceClient interface {
	CreateQueue(ctx context.Context, params routeros.QueueCreateParams) (string, error)
	UpdateQueue(ctx context.Context, queueID string, update routeros.QueueUpdate) error
	SetQueueEnabled(ctx context.Context, queueID string, enabled bool) error
	DeleteQueue(ctx context.Context, queueID string) error
	AddToBlockList(ctx context.Context, address, comment string) (string, error)
	RemoveFromBlockList(ctx context.Context, address string) error
}

// PlanCatalog resolves plans referenced at registration and plan changes.
type PlanCatalog interface {
	FindByID(ctx context.Context, id uint) (*models.Plan, error)
}

// TxRunner runs a function inside one database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the lifecycle engine.
type ServiceParams struct {
	Repo     Repository
	Payments payments.Repository
	Plans    PlanCatalog
	Device   DeviceClient
	Tx       TxRunner
	Logger   *logger.Logger
	Now      func() time.Time
}

// Service orchestrates subscriber lifecycle transitions.
type Service struct {
	repo     Repository
	payments payments.Repository
	plans    PlanCatalog
	device   DeviceClient
	tx       TxRunner
	locks    *locks.KeyedMutex
	logger   *logger.Logger
	now      func() time.Time
}

// NewService builds the lifecycle engine.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Payments == nil {
		return nil, errors.New("payments repo is required")
	}
	if params.Tx == nil {
		return nil, errors.New("tx runner is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     params.Repo,
		payments: params.Payments,
		plans:    params.Plans,
		device:   params.Device,
		tx:       params.Tx,
		locks:    locks.NewKeyedMutex(),
		logger:   params.Logger,
		now:      now,
	}, nil
}

// RegisterParams carries the fields for registering a new subscriber.
type RegisterParams struct {
	Name         string
	IPAddress    string
	PlanID       *uint
	PlanLabel    string
	DownloadRate string
	UploadRate   string
	Price        decimal.Decimal
	CutoffDay    int
	Phone        string
	Email        string
	Street       string
	NationalID   string
}

// Register creates the subscriber, creating its device queue first when a
// device is configured.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.Subscriber, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscriber name is required")
	}
	address, err := validateIPv4(params.IPAddress)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("address %s is already registered", address))
	}

	downloadRate := strings.TrimSpace(params.DownloadRate)
	uploadRate := strings.TrimSpace(params.UploadRate)
	planLabel := strings.TrimSpace(params.PlanLabel)
	price := params.Price

	if params.PlanID != nil && s.plans != nil {
		plan, err := s.plans.FindByID(ctx, *params.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan not found")
		}
		downloadRate = plan.DownloadRate
		uploadRate = plan.UploadRate
		price = plan.Price
		planLabel = plan.Name
	}
	if downloadRate == "" || uploadRate == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both download and upload rates are required")
	}
	if planLabel == "" {
		planLabel = "Basico"
	}

	cutoffDay := ClampCutoffDay(params.CutoffDay)
	queueName := QueueName(name, address)

	subscriber := &models.Subscriber{
		Name:         name,
		IPAddress:    address,
		State:        enums.SubscriberStateActive,
		PlanID:       params.PlanID,
		PlanLabel:    planLabel,
		DownloadRate: downloadRate,
		UploadRate:   uploadRate,
		Price:        price,
		Balance:      decimal.Zero,
		QueueName:    queueName,
		CutoffDay:    cutoffDay,
		Phone:        strings.TrimSpace(params.Phone),
		Email:        strings.TrimSpace(params.Email),
		Street:       strings.TrimSpace(params.Street),
		NationalID:   strings.TrimSpace(params.NationalID),
	}
	nextDue := NextDueOnRegister(s.now(), cutoffDay)
	subscriber.NextDueDate = &nextDue

	if s.device != nil {
		queueID, err := s.device.CreateQueue(ctx, routeros.QueueCreateParams{
			Name:         queueName,
			Target:       address,
			DownloadRate: downloadRate,
			UploadRate:   uploadRate,
			Comment:      planLabel,
		})
		if err != nil {
			return nil, err
		}
		subscriber.QueueID = queueID
	}

	if err := s.repo.Create(ctx, subscriber); err != nil {
		if s.device != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDataIntegrity, err,
				"queue created on device but registry commit failed")
		}
		// The FindByAddress pre-check is racy; the unique index is the
		// real guarantee.
		if db.IsUniqueViolation(err, "uq_subscribers_ip_address") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err,
				fmt.Sprintf("address %s is already registered", address))
		}
		return nil, err
	}
	return subscriber, nil
}

// Get fetches one subscriber.
func (s *Service) Get(ctx context.Context, id uint) (*models.Subscriber, error) {
	subscriber, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if subscriber == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscriber not found")
	}
	return subscriber, nil
}

// List fetches subscribers matching the query.
func (s *Service) List(ctx context.Context, query ListQuery) ([]models.Subscriber, error) {
	return s.repo.List(ctx, query)
}

// Suspend disables the subscriber's queue and marks it Suspended.
func (s *Service) Suspend(ctx context.Context, id uint) (*models.Subscriber, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	subscriber, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if subscriber.State != enums.SubscriberStateActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot suspend subscriber in state %s", subscriber.State))
	}

	if s.device != nil && subscriber.QueueID != "" {
		if err := s.device.SetQueueEnabled(ctx, subscriber.QueueID, false); err != nil {
			return nil, err
		}
	}

	subscriber.State = enums.SubscriberStateSuspended
	if err := s.repo.Update(ctx, subscriber); err != nil {
		return nil, s.commitFailure(err, subscriber.QueueID != "")
	}
	return subscriber, nil
}

// CutOff adds the subscriber's address to the firewall block list and marks
// it CutOff. The queue stays in place so re-activation is a single toggle.
func (s *Service) CutOff(ctx context.Context, id uint) (*models.Subscriber, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	subscriber, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if subscriber.State == enums.SubscriberStateCutOff {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscriber is already cut off")
	}

	if s.device != nil {
		comment := fmt.Sprintf("Corte: %s - %s", sanitize.Text(subscriber.Name), s.now().Format("2006-01-02"))
		if _, err := s.device.AddToBlockList(ctx, subscriber.IPAddress, comment); err != nil {
			return nil, err
		}
	}

	subscriber.State = enums.SubscriberStateCutOff
	if err := s.repo.Update(ctx, subscriber); err != nil {
		return nil, s.commitFailure(err, true)
	}
	return subscriber, nil
}

// Activate re-enables the subscriber without a payment: enables the queue,
// removes the block-list entry when cut off, and marks it Active.
func (s *Service) Activate(ctx context.Context, id uint) (*models.Subscriber, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	subscriber, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if subscriber.State == enums.SubscriberStateActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscriber is already active")
	}

	if err := s.reinstate(ctx, subscriber); err != nil {
		return nil, err
	}

	subscriber.State = enums.SubscriberStateActive
	if err := s.repo.Update(ctx, subscriber); err != nil {
		return nil, s.commitFailure(err, true)
	}
	return subscriber, nil
}

// PaymentParams carries the fields of one recorded payment.
type PaymentParams struct {
	Amount      decimal.Decimal
	PeriodLabel string
	Method      string
	Reference   string
	Note        string
}

// RecordPayment stores the payment, lowers the balance (floored at zero),
// advances the due date one cycle and re-activates a suspended or cut off
// subscriber. The payment row and the subscriber update commit in one
// transaction.
func (s *Service) RecordPayment(ctx context.Context, id uint, params PaymentParams) (*models.Payment, error) {
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be greater than zero")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	subscriber, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	wasCutOff := subscriber.State == enums.SubscriberStateCutOff
	needsReinstate := subscriber.State != enums.SubscriberStateActive

	if needsReinstate {
		if err := s.reinstate(ctx, subscriber); err != nil {
			return nil, err
		}
	}

	periodLabel := strings.TrimSpace(params.PeriodLabel)
	if periodLabel == "" {
		periodLabel = now.Format("2006-01")
	}
	method := strings.TrimSpace(params.Method)
	if method == "" {
		method = "efectivo"
	}

	payment := &models.Payment{
		SubscriberID: subscriber.ID,
		Amount:       params.Amount,
		Method:       method,
		Reference:    strings.TrimSpace(params.Reference),
		PeriodLabel:  periodLabel,
		Note:         strings.TrimSpace(params.Note),
		PaidAt:       now,
	}

	balance := subscriber.Balance.Sub(params.Amount)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	subscriber.Balance = balance
	subscriber.LastPaymentAt = &now
	nextDue := NextDueAfterPayment(now, subscriber.CutoffDay)
	subscriber.NextDueDate = &nextDue
	subscriber.State = enums.SubscriberStateActive

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.payments.WithTx(tx).Create(ctx, payment); err != nil {
			return err
		}
		return s.repo.WithTx(tx).Update(ctx, subscriber)
	})
	if err != nil {
		return nil, s.commitFailure(err, needsReinstate || wasCutOff)
	}
	return payment, nil
}

// DeletePayment removes a recorded payment and adds its amount back onto the
// subscriber's balance. The lifecycle state is untouched.
func (s *Service) DeletePayment(ctx context.Context, paymentID uint) error {
	payment, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}

	unlock := s.locks.Lock(payment.SubscriberID)
	defer unlock()

	subscriber, err := s.repo.FindByID(ctx, payment.SubscriberID)
	if err != nil {
		return err
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.payments.WithTx(tx).Delete(ctx, payment.ID); err != nil {
			return err
		}
		if subscriber != nil {
			subscriber.Balance = subscriber.Balance.Add(payment.Amount)
			return s.repo.WithTx(tx).Update(ctx, subscriber)
		}
		return nil
	})
}

// UpdatePlanParams carries a plan change. Either a catalog plan id or an
// explicit rate pair plus price.
type UpdatePlanParams struct {
	PlanID       *uint
	DownloadRate string
	UploadRate   string
	Price        *decimal.Decimal
}

// UpdatePlan changes the subscriber's rate pair and price. Not a state
// transition: the queue keeps its enabled flag and the state is untouched.
func (s *Service) UpdatePlan(ctx context.Context, id uint, params UpdatePlanParams) (*models.Subscriber, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	subscriber, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	downloadRate := strings.TrimSpace(params.DownloadRate)
	uploadRate := strings.TrimSpace(params.UploadRate)

	if params.PlanID != nil {
		if s.plans == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan catalog is not available")
		}
		plan, err := s.plans.FindByID(ctx, *params.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan not found")
		}
		subscriber.PlanID = params.PlanID
		subscriber.PlanLabel = plan.Name
		subscriber.DownloadRate = plan.DownloadRate
		subscriber.UploadRate = plan.UploadRate
		subscriber.Price = plan.Price
	} else {
		if downloadRate == "" || uploadRate == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "both download and upload rates are required")
		}
		subscriber.DownloadRate = downloadRate
		subscriber.UploadRate = uploadRate
		if params.Price != nil {
			subscriber.Price = *params.Price
		}
	}

	if s.device != nil && subscriber.QueueID != "" {
		update := routeros.QueueUpdate{
			DownloadRate: routeros.String(subscriber.DownloadRate),
			UploadRate:   routeros.String(subscriber.UploadRate),
			Comment:      routeros.String(subscriber.PlanLabel),
		}
		if err := s.device.UpdateQueue(ctx, subscriber.QueueID, update); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, subscriber); err != nil {
		return nil, s.commitFailure(err, subscriber.QueueID != "")
	}
	return subscriber, nil
}

// UpdateAddress moves the subscriber to a new network address: unique-checks
// the registry, retargets the queue, and migrates the block-list entry when
// the subscriber is cut off.
func (s *Service) UpdateAddress(ctx context.Context, id uint, newAddress string) (*models.Subscriber, error) {
	address, err := validateIPv4(newAddress)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	subscriber, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if subscriber.IPAddress == address {
		return subscriber, nil
	}

	existing, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("address %s is already registered", address))
	}

	oldAddress := subscriber.IPAddress
	if s.device != nil {
		if subscriber.QueueID != "" {
			if err := s.device.UpdateQueue(ctx, subscriber.QueueID, routeros.QueueUpdate{
				Target: routeros.String(address),
			}); err != nil {
				return nil, err
			}
		}
		if subscriber.State.Blocked() {
			if err := s.device.RemoveFromBlockList(ctx, oldAddress); err != nil {
				return nil, err
			}
			comment := fmt.Sprintf("Corte: %s - %s", sanitize.Text(subscriber.Name), s.now().Format("2006-01-02"))
			if _, err := s.device.AddToBlockList(ctx, address, comment); err != nil {
				return nil, err
			}
		}
	}

	subscriber.IPAddress = address
	if err := s.repo.Update(ctx, subscriber); err != nil {
		return nil, s.commitFailure(err, subscriber.QueueID != "")
	}
	return subscriber, nil
}

// ContactParams carries the registry-only data entry fields.
type ContactParams struct {
	Name       *string
	Phone      *string
	Email      *string
	Street     *string
	NationalID *string
	CutoffDay  *int
}

// UpdateContact edits data-entry fields. No device calls are made.
func (s *Service) UpdateContact(ctx context.Context, id uint, params ContactParams) (*models.Subscriber, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	subscriber, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil && strings.TrimSpace(*params.Name) != "" {
		subscriber.Name = strings.TrimSpace(*params.Name)
	}
	if params.Phone != nil {
		subscriber.Phone = strings.TrimSpace(*params.Phone)
	}
	if params.Email != nil {
		subscriber.Email = strings.TrimSpace(*params.Email)
	}
	if params.Street != nil {
		subscriber.Street = strings.TrimSpace(*params.Street)
	}
	if params.NationalID != nil {
		subscriber.NationalID = strings.TrimSpace(*params.NationalID)
	}
	if params.CutoffDay != nil {
		subscriber.CutoffDay = ClampCutoffDay(*params.CutoffDay)
	}

	if err := s.repo.Update(ctx, subscriber); err != nil {
		return nil, err
	}
	return subscriber, nil
}

// Delete removes the subscriber. Device cleanup runs first but never blocks
// the registry deletion; its errors are collected and logged.
func (s *Service) Delete(ctx context.Context, id uint) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	subscriber, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var cleanupErr error
	if s.device != nil {
		if subscriber.State.Blocked() {
			cleanupErr = multierr.Append(cleanupErr, s.device.RemoveFromBlockList(ctx, subscriber.IPAddress))
		}
		if subscriber.QueueID != "" {
			cleanupErr = multierr.Append(cleanupErr, s.device.DeleteQueue(ctx, subscriber.QueueID))
		}
	}
	if cleanupErr != nil {
		logCtx := s.logger.WithSubscriberID(ctx, subscriber.ID)
		s.logger.Warn(logCtx, fmt.Sprintf("device cleanup during delete failed: %v", cleanupErr))
	}

	return s.repo.Delete(ctx, subscriber.ID)
}

// reinstate performs the device side of returning a subscriber to Active.
func (s *Service) reinstate(ctx context.Context, subscriber *models.Subscriber) error {
	if s.device == nil {
		return nil
	}
	if subscriber.QueueID != "" {
		if err := s.device.SetQueueEnabled(ctx, subscriber.QueueID, true); err != nil {
			return err
		}
	}
	if subscriber.State.Blocked() {
		if err := s.device.RemoveFromBlockList(ctx, subscriber.IPAddress); err != nil {
			return err
		}
	}
	return nil
}

// commitFailure upgrades a registry error to a data-integrity error when a
// device mutation already succeeded.
func (s *Service) commitFailure(err error, deviceTouched bool) error {
	if err == nil {
		return nil
	}
	if deviceTouched && s.device != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDataIntegrity, err,
			"device updated but registry commit failed")
	}
	return err
}

// QueueName derives the device queue name for a subscriber. Stable once set:
// callers persist it at registration and never recompute it on rename.
func QueueName(name, address string) string {
	return fmt.Sprintf("cliente-%s-%s", sanitize.Slug(name), strings.ReplaceAll(address, ".", "-"))
}

func validateIPv4(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	ip := net.ParseIP(trimmed)
	if ip == nil || ip.To4() == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("invalid IPv4 address %q", address))
	}
	return trimmed, nil
}
