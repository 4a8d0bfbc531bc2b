package payments

import (
	"context"
	"errors"

	"github.com/cuzonet/cuzonet-backend/pkg/db/models"
	pkgerrors "github.com/cuzonet/cuzonet-backend/pkg/errors"
)

// ServiceParams groups dependencies for the payments read service.
type ServiceParams struct {
	Repo Repository
}

// Service serves payment listings. Recording and deleting payments live on
// the subscriber lifecycle service since both mutate subscriber balances.
type Service struct {
	repo Repository
}

// NewService builds a payments service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

func (s *Service) List(ctx context.Context) ([]models.Payment, error) {
	return s.repo.List(ctx)
}

func (s *Service) ListBySubscriber(ctx context.Context, subscriberID uint) ([]models.Payment, error) {
	if subscriberID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscriber id is required")
	}
	return s.repo.ListBySubscriber(ctx, subscriberID)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}
