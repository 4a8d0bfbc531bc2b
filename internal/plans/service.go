package plans

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cuzonet/cuzonet-backend/pkg/db/models"
	pkgerrors "github.com/cuzonet/cuzonet-backend/pkg/errors"
)

// ServiceParams groups dependencies for the plan catalog service.
type ServiceParams struct {
	Repo Repository
}

// Service manages the plan catalog. Plans are templates: edits never rewrite
// the rates already copied onto subscribers.
type Service struct {
	repo Repository
}

// NewService builds a plan catalog service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Service{repo: params.Repo}, nil
}

// PlanParams carries the editable plan fields.
type PlanParams struct {
	Name         string
	DownloadRate string
	UploadRate   string
	Price        decimal.Decimal
	Description  string
}

func (p PlanParams) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan name is required")
	}
	if strings.TrimSpace(p.DownloadRate) == "" || strings.TrimSpace(p.UploadRate) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "both download and upload rates are required")
	}
	if p.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan price cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, params PlanParams) (*models.Plan, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(params.Name)
	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("plan %q already exists", name))
	}

	plan := &models.Plan{
		Name:         name,
		DownloadRate: strings.TrimSpace(params.DownloadRate),
		UploadRate:   strings.TrimSpace(params.UploadRate),
		Price:        params.Price,
		Description:  strings.TrimSpace(params.Description),
	}
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) Update(ctx context.Context, id uint, params PlanParams) (*models.Plan, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(params.Name)
	if name != plan.Name {
		existing, err := s.repo.FindByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("plan %q already exists", name))
		}
	}

	plan.Name = name
	plan.DownloadRate = strings.TrimSpace(params.DownloadRate)
	plan.UploadRate = strings.TrimSpace(params.UploadRate)
	plan.Price = params.Price
	plan.Description = strings.TrimSpace(params.Description)

	if err := s.repo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Plan, error) {
	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

// FindByID satisfies the lifecycle engine's catalog interface. A missing plan
// returns nil rather than an error so callers can shape their own message.
func (s *Service) FindByID(ctx context.Context, id uint) (*models.Plan, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Plan, error) {
	return s.repo.List(ctx)
}
