package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/paybook/internal/employee/domain"
)

type service struct {
	repo  domain.Repository
	genID *snowflake.Node
}

func NewService(repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &service{repo: repo, genID: genID}
}

func (s *service) Create(ctx context.Context, orgID snowflake.ID, req domain.CreateEmployeeRequest) (*domain.Employee, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if req.BasicSalary < 0 {
		return nil, domain.ErrNegativeSalary
	}

	now := time.Now().UTC()
	employee := &domain.Employee{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		FullName:    name,
		Designation: strings.TrimSpace(req.Designation),
		Phone:       strings.TrimSpace(req.Phone),
		BasicSalary: req.BasicSalary,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, employee); err != nil {
		return nil, err
	}
	return employee, nil
}

func (s *service) Get(ctx context.Context, orgID, id snowflake.ID) (*domain.Employee, error) {
	return s.repo.FindByID(ctx, orgID, id)
}

func (s *service) Update(ctx context.Context, orgID, id snowflake.ID, req domain.UpdateEmployeeRequest) (*domain.Employee, error) {
	employee, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		employee.FullName = name
	}
	if req.Designation != nil {
		employee.Designation = strings.TrimSpace(*req.Designation)
	}
	if req.Phone != nil {
		employee.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.BasicSalary != nil {
		if *req.BasicSalary < 0 {
			return nil, domain.ErrNegativeSalary
		}
		employee.BasicSalary = *req.BasicSalary
	}
	if req.IsActive != nil {
		employee.IsActive = *req.IsActive
	}
	employee.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, employee); err != nil {
		return nil, err
	}
	return employee, nil
}

func (s *service) Deactivate(ctx context.Context, orgID, id snowflake.ID) error {
	employee, err := s.repo.FindByID(ctx, orgID, id)
	if err != nil {
		return err
	}
	if !employee.IsActive {
		return nil
	}
	employee.IsActive = false
	employee.UpdatedAt = time.Now().UTC()
	return s.repo.Update(ctx, employee)
}

func (s *service) List(ctx context.Context, orgID snowflake.ID, activeOnly bool) ([]domain.Employee, error) {
	return s.repo.List(ctx, orgID, activeOnly)
}
