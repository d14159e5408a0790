package service

import (
	"context"
	"errors"
	"strings"

	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/codegen"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/entity"
	"github.com/pratyush-pilli/cimventory-sub000/internal/pms/repository"
	"github.com/pratyush-pilli/cimventory-sub000/internal/shared/apperr"
)

// ProjectService project registry
type ProjectService struct {
	repos *repository.Repositories
}

func NewProjectService(repos *repository.Repositories) *ProjectService {
	return &ProjectService{repos: repos}
}

type CreateProjectRequest struct {
	ProjectCode string `json:"project_code" binding:"required"`
	Name        string `json:"name"`
	DivisionID  string `json:"division_id"`
	BillTo      string `json:"bill_to"`
	ShipTo      string `json:"ship_to"`
	ApprovedBy  string `json:"approved_by"`
	RequestedBy string `json:"requested_by"`
}

func (s *ProjectService) CreateProject(ctx context.Context, req *CreateProjectRequest) (*entity.Project, error) {
	code := strings.ToUpper(strings.TrimSpace(req.ProjectCode))
	if !codegen.ValidProjectCode(code) {
		return nil, apperr.Validation("project code may only hold A-Z, 0-9 and '-'", "project_code")
	}
	if _, err := s.repos.Project.FindByCode(ctx, code); err == nil {
		return nil, apperr.Conflict("project code already exists", code)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.FromDB(err)
	}

	p := &entity.Project{
		ProjectCode: code,
		Name:        req.Name,
		DivisionID:  req.DivisionID,
		BillTo:      req.BillTo,
		ShipTo:      req.ShipTo,
		ApprovedBy:  req.ApprovedBy,
		RequestedBy: req.RequestedBy,
	}
	if err := s.repos.Project.Create(ctx, p); err != nil {
		return nil, apperr.FromDB(err)
	}
	return p, nil
}

func (s *ProjectService) GetProject(ctx context.Context, code string) (*entity.Project, error) {
	p, err := s.repos.Project.FindByCode(ctx, code)
	if err != nil {
		return nil, orNotFound(err, "project", code)
	}
	return p, nil
}

func (s *ProjectService) ListProjects(ctx context.Context, page, pageSize int, search string) ([]entity.Project, int64, error) {
	return s.repos.Project.List(ctx, page, pageSize, search)
}
