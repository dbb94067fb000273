package service

import (
	"context"

	"asksource-be/internal/dto"
)

type IProjectService interface {
	ListProjects(ctx context.Context) ([]dto.ProjectResponse, error)
}

// projectService serves the configured catalog. Project ids are opaque to this
// backend; the answering service owns the corpora behind them.
type projectService struct {
	catalog []string
}

func NewProjectService(catalog []string) IProjectService {
	return &projectService{catalog: append([]string(nil), catalog...)}
}

func (s *projectService) ListProjects(ctx context.Context) ([]dto.ProjectResponse, error) {
	if _, err := requireIdentity(ctx); err != nil {
		return nil, err
	}
	res := make([]dto.ProjectResponse, 0, len(s.catalog))
	for _, p := range s.catalog {
		res = append(res, dto.ProjectResponse{Id: p, Name: p})
	}
	return res, nil
}
