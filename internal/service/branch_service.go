package service

import (
	"context"
	"errors"

	"oryon/internal/model"
	"oryon/internal/repository"
	"oryon/pkg/apperr"

	"gorm.io/gorm"
)

type BranchRequest struct {
	ID      string `json:"id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type BranchResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type BranchService interface {
	Create(ctx context.Context, req BranchRequest) (*BranchResponse, error)
	Get(ctx context.Context, id string) (*BranchResponse, error)
	List(ctx context.Context) ([]BranchResponse, error)
}

type branchService struct {
	repo repository.BranchRepository
}

func NewBranchService(repo repository.BranchRepository) BranchService {
	return &branchService{repo: repo}
}

func (s *branchService) Create(ctx context.Context, req BranchRequest) (*BranchResponse, error) {
	if _, err := s.repo.FindByID(ctx, req.ID); err == nil {
		return nil, apperr.New(apperr.KindConflict, "branch %q already exists", req.ID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.KindInternal, err, "checking branch id")
	}

	branch := model.Branch{
		ID:      req.ID,
		Name:    req.Name,
		Address: req.Address,
		Phone:   req.Phone,
	}
	if err := s.repo.Create(ctx, &branch); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "creating branch")
	}
	return mapBranch(&branch), nil
}

func (s *branchService) Get(ctx context.Context, id string) (*BranchResponse, error) {
	branch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "branch %q not found", id)
		}
		return nil, apperr.Wrap(apperr.KindInternal, err, "loading branch")
	}
	return mapBranch(branch), nil
}

func (s *branchService) List(ctx context.Context) ([]BranchResponse, error) {
	branches, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "listing branches")
	}
	out := make([]BranchResponse, 0, len(branches))
	for i := range branches {
		out = append(out, *mapBranch(&branches[i]))
	}
	return out, nil
}

func mapBranch(b *model.Branch) *BranchResponse {
	return &BranchResponse{ID: b.ID, Name: b.Name, Address: b.Address, Phone: b.Phone}
}
