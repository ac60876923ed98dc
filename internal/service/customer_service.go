package service

import (
	"context"
	"errors"
	"fmt"

	"oryon/internal/model"
	"oryon/internal/repository"
	"oryon/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRequest struct {
	Name           string `json:"name" binding:"required"`
	Phone          string `json:"phone" binding:"required"`
	Email          string `json:"email" binding:"omitempty,email"`
	Identification string `json:"identification"`
	Address        string `json:"address"`
}

type CustomerResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Identification string `json:"identification"`
	Address        string `json:"address"`
}

type CustomerService interface {
	Create(ctx context.Context, actor Actor, req CustomerRequest) (*CustomerResponse, error)
	Update(ctx context.Context, id string, req CustomerRequest) (*CustomerResponse, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*CustomerResponse, error)
	List(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error)
}

type customerService struct {
	repo repository.CustomerRepository
}

func NewCustomerService(repo repository.CustomerRepository) CustomerService {
	return &customerService{repo: repo}
}

func (s *customerService) Create(ctx context.Context, actor Actor, req CustomerRequest) (*CustomerResponse, error) {
	if req.Name == "" || req.Phone == "" {
		return nil, apperr.Validation("customer name and phone are required")
	}
	customer := model.Customer{
		CompanyID:      actor.CompanyID,
		Name:           req.Name,
		Phone:          req.Phone,
		Email:          req.Email,
		Identification: req.Identification,
		Address:        req.Address,
	}
	if err := s.repo.Create(ctx, &customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	return mapCustomer(&customer), nil
}

func (s *customerService) Update(ctx context.Context, id string, req CustomerRequest) (*CustomerResponse, error) {
	customer, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	customer.Name = req.Name
	customer.Phone = req.Phone
	customer.Email = req.Email
	customer.Identification = req.Identification
	customer.Address = req.Address

	if err := s.repo.Save(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	return mapCustomer(customer), nil
}

func (s *customerService) Delete(ctx context.Context, id string) error {
	customer, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, customer.ID)
}

func (s *customerService) Get(ctx context.Context, id string) (*CustomerResponse, error) {
	customer, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return mapCustomer(customer), nil
}

func (s *customerService) List(ctx context.Context, search string, page, limit int) ([]CustomerResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	customers, total, err := s.repo.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, err
	}
	res := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		res = append(res, *mapCustomer(&customers[i]))
	}
	return res, total, nil
}

func (s *customerService) find(ctx context.Context, id string) (*model.Customer, error) {
	cid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("invalid customer id: %q", id)
	}
	customer, err := s.repo.FindByID(ctx, cid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "customer %s not found", id)
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return customer, nil
}

func mapCustomer(customer *model.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:             customer.ID.String(),
		Name:           customer.Name,
		Phone:          customer.Phone,
		Email:          customer.Email,
		Identification: customer.Identification,
		Address:        customer.Address,
	}
}
