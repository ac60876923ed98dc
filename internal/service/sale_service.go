package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oryon/internal/model"
	"oryon/internal/repository"
	"oryon/pkg/apperr"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SaleItemResponse struct {
	Kind         string `json:"kind"`
	Description  string `json:"description"`
	Hours        string `json:"hours,omitempty"`
	HourlyRate   string `json:"hourly_rate,omitempty"`
	PurchaseCost string `json:"purchase_cost,omitempty"`
	SalePrice    string `json:"sale_price"`
	Quantity     int    `json:"quantity"`
}

type SaleResponse struct {
	ID            string             `json:"id"`
	InvoiceNo     string             `json:"invoice_no"`
	RepairOrderID *uint              `json:"repair_order_id"`
	BranchID      string             `json:"branch_id"`
	Items         []SaleItemResponse `json:"items"`
	TotalCost     string             `json:"total_cost"`
	Total         string             `json:"total"`
	Margin        string             `json:"margin"`
	Notes         string             `json:"notes"`
	CreatedBy     string             `json:"created_by"`
	CreatedAt     string             `json:"created_at"`
}

// SaleService is the read side of invoices generated by the repair flow.
type SaleService interface {
	Get(ctx context.Context, scope model.AccessScope, id string) (*SaleResponse, error)
	List(ctx context.Context, scope model.AccessScope, page, limit int) ([]SaleResponse, int64, error)
}

type saleService struct {
	repo repository.SaleRepository
}

func NewSaleService(repo repository.SaleRepository) SaleService {
	return &saleService{repo: repo}
}

func (s *saleService) Get(ctx context.Context, scope model.AccessScope, id string) (*SaleResponse, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("invalid sale id: %q", id)
	}
	sale, err := s.repo.FindByID(ctx, sid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "sale %s not found", id)
		}
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if !scope.Allows(sale.BranchID) {
		return nil, apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", sale.BranchID)
	}
	return mapSale(sale), nil
}

func (s *saleService) List(ctx context.Context, scope model.AccessScope, page, limit int) ([]SaleResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	sales, total, err := s.repo.List(ctx, scope.BranchIDs(), page, limit)
	if err != nil {
		return nil, 0, err
	}
	res := make([]SaleResponse, 0, len(sales))
	for i := range sales {
		res = append(res, *mapSale(&sales[i]))
	}
	return res, total, nil
}

func mapSale(sale *model.Sale) *SaleResponse {
	res := &SaleResponse{
		ID:            sale.ID.String(),
		InvoiceNo:     sale.InvoiceNo,
		RepairOrderID: sale.RepairOrderID,
		BranchID:      sale.BranchID,
		TotalCost:     sale.TotalCost.StringFixed(2),
		Total:         sale.Total.StringFixed(2),
		Margin:        sale.Margin.StringFixed(2),
		Notes:         sale.Notes,
		CreatedBy:     sale.CreatedBy,
		CreatedAt:     sale.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range sale.Items {
		mapped := SaleItemResponse{
			Kind:        item.Kind,
			Description: item.Description,
			SalePrice:   item.SalePrice.StringFixed(2),
			Quantity:    item.Quantity,
		}
		if item.Kind == model.SaleItemLabor {
			mapped.Hours = item.Hours.String()
			mapped.HourlyRate = item.HourlyRate.StringFixed(2)
		} else {
			mapped.PurchaseCost = item.PurchaseCost.StringFixed(2)
		}
		res.Items = append(res.Items, mapped)
	}
	return res
}
