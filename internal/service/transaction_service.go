package service

import (
	"context"
	"time"

	"oryon/internal/model"
	"oryon/internal/repository"
	"oryon/pkg/apperr"

	"github.com/google/uuid"
)

type TransactionQuery struct {
	ProductID string
	BranchID  string
	Action    string
	ActorName string
	Search    string
	Page      int
	Limit     int
}

type TransactionResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Action         string `json:"action"`
	BranchID       string `json:"branch_id"`
	TargetBranchID string `json:"target_branch_id,omitempty"`
	Quantity       int    `json:"quantity"`
	StockAfter     int    `json:"stock_after"`
	ActorName      string `json:"actor_name"`
	Description    string `json:"description"`
	CreatedAt      string `json:"created_at"`
}

// TransactionService is the read side of the product audit trail. Records
// are written by the inventory service; there is no update or delete.
type TransactionService interface {
	Query(ctx context.Context, scope model.AccessScope, q TransactionQuery) ([]TransactionResponse, int64, error)
}

type transactionService struct {
	txRepo repository.TransactionRepository
}

func NewTransactionService(txRepo repository.TransactionRepository) TransactionService {
	return &transactionService{txRepo: txRepo}
}

func (s *transactionService) Query(ctx context.Context, scope model.AccessScope, q TransactionQuery) ([]TransactionResponse, int64, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}

	filter := repository.TransactionFilter{
		Branches:  scope.BranchIDs(),
		Action:    q.Action,
		ActorName: q.ActorName,
		Search:    q.Search,
	}
	if q.ProductID != "" {
		pid, err := uuid.Parse(q.ProductID)
		if err != nil {
			return nil, 0, apperr.Validation("invalid product id: %q", q.ProductID)
		}
		filter.ProductID = &pid
	}
	if q.BranchID != "" {
		if !scope.Allows(q.BranchID) {
			return nil, 0, apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", q.BranchID)
		}
		filter.BranchID = q.BranchID
	}

	records, total, err := s.txRepo.Query(ctx, filter, q.Page, q.Limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]TransactionResponse, 0, len(records))
	for _, record := range records {
		res = append(res, TransactionResponse{
			ID:             record.ID.String(),
			ProductID:      record.ProductID.String(),
			ProductName:    record.ProductName,
			Action:         record.Action,
			BranchID:       record.BranchID,
			TargetBranchID: record.TargetBranchID,
			Quantity:       record.Quantity,
			StockAfter:     record.StockAfter,
			ActorName:      record.ActorName,
			Description:    record.Description,
			CreatedAt:      record.CreatedAt.Format(time.RFC3339),
		})
	}
	return res, total, nil
}
