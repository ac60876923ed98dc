package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"oryon/internal/model"
	"oryon/internal/service"
	"oryon/pkg/apperr"
)

func seedTransactionRepo() (*fakeTransactionRepo, uuid.UUID) {
	repo := &fakeTransactionRepo{}
	phone := uuid.New()
	seed := []model.ProductTransaction{
		{ProductID: phone, ProductName: "Phone", Action: model.TxActionCreate, BranchID: "B1", ActorName: "ana"},
		{ProductID: phone, ProductName: "Phone", Action: model.TxActionAdjustInventory, BranchID: "B1", Quantity: -2, StockAfter: 8, ActorName: "ana"},
		{ProductID: uuid.New(), ProductName: "Cable", Action: model.TxActionCreate, BranchID: "B2", ActorName: "ben"},
		{ProductID: phone, ProductName: "Phone", Action: model.TxActionTransfer, BranchID: "B1", TargetBranchID: "B2", Quantity: 3, ActorName: "ben"},
		{ProductID: uuid.New(), ProductName: "Case", Action: model.TxActionCreate, BranchID: "B3", ActorName: "ana"},
	}
	for i := range seed {
		seed[i].CreatedAt = time.Date(2026, 8, 1, 10, i, 0, 0, time.UTC)
		_ = repo.Create(context.Background(), &seed[i])
	}
	return repo, phone
}

func TestQueryScopesToCallerBranches(t *testing.T) {
	repo, _ := seedTransactionRepo()
	svc := service.NewTransactionService(repo)

	records, total, err := svc.Query(context.Background(), branchScope("B1", "B2"), service.TransactionQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(records) != 4 {
		t.Fatalf("want 4 records within scope, got %d (total %d)", len(records), total)
	}
	for _, record := range records {
		if record.BranchID == "B3" {
			t.Fatalf("record outside scope leaked: %+v", record)
		}
	}
	// Newest first.
	if records[0].Action != model.TxActionTransfer {
		t.Fatalf("want newest record first, got %s", records[0].Action)
	}
}

func TestQueryAdminSeesAllBranches(t *testing.T) {
	repo, _ := seedTransactionRepo()
	svc := service.NewTransactionService(repo)

	_, total, err := svc.Query(context.Background(), model.AllBranches(), service.TransactionQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Fatalf("want all 5 records for unrestricted scope, got %d", total)
	}
}

func TestQueryRejectsOutOfScopeBranchFilter(t *testing.T) {
	repo, _ := seedTransactionRepo()
	svc := service.NewTransactionService(repo)

	_, _, err := svc.Query(context.Background(), branchScope("B1"), service.TransactionQuery{BranchID: "B3"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}
}

func TestQueryRejectsMalformedProductID(t *testing.T) {
	repo, _ := seedTransactionRepo()
	svc := service.NewTransactionService(repo)

	_, _, err := svc.Query(context.Background(), model.AllBranches(), service.TransactionQuery{ProductID: "not-a-uuid"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}

func TestQueryFilters(t *testing.T) {
	repo, phone := seedTransactionRepo()
	svc := service.NewTransactionService(repo)
	scope := model.AllBranches()

	records, _, err := svc.Query(context.Background(), scope, service.TransactionQuery{ProductID: phone.String()})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("want 3 records for product, got %d", len(records))
	}

	records, _, err = svc.Query(context.Background(), scope, service.TransactionQuery{Action: model.TxActionCreate})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("want 3 create records, got %d", len(records))
	}

	records, _, err = svc.Query(context.Background(), scope, service.TransactionQuery{ActorName: "ben"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("want 2 records by ben, got %d", len(records))
	}
	if records[0].TargetBranchID != "B2" {
		t.Fatalf("want the transfer first, got %+v", records[0])
	}
}
