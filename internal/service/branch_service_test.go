package service_test

import (
	"context"
	"testing"

	"oryon/internal/service"
	"oryon/pkg/apperr"
)

func TestBranchCreateAndGet(t *testing.T) {
	svc := service.NewBranchService(newFakeBranchRepo())
	ctx := context.Background()

	created, err := svc.Create(ctx, service.BranchRequest{ID: "B1", Name: "Downtown", Phone: "555-0100"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID != "B1" || created.Name != "Downtown" {
		t.Fatalf("unexpected branch: %+v", created)
	}

	got, err := svc.Get(ctx, "B1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Phone != "555-0100" {
		t.Fatalf("want phone preserved, got %+v", got)
	}

	branches, err := svc.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(branches) != 1 {
		t.Fatalf("want 1 branch, got %d", len(branches))
	}
}

func TestBranchCreateRejectsDuplicateID(t *testing.T) {
	svc := service.NewBranchService(newFakeBranchRepo())
	ctx := context.Background()

	if _, err := svc.Create(ctx, service.BranchRequest{ID: "B1", Name: "Downtown"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(ctx, service.BranchRequest{ID: "B1", Name: "Uptown"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("want conflict, got %v", err)
	}
}

func TestBranchGetMissing(t *testing.T) {
	svc := service.NewBranchService(newFakeBranchRepo())

	_, err := svc.Get(context.Background(), "nope")
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
}
