package service_test

import (
	"context"
	"testing"

	"oryon/internal/service"
	"oryon/pkg/apperr"
)

func TestCustomerCreateStampsActorCompany(t *testing.T) {
	repo := newFakeCustomerRepo()
	svc := service.NewCustomerService(repo)
	actor := service.Actor{Name: "tester", CompanyID: "acme"}

	created, err := svc.Create(context.Background(), actor, service.CustomerRequest{Name: "Maria", Phone: "555-0101"})
	if err != nil {
		t.Fatal(err)
	}
	stored, err := svc.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Name != "Maria" {
		t.Fatalf("unexpected customer: %+v", stored)
	}
	for _, customer := range repo.customers {
		if customer.CompanyID != "acme" {
			t.Fatalf("want company from the actor's claims, got %q", customer.CompanyID)
		}
	}
}

func TestCustomerCreateRequiresNameAndPhone(t *testing.T) {
	svc := service.NewCustomerService(newFakeCustomerRepo())

	_, err := svc.Create(context.Background(), tester, service.CustomerRequest{Name: "Maria"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want validation error, got %v", err)
	}
}
