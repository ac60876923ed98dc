package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"oryon/internal/model"
	"oryon/internal/service"
	"oryon/internal/websocket"
	"oryon/pkg/apperr"
)

type invFixture struct {
	svc      service.InventoryService
	products *fakeProductRepo
	units    *fakeUnitRepo
	variants *fakeVariantRepo
	audit    *fakeTransactionRepo
}

func newInvFixture(strictVariantDelete bool) *invFixture {
	products := newFakeProductRepo()
	units := newFakeUnitRepo()
	variants := newFakeVariantRepo()
	audit := &fakeTransactionRepo{}
	svc := service.NewInventoryService(products, units, variants, audit, fakeTxManager{}, websocket.NewHub(), strictVariantDelete)
	return &invFixture{svc: svc, products: products, units: units, variants: variants, audit: audit}
}

func (f *invFixture) createProduct(t *testing.T, branch, tracking string, quantity int) *service.ProductResponse {
	t.Helper()
	product, _, err := f.svc.CreateProduct(context.Background(), model.AllBranches(), tester, service.CreateProductRequest{
		BranchID: branch,
		SKU:      "SKU-" + tracking,
		Name:     "Widget",
		Price:    "99.90",
		Tracking: tracking,
		Quantity: quantity,
	})
	if err != nil {
		t.Fatal(err)
	}
	return product
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func (f *invFixture) lastAudit(t *testing.T) model.ProductTransaction {
	t.Helper()
	if len(f.audit.records) == 0 {
		t.Fatal("no audit records written")
	}
	return f.audit.records[len(f.audit.records)-1]
}

func TestCreateProductTrackingModes(t *testing.T) {
	f := newInvFixture(false)

	simple := f.createProduct(t, "B1", "", 10)
	if simple.Tracking != model.TrackingSimple || simple.AvailableStock != 10 {
		t.Fatalf("want simple/10, got %s/%d", simple.Tracking, simple.AvailableStock)
	}

	perUnit := f.createProduct(t, "B1", model.TrackingByUnit, 0)
	if perUnit.Tracking != model.TrackingByUnit || perUnit.AvailableStock != 0 {
		t.Fatalf("want per_unit/0, got %s/%d", perUnit.Tracking, perUnit.AvailableStock)
	}

	record := f.audit.records[0]
	if record.Action != model.TxActionCreate || record.BranchID != "B1" {
		t.Fatalf("unexpected create audit record: %+v", record)
	}
}

func TestAdjustStockRespectsFloor(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	product := f.createProduct(t, "B1", "", 10)

	updated, _, err := f.svc.AdjustStock(ctx, scope, tester, product.ID, service.AdjustStockRequest{Delta: -4, Reason: "damaged"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.AvailableStock != 6 {
		t.Fatalf("want 6 after removing 4, got %d", updated.AvailableStock)
	}
	record := f.lastAudit(t)
	if record.Action != model.TxActionAdjustInventory || record.Quantity != -4 || record.StockAfter != 6 {
		t.Fatalf("unexpected adjust audit record: %+v", record)
	}

	_, _, err = f.svc.AdjustStock(ctx, scope, tester, product.ID, service.AdjustStockRequest{Delta: -11})
	if !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("want insufficient stock, got %v", err)
	}
	stock, err := f.svc.GetAvailableStock(ctx, scope, product.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stock != 6 {
		t.Fatalf("rejected adjustment must not change stock, got %d", stock)
	}
}

func TestAdjustStockOnlyAppliesToSimpleTracking(t *testing.T) {
	f := newInvFixture(false)
	product := f.createProduct(t, "B1", model.TrackingByUnit, 0)

	_, _, err := f.svc.AdjustStock(context.Background(), model.AllBranches(), tester, product.ID, service.AdjustStockRequest{Delta: 3})
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("want invalid state for per-unit adjust, got %v", err)
	}
}

func TestAddStockIsAdditionOnly(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	product := f.createProduct(t, "B1", "", 5)

	updated, _, err := f.svc.AddStock(ctx, scope, tester, product.ID, service.AddStockRequest{Quantity: 3, Reason: "restock"})
	if err != nil {
		t.Fatal(err)
	}
	if updated.AvailableStock != 8 {
		t.Fatalf("want 8, got %d", updated.AvailableStock)
	}

	if _, _, err := f.svc.AddStock(ctx, scope, tester, product.ID, service.AddStockRequest{Quantity: -2}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want validation error for negative add, got %v", err)
	}
}

func TestTransferSimpleCreatesAndReusesMirror(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	source := f.createProduct(t, "B1", "", 10)

	if _, err := f.svc.TransferBetweenBranches(ctx, scope, tester, source.ID, service.TransferRequest{
		TargetBranchID: "B2", Quantity: 4,
	}); err != nil {
		t.Fatal(err)
	}

	if stock, _ := f.svc.GetAvailableStock(ctx, scope, source.ID); stock != 6 {
		t.Fatalf("want source stock 6, got %d", stock)
	}

	products, _, err := f.svc.ListProducts(ctx, model.NewAccessScope(model.RoleAdvisor, []string{"B2"}), "", "", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 {
		t.Fatalf("want 1 mirror product at B2, got %d", len(products))
	}
	mirror := products[0]
	if mirror.AvailableStock != 4 || mirror.SKU != source.SKU {
		t.Fatalf("unexpected mirror: %+v", mirror)
	}

	record := f.lastAudit(t)
	if record.Action != model.TxActionTransfer || record.TargetBranchID != "B2" || record.Quantity != 4 {
		t.Fatalf("unexpected transfer audit record: %+v", record)
	}

	// Second transfer reuses the mirror instead of creating another product.
	if _, err := f.svc.TransferBetweenBranches(ctx, scope, tester, source.ID, service.TransferRequest{
		TargetBranchID: "B2", Quantity: 2,
	}); err != nil {
		t.Fatal(err)
	}
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, mirror.ID); stock != 6 {
		t.Fatalf("want mirror stock 6 after second transfer, got %d", stock)
	}
}

func TestTransferSimpleInsufficientStock(t *testing.T) {
	f := newInvFixture(false)
	source := f.createProduct(t, "B1", "", 3)

	_, err := f.svc.TransferBetweenBranches(context.Background(), model.AllBranches(), tester, source.ID, service.TransferRequest{
		TargetBranchID: "B2", Quantity: 5,
	})
	if !apperr.Is(err, apperr.KindInsufficientStock) {
		t.Fatalf("want insufficient stock, got %v", err)
	}
	if stock, _ := f.svc.GetAvailableStock(context.Background(), model.AllBranches(), source.ID); stock != 3 {
		t.Fatalf("rejected transfer must not change stock, got %d", stock)
	}
}

func TestTransferVariantsDrainsGreedily(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	source := f.createProduct(t, "B1", model.TrackingVariant, 0)

	if _, _, err := f.svc.AddVariant(ctx, scope, tester, source.ID, service.AddVariantRequest{Name: "Red", Stock: 5}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.svc.AddVariant(ctx, scope, tester, source.ID, service.AddVariantRequest{Name: "Blue", Stock: 3}); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.TransferBetweenBranches(ctx, scope, tester, source.ID, service.TransferRequest{
		TargetBranchID: "B2", Quantity: 6,
	}); err != nil {
		t.Fatal(err)
	}

	remaining, err := f.svc.ListVariants(ctx, scope, source.ID)
	if err != nil {
		t.Fatal(err)
	}
	byName := map[string]int{}
	for _, v := range remaining {
		byName[v.Name] = v.Stock
	}
	// Red was inserted first, so it empties before Blue contributes.
	if byName["Red"] != 0 || byName["Blue"] != 2 {
		t.Fatalf("want Red=0 Blue=2 at source, got %v", byName)
	}

	products, _, err := f.svc.ListProducts(ctx, model.NewAccessScope(model.RoleAdvisor, []string{"B2"}), "", "", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 {
		t.Fatalf("want mirror product at B2, got %d", len(products))
	}
	mirrorVariants, err := f.svc.ListVariants(ctx, scope, products[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	byName = map[string]int{}
	for _, v := range mirrorVariants {
		byName[v.Name] = v.Stock
	}
	if byName["Red"] != 5 || byName["Blue"] != 1 {
		t.Fatalf("want Red=5 Blue=1 at target, got %v", byName)
	}
}

func TestTransferRejectsUnitTrackedProducts(t *testing.T) {
	f := newInvFixture(false)
	source := f.createProduct(t, "B1", model.TrackingByUnit, 0)

	_, err := f.svc.TransferBetweenBranches(context.Background(), model.AllBranches(), tester, source.ID, service.TransferRequest{
		TargetBranchID: "B2", Quantity: 1,
	})
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("want invalid state, got %v", err)
	}
}

func TestTransferUnitsIsAllOrNothing(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	source := f.createProduct(t, "B1", model.TrackingByUnit, 0)

	var unitIDs []string
	for _, imei := range []string{"111", "222", "333"} {
		unit, _, err := f.svc.AddUnit(ctx, scope, tester, source.ID, service.AddUnitRequest{IMEI: imei})
		if err != nil {
			t.Fatal(err)
		}
		unitIDs = append(unitIDs, unit.ID)
	}

	// Mark the second unit sold so it is no longer transferable.
	sold, err := f.units.FindByID(ctx, mustUUID(t, unitIDs[1]))
	if err != nil {
		t.Fatal(err)
	}
	sold.Status = model.UnitSold
	if err := f.units.Save(ctx, sold); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.TransferUnits(ctx, scope, tester, source.ID, service.TransferUnitsRequest{
		TargetBranchID: "B2",
		UnitIDs:        unitIDs,
	})
	if !apperr.Is(err, apperr.KindInvalidUnit) {
		t.Fatalf("want invalid unit, got %v", err)
	}
	if !strings.Contains(err.Error(), unitIDs[1]) {
		t.Fatalf("error must name the offending unit, got %v", err)
	}
	// Nothing moved.
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, source.ID); stock != 2 {
		t.Fatalf("want 2 available at source after rejected transfer, got %d", stock)
	}

	// Transferring only the available units succeeds.
	if _, err := f.svc.TransferUnits(ctx, scope, tester, source.ID, service.TransferUnitsRequest{
		TargetBranchID: "B2",
		UnitIDs:        []string{unitIDs[0], unitIDs[2]},
	}); err != nil {
		t.Fatal(err)
	}
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, source.ID); stock != 0 {
		t.Fatalf("want 0 available at source, got %d", stock)
	}

	products, _, err := f.svc.ListProducts(ctx, model.NewAccessScope(model.RoleAdvisor, []string{"B2"}), "", "", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 {
		t.Fatalf("want mirror product at B2, got %d", len(products))
	}
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, products[0].ID); stock != 2 {
		t.Fatalf("want 2 available at target, got %d", stock)
	}
}

func TestAvailableStockPerTrackingMode(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()

	simple := f.createProduct(t, "B1", "", 7)
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, simple.ID); stock != 7 {
		t.Fatalf("want 7, got %d", stock)
	}

	perUnit := f.createProduct(t, "B1", model.TrackingByUnit, 0)
	u1, _, err := f.svc.AddUnit(ctx, scope, tester, perUnit.ID, service.AddUnitRequest{IMEI: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.svc.AddUnit(ctx, scope, tester, perUnit.ID, service.AddUnitRequest{IMEI: "b"}); err != nil {
		t.Fatal(err)
	}
	unit, _ := f.units.FindByID(ctx, mustUUID(t, u1.ID))
	unit.Status = model.UnitSold
	_ = f.units.Save(ctx, unit)
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, perUnit.ID); stock != 1 {
		t.Fatalf("sold units must not count, got %d", stock)
	}

	variant := f.createProduct(t, "B1", model.TrackingVariant, 0)
	if _, _, err := f.svc.AddVariant(ctx, scope, tester, variant.ID, service.AddVariantRequest{Name: "S", Stock: 2}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.svc.AddVariant(ctx, scope, tester, variant.ID, service.AddVariantRequest{Name: "M", Stock: 3}); err != nil {
		t.Fatal(err)
	}
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, variant.ID); stock != 5 {
		t.Fatalf("want summed variant stock 5, got %d", stock)
	}
}

func TestAddUnitRejectsDuplicates(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	product := f.createProduct(t, "B1", model.TrackingByUnit, 0)

	if _, _, err := f.svc.AddUnit(ctx, scope, tester, product.ID, service.AddUnitRequest{}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want validation error for empty unit, got %v", err)
	}
	if _, _, err := f.svc.AddUnit(ctx, scope, tester, product.ID, service.AddUnitRequest{IMEI: "123"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.svc.AddUnit(ctx, scope, tester, product.ID, service.AddUnitRequest{IMEI: "123"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want validation error for duplicate imei, got %v", err)
	}
}

func TestParseUnitLines(t *testing.T) {
	text := "86001,SN-1\n\n86002\n,SN-3\n;;\n\t86004"
	got := service.ParseUnitLines(text)
	want := []service.AddUnitRequest{
		{IMEI: "86001", SerialNumber: "SN-1"},
		{IMEI: "86002"},
		{IMEI: "SN-3"},
		{IMEI: "86004"},
	}
	if len(got) != len(want) {
		t.Fatalf("want %d entries, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d: want %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestBulkAddUnitsSkipsDuplicatesAndBlankLines(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	product := f.createProduct(t, "B1", model.TrackingByUnit, 0)

	if _, _, err := f.svc.AddUnit(ctx, scope, tester, product.ID, service.AddUnitRequest{IMEI: "dup"}); err != nil {
		t.Fatal(err)
	}

	added, _, err := f.svc.BulkAddUnits(ctx, scope, tester, product.ID, service.BulkAddUnitsRequest{
		Text: "dup\n\nfresh-1,SN-9\n\nfresh-2\n",
	})
	if err != nil {
		t.Fatal(err)
	}
	if added != 2 {
		t.Fatalf("want 2 added (duplicate skipped), got %d", added)
	}
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, product.ID); stock != 3 {
		t.Fatalf("want 3 units total, got %d", stock)
	}
}

func TestDeleteUnitOnlyWhileAvailable(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	product := f.createProduct(t, "B1", model.TrackingByUnit, 0)

	unit, _, err := f.svc.AddUnit(ctx, scope, tester, product.ID, service.AddUnitRequest{IMEI: "1"})
	if err != nil {
		t.Fatal(err)
	}

	stored, _ := f.units.FindByID(ctx, mustUUID(t, unit.ID))
	stored.Status = model.UnitInRepair
	_ = f.units.Save(ctx, stored)

	if _, err := f.svc.DeleteUnit(ctx, scope, tester, product.ID, unit.ID); !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("want invalid state for non-available unit, got %v", err)
	}

	stored.Status = model.UnitAvailable
	_ = f.units.Save(ctx, stored)
	if _, err := f.svc.DeleteUnit(ctx, scope, tester, product.ID, unit.ID); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteVariantWithStock(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	product := f.createProduct(t, "B1", model.TrackingVariant, 0)

	variant, _, err := f.svc.AddVariant(ctx, scope, tester, product.ID, service.AddVariantRequest{Name: "Green", Stock: 4})
	if err != nil {
		t.Fatal(err)
	}

	warning, err := f.svc.DeleteVariant(ctx, scope, tester, product.ID, variant.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(warning, "4 units") {
		t.Fatalf("want warning about discarded stock, got %q", warning)
	}

	// Strict mode rejects instead of warning.
	strict := newInvFixture(true)
	product = strict.createProduct(t, "B1", model.TrackingVariant, 0)
	variant, _, err = strict.svc.AddVariant(ctx, scope, tester, product.ID, service.AddVariantRequest{Name: "Green", Stock: 4})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := strict.svc.DeleteVariant(ctx, scope, tester, product.ID, variant.ID); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("want validation error in strict mode, got %v", err)
	}
}

func TestSetVariantStockRecordsDelta(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	product := f.createProduct(t, "B1", model.TrackingVariant, 0)

	variant, _, err := f.svc.AddVariant(ctx, scope, tester, product.ID, service.AddVariantRequest{Name: "XL", Stock: 4})
	if err != nil {
		t.Fatal(err)
	}

	updated, _, err := f.svc.SetVariantStock(ctx, scope, tester, product.ID, variant.ID, service.SetVariantStockRequest{Stock: 10})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Stock != 10 {
		t.Fatalf("want stock 10, got %d", updated.Stock)
	}
	record := f.lastAudit(t)
	if record.Action != model.TxActionUpdateVariant || record.Quantity != 6 || record.StockAfter != 10 {
		t.Fatalf("unexpected variant audit record: %+v", record)
	}
}

func TestAuditFailureSurfacesAsWarningOnly(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	product := f.createProduct(t, "B1", "", 10)

	f.audit.createErr = errors.New("audit store down")

	updated, warning, err := f.svc.AdjustStock(ctx, scope, tester, product.ID, service.AdjustStockRequest{Delta: -2})
	if err != nil {
		t.Fatalf("primary mutation must not fail when audit fails, got %v", err)
	}
	if updated.AvailableStock != 8 {
		t.Fatalf("want 8, got %d", updated.AvailableStock)
	}
	if warning == "" {
		t.Fatal("want a warning about the failed audit write")
	}
}

func TestScopeRestrictsInventoryAccess(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	product := f.createProduct(t, "B2", "", 10)

	if _, err := f.svc.GetProduct(ctx, branchScope("B1"), product.ID); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("want forbidden, got %v", err)
	}
	if _, _, err := f.svc.CreateProduct(ctx, branchScope("B1"), tester, service.CreateProductRequest{
		BranchID: "B2", Name: "X", Price: "1",
	}); !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("want forbidden for out-of-scope create, got %v", err)
	}
}

func TestTransferUnitsCountsDistinctIDs(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()
	source := f.createProduct(t, "B1", model.TrackingByUnit, 0)

	var unitIDs []string
	for _, imei := range []string{"111", "222"} {
		unit, _, err := f.svc.AddUnit(ctx, scope, tester, source.ID, service.AddUnitRequest{IMEI: imei})
		if err != nil {
			t.Fatal(err)
		}
		unitIDs = append(unitIDs, unit.ID)
	}

	if _, err := f.svc.TransferUnits(ctx, scope, tester, source.ID, service.TransferUnitsRequest{
		TargetBranchID: "B2",
		UnitIDs:        []string{unitIDs[0], unitIDs[0], unitIDs[1]},
	}); err != nil {
		t.Fatal(err)
	}

	record := f.lastAudit(t)
	if record.Quantity != 2 {
		t.Fatalf("want 2 units moved despite the repeated id, got %d", record.Quantity)
	}
	products, _, err := f.svc.ListProducts(ctx, model.NewAccessScope(model.RoleAdvisor, []string{"B2"}), "", "", 1, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 1 {
		t.Fatalf("want mirror product at B2, got %d", len(products))
	}
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, products[0].ID); stock != 2 {
		t.Fatalf("want 2 available at target, got %d", stock)
	}
}

func TestTransferRejectsMirrorWithDifferentTracking(t *testing.T) {
	f := newInvFixture(false)
	ctx := context.Background()
	scope := model.AllBranches()

	source, _, err := f.svc.CreateProduct(ctx, scope, tester, service.CreateProductRequest{
		BranchID: "B1", SKU: "SHARED", Name: "Widget", Price: "10", Quantity: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.svc.CreateProduct(ctx, scope, tester, service.CreateProductRequest{
		BranchID: "B2", SKU: "SHARED", Name: "Widget", Price: "10", Tracking: model.TrackingVariant,
	}); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.TransferBetweenBranches(ctx, scope, tester, source.ID, service.TransferRequest{
		TargetBranchID: "B2", Quantity: 3,
	})
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("want invalid state for mismatched tracking modes, got %v", err)
	}
	if stock, _ := f.svc.GetAvailableStock(ctx, scope, source.ID); stock != 5 {
		t.Fatalf("rejected transfer must not change source stock, got %d", stock)
	}
}
