package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"oryon/internal/model"
	"oryon/internal/repository"
	ws "oryon/internal/websocket"
	"oryon/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateProductRequest struct {
	BranchID string `json:"branch_id" binding:"required"`
	SKU      string `json:"sku"`
	Category string `json:"category"`
	Name     string `json:"name" binding:"required"`
	Price    string `json:"price" binding:"required"`
	Cost     string `json:"cost"`
	// Tracking mode, fixed at creation: simple (default), per_unit, per_variant.
	Tracking string `json:"tracking" binding:"omitempty,oneof=simple per_unit per_variant"`
	Quantity int    `json:"quantity" binding:"min=0"` // simple mode initial stock
}

type UpdateProductRequest struct {
	SKU      string `json:"sku"`
	Category string `json:"category"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Cost     string `json:"cost"`
}

type AdjustStockRequest struct {
	Delta  int    `json:"delta" binding:"required"`
	Reason string `json:"reason"`
}

type AddStockRequest struct {
	Quantity int    `json:"quantity" binding:"required,gt=0"`
	Reason   string `json:"reason"`
}

type TransferRequest struct {
	TargetBranchID string `json:"target_branch_id" binding:"required"`
	Quantity       int    `json:"quantity" binding:"required,gt=0"`
	Reason         string `json:"reason"`
}

type TransferUnitsRequest struct {
	TargetBranchID string   `json:"target_branch_id" binding:"required"`
	UnitIDs        []string `json:"unit_ids" binding:"required,min=1"`
	Reason         string   `json:"reason"`
}

type AddUnitRequest struct {
	IMEI         string `json:"imei"`
	SerialNumber string `json:"serial_number"`
}

type BulkAddUnitsRequest struct {
	// One candidate unit per line; fields separated by comma, semicolon or
	// tab: imei first, serial second. Lines yielding neither are skipped.
	Text string `json:"text" binding:"required"`
}

type AddVariantRequest struct {
	Name  string `json:"name" binding:"required"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock" binding:"min=0"`
}

type SetVariantStockRequest struct {
	Stock int `json:"stock" binding:"min=0"`
}

type ProductResponse struct {
	ID             string `json:"id"`
	BranchID       string `json:"branch_id"`
	SKU            string `json:"sku"`
	Category       string `json:"category"`
	Name           string `json:"name"`
	Price          string `json:"price"`
	Cost           string `json:"cost"`
	Tracking       string `json:"tracking"`
	AvailableStock int    `json:"available_stock"`
}

type UnitResponse struct {
	ID           string `json:"id"`
	IMEI         string `json:"imei"`
	SerialNumber string `json:"serial_number"`
	Status       string `json:"status"`
}

type VariantResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	SKU   string `json:"sku"`
	Stock int    `json:"stock"`
}

// --- Interface ---

type InventoryService interface {
	CreateProduct(ctx context.Context, scope model.AccessScope, actor Actor, req CreateProductRequest) (*ProductResponse, string, error)
	UpdateProduct(ctx context.Context, scope model.AccessScope, actor Actor, id string, req UpdateProductRequest) (*ProductResponse, string, error)
	DeleteProduct(ctx context.Context, scope model.AccessScope, actor Actor, id string) (string, error)
	GetProduct(ctx context.Context, scope model.AccessScope, id string) (*ProductResponse, error)
	ListProducts(ctx context.Context, scope model.AccessScope, category, search string, page, limit int) ([]ProductResponse, int64, error)

	AdjustStock(ctx context.Context, scope model.AccessScope, actor Actor, id string, req AdjustStockRequest) (*ProductResponse, string, error)
	AddStock(ctx context.Context, scope model.AccessScope, actor Actor, id string, req AddStockRequest) (*ProductResponse, string, error)
	TransferBetweenBranches(ctx context.Context, scope model.AccessScope, actor Actor, id string, req TransferRequest) (string, error)
	TransferUnits(ctx context.Context, scope model.AccessScope, actor Actor, id string, req TransferUnitsRequest) (string, error)

	AddUnit(ctx context.Context, scope model.AccessScope, actor Actor, productID string, req AddUnitRequest) (*UnitResponse, string, error)
	BulkAddUnits(ctx context.Context, scope model.AccessScope, actor Actor, productID string, req BulkAddUnitsRequest) (int, string, error)
	DeleteUnit(ctx context.Context, scope model.AccessScope, actor Actor, productID, unitID string) (string, error)
	ListUnits(ctx context.Context, scope model.AccessScope, productID, status string) ([]UnitResponse, error)

	AddVariant(ctx context.Context, scope model.AccessScope, actor Actor, productID string, req AddVariantRequest) (*VariantResponse, string, error)
	SetVariantStock(ctx context.Context, scope model.AccessScope, actor Actor, productID, variantID string, req SetVariantStockRequest) (*VariantResponse, string, error)
	DeleteVariant(ctx context.Context, scope model.AccessScope, actor Actor, productID, variantID string) (string, error)
	ListVariants(ctx context.Context, scope model.AccessScope, productID string) ([]VariantResponse, error)

	GetAvailableStock(ctx context.Context, scope model.AccessScope, productID string) (int, error)
}

type inventoryService struct {
	productRepo repository.ProductRepository
	unitRepo    repository.UnitRepository
	variantRepo repository.VariantRepository
	txRepo      repository.TransactionRepository
	txManager   repository.TransactionManager
	hub         *ws.Hub

	// strictVariantDelete rejects deleting a variant that still holds stock
	// instead of discarding the count with a warning.
	strictVariantDelete bool
}

func NewInventoryService(
	productRepo repository.ProductRepository,
	unitRepo repository.UnitRepository,
	variantRepo repository.VariantRepository,
	txRepo repository.TransactionRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
	strictVariantDelete bool,
) InventoryService {
	return &inventoryService{
		productRepo:         productRepo,
		unitRepo:            unitRepo,
		variantRepo:         variantRepo,
		txRepo:              txRepo,
		txManager:           txManager,
		hub:                 hub,
		strictVariantDelete: strictVariantDelete,
	}
}

// audit writes the ProductTransaction for an already-committed mutation.
// A failed write is never propagated: the primary operation has succeeded
// and the failure only surfaces as a warning on the response.
func (s *inventoryService) audit(ctx context.Context, record model.ProductTransaction) string {
	if err := s.txRepo.Create(ctx, &record); err != nil {
		log.Println("inventory: audit write failed:", err)
		return "audit record could not be written: " + err.Error()
	}
	return ""
}

func (s *inventoryService) loadProduct(ctx context.Context, scope model.AccessScope, id string) (*model.Product, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.Validation("invalid product id: %q", id)
	}
	product, err := s.productRepo.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "product %s not found", id)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	if !scope.Allows(product.BranchID) {
		return nil, apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", product.BranchID)
	}
	return product, nil
}

func (s *inventoryService) availableStock(ctx context.Context, product *model.Product) (int, error) {
	switch product.TrackingMode() {
	case model.TrackingByUnit:
		count, err := s.unitRepo.CountAvailable(ctx, product.ID)
		return int(count), err
	case model.TrackingVariant:
		sum, err := s.variantRepo.SumStock(ctx, product.ID)
		return int(sum), err
	default:
		return product.Quantity, nil
	}
}

// --- Product CRUD ---

func (s *inventoryService) CreateProduct(ctx context.Context, scope model.AccessScope, actor Actor, req CreateProductRequest) (*ProductResponse, string, error) {
	if !scope.Allows(req.BranchID) {
		return nil, "", apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", req.BranchID)
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, "", apperr.Validation("invalid price: %q", req.Price)
	}
	cost := decimal.Zero
	if req.Cost != "" {
		cost, err = decimal.NewFromString(req.Cost)
		if err != nil || cost.IsNegative() {
			return nil, "", apperr.Validation("invalid cost: %q", req.Cost)
		}
	}

	product := model.Product{
		BranchID: req.BranchID,
		SKU:      req.SKU,
		Category: req.Category,
		Name:     req.Name,
		Price:    price,
		Cost:     cost,
	}
	switch req.Tracking {
	case "", model.TrackingSimple:
		product.Quantity = req.Quantity
	case model.TrackingByUnit:
		product.TrackByUnit = true
	case model.TrackingVariant:
		product.HasVariants = true
	default:
		return nil, "", apperr.Validation("unknown tracking mode %q", req.Tracking)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.productRepo.Create(txCtx, &product)
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create product: %w", err)
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionCreate,
		BranchID:    product.BranchID,
		Quantity:    product.Quantity,
		StockAfter:  product.Quantity,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: "product created",
	})

	resp, _, err := s.mapProduct(ctx, &product)
	return resp, warning, err
}

func (s *inventoryService) UpdateProduct(ctx context.Context, scope model.AccessScope, actor Actor, id string, req UpdateProductRequest) (*ProductResponse, string, error) {
	product, err := s.loadProduct(ctx, scope, id)
	if err != nil {
		return nil, "", err
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.SKU != "" {
		product.SKU = req.SKU
	}
	if req.Category != "" {
		product.Category = req.Category
	}
	if req.Price != "" {
		price, parseErr := decimal.NewFromString(req.Price)
		if parseErr != nil || price.IsNegative() {
			return nil, "", apperr.Validation("invalid price: %q", req.Price)
		}
		product.Price = price
	}
	if req.Cost != "" {
		cost, parseErr := decimal.NewFromString(req.Cost)
		if parseErr != nil || cost.IsNegative() {
			return nil, "", apperr.Validation("invalid cost: %q", req.Cost)
		}
		product.Cost = cost
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.productRepo.Save(txCtx, product)
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to update product: %w", err)
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionEdit,
		BranchID:    product.BranchID,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: "product updated",
	})

	resp, _, err := s.mapProduct(ctx, product)
	return resp, warning, err
}

func (s *inventoryService) DeleteProduct(ctx context.Context, scope model.AccessScope, actor Actor, id string) (string, error) {
	product, err := s.loadProduct(ctx, scope, id)
	if err != nil {
		return "", err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.productRepo.Delete(txCtx, product.ID)
	})
	if err != nil {
		return "", fmt.Errorf("failed to delete product: %w", err)
	}

	return s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionDelete,
		BranchID:    product.BranchID,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: "product deleted",
	}), nil
}

func (s *inventoryService) GetProduct(ctx context.Context, scope model.AccessScope, id string) (*ProductResponse, error) {
	product, err := s.loadProduct(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	resp, _, err := s.mapProduct(ctx, product)
	return resp, err
}

func (s *inventoryService) ListProducts(ctx context.Context, scope model.AccessScope, category, search string, page, limit int) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	filter := repository.ProductFilter{
		Branches: scope.BranchIDs(),
		Category: category,
		Search:   search,
	}
	products, total, err := s.productRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		mapped, _, mapErr := s.mapProduct(ctx, &products[i])
		if mapErr != nil {
			return nil, 0, mapErr
		}
		res = append(res, *mapped)
	}
	return res, total, nil
}

func (s *inventoryService) GetAvailableStock(ctx context.Context, scope model.AccessScope, productID string) (int, error) {
	product, err := s.loadProduct(ctx, scope, productID)
	if err != nil {
		return 0, err
	}
	return s.availableStock(ctx, product)
}

// --- Stock adjustments ---

func (s *inventoryService) AdjustStock(ctx context.Context, scope model.AccessScope, actor Actor, id string, req AdjustStockRequest) (*ProductResponse, string, error) {
	if req.Delta == 0 {
		return nil, "", apperr.Validation("delta must not be zero")
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return nil, "", apperr.Validation("invalid product id: %q", id)
	}

	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		product, txErr = s.productRepo.FindByIDForUpdate(txCtx, pid)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "product %s not found", id)
			}
			return fmt.Errorf("failed to load product: %w", txErr)
		}
		if !scope.Allows(product.BranchID) {
			return apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", product.BranchID)
		}
		if product.TrackingMode() != model.TrackingSimple {
			return apperr.New(apperr.KindInvalidState, "stock adjustment only applies to simple-tracked products")
		}
		if req.Delta < 0 && -req.Delta > product.Quantity {
			return apperr.New(apperr.KindInsufficientStock, "cannot remove %d units, only %d in stock", -req.Delta, product.Quantity)
		}

		product.Quantity += req.Delta
		return s.productRepo.UpdateQuantity(txCtx, product.ID, product.Quantity)
	})
	if err != nil {
		return nil, "", err
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionAdjustInventory,
		BranchID:    product.BranchID,
		Quantity:    req.Delta,
		StockAfter:  product.Quantity,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: req.Reason,
	})

	s.hub.Publish(ws.Event{Type: "inventory_changed", BranchID: product.BranchID, Data: map[string]interface{}{
		"product_id": product.ID.String(),
		"stock":      product.Quantity,
	}})

	resp, _, err := s.mapProduct(ctx, product)
	return resp, warning, err
}

// AddStock is the addition-only entry point used for purchase receiving.
// Subtraction is rejected by contract, not just hidden in the UI.
func (s *inventoryService) AddStock(ctx context.Context, scope model.AccessScope, actor Actor, id string, req AddStockRequest) (*ProductResponse, string, error) {
	if req.Quantity <= 0 {
		return nil, "", apperr.Validation("quantity must be positive")
	}
	return s.AdjustStock(ctx, scope, actor, id, AdjustStockRequest{Delta: req.Quantity, Reason: req.Reason})
}

// --- Branch transfers ---

func (s *inventoryService) TransferBetweenBranches(ctx context.Context, scope model.AccessScope, actor Actor, id string, req TransferRequest) (string, error) {
	if req.Quantity <= 0 {
		return "", apperr.Validation("quantity must be positive")
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return "", apperr.Validation("invalid product id: %q", id)
	}

	var source *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		source, txErr = s.productRepo.FindByIDForUpdate(txCtx, pid)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "product %s not found", id)
			}
			return fmt.Errorf("failed to load product: %w", txErr)
		}
		if !scope.Allows(source.BranchID) {
			return apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", source.BranchID)
		}
		if req.TargetBranchID == source.BranchID {
			return apperr.Validation("target branch must differ from the product's branch")
		}

		switch source.TrackingMode() {
		case model.TrackingByUnit:
			return apperr.New(apperr.KindInvalidState, "unit-tracked products transfer by explicit unit selection")
		case model.TrackingVariant:
			return s.transferVariants(txCtx, source, req.TargetBranchID, req.Quantity)
		default:
			return s.transferSimple(txCtx, source, req.TargetBranchID, req.Quantity)
		}
	})
	if err != nil {
		return "", err
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:      source.ID,
		ProductName:    source.Name,
		Action:         model.TxActionTransfer,
		BranchID:       source.BranchID,
		TargetBranchID: req.TargetBranchID,
		Quantity:       req.Quantity,
		ActorUserID:    actor.UserID,
		ActorName:      actor.Name,
		Description:    req.Reason,
	})

	s.hub.Publish(ws.Event{Type: "inventory_transferred", BranchID: source.BranchID, Data: map[string]interface{}{
		"product_id":    source.ID.String(),
		"target_branch": req.TargetBranchID,
		"quantity":      req.Quantity,
	}})

	return warning, nil
}

func (s *inventoryService) transferSimple(ctx context.Context, source *model.Product, targetBranchID string, quantity int) error {
	if quantity > source.Quantity {
		return apperr.New(apperr.KindInsufficientStock, "cannot transfer %d units, only %d in stock", quantity, source.Quantity)
	}

	target, err := s.findOrCreateMirror(ctx, source, targetBranchID)
	if err != nil {
		return err
	}

	source.Quantity -= quantity
	if err := s.productRepo.UpdateQuantity(ctx, source.ID, source.Quantity); err != nil {
		return fmt.Errorf("failed to decrement source stock: %w", err)
	}
	target.Quantity += quantity
	if err := s.productRepo.UpdateQuantity(ctx, target.ID, target.Quantity); err != nil {
		return fmt.Errorf("failed to increment target stock: %w", err)
	}
	return nil
}

// transferVariants drains variants greedily in their stored order: the first
// variant is consumed completely before the next one contributes.
func (s *inventoryService) transferVariants(ctx context.Context, source *model.Product, targetBranchID string, quantity int) error {
	variants, err := s.variantRepo.ListByProduct(ctx, source.ID)
	if err != nil {
		return fmt.Errorf("failed to list variants: %w", err)
	}

	total := 0
	for _, v := range variants {
		total += v.Stock
	}
	if quantity > total {
		return apperr.New(apperr.KindInsufficientStock, "cannot transfer %d units, only %d in stock", quantity, total)
	}

	target, err := s.findOrCreateMirror(ctx, source, targetBranchID)
	if err != nil {
		return err
	}

	remaining := quantity
	for i := range variants {
		if remaining == 0 {
			break
		}
		v := &variants[i]
		take := v.Stock
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			continue
		}

		v.Stock -= take
		if err := s.variantRepo.Save(ctx, v); err != nil {
			return fmt.Errorf("failed to decrement variant stock: %w", err)
		}

		mirror, findErr := s.variantRepo.FindByName(ctx, target.ID, v.Name)
		if findErr != nil {
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to look up target variant: %w", findErr)
			}
			mirror = &model.ProductVariant{
				ProductID: target.ID,
				Name:      v.Name,
				SKU:       v.SKU,
			}
			if err := s.variantRepo.Create(ctx, mirror); err != nil {
				return fmt.Errorf("failed to create target variant: %w", err)
			}
		}
		mirror.Stock += take
		if err := s.variantRepo.Save(ctx, mirror); err != nil {
			return fmt.Errorf("failed to increment target variant stock: %w", err)
		}

		remaining -= take
	}
	return nil
}

// findOrCreateMirror resolves the product record at the target branch with
// the same logical identity, creating an empty one when none exists yet.
func (s *inventoryService) findOrCreateMirror(ctx context.Context, source *model.Product, targetBranchID string) (*model.Product, error) {
	target, err := s.productRepo.FindMirror(ctx, source, targetBranchID)
	if err == nil {
		// Tracking modes are mutually exclusive and fixed at creation; a
		// mirror in a different mode cannot absorb the transferred stock.
		if target.TrackingMode() != source.TrackingMode() {
			return nil, apperr.New(apperr.KindInvalidState,
				"product at branch %s tracks stock as %s, source tracks as %s",
				targetBranchID, target.TrackingMode(), source.TrackingMode())
		}
		return target, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up target product: %w", err)
	}

	target = &model.Product{
		BranchID:    targetBranchID,
		SKU:         source.SKU,
		Category:    source.Category,
		Name:        source.Name,
		Price:       source.Price,
		Cost:        source.Cost,
		TrackByUnit: source.TrackByUnit,
		HasVariants: source.HasVariants,
	}
	if err := s.productRepo.Create(ctx, target); err != nil {
		return nil, fmt.Errorf("failed to create target product: %w", err)
	}
	return target, nil
}

func (s *inventoryService) TransferUnits(ctx context.Context, scope model.AccessScope, actor Actor, id string, req TransferUnitsRequest) (string, error) {
	if len(req.UnitIDs) == 0 {
		return "", apperr.Validation("unit_ids must not be empty")
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return "", apperr.Validation("invalid product id: %q", id)
	}
	// Dedupe while parsing so a repeated id moves (and counts) once.
	unitIDs := make([]uuid.UUID, 0, len(req.UnitIDs))
	seen := make(map[uuid.UUID]bool, len(req.UnitIDs))
	for _, raw := range req.UnitIDs {
		uid, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			return "", apperr.Validation("invalid unit id: %q", raw)
		}
		if seen[uid] {
			continue
		}
		seen[uid] = true
		unitIDs = append(unitIDs, uid)
	}

	var source *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		source, txErr = s.productRepo.FindByIDForUpdate(txCtx, pid)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "product %s not found", id)
			}
			return fmt.Errorf("failed to load product: %w", txErr)
		}
		if !scope.Allows(source.BranchID) {
			return apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", source.BranchID)
		}
		if !source.TrackByUnit {
			return apperr.New(apperr.KindInvalidState, "product %s is not unit-tracked", id)
		}
		if req.TargetBranchID == source.BranchID {
			return apperr.Validation("target branch must differ from the product's branch")
		}

		units, txErr := s.unitRepo.FindByIDsForUpdate(txCtx, unitIDs)
		if txErr != nil {
			return fmt.Errorf("failed to load units: %w", txErr)
		}

		// All-or-nothing: collect every offending id before moving anything.
		byID := make(map[uuid.UUID]*model.ProductUnit, len(units))
		for i := range units {
			byID[units[i].ID] = &units[i]
		}
		var invalid []string
		for _, uid := range unitIDs {
			unit, ok := byID[uid]
			switch {
			case !ok:
				invalid = append(invalid, uid.String()+" (not found)")
			case unit.ProductID != source.ID:
				invalid = append(invalid, uid.String()+" (different product)")
			case unit.Status != model.UnitAvailable:
				invalid = append(invalid, uid.String()+" ("+unit.Status+")")
			}
		}
		if len(invalid) > 0 {
			return apperr.New(apperr.KindInvalidUnit, "units not transferable: %s", strings.Join(invalid, ", "))
		}

		target, txErr := s.findOrCreateMirror(txCtx, source, req.TargetBranchID)
		if txErr != nil {
			return txErr
		}

		for _, uid := range unitIDs {
			unit := byID[uid]
			unit.ProductID = target.ID
			if err := s.unitRepo.Save(txCtx, unit); err != nil {
				return fmt.Errorf("failed to move unit %s: %w", uid, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:      source.ID,
		ProductName:    source.Name,
		Action:         model.TxActionTransfer,
		BranchID:       source.BranchID,
		TargetBranchID: req.TargetBranchID,
		Quantity:       len(unitIDs),
		ActorUserID:    actor.UserID,
		ActorName:      actor.Name,
		Description:    req.Reason,
	})

	s.hub.Publish(ws.Event{Type: "inventory_transferred", BranchID: source.BranchID, Data: map[string]interface{}{
		"product_id":    source.ID.String(),
		"target_branch": req.TargetBranchID,
		"quantity":      len(unitIDs),
	}})

	return warning, nil
}

// --- Units ---

func (s *inventoryService) AddUnit(ctx context.Context, scope model.AccessScope, actor Actor, productID string, req AddUnitRequest) (*UnitResponse, string, error) {
	if req.IMEI == "" && req.SerialNumber == "" {
		return nil, "", apperr.Validation("imei or serial_number is required")
	}

	product, err := s.loadProduct(ctx, scope, productID)
	if err != nil {
		return nil, "", err
	}
	if !product.TrackByUnit {
		return nil, "", apperr.New(apperr.KindInvalidState, "product %s is not unit-tracked", productID)
	}

	var unit model.ProductUnit
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		exists, txErr := s.unitRepo.Exists(txCtx, product.ID, req.IMEI, req.SerialNumber)
		if txErr != nil {
			return fmt.Errorf("failed to check for duplicates: %w", txErr)
		}
		if exists {
			return apperr.Validation("a unit with this imei or serial number already exists")
		}

		unit = model.ProductUnit{
			ProductID:    product.ID,
			IMEI:         req.IMEI,
			SerialNumber: req.SerialNumber,
			Status:       model.UnitAvailable,
		}
		return s.unitRepo.Create(txCtx, &unit)
	})
	if err != nil {
		return nil, "", err
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionAddUnit,
		BranchID:    product.BranchID,
		Quantity:    1,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: unitLabel(req.IMEI, req.SerialNumber),
	})

	return &UnitResponse{
		ID:           unit.ID.String(),
		IMEI:         unit.IMEI,
		SerialNumber: unit.SerialNumber,
		Status:       unit.Status,
	}, warning, nil
}

// ParseUnitLines extracts unit candidates from a delimited text block, one
// per line: imei first, serial second, separated by comma, semicolon or tab.
// Lines producing neither field are dropped.
func ParseUnitLines(text string) []AddUnitRequest {
	var out []AddUnitRequest
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ';' || r == '\t'
		})
		var req AddUnitRequest
		if len(fields) > 0 {
			req.IMEI = strings.TrimSpace(fields[0])
		}
		if len(fields) > 1 {
			req.SerialNumber = strings.TrimSpace(fields[1])
		}
		if req.IMEI == "" && req.SerialNumber == "" {
			continue
		}
		out = append(out, req)
	}
	return out
}

func (s *inventoryService) BulkAddUnits(ctx context.Context, scope model.AccessScope, actor Actor, productID string, req BulkAddUnitsRequest) (int, string, error) {
	product, err := s.loadProduct(ctx, scope, productID)
	if err != nil {
		return 0, "", err
	}
	if !product.TrackByUnit {
		return 0, "", apperr.New(apperr.KindInvalidState, "product %s is not unit-tracked", productID)
	}

	candidates := ParseUnitLines(req.Text)
	if len(candidates) == 0 {
		return 0, "", apperr.Validation("no valid unit lines found")
	}

	added := 0
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, candidate := range candidates {
			exists, txErr := s.unitRepo.Exists(txCtx, product.ID, candidate.IMEI, candidate.SerialNumber)
			if txErr != nil {
				return fmt.Errorf("failed to check for duplicates: %w", txErr)
			}
			if exists {
				continue // duplicates are skipped, not fatal
			}
			unit := model.ProductUnit{
				ProductID:    product.ID,
				IMEI:         candidate.IMEI,
				SerialNumber: candidate.SerialNumber,
				Status:       model.UnitAvailable,
			}
			if txErr := s.unitRepo.Create(txCtx, &unit); txErr != nil {
				return fmt.Errorf("failed to create unit: %w", txErr)
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, "", err
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionAddUnit,
		BranchID:    product.BranchID,
		Quantity:    added,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: fmt.Sprintf("bulk add: %d of %d lines", added, len(candidates)),
	})

	return added, warning, nil
}

func (s *inventoryService) DeleteUnit(ctx context.Context, scope model.AccessScope, actor Actor, productID, unitID string) (string, error) {
	product, err := s.loadProduct(ctx, scope, productID)
	if err != nil {
		return "", err
	}
	uid, err := uuid.Parse(unitID)
	if err != nil {
		return "", apperr.Validation("invalid unit id: %q", unitID)
	}

	var unit *model.ProductUnit
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		unit, txErr = s.unitRepo.FindByID(txCtx, uid)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "unit %s not found", unitID)
			}
			return fmt.Errorf("failed to load unit: %w", txErr)
		}
		if unit.ProductID != product.ID {
			return apperr.New(apperr.KindInvalidUnit, "unit %s does not belong to product %s", unitID, productID)
		}
		if unit.Status != model.UnitAvailable {
			return apperr.New(apperr.KindInvalidState, "unit %s is %s, only available units can be deleted", unitID, unit.Status)
		}
		return s.unitRepo.Delete(txCtx, uid)
	})
	if err != nil {
		return "", err
	}

	return s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionDeleteUnit,
		BranchID:    product.BranchID,
		Quantity:    -1,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: unitLabel(unit.IMEI, unit.SerialNumber),
	}), nil
}

func (s *inventoryService) ListUnits(ctx context.Context, scope model.AccessScope, productID, status string) ([]UnitResponse, error) {
	product, err := s.loadProduct(ctx, scope, productID)
	if err != nil {
		return nil, err
	}
	units, err := s.unitRepo.ListByProduct(ctx, product.ID, status)
	if err != nil {
		return nil, err
	}
	res := make([]UnitResponse, 0, len(units))
	for _, u := range units {
		res = append(res, UnitResponse{
			ID:           u.ID.String(),
			IMEI:         u.IMEI,
			SerialNumber: u.SerialNumber,
			Status:       u.Status,
		})
	}
	return res, nil
}

// --- Variants ---

func (s *inventoryService) AddVariant(ctx context.Context, scope model.AccessScope, actor Actor, productID string, req AddVariantRequest) (*VariantResponse, string, error) {
	if req.Name == "" {
		return nil, "", apperr.Validation("variant name is required")
	}
	if req.Stock < 0 {
		return nil, "", apperr.Validation("variant stock must not be negative")
	}

	product, err := s.loadProduct(ctx, scope, productID)
	if err != nil {
		return nil, "", err
	}
	if !product.HasVariants {
		return nil, "", apperr.New(apperr.KindInvalidState, "product %s is not variant-tracked", productID)
	}

	variant := model.ProductVariant{
		ProductID: product.ID,
		Name:      req.Name,
		SKU:       req.SKU,
		Stock:     req.Stock,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		return s.variantRepo.Create(txCtx, &variant)
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create variant: %w", err)
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionAddVariant,
		BranchID:    product.BranchID,
		Quantity:    req.Stock,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: "variant " + req.Name,
	})

	return &VariantResponse{
		ID:    variant.ID.String(),
		Name:  variant.Name,
		SKU:   variant.SKU,
		Stock: variant.Stock,
	}, warning, nil
}

// SetVariantStock replaces the variant's stock with an absolute value.
func (s *inventoryService) SetVariantStock(ctx context.Context, scope model.AccessScope, actor Actor, productID, variantID string, req SetVariantStockRequest) (*VariantResponse, string, error) {
	if req.Stock < 0 {
		return nil, "", apperr.Validation("variant stock must not be negative")
	}

	product, err := s.loadProduct(ctx, scope, productID)
	if err != nil {
		return nil, "", err
	}
	vid, err := uuid.Parse(variantID)
	if err != nil {
		return nil, "", apperr.Validation("invalid variant id: %q", variantID)
	}

	var variant *model.ProductVariant
	var delta int
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var txErr error
		variant, txErr = s.variantRepo.FindByID(txCtx, vid)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "variant %s not found", variantID)
			}
			return fmt.Errorf("failed to load variant: %w", txErr)
		}
		if variant.ProductID != product.ID {
			return apperr.Validation("variant %s does not belong to product %s", variantID, productID)
		}
		delta = req.Stock - variant.Stock
		variant.Stock = req.Stock
		return s.variantRepo.Save(txCtx, variant)
	})
	if err != nil {
		return nil, "", err
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionUpdateVariant,
		BranchID:    product.BranchID,
		Quantity:    delta,
		StockAfter:  req.Stock,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: "variant " + variant.Name,
	})

	return &VariantResponse{
		ID:    variant.ID.String(),
		Name:  variant.Name,
		SKU:   variant.SKU,
		Stock: variant.Stock,
	}, warning, nil
}

func (s *inventoryService) DeleteVariant(ctx context.Context, scope model.AccessScope, actor Actor, productID, variantID string) (string, error) {
	product, err := s.loadProduct(ctx, scope, productID)
	if err != nil {
		return "", err
	}
	vid, err := uuid.Parse(variantID)
	if err != nil {
		return "", apperr.Validation("invalid variant id: %q", variantID)
	}

	var discarded int
	var name string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		variant, txErr := s.variantRepo.FindByID(txCtx, vid)
		if txErr != nil {
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "variant %s not found", variantID)
			}
			return fmt.Errorf("failed to load variant: %w", txErr)
		}
		if variant.ProductID != product.ID {
			return apperr.Validation("variant %s does not belong to product %s", variantID, productID)
		}
		if variant.Stock > 0 && s.strictVariantDelete {
			return apperr.Validation("variant %s still holds %d units", variantID, variant.Stock)
		}
		discarded = variant.Stock
		name = variant.Name
		return s.variantRepo.Delete(txCtx, vid)
	})
	if err != nil {
		return "", err
	}

	warning := s.audit(ctx, model.ProductTransaction{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      model.TxActionDeleteVariant,
		BranchID:    product.BranchID,
		Quantity:    -discarded,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		Description: "variant " + name,
	})
	if discarded > 0 {
		note := fmt.Sprintf("variant deleted with %d units of stock discarded", discarded)
		if warning != "" {
			warning = note + "; " + warning
		} else {
			warning = note
		}
	}
	return warning, nil
}

func (s *inventoryService) ListVariants(ctx context.Context, scope model.AccessScope, productID string) ([]VariantResponse, error) {
	product, err := s.loadProduct(ctx, scope, productID)
	if err != nil {
		return nil, err
	}
	variants, err := s.variantRepo.ListByProduct(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	res := make([]VariantResponse, 0, len(variants))
	for _, v := range variants {
		res = append(res, VariantResponse{
			ID:    v.ID.String(),
			Name:  v.Name,
			SKU:   v.SKU,
			Stock: v.Stock,
		})
	}
	return res, nil
}

func (s *inventoryService) mapProduct(ctx context.Context, product *model.Product) (*ProductResponse, string, error) {
	stock, err := s.availableStock(ctx, product)
	if err != nil {
		return nil, "", fmt.Errorf("failed to compute available stock: %w", err)
	}
	return &ProductResponse{
		ID:             product.ID.String(),
		BranchID:       product.BranchID,
		SKU:            product.SKU,
		Category:       product.Category,
		Name:           product.Name,
		Price:          product.Price.StringFixed(2),
		Cost:           product.Cost.StringFixed(2),
		Tracking:       product.TrackingMode(),
		AvailableStock: stock,
	}, "", nil
}

func unitLabel(imei, serial string) string {
	switch {
	case imei != "" && serial != "":
		return "imei " + imei + ", serial " + serial
	case imei != "":
		return "imei " + imei
	default:
		return "serial " + serial
	}
}
