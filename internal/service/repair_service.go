package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"oryon/internal/client"
	"oryon/internal/model"
	"oryon/internal/repository"
	ws "oryon/internal/websocket"
	"oryon/pkg/apperr"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Actor identifies who performed an operation, for status logs and audit rows.
type Actor struct {
	UserID    *uuid.UUID
	Name      string
	CompanyID string
}

// --- DTOs ---

type CreateRepairRequest struct {
	CustomerID     string `json:"customer_id"`
	CustomerName   string `json:"customer_name"`
	CustomerPhone  string `json:"customer_phone"`
	CustomerEmail  string `json:"customer_email"`
	Identification string `json:"identification"`

	DeviceType   string `json:"device_type"`
	DeviceBrand  string `json:"device_brand"`
	DeviceModel  string `json:"device_model"`
	IMEI         string `json:"imei"`
	SerialNumber string `json:"serial_number"`

	Problem       string `json:"problem" binding:"required"`
	Notes         string `json:"notes"`
	EstimatedCost string `json:"estimated_cost" binding:"required"`
	BranchID      string `json:"branch_id" binding:"required"`

	// Inline image payloads, uploaded to the asset store before persistence.
	Images []string `json:"images"`

	// Device unlock secret: a text PIN or a drawn pattern, discriminated by
	// DevicePasswordType. Setting both kinds is rejected.
	DevicePasswordType string `json:"device_password_type" binding:"omitempty,oneof=pin pattern"`
	DevicePassword     string `json:"device_password"`
}

type ChangeStatusRequest struct {
	Status string   `json:"status" binding:"required"`
	Notes  string   `json:"notes"`
	Images []string `json:"images"`
}

type LaborItemRequest struct {
	Description string  `json:"description" binding:"required"`
	Hours       float64 `json:"hours" binding:"min=0"`
	HourlyRate  float64 `json:"hourly_rate" binding:"min=0"`
}

type PartItemRequest struct {
	Description  string  `json:"description" binding:"required"`
	PurchaseCost float64 `json:"purchase_cost" binding:"min=0"`
	SalePrice    float64 `json:"sale_price" binding:"min=0"`
	Quantity     int     `json:"quantity" binding:"required,min=1"`
}

type CreateRepairInvoiceRequest struct {
	LaborItems []LaborItemRequest `json:"labor_items"`
	Parts      []PartItemRequest  `json:"parts"`
	Notes      string             `json:"notes"`
}

type StatusLogResponse struct {
	ID             string   `json:"id"`
	PreviousStatus *string  `json:"previous_status"`
	NewStatus      string   `json:"new_status"`
	Notes          string   `json:"notes"`
	Images         []string `json:"images"`
	ActorUserName  string   `json:"actor_user_name"`
	CreatedAt      string   `json:"created_at"`
}

type RepairResponse struct {
	ID            uint                `json:"id"`
	BranchID      string              `json:"branch_id"`
	CustomerID    *string             `json:"customer_id"`
	CustomerName  string              `json:"customer_name"`
	CustomerPhone string              `json:"customer_phone"`
	DeviceType    string              `json:"device_type"`
	DeviceBrand   string              `json:"device_brand"`
	DeviceModel   string              `json:"device_model"`
	IMEI          string              `json:"imei"`
	SerialNumber  string              `json:"serial_number"`
	Problem       string              `json:"problem"`
	Notes         string              `json:"notes"`
	EstimatedCost string              `json:"estimated_cost"`
	Status        string              `json:"status"`
	StatusLogs    []StatusLogResponse `json:"status_logs,omitempty"`
	Images        []string            `json:"images"`
	Invoiced      bool                `json:"invoiced"`
	InvoiceID     *string             `json:"invoice_id"`
	CreatedAt     string              `json:"created_at"`
}

type RepairInvoiceResponse struct {
	ID        string `json:"id"`
	InvoiceNo string `json:"invoice_no"`
	RepairID  uint   `json:"repair_id"`
	TotalCost string `json:"total_cost"`
	Total     string `json:"total"`
	Margin    string `json:"margin"`
}

// --- Interface ---

type RepairService interface {
	CreateOrder(ctx context.Context, scope model.AccessScope, actor Actor, req CreateRepairRequest) (*RepairResponse, string, error)
	ChangeStatus(ctx context.Context, scope model.AccessScope, actor Actor, orderID uint, req ChangeStatusRequest) (*RepairResponse, string, error)
	CreateInvoice(ctx context.Context, scope model.AccessScope, actor Actor, orderID uint, req CreateRepairInvoiceRequest) (*RepairInvoiceResponse, string, error)
	GetOrder(ctx context.Context, scope model.AccessScope, orderID uint) (*RepairResponse, error)
	ListOrders(ctx context.Context, scope model.AccessScope, status, search string, page, limit int) ([]RepairResponse, int64, error)
	DeleteOrder(ctx context.Context, orderID uint) error
}

type repairService struct {
	repairRepo   repository.RepairRepository
	customerRepo repository.CustomerRepository
	saleRepo     repository.SaleRepository
	txManager    repository.TransactionManager
	assets       client.AssetStore
	printer      client.TicketPrinter
	hub          *ws.Hub
}

func NewRepairService(
	repairRepo repository.RepairRepository,
	customerRepo repository.CustomerRepository,
	saleRepo repository.SaleRepository,
	txManager repository.TransactionManager,
	assets client.AssetStore,
	printer client.TicketPrinter,
	hub *ws.Hub,
) RepairService {
	return &repairService{
		repairRepo:   repairRepo,
		customerRepo: customerRepo,
		saleRepo:     saleRepo,
		txManager:    txManager,
		assets:       assets,
		printer:      printer,
		hub:          hub,
	}
}

// --- Implementation ---

func (s *repairService) CreateOrder(ctx context.Context, scope model.AccessScope, actor Actor, req CreateRepairRequest) (*RepairResponse, string, error) {
	if req.Problem == "" {
		return nil, "", apperr.Validation("problem description is required")
	}
	if req.BranchID == "" {
		return nil, "", apperr.Validation("branch_id is required")
	}
	if !scope.Allows(req.BranchID) {
		return nil, "", apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", req.BranchID)
	}

	estimatedCost, err := decimal.NewFromString(req.EstimatedCost)
	if err != nil {
		return nil, "", apperr.Validation("invalid estimated_cost: %q", req.EstimatedCost)
	}
	if estimatedCost.IsNegative() {
		return nil, "", apperr.Validation("estimated_cost must not be negative")
	}

	if req.DevicePasswordType != "" &&
		req.DevicePasswordType != model.DevicePasswordPIN &&
		req.DevicePasswordType != model.DevicePasswordPattern {
		return nil, "", apperr.Validation("device_password_type must be pin or pattern")
	}
	if req.DevicePasswordType != "" && req.DevicePassword == "" {
		return nil, "", apperr.Validation("device_password is required when device_password_type is set")
	}

	order := model.RepairOrder{
		CompanyID:          actor.CompanyID,
		BranchID:           req.BranchID,
		DeviceType:         req.DeviceType,
		DeviceBrand:        req.DeviceBrand,
		DeviceModel:        req.DeviceModel,
		IMEI:               req.IMEI,
		SerialNumber:       req.SerialNumber,
		Problem:            req.Problem,
		Notes:              req.Notes,
		EstimatedCost:      estimatedCost,
		DevicePasswordType: req.DevicePasswordType,
		DevicePassword:     req.DevicePassword,
		Status:             model.StatusReceived,
	}

	// Resolve the customer: an explicit reference wins, otherwise the inline
	// name+phone pair is mandatory and kept as the free-text fallback.
	if req.CustomerID != "" {
		cid, parseErr := uuid.Parse(req.CustomerID)
		if parseErr != nil {
			return nil, "", apperr.Validation("invalid customer_id: %q", req.CustomerID)
		}
		customer, findErr := s.customerRepo.FindByID(ctx, cid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return nil, "", apperr.New(apperr.KindNotFound, "customer %s not found", req.CustomerID)
			}
			return nil, "", fmt.Errorf("failed to load customer: %w", findErr)
		}
		order.CustomerID = &customer.ID
		order.CustomerName = customer.Name
		order.CustomerPhone = customer.Phone
	} else {
		if req.CustomerName == "" || req.CustomerPhone == "" {
			return nil, "", apperr.Validation("customer name and phone are required when no customer_id is given")
		}
		order.CustomerName = req.CustomerName
		order.CustomerPhone = req.CustomerPhone
	}

	// Image upload failure is non-fatal: the order is still created with an
	// empty image list and the failure surfaces as a warning.
	var warning string
	if len(req.Images) > 0 {
		urls, upErr := s.assets.Upload(ctx, req.Images)
		if upErr != nil {
			log.Println("repair: image upload failed:", upErr)
			warning = "image upload failed, order created without images: " + upErr.Error()
		} else {
			order.Images = urls
		}
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repairRepo.Create(txCtx, &order); err != nil {
			return fmt.Errorf("failed to create repair order: %w", err)
		}

		entry := &model.StatusLog{
			RepairOrderID:  order.ID,
			PreviousStatus: nil,
			NewStatus:      model.StatusReceived,
			Notes:          req.Notes,
			Images:         order.Images,
			ActorUserID:    actor.UserID,
			ActorUserName:  actor.Name,
			CreatedAt:      time.Now(),
		}
		if err := s.repairRepo.AppendStatusLog(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write initial status log: %w", err)
		}
		order.StatusLogs = append(order.StatusLogs, *entry)
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.hub.Publish(ws.Event{Type: "repair_created", BranchID: order.BranchID, Data: map[string]interface{}{"id": order.ID}})

	return mapRepairResponse(&order), warning, nil
}

func (s *repairService) ChangeStatus(ctx context.Context, scope model.AccessScope, actor Actor, orderID uint, req ChangeStatusRequest) (*RepairResponse, string, error) {
	if !model.ValidStatus(req.Status) {
		return nil, "", apperr.Validation("unknown status %q", req.Status)
	}

	var warning string
	var images []string
	if len(req.Images) > 0 {
		urls, upErr := s.assets.Upload(ctx, req.Images)
		if upErr != nil {
			log.Println("repair: status image upload failed:", upErr)
			warning = "image upload failed, status recorded without images: " + upErr.Error()
		} else {
			images = urls
		}
	}

	var branchID string
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repairRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "repair order %d not found", orderID)
			}
			return fmt.Errorf("failed to load repair order: %w", err)
		}
		if !scope.Allows(order.BranchID) {
			return apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", order.BranchID)
		}
		if !model.ValidTransition(order.Status, req.Status) {
			return apperr.New(apperr.KindInvalidState, "transition %s -> %s is not allowed", order.Status, req.Status)
		}

		previous := order.Status
		entry := &model.StatusLog{
			RepairOrderID:  order.ID,
			PreviousStatus: &previous,
			NewStatus:      req.Status,
			Notes:          req.Notes,
			Images:         images,
			ActorUserID:    actor.UserID,
			ActorUserName:  actor.Name,
			CreatedAt:      time.Now(),
		}
		if err := s.repairRepo.AppendStatusLog(txCtx, entry); err != nil {
			return fmt.Errorf("failed to append status log: %w", err)
		}

		order.Status = req.Status
		if err := s.repairRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to update repair order: %w", err)
		}
		branchID = order.BranchID
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.hub.Publish(ws.Event{Type: "repair_status_changed", BranchID: branchID, Data: map[string]interface{}{
		"id":     orderID,
		"status": req.Status,
	}})

	order, err := s.repairRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, warning, fmt.Errorf("failed to reload repair order: %w", err)
	}
	return mapRepairResponse(order), warning, nil
}

func (s *repairService) CreateInvoice(ctx context.Context, scope model.AccessScope, actor Actor, orderID uint, req CreateRepairInvoiceRequest) (*RepairInvoiceResponse, string, error) {
	totalCost := decimal.Zero
	totalInvoice := decimal.Zero

	items := make([]model.SaleItem, 0, len(req.LaborItems)+len(req.Parts))
	for _, labor := range req.LaborItems {
		if labor.Description == "" {
			return nil, "", apperr.Validation("labor item description is required")
		}
		if labor.Hours < 0 || labor.HourlyRate < 0 {
			return nil, "", apperr.Validation("labor hours and hourly_rate must not be negative")
		}
		hours := decimal.NewFromFloat(labor.Hours)
		rate := decimal.NewFromFloat(labor.HourlyRate)
		amount := hours.Mul(rate)
		// Labor has no purchase cost: it counts toward both totals at the
		// same billed amount.
		totalCost = totalCost.Add(amount)
		totalInvoice = totalInvoice.Add(amount)
		items = append(items, model.SaleItem{
			Kind:        model.SaleItemLabor,
			Description: labor.Description,
			Hours:       hours,
			HourlyRate:  rate,
			SalePrice:   amount,
			Quantity:    1,
		})
	}
	for _, part := range req.Parts {
		if part.Description == "" {
			return nil, "", apperr.Validation("part description is required")
		}
		if part.PurchaseCost < 0 || part.SalePrice < 0 {
			return nil, "", apperr.Validation("part purchase_cost and sale_price must not be negative")
		}
		if part.Quantity < 1 {
			return nil, "", apperr.Validation("part quantity must be at least 1")
		}
		qty := decimal.NewFromInt(int64(part.Quantity))
		purchase := decimal.NewFromFloat(part.PurchaseCost)
		sale := decimal.NewFromFloat(part.SalePrice)
		totalCost = totalCost.Add(purchase.Mul(qty))
		totalInvoice = totalInvoice.Add(sale.Mul(qty))
		items = append(items, model.SaleItem{
			Kind:         model.SaleItemPart,
			Description:  part.Description,
			PurchaseCost: purchase,
			SalePrice:    sale,
			Quantity:     part.Quantity,
		})
	}

	if totalInvoice.IsZero() {
		return nil, "", apperr.Validation("invoice total is zero, nothing to charge")
	}

	var sale model.Sale
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err := s.repairRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "repair order %d not found", orderID)
			}
			return fmt.Errorf("failed to load repair order: %w", err)
		}
		if !scope.Allows(order.BranchID) {
			return apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", order.BranchID)
		}
		if order.Status != model.StatusCompleted {
			return apperr.New(apperr.KindInvalidState, "repair order %d is %s, only completed orders can be invoiced", orderID, order.Status)
		}
		if order.Invoiced {
			return apperr.New(apperr.KindInvalidState, "repair order %d is already invoiced", orderID)
		}

		sale = model.Sale{
			InvoiceNo:     fmt.Sprintf("INV-%d-%s", orderID, time.Now().Format("060102150405")),
			RepairOrderID: &order.ID,
			CustomerID:    order.CustomerID,
			BranchID:      order.BranchID,
			TotalCost:     totalCost,
			Total:         totalInvoice,
			Margin:        totalInvoice.Sub(totalCost),
			Notes:         req.Notes,
			CreatedBy:     actor.Name,
		}
		if err := s.saleRepo.Create(txCtx, &sale); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		for i := range items {
			items[i].SaleID = sale.ID
			if err := s.saleRepo.CreateItem(txCtx, &items[i]); err != nil {
				return fmt.Errorf("failed to create invoice item: %w", err)
			}
		}

		order.Invoiced = true
		order.InvoiceID = &sale.ID
		if err := s.repairRepo.Save(txCtx, order); err != nil {
			return fmt.Errorf("failed to flag repair order invoiced: %w", err)
		}

		// Captured for the print ticket below.
		sale.Items = items
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	// Print is delegated and non-blocking; its failure never rolls back the
	// invoice, it is only logged.
	go func(ticket client.InvoiceTicket) {
		printCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.printer.PrintInvoice(printCtx, ticket); err != nil {
			log.Println("repair: print ticket failed:", err)
		}
	}(client.InvoiceTicket{
		InvoiceNo: sale.InvoiceNo,
		RepairID:  orderID,
		BranchID:  sale.BranchID,
		Total:     sale.Total.StringFixed(2),
		Notes:     req.Notes,
	})

	s.hub.Publish(ws.Event{Type: "repair_invoiced", BranchID: sale.BranchID, Data: map[string]interface{}{
		"id":         orderID,
		"invoice_no": sale.InvoiceNo,
	}})

	return &RepairInvoiceResponse{
		ID:        sale.ID.String(),
		InvoiceNo: sale.InvoiceNo,
		RepairID:  orderID,
		TotalCost: sale.TotalCost.StringFixed(2),
		Total:     sale.Total.StringFixed(2),
		Margin:    sale.Margin.StringFixed(2),
	}, "", nil
}

func (s *repairService) GetOrder(ctx context.Context, scope model.AccessScope, orderID uint) (*RepairResponse, error) {
	order, err := s.repairRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "repair order %d not found", orderID)
		}
		return nil, fmt.Errorf("failed to load repair order: %w", err)
	}
	if !scope.Allows(order.BranchID) {
		return nil, apperr.New(apperr.KindForbidden, "branch %s is not in the caller's scope", order.BranchID)
	}
	return mapRepairResponse(order), nil
}

func (s *repairService) ListOrders(ctx context.Context, scope model.AccessScope, status, search string, page, limit int) ([]RepairResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if status != "" && !model.ValidStatus(status) {
		return nil, 0, apperr.Validation("unknown status %q", status)
	}

	filter := repository.RepairFilter{
		Branches: scope.BranchIDs(),
		Status:   status,
		Search:   search,
	}
	orders, total, err := s.repairRepo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]RepairResponse, 0, len(orders))
	for i := range orders {
		res = append(res, *mapRepairResponse(&orders[i]))
	}
	return res, total, nil
}

// DeleteOrder is the admin-only hard removal; the handler gates the role.
func (s *repairService) DeleteOrder(ctx context.Context, orderID uint) error {
	if _, err := s.repairRepo.FindByID(ctx, orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "repair order %d not found", orderID)
		}
		return fmt.Errorf("failed to load repair order: %w", err)
	}
	return s.repairRepo.Delete(ctx, orderID)
}

func mapRepairResponse(order *model.RepairOrder) *RepairResponse {
	res := &RepairResponse{
		ID:            order.ID,
		BranchID:      order.BranchID,
		CustomerName:  order.CustomerName,
		CustomerPhone: order.CustomerPhone,
		DeviceType:    order.DeviceType,
		DeviceBrand:   order.DeviceBrand,
		DeviceModel:   order.DeviceModel,
		IMEI:          order.IMEI,
		SerialNumber:  order.SerialNumber,
		Problem:       order.Problem,
		Notes:         order.Notes,
		EstimatedCost: order.EstimatedCost.StringFixed(2),
		Status:        order.Status,
		Images:        order.Images,
		Invoiced:      order.Invoiced,
		CreatedAt:     order.CreatedAt.Format(time.RFC3339),
	}
	if order.CustomerID != nil {
		id := order.CustomerID.String()
		res.CustomerID = &id
	}
	if order.InvoiceID != nil {
		id := order.InvoiceID.String()
		res.InvoiceID = &id
	}
	for _, entry := range order.StatusLogs {
		res.StatusLogs = append(res.StatusLogs, StatusLogResponse{
			ID:             entry.ID.String(),
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
			Notes:          entry.Notes,
			Images:         entry.Images,
			ActorUserName:  entry.ActorUserName,
			CreatedAt:      entry.CreatedAt.Format(time.RFC3339),
		})
	}
	return res
}
