package service_test

import (
	"context"
	"strings"

	"oryon/internal/client"
	"oryon/internal/model"
	"oryon/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fakeTxManager runs the callback directly; the in-memory fakes have no
// transactions to coordinate.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- repair orders ---

type fakeRepairRepo struct {
	nextID uint
	orders map[uint]model.RepairOrder
	logs   map[uint][]model.StatusLog
}

func newFakeRepairRepo() *fakeRepairRepo {
	return &fakeRepairRepo{
		orders: make(map[uint]model.RepairOrder),
		logs:   make(map[uint][]model.StatusLog),
	}
}

func (r *fakeRepairRepo) Create(_ context.Context, order *model.RepairOrder) error {
	r.nextID++
	order.ID = r.nextID
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeRepairRepo) Save(_ context.Context, order *model.RepairOrder) error {
	if _, ok := r.orders[order.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	saved := *order
	saved.StatusLogs = nil
	r.orders[order.ID] = saved
	return nil
}

func (r *fakeRepairRepo) Delete(_ context.Context, id uint) error {
	delete(r.orders, id)
	delete(r.logs, id)
	return nil
}

func (r *fakeRepairRepo) FindByID(_ context.Context, id uint) (*model.RepairOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	order.StatusLogs = append([]model.StatusLog(nil), r.logs[id]...)
	return &order, nil
}

func (r *fakeRepairRepo) FindByIDForUpdate(_ context.Context, id uint) (*model.RepairOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &order, nil
}

func (r *fakeRepairRepo) List(_ context.Context, filter repository.RepairFilter, page, limit int) ([]model.RepairOrder, int64, error) {
	var out []model.RepairOrder
	for id := uint(1); id <= r.nextID; id++ {
		order, ok := r.orders[id]
		if !ok {
			continue
		}
		if filter.Branches != nil && !contains(filter.Branches, order.BranchID) {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		out = append(out, order)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepairRepo) AppendStatusLog(_ context.Context, entry *model.StatusLog) error {
	entry.ID = uuid.New()
	r.logs[entry.RepairOrderID] = append(r.logs[entry.RepairOrderID], *entry)
	return nil
}

// --- products ---

type fakeProductRepo struct {
	products map[uuid.UUID]model.Product
	order    []uuid.UUID
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: make(map[uuid.UUID]model.Product)}
}

func (r *fakeProductRepo) Create(_ context.Context, product *model.Product) error {
	product.ID = uuid.New()
	r.products[product.ID] = *product
	r.order = append(r.order, product.ID)
	return nil
}

func (r *fakeProductRepo) Save(_ context.Context, product *model.Product) error {
	if _, ok := r.products[product.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	product, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &product, nil
}

func (r *fakeProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeProductRepo) FindMirror(_ context.Context, product *model.Product, branchID string) (*model.Product, error) {
	for _, id := range r.order {
		candidate, ok := r.products[id]
		if !ok || candidate.BranchID != branchID {
			continue
		}
		if product.SKU != "" {
			if candidate.SKU == product.SKU {
				return &candidate, nil
			}
		} else if candidate.Name == product.Name && candidate.Category == product.Category {
			return &candidate, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProductRepo) List(_ context.Context, filter repository.ProductFilter, page, limit int) ([]model.Product, int64, error) {
	var out []model.Product
	for _, id := range r.order {
		product, ok := r.products[id]
		if !ok {
			continue
		}
		if filter.Branches != nil && !contains(filter.Branches, product.BranchID) {
			continue
		}
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(product.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, product)
	}
	return out, int64(len(out)), nil
}

func (r *fakeProductRepo) UpdateQuantity(_ context.Context, id uuid.UUID, quantity int) error {
	product, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	product.Quantity = quantity
	r.products[id] = product
	return nil
}

// --- units ---

type fakeUnitRepo struct {
	units map[uuid.UUID]model.ProductUnit
	order []uuid.UUID
}

func newFakeUnitRepo() *fakeUnitRepo {
	return &fakeUnitRepo{units: make(map[uuid.UUID]model.ProductUnit)}
}

func (r *fakeUnitRepo) Create(_ context.Context, unit *model.ProductUnit) error {
	unit.ID = uuid.New()
	r.units[unit.ID] = *unit
	r.order = append(r.order, unit.ID)
	return nil
}

func (r *fakeUnitRepo) Save(_ context.Context, unit *model.ProductUnit) error {
	if _, ok := r.units[unit.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.units[unit.ID] = *unit
	return nil
}

func (r *fakeUnitRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.units, id)
	return nil
}

func (r *fakeUnitRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductUnit, error) {
	unit, ok := r.units[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &unit, nil
}

func (r *fakeUnitRepo) FindByIDsForUpdate(_ context.Context, ids []uuid.UUID) ([]model.ProductUnit, error) {
	var out []model.ProductUnit
	for _, id := range ids {
		if unit, ok := r.units[id]; ok {
			out = append(out, unit)
		}
	}
	return out, nil
}

func (r *fakeUnitRepo) ListByProduct(_ context.Context, productID uuid.UUID, status string) ([]model.ProductUnit, error) {
	var out []model.ProductUnit
	for _, id := range r.order {
		unit, ok := r.units[id]
		if !ok || unit.ProductID != productID {
			continue
		}
		if status != "" && unit.Status != status {
			continue
		}
		out = append(out, unit)
	}
	return out, nil
}

func (r *fakeUnitRepo) CountAvailable(ctx context.Context, productID uuid.UUID) (int64, error) {
	units, _ := r.ListByProduct(ctx, productID, model.UnitAvailable)
	return int64(len(units)), nil
}

func (r *fakeUnitRepo) Exists(_ context.Context, productID uuid.UUID, imei, serial string) (bool, error) {
	for _, unit := range r.units {
		if unit.ProductID != productID {
			continue
		}
		if imei != "" && unit.IMEI == imei {
			return true, nil
		}
		if serial != "" && unit.SerialNumber == serial {
			return true, nil
		}
	}
	return false, nil
}

// --- variants ---

type fakeVariantRepo struct {
	variants map[uuid.UUID]model.ProductVariant
	order    []uuid.UUID
}

func newFakeVariantRepo() *fakeVariantRepo {
	return &fakeVariantRepo{variants: make(map[uuid.UUID]model.ProductVariant)}
}

func (r *fakeVariantRepo) Create(_ context.Context, variant *model.ProductVariant) error {
	variant.ID = uuid.New()
	r.variants[variant.ID] = *variant
	r.order = append(r.order, variant.ID)
	return nil
}

func (r *fakeVariantRepo) Save(_ context.Context, variant *model.ProductVariant) error {
	if _, ok := r.variants[variant.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.variants[variant.ID] = *variant
	return nil
}

func (r *fakeVariantRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.variants, id)
	return nil
}

func (r *fakeVariantRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ProductVariant, error) {
	variant, ok := r.variants[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &variant, nil
}

func (r *fakeVariantRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.ProductVariant, error) {
	var out []model.ProductVariant
	for _, id := range r.order {
		variant, ok := r.variants[id]
		if !ok || variant.ProductID != productID {
			continue
		}
		out = append(out, variant)
	}
	return out, nil
}

func (r *fakeVariantRepo) FindByName(_ context.Context, productID uuid.UUID, name string) (*model.ProductVariant, error) {
	for _, id := range r.order {
		variant, ok := r.variants[id]
		if ok && variant.ProductID == productID && variant.Name == name {
			return &variant, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeVariantRepo) SumStock(ctx context.Context, productID uuid.UUID) (int64, error) {
	variants, _ := r.ListByProduct(ctx, productID)
	var sum int64
	for _, v := range variants {
		sum += int64(v.Stock)
	}
	return sum, nil
}

// --- product transactions ---

type fakeTransactionRepo struct {
	records   []model.ProductTransaction
	createErr error
}

func (r *fakeTransactionRepo) Create(_ context.Context, tx *model.ProductTransaction) error {
	if r.createErr != nil {
		return r.createErr
	}
	tx.ID = uuid.New()
	r.records = append(r.records, *tx)
	return nil
}

func (r *fakeTransactionRepo) Query(_ context.Context, filter repository.TransactionFilter, page, limit int) ([]model.ProductTransaction, int64, error) {
	var out []model.ProductTransaction
	// Newest first: the backing store appends in insertion order.
	for i := len(r.records) - 1; i >= 0; i-- {
		record := r.records[i]
		if filter.ProductID != nil && record.ProductID != *filter.ProductID {
			continue
		}
		if filter.Branches != nil && !contains(filter.Branches, record.BranchID) {
			continue
		}
		if filter.BranchID != "" && record.BranchID != filter.BranchID {
			continue
		}
		if filter.Action != "" && record.Action != filter.Action {
			continue
		}
		if filter.ActorName != "" && record.ActorName != filter.ActorName {
			continue
		}
		out = append(out, record)
	}
	return out, int64(len(out)), nil
}

// --- sales ---

type fakeSaleRepo struct {
	sales map[uuid.UUID]model.Sale
	items []model.SaleItem
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{sales: make(map[uuid.UUID]model.Sale)}
}

func (r *fakeSaleRepo) Create(_ context.Context, sale *model.Sale) error {
	sale.ID = uuid.New()
	r.sales[sale.ID] = *sale
	return nil
}

func (r *fakeSaleRepo) CreateItem(_ context.Context, item *model.SaleItem) error {
	item.ID = uuid.New()
	r.items = append(r.items, *item)
	return nil
}

func (r *fakeSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for _, item := range r.items {
		if item.SaleID == id {
			sale.Items = append(sale.Items, item)
		}
	}
	return &sale, nil
}

func (r *fakeSaleRepo) List(_ context.Context, branches []string, page, limit int) ([]model.Sale, int64, error) {
	var out []model.Sale
	for _, sale := range r.sales {
		if branches != nil && !contains(branches, sale.BranchID) {
			continue
		}
		out = append(out, sale)
	}
	return out, int64(len(out)), nil
}

// --- customers ---

type fakeCustomerRepo struct {
	customers map[uuid.UUID]model.Customer
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{customers: make(map[uuid.UUID]model.Customer)}
}

func (r *fakeCustomerRepo) Create(_ context.Context, customer *model.Customer) error {
	customer.ID = uuid.New()
	r.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) Save(_ context.Context, customer *model.Customer) error {
	if _, ok := r.customers[customer.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.customers, id)
	return nil
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	customer, ok := r.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &customer, nil
}

func (r *fakeCustomerRepo) List(_ context.Context, search string, page, limit int) ([]model.Customer, int64, error) {
	var out []model.Customer
	for _, customer := range r.customers {
		if search != "" && !strings.Contains(strings.ToLower(customer.Name), strings.ToLower(search)) {
			continue
		}
		out = append(out, customer)
	}
	return out, int64(len(out)), nil
}

// --- branches ---

type fakeBranchRepo struct {
	branches map[string]model.Branch
	order    []string
}

func newFakeBranchRepo() *fakeBranchRepo {
	return &fakeBranchRepo{branches: make(map[string]model.Branch)}
}

func (r *fakeBranchRepo) Create(_ context.Context, branch *model.Branch) error {
	r.branches[branch.ID] = *branch
	r.order = append(r.order, branch.ID)
	return nil
}

func (r *fakeBranchRepo) FindByID(_ context.Context, id string) (*model.Branch, error) {
	branch, ok := r.branches[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &branch, nil
}

func (r *fakeBranchRepo) List(_ context.Context) ([]model.Branch, error) {
	out := make([]model.Branch, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.branches[id])
	}
	return out, nil
}

// --- external collaborators ---

type fakeAssets struct {
	err     error
	uploads int
}

func (a *fakeAssets) Upload(_ context.Context, images []string) ([]string, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.uploads++
	urls := make([]string, len(images))
	for i := range images {
		urls[i] = "https://assets.local/" + uuid.NewString()
	}
	return urls, nil
}

type fakePrinter struct{}

func (fakePrinter) PrintInvoice(context.Context, client.InvoiceTicket) error { return nil }

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}
