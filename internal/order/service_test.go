package order

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/customer"
	"github.com/noah-isme/backend-pos/internal/employee"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/ledger"
	"github.com/noah-isme/backend-pos/internal/tasks"
)

type stubCatalogStore struct {
	products map[uuid.UUID]catalog.Product
	variants map[uuid.UUID]catalog.Variant
}

func (s *stubCatalogStore) GetProduct(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (s *stubCatalogStore) ListProducts(context.Context, int, int) ([]catalog.Product, error) {
	out := make([]catalog.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubCatalogStore) CountProducts(context.Context) (int64, error) {
	return int64(len(s.products)), nil
}

func (s *stubCatalogStore) GetVariant(_ context.Context, id uuid.UUID) (catalog.Variant, error) {
	v, ok := s.variants[id]
	if !ok {
		return catalog.Variant{}, catalog.ErrNotFound
	}
	return v, nil
}

func (s *stubCatalogStore) ListVariants(_ context.Context, productID uuid.UUID) ([]catalog.Variant, error) {
	out := []catalog.Variant{}
	for _, v := range s.variants {
		if v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

type stubCustomerStore struct {
	customers map[uuid.UUID]customer.Customer
}

func (s *stubCustomerStore) Get(_ context.Context, id uuid.UUID) (customer.Customer, error) {
	c, ok := s.customers[id]
	if !ok {
		return customer.Customer{}, customer.ErrNotFound
	}
	return c, nil
}

func (s *stubCustomerStore) Search(context.Context, string, int) ([]customer.Customer, error) {
	return nil, nil
}

func (s *stubCustomerStore) AdjustPreviousDue(_ context.Context, id uuid.UUID, delta int64) (int64, error) {
	c, ok := s.customers[id]
	if !ok {
		return 0, customer.ErrNotFound
	}
	c.PreviousDue += delta
	s.customers[id] = c
	return c.PreviousDue, nil
}

type stubEmployeeStore struct {
	employees map[uuid.UUID]employee.Employee
}

func (s *stubEmployeeStore) Get(_ context.Context, id uuid.UUID) (employee.Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrNotFound
	}
	return e, nil
}

func (s *stubEmployeeStore) Search(context.Context, string, int) ([]employee.Employee, error) {
	return nil, nil
}

type stubOrderStore struct {
	saved    map[uuid.UUID]*ledger.Order
	snapshot map[uuid.UUID]ledger.Totals
	currency string
}

func newStubOrderStore() *stubOrderStore {
	return &stubOrderStore{
		saved:    map[uuid.UUID]*ledger.Order{},
		snapshot: map[uuid.UUID]ledger.Totals{},
	}
}

func (s *stubOrderStore) Save(_ context.Context, o *ledger.Order, currency string) error {
	clone := *o
	s.saved[o.ID] = &clone
	s.snapshot[o.ID] = o.Totals
	s.currency = currency
	return nil
}

func (s *stubOrderStore) Get(_ context.Context, id uuid.UUID) (*ledger.Order, ledger.Totals, error) {
	o, ok := s.saved[id]
	if !ok {
		return nil, ledger.Totals{}, ErrNotFound
	}
	clone := *o
	clone.Totals = ledger.Recompute(clone)
	return &clone, s.snapshot[id], nil
}

func (s *stubOrderStore) List(context.Context, int, int) ([]Summary, error) {
	out := make([]Summary, 0, len(s.saved))
	for _, o := range s.saved {
		out = append(out, Summary{ID: o.ID, Total: o.Totals.Total})
	}
	return out, nil
}

func (s *stubOrderStore) Count(context.Context) (int64, error) {
	return int64(len(s.saved)), nil
}

type stubEventStore struct {
	topics []string
}

func (s *stubEventStore) Insert(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	s.topics = append(s.topics, topic)
	return events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, CreatedAt: time.Now()}, nil
}

type stubEnqueuer struct {
	tasks []*asynq.Task
}

func (s *stubEnqueuer) Enqueue(_ context.Context, task *asynq.Task) error {
	s.tasks = append(s.tasks, task)
	return nil
}

type serviceFixture struct {
	svc       *Service
	catalog   *stubCatalogStore
	customers *stubCustomerStore
	employees *stubEmployeeStore
	orders    *stubOrderStore
	eventLog  *stubEventStore
	queue     *stubEnqueuer
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	drafts, _ := newTestDraftStore(t)

	catalogStore := &stubCatalogStore{
		products: map[uuid.UUID]catalog.Product{},
		variants: map[uuid.UUID]catalog.Variant{},
	}
	customerStore := &stubCustomerStore{customers: map[uuid.UUID]customer.Customer{}}
	employeeStore := &stubEmployeeStore{employees: map[uuid.UUID]employee.Employee{}}
	orderStore := newStubOrderStore()
	eventLog := &stubEventStore{}
	queue := &stubEnqueuer{}

	svc := &Service{
		Drafts:        drafts,
		Store:         orderStore,
		Catalog:       &catalog.Service{Store: catalogStore, DefaultLimit: 20, MaxLimit: 100},
		Customers:     customerStore,
		Employees:     employeeStore,
		Events:        &events.Bus{Store: eventLog},
		Tasks:         queue,
		DefaultVATBps: 500,
		Currency:      "BDT",
		Logger:        zerolog.Nop(),
	}
	return &serviceFixture{
		svc:       svc,
		catalog:   catalogStore,
		customers: customerStore,
		employees: employeeStore,
		orders:    orderStore,
		eventLog:  eventLog,
		queue:     queue,
	}
}

func (f *serviceFixture) addProduct(sell, buy int64, stock int) uuid.UUID {
	id := uuid.New()
	f.catalog.products[id] = catalog.Product{ID: id, Name: "product", SKU: id.String()[:8], SellPrice: sell, BuyPrice: buy, Stock: stock}
	return id
}

func TestSaveRevalidatesStock(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	productID := f.addProduct(5000, 3000, 5)
	o, err := f.svc.NewDraft(ctx, nil)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	withItem, err := f.svc.AddItem(ctx, o.ID, ItemRequest{ProductID: productID, Qty: 5})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}

	// Another terminal sells the stock while this draft sits open.
	p := f.catalog.products[productID]
	p.Stock = 2
	f.catalog.products[productID] = p

	if _, err := f.svc.Save(ctx, o.ID); !errors.Is(err, ledger.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock on save, got %v", err)
	}
	if len(f.orders.saved) != 0 {
		t.Fatalf("order persisted despite failed stock check")
	}
	if _, err := f.svc.Draft(ctx, o.ID); err != nil {
		t.Fatalf("draft discarded despite failed save: %v", err)
	}

	// Trimming the line back within stock lets the save through.
	if _, err := f.svc.UpdateItemQty(ctx, o.ID, withItem.Items[0].ID, 2); err != nil {
		t.Fatalf("update qty: %v", err)
	}
	if _, err := f.svc.Save(ctx, o.ID); err != nil {
		t.Fatalf("save after trim: %v", err)
	}
}

func TestNewDraftSeedsVATDefault(t *testing.T) {
	f := newServiceFixture(t)
	o, err := f.svc.NewDraft(context.Background(), nil)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	if o.VATBps != 500 {
		t.Fatalf("expected default VAT 500 bps, got %d", o.VATBps)
	}
}

func TestNewDraftSeedsCustomerPreviousDue(t *testing.T) {
	f := newServiceFixture(t)
	custID := uuid.New()
	f.customers.customers[custID] = customer.Customer{ID: custID, Name: "Karim", PreviousDue: 2000}

	o, err := f.svc.NewDraft(context.Background(), &custID)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	if o.CustomerID == nil || *o.CustomerID != custID {
		t.Fatalf("customer not attached: %+v", o.CustomerID)
	}
	if o.PreviousDue != 2000 {
		t.Fatalf("expected previous due 2000, got %d", o.PreviousDue)
	}
}

func TestAddItemUsesCatalogPrices(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	productID := f.addProduct(5000, 3000, 10)

	o, err := f.svc.NewDraft(ctx, nil)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	o, err = f.svc.AddItem(ctx, o.ID, ItemRequest{ProductID: productID, Qty: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if len(o.Items) != 1 {
		t.Fatalf("expected one item, got %d", len(o.Items))
	}
	item := o.Items[0]
	if item.UnitSellPrice != 5000 || item.UnitBuyPrice != 3000 {
		t.Fatalf("prices not taken from catalog: %+v", item)
	}
	if o.Totals.Subtotal != 10000 {
		t.Fatalf("expected subtotal 10000, got %d", o.Totals.Subtotal)
	}
}

func TestAddItemVariantStockGoverns(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	productID := f.addProduct(5000, 3000, 100)
	variantID := uuid.New()
	f.catalog.variants[variantID] = catalog.Variant{ID: variantID, ProductID: productID, Name: "Large", SellPrice: 5500, BuyPrice: 3200, Stock: 1}

	o, err := f.svc.NewDraft(ctx, nil)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, o.ID, ItemRequest{ProductID: productID, VariantID: &variantID, Qty: 2}); !errors.Is(err, ledger.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock against variant, got %v", err)
	}

	o, err = f.svc.AddItem(ctx, o.ID, ItemRequest{ProductID: productID, VariantID: &variantID, Qty: 1})
	if err != nil {
		t.Fatalf("add variant item: %v", err)
	}
	if o.Items[0].UnitSellPrice != 5500 {
		t.Fatalf("variant price not applied: %+v", o.Items[0])
	}
}

func TestRejectedMutationLeavesStoredDraftIntact(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	productID := f.addProduct(5000, 3000, 3)

	o, err := f.svc.NewDraft(ctx, nil)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	o, err = f.svc.AddItem(ctx, o.ID, ItemRequest{ProductID: productID, Qty: 2})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	before := o.Totals

	if _, err := f.svc.UpdateItemQty(ctx, o.ID, o.Items[0].ID, 10); !errors.Is(err, ledger.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	reloaded, err := f.svc.Draft(ctx, o.ID)
	if err != nil {
		t.Fatalf("reload draft: %v", err)
	}
	if reloaded.Totals != before {
		t.Fatalf("stored draft changed after rejected mutation: %+v vs %+v", reloaded.Totals, before)
	}
	if reloaded.Items[0].Qty != 2 {
		t.Fatalf("quantity changed after rejection: %d", reloaded.Items[0].Qty)
	}
}

func TestSetIncentiveUnknownEmployee(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	o, err := f.svc.NewDraft(ctx, nil)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	unknown := uuid.New()
	if _, err := f.svc.SetIncentive(ctx, o.ID, &unknown, 1000); !errors.Is(err, employee.ErrNotFound) {
		t.Fatalf("expected employee not found, got %v", err)
	}
}

func TestSetIncentiveClear(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	empID := uuid.New()
	f.employees.employees[empID] = employee.Employee{ID: empID, Name: "Rumi"}

	o, err := f.svc.NewDraft(ctx, nil)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	if _, err := f.svc.SetIncentive(ctx, o.ID, &empID, 1500); err != nil {
		t.Fatalf("set incentive: %v", err)
	}
	cleared, err := f.svc.SetIncentive(ctx, o.ID, nil, 0)
	if err != nil {
		t.Fatalf("clear incentive: %v", err)
	}
	if cleared.Incentive.EmployeeID != nil || cleared.Incentive.Amount != 0 {
		t.Fatalf("incentive not cleared: %+v", cleared.Incentive)
	}
}

func TestSaveEmitsEventAndSchedulesSettlement(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	productID := f.addProduct(5000, 3000, 10)
	custID := uuid.New()
	f.customers.customers[custID] = customer.Customer{ID: custID, Name: "Karim", PreviousDue: 2000}

	o, err := f.svc.NewDraft(ctx, &custID)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, o.ID, ItemRequest{ProductID: productID, Qty: 2}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := f.svc.SetVAT(ctx, o.ID, 0); err != nil {
		t.Fatalf("zero vat: %v", err)
	}
	if _, err := f.svc.SetApplyPreviousDue(ctx, o.ID, true); err != nil {
		t.Fatalf("apply previous due: %v", err)
	}
	// total = 10000 + 2000 carried; pay 5000, remainder 7000
	if _, err := f.svc.AddPayment(ctx, o.ID, ledger.PaymentCash, 5000); err != nil {
		t.Fatalf("add payment: %v", err)
	}

	saved, err := f.svc.Save(ctx, o.ID)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Totals.Total != 12000 || saved.Totals.RemainingBalance != 7000 {
		t.Fatalf("unexpected totals at save: %+v", saved.Totals)
	}

	if len(f.eventLog.topics) != 1 || f.eventLog.topics[0] != events.TopicOrderSaved {
		t.Fatalf("expected order saved event, got %v", f.eventLog.topics)
	}
	if f.orders.currency != "BDT" {
		t.Fatalf("currency not passed to store: %q", f.orders.currency)
	}

	if len(f.queue.tasks) != 1 {
		t.Fatalf("expected one settlement task, got %d", len(f.queue.tasks))
	}
	var payload tasks.PreviousDueSettlePayload
	if err := json.Unmarshal(f.queue.tasks[0].Payload(), &payload); err != nil {
		t.Fatalf("decode settlement payload: %v", err)
	}
	// carried balance replaced by the unpaid remainder: 7000 - 2000
	if payload.Delta != 5000 {
		t.Fatalf("expected delta 5000, got %d", payload.Delta)
	}
	if payload.CustomerID != custID {
		t.Fatalf("wrong customer on settlement: %s", payload.CustomerID)
	}

	if _, err := f.svc.Draft(ctx, o.ID); !errors.Is(err, ErrDraftNotFound) {
		t.Fatalf("draft should be discarded after save, got %v", err)
	}
}

func TestSaveWithoutCustomerSkipsSettlement(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	productID := f.addProduct(5000, 3000, 10)

	o, err := f.svc.NewDraft(ctx, nil)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, o.ID, ItemRequest{ProductID: productID, Qty: 1}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := f.svc.Save(ctx, o.ID); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(f.queue.tasks) != 0 {
		t.Fatalf("expected no settlement tasks, got %d", len(f.queue.tasks))
	}
}

func TestEditDraftReopensSavedOrder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	productID := f.addProduct(5000, 3000, 10)

	o, err := f.svc.NewDraft(ctx, nil)
	if err != nil {
		t.Fatalf("new draft: %v", err)
	}
	if _, err := f.svc.AddItem(ctx, o.ID, ItemRequest{ProductID: productID, Qty: 2}); err != nil {
		t.Fatalf("add item: %v", err)
	}
	saved, err := f.svc.Save(ctx, o.ID)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	reopened, err := f.svc.EditDraft(ctx, saved.ID)
	if err != nil {
		t.Fatalf("edit draft: %v", err)
	}
	if reopened.ID != saved.ID {
		t.Fatalf("edit opened wrong order: %s", reopened.ID)
	}
	if reopened.Totals != saved.Totals {
		t.Fatalf("reopened totals diverge: %+v vs %+v", reopened.Totals, saved.Totals)
	}

	// the reopened draft accepts further mutations
	updated, err := f.svc.UpdateItemQty(ctx, reopened.ID, reopened.Items[0].ID, 3)
	if err != nil {
		t.Fatalf("update qty on reopened draft: %v", err)
	}
	if updated.Totals.Subtotal != 15000 {
		t.Fatalf("expected subtotal 15000, got %d", updated.Totals.Subtotal)
	}
}
