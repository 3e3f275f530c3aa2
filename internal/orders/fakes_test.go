package orders

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/davori/marketplace/internal/affiliates"
	"github.com/davori/marketplace/internal/apperror"
	"github.com/davori/marketplace/internal/enrollments"
	"github.com/davori/marketplace/internal/payments"
	"github.com/davori/marketplace/internal/products"
	"github.com/davori/marketplace/internal/users"
)

// memRepository guarda pedidos em memória com a mesma semântica do UPDATE condicional
type memRepository struct {
	mu     sync.Mutex
	orders map[string]*Order
}

func newMemRepository() *memRepository {
	return &memRepository{orders: map[string]*Order{}}
}

func (r *memRepository) Create(_ context.Context, o *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row := *o
	r.orders[o.ID] = &row
	return nil
}

func (r *memRepository) FindByID(_ context.Context, id string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *row
	return &out, nil
}

func (r *memRepository) FindByGatewayOrderID(_ context.Context, gatewayID string) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.orders {
		if row.GatewayOrderID != nil && *row.GatewayOrderID == gatewayID {
			out := *row
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepository) TransitionStatus(_ context.Context, id string, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.orders[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	return true, nil
}

// staleRepository devolve pela busca remota o pedido como ainda PENDING, enquanto a linha guardada já mudou
type staleRepository struct {
	*memRepository
	snapshot Order
}

func (r *staleRepository) FindByGatewayOrderID(_ context.Context, _ string) (*Order, error) {
	out := r.snapshot
	return &out, nil
}

func (r *memRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *memRepository) only() *Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.orders {
		out := *row
		return &out
	}
	return nil
}

// MockGateway simula o adapter do Pagar.me
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateOrder(ctx context.Context, in payments.CreateOrderInput) (*payments.RemoteOrder, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*payments.RemoteOrder)
	return out, args.Error(1)
}

func (m *MockGateway) GetOrder(ctx context.Context, remoteID string) (*payments.RemoteOrder, error) {
	args := m.Called(ctx, remoteID)
	out, _ := args.Get(0).(*payments.RemoteOrder)
	return out, args.Error(1)
}

func (m *MockGateway) RefundCharge(ctx context.Context, chargeID string, amount *int64) error {
	return m.Called(ctx, chargeID, amount).Error(0)
}

type fakeCatalog struct {
	products map[string]*products.Product
}

func (c *fakeCatalog) GetByID(_ context.Context, id string) (*products.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, apperror.NotFound("Produto não encontrado.")
	}
	out := *p
	return &out, nil
}

type fakeAccounts struct {
	mu    sync.Mutex
	users map[string]*users.User
}

func (a *fakeAccounts) FindOrCreateStudent(_ context.Context, name, email string) (*users.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	email = users.NormalizeEmail(email)
	if u, ok := a.users[email]; ok {
		return u, nil
	}
	u := users.NewPlaceholderStudent("student-"+email, name, email)
	a.users[email] = u
	return u, nil
}

type commissionCall struct {
	orderID string
	linkID  string
	amount  decimal.Decimal
}

type fakeAffiliates struct {
	mu          sync.Mutex
	links       map[string]*affiliates.Link
	commissions []commissionCall
}

func (a *fakeAffiliates) ResolveActiveLink(_ context.Context, code string) (*affiliates.Link, error) {
	link, ok := a.links[code]
	if !ok || !link.Active {
		return nil, nil
	}
	return link, nil
}

func (a *fakeAffiliates) RecordCommission(_ context.Context, orderID, linkID string, amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.commissions = append(a.commissions, commissionCall{orderID, linkID, amount})
	return nil
}

// fakeEnrollments reproduz o upsert por par aluno/produto
type fakeEnrollments struct {
	mu      sync.Mutex
	rows    map[[2]string]*enrollments.Enrollment
	creates atomic.Int32
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{rows: map[[2]string]*enrollments.Enrollment{}}
}

func (e *fakeEnrollments) Grant(_ context.Context, studentID, productID string) (*enrollments.Enrollment, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := [2]string{studentID, productID}
	if row, ok := e.rows[key]; ok {
		return row, false, nil
	}
	e.creates.Add(1)
	row := enrollments.NewEnrollment("enr-"+studentID+"-"+productID, studentID, productID)
	e.rows[key] = row
	return row, true, nil
}

func (e *fakeEnrollments) Enroll(ctx context.Context, studentID, productID string) (*enrollments.Enrollment, error) {
	row, _, err := e.Grant(ctx, studentID, productID)
	return row, err
}

func (e *fakeEnrollments) HasAccess(_ context.Context, studentID, productID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.rows[[2]string{studentID, productID}]
	return ok, nil
}

func (e *fakeEnrollments) Revoke(_ context.Context, studentID, productID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rows, [2]string{studentID, productID})
	return nil
}

func (e *fakeEnrollments) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rows)
}

type reported struct {
	component string
	err       error
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []reported
}

func (r *fakeReporter) Report(_ context.Context, component string, err error, _ ...zap.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, reported{component, err})
}

func (r *fakeReporter) components() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, rep.component)
	}
	return out
}

const (
	publishedID = "11111111-1111-4111-8111-111111111111"
	draftID     = "22222222-2222-4222-8222-222222222222"
	producerID  = "producer-1"
)

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	repo        *memRepository
	gateway     *MockGateway
	catalog     *fakeCatalog
	accounts    *fakeAccounts
	affiliates  *fakeAffiliates
	enrollments *fakeEnrollments
	reporter    *fakeReporter
	clock       time.Time
	useCase     *OrderUseCase
}

func newFixture() *fixture {
	f := &fixture{
		repo:    newMemRepository(),
		gateway: new(MockGateway),
		catalog: &fakeCatalog{products: map[string]*products.Product{
			publishedID: {ID: publishedID, ProducerID: producerID, Title: "Curso X", Price: decimal.RequireFromString("197.00"), Status: products.StatusPublished},
			draftID:     {ID: draftID, ProducerID: producerID, Title: "Rascunho", Price: decimal.NewFromInt(50), Status: products.StatusDraft},
		}},
		accounts: &fakeAccounts{users: map[string]*users.User{}},
		affiliates: &fakeAffiliates{links: map[string]*affiliates.Link{
			"PARCEIRO": {ID: "link-1", RefCode: "PARCEIRO", AffiliateID: "aff-1", CommissionPct: decimal.NewFromInt(30), Active: true},
			"VELHO":    {ID: "link-2", RefCode: "VELHO", AffiliateID: "aff-2", CommissionPct: decimal.NewFromInt(10), Active: false},
		}},
		enrollments: newFakeEnrollments(),
		reporter:    &fakeReporter{},
		clock:       baseTime,
	}

	f.useCase = NewOrderUseCase(
		Config{Now: func() time.Time { return f.clock }},
		Dependencies{
			Repository:  f.repo,
			Gateway:     f.gateway,
			Catalog:     f.catalog,
			Accounts:    f.accounts,
			Affiliates:  f.affiliates,
			Enrollments: f.enrollments,
			Reporter:    f.reporter,
		},
		zap.NewNop(),
	)
	return f
}

func customer() payments.Customer {
	return payments.Customer{Name: "Ana Paula", Email: "ana@test.com", Document: "12345678901"}
}

func pendingPix(id string) *payments.RemoteOrder {
	return &payments.RemoteOrder{
		ID:     id,
		Status: payments.RemoteStatusPending,
		Charges: []payments.Charge{{
			ID:     "ch_" + id,
			Status: "pending",
			LastTransaction: &payments.Transaction{
				QRCode:    "00020126580014br.gov.bcb.pix",
				QRCodeURL: "https://pix.example/qr.png",
			},
		}},
	}
}
