package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/davori/marketplace/internal/affiliates"
	"github.com/davori/marketplace/internal/apperror"
	"github.com/davori/marketplace/internal/enrollments"
	"github.com/davori/marketplace/internal/payments"
	"github.com/davori/marketplace/internal/products"
	"github.com/davori/marketplace/internal/telemetry"
	"github.com/davori/marketplace/internal/users"
)

// DefaultRefundWindow é o prazo em que o próprio aluno pode pedir reembolso
const DefaultRefundWindow = 7 * 24 * time.Hour

// Gateway é o adapter do provedor de pagamento
type Gateway interface {
	CreateOrder(ctx context.Context, in payments.CreateOrderInput) (*payments.RemoteOrder, error)
	GetOrder(ctx context.Context, remoteID string) (*payments.RemoteOrder, error)
	RefundCharge(ctx context.Context, chargeID string, amount *int64) error
}

// Catalog busca produtos por ID
type Catalog interface {
	GetByID(ctx context.Context, id string) (*products.Product, error)
}

// Accounts provisiona o aluno comprador
type Accounts interface {
	FindOrCreateStudent(ctx context.Context, name, email string) (*users.User, error)
}

// Affiliates resolve códigos de indicação e registra comissões
type Affiliates interface {
	ResolveActiveLink(ctx context.Context, refCode string) (*affiliates.Link, error)
	RecordCommission(ctx context.Context, orderID, linkID string, orderAmount decimal.Decimal) error
}

// Enrollments concede e revoga acesso. Grant informa se a matrícula foi criada na chamada.
type Enrollments interface {
	Grant(ctx context.Context, studentID, productID string) (*enrollments.Enrollment, bool, error)
	HasAccess(ctx context.Context, studentID, productID string) (bool, error)
	Revoke(ctx context.Context, studentID, productID string) error
}

// Config reúne os parâmetros do ciclo de vida dos pedidos
type Config struct {
	RefundWindow time.Duration
	Now          func() time.Time
}

// Dependencies são os colaboradores do OrderUseCase
type Dependencies struct {
	Repository  Repository
	Gateway     Gateway
	Catalog     Catalog
	Accounts    Accounts
	Affiliates  Affiliates
	Enrollments Enrollments
	Reporter    telemetry.Reporter
}

// OrderUseCase contém a lógica de negócio dos pedidos
type OrderUseCase struct {
	repository  Repository
	gateway     Gateway
	catalog     Catalog
	accounts    Accounts
	affiliates  Affiliates
	enrollments Enrollments
	reporter    telemetry.Reporter
	logger      *zap.Logger

	refundWindow time.Duration
	now          func() time.Time

	ordersCreatedCounter metric.Int64Counter
	ordersPaidCounter    metric.Int64Counter
	refundsCounter       metric.Int64Counter
}

// NewOrderUseCase cria uma nova instância de OrderUseCase
func NewOrderUseCase(cfg Config, deps Dependencies, logger *zap.Logger) *OrderUseCase {
	if cfg.RefundWindow <= 0 {
		cfg.RefundWindow = DefaultRefundWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	meter := otel.Meter("orders")
	created, _ := meter.Int64Counter("orders_created_total", metric.WithDescription("Pedidos criados por método"))
	paid, _ := meter.Int64Counter("orders_paid_total", metric.WithDescription("Transições PENDING → PAID"))
	refunds, _ := meter.Int64Counter("orders_refunded_total", metric.WithDescription("Reembolsos processados"))

	return &OrderUseCase{
		repository:           deps.Repository,
		gateway:              deps.Gateway,
		catalog:              deps.Catalog,
		accounts:             deps.Accounts,
		affiliates:           deps.Affiliates,
		enrollments:          deps.Enrollments,
		reporter:             deps.Reporter,
		logger:               logger,
		refundWindow:         cfg.RefundWindow,
		now:                  cfg.Now,
		ordersCreatedCounter: created,
		ordersPaidCounter:    paid,
		refundsCounter:       refunds,
	}
}

// CreateOrder abre o pedido no gateway e o registra localmente como PENDING
func (uc *OrderUseCase) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	if in.Method == nil {
		return nil, apperror.Validation([]apperror.FieldError{{Field: "payment_method", Message: "Método de pagamento obrigatório."}})
	}

	// 1. Produto precisa estar publicado
	product, err := uc.catalog.GetByID(ctx, in.ProductID)
	if apperror.Is(err, apperror.KindNotFound) || (err == nil && !product.IsPurchasable()) {
		return nil, apperror.NotFound("Produto não encontrado ou indisponível.")
	}
	if err != nil {
		return nil, fmt.Errorf("loading product: %w", err)
	}

	// 2. Afiliado é best-effort
	link, err := uc.affiliates.ResolveActiveLink(ctx, in.AffiliateCode)
	if err != nil {
		return nil, err
	}

	// 3. Aluno existente ou conta provisória
	student, err := uc.accounts.FindOrCreateStudent(ctx, in.Customer.Name, in.Customer.Email)
	if err != nil {
		return nil, err
	}

	// 4. Compra em duplicidade
	hasAccess, err := uc.enrollments.HasAccess(ctx, student.ID, product.ID)
	if err != nil {
		return nil, err
	}
	if hasAccess {
		return nil, apperror.Conflict("Você já tem acesso a este produto.")
	}

	// 5 e 6. Pedido remoto em centavos
	amountMinor := payments.ToMinorUnits(product.Price)
	remote, err := uc.gateway.CreateOrder(ctx, payments.CreateOrderInput{
		AmountMinor: amountMinor,
		Method:      in.Method,
		Customer:    in.Customer,
		Items: []payments.Item{{
			Amount:      amountMinor,
			Description: product.Title,
			Quantity:    1,
			Code:        product.ID,
		}},
	})
	if err != nil {
		return nil, err
	}

	// 7. Pedido local com snapshot do preço
	order := NewOrder(uuid.New().String(), student.ID, product.ID, product.Price, in.Method.Method(), uc.now())
	order.GatewayOrderID = &remote.ID
	if link != nil {
		order.AffiliateLinkID = &link.ID
	}

	if err := uc.repository.Create(ctx, order); err != nil {
		uc.reporter.Report(ctx, "orders.orphan_remote_order", err, zap.String("gateway_order_id", remote.ID))
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	uc.ordersCreatedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(order.PaymentMethod))))
	uc.logger.Info("Pedido criado",
		zap.String("order_id", order.ID),
		zap.String("product_id", product.ID),
		zap.String("payment_method", string(order.PaymentMethod)),
		zap.String("gateway_order_id", remote.ID),
	)

	// 8. Cartão pode ser aprovado de forma síncrona
	paidNow := remote.Status == payments.RemoteStatusPaid
	if order.PaymentMethod == payments.MethodCard && paidNow {
		if err := uc.HandlePaymentSuccess(ctx, order.ID, ""); err != nil {
			// o webhook order.paid ainda reconcilia este pedido
			uc.reporter.Report(ctx, "orders.sync_card_success", err, zap.String("order_id", order.ID))
		}
	}

	// 9. Artefatos do rail
	status := StatusPending
	if paidNow {
		status = StatusPaid
	}
	return &CreateOrderResult{
		Order: OrderSummary{
			ID:            order.ID,
			Status:        status,
			PaymentMethod: order.PaymentMethod,
			Amount:        order.Amount,
		},
		PaymentData: paymentDataFrom(remote),
	}, nil
}

// GetOrderStatus devolve a projeção de status do pedido, sem efeitos colaterais
func (uc *OrderUseCase) GetOrderStatus(ctx context.Context, orderID string) (*OrderStatusView, error) {
	order, err := uc.repository.FindByID(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return nil, apperror.NotFound("Pedido não encontrado.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &OrderStatusView{
		ID:            order.ID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		Amount:        order.Amount,
		ProductID:     order.ProductID,
	}, nil
}

// HandlePaymentSuccess confirma o pagamento pelo ID local ou pelo ID remoto.
// Pode ser chamado qualquer número de vezes, inclusive em paralelo: a transição
// PENDING → PAID acontece uma vez só e apenas quem a fez registra a comissão.
func (uc *OrderUseCase) HandlePaymentSuccess(ctx context.Context, orderID, remoteOrderID string) error {
	order, err := uc.locate(ctx, orderID, remoteOrderID)
	if errors.Is(err, ErrNotFound) {
		uc.logger.Warn("Pagamento confirmado para pedido desconhecido",
			zap.String("order_id", orderID),
			zap.String("gateway_order_id", remoteOrderID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	if order.Status != StatusPending {
		uc.logger.Info("Pagamento já processado", zap.String("order_id", order.ID), zap.String("status", string(order.Status)))
		return nil
	}

	// Acesso antes do status: se algo falhar aqui o pedido fica PENDING e o próximo webhook tenta de novo
	_, created, err := uc.enrollments.Grant(ctx, order.StudentID, order.ProductID)
	if err != nil {
		return fmt.Errorf("granting access: %w", err)
	}

	won, err := uc.transition(ctx, order, StatusPaid)
	if err != nil {
		return fmt.Errorf("marking order paid: %w", err)
	}
	if !won {
		if created {
			return uc.releaseStaleGrant(ctx, order)
		}
		uc.logger.Info("Pagamento confirmado por outra requisição", zap.String("order_id", order.ID))
		return nil
	}

	uc.ordersPaidCounter.Add(ctx, 1)

	if order.AffiliateLinkID != nil {
		if err := uc.affiliates.RecordCommission(ctx, order.ID, *order.AffiliateLinkID, order.Amount); err != nil {
			uc.reporter.Report(ctx, "orders.affiliate_commission", err, zap.String("order_id", order.ID))
		}
	}

	uc.logger.Info("Pagamento confirmado e acesso liberado", zap.String("order_id", order.ID))
	return nil
}

// releaseStaleGrant desfaz a matrícula criada por quem perdeu a transição quando o pedido
// já saiu de PAID (reembolsado entre a leitura e o UPDATE)
func (uc *OrderUseCase) releaseStaleGrant(ctx context.Context, order *Order) error {
	current, err := uc.repository.FindByID(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("reloading order: %w", err)
	}
	if current.Status == StatusPaid {
		uc.logger.Info("Pagamento confirmado por outra requisição", zap.String("order_id", order.ID))
		return nil
	}

	if err := uc.enrollments.Revoke(ctx, order.StudentID, order.ProductID); err != nil {
		uc.reporter.Report(ctx, "orders.stale_enrollment", err, zap.String("order_id", order.ID))
		return err
	}
	uc.logger.Warn("Matrícula desfeita: pedido não está mais pago",
		zap.String("order_id", order.ID),
		zap.String("status", string(current.Status)),
	)
	return nil
}

// transition aplica o UPDATE condicional a partir do status lido em order
func (uc *OrderUseCase) transition(ctx context.Context, order *Order, to Status) (bool, error) {
	if !CanTransition(order.Status, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
	}
	return uc.repository.TransitionStatus(ctx, order.ID, order.Status, to)
}

func (uc *OrderUseCase) locate(ctx context.Context, orderID, remoteOrderID string) (*Order, error) {
	if orderID != "" {
		order, err := uc.repository.FindByID(ctx, orderID)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return order, err
		}
	}
	if remoteOrderID != "" {
		return uc.repository.FindByGatewayOrderID(ctx, remoteOrderID)
	}
	return nil, ErrNotFound
}

// RefundOrder estorna um pedido pago. O produtor pode sempre; o aluno, dentro da janela de reembolso.
func (uc *OrderUseCase) RefundOrder(ctx context.Context, orderID, requesterID string) error {
	order, err := uc.repository.FindByID(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return apperror.NotFound("Pedido não encontrado.")
	}
	if err != nil {
		return fmt.Errorf("failed to get order: %w", err)
	}

	if order.Status != StatusPaid {
		return apperror.InvalidState("Apenas pedidos pagos podem ser reembolsados.")
	}

	product, err := uc.catalog.GetByID(ctx, order.ProductID)
	if err != nil {
		return fmt.Errorf("loading product: %w", err)
	}

	isProducer := product.ProducerID == requesterID
	isStudentInWindow := order.StudentID == requesterID && uc.now().Sub(order.CreatedAt) < uc.refundWindow
	if !isProducer && !isStudentInWindow {
		return apperror.Forbidden("Reembolso não permitido.")
	}

	if err := uc.refundRemoteCharge(ctx, order); err != nil {
		return err
	}

	won, err := uc.transition(ctx, order, StatusRefunded)
	if err != nil {
		return fmt.Errorf("marking order refunded: %w", err)
	}
	if !won {
		return apperror.InvalidState("Apenas pedidos pagos podem ser reembolsados.")
	}

	if err := uc.enrollments.Revoke(ctx, order.StudentID, order.ProductID); err != nil {
		return err
	}

	uc.refundsCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("by_producer", isProducer)))
	uc.logger.Info("Reembolso processado", zap.String("order_id", order.ID), zap.String("requester_id", requesterID))
	return nil
}

// refundRemoteCharge estorna a primeira cobrança do pedido remoto.
// Sem cobrança resolvível o estorno local segue, mas o caso vai para o reporter para conciliação.
func (uc *OrderUseCase) refundRemoteCharge(ctx context.Context, order *Order) error {
	if order.GatewayOrderID == nil || *order.GatewayOrderID == "" {
		uc.reporter.Report(ctx, "refund.no_remote_charge", errors.New("order has no gateway order id"),
			zap.String("order_id", order.ID))
		return nil
	}

	remote, err := uc.gateway.GetOrder(ctx, *order.GatewayOrderID)
	if err != nil {
		return err
	}

	charge := remote.FirstCharge()
	if charge == nil || charge.ID == "" {
		uc.reporter.Report(ctx, "refund.no_remote_charge", errors.New("gateway order has no charges"),
			zap.String("order_id", order.ID),
			zap.String("gateway_order_id", remote.ID),
		)
		return nil
	}

	return uc.gateway.RefundCharge(ctx, charge.ID, nil)
}
