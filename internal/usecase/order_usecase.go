package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"bookshop/internal/domain/model"
	"bookshop/internal/payment"
	"bookshop/internal/query"
	repo "bookshop/internal/repository"

	"go.uber.org/zap"
)

// 注文番号を作る約束
type IDGenerator interface {
	NewOrderID() string
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	orderRepo repo.OrderRepository
	bookRepo  repo.BookRepository
	userRepo  repo.UserRepository
	gateway   payment.Gateway
	idGen     IDGenerator
	log       *zap.Logger
}

// DI
func NewOrderUsecase(
	tx repo.TransactionManager,
	orderRepo repo.OrderRepository,
	bookRepo repo.BookRepository,
	userRepo repo.UserRepository,
	gateway payment.Gateway,
	idGen IDGenerator,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:        tx,
		orderRepo: orderRepo,
		bookRepo:  bookRepo,
		userRepo:  userRepo,
		gateway:   gateway,
		idGen:     idGen,
		log:       log,
	}
}

type CreateOrderInput struct {
	ProductID int64
	Quantity  int64
	Address   string
}

type CreateOrderOutput struct {
	Order   model.Order              `json:"order"`
	Payment payment.InitiateResponse `json:"payment"`
}

// 注文を作って決済を開始する。
// 在庫はここではチェックだけで、減算は支払い確認時に行う。
func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput, clientIP string) (CreateOrderOutput, error) {
	if userID <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if in.Quantity <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
	}
	if strings.TrimSpace(in.Address) == "" {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "address required")
	}

	book, err := u.bookRepo.FindByID(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return CreateOrderOutput{}, NewHTTPError(http.StatusNotFound, "book not found")
	}
	if err != nil {
		return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if book.Quantity-in.Quantity < 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "Insufficient stock. The order cannot be placed.")
	}

	order, err := u.orderRepo.Create(ctx, model.Order{
		OrderID:    u.idGen.NewOrderID(),
		UserID:     userID,
		ProductID:  in.ProductID,
		Address:    strings.TrimSpace(in.Address),
		Quantity:   in.Quantity,
		TotalPrice: book.Price * in.Quantity,
		Status:     model.OrderStatusPending,
	})
	if err != nil {
		return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to create order")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return CreateOrderOutput{}, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	resp, err := u.gateway.Initiate(ctx, payment.InitiatePayload{
		Amount:          order.TotalPrice,
		OrderID:         order.OrderID,
		Currency:        "BDT",
		CustomerName:    user.Name,
		CustomerAddress: order.Address,
		CustomerEmail:   user.Email,
		CustomerPhone:   orDefault(user.Phone, "N/A"),
		CustomerCity:    orDefault(user.City, "N/A"),
		ClientIP:        clientIP,
	})
	if err != nil {
		// 注文はpendingのまま残る（ロールバックしない）
		u.log.Error("payment initiation failed",
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
		return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "failed to initiate payment")
	}

	if resp.TransactionStatus == "" {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "failed to update order")
	}

	updated, err := u.orderRepo.SetInitiatedTransaction(ctx, order.OrderID, model.Transaction{
		PaymentID:         resp.SPOrderID,
		TransactionStatus: resp.TransactionStatus,
	})
	if err != nil {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "failed to update order")
	}

	return CreateOrderOutput{Order: updated, Payment: resp}, nil
}

// 検証コールバックを処理する。
// bank_statusがSuccessのときだけ、pendingからpaidへの遷移と在庫減算を
// ひとつのトランザクションで一度だけ適用する。
func (u *OrderUsecase) VerifyPayment(ctx context.Context, paymentID string) ([]payment.VerificationResult, error) {
	if strings.TrimSpace(paymentID) == "" {
		return nil, NewHTTPError(http.StatusBadRequest, "order_id required")
	}

	results, err := u.gateway.Verify(ctx, paymentID)
	if err != nil {
		u.log.Error("payment verification failed", zap.String("payment_id", paymentID), zap.Error(err))
		return nil, NewHTTPError(http.StatusInternalServerError, "failed to verify payment")
	}
	if len(results) == 0 {
		return results, nil
	}

	v := results[0]
	tr := model.Transaction{
		PaymentID:         paymentID,
		BankStatus:        v.BankStatus,
		SPCode:            v.SPCode,
		SPMessage:         v.SPMessage,
		Method:            v.Method,
		DateTime:          v.DateTime,
		TransactionStatus: v.TransactionStatus,
	}

	if v.BankStatus == "Success" {
		err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			// コールバックに対応する注文が本当に作られているか
			order, err := r.Orders().FindByPaymentID(ctx, paymentID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "order was not placed correctly")
			}
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			applied, err := r.Orders().MarkPaidOnce(ctx, paymentID, tr)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !applied {
				//すでにpaid（コールバック重複）。在庫は触らない。
				u.log.Info("duplicate payment callback ignored", zap.String("payment_id", paymentID))
				return nil
			}

			if _, err := r.Books().FindByID(ctx, order.ProductID); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return NewHTTPError(http.StatusNotFound, "product was not found in order")
				}
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}

			ok, err := r.Books().DecreaseStockIfEnough(ctx, order.ProductID, order.Quantity)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if !ok {
				return NewHTTPError(http.StatusBadRequest, "failed to update book stock")
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return results, nil
	}

	// Success以外は取引情報とステータスの写し替えのみ。
	// 対応する注文が無いときは何もしない。
	status := statusFromBankStatus(v.BankStatus)
	if err := u.orderRepo.RecordVerification(ctx, paymentID, tr, status); err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return results, nil
}

// bank_status→注文ステータスの対応。対象外は空（変更しない）。
func statusFromBankStatus(bankStatus string) model.OrderStatus {
	switch bankStatus {
	case "Success":
		return model.OrderStatusPaid
	case "Failed":
		return model.OrderStatusPending
	case "Cancel":
		return model.OrderStatusCancelled
	default:
		return ""
	}
}

type ChangeOrderStatusInput struct {
	Status string
}

func (u *OrderUsecase) ChangeOrderStatus(ctx context.Context, orderID int64, in ChangeOrderStatusInput) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	next := model.OrderStatus(strings.TrimSpace(in.Status))
	if !next.Valid() {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	order, err := u.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if err := guardStatusTransition(order.Status, next); err != nil {
		return model.Order{}, err
	}

	updated, err := u.orderRepo.UpdateStatus(ctx, orderID, next)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return updated, nil
}

// 後戻りの禁止。cancelledからの遷移は現状ガードしていない。
func guardStatusTransition(current model.OrderStatus, next model.OrderStatus) error {
	already := NewHTTPError(http.StatusBadRequest, fmt.Sprintf("order already %s", current))

	switch current {
	case model.OrderStatusPaid, model.OrderStatusShipped, model.OrderStatusDelivered:
		if next == model.OrderStatusPending || next == model.OrderStatusCancelled {
			return already
		}
	}

	if current == model.OrderStatusShipped && next != model.OrderStatusDelivered {
		return already
	}

	if current == model.OrderStatusDelivered {
		return already
	}

	return nil
}

type OrderListOutput struct {
	Data []model.Order `json:"data"`
	Meta query.Meta    `json:"meta"`
}

func (u *OrderUsecase) ListOrders(ctx context.Context, params url.Values) (OrderListOutput, error) {
	orders, meta, err := u.orderRepo.List(ctx, params)
	if err != nil {
		var uf *query.UnknownFieldError
		if errors.As(err, &uf) {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, uf.Error())
		}
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if orders == nil {
		orders = []model.Order{}
	}
	return OrderListOutput{Data: orders, Meta: meta}, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	orders, err := u.orderRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

type RevenueOutput struct {
	TotalRevenue int64 `json:"totalRevenue"`
}

// 全注文を対象に合計する（ステータスでは絞らない）。
func (u *OrderUsecase) TotalRevenue(ctx context.Context) (RevenueOutput, error) {
	total, err := u.orderRepo.TotalRevenue(ctx)
	if err != nil {
		return RevenueOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return RevenueOutput{TotalRevenue: total}, nil
}

func orDefault(v string, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
