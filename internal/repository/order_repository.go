package repository

import (
	"context"
	"net/url"

	"bookshop/internal/domain/model"
	"bookshop/internal/query"
)

type OrderRepository interface {
	Create(ctx context.Context, o model.Order) (model.Order, error)
	FindByID(ctx context.Context, id int64) (model.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (model.Order, error)

	// 決済開始時に返ってきたpaymentIdとステータスを書き込む
	SetInitiatedTransaction(ctx context.Context, orderID string, tr model.Transaction) (model.Order, error)

	// 検証結果の写し替え。statusが空のときはステータスは変えない
	RecordVerification(ctx context.Context, paymentID string, tr model.Transaction, status model.OrderStatus) error

	// 未払いのときだけpaidにする（コールバック重複対策）。適用されたかを返す
	MarkPaidOnce(ctx context.Context, paymentID string, tr model.Transaction) (bool, error)

	UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) (model.Order, error)

	List(ctx context.Context, params url.Values) ([]model.Order, query.Meta, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)

	// 全注文 × 本の価格の合計
	TotalRevenue(ctx context.Context) (int64, error)
}
