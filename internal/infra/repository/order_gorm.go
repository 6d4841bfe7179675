package repository

import (
	"context"
	"errors"
	"net/url"

	"bookshop/internal/domain/model"
	"bookshop/internal/query"
	repo "bookshop/internal/repository"

	"gorm.io/gorm"
)

var (
	orderFilterableColumns = map[string]string{
		"status":  "status",
		"user":    "user_id",
		"product": "product_id",
		"orderId": "order_id",
	}
	orderSortableColumns = map[string]string{
		"status":     "status",
		"totalPrice": "total_price",
		"quantity":   "quantity",
		"createdAt":  "created_at",
	}
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) Create(ctx context.Context, o model.Order) (model.Order, error) {
	if err := r.db.WithContext(ctx).Create(&o).Error; err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, id int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func (r *OrderGormRepository) FindByPaymentID(ctx context.Context, paymentID string) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).Where("transaction_payment_id = ?", paymentID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 決済開始の応答を注文に書き込み、更新後の注文を返す。
func (r *OrderGormRepository) SetInitiatedTransaction(ctx context.Context, orderID string, tr model.Transaction) (model.Order, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"transaction_payment_id":         tr.PaymentID,
			"transaction_transaction_status": tr.TransactionStatus,
		})
	if res.Error != nil {
		return model.Order{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Order{}, repo.ErrNotFound
	}

	var o model.Order
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&o).Error; err != nil {
		return model.Order{}, err
	}
	return o, nil
}

func verificationPatch(tr model.Transaction) map[string]interface{} {
	return map[string]interface{}{
		"transaction_bank_status":        tr.BankStatus,
		"transaction_sp_code":            tr.SPCode,
		"transaction_sp_message":         tr.SPMessage,
		"transaction_method":             tr.Method,
		"transaction_date_time":          tr.DateTime,
		"transaction_transaction_status": tr.TransactionStatus,
	}
}

// 検証結果を写し替える。statusが空のときはステータスは触らない。
func (r *OrderGormRepository) RecordVerification(ctx context.Context, paymentID string, tr model.Transaction, status model.OrderStatus) error {
	patch := verificationPatch(tr)
	if status != "" {
		patch["status"] = status
	}

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("transaction_payment_id = ?", paymentID).
		Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 未払いのときだけpaidにする。重複コールバックでは何も適用されない。
func (r *OrderGormRepository) MarkPaidOnce(ctx context.Context, paymentID string, tr model.Transaction) (bool, error) {
	patch := verificationPatch(tr)
	patch["status"] = model.OrderStatusPaid

	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("transaction_payment_id = ? AND status <> ?", paymentID, model.OrderStatusPaid).
		Updates(patch)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, id int64, status model.OrderStatus) (model.Order, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return model.Order{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Order{}, repo.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

// 管理者用の一覧。ユーザーと本を展開して返す。
func (r *OrderGormRepository) List(ctx context.Context, params url.Values) ([]model.Order, query.Meta, error) {
	qb := query.New(r.db.WithContext(ctx).Model(&model.Order{}), params).
		Filter(orderFilterableColumns).
		Sort(orderSortableColumns).
		Paginate()

	q, err := qb.Query()
	if err != nil {
		return nil, query.Meta{}, err
	}

	var orders []model.Order
	if err := q.Preload("User").Preload("Product").Find(&orders).Error; err != nil {
		return nil, query.Meta{}, err
	}

	meta, err := qb.CountTotal()
	if err != nil {
		return nil, query.Meta{}, err
	}
	return orders, meta, nil
}

func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		Preload("User").
		Preload("Product").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// 注文×本の価格の合計。ステータスでは絞らない。
func (r *OrderGormRepository) TotalRevenue(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Select("COALESCE(SUM(books.price * orders.quantity), 0)").
		Joins("JOIN books ON books.id = orders.product_id").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
