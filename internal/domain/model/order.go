package model

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusPaid      OrderStatus = "paid"
)

// Valid は定義済みステータスかどうか。
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusPaid:
		return true
	default:
		return false
	}
}

// Transaction は決済ゲートウェイのメタ情報。
// 作成時（initiate）と検証コールバック（verify）の二段階で埋まる。
type Transaction struct {
	PaymentID         string `gorm:"column:payment_id;type:varchar(64);index" json:"paymentId"`
	TransactionStatus string `gorm:"column:transaction_status;type:varchar(32)" json:"transactionStatus"`
	BankStatus        string `gorm:"column:bank_status;type:varchar(32)" json:"bank_status"`
	SPCode            string `gorm:"column:sp_code;type:varchar(16)" json:"sp_code"`
	SPMessage         string `gorm:"column:sp_message;type:varchar(255)" json:"sp_message"`
	Method            string `gorm:"column:method;type:varchar(32)" json:"method"`
	DateTime          string `gorm:"column:date_time;type:varchar(32)" json:"date_time"`
}

type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     string      `gorm:"type:varchar(32);uniqueIndex;not null" json:"orderId"`
	UserID      int64       `gorm:"not null;index" json:"user_id"`
	User        *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ProductID   int64       `gorm:"not null;index" json:"product_id"`
	Product     *Book       `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Address     string      `gorm:"type:varchar(255);not null" json:"address"`
	Quantity    int64       `gorm:"not null" json:"quantity"`
	TotalPrice  int64       `gorm:"not null" json:"totalPrice"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;index;default:'pending'" json:"status"`
	Transaction Transaction `gorm:"embedded;embeddedPrefix:transaction_" json:"transaction"`
	CreatedAt   time.Time   `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
