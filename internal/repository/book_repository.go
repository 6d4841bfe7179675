package repository

import (
	"context"
	"errors"
	"net/url"

	"bookshop/internal/domain/model"
	"bookshop/internal/query"
)

var ErrNotFound = errors.New("not found")

// 本の永続化（保存・取得）だけを約束。
type BookRepository interface {
	List(ctx context.Context, params url.Values) ([]model.Book, query.Meta, error)
	FindByID(ctx context.Context, id int64) (model.Book, error)
	DistinctAuthors(ctx context.Context) ([]string, error)

	Create(ctx context.Context, b model.Book) (model.Book, error)
	Update(ctx context.Context, id int64, patch map[string]interface{}) (model.Book, error)
	Delete(ctx context.Context, id int64) error

	// 在庫が足りるときだけ減算し、in_stockも同時に更新する
	DecreaseStockIfEnough(ctx context.Context, bookID int64, qty int64) (bool, error)
}
