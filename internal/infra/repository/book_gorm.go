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

// 一覧での部分一致検索の対象カラム
var bookSearchableColumns = []string{"name", "author", "description"}

// 外から指定できる名前→カラムの対応
var (
	bookFilterableColumns = map[string]string{
		"author":   "author",
		"category": "category",
		"inStock":  "in_stock",
	}
	bookSortableColumns = map[string]string{
		"name":      "name",
		"author":    "author",
		"price":     "price",
		"quantity":  "quantity",
		"createdAt": "created_at",
	}
	bookSelectableColumns = map[string]string{
		"name":        "name",
		"author":      "author",
		"price":       "price",
		"category":    "category",
		"description": "description",
		"quantity":    "quantity",
		"inStock":     "in_stock",
		"image":       "image",
	}
)

type BookGormRepository struct {
	db *gorm.DB
}

// DI
func NewBookGormRepository(db *gorm.DB) *BookGormRepository {
	return &BookGormRepository{db: db}
}

// 検索/絞り込み/並び替え/ページング/射影付きの一覧。
func (r *BookGormRepository) List(ctx context.Context, params url.Values) ([]model.Book, query.Meta, error) {
	qb := query.New(r.db.WithContext(ctx).Model(&model.Book{}), params).
		Search(bookSearchableColumns...).
		Filter(bookFilterableColumns).
		Sort(bookSortableColumns).
		Paginate().
		Fields(bookSelectableColumns)

	q, err := qb.Query()
	if err != nil {
		return nil, query.Meta{}, err
	}

	var books []model.Book
	if err := q.Find(&books).Error; err != nil {
		return nil, query.Meta{}, err
	}

	meta, err := qb.CountTotal()
	if err != nil {
		return nil, query.Meta{}, err
	}
	return books, meta, nil
}

func (r *BookGormRepository) FindByID(ctx context.Context, id int64) (model.Book, error) {
	var b model.Book
	err := r.db.WithContext(ctx).First(&b, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Book{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Book{}, err
	}
	return b, nil
}

func (r *BookGormRepository) DistinctAuthors(ctx context.Context) ([]string, error) {
	var authors []string
	err := r.db.WithContext(ctx).Model(&model.Book{}).
		Distinct("author").
		Order("author asc").
		Pluck("author", &authors).Error
	if err != nil {
		return nil, err
	}
	return authors, nil
}

func (r *BookGormRepository) Create(ctx context.Context, b model.Book) (model.Book, error) {
	if err := r.db.WithContext(ctx).Create(&b).Error; err != nil {
		return model.Book{}, err
	}
	return b, nil
}

// 部分更新。更新後の本を返す。
func (r *BookGormRepository) Update(ctx context.Context, id int64, patch map[string]interface{}) (model.Book, error) {
	res := r.db.WithContext(ctx).Model(&model.Book{}).Where("id = ?", id).Updates(patch)
	if res.Error != nil {
		return model.Book{}, res.Error
	}
	if res.RowsAffected == 0 {
		return model.Book{}, repo.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *BookGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Book{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫が足りるときだけ減らす。in_stockも同じUPDATEで更新する。
func (r *BookGormRepository) DecreaseStockIfEnough(ctx context.Context, bookID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Book{}).
		Where("id = ? AND quantity >= ?", bookID, qty).
		Updates(map[string]interface{}{
			"quantity": gorm.Expr("quantity - ?", qty),
			"in_stock": gorm.Expr("quantity - ? > 0", qty),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
