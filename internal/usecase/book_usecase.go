package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"bookshop/internal/domain/model"
	"bookshop/internal/query"
	repo "bookshop/internal/repository"
)

type BookUsecase struct {
	bookRepo repo.BookRepository
}

// DI
func NewBookUsecase(bookRepo repo.BookRepository) *BookUsecase {
	return &BookUsecase{bookRepo: bookRepo}
}

type CreateBookInput struct {
	Name        string
	Author      string
	Price       int64
	Category    string
	Description string
	Quantity    int64
	Image       string
}

func (u *BookUsecase) CreateBook(ctx context.Context, in CreateBookInput) (model.Book, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if strings.TrimSpace(in.Author) == "" {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "author required")
	}
	if in.Price <= 0 {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "price must be > 0")
	}
	category := model.BookCategory(strings.TrimSpace(in.Category))
	if !category.Valid() {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid category")
	}
	if strings.TrimSpace(in.Description) == "" {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "description required")
	}
	if in.Quantity < 0 {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
	}
	if strings.TrimSpace(in.Image) == "" {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "image required")
	}

	book, err := u.bookRepo.Create(ctx, model.Book{
		Name:        strings.TrimSpace(in.Name),
		Author:      strings.TrimSpace(in.Author),
		Price:       in.Price,
		Category:    category,
		Description: in.Description,
		Quantity:    in.Quantity,
		InStock:     in.Quantity > 0,
		Image:       strings.TrimSpace(in.Image),
	})
	if err != nil {
		return model.Book{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return book, nil
}

type BookListOutput struct {
	Data []model.Book `json:"data"`
	Meta query.Meta   `json:"meta"`
}

func (u *BookUsecase) ListBooks(ctx context.Context, params url.Values) (BookListOutput, error) {
	books, meta, err := u.bookRepo.List(ctx, params)
	if err != nil {
		var uf *query.UnknownFieldError
		if errors.As(err, &uf) {
			return BookListOutput{}, NewHTTPError(http.StatusBadRequest, uf.Error())
		}
		return BookListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if books == nil {
		books = []model.Book{}
	}
	return BookListOutput{Data: books, Meta: meta}, nil
}

func (u *BookUsecase) GetBook(ctx context.Context, bookID int64) (model.Book, error) {
	if bookID <= 0 {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	book, err := u.bookRepo.FindByID(ctx, bookID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Book{}, NewHTTPError(http.StatusNotFound, "book does not exist")
	}
	if err != nil {
		return model.Book{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return book, nil
}

// 部分更新の入力。nilの項目は変更しない。
type UpdateBookInput struct {
	Name        *string
	Author      *string
	Price       *int64
	Category    *string
	Description *string
	Quantity    *int64
	Image       *string
}

func (u *BookUsecase) UpdateBook(ctx context.Context, bookID int64, in UpdateBookInput) (model.Book, error) {
	if bookID <= 0 {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	patch := map[string]interface{}{}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return model.Book{}, NewHTTPError(http.StatusBadRequest, "name required")
		}
		patch["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Author != nil {
		if strings.TrimSpace(*in.Author) == "" {
			return model.Book{}, NewHTTPError(http.StatusBadRequest, "author required")
		}
		patch["author"] = strings.TrimSpace(*in.Author)
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return model.Book{}, NewHTTPError(http.StatusBadRequest, "price must be > 0")
		}
		patch["price"] = *in.Price
	}
	if in.Category != nil {
		category := model.BookCategory(strings.TrimSpace(*in.Category))
		if !category.Valid() {
			return model.Book{}, NewHTTPError(http.StatusBadRequest, "invalid category")
		}
		patch["category"] = category
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			return model.Book{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
		}
		//在庫数を変えたらin_stockも合わせる
		patch["quantity"] = *in.Quantity
		patch["in_stock"] = *in.Quantity > 0
	}
	if in.Image != nil {
		patch["image"] = strings.TrimSpace(*in.Image)
	}

	if len(patch) == 0 {
		return model.Book{}, NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	book, err := u.bookRepo.Update(ctx, bookID, patch)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Book{}, NewHTTPError(http.StatusNotFound, "book does not exist")
	}
	if err != nil {
		return model.Book{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return book, nil
}

func (u *BookUsecase) DeleteBook(ctx context.Context, bookID int64) error {
	if bookID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid book id")
	}

	err := u.bookRepo.Delete(ctx, bookID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "book does not exist")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *BookUsecase) ListAuthors(ctx context.Context) ([]string, error) {
	authors, err := u.bookRepo.DistinctAuthors(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if authors == nil {
		authors = []string{}
	}
	return authors, nil
}
