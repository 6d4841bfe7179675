// Package query はクエリ文字列から一覧取得の条件を組み立てる。
// search → filter → sort → paginate → fields の順で適用する。
package query

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// filterの対象にしない予約パラメータ。
var reservedParams = map[string]struct{}{
	"searchTerm": {},
	"sort":       {},
	"limit":      {},
	"page":       {},
	"fields":     {},
}

// Meta は一覧レスポンスのページング情報。
type Meta struct {
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	Total     int64 `json:"total"`
	TotalPage int   `json:"totalPage"`
}

// NewMeta は総件数からtotalPage = ceil(total/limit)を計算する。
func NewMeta(page int, limit int, total int64) Meta {
	totalPage := 0
	if limit > 0 {
		totalPage = int(math.Ceil(float64(total) / float64(limit)))
	}
	return Meta{Page: page, Limit: limit, Total: total, TotalPage: totalPage}
}

// UnknownFieldError はallow-listにない名前でfilterしようとしたとき。
type UnknownFieldError struct {
	Key string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown filter field: %s", e.Key)
}

// Builder はベースクエリに条件を重ねていく。
// data取得用とtotal算出用（ページングなし）の2本のチェーンを持つ。
type Builder struct {
	query  *gorm.DB
	count  *gorm.DB
	params url.Values
	err    error
}

func New(tx *gorm.DB, params url.Values) *Builder {
	return &Builder{
		query:  tx.Session(&gorm.Session{}),
		count:  tx.Session(&gorm.Session{}),
		params: params,
	}
}

// Search はsearchTermがあれば対象カラムへの部分一致ORを付ける。無ければ何もしない。
func (b *Builder) Search(columns ...string) *Builder {
	cond, args := searchCondition(b.params.Get("searchTerm"), columns)
	if cond == "" {
		return b
	}
	b.query = b.query.Where(cond, args...)
	b.count = b.count.Where(cond, args...)
	return b
}

func searchCondition(term string, columns []string) (string, []interface{}) {
	term = strings.TrimSpace(term)
	if term == "" || len(columns) == 0 {
		return "", nil
	}

	like := "%" + term + "%"
	conds := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		conds = append(conds, col+" ILIKE ?")
		args = append(args, like)
	}
	return "(" + strings.Join(conds, " OR ") + ")", args
}

// Filter は予約パラメータ以外を等価条件として扱う。
// allowedにない名前はエラーとして記録し、Query/CountTotalで返す。
func (b *Builder) Filter(allowed map[string]string) *Builder {
	conds, err := filterConditions(b.params, allowed)
	if err != nil && b.err == nil {
		b.err = err
	}
	for _, cond := range conds {
		b.query = b.query.Where(cond.expr, cond.arg)
		b.count = b.count.Where(cond.expr, cond.arg)
	}
	return b
}

type filterCondition struct {
	expr string
	arg  string
}

func filterConditions(params url.Values, allowed map[string]string) ([]filterCondition, error) {
	var conds []filterCondition
	var err error
	for key, values := range params {
		if _, reserved := reservedParams[key]; reserved {
			continue
		}
		if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
			continue
		}
		col, ok := allowed[key]
		if !ok {
			if err == nil {
				err = &UnknownFieldError{Key: key}
			}
			continue
		}
		conds = append(conds, filterCondition{expr: col + " = ?", arg: values[0]})
	}
	return conds, err
}

// Sort は"-price,name"形式のsortパラメータをORDER BYにする。
// 未知の名前は読み飛ばす。指定がなければ作成日時の降順。
func (b *Builder) Sort(allowed map[string]string) *Builder {
	for _, clause := range sortClauses(b.params.Get("sort"), allowed) {
		b.query = b.query.Order(clause)
	}
	return b
}

func sortClauses(raw string, allowed map[string]string) []string {
	var clauses []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		dir := "asc"
		if strings.HasPrefix(part, "-") {
			dir = "desc"
			part = strings.TrimPrefix(part, "-")
		}
		col, ok := allowed[part]
		if !ok {
			continue
		}
		clauses = append(clauses, col+" "+dir)
	}
	if len(clauses) == 0 {
		return []string{"created_at desc"}
	}
	return clauses
}

// Paginate はpage/limitからOFFSET/LIMITを付ける。
// 数値でない・0以下の値はデフォルト（page=1, limit=10）に戻す。
func (b *Builder) Paginate() *Builder {
	page, limit := Pagination(b.params)
	b.query = b.query.Offset((page - 1) * limit).Limit(limit)
	return b
}

// Pagination はpage/limitを正の整数に正規化する。
func Pagination(params url.Values) (page int, limit int) {
	page = positiveInt(params.Get("page"), DefaultPage)
	limit = positiveInt(params.Get("limit"), DefaultLimit)
	return page, limit
}

func positiveInt(raw string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// Fields はfieldsパラメータ（カンマ区切り）のallow-listでSELECT句を絞る。
// 指定がない・有効な名前がひとつもないときは全カラム。
func (b *Builder) Fields(allowed map[string]string) *Builder {
	cols := selectColumns(b.params.Get("fields"), allowed)
	if len(cols) == 0 {
		return b
	}
	b.query = b.query.Select(cols)
	return b
}

func selectColumns(raw string, allowed map[string]string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var cols []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if col, ok := allowed[part]; ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// Query は組み立て済みの*gorm.DBを返す。
func (b *Builder) Query() (*gorm.DB, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.query, nil
}

// CountTotal はページングを無視した総件数からメタ情報を計算する。
func (b *Builder) CountTotal() (Meta, error) {
	if b.err != nil {
		return Meta{}, b.err
	}

	var total int64
	if err := b.count.Count(&total).Error; err != nil {
		return Meta{}, err
	}

	page, limit := Pagination(b.params)
	return NewMeta(page, limit, total), nil
}
