package gormrepos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/darasa-lms/darasa/core"
)

type txKey struct{}

// Transactor runs functions in a gorm transaction carried by the context.
type Transactor struct {
	db *gorm.DB
}

var _ core.Transactor = (*Transactor)(nil) // interface compliance check

func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// InTx joins the transaction already carried by ctx, if any.
func (t *Transactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// conn returns the transaction carried by ctx or a session on db.
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

func newID() string { return uuid.New().String() }

// validID reports whether id can be looked up at all; malformed IDs are reported as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }

// isUniqueViolation matches both lib/pq and gorm translated unique constraint errors.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func orderClause(ordering []core.DBOrdering, fallback string) string {
	if len(ordering) == 0 {
		return fallback
	}
	clause := ""
	for i, ord := range ordering {
		if i > 0 {
			clause += ", "
		}
		clause += ord.String()
	}
	return clause
}

// countBy groups table rows by column and counts them.
func countBy(db *gorm.DB, model interface{}, column string) (map[string]int64, error) {
	var rows []struct {
		Grp   string
		Total int64
	}
	err := db.Model(model).Select(column + " AS grp, COUNT(*) AS total").Group(column).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Grp] = r.Total
	}
	return counts, nil
}
