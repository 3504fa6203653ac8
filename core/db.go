package core

import (
	"context"
	"strings"
)

// Transactor runs fn inside a database transaction carried by the context given to fn.
// Repositories called with that context join the transaction.
// fn returning an error rolls the whole transaction back.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrdering keeps the orderings whose field is in allowed, in order.
func FilterOrdering(ordering []DBOrdering, allowed ...string) []DBOrdering {
	kept := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		for _, fld := range allowed {
			if strings.EqualFold(ord.Field, fld) {
				kept = append(kept, DBOrdering{Field: fld, Ascending: ord.Ascending})
				break
			}
		}
	}
	return kept
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type Pagination struct {
	Page     int `query:"page"`
	PageSize int `query:"page_size"`
}

// Clean caps the page size and defaults missing values.
func (p *Pagination) Clean() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	} else if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }
func (p Pagination) Limit() int  { return p.PageSize }
