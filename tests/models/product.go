// Package models holds the hand-written sqlboiler-style model used by the
// end-to-end keyset-pagination suite, shaped the way sqlboiler codegen would
// emit it for the products table (§8's five-row dataset).
package models

import (
	"context"

	"github.com/aarondl/sqlboiler/v4/boil"
	"github.com/aarondl/sqlboiler/v4/queries"
	"github.com/aarondl/sqlboiler/v4/queries/qm"
)

// Product is an object representing the products table.
type Product struct {
	ID       int    `boil:"id" json:"id"`
	Name     string `boil:"name" json:"name"`
	Category string `boil:"category" json:"category"`
	Price    int    `boil:"price" json:"price"`
	Likes    int    `boil:"likes" json:"likes"`
}

const productTableName = "products"

type productQuery struct {
	*queries.Query
}

// Products returns a new query against the products table.
func Products(mods ...qm.QueryMod) productQuery {
	mods = append(mods, qm.From(productTableName))
	return productQuery{queries.NewQuery(mods...)}
}

// All returns all Product rows matching the query.
func (q productQuery) All(ctx context.Context, exec boil.ContextExecutor) ([]*Product, error) {
	var o []*Product
	if err := q.Bind(ctx, exec, &o); err != nil {
		return nil, err
	}
	return o, nil
}

// Count returns the number of rows matching the query, ignoring any
// ORDER BY/LIMIT already applied to it.
func (q productQuery) Count(ctx context.Context, exec boil.ContextExecutor) (int64, error) {
	queries.SetSelect(q.Query, nil)
	queries.SetCount(q.Query)

	var count int64
	err := q.QueryRowContext(ctx, exec).Scan(&count)
	return count, err
}
