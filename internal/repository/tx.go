package repository

import (
	"context"
	"errors"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"go.uber.org/zap"
)

type txKey struct{}

// Transactor runs fn so that every repository call made with the context it
// receives shares one transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// InTx commits when fn returns nil and rolls back otherwise. Nested calls join
// the outer transaction.
func (d *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return fn(ctx)
	}
	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			d.log.Error("tx rollback failed", zap.Error(rerr))
			return errors.Join(err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (d *DB) conn(ctx context.Context) dialect.ExecQuerier {
	if tx, ok := ctx.Value(txKey{}).(dialect.Tx); ok {
		return tx
	}
	return d.drv
}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(dialect.Tx)
	return ok
}

func (d *DB) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.Dialect())
}

// query runs q and hands every row to scan.
func (d *DB) query(ctx context.Context, q entsql.Querier, scan func(rows *entsql.Rows) error) error {
	query, args := q.Query()
	if args == nil {
		args = []any{}
	}
	var rows entsql.Rows
	if err := d.conn(ctx).Query(ctx, query, args, &rows); err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(&rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// exec runs q and returns the number of affected rows.
func (d *DB) exec(ctx context.Context, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	if args == nil {
		args = []any{}
	}
	var res entsql.Result
	if err := d.conn(ctx).Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
