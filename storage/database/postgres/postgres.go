// Package postgres implements the repositories on PostgreSQL with sqlx.
package postgres

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
)

type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// insert runs a named INSERT ... RETURNING id query and returns the new id.
func insert(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (int, error) {
	q, args, err := exec.BindNamed(query, arg)
	if err != nil {
		return 0, errors.Wrap(err, "binding query")
	}
	var id int
	if err = exec.QueryRowxContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// update runs a named UPDATE query and returns notFound when no row was changed.
func update(ctx context.Context, exec core.DBExecutor, query string, arg interface{}, notFound error) error {
	q, args, err := exec.BindNamed(query, arg)
	if err != nil {
		return errors.Wrap(err, "binding query")
	}
	res, err := exec.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	return checkAffected(res.RowsAffected, notFound)
}

func checkAffected(rowsAffected func() (int64, error), notFound error) error {
	n, err := rowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// where accumulates AND conditions with `?` placeholders.
type where struct {
	conds []string
	args  []interface{}
}

func (w *where) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// build expands slice args and rebinds the query for the executor's driver.
func (w *where) build(exec core.DBExecutor, query string, extra ...interface{}) (string, []interface{}, error) {
	q, args, err := sqlx.In(query, append(append([]interface{}{}, w.args...), extra...)...)
	if err != nil {
		return "", nil, errors.Wrap(err, "building query")
	}
	return exec.Rebind(q), args, nil
}

func orderBy(ordering []core.DBOrdering, allowed map[string]bool, fallback string) string {
	list := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		if allowed[ord.Field] {
			list = append(list, ord.String())
		}
	}
	if len(list) == 0 {
		return " ORDER BY " + fallback
	}
	return " ORDER BY " + strings.Join(list, ", ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
