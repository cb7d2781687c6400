package native

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/odatabridge/internal/builder"
	"github.com/roach88/odatabridge/internal/expr"
	"github.com/roach88/odatabridge/internal/querysql"
)

// ErrNoElements is returned by First over an empty sequence.
var ErrNoElements = errors.New("sequence contains no elements")

// Query is a native query: an expression tree over the session's store.
type Query struct {
	session *Session
	elem    *expr.Type
	tree    expr.Node
}

var _ builder.NativeQuery = (*Query)(nil)

// Source returns the root query over every stored instance of t.
func (s *Session) Source(t *expr.Type) (*Query, error) {
	if t == nil || !t.IsPersistent() {
		return nil, fmt.Errorf("source: %v is not an entity type", t)
	}
	tree := expr.Call(expr.SequenceOf(t), expr.QueryOperator(expr.OpSource))
	return &Query{session: s, elem: t, tree: tree}, nil
}

// ElementType returns the static type of the query's rows.
func (q *Query) ElementType() *expr.Type { return q.elem }

// Expression returns the query's tree.
func (q *Query) Expression() expr.Node { return q.tree }

func (q *Query) String() string {
	return "Native<" + q.elem.String() + ">"
}

// CreateQuery composes n into a new query. Source constants in n that hold
// native queries of this session are replaced by their trees. The result
// must compile.
func (q *Query) CreateQuery(n expr.Node) (builder.NativeQuery, error) {
	tree, err := q.inline(n)
	if err != nil {
		return nil, err
	}
	elem := tree.Type().ElementType()
	if elem == nil {
		return nil, fmt.Errorf("create query: %s is not a sequence", tree.Type())
	}
	if _, err := q.session.compiler.Compile(tree); err != nil {
		return nil, fmt.Errorf("create query: %w", err)
	}
	return &Query{session: q.session, elem: elem, tree: tree}, nil
}

// Execute evaluates n. Terminal operators return their value: Count an
// int64, Any a bool, Sum an int64 or decimal.Decimal, First and
// FirstOrDefault a row. A sequence returns its rows.
func (q *Query) Execute(ctx context.Context, n expr.Node) (any, error) {
	tree, err := q.inline(n)
	if err != nil {
		return nil, err
	}
	plan, err := q.session.compiler.Compile(tree)
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	return q.session.run(ctx, plan)
}

// Enumerate runs the query and returns its rows.
func (q *Query) Enumerate(ctx context.Context) ([]any, error) {
	plan, err := q.session.compiler.Compile(q.tree)
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}
	if plan.Op != "" {
		return nil, fmt.Errorf("enumerate: %s is not a sequence", plan.Op)
	}
	return q.session.fetch(ctx, plan)
}

// sourcer is implemented by queryables in source form.
type sourcer interface {
	NativeQuery() builder.NativeQuery
}

// inline replaces native query constants along the source chain of n with
// their trees.
func (q *Query) inline(n expr.Node) (expr.Node, error) {
	switch n := n.(type) {
	case *expr.Constant:
		var nq builder.NativeQuery
		switch v := n.Value.(type) {
		case *Query:
			nq = v
		case sourcer:
			nq = v.NativeQuery()
			if nq == nil {
				return nil, fmt.Errorf("inline: %T is not bound to a native query", n.Value)
			}
		default:
			return n, nil
		}
		src, ok := nq.(*Query)
		if !ok {
			return nil, fmt.Errorf("inline: %T is not a native query", nq)
		}
		if src.session.store != q.session.store {
			return nil, fmt.Errorf("inline: %s belongs to another store", src)
		}
		return src.tree, nil

	case *expr.MethodCall:
		if !expr.IsQueryOperator(n.Method) || len(n.Args) == 0 {
			return n, nil
		}
		first, err := q.inline(n.Args[0])
		if err != nil {
			return nil, err
		}
		if first == n.Args[0] {
			return n, nil
		}
		args := append([]expr.Node{first}, n.Args[1:]...)
		return &expr.MethodCall{Receiver: n.Receiver, Method: n.Method, Args: args, T: n.T}, nil
	}
	return n, nil
}

// run executes a plan and shapes the result by its terminal operator.
func (s *Session) run(ctx context.Context, plan *querysql.Plan) (any, error) {
	switch plan.Op {
	case "":
		return s.fetch(ctx, plan)

	case expr.OpCount, expr.OpAny:
		slog.Debug("native scalar", "session", s.id, "op", plan.Op, "sql", plan.SQL)
		v, err := s.store.QueryScalar(ctx, plan.SQL, plan.Args...)
		if err != nil {
			return nil, err
		}
		n, ok := v.(int64)
		if !ok {
			return nil, fmt.Errorf("%s: store returned %T", plan.Op, v)
		}
		if plan.Op == expr.OpAny {
			return n != 0, nil
		}
		return n, nil

	case expr.OpFirst, expr.OpFirstOrDefault:
		rows, err := s.fetch(ctx, plan)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			if plan.Op == expr.OpFirst {
				return nil, ErrNoElements
			}
			return nil, nil
		}
		return rows[0], nil

	case expr.OpSum:
		rows, err := s.fetch(ctx, plan)
		if err != nil {
			return nil, err
		}
		return sum(plan.Elem, rows)
	}
	return nil, fmt.Errorf("unsupported terminal operator %s", plan.Op)
}

// fetch runs a row-producing plan and decodes every row.
func (s *Session) fetch(ctx context.Context, plan *querysql.Plan) ([]any, error) {
	slog.Debug("native fetch", "session", s.id, "sql", plan.SQL, "args", len(plan.Args))

	if plan.Shape == querysql.Column {
		col, err := s.store.QueryColumn(ctx, plan.SQL, plan.Args...)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(col))
		for i, v := range col {
			if out[i], err = columnValue(plan.Elem, v); err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
		}
		return out, nil
	}

	recs, err := s.store.QueryRecords(ctx, plan.SQL, plan.Args...)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(recs))
	for i, rec := range recs {
		t, ok := s.model.Entity(rec.Entity)
		if !ok {
			return nil, fmt.Errorf("record %d has unknown entity %q", rec.Seq, rec.Entity)
		}
		obj, err := s.model.CoerceObject(t, rec.Data)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", rec.Seq, err)
		}
		out[i] = obj
	}
	return out, nil
}
