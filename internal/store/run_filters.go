package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/lequal/sonarqube-verify/internal/models"
	"github.com/lequal/sonarqube-verify/pkg/filter"
)

type RunFilterFunc func(sq.SelectBuilder) sq.SelectBuilder

type RunQueryFilter struct {
	filters []RunFilterFunc
}

func NewRunQueryFilter() *RunQueryFilter {
	return &RunQueryFilter{
		filters: make([]RunFilterFunc, 0),
	}
}

func (f *RunQueryFilter) Add(filter RunFilterFunc) *RunQueryFilter {
	f.filters = append(f.filters, filter)
	return f
}

func (f *RunQueryFilter) ByFlow(flows ...models.Flow) *RunQueryFilter {
	if len(flows) == 0 {
		return f
	}
	values := make([]string, len(flows))
	for i, fl := range flows {
		values[i] = string(fl)
	}
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{runColFlow: values})
	})
}

func (f *RunQueryFilter) ByStatus(statuses ...models.RunStatus) *RunQueryFilter {
	if len(statuses) == 0 {
		return f
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = s.Value()
	}
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(sq.Eq{runColStatus: values})
	})
}

// ByExpression restricts the runs with a parsed filter expression. A nil expression is ignored.
func (f *RunQueryFilter) ByExpression(expr filter.Expression) *RunQueryFilter {
	if expr == nil {
		return f
	}
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Where(expr.Sql())
	})
}

func (f *RunQueryFilter) Limit(limit int) *RunQueryFilter {
	if limit <= 0 {
		return f
	}
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(uint64(limit))
	})
}

// Latest orders the runs from the most recent one.
func (f *RunQueryFilter) Latest() *RunQueryFilter {
	return f.Add(func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.OrderBy(runColStarted + " DESC")
	})
}

func (f *RunQueryFilter) Apply(builder sq.SelectBuilder) sq.SelectBuilder {
	for _, fn := range f.filters {
		builder = fn(builder)
	}
	return builder
}
