package postgrest

import (
	"fmt"
	"net/url"
	"strings"
)

// Query describes a read against one table: horizontal filters plus ordering.
type Query struct {
	table   string
	columns string
	filters url.Values
	order   []string
}

func From(table string) *Query {
	return &Query{table: table, columns: "*", filters: url.Values{}}
}

// Select limits the returned columns, e.g. "id,product_name".
func (q *Query) Select(columns string) *Query {
	q.columns = columns
	return q
}

func (q *Query) Eq(column string, value any) *Query {
	q.filters.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = append(q.order, column+"."+dir)
	return q
}

func (q *Query) Table() string { return q.table }

// Values renders the query string parameters of q.
func (q *Query) Values() url.Values {
	v := url.Values{}
	for k, vs := range q.filters {
		v[k] = append([]string(nil), vs...)
	}
	v.Set("select", q.columns)
	if len(q.order) > 0 {
		v.Set("order", strings.Join(q.order, ","))
	}
	return v
}
