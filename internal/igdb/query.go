package igdb

import (
	"strconv"
	"strings"
)

// Query is a structured upstream request body. It renders to the upstream
// text query language, one statement per non-empty part:
//
//	search "zelda"; fields name,slug; where genres = (12) & platforms = (6,48); sort name asc; limit 50; offset 0;
type Query struct {
	Search string
	Fields []string
	Where  []string
	Sort   string
	Limit  int
	Offset int
}

// String renders the query body.
func (q Query) String() string {
	var stmts []string
	if q.Search != "" {
		stmts = append(stmts, "search "+strconv.Quote(q.Search))
	}
	if len(q.Fields) != 0 {
		stmts = append(stmts, "fields "+strings.Join(q.Fields, ","))
	}
	if where := q.WhereClause(); where != "" {
		stmts = append(stmts, "where "+where)
	}
	if q.Sort != "" {
		stmts = append(stmts, "sort "+q.Sort)
	}
	if q.Limit > 0 {
		stmts = append(stmts, "limit "+strconv.Itoa(q.Limit))
	}
	if q.Limit > 0 || q.Offset > 0 {
		stmts = append(stmts, "offset "+strconv.Itoa(q.Offset))
	}
	if len(stmts) == 0 {
		return ""
	}
	return strings.Join(stmts, "; ") + ";"
}

// WhereClause joins the filter clauses with logical AND.
func (q Query) WhereClause() string {
	clauses := make([]string, 0, len(q.Where))
	for _, c := range q.Where {
		if c = strings.TrimSpace(c); c != "" {
			clauses = append(clauses, c)
		}
	}
	return strings.Join(clauses, " & ")
}

// InClause renders a membership clause such as "genres = (5,12)". It returns
// an empty string for an empty id list so the group emits no clause.
func InClause(field string, ids []int64) string {
	if len(ids) == 0 {
		return ""
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return field + " = (" + strings.Join(parts, ",") + ")"
}
