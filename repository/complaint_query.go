package repository

import (
	"citizenone/models"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FilterOp is a comparison operator permitted in complaint listings
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpGt  FilterOp = "gt"
	OpGte FilterOp = "gte"
	OpLt  FilterOp = "lt"
	OpLte FilterOp = "lte"
	OpIn  FilterOp = "in"
)

var opSQL = map[FilterOp]string{
	OpEq:  "=",
	OpGt:  ">",
	OpGte: ">=",
	OpLt:  "<",
	OpLte: "<=",
}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

type filterField struct {
	column string
	ops    []FilterOp
	parse  func(string) (interface{}, error)
}

// complaintFilterFields is the complete whitelist of filterable fields.
// Anything else in a query string is rejected.
var complaintFilterFields = map[string]filterField{
	"status":      {column: "c.status", ops: []FilterOp{OpEq, OpIn}, parse: parseStatusValue},
	"category":    {column: "c.category", ops: []FilterOp{OpEq, OpIn}, parse: parseCategoryValue},
	"priority":    {column: "c.priority", ops: []FilterOp{OpEq, OpIn}, parse: parsePriorityValue},
	"department":  {column: "c.department_id", ops: []FilterOp{OpEq, OpIn}, parse: parseIDValue},
	"officer":     {column: "c.officer_id", ops: []FilterOp{OpEq, OpIn}, parse: parseIDValue},
	"citizen":     {column: "c.citizen_id", ops: []FilterOp{OpEq, OpIn}, parse: parseIDValue},
	"created_at":  {column: "c.created_at", ops: []FilterOp{OpEq, OpGt, OpGte, OpLt, OpLte}, parse: parseTimeValue},
	"updated_at":  {column: "c.updated_at", ops: []FilterOp{OpEq, OpGt, OpGte, OpLt, OpLte}, parse: parseTimeValue},
	"resolved_at": {column: "c.resolved_at", ops: []FilterOp{OpEq, OpGt, OpGte, OpLt, OpLte}, parse: parseTimeValue},
}

var complaintSortColumns = map[string]string{
	"created_at": "c.created_at",
	"updated_at": "c.updated_at",
	"priority":   "FIELD(c.priority, 'low', 'medium', 'high')",
	"status":     "FIELD(c.status, 'submitted', 'under_review', 'in_progress', 'resolved', 'reopened')",
	"category":   "c.category",
}

// Condition is one validated filter term
type Condition struct {
	Field  string
	Op     FilterOp
	Values []interface{}
}

// SortField orders a listing by one whitelisted column
type SortField struct {
	Field string
	Desc  bool
}

// Scope restricts a listing to what the principal may see. It is set by the
// service from the principal, never from request parameters.
type Scope struct {
	CitizenID    *int64
	DepartmentID *int64
	// Deny hides everything, e.g. for staff without a department.
	Deny bool
}

// ComplaintQuery is a typed filter-sort-paginate request over complaints
type ComplaintQuery struct {
	Conditions []Condition
	Sort       []SortField
	Page       int
	Limit      int
	Scope      Scope
}

// Offset returns the row offset of the requested page
func (q ComplaintQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// ParseComplaintQuery builds a ComplaintQuery from the query-string convention
// field=value, field[op]=value and field[in]=a,b plus sort, page and limit.
// Unknown fields, unknown operators, repeated keys and malformed values fail
// with ErrValidation.
func ParseComplaintQuery(values url.Values) (ComplaintQuery, error) {
	q := ComplaintQuery{Page: 1, Limit: DefaultPageLimit}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if len(values[key]) > 1 {
			return q, fmt.Errorf("%w: %q given more than once, use %s[in]=a,b for several values", ErrValidation, key, strings.SplitN(key, "[", 2)[0])
		}
		raw := values.Get(key)
		switch key {
		case "page":
			n, err := strconv.Atoi(raw)
			if err != nil {
				return q, fmt.Errorf("%w: page must be a number", ErrValidation)
			}
			if n > 1 {
				q.Page = n
			}
			continue
		case "limit":
			n, err := strconv.Atoi(raw)
			if err != nil {
				return q, fmt.Errorf("%w: limit must be a number", ErrValidation)
			}
			q.Limit = clampLimit(n)
			continue
		case "sort":
			sortFields, err := parseSort(raw)
			if err != nil {
				return q, err
			}
			q.Sort = sortFields
			continue
		}

		cond, err := parseCondition(key, raw)
		if err != nil {
			return q, err
		}
		q.Conditions = append(q.Conditions, cond)
	}
	return q, nil
}

func clampLimit(n int) int {
	if n < 1 {
		return DefaultPageLimit
	}
	if n > MaxPageLimit {
		return MaxPageLimit
	}
	return n
}

func parseCondition(key, raw string) (Condition, error) {
	field, op := key, OpEq
	if i := strings.IndexByte(key, '['); i >= 0 {
		if !strings.HasSuffix(key, "]") {
			return Condition{}, fmt.Errorf("%w: malformed filter %q", ErrValidation, key)
		}
		field = key[:i]
		op = FilterOp(key[i+1 : len(key)-1])
	}

	spec, ok := complaintFilterFields[field]
	if !ok {
		return Condition{}, fmt.Errorf("%w: unknown filter field %q", ErrValidation, field)
	}
	if !opAllowed(spec.ops, op) {
		return Condition{}, fmt.Errorf("%w: operator %q not allowed on %q", ErrValidation, op, field)
	}

	parts := []string{raw}
	if op == OpIn {
		parts = strings.Split(raw, ",")
	}
	cond := Condition{Field: field, Op: op}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := spec.parse(p)
		if err != nil {
			return Condition{}, fmt.Errorf("%w: %s: %v", ErrValidation, field, err)
		}
		cond.Values = append(cond.Values, v)
	}
	if len(cond.Values) == 0 {
		return Condition{}, fmt.Errorf("%w: empty value for %q", ErrValidation, key)
	}
	return cond, nil
}

func opAllowed(ops []FilterOp, op FilterOp) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func parseSort(raw string) ([]SortField, error) {
	var out []SortField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		if _, ok := complaintSortColumns[name]; !ok {
			return nil, fmt.Errorf("%w: cannot sort by %q", ErrValidation, name)
		}
		out = append(out, SortField{Field: name, Desc: desc})
	}
	return out, nil
}

func parseStatusValue(s string) (interface{}, error) {
	if !models.ComplaintStatus(s).Valid() {
		return nil, fmt.Errorf("unknown status %q", s)
	}
	return s, nil
}

func parseCategoryValue(s string) (interface{}, error) {
	if !models.Category(s).Valid() {
		return nil, fmt.Errorf("unknown category %q", s)
	}
	return s, nil
}

func parsePriorityValue(s string) (interface{}, error) {
	if !models.Priority(s).Valid() {
		return nil, fmt.Errorf("unknown priority %q", s)
	}
	return s, nil
}

func parseIDValue(s string) (interface{}, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseTimeValue(s string) (interface{}, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return nil, fmt.Errorf("invalid date %q (want RFC3339 or YYYY-MM-DD)", s)
}

// whereClause renders the scope and conditions as a parameterized WHERE clause.
// Column names only ever come from the whitelist.
func (q ComplaintQuery) whereClause() (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if q.Scope.Deny {
		clauses = append(clauses, "1 = 0")
	}
	if q.Scope.CitizenID != nil {
		clauses = append(clauses, "c.citizen_id = ?")
		args = append(args, *q.Scope.CitizenID)
	}
	if q.Scope.DepartmentID != nil {
		clauses = append(clauses, "c.department_id = ?")
		args = append(args, *q.Scope.DepartmentID)
	}

	for _, cond := range q.Conditions {
		spec := complaintFilterFields[cond.Field]
		if cond.Op == OpIn {
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cond.Values)), ", ")
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", spec.column, placeholders))
			args = append(args, cond.Values...)
			continue
		}
		clauses = append(clauses, fmt.Sprintf("%s %s ?", spec.column, opSQL[cond.Op]))
		args = append(args, cond.Values[0])
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// orderClause renders the sort fields, newest first by default
func (q ComplaintQuery) orderClause() string {
	if len(q.Sort) == 0 {
		return " ORDER BY c.created_at DESC, c.complaint_id DESC"
	}
	parts := make([]string, 0, len(q.Sort)+1)
	for _, s := range q.Sort {
		dir := "ASC"
		if s.Desc {
			dir = "DESC"
		}
		parts = append(parts, complaintSortColumns[s.Field]+" "+dir)
	}
	parts = append(parts, "c.complaint_id DESC")
	return " ORDER BY " + strings.Join(parts, ", ")
}
