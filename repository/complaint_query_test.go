package repository

import (
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseComplaintQuery_Defaults(t *testing.T) {
	q, err := ParseComplaintQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, DefaultPageLimit, q.Limit)
	assert.Equal(t, 0, q.Offset())
	assert.Empty(t, q.Conditions)

	where, args := q.whereClause()
	assert.Empty(t, where)
	assert.Nil(t, args)
	assert.Equal(t, " ORDER BY c.created_at DESC, c.complaint_id DESC", q.orderClause())
}

func TestParseComplaintQuery_Filters(t *testing.T) {
	values, err := url.ParseQuery("status[in]=submitted,reopened&priority=high&created_at[gte]=2026-10-01&page=3&limit=25&sort=-priority,created_at")
	require.NoError(t, err)

	q, err := ParseComplaintQuery(values)
	require.NoError(t, err)
	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 25, q.Limit)
	assert.Equal(t, 50, q.Offset())
	require.Len(t, q.Conditions, 3)

	// keys are processed in sorted order
	assert.Equal(t, Condition{Field: "created_at", Op: OpGte, Values: []interface{}{time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)}}, q.Conditions[0])
	assert.Equal(t, Condition{Field: "priority", Op: OpEq, Values: []interface{}{"high"}}, q.Conditions[1])
	assert.Equal(t, Condition{Field: "status", Op: OpIn, Values: []interface{}{"submitted", "reopened"}}, q.Conditions[2])

	assert.Equal(t, []SortField{{Field: "priority", Desc: true}, {Field: "created_at"}}, q.Sort)
	assert.Equal(t, " ORDER BY FIELD(c.priority, 'low', 'medium', 'high') DESC, c.created_at ASC, c.complaint_id DESC", q.orderClause())
}

func TestParseComplaintQuery_LimitClamped(t *testing.T) {
	q, err := ParseComplaintQuery(url.Values{"limit": {"500"}, "page": {"0"}})
	require.NoError(t, err)
	assert.Equal(t, MaxPageLimit, q.Limit)
	assert.Equal(t, 1, q.Page)

	q, err = ParseComplaintQuery(url.Values{"limit": {"-4"}})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageLimit, q.Limit)
}

func TestParseComplaintQuery_Rejects(t *testing.T) {
	tests := map[string]url.Values{
		"unknown field":         {"password": {"x"}},
		"unknown operator":      {"status[like]": {"sub%"}},
		"operator not allowed":  {"status[gt]": {"submitted"}},
		"malformed bracket":     {"status[in": {"submitted"}},
		"bad status":            {"status": {"closed"}},
		"bad category in list":  {"category[in]": {"water,parks"}},
		"bad id":                {"department": {"abc"}},
		"non-positive id":       {"officer": {"0"}},
		"bad date":              {"created_at[lt]": {"yesterday"}},
		"empty in list":         {"status[in]": {" , "}},
		"bad sort":              {"sort": {"citizen_id"}},
		"non-numeric page":      {"page": {"two"}},
		"non-numeric limit":     {"limit": {"ten"}},
		"sql injection attempt": {"status": {"submitted' OR 1=1 --"}},
		"repeated filter key":   {"status": {"submitted", "resolved"}},
		"repeated in key":       {"category[in]": {"water", "roads"}},
		"repeated page":         {"page": {"1", "2"}},
	}
	for name, values := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseComplaintQuery(values)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation), err)
		})
	}
}

func TestParseComplaintQuery_RepeatedKeyFromQueryString(t *testing.T) {
	values, err := url.ParseQuery("status=submitted&status=resolved")
	require.NoError(t, err)

	_, err = ParseComplaintQuery(values)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Contains(t, err.Error(), "status[in]")
}

func TestWhereClause_ScopeAndConditions(t *testing.T) {
	citizen, dept := int64(10), int64(2)
	q, err := ParseComplaintQuery(url.Values{
		"department[in]": {"2,3"},
		"priority":       {"low"},
	})
	require.NoError(t, err)
	q.Scope = Scope{CitizenID: &citizen, DepartmentID: &dept}

	where, args := q.whereClause()
	assert.Equal(t, " WHERE c.citizen_id = ? AND c.department_id = ? AND c.department_id IN (?, ?) AND c.priority = ?", where)
	assert.Equal(t, []interface{}{int64(10), int64(2), int64(2), int64(3), "low"}, args)
}

func TestWhereClause_Deny(t *testing.T) {
	q := ComplaintQuery{Page: 1, Limit: 10, Scope: Scope{Deny: true}}
	where, args := q.whereClause()
	assert.Equal(t, " WHERE 1 = 0", where)
	assert.Empty(t, args)
}

func TestIsDuplicateEntry(t *testing.T) {
	assert.True(t, isDuplicateEntry(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, isDuplicateEntry(&mysql.MySQLError{Number: 1146}))
	assert.False(t, isDuplicateEntry(errors.New("boom")))
}

func TestNullHelpers(t *testing.T) {
	assert.False(t, nullInt64(nil).Valid)
	id := int64(7)
	assert.Equal(t, &id, int64Ptr(nullInt64(&id)))
	assert.Nil(t, int64Ptr(nullInt64(nil)))

	assert.False(t, nullString("").Valid)
	assert.True(t, nullString("x").Valid)

	local := time.Date(2026, 10, 18, 12, 0, 0, 0, time.FixedZone("IST", 19800))
	nt := nullTime(&local)
	require.True(t, nt.Valid)
	assert.Equal(t, time.UTC, nt.Time.Location())
	assert.Nil(t, timePtr(nullTime(nil)))
}
