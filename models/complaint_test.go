package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to ComplaintStatus
		want     bool
	}{
		{StatusSubmitted, StatusUnderReview, true},
		{StatusSubmitted, StatusResolved, false},
		{StatusSubmitted, StatusInProgress, false},
		{StatusUnderReview, StatusInProgress, true},
		{StatusUnderReview, StatusResolved, true},
		{StatusInProgress, StatusUnderReview, true},
		{StatusInProgress, StatusResolved, true},
		{StatusInProgress, StatusSubmitted, false},
		{StatusResolved, StatusReopened, true},
		{StatusResolved, StatusInProgress, false},
		{StatusReopened, StatusUnderReview, true},
		{StatusReopened, StatusInProgress, true},
		{StatusReopened, StatusResolved, false},
		{StatusResolved, StatusResolved, false},
		{ComplaintStatus("closed"), StatusReopened, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestFormatComplaintNumber(t *testing.T) {
	at := time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, "CMP-26-10-0007", FormatComplaintNumber("CMP", at, 7))
	assert.Equal(t, "CMP-26-10-12345", FormatComplaintNumber("CMP", at, 12345))

	// Late evening in UTC-5 is already the next month in UTC.
	local := time.Date(2026, time.January, 31, 22, 0, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "GRV-26-02-0001", FormatComplaintNumber("GRV", local, 1))
}

func TestSequencePeriod(t *testing.T) {
	assert.Equal(t, "2610", SequencePeriod(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2701", SequencePeriod(time.Date(2027, time.January, 15, 0, 0, 0, 0, time.UTC)))
}

func TestEnumValidity(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, Category("parks").Valid())

	for _, s := range Statuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, ComplaintStatus("closed").Valid())

	for _, p := range Priorities {
		assert.True(t, p.Valid(), p)
	}
	assert.False(t, Priority("urgent").Valid())

	assert.True(t, RoleSupervisor.Valid())
	assert.False(t, Role("root").Valid())
	assert.False(t, UserStatus("banned").Valid())
}

func TestRoleHelpers(t *testing.T) {
	assert.False(t, RoleCitizen.IsStaff())
	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleOfficer.RequiresDepartment())
	assert.True(t, RoleSupervisor.RequiresDepartment())
	assert.False(t, RoleAdmin.RequiresDepartment())
}

func TestPrincipalInDepartment(t *testing.T) {
	one, two := int64(1), int64(2)
	p := Principal{UserID: 5, Role: RoleOfficer, DepartmentID: &one}

	assert.True(t, p.InDepartment(&one))
	assert.False(t, p.InDepartment(&two))
	assert.False(t, p.InDepartment(nil))
	assert.False(t, Principal{Role: RoleAdmin}.InDepartment(&one))
}

func TestDepartmentHandles(t *testing.T) {
	d := &Department{Categories: []Category{CategoryWater, CategorySanitation}}
	assert.True(t, d.Handles(CategorySanitation))
	assert.False(t, d.Handles(CategoryRoads))
}
