package service

import (
	"citizenone/models"
	"citizenone/repository"
	"context"
	"errors"
	"fmt"
)

// complaintViews resolves the ids on a complaint into display names
type complaintViews struct {
	departments DepartmentDirectory
	users       UserDirectory
}

func (v complaintViews) build(ctx context.Context, c *models.Complaint) (*models.ComplaintView, error) {
	view := &models.ComplaintView{Complaint: *c}

	name, err := v.userName(ctx, c.CitizenID)
	if err != nil {
		return nil, err
	}
	view.CitizenName = name

	if c.OfficerID != nil {
		if view.OfficerName, err = v.userName(ctx, *c.OfficerID); err != nil {
			return nil, err
		}
	}
	if c.DepartmentID != nil {
		if view.DepartmentName, err = v.departmentName(ctx, *c.DepartmentID); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (v complaintViews) userName(ctx context.Context, id int64) (string, error) {
	u, err := v.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve user %d: %w", id, err)
	}
	return u.Name, nil
}

func (v complaintViews) departmentName(ctx context.Context, id int64) (string, error) {
	d, err := v.departments.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve department %d: %w", id, err)
	}
	return d.Name, nil
}
