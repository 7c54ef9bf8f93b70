package staff

import (
	"context"
	"errors"
	"time"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
)

var (
	// errors
	ErrNotFound       = errors.New("staff account not found")
	ErrUsernameExists = errors.New("a staff account with this username already exists")
	ErrEmailExists    = errors.New("a staff account with this email already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excluded ...Staff) error
		CreateStaff(ctx context.Context, stf Staff) (Staff, error)
		GetStaffByID(ctx context.Context, id string) (Staff, error)
		GetStaffByUsernameOrEmail(ctx context.Context, username string) (Staff, error)
		QueryAllStaff(ctx context.Context) ([]Staff, error)
		UpdateStaff(ctx context.Context, stf Staff) (Staff, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(ctx context.Context, uname, email string, excl ...Staff) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, excl...); err != nil {
		var field string
		switch err {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStaff) (Staff, error) {
	uname := core.CleanString(ns.Username, true /* lower */)
	email := core.CleanString(ns.Email, true)
	if err := svc.checkUniqueness(ctx, uname, email); err != nil {
		return Staff{}, err
	}
	now := time.Now().UTC()
	stf := Staff{
		Name:      core.CleanString(ns.Name),
		Rank:      core.CleanString(ns.Rank),
		Username:  uname,
		Email:     email,
		IsActive:  true,
		IsAdmin:   ns.IsAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := stf.SetPassword(ns.Password); err != nil {
		return Staff{}, err
	}
	return svc.repo.CreateStaff(ctx, stf)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Staff, error) {
	return svc.repo.GetStaffByID(ctx, id)
}

func (svc *Service) GetByUsernameOrEmail(ctx context.Context, uname string) (Staff, error) {
	return svc.repo.GetStaffByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *Service) QueryAll(ctx context.Context) ([]Staff, error) {
	return svc.repo.QueryAllStaff(ctx)
}

func (svc *Service) SetLastLogin(ctx context.Context, stf Staff) (Staff, error) {
	stf.LastLogin = time.Now().UTC()
	return svc.repo.UpdateStaff(ctx, stf)
}

// ResolveIssuer resolves an authenticated staff ID to the display name
// stamped onto ledger entries. Resolved once at write time, never
// re-resolved later.
func (svc *Service) ResolveIssuer(ctx context.Context, id string) (string, error) {
	stf, err := svc.repo.GetStaffByID(ctx, id)
	if err != nil {
		return "", err
	}
	return stf.DisplayName(), nil
}
