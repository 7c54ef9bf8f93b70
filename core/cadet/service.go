package cadet

import (
	"context"
	"errors"
	"time"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
)

var (
	// errors
	ErrNotFound            = errors.New("cadet not found")
	ErrStudentNumberExists = errors.New("a cadet with this student number already exists")
	ErrNotArchived         = errors.New("cadet must be archived before purging")
	ErrRetentionWindow     = errors.New("cadet is still within the archival retention window")
)

type (
	Repository interface {
		CheckStudentNumberUniqueness(ctx context.Context, studentNumber string, excludedCadets ...Cadet) error
		CreateCadet(ctx context.Context, cdt Cadet) (Cadet, error)
		GetCadetByID(ctx context.Context, id string) (Cadet, error)
		GetCadetByStudentNumber(ctx context.Context, studentNumber string) (Cadet, error)
		GetCadetByEmail(ctx context.Context, email string) (Cadet, error)
		GetCadetByUsername(ctx context.Context, username string) (Cadet, error)
		// FilterCadets applies AND operation on available QueryFilter fields.
		FilterCadets(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Cadet, error)
		UpdateCadet(ctx context.Context, cdt Cadet) (Cadet, error)
		SetCadetArchived(ctx context.Context, id string, archived bool, at time.Time) (Cadet, error)
		DeleteCadet(ctx context.Context, id string) error
	}

	Service struct {
		repo    Repository
		emitter core.EventEmitter
		conf    *core.Config
	}
)

func NewService(repo Repository, emitter core.EventEmitter, conf *core.Config) *Service {
	return &Service{repo: repo, emitter: emitter, conf: conf}
}

func (svc *Service) checkUniqueness(ctx context.Context, sn string, excl ...Cadet) error {
	if err := svc.repo.CheckStudentNumberUniqueness(ctx, sn, excl...); err != nil {
		if err == ErrStudentNumberExists {
			return core.NewValidationError(err, core.FieldError{Field: "student_number", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewCadet) (Cadet, error) {
	sn := core.CleanString(nc.StudentNumber, true /* lower */)
	if err := svc.checkUniqueness(ctx, sn); err != nil {
		return Cadet{}, err
	}
	now := time.Now().UTC()
	cdt := Cadet{
		StudentNumber: sn,
		FirstName:     core.CleanString(nc.FirstName),
		LastName:      core.CleanString(nc.LastName),
		Email:         core.CleanString(nc.Email, true),
		Username:      core.CleanString(nc.Username, true),
		Company:       core.CleanString(nc.Company),
		Platoon:       core.CleanString(nc.Platoon),
		Course:        core.CleanString(nc.Course),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return svc.repo.CreateCadet(ctx, cdt)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Cadet, error) {
	return svc.repo.GetCadetByID(ctx, id)
}

func (svc *Service) GetByStudentNumber(ctx context.Context, sn string) (Cadet, error) {
	return svc.repo.GetCadetByStudentNumber(ctx, core.CleanString(sn, true /* lower */))
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter, orderings ...core.DBOrdering) ([]Cadet, error) {
	return svc.repo.FilterCadets(ctx, filter, orderings...)
}

// Roster returns all non-archived cadets; the import pipeline matches
// against this set.
func (svc *Service) Roster(ctx context.Context) ([]Cadet, error) {
	return svc.repo.FilterCadets(ctx, QueryFilter{})
}

func (svc *Service) Update(ctx context.Context, id string, uc UpdateCadet) (Cadet, error) {
	cdt, err := svc.repo.GetCadetByID(ctx, id)
	if err != nil {
		return Cadet{}, err
	}
	if uc.StudentNumber != "" {
		sn := core.CleanString(uc.StudentNumber, true)
		if sn != cdt.StudentNumber {
			if err = svc.checkUniqueness(ctx, sn, cdt); err != nil {
				return Cadet{}, err
			}
			cdt.StudentNumber = sn
		}
	}
	if uc.FirstName != "" {
		cdt.FirstName = core.CleanString(uc.FirstName)
	}
	if uc.LastName != "" {
		cdt.LastName = core.CleanString(uc.LastName)
	}
	if uc.Email != "" {
		cdt.Email = core.CleanString(uc.Email, true)
	}
	if uc.Username != "" {
		cdt.Username = core.CleanString(uc.Username, true)
	}
	if uc.Company != "" {
		cdt.Company = core.CleanString(uc.Company)
	}
	if uc.Platoon != "" {
		cdt.Platoon = core.CleanString(uc.Platoon)
	}
	if uc.Course != "" {
		cdt.Course = core.CleanString(uc.Course)
	}
	cdt.UpdatedAt = time.Now().UTC()

	cdt, err = svc.repo.UpdateCadet(ctx, cdt)
	if err != nil {
		return Cadet{}, err
	}
	svc.emitter.Emit(core.Event{Type: core.EventCadetUpdated, CadetID: cdt.ID})
	return cdt, nil
}

// Archive soft-deletes a cadet; the flag flip is reversible via Unarchive.
func (svc *Service) Archive(ctx context.Context, id string) (Cadet, error) {
	cdt, err := svc.repo.SetCadetArchived(ctx, id, true, time.Now().UTC())
	if err != nil {
		return Cadet{}, err
	}
	svc.emitter.Emit(core.Event{Type: core.EventCadetUpdated, CadetID: cdt.ID})
	return cdt, nil
}

func (svc *Service) Unarchive(ctx context.Context, id string) (Cadet, error) {
	cdt, err := svc.repo.SetCadetArchived(ctx, id, false, time.Time{})
	if err != nil {
		return Cadet{}, err
	}
	svc.emitter.Emit(core.Event{Type: core.EventCadetUpdated, CadetID: cdt.ID})
	return cdt, nil
}

// Purge irreversibly deletes an archived cadet and all dependent rows.
// Refused unless the cadet has been archived for at least the configured
// retention window.
func (svc *Service) Purge(ctx context.Context, id string) error {
	cdt, err := svc.repo.GetCadetByID(ctx, id)
	if err != nil {
		return err
	}
	if !cdt.IsArchived {
		return ErrNotArchived
	}
	if cdt.ArchivedAt.Valid && time.Since(cdt.ArchivedAt.Time) < svc.conf.CadetRetentionWindow {
		return ErrRetentionWindow
	}
	return svc.repo.DeleteCadet(ctx, id)
}
