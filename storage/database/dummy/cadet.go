package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
)

type cadetRepository struct {
	db *cadetTable
}

var _ cadet.Repository = (*cadetRepository)(nil) // interface compliance check

func NewCadetRepository(db *DB) cadet.Repository {
	return &cadetRepository{db: db.cadet}
}

func (repo *cadetRepository) query() []cadet.Cadet {
	cadets := make([]cadet.Cadet, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		cadets = append(cadets, *c)
	}
	sort.Slice(cadets, func(i, j int) bool { return cadets[i].LastName < cadets[j].LastName })
	return cadets
}

func (repo *cadetRepository) CheckStudentNumberUniqueness(_ context.Context, sn string, excluded ...cadet.Cadet) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cdt := range repo.db.table {
		if cdt.StudentNumber != sn {
			continue
		}
		var excl bool
		for _, e := range excluded {
			if e.ID == cdt.ID {
				excl = true
				break
			}
		}
		if !excl {
			return cadet.ErrStudentNumberExists
		}
	}
	return nil
}

func (repo *cadetRepository) CreateCadet(_ context.Context, cdt cadet.Cadet) (cadet.Cadet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cdt.ID = uuid.New().String()
	repo.db.table[cdt.ID] = &cdt
	return cdt, nil
}

func (repo *cadetRepository) GetCadetByID(_ context.Context, id string) (cadet.Cadet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if cdt, ok := repo.db.table[id]; ok {
		return *cdt, nil
	}
	return cadet.Cadet{}, cadet.ErrNotFound
}

func (repo *cadetRepository) GetCadetByStudentNumber(_ context.Context, sn string) (cadet.Cadet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cdt := range repo.db.table {
		if cdt.StudentNumber == sn {
			return *cdt, nil
		}
	}
	return cadet.Cadet{}, cadet.ErrNotFound
}

func (repo *cadetRepository) GetCadetByEmail(_ context.Context, email string) (cadet.Cadet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cdt := range repo.db.table {
		if cdt.Email == email {
			return *cdt, nil
		}
	}
	return cadet.Cadet{}, cadet.ErrNotFound
}

func (repo *cadetRepository) GetCadetByUsername(_ context.Context, username string) (cadet.Cadet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, cdt := range repo.db.table {
		if cdt.Username == username {
			return *cdt, nil
		}
	}
	return cadet.Cadet{}, cadet.ErrNotFound
}

func (repo *cadetRepository) FilterCadets(_ context.Context, filter cadet.QueryFilter, orderings ...core.DBOrdering) ([]cadet.Cadet, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var cadets []cadet.Cadet
	for _, cdt := range repo.query() {
		if cdt.IsArchived && !filter.IncludeArchived {
			continue
		}
		if filter.Company != "" && cdt.Company != filter.Company {
			continue
		}
		if filter.Platoon != "" && cdt.Platoon != filter.Platoon {
			continue
		}
		if filter.Course != "" && cdt.Course != filter.Course {
			continue
		}
		if search != "" {
			hay := strings.ToLower(cdt.StudentNumber + " " + cdt.FirstName + " " + cdt.LastName)
			if !strings.Contains(hay, search) {
				continue
			}
		}
		cadets = append(cadets, cdt)
	}
	applyOrderings(cadets, orderings)
	return cadets, nil
}

func applyOrderings(cadets []cadet.Cadet, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		return
	}
	field := func(cdt cadet.Cadet, name string) string {
		switch name {
		case "student_number":
			return cdt.StudentNumber
		case "first_name":
			return cdt.FirstName
		case "last_name":
			return cdt.LastName
		case "company":
			return cdt.Company
		case "platoon":
			return cdt.Platoon
		case "course":
			return cdt.Course
		}
		return ""
	}
	sort.SliceStable(cadets, func(i, j int) bool {
		for _, ord := range orderings {
			a, b := field(cadets[i], ord.Field), field(cadets[j], ord.Field)
			if a == b {
				continue
			}
			if ord.Ascending {
				return a < b
			}
			return a > b
		}
		return false
	})
}

func (repo *cadetRepository) UpdateCadet(_ context.Context, cdt cadet.Cadet) (cadet.Cadet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[cdt.ID]; !ok {
		return cadet.Cadet{}, cadet.ErrNotFound
	}
	repo.db.table[cdt.ID] = &cdt
	return cdt, nil
}

func (repo *cadetRepository) SetCadetArchived(_ context.Context, id string, archived bool, at time.Time) (cadet.Cadet, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cdt, ok := repo.db.table[id]
	if !ok {
		return cadet.Cadet{}, cadet.ErrNotFound
	}
	cdt.IsArchived = archived
	cdt.ArchivedAt = null.NewTime(at, archived)
	cdt.UpdatedAt = time.Now().UTC()
	return *cdt, nil
}

func (repo *cadetRepository) DeleteCadet(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return cadet.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
