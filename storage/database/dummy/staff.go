package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
)

type staffRepository struct {
	db *staffTable
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *DB) staff.Repository {
	return &staffRepository{db: db.staff}
}

func (repo *staffRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excluded ...staff.Staff) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	isExcluded := func(id string) bool {
		for _, e := range excluded {
			if e.ID == id {
				return true
			}
		}
		return false
	}
	for _, stf := range repo.db.table {
		if isExcluded(stf.ID) {
			continue
		}
		if stf.Username == username {
			return staff.ErrUsernameExists
		}
		if stf.Email == email {
			return staff.ErrEmailExists
		}
	}
	return nil
}

func (repo *staffRepository) CreateStaff(_ context.Context, stf staff.Staff) (staff.Staff, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stf.ID = uuid.New().String()
	repo.db.table[stf.ID] = &stf
	return stf, nil
}

func (repo *staffRepository) GetStaffByID(_ context.Context, id string) (staff.Staff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if stf, ok := repo.db.table[id]; ok {
		return *stf, nil
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) GetStaffByUsernameOrEmail(_ context.Context, username string) (staff.Staff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, stf := range repo.db.table {
		if stf.Username == username || stf.Email == username {
			return *stf, nil
		}
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) QueryAllStaff(_ context.Context) ([]staff.Staff, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := make([]staff.Staff, 0, len(repo.db.table))
	for _, stf := range repo.db.table {
		all = append(all, *stf)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Username < all[j].Username })
	return all, nil
}

func (repo *staffRepository) UpdateStaff(_ context.Context, stf staff.Staff) (staff.Staff, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[stf.ID]; !ok {
		return staff.Staff{}, staff.ErrNotFound
	}
	repo.db.table[stf.ID] = &stf
	return stf, nil
}
