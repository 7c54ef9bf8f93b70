package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/staff"
)

type staffRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Rank         string    `db:"rank"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	IsActive     bool      `db:"is_active"`
	IsAdmin      bool      `db:"is_admin"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    time.Time `db:"last_login"`
}

func (r staffRow) unpack() staff.Staff {
	return staff.Staff{
		ID:           r.ID,
		Name:         r.Name,
		Rank:         r.Rank,
		Username:     r.Username,
		Email:        r.Email,
		IsActive:     r.IsActive,
		IsAdmin:      r.IsAdmin,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		LastLogin:    r.LastLogin,
	}
}

type staffRepository struct {
	db *sqlx.DB
}

func NewStaffRepository(db *sqlx.DB) staff.Repository {
	return &staffRepository{db: db}
}

func (repo *staffRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excluded ...staff.Staff) error {
	query := `SELECT username, email FROM staff WHERE (username = $1 OR email = $2)`
	args := []interface{}{username, email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, s := range excluded {
			ids = append(ids, s.ID)
		}
		query += ` AND id <> ALL($3)`
		args = append(args, pq.Array(ids))
	}
	query += ` LIMIT 1`

	var row staffRow
	err := repo.db.GetContext(ctx, &row, query, args...)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "checking staff uniqueness")
	}
	if row.Username == username {
		return staff.ErrUsernameExists
	}
	return staff.ErrEmailExists
}

func (repo *staffRepository) CreateStaff(ctx context.Context, stf staff.Staff) (staff.Staff, error) {
	stf.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO staff (id, name, rank, username, email, is_active, is_admin, password_hash, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		stf.ID, stf.Name, stf.Rank, stf.Username, stf.Email, stf.IsActive, stf.IsAdmin,
		stf.PasswordHash, stf.CreatedAt, stf.UpdatedAt, stf.LastLogin,
	)
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "inserting staff")
	}
	return stf, nil
}

func (repo *staffRepository) GetStaffByID(ctx context.Context, id string) (staff.Staff, error) {
	var row staffRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM staff WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, errors.Wrap(err, "getting staff by id")
	}
	return row.unpack(), nil
}

func (repo *staffRepository) GetStaffByUsernameOrEmail(ctx context.Context, username string) (staff.Staff, error) {
	var row staffRow
	err := repo.db.GetContext(ctx, &row,
		`SELECT * FROM staff WHERE username = $1 OR email = $1`, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return staff.Staff{}, staff.ErrNotFound
		}
		return staff.Staff{}, errors.Wrap(err, "getting staff by username or email")
	}
	return row.unpack(), nil
}

func (repo *staffRepository) QueryAllStaff(ctx context.Context) ([]staff.Staff, error) {
	var rows []staffRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM staff ORDER BY username`); err != nil {
		return nil, errors.Wrap(err, "querying staff")
	}
	all := make([]staff.Staff, 0, len(rows))
	for _, row := range rows {
		all = append(all, row.unpack())
	}
	return all, nil
}

func (repo *staffRepository) UpdateStaff(ctx context.Context, stf staff.Staff) (staff.Staff, error) {
	stf.UpdatedAt = time.Now().UTC()
	res, err := repo.db.ExecContext(ctx, `
		UPDATE staff
		SET name = $2, rank = $3, username = $4, email = $5, is_active = $6, is_admin = $7,
		    password_hash = $8, updated_at = $9, last_login = $10
		WHERE id = $1`,
		stf.ID, stf.Name, stf.Rank, stf.Username, stf.Email, stf.IsActive, stf.IsAdmin,
		stf.PasswordHash, stf.UpdatedAt, stf.LastLogin,
	)
	if err != nil {
		return staff.Staff{}, errors.Wrap(err, "updating staff")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return staff.Staff{}, staff.ErrNotFound
	}
	return stf, nil
}
