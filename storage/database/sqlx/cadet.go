package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core/cadet"
)

// uniqueViolation is the postgres error code for unique constraint violations.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	return false
}

type cadetRow struct {
	ID            string    `db:"id"`
	StudentNumber string    `db:"student_number"`
	FirstName     string    `db:"first_name"`
	LastName      string    `db:"last_name"`
	Email         string    `db:"email"`
	Username      string    `db:"username"`
	Company       string    `db:"company"`
	Platoon       string    `db:"platoon"`
	Course        string    `db:"course"`
	IsArchived    bool      `db:"is_archived"`
	ArchivedAt    null.Time `db:"archived_at"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r cadetRow) unpack() cadet.Cadet {
	return cadet.Cadet{
		ID:            r.ID,
		StudentNumber: r.StudentNumber,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Username:      r.Username,
		Company:       r.Company,
		Platoon:       r.Platoon,
		Course:        r.Course,
		IsArchived:    r.IsArchived,
		ArchivedAt:    r.ArchivedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type cadetRepository struct {
	db *sqlx.DB
}

var _ cadet.Repository = (*cadetRepository)(nil) // interface compliance check

func NewCadetRepository(db *sqlx.DB) cadet.Repository {
	return &cadetRepository{db: db}
}

// trapNoRowsErr maps sql "no rows" to cadet.ErrNotFound
func (repo *cadetRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return cadet.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *cadetRepository) CheckStudentNumberUniqueness(ctx context.Context, sn string, excluded ...cadet.Cadet) error {
	query := `SELECT EXISTS (SELECT 1 FROM cadets WHERE student_number = $1`
	args := []interface{}{sn}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, c := range excluded {
			ids = append(ids, c.ID)
		}
		query += ` AND id <> ALL($2)`
		args = append(args, pq.Array(ids))
	}
	query += `)`

	var exists bool
	if err := repo.db.GetContext(ctx, &exists, query, args...); err != nil {
		return errors.Wrap(err, "checking student number uniqueness")
	}
	if exists {
		return cadet.ErrStudentNumberExists
	}
	return nil
}

func (repo *cadetRepository) CreateCadet(ctx context.Context, cdt cadet.Cadet) (cadet.Cadet, error) {
	cdt.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO cadets (id, student_number, first_name, last_name, email, username, company, platoon, course, is_archived, archived_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		cdt.ID, cdt.StudentNumber, cdt.FirstName, cdt.LastName, cdt.Email, cdt.Username,
		cdt.Company, cdt.Platoon, cdt.Course, cdt.IsArchived, cdt.ArchivedAt, cdt.CreatedAt, cdt.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return cadet.Cadet{}, cadet.ErrStudentNumberExists
		}
		return cadet.Cadet{}, errors.Wrap(err, "inserting cadet")
	}
	return cdt, nil
}

func (repo *cadetRepository) getBy(ctx context.Context, field, value, msg string) (cadet.Cadet, error) {
	var row cadetRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM cadets WHERE `+field+` = $1`, value)
	if err != nil {
		return cadet.Cadet{}, repo.trapNoRowsErr(err, msg)
	}
	return row.unpack(), nil
}

func (repo *cadetRepository) GetCadetByID(ctx context.Context, id string) (cadet.Cadet, error) {
	return repo.getBy(ctx, "id", id, "getting cadet by id")
}

func (repo *cadetRepository) GetCadetByStudentNumber(ctx context.Context, sn string) (cadet.Cadet, error) {
	return repo.getBy(ctx, "student_number", sn, "getting cadet by student number")
}

func (repo *cadetRepository) GetCadetByEmail(ctx context.Context, email string) (cadet.Cadet, error) {
	return repo.getBy(ctx, "email", email, "getting cadet by email")
}

func (repo *cadetRepository) GetCadetByUsername(ctx context.Context, username string) (cadet.Cadet, error) {
	return repo.getBy(ctx, "username", username, "getting cadet by username")
}

// cadetOrderingFields are the columns clients may order by.
var cadetOrderingFields = map[string]bool{
	"student_number": true,
	"first_name":     true,
	"last_name":      true,
	"company":        true,
	"platoon":        true,
	"course":         true,
	"created_at":     true,
}

func (repo *cadetRepository) FilterCadets(ctx context.Context, filter cadet.QueryFilter, orderings ...core.DBOrdering) ([]cadet.Cadet, error) {
	query := `SELECT * FROM cadets WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if !filter.IncludeArchived {
		query += ` AND is_archived = FALSE`
	}
	if filter.Company != "" {
		query += ` AND company = ` + arg(filter.Company)
	}
	if filter.Platoon != "" {
		query += ` AND platoon = ` + arg(filter.Platoon)
	}
	if filter.Course != "" {
		query += ` AND course = ` + arg(filter.Course)
	}
	if filter.Search != "" {
		p := arg("%" + filter.Search + "%")
		query += ` AND (student_number ILIKE ` + p + ` OR first_name ILIKE ` + p + ` OR last_name ILIKE ` + p + `)`
	}
	orderBy := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if cadetOrderingFields[ord.Field] {
			orderBy = append(orderBy, ord.String())
		}
	}
	if len(orderBy) == 0 {
		orderBy = []string{"last_name ASC", "first_name ASC"}
	}
	query += ` ORDER BY ` + strings.Join(orderBy, ", ")

	var rows []cadetRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering cadets")
	}
	cadets := make([]cadet.Cadet, 0, len(rows))
	for _, row := range rows {
		cadets = append(cadets, row.unpack())
	}
	return cadets, nil
}

func (repo *cadetRepository) UpdateCadet(ctx context.Context, cdt cadet.Cadet) (cadet.Cadet, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE cadets
		SET student_number = $2, first_name = $3, last_name = $4, email = $5, username = $6,
		    company = $7, platoon = $8, course = $9, updated_at = $10
		WHERE id = $1`,
		cdt.ID, cdt.StudentNumber, cdt.FirstName, cdt.LastName, cdt.Email, cdt.Username,
		cdt.Company, cdt.Platoon, cdt.Course, cdt.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return cadet.Cadet{}, cadet.ErrStudentNumberExists
		}
		return cadet.Cadet{}, errors.Wrap(err, "updating cadet")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cadet.Cadet{}, cadet.ErrNotFound
	}
	return cdt, nil
}

func (repo *cadetRepository) SetCadetArchived(ctx context.Context, id string, archived bool, at time.Time) (cadet.Cadet, error) {
	archivedAt := null.NewTime(at, archived)
	_, err := repo.db.ExecContext(ctx, `
		UPDATE cadets SET is_archived = $2, archived_at = $3, updated_at = $4 WHERE id = $1`,
		id, archived, archivedAt, time.Now().UTC(),
	)
	if err != nil {
		return cadet.Cadet{}, errors.Wrap(err, "archiving cadet")
	}
	return repo.GetCadetByID(ctx, id)
}

// DeleteCadet hard-deletes the cadet; grades, ledger entries and
// attendance rows go with it via ON DELETE CASCADE.
func (repo *cadetRepository) DeleteCadet(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM cadets WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting cadet")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return cadet.ErrNotFound
	}
	return nil
}
