package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"estekhdam/internal/cases/models"
	"estekhdam/internal/platform/postgres"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/platform/tx"
)

// PostgresStore persists hiring cases. The partial unique index
// uq_hiring_cases_open_national_id guarantees one open case per national ID.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const caseColumns = `id, candidate_user_id, COALESCE(created_by, 0), full_name, father_name, national_id,
	mobile, email, gender, marital_status, military_status, home_address, contract_type, org_position,
	degree, branch_manager_name, branch_manager_mobile, branch_manager_phone, branch_address,
	recruiter_phone, approved_salary_type, approved_salary_amount, status, current_step, version,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.HiringCase) error {
	if c.Status == "" {
		c.Status = models.StatusDraft
	}
	var createdBy sql.NullInt64
	if c.CreatedBy > 0 {
		createdBy = sql.NullInt64{Int64: int64(c.CreatedBy), Valid: true}
	}
	var salary sql.NullInt64
	if c.ApprovedSalaryAmount != nil {
		salary = sql.NullInt64{Int64: *c.ApprovedSalaryAmount, Valid: true}
	}
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO hiring_cases (candidate_user_id, created_by, full_name, father_name, national_id, mobile,
			email, gender, marital_status, military_status, home_address, contract_type, org_position, degree,
			branch_manager_name, branch_manager_mobile, branch_manager_phone, branch_address, recruiter_phone,
			approved_salary_type, approved_salary_amount, status, current_step)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id, version, created_at, updated_at`,
		int64(c.CandidateID), createdBy, c.FullName, c.FatherName, c.NationalID, c.Mobile,
		c.Email, c.Gender, c.MaritalStatus, c.MilitaryStatus, c.HomeAddress, c.ContractType, c.OrgPosition, c.Degree,
		c.BranchManagerName, c.BranchManagerMobile, c.BranchManagerPhone, c.BranchAddress, c.RecruiterPhone,
		c.ApprovedSalaryType, salary, string(c.Status), c.CurrentStep,
	).Scan(&c.ID, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.HiringCase, error) {
	var c models.HiringCase
	var status string
	var salary sql.NullInt64
	err := row.Scan(&c.ID, &c.CandidateID, &c.CreatedBy, &c.FullName, &c.FatherName, &c.NationalID,
		&c.Mobile, &c.Email, &c.Gender, &c.MaritalStatus, &c.MilitaryStatus, &c.HomeAddress, &c.ContractType,
		&c.OrgPosition, &c.Degree, &c.BranchManagerName, &c.BranchManagerMobile, &c.BranchManagerPhone,
		&c.BranchAddress, &c.RecruiterPhone, &c.ApprovedSalaryType, &salary, &status, &c.CurrentStep,
		&c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Status = models.Status(status)
	if salary.Valid {
		v := salary.Int64
		c.ApprovedSalaryAmount = &v
	}
	return &c, nil
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*models.HiringCase, error) {
	c, err := scanCase(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, caseID id.CaseID) (*models.HiringCase, error) {
	return s.findOne(ctx, `SELECT `+caseColumns+` FROM hiring_cases WHERE id = $1`, int64(caseID))
}

func (s *PostgresStore) FindOpenByNationalID(ctx context.Context, nationalID string) (*models.HiringCase, error) {
	return s.findOne(ctx, `SELECT `+caseColumns+` FROM hiring_cases
		WHERE national_id = $1 AND status <> 'closed' LIMIT 1`, nationalID)
}

func (s *PostgresStore) LatestForCandidate(ctx context.Context, userID id.UserID) (*models.HiringCase, error) {
	return s.findOne(ctx, `SELECT `+caseColumns+` FROM hiring_cases
		WHERE candidate_user_id = $1 ORDER BY id DESC LIMIT 1`, int64(userID))
}

// foldedName applies textnorm.Letters to full_name so rows stored before names
// were folded still match.
const foldedName = "translate(full_name, '\u064a\u0643\u200c', '\u06cc\u06a9 ')"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *PostgresStore) List(ctx context.Context, filter models.Filter) ([]models.HiringCase, error) {
	var where []string
	var args []any
	if filter.Query != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Query)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(%s ILIKE $%d OR national_id ILIKE $%d OR mobile ILIKE $%d)", foldedName, n, n, n))
	}
	if filter.IDs != nil {
		ids := make([]int64, len(filter.IDs))
		for i, v := range filter.IDs {
			ids[i] = int64(v)
		}
		args = append(args, pq.Array(ids))
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	query := `SELECT ` + caseColumns + ` FROM hiring_cases`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []models.HiringCase
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, caseID id.CaseID, fromVersion int, status models.Status, step string, at time.Time) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE hiring_cases SET status = $3, current_step = $4, version = version + 1, updated_at = $5
		WHERE id = $1 AND version = $2`, int64(caseID), fromVersion, string(status), step, at)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update case status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	// Distinguish a missing row from a stale version.
	if _, err := s.FindByID(ctx, caseID); err != nil {
		return err
	}
	return sentinel.ErrConflict
}

func (s *PostgresStore) Delete(ctx context.Context, caseID id.CaseID) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM hiring_cases WHERE id = $1`, int64(caseID))
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("delete case: %w", sentinel.ErrInvalidState)
		}
		return fmt.Errorf("delete case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
