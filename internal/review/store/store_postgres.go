package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"estekhdam/internal/review/models"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/platform/tx"
)

// PostgresStore persists documents, video submissions and physical
// checklists. A NULL verdict column maps to the empty Verdict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullUser(v id.UserID) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v > 0}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

func affectedOne(res sql.Result, err error, what string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
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

const documentColumns = `id, case_id, type, file_path, mime, size_bytes, checksum, verify_status,
	reject_code, reject_reason, COALESCE(max_size_hint, 0), uploaded_at, reviewed_by, reviewed_at`

func scanDocument(row rowScanner) (*models.Document, error) {
	var d models.Document
	var status, code, reason sql.NullString
	var reviewer sql.NullInt64
	if err := row.Scan(&d.ID, &d.CaseID, &d.Type, &d.FilePath, &d.Mime, &d.SizeBytes, &d.Checksum,
		&status, &code, &reason, &d.MaxSizeHint, &d.UploadedAt, &reviewer, &d.ReviewedAt); err != nil {
		return nil, err
	}
	d.VerifyStatus = models.Verdict(status.String)
	d.RejectCode = models.RejectCode(code.String)
	d.RejectReason = reason.String
	d.ReviewedBy = id.UserID(reviewer.Int64)
	return &d, nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, d *models.Document) error {
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO documents (case_id, type, file_path, mime, size_bytes, checksum, verify_status, max_size_hint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, uploaded_at`,
		int64(d.CaseID), d.Type, d.FilePath, d.Mime, d.SizeBytes, d.Checksum,
		nullString(string(d.VerifyStatus)), sql.NullInt32{Int32: int32(d.MaxSizeHint), Valid: d.MaxSizeHint > 0},
	).Scan(&d.ID, &d.UploadedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindDocument(ctx context.Context, docID id.DocumentID) (*models.Document, error) {
	d, err := scanDocument(tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, int64(docID)))
	if err != nil {
		return nil, notFound(err, "find document")
	}
	return d, nil
}

func (s *PostgresStore) ListDocumentsByCase(ctx context.Context, caseID id.CaseID) ([]models.Document, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE case_id = $1 ORDER BY id`, int64(caseID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DocumentCounts(ctx context.Context) (map[id.CaseID]int, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx,
		`SELECT case_id, COUNT(*) FROM documents GROUP BY case_id`)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	defer rows.Close()
	out := make(map[id.CaseID]int)
	for rows.Next() {
		var caseID id.CaseID
		var n int
		if err := rows.Scan(&caseID, &n); err != nil {
			return nil, fmt.Errorf("scan document count: %w", err)
		}
		out[caseID] = n
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateDocumentVerdict(ctx context.Context, d *models.Document) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE documents SET verify_status = $2, reject_code = $3, reject_reason = $4,
			reviewed_by = $5, reviewed_at = $6
		WHERE id = $1`,
		int64(d.ID), nullString(string(d.VerifyStatus)), nullString(string(d.RejectCode)),
		nullString(d.RejectReason), nullUser(d.ReviewedBy), d.ReviewedAt)
	return affectedOne(res, err, "update document verdict")
}

const videoColumns = `id, case_id, file_path, COALESCE(duration_sec, 0), submitted_at, review_status,
	reject_code, reject_reason, reviewed_by, reviewed_at`

func scanVideo(row rowScanner) (*models.VideoKYC, error) {
	var v models.VideoKYC
	var status, code, reason sql.NullString
	var reviewer sql.NullInt64
	if err := row.Scan(&v.ID, &v.CaseID, &v.FilePath, &v.DurationSec, &v.SubmittedAt,
		&status, &code, &reason, &reviewer, &v.ReviewedAt); err != nil {
		return nil, err
	}
	v.ReviewStatus = models.Verdict(status.String)
	v.RejectCode = models.RejectCode(code.String)
	v.RejectReason = reason.String
	v.ReviewedBy = id.UserID(reviewer.Int64)
	return &v, nil
}

func (s *PostgresStore) listVideos(ctx context.Context, query string, args ...any) ([]models.VideoKYC, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()
	var out []models.VideoKYC
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateVideo(ctx context.Context, v *models.VideoKYC) error {
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO video_kyc (case_id, file_path, duration_sec, review_status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, submitted_at`,
		int64(v.CaseID), v.FilePath, sql.NullInt32{Int32: int32(v.DurationSec), Valid: v.DurationSec > 0},
		nullString(string(v.ReviewStatus)),
	).Scan(&v.ID, &v.SubmittedAt)
	if err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindVideo(ctx context.Context, videoID id.VideoID) (*models.VideoKYC, error) {
	v, err := scanVideo(tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+videoColumns+` FROM video_kyc WHERE id = $1`, int64(videoID)))
	if err != nil {
		return nil, notFound(err, "find video")
	}
	return v, nil
}

func (s *PostgresStore) ListVideos(ctx context.Context) ([]models.VideoKYC, error) {
	return s.listVideos(ctx, `SELECT `+videoColumns+` FROM video_kyc ORDER BY submitted_at DESC, id DESC`)
}

func (s *PostgresStore) ListVideosByCase(ctx context.Context, caseID id.CaseID) ([]models.VideoKYC, error) {
	return s.listVideos(ctx, `SELECT `+videoColumns+` FROM video_kyc WHERE case_id = $1 ORDER BY id`, int64(caseID))
}

func (s *PostgresStore) UpdateVideoVerdict(ctx context.Context, v *models.VideoKYC) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE video_kyc SET review_status = $2, reject_code = $3, reject_reason = $4,
			reviewed_by = $5, reviewed_at = $6
		WHERE id = $1`,
		int64(v.ID), nullString(string(v.ReviewStatus)), nullString(string(v.RejectCode)),
		nullString(v.RejectReason), nullUser(v.ReviewedBy), v.ReviewedAt)
	return affectedOne(res, err, "update video verdict")
}

const physicalColumns = `id, case_id, tracking_code, candidate_marked_delivered_at, recruiter_verdict,
	verdict_at, verdict_reason`

func scanPhysical(row rowScanner) (*models.PhysicalChecklist, error) {
	var p models.PhysicalChecklist
	var verdict, reason sql.NullString
	if err := row.Scan(&p.ID, &p.CaseID, &p.TrackingCode, &p.DeliveredAt, &verdict, &p.VerdictAt, &reason); err != nil {
		return nil, err
	}
	p.Verdict = models.Verdict(verdict.String)
	p.VerdictReason = reason.String
	return &p, nil
}

func (s *PostgresStore) listPhysical(ctx context.Context, query string, args ...any) ([]models.PhysicalChecklist, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list physical checklists: %w", err)
	}
	defer rows.Close()
	var out []models.PhysicalChecklist
	for rows.Next() {
		p, err := scanPhysical(rows)
		if err != nil {
			return nil, fmt.Errorf("scan physical checklist: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreatePhysical(ctx context.Context, p *models.PhysicalChecklist) error {
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO physical_checklists (case_id, tracking_code, candidate_marked_delivered_at,
			recruiter_verdict, verdict_at, verdict_reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		int64(p.CaseID), p.TrackingCode, p.DeliveredAt, nullString(string(p.Verdict)), p.VerdictAt,
		nullString(p.VerdictReason),
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create physical checklist: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindPhysical(ctx context.Context, checklistID id.ChecklistID) (*models.PhysicalChecklist, error) {
	p, err := scanPhysical(tx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+physicalColumns+` FROM physical_checklists WHERE id = $1`, int64(checklistID)))
	if err != nil {
		return nil, notFound(err, "find physical checklist")
	}
	return p, nil
}

func (s *PostgresStore) ListPhysical(ctx context.Context) ([]models.PhysicalChecklist, error) {
	return s.listPhysical(ctx, `SELECT `+physicalColumns+` FROM physical_checklists ORDER BY id DESC`)
}

func (s *PostgresStore) ListPhysicalByCase(ctx context.Context, caseID id.CaseID) ([]models.PhysicalChecklist, error) {
	return s.listPhysical(ctx, `SELECT `+physicalColumns+` FROM physical_checklists WHERE case_id = $1 ORDER BY id`, int64(caseID))
}

func (s *PostgresStore) UpdatePhysical(ctx context.Context, p *models.PhysicalChecklist) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE physical_checklists SET tracking_code = $2, candidate_marked_delivered_at = $3,
			recruiter_verdict = $4, verdict_at = $5, verdict_reason = $6
		WHERE id = $1`,
		int64(p.ID), p.TrackingCode, p.DeliveredAt, nullString(string(p.Verdict)), p.VerdictAt,
		nullString(p.VerdictReason))
	return affectedOne(res, err, "update physical checklist")
}

func (s *PostgresStore) rollup(ctx context.Context, query string) (models.Rollup, error) {
	var r models.Rollup
	if err := tx.Exec(ctx, s.db).QueryRowContext(ctx, query).Scan(&r.Total, &r.Pending); err != nil {
		return models.Rollup{}, fmt.Errorf("rollup: %w", err)
	}
	return r, nil
}

// DocumentRollup counts distinct cases rather than files.
func (s *PostgresStore) DocumentRollup(ctx context.Context) (models.Rollup, error) {
	return s.rollup(ctx, `SELECT COUNT(DISTINCT case_id),
		COUNT(DISTINCT case_id) FILTER (WHERE verify_status IS NULL OR verify_status = 'pending')
		FROM documents`)
}

func (s *PostgresStore) VideoRollup(ctx context.Context) (models.Rollup, error) {
	return s.rollup(ctx, `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE review_status IS NULL OR review_status = 'pending')
		FROM video_kyc`)
}

func (s *PostgresStore) PhysicalRollup(ctx context.Context) (models.Rollup, error) {
	return s.rollup(ctx, `SELECT COUNT(*),
		COUNT(*) FILTER (WHERE recruiter_verdict IS NULL OR recruiter_verdict = 'incomplete')
		FROM physical_checklists`)
}

func (s *PostgresStore) Presence(ctx context.Context, caseIDs []id.CaseID) (map[id.CaseID]models.Presence, error) {
	out := make(map[id.CaseID]models.Presence)
	if len(caseIDs) == 0 {
		return out, nil
	}
	ids := make([]int64, len(caseIDs))
	for i, c := range caseIDs {
		ids[i] = int64(c)
	}
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `
		SELECT c.id,
			(SELECT COUNT(*) FROM documents d WHERE d.case_id = c.id),
			(SELECT COUNT(*) FROM video_kyc v WHERE v.case_id = c.id),
			(SELECT COUNT(*) FROM physical_checklists p WHERE p.case_id = c.id)
		FROM unnest($1::bigint[]) AS c(id)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("review presence: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var caseID id.CaseID
		var p models.Presence
		if err := rows.Scan(&caseID, &p.Documents, &p.Videos, &p.Physical); err != nil {
			return nil, fmt.Errorf("scan presence: %w", err)
		}
		if p != (models.Presence{}) {
			out[caseID] = p
		}
	}
	return out, rows.Err()
}

// DeleteByCase removes the case's review rows and returns the file paths
// they referenced. Callers run it inside the transaction that deletes the case.
func (s *PostgresStore) DeleteByCase(ctx context.Context, caseID id.CaseID) ([]string, error) {
	exec := tx.Exec(ctx, s.db)
	var paths []string
	for _, table := range []string{"documents", "video_kyc"} {
		rows, err := exec.QueryContext(ctx, `DELETE FROM `+table+` WHERE case_id = $1 RETURNING file_path`, int64(caseID))
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", table, err)
		}
		for rows.Next() {
			var p string
			if err := rows.Scan(&p); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan %s path: %w", table, err)
			}
			paths = append(paths, p)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("delete %s: %w", table, err)
		}
		rows.Close()
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM physical_checklists WHERE case_id = $1`, int64(caseID)); err != nil {
		return nil, fmt.Errorf("delete physical checklists: %w", err)
	}
	return paths, nil
}
