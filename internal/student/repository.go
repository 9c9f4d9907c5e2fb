// AngelaMos | 2026
// repository.go

package student

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carterperez-dev/studentshelf/internal/core"
)

type Repository interface {
	Create(ctx context.Context, s *Student) error
	GetByID(ctx context.Context, id string) (*Student, error)
	GetByEmail(ctx context.Context, email string) (*Student, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context, params ListParams) ([]Student, int, error)
	Review(ctx context.Context, id string, to Status, adminID, notes string) (bool, error)
	Extend(ctx context.Context, id string, by time.Duration) (bool, error)
	MarkGraduated(ctx context.Context, id string) (bool, error)
	MarkConverted(ctx context.Context, id string) (bool, error)
	LinkConvertedUser(ctx context.Context, id, userID string) error
	DueForConversion(ctx context.Context, now time.Time) ([]string, error)
	CountByStatus(ctx context.Context) (*StatusCounts, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const studentColumns = `
	id, email, name, password_hash, university, student_number,
	document_ref, document_type, verification_status, admin_notes,
	reviewed_by, reviewed_at, is_converted, converted_user_id, converted_at,
	admin_extension_count, conversion_scheduled_for, graduation_completed,
	graduated_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, s *Student) error {
	query := `
		INSERT INTO students (
			id, email, name, password_hash, university, student_number,
			document_ref, document_type, verification_status, conversion_scheduled_for
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, s, query,
		s.ID,
		s.Email,
		s.Name,
		s.PasswordHash,
		s.University,
		s.StudentNumber,
		s.DocumentRef,
		s.DocumentType,
		s.VerificationStatus,
		s.ConversionScheduledFor,
	)
	if err != nil {
		if core.IsUniqueViolation(err) {
			return fmt.Errorf("create student: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create student: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Student, error) {
	return r.getOne(ctx, "get student", `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*Student, error) {
	return r.getOne(ctx, "get student by email", `SELECT `+studentColumns+` FROM students WHERE email = $1`, email)
}

func (r *repository) getOne(ctx context.Context, op, query string, arg any) (*Student, error) {
	var s Student
	err := r.db.GetContext(ctx, &s, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

func (r *repository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM students WHERE email = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, email); err != nil {
		return false, fmt.Errorf("check student email: %w", err)
	}
	return exists, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Student, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("verification_status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.Converted != nil {
		conditions = append(conditions, fmt.Sprintf("is_converted = $%d", argIdx))
		args = append(args, *params.Converted)
		argIdx++
	}

	whereClause := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM students WHERE " + whereClause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM students
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		studentColumns, whereClause, argIdx, argIdx+1)

	args = append(args, params.PageSize, params.Offset())

	var out []Student
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	return out, total, nil
}

// Review decides a pending record. It reports whether this call made the
// change.
func (r *repository) Review(
	ctx context.Context,
	id string,
	to Status,
	adminID, notes string,
) (bool, error) {
	query := `
		UPDATE students
		SET verification_status = $2,
		    reviewed_by = $3,
		    admin_notes = NULLIF($4, ''),
		    reviewed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND verification_status = 'pending' AND is_converted = FALSE`

	rows, err := core.ExecAffected(ctx, r.db, query, id, to, adminID, notes)
	if err != nil {
		return false, fmt.Errorf("review student: %w", err)
	}
	return rows == 1, nil
}

func (r *repository) Extend(ctx context.Context, id string, by time.Duration) (bool, error) {
	query := `
		UPDATE students
		SET admin_extension_count = admin_extension_count + 1,
		    conversion_scheduled_for = conversion_scheduled_for + make_interval(secs => $2),
		    updated_at = NOW()
		WHERE id = $1 AND verification_status = 'approved' AND is_converted = FALSE`

	rows, err := core.ExecAffected(ctx, r.db, query, id, by.Seconds())
	if err != nil {
		return false, fmt.Errorf("extend student: %w", err)
	}
	return rows == 1, nil
}

func (r *repository) MarkGraduated(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE students
		SET verification_status = 'graduated',
		    graduation_completed = TRUE,
		    graduated_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND verification_status = 'approved' AND is_converted = FALSE`

	rows, err := core.ExecAffected(ctx, r.db, query, id)
	if err != nil {
		return false, fmt.Errorf("graduate student: %w", err)
	}
	return rows == 1, nil
}

// MarkConverted claims the record for conversion. Exactly one caller ever
// sees true for a given id.
func (r *repository) MarkConverted(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE students
		SET is_converted = TRUE,
		    converted_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		  AND is_converted = FALSE
		  AND verification_status IN ('approved', 'graduated')`

	rows, err := core.ExecAffected(ctx, r.db, query, id)
	if err != nil {
		return false, fmt.Errorf("convert student: %w", err)
	}
	return rows == 1, nil
}

func (r *repository) LinkConvertedUser(ctx context.Context, id, userID string) error {
	query := `
		UPDATE students
		SET converted_user_id = $2, updated_at = NOW()
		WHERE id = $1 AND is_converted = TRUE`

	rows, err := core.ExecAffected(ctx, r.db, query, id, userID)
	if err != nil {
		return fmt.Errorf("link converted user: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("link converted user: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) DueForConversion(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		SELECT id
		FROM students
		WHERE is_converted = FALSE
		  AND verification_status IN ('approved', 'graduated')
		  AND (graduation_completed OR conversion_scheduled_for <= $1)
		ORDER BY conversion_scheduled_for`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, now); err != nil {
		return nil, fmt.Errorf("due for conversion: %w", err)
	}
	return ids, nil
}

func (r *repository) CountByStatus(ctx context.Context) (*StatusCounts, error) {
	query := `
		SELECT verification_status AS status,
		       COUNT(*) AS n,
		       COUNT(*) FILTER (WHERE is_converted) AS converted
		FROM students
		GROUP BY verification_status`

	var rows []struct {
		Status    Status `db:"status"`
		N         int    `db:"n"`
		Converted int    `db:"converted"`
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("count students by status: %w", err)
	}

	out := &StatusCounts{ByStatus: make(map[Status]int, len(rows))}
	for _, row := range rows {
		out.ByStatus[row.Status] = row.N
		out.Converted += row.Converted
	}
	return out, nil
}
