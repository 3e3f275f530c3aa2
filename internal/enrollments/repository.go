package enrollments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("enrollment not found")

// Repository define a interface para operações de banco de dados de matrículas
type Repository interface {
	// InsertIfAbsent cria a matrícula; retorna false se o par aluno/produto já existia
	InsertIfAbsent(ctx context.Context, enrollment *Enrollment) (bool, error)

	// Find busca a matrícula do par aluno/produto
	Find(ctx context.Context, studentID, productID string) (*Enrollment, error)

	// Exists verifica se o aluno já tem acesso ao produto
	Exists(ctx context.Context, studentID, productID string) (bool, error)

	// ListByStudent lista as matrículas do aluno, mais recentes primeiro
	ListByStudent(ctx context.Context, studentID string) ([]EnrollmentWithProduct, error)

	// CountLessons conta as aulas do produto
	CountLessons(ctx context.Context, productID string) (int, error)

	// IncrementProgress soma step ao progresso, limitado a 100, em um único UPDATE
	IncrementProgress(ctx context.Context, studentID, productID string, step float64) (*Enrollment, error)

	// Delete remove a matrícula, revogando o acesso
	Delete(ctx context.Context, studentID, productID string) error

	// WelcomeDetails busca nome e e-mail do aluno e o título do produto
	WelcomeDetails(ctx context.Context, studentID, productID string) (*WelcomeDetails, error)
}

// EnrollmentRepository implementa Repository usando PostgreSQL
type EnrollmentRepository struct {
	db *pgxpool.Pool
}

// NewEnrollmentRepository cria uma nova instância de EnrollmentRepository
func NewEnrollmentRepository(db *pgxpool.Pool) Repository {
	return &EnrollmentRepository{
		db: db,
	}
}

// InsertIfAbsent cria a matrícula; retorna false se o par aluno/produto já existia
func (r *EnrollmentRepository) InsertIfAbsent(ctx context.Context, e *Enrollment) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO enrollments (id, student_id, product_id, progress, enrolled_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (student_id, product_id) DO NOTHING
	`, e.ID, e.StudentID, e.ProductID, e.Progress, e.EnrolledAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Find busca a matrícula do par aluno/produto
func (r *EnrollmentRepository) Find(ctx context.Context, studentID, productID string) (*Enrollment, error) {
	var e Enrollment
	err := r.db.QueryRow(ctx, `
		SELECT id, student_id, product_id, progress, enrolled_at
		FROM enrollments WHERE student_id = $1 AND product_id = $2
	`, studentID, productID).Scan(&e.ID, &e.StudentID, &e.ProductID, &e.Progress, &e.EnrolledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Exists verifica se o aluno já tem acesso ao produto
func (r *EnrollmentRepository) Exists(ctx context.Context, studentID, productID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM enrollments WHERE student_id = $1 AND product_id = $2)",
		studentID, productID,
	).Scan(&exists)
	return exists, err
}

// ListByStudent lista as matrículas do aluno, mais recentes primeiro
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]EnrollmentWithProduct, error) {
	rows, err := r.db.Query(ctx, `
		SELECT e.id, e.student_id, e.product_id, e.progress, e.enrolled_at,
			p.id, p.title, p.slug, p.cover_url, p.type,
			(SELECT COUNT(*) FROM lessons l WHERE l.product_id = p.id)
		FROM enrollments e
		JOIN products p ON p.id = e.product_id
		WHERE e.student_id = $1
		ORDER BY e.enrolled_at DESC
	`, studentID)
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (EnrollmentWithProduct, error) {
		var e EnrollmentWithProduct
		err := row.Scan(
			&e.ID, &e.StudentID, &e.ProductID, &e.Progress, &e.EnrolledAt,
			&e.Product.ID, &e.Product.Title, &e.Product.Slug, &e.Product.CoverURL, &e.Product.Type,
			&e.Product.LessonCount,
		)
		return e, err
	})
}

// CountLessons conta as aulas do produto
func (r *EnrollmentRepository) CountLessons(ctx context.Context, productID string) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM lessons WHERE product_id = $1", productID).Scan(&total)
	return total, err
}

// IncrementProgress soma step ao progresso, limitado a 100, em um único UPDATE
func (r *EnrollmentRepository) IncrementProgress(ctx context.Context, studentID, productID string, step float64) (*Enrollment, error) {
	var e Enrollment
	err := r.db.QueryRow(ctx, `
		UPDATE enrollments
		SET progress = LEAST(progress + $3, $4)
		WHERE student_id = $1 AND product_id = $2
		RETURNING id, student_id, product_id, progress, enrolled_at
	`, studentID, productID, step, MaxProgress).Scan(&e.ID, &e.StudentID, &e.ProductID, &e.Progress, &e.EnrolledAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Delete remove a matrícula, revogando o acesso
func (r *EnrollmentRepository) Delete(ctx context.Context, studentID, productID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM enrollments WHERE student_id = $1 AND product_id = $2", studentID, productID)
	return err
}

// WelcomeDetails busca nome e e-mail do aluno e o título do produto
func (r *EnrollmentRepository) WelcomeDetails(ctx context.Context, studentID, productID string) (*WelcomeDetails, error) {
	var d WelcomeDetails
	err := r.db.QueryRow(ctx, `
		SELECT u.name, u.email, p.title
		FROM users u, products p
		WHERE u.id = $1 AND p.id = $2
	`, studentID, productID).Scan(&d.StudentName, &d.StudentEmail, &d.ProductTitle)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}
