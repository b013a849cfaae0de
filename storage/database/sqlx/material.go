package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/course"
)

type materialRow struct {
	ID         string `db:"id"`
	CourseID   string `db:"course_id"`
	Name       string `db:"name"`
	FilePath   string `db:"file_path"`
	UploadedAt int64  `db:"uploaded_at"`
}

type materialRepository struct {
	baseRepository
}

var _ course.MaterialRepository = (*materialRepository)(nil) // interface compliance check

func NewMaterialRepository(exec core.DBExecutor) *materialRepository {
	return &materialRepository{baseRepository{exec: exec}}
}

func (repo materialRepository) CreateMaterial(ctx context.Context, m course.Material, exec ...core.DBExecutor) (course.Material, error) {
	_, err := repo.getExec(exec).ExecContext(ctx,
		"INSERT INTO materials (id, course_id, name, file_path, uploaded_at) VALUES (?, ?, ?, ?, ?)",
		m.ID, m.CourseID, m.Name, m.FilePath, toUnix(m.UploadedAt),
	)
	if err != nil {
		return course.Material{}, errors.Wrap(err, "inserting material")
	}
	m.UploadedAt = fromUnix(toUnix(m.UploadedAt))
	return m, nil
}

func (repo materialRepository) QueryMaterials(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]course.Material, error) {
	var rows []materialRow
	err := repo.getExec(exec).SelectContext(ctx, &rows, `
		SELECT id, course_id, name, file_path, uploaded_at FROM materials
		WHERE course_id = ? ORDER BY uploaded_at, rowid`, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "selecting materials")
	}
	materials := make([]course.Material, 0, len(rows))
	for _, r := range rows {
		materials = append(materials, course.Material{
			ID:         r.ID,
			CourseID:   r.CourseID,
			Name:       r.Name,
			FilePath:   r.FilePath,
			UploadedAt: fromUnix(r.UploadedAt),
		})
	}
	return materials, nil
}
