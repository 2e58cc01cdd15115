package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/sitebuilder/internal/model"
)

var (
	// ErrProjectNotFound is returned when no project has the given ID.
	ErrProjectNotFound = errors.New("project not found")
	// ErrFileNotFound is returned when a project has no file at a path.
	ErrFileNotFound = errors.New("file not found")
)

// ProjectService reads projects and their files. Project CRUD lives elsewhere;
// the preview site only needs read access here.
type ProjectService struct {
	db DB
}

func NewProjectService(db DB) *ProjectService {
	return &ProjectService{db: db}
}

func (s *ProjectService) GetByID(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, title, description, created_at, updated_at FROM projects WHERE id = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get project %s: %w", id, ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return &p, nil
}

// GetFile looks a file up by path. Stored paths may carry a leading slash, so
// both forms match.
func (s *ProjectService) GetFile(ctx context.Context, projectID, path string) (*model.ProjectFile, error) {
	rel := strings.TrimLeft(path, "/")
	var f model.ProjectFile
	err := s.db.QueryRow(ctx,
		`SELECT id, project_id, path, content, type, size, created_at, updated_at
		 FROM project_files WHERE project_id = $1 AND (path = $2 OR path = $3)
		 ORDER BY path = $2 DESC LIMIT 1`,
		projectID, rel, "/"+rel,
	).Scan(&f.ID, &f.ProjectID, &f.Path, &f.Content, &f.Type, &f.Size, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get file %s of project %s: %w", path, projectID, ErrFileNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s of project %s: %w", path, projectID, err)
	}
	return &f, nil
}
