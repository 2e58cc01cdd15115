package activity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/sitebuilder/internal/metrics"
	"github.com/edvin/sitebuilder/internal/platform"
	"github.com/edvin/sitebuilder/internal/recovery"
)

// Recovery contains activities that diagnose and repair a project's files
// after a failed deployment.
type Recovery struct {
	db     DB
	engine *recovery.Engine
}

// NewRecovery creates a new Recovery activity struct.
func NewRecovery(db DB, engine *recovery.Engine) *Recovery {
	return &Recovery{db: db, engine: engine}
}

// DiagnoseProjectFilesResult holds the diagnosis of a project's files.
type DiagnoseProjectFilesResult struct {
	Diagnosis recovery.Diagnosis `json:"diagnosis"`
	FileCount int                `json:"file_count"`
}

// DiagnoseProjectFiles runs the recovery rule chain against the project's
// stored files.
func (a *Recovery) DiagnoseProjectFiles(ctx context.Context, projectID string) (*DiagnoseProjectFilesResult, error) {
	var title string
	if err := a.db.QueryRow(ctx, `SELECT title FROM projects WHERE id = $1`, projectID).Scan(&title); err != nil {
		return nil, fmt.Errorf("get project %s: %w", projectID, err)
	}
	rows, err := loadFiles(ctx, a.db, projectID)
	if err != nil {
		return nil, fmt.Errorf("load files of project %s: %w", projectID, err)
	}

	d := a.engine.Diagnose(title, toRecoveryFiles(rows))
	return &DiagnoseProjectFilesResult{Diagnosis: d, FileCount: len(rows)}, nil
}

// ApplyProjectFixesParams holds parameters for ApplyProjectFixes.
type ApplyProjectFixesParams struct {
	ProjectID string         `json:"project_id"`
	Fixes     []recovery.Fix `json:"fixes"`
}

// ApplyProjectFixesResult reports the file count before and after the fixes.
type ApplyProjectFixesResult struct {
	FilesBefore int `json:"files_before"`
	FilesAfter  int `json:"files_after"`
}

// ApplyProjectFixes applies fixes to the project's current files and replaces
// the stored file set with the result in a single batch.
func (a *Recovery) ApplyProjectFixes(ctx context.Context, params ApplyProjectFixesParams) (*ApplyProjectFixesResult, error) {
	rows, err := loadFiles(ctx, a.db, params.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load files of project %s: %w", params.ProjectID, err)
	}
	fixed := recovery.Apply(toRecoveryFiles(rows), params.Fixes)

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM project_files WHERE project_id = $1`, params.ProjectID)
	for _, f := range fixed {
		typ := f.Type
		if typ == "" {
			typ = recovery.FileTypeForPath(f.Path)
		}
		batch.Queue(
			`INSERT INTO project_files (id, project_id, path, content, type, size, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, now(), now())`,
			platform.NewID(), params.ProjectID, f.Path, f.Content, typ, int64(len(f.Content)),
		)
	}

	br := a.db.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return nil, fmt.Errorf("replace files of project %s: %w", params.ProjectID, err)
		}
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("replace files of project %s: %w", params.ProjectID, err)
	}

	for _, fix := range params.Fixes {
		metrics.RecoveryFixesApplied.WithLabelValues(fix.Rule).Inc()
	}
	return &ApplyProjectFixesResult{FilesBefore: len(rows), FilesAfter: len(fixed)}, nil
}

func toRecoveryFiles(rows []fileRow) []recovery.File {
	files := make([]recovery.File, 0, len(rows))
	for _, r := range rows {
		files = append(files, recovery.File{Path: r.Path, Content: r.Content, Type: r.Type})
	}
	return files
}
