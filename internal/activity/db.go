package activity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool used by activities. SendBatch runs its
// statements in one implicit transaction.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// loadFiles returns a project's files ordered by path.
func loadFiles(ctx context.Context, db DB, projectID string) ([]fileRow, error) {
	rows, err := db.Query(ctx,
		`SELECT path, content, type FROM project_files WHERE project_id = $1 ORDER BY path`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []fileRow
	for rows.Next() {
		var f fileRow
		if err := rows.Scan(&f.Path, &f.Content, &f.Type); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type fileRow struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Type    string `json:"type"`
}
