package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/sitebuilder/internal/model"
)

// mockDB implements DB. Arguments are recorded as one []any so tests can
// match a query's full argument list.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// mockRows implements pgx.Rows, one scan function per row.
type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

func newEmptyMockRows() *mockRows {
	return &mockRows{}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// deploymentScan fills dest in the order of deploymentColumns.
func deploymentScan(d model.Deployment) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = d.ID
		*(dest[1].(*string)) = d.ProjectID
		*(dest[2].(*string)) = d.Platform
		*(dest[3].(*string)) = d.Branch
		*(dest[4].(*string)) = d.CustomDomain
		*(dest[5].(*string)) = d.Status
		*(dest[6].(*string)) = d.URL
		*(dest[7].(*string)) = d.Commit
		*(dest[8].(*[]string)) = d.Logs
		*(dest[9].(**string)) = d.RemoteProjectID
		*(dest[10].(**string)) = d.RemoteDeploymentID
		*(dest[11].(**string)) = d.SnapshotKey
		*(dest[12].(*time.Time)) = d.CreatedAt
		*(dest[13].(*time.Time)) = d.UpdatedAt
		*(dest[14].(**time.Time)) = d.CompletedAt
		return nil
	}
}

func existsRow(exists bool) *mockRow {
	return &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*bool)) = exists
		return nil
	}}
}

func errRow(err error) *mockRow {
	return &mockRow{scanFunc: func(...any) error { return err }}
}

// fileScan fills dest in the column order of the project file queries.
func fileScan(f model.ProjectFile) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = f.ID
		*(dest[1].(*string)) = f.ProjectID
		*(dest[2].(*string)) = f.Path
		*(dest[3].(*string)) = f.Content
		*(dest[4].(*string)) = f.Type
		*(dest[5].(*int64)) = f.Size
		*(dest[6].(*time.Time)) = f.CreatedAt
		*(dest[7].(*time.Time)) = f.UpdatedAt
		return nil
	}
}
