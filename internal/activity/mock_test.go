package activity

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// ---------- Mock DB ----------

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

func (m *mockDB) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	args := m.Called(ctx, b)
	return args.Get(0).(pgx.BatchResults)
}

// ---------- Mock Row ----------

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

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

// ---------- Mock BatchResults ----------

// mockBatchResults records how many queued statements were executed and can
// fail at a given index.
type mockBatchResults struct {
	execCount int
	failAt    int
	err       error
	closed    bool
}

func (m *mockBatchResults) Exec() (pgconn.CommandTag, error) {
	m.execCount++
	if m.err != nil && m.execCount == m.failAt {
		return pgconn.CommandTag{}, m.err
	}
	return pgconn.CommandTag{}, nil
}

func (m *mockBatchResults) Query() (pgx.Rows, error) { return newEmptyMockRows(), nil }
func (m *mockBatchResults) QueryRow() pgx.Row {
	return &mockRow{scanFunc: func(dest ...any) error { return nil }}
}
func (m *mockBatchResults) Close() error {
	m.closed = true
	return nil
}

// fileRowsScan returns scan functions for loadFiles.
func fileRowsScan(files ...fileRow) []func(dest ...any) error {
	fns := make([]func(dest ...any) error, 0, len(files))
	for _, f := range files {
		f := f
		fns = append(fns, func(dest ...any) error {
			*(dest[0].(*string)) = f.Path
			*(dest[1].(*string)) = f.Content
			*(dest[2].(*string)) = f.Type
			return nil
		})
	}
	return fns
}
