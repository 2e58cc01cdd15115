package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the part of *s3.Client used for snapshots.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewSnapshotS3Client creates an S3 client for an S3-compatible endpoint.
// Without keys requests are sent unsigned.
func NewSnapshotS3Client(endpoint, region, accessKey, secretKey string) *s3.Client {
	opts := s3.Options{
		Region:       region,
		UsePathStyle: endpoint != "",
	}
	if endpoint != "" {
		opts.BaseEndpoint = aws.String(endpoint)
	}
	if accessKey != "" {
		opts.Credentials = credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")
	}
	return s3.New(opts)
}

// Snapshot archives the file set an attempt deployed.
type Snapshot struct {
	db     DB
	s3     ObjectPutter
	bucket string
}

// NewSnapshot creates a new Snapshot activity struct. A nil client or empty
// bucket disables archiving.
func NewSnapshot(db DB, s3Client ObjectPutter, bucket string) *Snapshot {
	return &Snapshot{db: db, s3: s3Client, bucket: bucket}
}

// ArchiveFileSnapshotParams holds parameters for ArchiveFileSnapshot. Cycle
// numbers an attempt's deploy cycles from 1; a cycle after automated recovery
// gets its own snapshot.
type ArchiveFileSnapshotParams struct {
	ProjectID string `json:"project_id"`
	AttemptID string `json:"attempt_id"`
	Cycle     int    `json:"cycle"`
}

type fileSnapshot struct {
	ProjectID  string    `json:"project_id"`
	AttemptID  string    `json:"attempt_id"`
	Cycle      int       `json:"cycle"`
	CapturedAt time.Time `json:"captured_at"`
	Files      []fileRow `json:"files"`
}

// SnapshotKey is the object key of the file snapshot of one deploy cycle.
func SnapshotKey(projectID, attemptID string, cycle int) string {
	return fmt.Sprintf("snapshots/%s/%s-%d.json", projectID, attemptID, cycle)
}

// ArchiveFileSnapshot uploads the project's current files as JSON and records
// the latest object key on the attempt. It returns the key, or "" when disabled.
func (a *Snapshot) ArchiveFileSnapshot(ctx context.Context, params ArchiveFileSnapshotParams) (string, error) {
	if a.s3 == nil || a.bucket == "" {
		return "", nil
	}

	files, err := loadFiles(ctx, a.db, params.ProjectID)
	if err != nil {
		return "", fmt.Errorf("load files of project %s: %w", params.ProjectID, err)
	}
	if files == nil {
		files = []fileRow{}
	}
	body, err := json.Marshal(fileSnapshot{
		ProjectID:  params.ProjectID,
		AttemptID:  params.AttemptID,
		Cycle:      params.Cycle,
		CapturedAt: time.Now().UTC(),
		Files:      files,
	})
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	key := SnapshotKey(params.ProjectID, params.AttemptID, params.Cycle)
	_, err = a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload snapshot %s: %w", key, err)
	}

	if _, err := a.db.Exec(ctx,
		`UPDATE deployments SET snapshot_key = $1, updated_at = now() WHERE id = $2`, key, params.AttemptID,
	); err != nil {
		return "", fmt.Errorf("record snapshot key on deployment %s: %w", params.AttemptID, err)
	}
	return key, nil
}
