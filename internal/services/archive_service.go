package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"voxbank/internal/repositories"
)

// ArchiveService ships closed audit-log windows to object storage so the
// database table can stay small while the full trail remains queryable.
type ArchiveService interface {
	EnsureBucketExists(ctx context.Context) error
	// ArchiveDay uploads all audit rows for the given calendar day as one
	// JSON object named audit/<YYYY-MM-DD>.json.
	ArchiveDay(ctx context.Context, day time.Time) (int, error)
}

type archiveService struct {
	client    *minio.Client
	bucket    string
	auditRepo repositories.AuditLogsRepository
}

func NewArchiveService(endpoint, accessKey, secretKey, bucket string, useSSL bool, auditRepo repositories.AuditLogsRepository) (ArchiveService, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &archiveService{client: client, bucket: bucket, auditRepo: auditRepo}, nil
}

func (s *archiveService) EnsureBucketExists(ctx context.Context) error {
	found, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !found {
		return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *archiveService) ArchiveDay(ctx context.Context, day time.Time) (int, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	logs, err := s.auditRepo.ListBetween(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("list audit logs: %w", err)
	}
	if len(logs) == 0 {
		return 0, nil
	}

	payload, err := json.Marshal(logs)
	if err != nil {
		return 0, fmt.Errorf("marshal audit logs: %w", err)
	}

	objectName := fmt.Sprintf("audit/%s.json", start.Format("2006-01-02"))
	_, err = s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", objectName, err)
	}
	return len(logs), nil
}
