package files

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/formlift/formlift/pkg/admission"
	"github.com/formlift/formlift/pkg/domain"
	"github.com/formlift/formlift/pkg/models"
)

// S3API is the slice of the S3 client the service uses
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewS3Client creates an S3 client from static credentials
func NewS3Client(region, accessKeyID, secretAccessKey string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			accessKeyID,
			secretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// FileRepository persists knowledge file metadata
type FileRepository interface {
	Insert(ctx context.Context, f *models.KnowledgeFile) (int64, error)
	ListByForm(ctx context.Context, formID int64) ([]models.KnowledgeFile, error)
}

// AdmissionChecker gates uploads on the storage quota
type AdmissionChecker interface {
	Check(ctx context.Context, accountID int64, resource admission.Resource, delta int64) (admission.Decision, error)
}

// Service stores owner-uploaded knowledge files in S3 and tracks their size
// against the account's storage quota.
type Service struct {
	s3        S3API
	bucket    string
	files     FileRepository
	admission AdmissionChecker
	logger    *log.Logger
}

// NewService creates a new files service
func NewService(s3Client S3API, bucket string, files FileRepository, adm AdmissionChecker, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{
		s3:        s3Client,
		bucket:    bucket,
		files:     files,
		admission: adm,
		logger:    logger,
	}
}

// Upload stores a knowledge file after the storage quota admits its size.
// The metadata row is written only after the object upload succeeded, so a
// failed upload never consumes quota.
func (s *Service) Upload(ctx context.Context, accountID, formID int64, name string, content []byte) (*models.KnowledgeFile, error) {
	size := int64(len(content))
	if size == 0 {
		return nil, domain.NewValidationError("file is empty")
	}

	decision, err := s.admission.Check(ctx, accountID, admission.ResourceStorage, size)
	if err != nil {
		return nil, domain.NewInternalError(err)
	}
	if !decision.Allowed {
		var limit int64
		if decision.Limit != nil {
			limit = *decision.Limit
		}
		return nil, domain.NewQuotaExceededError(string(admission.ResourceStorage), decision.Current, limit)
	}

	key := fmt.Sprintf("knowledge/%d/%d/%s-%s", accountID, formID, uuid.NewString()[:8], path.Base(name))
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(content),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file to S3: %w", err)
	}

	file := &models.KnowledgeFile{
		AccountID:  accountID,
		FormID:     formID,
		Name:       name,
		SizeBytes:  size,
		StorageKey: key,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := s.files.Insert(ctx, file); err != nil {
		// Best effort cleanup so the orphan object does not linger
		if _, delErr := s.s3.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); delErr != nil {
			s.logger.Printf("⚠️  Failed to remove orphaned object %s: %v", key, delErr)
		}
		return nil, domain.NewPersistenceError(err)
	}

	s.logger.Printf("✅ Uploaded knowledge file %s (%d bytes) for form %d", name, size, formID)
	return file, nil
}

// List returns the knowledge files attached to a form
func (s *Service) List(ctx context.Context, formID int64) ([]models.KnowledgeFile, error) {
	files, err := s.files.ListByForm(ctx, formID)
	if err != nil {
		return nil, domain.NewPersistenceError(err)
	}
	return files, nil
}
