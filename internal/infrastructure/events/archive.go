package events

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/domain/shared"
	"github.com/alchemorsel/nutriplan/internal/infrastructure/config"
)

// S3Archiver writes every generated plan as a JSON object to a bucket.
// Objects are named <prefix><yyyy>/<mm>/<dd>/<plan-id>.json.
type S3Archiver struct {
	client s3iface.S3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3Archiver creates an archiver from configuration. Static credentials
// are used when both keys are set; otherwise the default chain applies.
func NewS3Archiver(cfg *config.ArchiveConfig, logger *zap.Logger) (*S3Archiver, error) {
	awsCfg := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	logger.Info("S3 plan archive configured",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
	)
	return NewS3ArchiverWithClient(s3.New(sess), cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3ArchiverWithClient wraps an existing client
func NewS3ArchiverWithClient(client s3iface.S3API, bucket, prefix string, logger *zap.Logger) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.Named("s3-archiver"),
	}
}

// ObjectKey returns the key a plan event is stored under
func (a *S3Archiver) ObjectKey(event shared.DomainEvent) string {
	day := event.OccurredAt().UTC().Format("2006/01/02")
	name := event.EventName()
	if plan, err := planEvent(event); err == nil {
		name = plan.PlanID.String()
	}
	return a.prefix + path.Join(day, name+".json")
}

// Handle is a shared.EventHandler that uploads the event envelope
func (a *S3Archiver) Handle(ctx context.Context, event shared.DomainEvent) error {
	data, err := Encode(event)
	if err != nil {
		return err
	}

	key := a.ObjectKey(event)
	_, err = a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive %s to s3://%s/%s: %w", event.EventName(), a.bucket, key, err)
	}

	a.logger.Debug("Event archived", zap.String("key", key), zap.Int("bytes", len(data)))
	return nil
}
