package services

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/chachabrian/mooveit-admin/internal/config"
	"github.com/chachabrian/mooveit-admin/internal/models"
	log "github.com/sirupsen/logrus"
)

// DocumentStorage turns the photo references stored on verification bundles
// into URLs a dashboard can open. With S3 configured, objects of the bucket
// are presigned; otherwise relative paths are served from BASE_URL/uploads.
type DocumentStorage struct {
	s3Client *s3.S3
	bucket   string
	region   string
	ttl      time.Duration
	baseURL  string
	log      log.FieldLogger
}

// NewDocumentStorage initializes either S3 or local URL resolution based on
// configuration.
func NewDocumentStorage(cfg config.StorageConfig, baseURL string, logger log.FieldLogger) (*DocumentStorage, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	d := &DocumentStorage{
		bucket:  cfg.Bucket,
		region:  cfg.Region,
		ttl:     ttl,
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     logger.WithField("component", "storage"),
	}

	if !cfg.S3Enabled() {
		d.log.Warn("AWS S3 not configured. Document paths resolve against BASE_URL")
		return d, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"", // Token (optional)
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	d.s3Client = s3.New(sess)
	d.log.WithField("bucket", cfg.Bucket).Info("AWS S3 document storage initialized")
	return d, nil
}

// IsUsingS3 returns true if S3 storage is being used
func (d *DocumentStorage) IsUsingS3() bool {
	return d.s3Client != nil
}

// ResolveURL returns a URL for ref, or "" when ref is empty. Foreign
// absolute URLs are returned unchanged.
func (d *DocumentStorage) ResolveURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", nil
	}

	key, ours := d.objectKey(ref)
	if !ours {
		return ref, nil
	}
	if !d.IsUsingS3() {
		return fmt.Sprintf("%s/uploads/%s", d.baseURL, key), nil
	}

	req, _ := d.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	signed, err := req.Presign(d.ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return signed, nil
}

// objectKey extracts the object key from a bucket URL or a relative path.
// The second result is false for URLs outside our storage.
func (d *DocumentStorage) objectKey(ref string) (string, bool) {
	if !strings.Contains(ref, "://") {
		return strings.TrimLeft(path.Clean("/"+ref), "/"), true
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if d.bucket != "" && strings.HasPrefix(u.Host, d.bucket+".s3.") {
		return strings.TrimLeft(u.Path, "/"), true
	}
	if strings.HasPrefix(ref, d.baseURL+"/uploads/") {
		return strings.TrimPrefix(ref, d.baseURL+"/uploads/"), true
	}
	return "", false
}

// ResolveVerification returns a copy of v with every photo URL resolved.
// Photos that fail to resolve are cleared and logged.
func (d *DocumentStorage) ResolveVerification(v models.DriverVerification) models.DriverVerification {
	for _, p := range []*string{&v.IdentityPhotoURL, &v.DriverPhotoURL, &v.MotorcyclePhotoURL} {
		resolved, err := d.ResolveURL(*p)
		if err != nil {
			d.log.WithError(err).WithField("verification_id", v.ID).Warn("Could not resolve document URL")
			resolved = ""
		}
		*p = resolved
	}
	return v
}
