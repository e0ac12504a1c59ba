package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_backoffice/internal/config"
)

// ArchiveService uploads generated documents to an S3 compatible bucket.
type ArchiveService struct {
	bucket   string
	region   string
	endpoint string
	creds    aws.CredentialsProvider
	signer   *v4.Signer
	client   *http.Client
}

// NewArchiveService resolves credentials from the static keys when set, or
// from the default AWS chain otherwise.
func NewArchiveService(ctx context.Context, cfg config.ArchiveConfig) (*ArchiveService, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &ArchiveService{
		bucket:   cfg.Bucket,
		region:   cfg.Region,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		creds:    awsCfg.Credentials,
		signer:   v4.NewSigner(),
		client:   &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Upload stores data under key and returns the object URL. Without usable
// credentials the upload is skipped and only the URL is returned.
func (s *ArchiveService) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	url := s.ObjectURL(key)
	if s.bucket == "" || s.creds == nil {
		log.Warn().Str("key", key).Msg("Document archive not configured - skipping upload")
		return url, nil
	}
	creds, err := s.creds.Retrieve(ctx)
	if err != nil || !creds.HasKeys() {
		log.Warn().Err(err).Str("key", key).Msg("S3 credentials not available - skipping upload")
		return url, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	sum := sha256.Sum256(data)
	payloadHash := hex.EncodeToString(sum[:])
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Amz-Content-Sha256", payloadHash)

	if err := s.signer.SignHTTP(ctx, creds, req, payloadHash, "s3", s.region, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("failed to sign request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload to S3")
		return "", fmt.Errorf("failed to upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		log.Error().
			Str("key", key).
			Int("status", resp.StatusCode).
			Str("response", string(body)).
			Msg("S3 upload failed")
		return "", fmt.Errorf("S3 upload failed: %s", string(body))
	}

	log.Info().Str("key", key).Int("bytes", len(data)).Msg("Document archived")
	return url, nil
}

// ObjectURL is virtual-hosted on AWS and path-style on a custom endpoint.
func (s *ArchiveService) ObjectURL(key string) string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
