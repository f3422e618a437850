// Remote snapshot I/O for local paths, HTTP URLs and S3.
package db

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nickyhof/MemDB/ps"
)

// S3Config contains S3 authentication configuration. Empty fields fall back
// to the AWS default credential chain.
type S3Config struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string // Optional: custom S3-compatible endpoint
}

// S3ConfigFromEnv reads MEMDB_S3_ACCESS_KEY, MEMDB_S3_SECRET_KEY,
// MEMDB_S3_REGION and MEMDB_S3_ENDPOINT.
func S3ConfigFromEnv() *S3Config {
	return &S3Config{
		AccessKey: os.Getenv("MEMDB_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("MEMDB_S3_SECRET_KEY"),
		Region:    os.Getenv("MEMDB_S3_REGION"),
		Endpoint:  os.Getenv("MEMDB_S3_ENDPOINT"),
	}
}

// urlScheme represents the scheme of a URL
type urlScheme string

const (
	schemeFile  urlScheme = "file"
	schemeS3    urlScheme = "s3"
	schemeHTTP  urlScheme = "http"
	schemeHTTPS urlScheme = "https"
	schemeLocal urlScheme = "local" // no scheme, local path
)

func detectScheme(path string) urlScheme {
	lowerPath := strings.ToLower(path)
	switch {
	case strings.HasPrefix(lowerPath, "s3://"):
		return schemeS3
	case strings.HasPrefix(lowerPath, "https://"):
		return schemeHTTPS
	case strings.HasPrefix(lowerPath, "http://"):
		return schemeHTTP
	case strings.HasPrefix(lowerPath, "file://"):
		return schemeFile
	default:
		return schemeLocal
	}
}

// ExportTo writes the snapshot document of every table to url.
func (engine *Engine) ExportTo(ctx context.Context, url string, cfg *S3Config) error {
	var buf bytes.Buffer
	snapshot := engine.ExportSnapshot()
	if err := ps.EncodeSnapshot(&buf, snapshot); err != nil {
		return err
	}
	if err := writeRemote(ctx, url, cfg, buf.Bytes()); err != nil {
		return err
	}
	engine.logger.Info("snapshot exported", "url", url, "tables", len(snapshot.Tables))
	return nil
}

// ImportFrom reads a snapshot document from url and imports its tables.
func (engine *Engine) ImportFrom(ctx context.Context, url string, cfg *S3Config) error {
	reader, err := openRemoteReader(ctx, url, cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	snapshot, err := ps.DecodeSnapshot(reader)
	if err != nil {
		return fmt.Errorf("failed to decode snapshot from %s: %w", url, err)
	}
	return engine.ImportSnapshot(snapshot)
}

func openRemoteReader(ctx context.Context, path string, cfg *S3Config) (io.ReadCloser, error) {
	switch scheme := detectScheme(path); scheme {
	case schemeLocal, schemeFile:
		return osOpen(strings.TrimPrefix(path, "file://"))
	case schemeHTTP, schemeHTTPS:
		return openHTTPReader(ctx, path)
	case schemeS3:
		return openS3Reader(ctx, path, cfg)
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

func writeRemote(ctx context.Context, path string, cfg *S3Config, content []byte) error {
	switch scheme := detectScheme(path); scheme {
	case schemeLocal, schemeFile:
		writer, err := osCreate(strings.TrimPrefix(path, "file://"))
		if err != nil {
			return err
		}
		_, err = writer.Write(content)
		return errors.Join(err, writer.Close())
	case schemeHTTP, schemeHTTPS:
		return fmt.Errorf("HTTP/HTTPS does not support writing")
	case schemeS3:
		return putS3Object(ctx, path, cfg, content)
	default:
		return fmt.Errorf("unsupported URL scheme: %s", path)
	}
}

func openHTTPReader(ctx context.Context, url string) (io.ReadCloser, error) {
	client := &http.Client{
		Timeout: 5 * time.Minute, // generous timeout for large snapshots
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP request returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// parseS3URL parses s3://bucket/key into bucket and key parts
func parseS3URL(url string) (bucket, key string, err error) {
	path := strings.TrimPrefix(url, "s3://")
	bucket, key, ok := strings.Cut(path, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 URL: %s", url)
	}
	return bucket, key, nil
}

func getS3Client(ctx context.Context, cfg *S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg != nil && cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg != nil && cfg.AccessKey != "" && cfg.SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg != nil && cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // For S3-compatible services
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

func openS3Reader(ctx context.Context, url string, cfg *S3Config) (io.ReadCloser, error) {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return nil, err
	}
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get S3 object: %w", err)
	}
	return resp.Body, nil
}

func putS3Object(ctx context.Context, url string, cfg *S3Config, content []byte) error {
	bucket, key, err := parseS3URL(url)
	if err != nil {
		return err
	}
	client, err := getS3Client(ctx, cfg)
	if err != nil {
		return err
	}

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// osOpen wraps os.Open - used to allow the function to be swapped in tests
var osOpen = func(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// osCreate wraps os.Create - used to allow the function to be swapped in tests
var osCreate = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}
