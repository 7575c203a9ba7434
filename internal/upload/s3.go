package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the settings of an S3 compatible object store.
type S3Config struct {
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	Bucket       string
	Prefix       string
	UseSSL       bool
	CreateBucket bool
}

// S3Destination stores the SBOM as an object. The client is created on first
// use so an unconfigured destination costs nothing.
type S3Destination struct {
	cfg S3Config

	once      sync.Once
	client    *minio.Client
	clientErr error
}

// NewS3Destination creates an S3 destination.
func NewS3Destination(cfg S3Config) *S3Destination {
	return &S3Destination{cfg: cfg}
}

func (d *S3Destination) Name() string { return "s3" }

func (d *S3Destination) IsConfigured() bool {
	return strings.TrimSpace(d.cfg.Endpoint) != "" &&
		strings.TrimSpace(d.cfg.Bucket) != "" &&
		strings.TrimSpace(d.cfg.AccessKey) != "" &&
		strings.TrimSpace(d.cfg.SecretKey) != ""
}

func (d *S3Destination) region() string {
	if r := strings.TrimSpace(d.cfg.Region); r != "" {
		return r
	}
	return "us-east-1"
}

func (d *S3Destination) getClient() (*minio.Client, error) {
	d.once.Do(func() {
		d.client, d.clientErr = minio.New(strings.TrimSpace(d.cfg.Endpoint), &minio.Options{
			Creds:  credentials.NewStaticV4(strings.TrimSpace(d.cfg.AccessKey), strings.TrimSpace(d.cfg.SecretKey), ""),
			Secure: d.cfg.UseSSL,
			Region: d.region(),
		})
		if d.clientErr != nil {
			d.clientErr = fmt.Errorf("init s3 client: %w", d.clientErr)
		}
	})
	return d.client, d.clientErr
}

func (d *S3Destination) ensureBucket(ctx context.Context, client *minio.Client) error {
	exists, err := client.BucketExists(ctx, d.cfg.Bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if !d.cfg.CreateBucket {
		return fmt.Errorf("bucket %q does not exist", d.cfg.Bucket)
	}
	return client.MakeBucket(ctx, d.cfg.Bucket, minio.MakeBucketOptions{Region: d.region()})
}

// ObjectKey builds "<prefix>/<component>/<version>/<file>", leaving out the
// parts that are empty.
func (d *S3Destination) ObjectKey(p Payload) string {
	parts := []string{}
	for _, s := range []string{d.cfg.Prefix, p.ComponentName, p.ComponentVersion} {
		if s = strings.Trim(strings.TrimSpace(s), "/"); s != "" {
			parts = append(parts, s)
		}
	}
	parts = append(parts, filepath.Base(p.Path))
	return path.Join(parts...)
}

func (d *S3Destination) Execute(ctx context.Context, p Payload) (Result, error) {
	client, err := d.getClient()
	if err != nil {
		return Result{}, err
	}

	f, err := os.Open(p.Path)
	if err != nil {
		return Result{}, fmt.Errorf("read SBOM: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("stat SBOM: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	if err := d.ensureBucket(ctx, client); err != nil {
		return Result{}, fmt.Errorf("ensure bucket: %w", err)
	}

	key := d.ObjectKey(p)
	up, err := client.PutObject(ctx, d.cfg.Bucket, key, f, info.Size(), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"sbom-format": string(p.Format),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("put object %s: %w", key, err)
	}

	meta := map[string]string{"bucket": d.cfg.Bucket, "etag": up.ETag}
	if up.VersionID != "" {
		meta["version_id"] = up.VersionID
	}
	return Succeeded(d.Name(), key, meta), nil
}
