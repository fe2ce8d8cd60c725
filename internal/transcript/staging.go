package transcript

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DefaultMediaExtension is used when an uploaded file name has no extension
const DefaultMediaExtension = ".mp4"

// Handle is a temporary copy of media bytes
type Handle interface {
	// Name is the file name presented to the transcriber
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
	Release(ctx context.Context) error
}

// Stager places media bytes into temporary storage
type Stager interface {
	Stage(ctx context.Context, filename string, data []byte) (Handle, error)
}

func stagedName(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = DefaultMediaExtension
	}
	return uuid.NewString() + ext
}

// TempStager stages media as files in a local directory
type TempStager struct {
	// Dir defaults to the system temp directory
	Dir string
}

// Stage implements Stager
func (s *TempStager) Stage(_ context.Context, filename string, data []byte) (Handle, error) {
	f, err := os.CreateTemp(s.Dir, "climatewash-*-"+stagedName(filename))
	if err != nil {
		return nil, &StagingError{Message: "failed to create temporary file", Cause: err}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, &StagingError{Message: "failed to write temporary file", Cause: err}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, &StagingError{Message: "failed to close temporary file", Cause: err}
	}
	return &tempFile{path: f.Name()}, nil
}

type tempFile struct {
	path string
}

func (t *tempFile) Name() string { return filepath.Base(t.path) }

func (t *tempFile) Open(context.Context) (io.ReadCloser, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, &StagingError{Message: "failed to open temporary file", Cause: err}
	}
	return f, nil
}

func (t *tempFile) Release(context.Context) error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return &StagingError{Message: "failed to remove temporary file", Cause: err}
	}
	return nil
}

// MinIOConfig configures object storage staging
type MinIOConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// MinIOStager stages media as objects in a MinIO or S3 compatible bucket
type MinIOStager struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewMinIOStager connects to the object store and creates the bucket when missing
func NewMinIOStager(ctx context.Context, cfg MinIOConfig) (*MinIOStager, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, &StagingError{Message: "failed to create object storage client", Cause: err}
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, &StagingError{Message: "failed to check bucket " + cfg.Bucket, Cause: err}
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, &StagingError{Message: "failed to create bucket " + cfg.Bucket, Cause: err}
		}
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "staging/"
	}
	return &MinIOStager{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// Stage implements Stager
func (s *MinIOStager) Stage(ctx context.Context, filename string, data []byte) (Handle, error) {
	key := s.prefix + stagedName(filename)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: mimetype.Detect(data).String(),
	})
	if err != nil {
		return nil, &StagingError{Message: "failed to upload " + key, Cause: err}
	}
	return &stagedObject{stager: s, key: key}, nil
}

type stagedObject struct {
	stager *MinIOStager
	key    string
}

func (o *stagedObject) Name() string { return filepath.Base(o.key) }

func (o *stagedObject) Open(ctx context.Context) (io.ReadCloser, error) {
	obj, err := o.stager.client.GetObject(ctx, o.stager.bucket, o.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &StagingError{Message: "failed to read " + o.key, Cause: err}
	}
	return obj, nil
}

func (o *stagedObject) Release(ctx context.Context) error {
	if err := o.stager.client.RemoveObject(ctx, o.stager.bucket, o.key, minio.RemoveObjectOptions{}); err != nil {
		return &StagingError{Message: "failed to remove " + o.key, Cause: err}
	}
	return nil
}
