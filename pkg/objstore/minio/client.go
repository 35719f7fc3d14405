package minio

import (
	"bytes"
	"context"
	"flag"
	"sync"

	"github.com/grafana/dskit/flagext"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

const noSuchBucket = "NoSuchBucket"

type Config struct {
	Endpoint  string         `yaml:"endpoint"`
	AccessKey string         `yaml:"access_key"`
	SecretKey flagext.Secret `yaml:"secret_key"`
	Bucket    string         `yaml:"bucket"`
	Region    string         `yaml:"region"`
	Secure    bool           `yaml:"secure"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.Endpoint, flagPrefix+"endpoint", "localhost:9000", "Minio endpoint (host:port).")
	f.StringVar(&c.AccessKey, flagPrefix+"access-key", "", "Minio access key.")
	f.Var(&c.SecretKey, flagPrefix+"secret-key", "Minio secret key.")
	f.StringVar(&c.Bucket, flagPrefix+"bucket", "einfiler", "Bucket artifacts are written to.")
	f.StringVar(&c.Region, flagPrefix+"region", "", "Bucket region.")
	f.BoolVar(&c.Secure, flagPrefix+"secure", false, "Use TLS when talking to minio.")
}

type Store struct {
	client *minio.Client
	bucket string
	region string

	mu      sync.Mutex
	created bool
}

func NewStore(cfg Config) (*Store, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey.String(), ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "initialize minio client")
	}

	return &Store{
		client: minioClient,
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// Put writes data under name. A missing bucket is created once and the write retried.
func (s *Store) Put(ctx context.Context, data []byte, name, contentType string) (string, error) {
	err := s.put(ctx, data, name, contentType)
	if err != nil && isNoSuchBucket(err) {
		if cErr := s.createOnce(ctx); cErr != nil {
			return "", cErr
		}
		err = s.put(ctx, data, name, contentType)
	}
	if err != nil {
		return "", err
	}

	return s.objectURL(name), nil
}

func (s *Store) put(ctx context.Context, data []byte, name, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return errors.Wrap(err, "store minio object")
	}

	return nil
}

func (s *Store) createOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.created {
		return nil
	}
	if err := s.Create(ctx, s.bucket); err != nil {
		return err
	}
	s.created = true
	return nil
}

func (s *Store) Exists(ctx context.Context, container string) (bool, error) {
	found, err := s.client.BucketExists(ctx, container)
	if err != nil {
		return false, errors.Wrap(err, "check minio bucket exists")
	}
	return found, nil
}

func (s *Store) Create(ctx context.Context, container string) error {
	found, err := s.Exists(ctx, container)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if err := s.client.MakeBucket(ctx, container, minio.MakeBucketOptions{Region: s.region}); err != nil {
		return errors.Wrap(err, "make minio bucket")
	}
	return nil
}

func (s *Store) objectURL(name string) string {
	return s.client.EndpointURL().JoinPath(s.bucket, name).String()
}

func isNoSuchBucket(err error) bool {
	return minio.ToErrorResponse(errors.Cause(err)).Code == noSuchBucket
}
