package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/vocabmatch"
	"github.com/hupe1980/vocabmatch/blobstore"
	"github.com/hupe1980/vocabmatch/blobstore/minio"
	"github.com/hupe1980/vocabmatch/blobstore/s3"
)

// Location schemes.
const (
	SchemeFile  = "file"
	SchemeS3    = "s3"
	SchemeMinio = "minio"
)

// Location is a parsed file path or object URI.
type Location struct {
	Scheme string
	// Host is the MinIO endpoint.
	Host   string
	Bucket string
	// Key is the object key, or the local path for SchemeFile.
	Key string
}

// Remote reports whether the location lives in object storage.
func (l Location) Remote() bool {
	return l.Scheme != SchemeFile
}

func (l Location) String() string {
	switch l.Scheme {
	case SchemeS3:
		return "s3://" + l.Bucket + "/" + l.Key
	case SchemeMinio:
		return "minio://" + l.Host + "/" + l.Bucket + "/" + l.Key
	default:
		return l.Key
	}
}

// ParseLocation accepts a local path, s3://bucket/key or minio://host/bucket/key.
func ParseLocation(uri string) (Location, error) {
	switch {
	case strings.HasPrefix(uri, "s3://"):
		bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
		if !ok || bucket == "" || key == "" {
			return Location{}, fmt.Errorf("invalid s3 location %q: want s3://bucket/key", uri)
		}
		return Location{Scheme: SchemeS3, Bucket: bucket, Key: key}, nil
	case strings.HasPrefix(uri, "minio://"):
		parts := strings.SplitN(strings.TrimPrefix(uri, "minio://"), "/", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return Location{}, fmt.Errorf("invalid minio location %q: want minio://host/bucket/key", uri)
		}
		return Location{Scheme: SchemeMinio, Host: parts[0], Bucket: parts[1], Key: parts[2]}, nil
	case uri == "":
		return Location{}, fmt.Errorf("empty location")
	default:
		return Location{Scheme: SchemeFile, Key: uri}, nil
	}
}

// StoreOpener returns the blob store holding a remote location.
type StoreOpener func(ctx context.Context, loc Location) (blobstore.Store, error)

// StorageOption configures Storage.
type StorageOption func(*Storage)

// WithStoreOpener replaces the S3 and MinIO clients.
func WithStoreOpener(fn StoreOpener) StorageOption {
	return func(s *Storage) { s.open = fn }
}

// WithRetryConfig overrides the backoff used for remote stores.
func WithRetryConfig(cfg blobstore.RetryConfig) StorageOption {
	return func(s *Storage) { s.retry = cfg }
}

// Storage reads and writes trees and result files at local or remote locations.
type Storage struct {
	cfg   *Config
	open  StoreOpener
	retry blobstore.RetryConfig
}

// NewStorage creates a Storage for cfg.
func NewStorage(cfg *Config, optFns ...StorageOption) *Storage {
	s := &Storage{cfg: cfg, retry: blobstore.DefaultRetryConfig()}
	s.open = s.openRemote
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

func (s *Storage) openRemote(ctx context.Context, loc Location) (blobstore.Store, error) {
	switch loc.Scheme {
	case SchemeS3:
		var opts []s3.Option
		if s.cfg.S3.Region != "" {
			opts = append(opts, s3.WithRegion(s.cfg.S3.Region))
		}
		if s.cfg.S3.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(s.cfg.S3.Endpoint, s.cfg.S3.PathStyle))
		}
		return s3.New(ctx, loc.Bucket, opts...)
	case SchemeMinio:
		mc := s.cfg.Minio
		if mc.AccessKey == "" {
			mc.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
		}
		if mc.SecretKey == "" {
			mc.SecretKey = os.Getenv("MINIO_SECRET_KEY")
		}
		return minio.New(minio.Config{
			Endpoint:  loc.Host,
			AccessKey: mc.AccessKey,
			SecretKey: mc.SecretKey,
			Secure:    mc.Secure,
			Region:    mc.Region,
		}, loc.Bucket, "")
	default:
		return nil, fmt.Errorf("unsupported location scheme %q", loc.Scheme)
	}
}

func (s *Storage) store(ctx context.Context, loc Location) (blobstore.Store, error) {
	st, err := s.open(ctx, loc)
	if err != nil {
		return nil, err
	}
	return blobstore.NewRetryStore(st, s.retry), nil
}

// LoadTree reads a tree or database from uri into engine. Every failure wraps
// vocabmatch.ErrTreeLoad.
func (s *Storage) LoadTree(ctx context.Context, engine vocabmatch.Engine, uri string) error {
	loc, err := ParseLocation(uri)
	if err != nil {
		return fmt.Errorf("%w: %w", vocabmatch.ErrTreeLoad, err)
	}
	if !loc.Remote() {
		return vocabmatch.LoadTree(engine, loc.Key)
	}

	rf, ok := engine.(io.ReaderFrom)
	if !ok {
		return fmt.Errorf("%w: engine cannot read from %s", vocabmatch.ErrTreeLoad, loc)
	}
	st, err := s.store(ctx, loc)
	if err != nil {
		return fmt.Errorf("%w: %w", vocabmatch.ErrTreeLoad, err)
	}
	data, err := blobstore.Get(ctx, st, loc.Key)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", vocabmatch.ErrTreeLoad, loc, err)
	}
	if _, err := rf.ReadFrom(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("%w: %s: %w", vocabmatch.ErrTreeLoad, loc, err)
	}
	return nil
}

// SaveTree writes engine to uri.
func (s *Storage) SaveTree(ctx context.Context, engine vocabmatch.Engine, uri string) error {
	loc, err := ParseLocation(uri)
	if err != nil {
		return err
	}
	if !loc.Remote() {
		return engine.Write(loc.Key)
	}

	wt, ok := engine.(io.WriterTo)
	if !ok {
		return fmt.Errorf("engine cannot be written to %s", loc)
	}
	return s.WriteFile(ctx, uri, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

// WriteFile renders a file with write and stores it at uri. Local files are
// replaced atomically.
func (s *Storage) WriteFile(ctx context.Context, uri string, write func(io.Writer) error) error {
	loc, err := ParseLocation(uri)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}

	if !loc.Remote() {
		dir, name := filepath.Split(loc.Key)
		if dir == "" {
			dir = "."
		}
		return blobstore.NewLocalStore(dir).Put(ctx, name, buf.Bytes())
	}

	st, err := s.store(ctx, loc)
	if err != nil {
		return err
	}
	return st.Put(ctx, loc.Key, buf.Bytes())
}
