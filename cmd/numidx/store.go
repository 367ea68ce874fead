package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hupe1980/numidx"
	"github.com/hupe1980/numidx/blobstore"
	"github.com/hupe1980/numidx/blobstore/minio"
	"github.com/hupe1980/numidx/blobstore/s3"
)

// location is a parsed path argument.
type location struct {
	scheme string // "", "s3" or "minio"
	bucket string
	name   string
}

func parseLocation(path string) (location, error) {
	for _, scheme := range []string{"s3", "minio"} {
		rest, ok := strings.CutPrefix(path, scheme+"://")
		if !ok {
			continue
		}
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" {
			return location{}, fmt.Errorf("invalid %s path %q: want %s://bucket/key", scheme, path, scheme)
		}
		return location{scheme: scheme, bucket: bucket, name: key}, nil
	}
	return location{name: path}, nil
}

func (l location) local() bool { return l.scheme == "" }

// store returns the blob store holding l and the blob name inside it.
func (l location) store(ctx context.Context) (blobstore.Store, string, error) {
	switch l.scheme {
	case "s3":
		var opts []s3.Option
		if region := os.Getenv("AWS_REGION"); region != "" {
			opts = append(opts, s3.WithRegion(region))
		}
		if endpoint := os.Getenv("NUMIDX_S3_ENDPOINT"); endpoint != "" {
			opts = append(opts, s3.WithEndpoint(endpoint))
		}
		st, err := s3.New(ctx, l.bucket, opts...)
		if err != nil {
			return nil, "", err
		}
		return st, l.name, nil
	case "minio":
		endpoint := os.Getenv("MINIO_ENDPOINT")
		if endpoint == "" {
			return nil, "", fmt.Errorf("minio path %s/%s: MINIO_ENDPOINT is not set", l.bucket, l.name)
		}
		secure, _ := strconv.ParseBool(os.Getenv("MINIO_SECURE"))
		st, err := minio.Dial(endpoint, os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), secure, l.bucket, "")
		if err != nil {
			return nil, "", err
		}
		return st, l.name, nil
	default:
		return blobstore.NewLocalStore(filepath.Dir(l.name)), filepath.Base(l.name), nil
	}
}

// openIndex opens the index at path. Remote indexes get a block cache.
func openIndex(ctx context.Context, e *env, path string) (*numidx.Index, error) {
	loc, err := parseLocation(path)
	if err != nil {
		return nil, err
	}

	opts := []numidx.Option{
		numidx.WithLogger(e.logger),
		numidx.WithPageCacheCapacity(envInt("NUMIDX_CACHE_PAGES", numidx.DefaultPageCacheCapacity)),
	}
	if loc.local() {
		return numidx.OpenFile(ctx, loc.name, opts...)
	}

	st, name, err := loc.store(ctx)
	if err != nil {
		return nil, err
	}
	opts = append(opts, numidx.WithBlockCache(int64(envInt("NUMIDX_BLOCK_CACHE", 64<<20))))
	return numidx.Open(ctx, st, name, opts...)
}

// openBlob opens the data blob at path.
func openBlob(ctx context.Context, path string) (blobstore.Blob, error) {
	loc, err := parseLocation(path)
	if err != nil {
		return nil, err
	}
	st, name, err := loc.store(ctx)
	if err != nil {
		return nil, err
	}
	return st.Open(ctx, name)
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
