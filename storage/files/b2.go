package filestore

import (
	"context"
	"io"

	"github.com/kurin/blazer/b2"
	"github.com/pkg/errors"

	"github.com/trezcool/aicanvas/core/course"
)

// bucket is the part of a B2 bucket B2Store uses.
type bucket interface {
	newWriter(ctx context.Context, key string) io.WriteCloser
	delete(ctx context.Context, key string) error
	url(key string) string
}

type blazerBucket struct {
	b *b2.Bucket
}

func (bb blazerBucket) newWriter(ctx context.Context, key string) io.WriteCloser {
	return bb.b.Object(key).NewWriter(ctx)
}

func (bb blazerBucket) delete(ctx context.Context, key string) error {
	return bb.b.Object(key).Delete(ctx)
}

func (bb blazerBucket) url(key string) string {
	return bb.b.Object(key).URL()
}

type B2Store struct {
	bucket bucket
}

var _ course.FileStore = (*B2Store)(nil) // interface compliance check

func NewB2Store(ctx context.Context, accountID, appKey, bucketName string) (*B2Store, error) {
	client, err := b2.NewClient(ctx, accountID, appKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating b2 client")
	}
	bkt, err := client.Bucket(ctx, bucketName)
	if err != nil {
		return nil, errors.Wrap(err, "getting b2 bucket")
	}
	return &B2Store{bucket: blazerBucket{b: bkt}}, nil
}

// Save uploads `r` under `key` and returns the download URL of the object.
func (s *B2Store) Save(ctx context.Context, key string, r io.Reader) (string, error) {
	w := s.bucket.newWriter(ctx, key)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", errors.Wrap(err, "writing object")
	}
	if err := w.Close(); err != nil {
		return "", errors.Wrap(err, "closing object writer")
	}
	return s.bucket.url(key), nil
}

func (s *B2Store) Delete(ctx context.Context, key string) error {
	return errors.Wrap(s.bucket.delete(ctx, key), "deleting object")
}
