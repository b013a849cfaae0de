// Package filestore persists uploaded syllabi and course materials.
package filestore

import (
	"context"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/course"
)

// NewStore returns a Backblaze B2 store when B2 credentials are configured, and a local disk store otherwise.
func NewStore(ctx context.Context, conf *core.Config) (course.FileStore, error) {
	if conf.B2.AccountID != "" && conf.B2.AppKey != "" && conf.B2.Bucket != "" {
		return NewB2Store(ctx, conf.B2.AccountID, conf.B2.AppKey, conf.B2.Bucket)
	}
	return NewLocalStore(conf.Uploads.Dir), nil
}
