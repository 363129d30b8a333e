package note

import (
	"context"

	"github.com/SlpAus/space-notes-backend/internal/blob"
	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
)

// uploadCompensator 封装了一次正文上传的回收逻辑。
// 在创建流程中配合defer使用：元数据写入成功后 Commit，否则回收正文。
type uploadCompensator struct {
	ctx       context.Context
	blobs     blob.Store
	path      string
	enabled   bool
	committed bool
}

func newUploadCompensator(ctx context.Context, blobs blob.Store, path string, enabled bool) *uploadCompensator {
	return &uploadCompensator{ctx: ctx, blobs: blobs, path: path, enabled: enabled}
}

// Commit 标记创建成功，之后不再回收
func (c *uploadCompensator) Commit() {
	c.committed = true
}

// RollbackUnlessCommitted 尽力删除一次刚上传的正文，不重试
func (c *uploadCompensator) RollbackUnlessCommitted() {
	if c.committed {
		return
	}
	if !c.enabled {
		logging.Log.Warn().Str("path", c.path).Msg("笔记记录写入失败，正文已成为孤儿")
		return
	}

	// 请求可能已被取消，回收不应随之失败
	ctx := context.WithoutCancel(c.ctx)
	if err := c.blobs.Remove(ctx, c.path); err != nil {
		logging.Log.Error().Err(err).Str("path", c.path).Msg("严重警告: 回收孤儿正文失败")
		return
	}
	logging.Log.Info().Str("path", c.path).Msg("笔记记录写入失败，已回收正文")
}
