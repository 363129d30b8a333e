package note

import "errors"

// 编排层对外只暴露这四类错误，调用方用 errors.Is 判断
var (
	// ErrValidation 表示输入不满足前置条件，没有发生任何存储调用
	ErrValidation = errors.New("参数校验失败")
	// ErrNotFound 不区分“笔记不存在”和“不属于当前用户”
	ErrNotFound = errors.New("笔记不存在")
	// ErrStorage 表示blob存储调用失败
	ErrStorage = errors.New("笔记内容存储失败")
	// ErrMetadata 表示元数据存储调用失败
	ErrMetadata = errors.New("笔记元数据存储失败")
)

// 操作名，用于日志和指标
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
	OpRead   = "read"
)

// Outcome 把错误归类为指标里的 outcome 标签
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrMetadata):
		return "metadata"
	default:
		return "error"
	}
}
