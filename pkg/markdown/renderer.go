// Package markdown 把笔记内容渲染为HTML预览
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Renderer 无状态，可以在多个请求间共享
type Renderer struct {
	engine goldmark.Markdown
}

// NewRenderer 使用GFM、自动链接和任务列表扩展。原始HTML不会被输出。
func NewRenderer() *Renderer {
	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// Render 把Markdown转换为HTML
func (r *Renderer) Render(source []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert(source, &buf); err != nil {
		return nil, fmt.Errorf("markdown渲染失败: %w", err)
	}
	return buf.Bytes(), nil
}
