package note

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SlpAus/space-notes-backend/internal/gate"
	"github.com/SlpAus/space-notes-backend/internal/platform/logging"
	"github.com/SlpAus/space-notes-backend/internal/user"
	"github.com/SlpAus/space-notes-backend/pkg/markdown"
	"github.com/gin-gonic/gin"
)

// 请求体在正文上限之外预留的空间，用于标题和JSON结构
const requestOverhead = 64 << 10

// Handler 暴露笔记的增删改查和Markdown预览接口
type Handler struct {
	svc      *Service
	renderer *markdown.Renderer
}

func NewHandler(svc *Service, renderer *markdown.Renderer) *Handler {
	return &Handler{svc: svc, renderer: renderer}
}

// Register 把路由挂到 /api/notes 下。调用方负责在组上挂载口令门和登录中间件。
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.POST("/preview", h.Preview)
	rg.GET("/:id", h.Read)
	rg.GET("/:id/html", h.ReadHTML)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type previewRequest struct {
	Content string `json:"content"`
}

// NoteResponse 是笔记的API表示，不暴露存储路径
type NoteResponse struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Content        *string   `json:"content,omitempty"`
	ContentMissing bool      `json:"contentMissing,omitempty"`
}

func toResponse(n *Note) NoteResponse {
	return NoteResponse{ID: n.ID, Title: n.Title, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt}
}

func toResponseWithContent(n *WithContent) NoteResponse {
	resp := toResponse(&n.Note)
	content := string(n.Content)
	resp.Content = &content
	resp.ContentMissing = n.ContentMissing
	return resp
}

// respondError 把编排层错误映射为HTTP状态码
func respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
	case errors.Is(err, ErrStorage):
		logFailure(c, op, err, "笔记内容存储失败")
		c.JSON(http.StatusBadGateway, gin.H{"error": "笔记内容存储失败，请稍后重试"})
	case errors.Is(err, ErrMetadata):
		logFailure(c, op, err, "笔记元数据存储失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "笔记保存失败，请稍后重试"})
	default:
		logFailure(c, op, err, "笔记操作失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
	}
}

// logFailure 记录失败的操作，带上当前用户和口令门会话
func logFailure(c *gin.Context, op string, err error, msg string) {
	event := logging.Log.Error().Err(err).Str("op", op)
	if current, ok := user.CurrentUserFrom(c); ok {
		event = event.Str("owner", current.ID)
	}
	if session, ok := gate.SessionFrom(c); ok {
		event = event.Str("gateSession", session.ID)
	}
	event.Msg(msg)
}

// ownerFrom 读取 user.RequireUser 放入上下文的当前用户
func ownerFrom(c *gin.Context) (string, bool) {
	current, ok := user.CurrentUserFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
		return "", false
	}
	return current.ID, true
}

// bindLimited 限制请求体大小后解析JSON，超限返回413
func (h *Handler) bindLimited(c *gin.Context, dst any) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(h.svc.MaxContentBytes())+requestOverhead)
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "请求体过大"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求格式错误: " + err.Error()})
		return false
	}
	return true
}

func (h *Handler) bindNote(c *gin.Context) (noteRequest, bool) {
	var body noteRequest
	ok := h.bindLimited(c, &body)
	return body, ok
}

// List 返回当前用户的笔记，content=true 时附带正文
func (h *Handler) List(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}

	withContent, _ := strconv.ParseBool(c.Query("content"))
	if withContent {
		notes, err := h.svc.ListWithContent(c.Request.Context(), owner)
		if err != nil {
			respondError(c, OpList, err)
			return
		}
		resp := make([]NoteResponse, len(notes))
		for i := range notes {
			resp[i] = toResponseWithContent(&notes[i])
		}
		c.JSON(http.StatusOK, resp)
		return
	}

	notes, err := h.svc.List(c.Request.Context(), owner)
	if err != nil {
		respondError(c, OpList, err)
		return
	}
	resp := make([]NoteResponse, len(notes))
	for i := range notes {
		resp[i] = toResponse(&notes[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Create(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	body, ok := h.bindNote(c)
	if !ok {
		return
	}

	n, err := h.svc.Create(c.Request.Context(), owner, body.Title, []byte(body.Content))
	if err != nil {
		respondError(c, OpCreate, err)
		return
	}
	resp := toResponse(n)
	resp.Content = &body.Content
	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Read(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}

	n, err := h.svc.Read(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		respondError(c, OpRead, err)
		return
	}
	c.JSON(http.StatusOK, toResponseWithContent(n))
}

// ReadHTML 返回渲染后的正文
func (h *Handler) ReadHTML(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}

	n, err := h.svc.Read(c.Request.Context(), c.Param("id"), owner)
	if err != nil {
		respondError(c, OpRead, err)
		return
	}
	html, err := h.renderer.Render(n.Content)
	if err != nil {
		logging.Log.Error().Err(err).Str("note", n.ID).Msg("渲染笔记失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "渲染失败"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

func (h *Handler) Update(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}
	body, ok := h.bindNote(c)
	if !ok {
		return
	}

	n, err := h.svc.Update(c.Request.Context(), c.Param("id"), owner, body.Title, []byte(body.Content))
	if err != nil {
		respondError(c, OpUpdate, err)
		return
	}
	resp := toResponse(n)
	resp.Content = &body.Content
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Delete(c *gin.Context) {
	owner, ok := ownerFrom(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), owner); err != nil {
		respondError(c, OpDelete, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Preview 渲染未保存的正文
func (h *Handler) Preview(c *gin.Context) {
	var body previewRequest
	if !h.bindLimited(c, &body) {
		return
	}
	html, err := h.renderer.Render([]byte(body.Content))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "渲染失败"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
