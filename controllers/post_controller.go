package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/anonbbs/attachments"
	"github.com/cppla/anonbbs/service"
	"github.com/cppla/anonbbs/utils"
)

// Notice is the optional banner shown above the feed.
type Notice struct {
	Title string
	HTML  string
}

// PostController serves the board pages and their JSON mirror.
type PostController struct {
	board  *service.BoardService
	notice Notice
}

// NewPostController creates a new PostController instance.
func NewPostController(board *service.BoardService, notice Notice) *PostController {
	return &PostController{board: board, notice: notice}
}

// Index renders one page of the feed.
func (p *PostController) Index(ctx *gin.Context) {
	page, _ := parsePagination(ctx.Query("page"), "")
	threads, err := p.board.ListThreadsPage(ctx.Request.Context(), page, 0)
	if err != nil {
		renderError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "index.html", gin.H{
		"Page":   threads,
		"Notice": p.notice,
		"Accept": acceptAttr(),
	})
}

// Submit creates a thread from the feed form and redirects back to the feed.
func (p *PostController) Submit(ctx *gin.Context) {
	upload, release, err := readUpload(ctx)
	if err != nil {
		renderError(ctx, err)
		return
	}
	defer release()

	if _, err := p.board.CreateThread(ctx.Request.Context(), ctx.PostForm("content"), upload); err != nil {
		renderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusSeeOther, "/")
}

// SubmitReply appends a reply and redirects to the thread page.
func (p *PostController) SubmitReply(ctx *gin.Context) {
	parentID, ok := parseID(ctx.Param("parent_id"))
	if !ok {
		renderError(ctx, service.ErrNotFound)
		return
	}
	content, err := formValue(ctx, "content")
	if err != nil {
		renderError(ctx, err)
		return
	}
	if _, err := p.board.CreateReply(ctx.Request.Context(), parentID, content); err != nil {
		renderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusSeeOther, fmt.Sprintf("/reply/%d", parentID))
}

// Thread renders a root post with its replies.
func (p *PostController) Thread(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("post_id"))
	if !ok {
		renderError(ctx, service.ErrNotFound)
		return
	}
	thread, err := p.board.GetThread(ctx.Request.Context(), id)
	if err != nil {
		renderError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "thread.html", thread)
}

// ListThreads returns one feed page as JSON.
func (p *PostController) ListThreads(ctx *gin.Context) {
	page, size := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	threads, err := p.board.ListThreadsPage(ctx.Request.Context(), page, size)
	if err != nil {
		apiError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"items":     threads.Threads,
		"page":      threads.Page,
		"page_size": threads.Size,
		"next_page": threads.NextPage(),
	})
}

// CreateThread accepts a multipart form with content and an optional file.
func (p *PostController) CreateThread(ctx *gin.Context) {
	upload, release, err := readUpload(ctx)
	if err != nil {
		apiError(ctx, err)
		return
	}
	defer release()

	result, err := p.board.CreateThread(ctx.Request.Context(), ctx.PostForm("content"), upload)
	if err != nil {
		apiError(ctx, err)
		return
	}
	data := gin.H{"post": result.Post}
	if result.Rejection != nil {
		data["attachment_rejected"] = result.Rejection.Reason
	}
	utils.Created(ctx, data)
}

// GetThread returns a root post with its replies.
func (p *PostController) GetThread(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid thread id")
		return
	}
	thread, err := p.board.GetThread(ctx.Request.Context(), id)
	if err != nil {
		apiError(ctx, err)
		return
	}
	utils.Success(ctx, thread)
}

// CreateReply accepts {"content": "..."} or a form field named content.
func (p *PostController) CreateReply(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid thread id")
		return
	}

	var content string
	if strings.HasPrefix(ctx.ContentType(), "application/json") {
		var req struct {
			Content string `json:"content"`
		}
		if err := ctx.ShouldBindJSON(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				apiError(ctx, err)
				return
			}
			utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
			return
		}
		content = req.Content
	} else {
		var err error
		if content, err = formValue(ctx, "content"); err != nil {
			apiError(ctx, err)
			return
		}
	}

	reply, err := p.board.CreateReply(ctx.Request.Context(), id, content)
	if err != nil {
		apiError(ctx, err)
		return
	}
	utils.Created(ctx, reply)
}

// readUpload returns the optional "file" part. A request without a file, or
// one that is not multipart at all, yields a nil upload. release must be
// called once the upload has been consumed.
func readUpload(ctx *gin.Context) (*attachments.Upload, func(), error) {
	noop := func() {}
	header, err := ctx.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, noop, err
		}
		return nil, noop, fmt.Errorf("%w: malformed form: %v", service.ErrValidation, err)
	}
	file, err := header.Open()
	if err != nil {
		return nil, noop, fmt.Errorf("open upload: %w", err)
	}
	upload := &attachments.Upload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     file,
	}
	return upload, func() { _ = file.Close() }, nil
}

// formValue parses urlencoded bodies explicitly so an oversize body is
// reported instead of silently reading as empty.
func formValue(ctx *gin.Context, key string) (string, error) {
	if err := ctx.Request.ParseForm(); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", err
		}
		return "", fmt.Errorf("%w: malformed form: %v", service.ErrValidation, err)
	}
	return ctx.PostForm(key), nil
}

// statusFor maps a board error to an HTTP status, an envelope code and a
// message safe to show to the client.
func statusFor(err error) (int, int, string) {
	var maxErr *http.MaxBytesError
	var rej *attachments.RejectionError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, 41300, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, 40000, err.Error()
	case errors.As(err, &rej):
		return http.StatusUnsupportedMediaType, 41500, rej.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, 40400, "thread not found"
	default:
		return http.StatusInternalServerError, 50000, "internal server error"
	}
}

func renderError(ctx *gin.Context, err error) {
	status, _, message := statusFor(err)
	ctx.HTML(status, "error.html", gin.H{"Status": status, "Message": message})
	ctx.Abort()
}

func apiError(ctx *gin.Context, err error) {
	status, code, message := statusFor(err)
	utils.Error(ctx, status, code, message)
}

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 0
	if p, err := strconv.Atoi(pageStr); err == nil {
		page = service.ClampPage(p)
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= service.MaxPageSize {
		pageSize = s
	}
	return page, pageSize
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func acceptAttr() string {
	exts := attachments.AllowedExtensions()
	for i, e := range exts {
		exts[i] = "." + e
	}
	return strings.Join(exts, ",")
}
