package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/postlab/internal/post/application"
	"github.com/davicafu/postlab/internal/post/domain"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
	"github.com/davicafu/postlab/pkg/utils"
)

// PostHandler encapsula los endpoints HTTP relacionados con Post.
type PostHandler struct {
	service *application.PostService
	log     *zap.Logger
}

func NewPostHandler(service *application.PostService, log *zap.Logger) *PostHandler {
	return &PostHandler{service: service, log: log}
}

// --- Cuerpos de petición ---

type createPostRequest struct {
	Title       string   `json:"title" binding:"required,max=255"`
	Description string   `json:"description" binding:"required"`
	Body        string   `json:"body" binding:"required"`
	Tags        []string `json:"tags" binding:"omitempty,dive,max=64"`
	CategoryID  int64    `json:"categoryId" binding:"required,gt=0"`
}

type updatePostRequest struct {
	Title       *string   `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string   `json:"description" binding:"omitempty,min=1"`
	Body        *string   `json:"body" binding:"omitempty,min=1"`
	Tags        *[]string `json:"tags" binding:"omitempty,dive,max=64"`
	CategoryID  *int64    `json:"categoryId" binding:"omitempty,gt=0"`
}

type searchRequest struct {
	AuthorIDs   []uuid.UUID `json:"authorIds"`
	CategoryIDs []int64     `json:"categoryIds" binding:"omitempty,dive,gt=0"`
	SearchText  string      `json:"searchText" binding:"omitempty,max=255"`
}

func (r searchRequest) filter() domain.SearchFilter {
	return domain.SearchFilter{AuthorIDs: r.AuthorIDs, CategoryIDs: r.CategoryIDs, SearchText: r.SearchText}
}

// bindStrictJSON rechaza campos desconocidos y valida con las reglas de gin.
// Un cuerpo vacío solo se acepta si allowEmpty.
func bindStrictJSON(c *gin.Context, dst interface{}, allowEmpty bool) error {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if allowEmpty {
			return binding.Validator.ValidateStruct(dst)
		}
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return binding.Validator.ValidateStruct(dst)
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		utils.SendBadRequest(c, utils.CodeValidation, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func parsePostID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		utils.SendBadRequest(c, utils.CodeValidation, "invalid post id")
		return 0, false
	}
	return id, true
}

// paginationQuery es la query string de las búsquedas. Limit es puntero para
// distinguir "limit=0" (inválido) de un limit ausente (valor por defecto).
type paginationQuery struct {
	Cursor    string `form:"cursor"`
	SortBy    string `form:"sortBy"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=ASC DESC asc desc"`
	Limit     *int   `form:"limit" binding:"omitempty,min=1,max=1000"`
}

func bindPagination(c *gin.Context) (pagination.Request, bool) {
	var q paginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.SendBadRequest(c, pagination.CodeInvalidPagination, err.Error())
		return pagination.Request{}, false
	}
	req := pagination.Request{
		Cursor:    q.Cursor,
		SortBy:    q.SortBy,
		SortOrder: pagination.Direction(q.SortOrder),
	}
	if q.Limit != nil {
		req.Limit = *q.Limit
	}
	return req, true
}

// handleError traduce errores de dominio y del motor de paginación a HTTP.
func (h *PostHandler) handleError(c *gin.Context, err error) {
	switch {
	case pagination.IsClientError(err):
		utils.SendBadRequest(c, pagination.Code(err), err.Error())
	case errors.Is(err, domain.ErrInvalidPost):
		utils.SendBadRequest(c, utils.CodeValidation, err.Error())
	case errors.Is(err, domain.ErrPostNotFound):
		utils.SendNotFound(c, "post not found")
	default:
		_ = c.Error(err)
		h.log.Error("Unhandled post error", zap.String("path", c.FullPath()), zap.Error(err))
		utils.SendInternalServerError(c, "internal server error")
	}
}

// --- Handlers ---

// SearchPosts endpoint POST /api/public/posts/search
func (h *PostHandler) SearchPosts(c *gin.Context) {
	req, ok := bindPagination(c)
	if !ok {
		return
	}
	var body searchRequest
	if err := bindStrictJSON(c, &body, true); err != nil {
		utils.SendBadRequest(c, utils.CodeValidation, err.Error())
		return
	}

	page, err := h.service.SearchPosts(c.Request.Context(), body.filter(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SearchUserPosts endpoint POST /api/v1/users/:userId/posts/search
func (h *PostHandler) SearchUserPosts(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	req, ok := bindPagination(c)
	if !ok {
		return
	}
	var body searchRequest
	if err := bindStrictJSON(c, &body, true); err != nil {
		utils.SendBadRequest(c, utils.CodeValidation, err.Error())
		return
	}

	page, err := h.service.SearchUserPosts(c.Request.Context(), userID, body.filter(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreatePost endpoint POST /api/v1/users/:userId/posts
func (h *PostHandler) CreatePost(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	var req createPostRequest
	if err := bindStrictJSON(c, &req, false); err != nil {
		utils.SendBadRequest(c, utils.CodeValidation, err.Error())
		return
	}

	post, err := h.service.CreatePost(c.Request.Context(), userID, domain.PostInput{
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		Tags:        req.Tags,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/users/%s/posts/%d", userID, post.ID))
	c.JSON(http.StatusCreated, post)
}

// GetPost endpoint GET /api/v1/users/:userId/posts/:id
func (h *PostHandler) GetPost(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	post, err := h.service.GetPost(c.Request.Context(), id)
	if err == nil && post.AuthorID != userID {
		err = domain.ErrPostNotFound
	}
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// UpdatePost endpoint PATCH /api/v1/users/:userId/posts/:id
func (h *PostHandler) UpdatePost(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	id, ok := parsePostID(c)
	if !ok {
		return
	}
	var req updatePostRequest
	if err := bindStrictJSON(c, &req, false); err != nil {
		utils.SendBadRequest(c, utils.CodeValidation, err.Error())
		return
	}

	post, err := h.service.UpdatePost(c.Request.Context(), id, userID, domain.PostPatch{
		Title:       req.Title,
		Description: req.Description,
		Body:        req.Body,
		Tags:        req.Tags,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost endpoint DELETE /api/v1/users/:userId/posts/:id
func (h *PostHandler) DeletePost(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePost(c.Request.Context(), id, userID); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
