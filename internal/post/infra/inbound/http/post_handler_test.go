package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/postlab/internal/post/application"
	"github.com/davicafu/postlab/internal/post/domain"
	postMemory "github.com/davicafu/postlab/internal/post/infra/outbound/db/memory"
	sharedDomain "github.com/davicafu/postlab/internal/shared/domain"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
	"github.com/davicafu/postlab/tests/mocks"
)

type pageBody struct {
	Items      []domain.Post `json:"items"`
	NextCursor *string       `json:"nextCursor"`
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupRouter(repo domain.PostRepository) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	service := application.NewPostService(repo, nil, zap.NewNop())
	RegisterPostRoutes(r, NewPostHandler(service, zap.NewNop()))
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedPosts(t *testing.T, repo *postMemory.PostRepoMemory, author uuid.UUID, n int, at time.Time) {
	t.Helper()
	for i := 1; i <= n; i++ {
		p := &domain.Post{
			AuthorID: author, CategoryID: 1,
			Title: fmt.Sprintf("post %02d", i), Description: "d", Body: "b",
			Tags: []string{}, CreatedAt: at, UpdatedAt: at,
		}
		require.NoError(t, repo.Create(context.Background(), p, func(p *domain.Post) sharedDomain.OutboxEvent {
			return sharedDomain.NewOutboxEvent(domain.PostAggregateType, fmt.Sprint(p.ID), domain.PostCreated, p.CreatedEvent())
		}))
	}
}

func TestHealth(t *testing.T) {
	r := setupRouter(postMemory.NewPostRepoMemory())
	w := do(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSearchPosts_FollowsCursorThroughTies(t *testing.T) {
	repo := postMemory.NewPostRepoMemory()
	seedPosts(t, repo, uuid.New(), 25, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	r := setupRouter(repo)

	var got [][]int64
	path := "/api/public/posts/search?limit=10&sortBy=createdAt&sortOrder=ASC"
	for i := 0; i < 5; i++ {
		w := do(r, http.MethodPost, path, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var page pageBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
		var ids []int64
		for _, p := range page.Items {
			ids = append(ids, p.ID)
		}
		got = append(got, ids)
		if page.NextCursor == nil {
			break
		}
		path = "/api/public/posts/search?limit=10&sortBy=createdAt&sortOrder=ASC&cursor=" + url.QueryEscape(*page.NextCursor)
	}

	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, got[0])
	assert.Equal(t, []int64{11, 12, 13, 14, 15, 16, 17, 18, 19, 20}, got[1])
	assert.Equal(t, []int64{21, 22, 23, 24, 25}, got[2])
}

func TestSearchPosts_EmptyResult(t *testing.T) {
	r := setupRouter(postMemory.NewPostRepoMemory())
	w := do(r, http.MethodPost, "/api/public/posts/search", `{"searchText":"nada"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"nextCursor":null}`, w.Body.String())
}

func TestSearchPosts_DefaultLimitAndLowercaseOrder(t *testing.T) {
	repo := postMemory.NewPostRepoMemory()
	seedPosts(t, repo, uuid.New(), 12, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	r := setupRouter(repo)

	w := do(r, http.MethodPost, "/api/public/posts/search?sortOrder=asc", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page pageBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, pagination.DefaultLimit)
	assert.Equal(t, int64(1), page.Items[0].ID)
	assert.NotNil(t, page.NextCursor)
}

func TestSearchPosts_ClientErrors(t *testing.T) {
	r := setupRouter(postMemory.NewPostRepoMemory())

	tests := []struct {
		name string
		path string
		body string
		code string
	}{
		{name: "cursor malformado", path: "?cursor=not-base64!!", code: pagination.CodeInvalidCursor},
		{name: "campo de orden", path: "?sortBy=body", code: pagination.CodeInvalidSortField},
		{name: "límite excesivo", path: "?limit=5000", code: pagination.CodeInvalidPagination},
		{name: "límite cero", path: "?limit=0", code: pagination.CodeInvalidPagination},
		{name: "límite negativo", path: "?limit=-1", code: pagination.CodeInvalidPagination},
		{name: "límite no numérico", path: "?limit=abc", code: pagination.CodeInvalidPagination},
		{name: "dirección", path: "?sortOrder=UP", code: pagination.CodeInvalidPagination},
		{name: "campo desconocido", path: "", body: `{"foo":1}`, code: "VALIDATION_ERROR"},
		{name: "autor inválido", path: "", body: `{"authorIds":["x"]}`, code: "VALIDATION_ERROR"},
		{name: "categoría negativa", path: "", body: `{"categoryIds":[-1]}`, code: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/api/public/posts/search"+tt.path, tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var body errorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestSearchPosts_CursorMismatch(t *testing.T) {
	repo := postMemory.NewPostRepoMemory()
	seedPosts(t, repo, uuid.New(), 3, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	r := setupRouter(repo)

	w := do(r, http.MethodPost, "/api/public/posts/search?limit=1&sortBy=title", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page pageBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.NotNil(t, page.NextCursor)

	w = do(r, http.MethodPost, "/api/public/posts/search?sortBy=createdAt&cursor="+url.QueryEscape(*page.NextCursor), "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, pagination.CodeCursorMismatch, body.Error.Code)
}

func TestSearchPosts_StoreErrorIs500(t *testing.T) {
	repo := new(mocks.MockPostRepository)
	repo.On("Search", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))
	r := setupRouter(repo)

	w := do(r, http.MethodPost, "/api/public/posts/search", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestUserPostsCRUD(t *testing.T) {
	repo := postMemory.NewPostRepoMemory()
	r := setupRouter(repo)
	user := uuid.New()
	base := "/api/v1/users/" + user.String() + "/posts"

	// Crear
	w := do(r, http.MethodPost, base, `{"title":"Hola","description":"d","body":"b","tags":["go"],"categoryId":2}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, user, created.AuthorID)
	postPath := fmt.Sprintf("%s/%d", base, created.ID)
	assert.Equal(t, postPath, w.Header().Get("Location"))

	// Leer
	w = do(r, http.MethodGet, postPath, "")
	require.Equal(t, http.StatusOK, w.Code)

	// Otro usuario no lo ve
	other := fmt.Sprintf("/api/v1/users/%s/posts/%d", uuid.New(), created.ID)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, other, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPatch, other, `{"title":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, other, "").Code)

	// Actualizar
	w = do(r, http.MethodPatch, postPath, `{"title":"Adiós"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Adiós", updated.Title)
	assert.Equal(t, "d", updated.Description)

	// Buscar los del usuario
	w = do(r, http.MethodPost, base+"/search", `{"searchText":"adi"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var page pageBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)

	// Borrar
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, postPath, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, postPath, "").Code)

	assert.Len(t, repo.Outbox(), 3)
}

func TestUserPosts_BadInput(t *testing.T) {
	r := setupRouter(postMemory.NewPostRepoMemory())
	user := uuid.New().String()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"usuario inválido", http.MethodPost, "/api/v1/users/nope/posts", `{"title":"a","description":"d","body":"b","categoryId":1}`},
		{"id inválido", http.MethodGet, "/api/v1/users/" + user + "/posts/abc", ""},
		{"falta título", http.MethodPost, "/api/v1/users/" + user + "/posts", `{"description":"d","body":"b","categoryId":1}`},
		{"cuerpo vacío", http.MethodPost, "/api/v1/users/" + user + "/posts", ""},
		{"campo desconocido", http.MethodPost, "/api/v1/users/" + user + "/posts", `{"title":"a","description":"d","body":"b","categoryId":1,"x":1}`},
		{"título vacío en patch", http.MethodPatch, "/api/v1/users/" + user + "/posts/1", `{"title":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}
