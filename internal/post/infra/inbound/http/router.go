package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterPostRoutes registra las rutas HTTP para el dominio de Posts.
func RegisterPostRoutes(r *gin.Engine, handler *PostHandler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	public := r.Group("/api/public/posts")
	{
		public.POST("/search", handler.SearchPosts) // Búsqueda paginada de todos los posts
	}

	// Posts de un usuario
	user := r.Group("/api/v1/users/:userId/posts")
	{
		user.POST("", handler.CreatePost)
		user.POST("/search", handler.SearchUserPosts)
		user.GET("/:id", handler.GetPost)
		user.PATCH("/:id", handler.UpdatePost)
		user.DELETE("/:id", handler.DeletePost)
	}
}
