package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"

	"github.com/LJTian/FeedBot/internal/publisher"
	"github.com/LJTian/FeedBot/internal/storage"
	"github.com/gin-gonic/gin"
)

// PostStore 查询发布记录
type PostStore interface {
	ListPosts(limit int, date string) ([]storage.Post, error)
	ListPublishedDates(limit int) ([]string, error)
	ListSources() ([]storage.Source, error)
}

// Runner 手动触发一轮发布
type Runner interface {
	RunOnce(ctx context.Context) error
}

type Server struct {
	store   PostStore
	runner  Runner
	profile publisher.Profile
}

func NewServer(store PostStore, runner Runner, profile publisher.Profile) *Server {
	return &Server{store: store, runner: runner, profile: profile}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/bot", s.bot)
		v1.GET("/posts", s.listPosts)
		v1.GET("/dates", s.listDates)
		v1.GET("/sources", s.listSources)
		v1.POST("/runs", s.triggerRun)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) bot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    s.profile,
	})
}

func (s *Server) listPosts(c *gin.Context) {
	limit := queryInt(c, "limit", 20)
	date := c.Query("date")

	items, err := s.store.ListPosts(limit, date)
	if err != nil {
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

func (s *Server) listDates(c *gin.Context) {
	dates, err := s.store.ListPublishedDates(queryInt(c, "limit", 31))
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    dates,
	})
}

func (s *Server) listSources(c *gin.Context) {
	sources, err := s.store.ListSources()
	if err != nil {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    sources,
	})
}

func (s *Server) triggerRun(c *gin.Context) {
	if err := s.runner.RunOnce(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "run_failed",
			"message": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
	})
}

func queryInt(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}

// BasicAuthMiddleware 为整个站点增加一个简单的 Basic Auth 访问密码。
// /health 不做认证，便于健康检查。
func BasicAuthMiddleware(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
