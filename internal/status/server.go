package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/danmuck/taskrunner/internal/observability"
	"github.com/danmuck/taskrunner/internal/protocol/record"
	"github.com/danmuck/taskrunner/internal/registry"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	Version      = "0.1.0"
	queryTimeout = 2 * time.Second
)

// TaskView is the JSON form of one registered task.
type TaskView struct {
	Name    string   `json:"name"`
	Depends []string `json:"depends"`
	Args    []string `json:"args"`
}

func NewTaskView(t record.Task) TaskView {
	depends := t.Depends
	if depends == nil {
		depends = []string{}
	}
	return TaskView{Name: t.Name, Depends: depends, Args: t.ArgStrings()}
}

// Server is a read-only HTTP view of the registry.
type Server struct {
	ID      string
	Started time.Time

	owner  *registry.Owner
	router *gin.Engine
}

func New(id string, owner *registry.Owner) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	// Task names may contain '/', so /tasks/:name matches the escaped path.
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))

	s := &Server{
		ID:      id,
		Started: time.Now(),
		owner:   owner,
		router:  r,
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
		defer cancel()
		if err := s.owner.Sync(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"uptime":  time.Since(s.Started).String(),
			"service": s.ID,
			"version": Version,
		})
	})

	s.router.GET("/tasks", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
		defer cancel()
		list, err := s.owner.Snapshot(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		views := make([]TaskView, 0, len(list))
		for _, t := range list {
			views = append(views, NewTaskView(t))
		}
		c.JSON(http.StatusOK, gin.H{"tasks": views})
	})

	s.router.GET("/tasks/:name", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), queryTimeout)
		defer cancel()
		task, ok, err := s.owner.Get(ctx, c.Param("name"))
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		c.JSON(http.StatusOK, NewTaskView(task))
	})
}

// Serve answers status requests on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
