package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"allday/app"
	"allday/domain/core"
	"allday/domain/run"
	"allday/internal"
	"allday/internal/errors"
	"allday/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ResultReader serves materialized results
type ResultReader interface {
	Lookup(ctx context.Context, canonical string) (*run.Result, error)
	Keys(ctx context.Context, kind string) ([]string, error)
}

// PackDrawer serves bundles from the sample banks
type PackDrawer interface {
	Draw(packType string) (*app.Draw, error)
	DrawAt(packType string, index int) (*app.Draw, error)
	BankDraw(ctx context.Context, id core.BankID, index int) (*app.Draw, error)
	Values() []app.PackValue
}

// Server is the read-only HTTP surface over results and sample banks
type Server struct {
	router  *gin.Engine
	results ResultReader
	packs   PackDrawer
	logger  *internal.Logger
}

// NewServer creates a server and registers its routes
func NewServer(results ResultReader, packs PackDrawer, logger *internal.Logger) *Server {
	s := &Server{
		router:  gin.New(),
		results: results,
		packs:   packs,
		logger:  logger.WithComponent("api"),
	}
	s.router.Use(gin.Recovery(), s.observe())
	s.setupRoutes()
	return s
}

// Handler exposes the router, e.g. for http.Server or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/keys", s.listResults)
	s.router.GET("/results/*key", s.getResult)

	packs := s.router.Group("/packs")
	packs.GET("", s.packValues)
	packs.GET("/:type/draw", s.draw)
	packs.GET("/:type/draws/:index", s.drawAt)

	s.router.GET("/banks/:id/draws/:index", s.bankDraw)
}

// observe records request counts and latency by route template
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.ObserveRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
		s.logger.Debug("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": errors.GetCode(err)})
}

func (s *Server) listResults(c *gin.Context) {
	keys, err := s.results.Keys(c.Request.Context(), c.Query("kind"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys, "count": len(keys)})
}

func (s *Server) getResult(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		s.fail(c, errors.InvalidInput("result key is required"))
		return
	}
	res, err := s.results.Lookup(c.Request.Context(), key)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) packValues(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"packs": s.packs.Values()})
}

func (s *Server) draw(c *gin.Context) {
	d, err := s.packs.Draw(c.Param("type"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func index(c *gin.Context) (int, error) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil || i < 0 {
		return 0, errors.InvalidInput("index must be a non-negative integer")
	}
	return i, nil
}

func (s *Server) drawAt(c *gin.Context) {
	i, err := index(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	d, err := s.packs.DrawAt(c.Param("type"), i)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) bankDraw(c *gin.Context) {
	id, err := core.ParseBankID(c.Param("id"))
	if err != nil {
		s.fail(c, errors.InvalidInput("bank id must be a UUID"))
		return
	}
	i, err := index(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	d, err := s.packs.BankDraw(c.Request.Context(), id, i)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Run serves on addr until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
