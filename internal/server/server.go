// Package server exposes the catalog over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kamusis/pcapcat/internal/catalog"
	"github.com/kamusis/pcapcat/internal/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const pcapContentType = "application/vnd.tcpdump.pcap"

// Catalog is the subset of *catalog.Catalog the HTTP layer needs.
type Catalog interface {
	Reindex(ctx context.Context, exclude []string) (*catalog.BuildResult, error)
	Search(ctx context.Context, protocol string) ([]catalog.Record, error)
	Resolve(filename string) (string, error)
}

var _ Catalog = (*catalog.Catalog)(nil)

// Server routes HTTP requests to a Catalog.
type Server struct {
	Name     string
	Version  string
	Addr     string
	Appeared time.Time

	catalog Catalog
	router  *gin.Engine
	log     zerolog.Logger
}

// New builds a Server with recovery, request logging, metrics and CORS
// middleware installed. Routes are registered by RegisterRoutes.
func New(name, version, addr string, c Catalog, corsOrigins []string, logger zerolog.Logger) (*Server, error) {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.RequestMetricsMiddleware())
	if len(corsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: corsOrigins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}
	if err := r.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
		return nil, fmt.Errorf("set trusted proxies: %w", err)
	}

	return &Server{
		Name:     name,
		Version:  version,
		Addr:     addr,
		Appeared: time.Now(),
		catalog:  c,
		router:   r,
		log:      logger,
	}, nil
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.POST("/reindex", s.handleReindex)
	s.router.GET("/search", s.handleSearch)
	s.router.GET("/pcaps/:filename", s.handleDownload)
}

// Serve registers routes and listens on s.Addr until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.RegisterRoutes()
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.Appeared).String(),
		"service": s.Name,
		"version": s.Version,
	})
}

func (s *Server) handleReindex(c *gin.Context) {
	exclude := c.QueryArray("exclude")
	res, err := s.catalog.Reindex(c.Request.Context(), exclude)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, catalog.ErrBuildInProgress) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"indexed_files": res.Indexed,
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	protocol, ok := c.GetQuery("protocol")
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": "query parameter 'protocol' is required"})
		return
	}
	records, err := s.catalog.Search(c.Request.Context(), protocol)
	if err != nil {
		if errors.Is(err, catalog.ErrIndexNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"detail": "Index not found. Please run the /reindex endpoint first.",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) handleDownload(c *gin.Context) {
	name := c.Param("filename")
	path, err := s.catalog.Resolve(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "File not found."})
		return
	}
	c.Header("Content-Type", pcapContentType)
	c.FileAttachment(path, name)
}
