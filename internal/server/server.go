package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 10 * time.Second

// Run serves the REST API on addr until ctx is cancelled, then drains
// in-flight requests before returning.
func (s *Server) Run(ctx context.Context, addr string) error {
	return s.run(ctx, addr, s.Router())
}

// RunWithMCP serves the REST API with the MCP SSE transport mounted at
// /mcp/sse and /mcp/message on the same listener.
func (s *Server) RunWithMCP(ctx context.Context, addr string, mcp *MCPServer, baseURL string) error {
	router := s.Router()
	sse, message := mcp.SSEHandlers(baseURL)
	router.GET("/mcp/sse", func(c *gin.Context) { sse.ServeHTTP(c.Writer, c.Request) })
	router.POST("/mcp/message", func(c *gin.Context) { message.ServeHTTP(c.Writer, c.Request) })
	return s.run(ctx, addr, router)
}

func (s *Server) run(ctx context.Context, addr string, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		s.logger.Info("http server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		s.logger.Info("http server shutting down")
		return httpServer.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
