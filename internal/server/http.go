// Package server exposes the tool catalogue over HTTP (REST) and over the
// MCP protocol (stdio and SSE), sharing one dispatcher for auth, group
// injection and validation.
package server

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/auth"
	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/render"
	"github.com/gofr-hq/gofr-doc/internal/tools"
)

// Options configure the HTTP surface.
type Options struct {
	AllowedOrigins []string
	StockDir       string
	Logger         logging.Logger
}

// Server bundles the REST router and its collaborators.
type Server struct {
	dispatcher *tools.Dispatcher
	auth       *auth.Service
	renderer   *render.Pipeline
	opts       Options
	metrics    *metrics
	logger     logging.Logger
}

// New builds the HTTP server facade.
func New(dispatcher *tools.Dispatcher, authService *auth.Service, renderer *render.Pipeline, opts Options) *Server {
	return &Server{
		dispatcher: dispatcher,
		auth:       authService,
		renderer:   renderer,
		opts:       opts,
		metrics:    newMetrics(),
		logger:     logging.OrNop(opts.Logger),
	}
}

// dispatch invokes a catalogue tool with the request body merged with path
// parameters and writes the uniform envelope.
func (s *Server) dispatch(tool string, pathArgs func(*gin.Context) map[string]any) gin.HandlerFunc {
	return func(c *gin.Context) {
		args := map[string]any{}
		if c.Request.Body != nil && c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&args); err != nil {
				resp := apperr.ToResponse(apperr.New(apperr.CodeInvalidArguments, "request body is not valid JSON"))
				c.JSON(http.StatusBadRequest, resp)
				return
			}
		}
		if pathArgs != nil {
			for k, v := range pathArgs(c) {
				args[k] = v
			}
		}
		payload, status := s.dispatcher.Dispatch(c.Request.Context(), tool, args, c.GetHeader("Authorization"))
		if tool == "get_document" && status == http.StatusOK {
			format, _ := args["format"].(string)
			if format == "" {
				format = "html"
			}
			s.metrics.renders.WithLabelValues(format).Inc()
		}
		c.JSON(status, payload)
	}
}

func sessionArg(c *gin.Context) map[string]any {
	return map[string]any{"session_id": c.Param("id")}
}

// Router assembles the REST surface mirroring the tool catalogue.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.metrics.middleware())

	corsConfig := cors.DefaultConfig()
	if len(s.opts.AllowedOrigins) == 0 || (len(s.opts.AllowedOrigins) == 1 && s.opts.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.opts.AllowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/ping", s.dispatch("ping", nil))
	router.GET("/help", s.dispatch("help", nil))
	router.GET("/metrics", s.metrics.handler())

	router.GET("/templates", s.dispatch("list_templates", nil))
	router.GET("/templates/:id", s.dispatch("get_template_details", func(c *gin.Context) map[string]any {
		return map[string]any{"template_id": c.Param("id")}
	}))
	router.GET("/templates/:id/fragments", s.dispatch("list_template_fragments", func(c *gin.Context) map[string]any {
		return map[string]any{"template_id": c.Param("id")}
	}))
	router.GET("/templates/:id/fragments/:fid", s.dispatch("get_fragment_details", func(c *gin.Context) map[string]any {
		return map[string]any{"template_id": c.Param("id"), "fragment_id": c.Param("fid")}
	}))
	router.GET("/styles", s.dispatch("list_styles", nil))

	router.POST("/sessions", s.dispatch("create_document_session", nil))
	router.GET("/sessions", s.dispatch("list_active_sessions", nil))
	router.GET("/sessions/:id", s.dispatch("get_session_status", sessionArg))
	router.DELETE("/sessions/:id", s.dispatch("abort_document_session", sessionArg))
	router.POST("/sessions/:id/parameters", s.dispatch("set_global_parameters", sessionArg))
	router.POST("/sessions/:id/fragments", s.dispatch("add_fragment", sessionArg))
	router.POST("/sessions/:id/fragments/images", s.dispatch("add_image_fragment", sessionArg))
	router.DELETE("/sessions/:id/fragments/:guid", s.dispatch("remove_fragment", func(c *gin.Context) map[string]any {
		return map[string]any{"session_id": c.Param("id"), "instance_guid": c.Param("guid")}
	}))
	router.GET("/sessions/:id/fragments", s.dispatch("list_session_fragments", sessionArg))
	router.POST("/sessions/:id/render", s.dispatch("get_document", sessionArg))
	router.POST("/validate", s.dispatch("validate_parameters", nil))

	router.POST("/graphs", s.dispatch("render_graph", nil))
	router.GET("/graphs/:id", s.dispatch("get_image", func(c *gin.Context) map[string]any {
		return map[string]any{"identifier": c.Param("id")}
	}))
	router.GET("/graphs", s.dispatch("list_images", nil))
	router.GET("/themes", s.dispatch("list_themes", nil))
	router.GET("/handlers", s.dispatch("list_handlers", nil))

	router.GET("/proxy/:guid", s.serveProxy)
	// One wildcard route serves both the listing ("/images/") and the files;
	// gin's tree cannot hold "/images" and "/images/*path" side by side.
	router.GET("/images/*path", s.stockImages)

	return router
}

// serveProxy streams a stored rendered document after the group check.
func (s *Server) serveProxy(c *gin.Context) {
	token := auth.ResolveToken(nil, c.GetHeader("Authorization"))
	info, err := s.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		s.writeError(c, err)
		return
	}

	data, mediaType, err := s.renderer.ProxyBytes(c.Request.Context(), c.Param("guid"), info.Group)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, mediaType, data)
}

func (s *Server) writeError(c *gin.Context, err error) {
	resp := apperr.ToResponse(err)
	c.JSON(apperr.HTTPStatus(resp.ErrorCode), resp)
}

// stockImages lists the stock directory for an empty path and serves a file
// otherwise. Paths escaping the stock root are rejected before touching the
// filesystem.
func (s *Server) stockImages(c *gin.Context) {
	rel := strings.TrimPrefix(c.Param("path"), "/")
	if rel == "" {
		s.listStockImages(c)
		return
	}
	if s.opts.StockDir == "" {
		s.writeError(c, apperr.New(apperr.CodeNotFound, "no stock image directory configured"))
		return
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		s.writeError(c, apperr.New(apperr.CodeNotFound, "image not found"))
		return
	}

	full := filepath.Join(s.opts.StockDir, clean)
	f, err := os.Open(full)
	if err != nil {
		s.writeError(c, apperr.New(apperr.CodeNotFound, "image not found"))
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.writeError(c, apperr.New(apperr.CodeNotFound, "image not found"))
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	http.ServeContent(c.Writer, c.Request, filepath.Base(full), info.ModTime(), f)
}

func (s *Server) listStockImages(c *gin.Context) {
	images := []string{}
	if s.opts.StockDir != "" {
		root := s.opts.StockDir
		filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil || info.IsDir() {
				return nil
			}
			if rel, relErr := filepath.Rel(root, path); relErr == nil {
				images = append(images, filepath.ToSlash(rel))
			}
			return nil
		})
		sort.Strings(images)
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}
