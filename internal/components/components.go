// Package components wires the service together from configuration. Every
// long-lived collaborator is constructed exactly once here and handed to the
// transports.
package components

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofr-hq/gofr-doc/internal/auth"
	"github.com/gofr-hq/gofr-doc/internal/config"
	"github.com/gofr-hq/gofr-doc/internal/housekeeper"
	"github.com/gofr-hq/gofr-doc/internal/imagecheck"
	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/plot"
	"github.com/gofr-hq/gofr-doc/internal/registry"
	"github.com/gofr-hq/gofr-doc/internal/render"
	"github.com/gofr-hq/gofr-doc/internal/server"
	"github.com/gofr-hq/gofr-doc/internal/session"
	"github.com/gofr-hq/gofr-doc/internal/storage"
	"github.com/gofr-hq/gofr-doc/internal/tools"
	"github.com/gofr-hq/gofr-doc/internal/validation"
)

// ServiceName identifies this service to MCP clients and in help output.
const ServiceName = "gofr-doc"

// Version is stamped at build time via -ldflags.
var Version = "dev"

// ServerComponents owns every long-lived part of the service.
type ServerComponents struct {
	Config     *config.Config
	Logger     logging.Logger
	Storage    *storage.Store
	Auth       *auth.Service
	Tokens     *auth.TokenRegistry
	Templates  *registry.TemplateRegistry
	Fragments  *registry.FragmentRegistry
	Styles     *registry.StyleRegistry
	Engine     *session.Engine
	Pipeline   *render.Pipeline
	Plots      *plot.Service
	Dispatcher *tools.Dispatcher
	Server     *server.Server
	MCP        *server.MCPServer
	Keeper     *housekeeper.Keeper
}

// Bootstrap builds the full component graph from cfg.
func Bootstrap(cfg *config.Config) (*ServerComponents, error) {
	logger := logging.NewComponentLogger("Server")

	store, err := storage.New(filepath.Join(cfg.DataDir, "storage"),
		storage.WithMaxBlobSize(cfg.MaxBlobSizeBytes()),
		storage.WithLogger(logging.NewComponentLogger("Storage")))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	tokens, err := auth.NewTokenRegistry(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("init token registry: %w", err)
	}
	var secretSource auth.SecretSource = auth.EnvSecretSource("GOFR_DOC_JWT_SECRET")
	if cfg.JWTSecret != "" {
		secretSource = auth.StaticSecretSource(cfg.JWTSecret)
	}
	secrets := auth.NewSecretProvider(secretSource, cfg.SecretCacheTTL, logging.NewComponentLogger("Auth"))
	authService := auth.NewService(secrets, tokens)

	registryLogger := logging.NewComponentLogger("Registry")
	templates, err := registry.LoadTemplates(cfg.TemplatesDir, registryLogger)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	fragments, err := registry.LoadFragments(cfg.FragmentsDir, registryLogger)
	if err != nil {
		return nil, fmt.Errorf("load fragments: %w", err)
	}
	styles, err := registry.LoadStyles(cfg.StylesDir, registryLogger)
	if err != nil {
		return nil, fmt.Errorf("load styles: %w", err)
	}

	engine, err := session.NewEngine(filepath.Join(cfg.DataDir, "sessions"),
		session.WithLogger(logging.NewComponentLogger("Session")))
	if err != nil {
		return nil, fmt.Errorf("init session engine: %w", err)
	}

	pipeline := render.NewPipeline(templates, fragments, styles, engine, store,
		render.WithBaseURL(cfg.PublicBaseURL),
		render.WithLogger(logging.NewComponentLogger("Render")))

	plots := plot.NewService(store, engine, logging.NewComponentLogger("Plot"))

	images := imagecheck.NewChecker(
		imagecheck.WithTimeout(cfg.ImageValidationTimeout),
		imagecheck.WithMaxSize(cfg.ImageMaxSizeBytes()),
		imagecheck.WithLogger(logging.NewComponentLogger("ImageCheck")))

	deps := tools.Deps{
		Templates:    templates,
		Fragments:    fragments,
		Styles:       styles,
		Validator:    validation.New(templates, fragments),
		Engine:       engine,
		Renderer:     pipeline,
		Plots:        plots,
		Images:       images,
		RequireHTTPS: cfg.ImageRequireHTTPS,
		ServiceName:  ServiceName,
		Version:      Version,
		Logger:       logging.NewComponentLogger("Tools"),
	}
	dispatcher := tools.NewDispatcher(authService, tools.Catalogue(deps), logging.NewComponentLogger("Dispatcher"))

	httpServer := server.New(dispatcher, authService, pipeline, server.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		StockDir:       cfg.StockDir,
		Logger:         logging.NewComponentLogger("HTTP"),
	})
	mcpServer := server.NewMCPServer(dispatcher, ServiceName, Version, logging.NewComponentLogger("MCP"))

	keeper := housekeeper.New(store,
		housekeeper.WithThreshold(cfg.MaxStorageBytes()),
		housekeeper.WithInterval(cfg.HousekeepingInterval),
		housekeeper.WithLockStale(cfg.HousekeeperLockStaleFor))

	return &ServerComponents{
		Config:     cfg,
		Logger:     logger,
		Storage:    store,
		Auth:       authService,
		Tokens:     tokens,
		Templates:  templates,
		Fragments:  fragments,
		Styles:     styles,
		Engine:     engine,
		Pipeline:   pipeline,
		Plots:      plots,
		Dispatcher: dispatcher,
		Server:     httpServer,
		MCP:        mcpServer,
		Keeper:     keeper,
	}, nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *ServerComponents) Addr() string {
	return fmt.Sprintf("%s:%d", c.Config.Host, c.Config.Port)
}

// BaseURL returns the externally visible URL, defaulting to the bind address.
func (c *ServerComponents) BaseURL() string {
	if c.Config.PublicBaseURL != "" {
		return c.Config.PublicBaseURL
	}
	return "http://" + c.Addr()
}

// IssueToken mints a signed group token, recording it for later revocation.
func (c *ServerComponents) IssueToken(ctx context.Context, group string, ttl time.Duration) (string, error) {
	token, err := c.Auth.Verifier.Issue(ctx, group, ttl)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	if err := c.Tokens.Register(ctx, token, group, now, now.Add(ttl)); err != nil {
		return "", err
	}
	return token, nil
}
