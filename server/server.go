// Package server wires the HTTP API, the page, the session socket and the
// optional upload endpoints onto one fiber app.
package server

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"mcap-navigator/config"
	"mcap-navigator/scan"
	"mcap-navigator/session"
	"mcap-navigator/upload"
	"mcap-navigator/web"
)

// uploadBodyLimit caps one tus PATCH request in write mode.
const uploadBodyLimit = 512 << 20

// Notifier reports changes below the root. *watch.Watcher implements it.
type Notifier interface {
	Subscribe() (<-chan struct{}, func())
}

type Server struct {
	cfg      config.Config
	log      zerolog.Logger
	guard    scan.Guard
	store    session.Store
	notifier Notifier
	uploader *upload.Uploader
	page     *template.Template
	app      *fiber.App
}

type Option func(*Server)

// WithNotifier pushes tree change hints to open pages.
func WithNotifier(n Notifier) Option {
	return func(s *Server) { s.notifier = n }
}

// WithUploader mounts the tus upload endpoints.
func WithUploader(u *upload.Uploader) Option {
	return func(s *Server) { s.uploader = u }
}

// New builds the server for cfg. Sessions are kept in store.
func New(cfg config.Config, logger zerolog.Logger, store session.Store, opts ...Option) (*Server, error) {
	page, err := web.IndexTemplate()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:   cfg,
		log:   logger,
		guard: scan.Guard{Root: cfg.Root, Strict: cfg.StrictSymlinks},
		store: store,
		page:  page,
	}
	for _, opt := range opts {
		opt(s)
	}

	fiberCfg := fiber.Config{
		ErrorHandler:          s.handleError,
		DisableStartupMessage: true,
	}
	if s.uploader != nil {
		fiberCfg.BodyLimit = uploadBodyLimit
	}
	s.app = fiber.New(fiberCfg)
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	app := s.app
	app.Use(requestLogger(s.log))
	app.Use(cors.New())

	app.Get("/api/health", s.handleHealth)
	app.Get("/api/config", s.handleConfig)
	app.Get("/api/tree", s.handleTree)
	app.Get("/api/file", s.handleFile)

	app.Get("/", s.handleIndex)
	app.Use("/static", filesystem.New(filesystem.Config{Root: http.FS(web.Static())}))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(localOrigin, c.BaseURL())
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(s.handleSocket))

	if s.uploader != nil {
		s.uploader.Mount(app)
	}
}

// App exposes the fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the configured port until Shutdown.
func (s *Server) Listen() error {
	s.log.Info().Str("addr", s.cfg.Addr()).Str("root", s.cfg.Root).Msg("listening")
	return s.app.Listen(s.cfg.Addr())
}

// Shutdown stops accepting connections and waits for uploads that are
// being moved into the root.
func (s *Server) Shutdown() error {
	err := s.app.Shutdown()
	if s.uploader != nil {
		s.uploader.Wait()
	}
	return err
}

// handleError renders every error as a small JSON body. Internal details
// are logged, never returned.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "internal error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
		if code == fiber.StatusNotFound {
			msg = "not found"
		}
	}
	if code >= fiber.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}
