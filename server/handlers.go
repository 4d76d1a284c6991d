package server

import (
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"mcap-navigator/scan"
	"mcap-navigator/upload"
	"mcap-navigator/viewer"
	"mcap-navigator/web"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true})
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"rootDir": s.cfg.Root})
}

// handleTree walks the root on every call; nothing is cached.
func (s *Server) handleTree(c *fiber.Ctx) error {
	tree, stats := scan.BuildTreeStats(s.cfg.Root, scan.Options{Extension: s.cfg.Extension})

	event := s.log.Debug()
	if stats.Unreadable > 0 {
		event = s.log.Warn()
	}
	event.Object("walk", stats).Msg("tree built")

	return c.JSON(tree)
}

func (s *Server) handleFile(c *fiber.Ctx) error {
	relPath := c.Query("path")
	if relPath == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path is required"})
	}

	fullPath, err := s.guard.Resolve(relPath)
	if err != nil {
		s.log.Warn().Err(err).Str("path", relPath).Msg("rejected file request")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid path"})
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}
	if !info.Mode().IsRegular() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not a file"})
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	// fasthttp closes f once the body has been written.
	return c.SendStream(f, int(info.Size()))
}

func (s *Server) handleIndex(c *fiber.Ctx) error {
	data := web.PageData{
		Title:     "MCAP Navigator",
		RootName:  filepath.Base(s.cfg.Root),
		ViewerURL: viewer.Base(s.cfg.ViewerURL),
		SessionID: uuid.NewString(),
		Watch:     s.notifier != nil,
		Write:     s.uploader != nil,
		UploadURL: upload.BasePath,
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return s.page.Execute(c.Response().BodyWriter(), data)
}
