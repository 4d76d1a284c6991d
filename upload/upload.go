// Package upload accepts resumable tus uploads of recordings in write mode
// and moves finished uploads into the recordings root.
package upload

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/otiai10/copy"
	"github.com/rs/zerolog"
	"github.com/tus/tusd/pkg/filestore"
	"github.com/tus/tusd/pkg/handler"

	"mcap-navigator/scan"
)

// BasePath is where the tus endpoints are mounted.
const BasePath = "/upload/tus/"

var (
	ErrInvalidTarget = errors.New("invalid upload target")
	ErrTargetExists  = errors.New("upload target already exists")
)

// Finalizer places finished uploads below the root.
type Finalizer struct {
	Guard     scan.Guard
	Extension string
}

// Finalize moves the staged upload to meta["relativePath"]/meta["filename"]
// below the root and returns the final path. The file name must carry the
// recording extension, and neither it nor the target folder may be hidden
// or leave the root. Existing files are never overwritten.
func (f Finalizer) Finalize(staged string, meta map[string]string) (string, error) {
	name := meta["filename"]
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: file name %q", ErrInvalidTarget, name)
	}
	ext := f.Extension
	if ext == "" {
		ext = scan.DefaultExtension
	}
	if !strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) {
		return "", fmt.Errorf("%w: %q is not a %s file", ErrInvalidTarget, name, ext)
	}

	dir, err := f.Guard.Resolve(meta["relativePath"])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if hiddenBelow(f.Guard.Root, dir) {
		return "", fmt.Errorf("%w: hidden folder %q", ErrInvalidTarget, meta["relativePath"])
	}

	final := filepath.Join(dir, name)
	if _, err := os.Lstat(final); err == nil {
		return "", fmt.Errorf("%w: %s", ErrTargetExists, name)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create upload folder: %w", err)
	}
	if err := move(staged, final); err != nil {
		return "", fmt.Errorf("move upload: %w", err)
	}
	return final, nil
}

func hiddenBelow(root, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), dir)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func move(src, dst string) error {
	if err := copy.Copy(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// Uploader serves the tus protocol and finalizes completed uploads before
// the final PATCH is answered, so a client only sees success once the
// recording is in place.
type Uploader struct {
	tus        *handler.Handler
	finalizer  Finalizer
	stagingDir string
	log        zerolog.Logger
	inFlight   sync.WaitGroup
}

// New prepares the staging directory and the tus handler.
func New(stagingDir string, finalizer Finalizer, logger zerolog.Logger) (*Uploader, error) {
	info, err := os.Stat(stagingDir)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%s exists but is not a directory", stagingDir)
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(stagingDir, 0755); err != nil {
			return nil, fmt.Errorf("create uploads directory: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("check uploads directory: %w", err)
	}

	u := &Uploader{
		finalizer:  finalizer,
		stagingDir: stagingDir,
		log:        logger.With().Str("component", "upload").Logger(),
	}

	store := filestore.New(stagingDir)
	composer := handler.NewStoreComposer()
	store.UseIn(composer)

	tus, err := handler.NewHandler(handler.Config{
		StoreComposer:             composer,
		BasePath:                  BasePath,
		PreFinishResponseCallback: u.finish,
		Logger:                    log.New(debugWriter{u.log}, "", 0),
	})
	if err != nil {
		return nil, fmt.Errorf("create tus handler: %w", err)
	}
	u.tus = tus
	return u, nil
}

// debugWriter feeds the tus handler's log lines into zerolog at debug level.
type debugWriter struct {
	log zerolog.Logger
}

func (w debugWriter) Write(p []byte) (int, error) {
	w.log.Debug().Str("source", "tusd").Msg(strings.TrimSpace(string(p)))
	return len(p), nil
}

// Mount registers the tus endpoints on app.
func (u *Uploader) Mount(app *fiber.App) {
	group := app.Group(BasePath, adaptor.HTTPMiddleware(u.tus.Middleware))

	group.Post("", adaptor.HTTPHandlerFunc(u.tus.PostFile))
	group.Head(":id", adaptor.HTTPHandlerFunc(u.tus.HeadFile))
	group.Patch(":id", adaptor.HTTPHandlerFunc(u.tus.PatchFile))
	group.Get(":id", adaptor.HTTPHandlerFunc(u.tus.GetFile))
	group.Delete(":id", adaptor.HTTPHandlerFunc(u.tus.DelFile))
}

// Wait blocks until uploads being finalized have been moved. Call it once
// the HTTP server stopped accepting requests.
func (u *Uploader) Wait() {
	u.inFlight.Wait()
}

// finish runs inside the request that completed the upload. Its error is
// what the client receives.
func (u *Uploader) finish(event handler.HookEvent) error {
	u.inFlight.Add(1)
	defer u.inFlight.Done()

	err := u.complete(event.Upload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTargetExists):
		return handler.NewHTTPError(ErrTargetExists, http.StatusConflict)
	case errors.Is(err, ErrInvalidTarget):
		return handler.NewHTTPError(ErrInvalidTarget, http.StatusBadRequest)
	default:
		return handler.NewHTTPError(errors.New("upload could not be stored"), http.StatusInternalServerError)
	}
}

// complete finalizes one upload and clears its staging files either way.
func (u *Uploader) complete(info handler.FileInfo) error {
	staged := filepath.Join(u.stagingDir, info.ID)
	defer os.Remove(staged + ".info")

	final, err := u.finalizer.Finalize(staged, info.MetaData)
	if err != nil {
		u.log.Error().Err(err).Str("id", info.ID).Msg("upload rejected")
		if rmErr := os.Remove(staged); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			u.log.Warn().Err(rmErr).Str("id", info.ID).Msg("cannot remove staged upload")
		}
		return err
	}
	u.log.Info().Str("id", info.ID).Str("path", final).Msg("upload completed")
	return nil
}
