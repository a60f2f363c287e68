// Package inspect checks uploaded file content before it leaves the machine.
package inspect

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driven"
	"github.com/Dev-KrishnaPathak/Patiently/internal/logger"
)

// Ensure Inspector implements the interface.
var _ driven.FileInspector = (*Inspector)(nil)

// Inspector rejects files whose content does not match their extension:
// PDFs must parse and have at least one page, images must carry a
// readable header of the declared format.
type Inspector struct {
	conf *model.Configuration
}

// New creates an Inspector with relaxed PDF validation, since scanner
// output is often slightly off-spec.
func New() *Inspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: conf}
}

// Inspect implements driven.FileInspector.
func (i *Inspector) Inspect(ctx context.Context, name string, content io.ReadSeeker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if content == nil {
		return reject(name, "file is empty")
	}

	size, err := content.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", name, err)
	}
	if size == 0 {
		return reject(name, "file is empty")
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("inspect %s: %w", name, err)
	}

	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".pdf":
		return i.inspectPDF(name, content)
	case ".png":
		return inspectImage(name, content, "png")
	case ".jpg", ".jpeg":
		return inspectImage(name, content, "jpeg")
	default:
		return reject(name, "unsupported file type")
	}
}

func (i *Inspector) inspectPDF(name string, content io.ReadSeeker) error {
	pages, err := api.PageCount(content, i.conf)
	if err != nil {
		logger.Debug("inspect: %s is not a readable PDF: %v", name, err)
		return reject(name, "not a readable PDF")
	}
	if pages < 1 {
		return reject(name, "PDF has no pages")
	}
	logger.Debug("inspect: %s has %d pages", name, pages)
	return nil
}

func inspectImage(name string, content io.Reader, want string) error {
	cfg, format, err := image.DecodeConfig(content)
	if err != nil {
		return reject(name, "not a readable image")
	}
	if format != want {
		return reject(name, fmt.Sprintf("content is %s but the name says %s", format, want))
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return reject(name, "image has no pixels")
	}
	logger.Debug("inspect: %s is a %dx%d %s", name, cfg.Width, cfg.Height, format)
	return nil
}

func reject(name, reason string) error {
	return &domain.ValidationError{Filename: name, Reason: reason}
}
