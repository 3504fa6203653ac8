package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasa-lms/darasa/core"
)

var (
	ErrTooLarge       = core.NewError(core.KindInvalid, "file is too large")
	ErrTypeNotAllowed = core.NewError(core.KindInvalid, "file type is not allowed")
	ErrEmpty          = core.NewError(core.KindInvalid, "file is empty")
)

// File describes a stored upload.
type File struct {
	URL         string `json:"url"`
	Path        string `json:"path"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

type Service interface {
	// Store validates the content read from r and writes it under the upload directory.
	Store(ctx context.Context, r io.Reader) (File, error)
}

type service struct {
	conf   core.UploadConfig
	logger core.Logger
	now    func() time.Time
}

var _ Service = (*service)(nil)

func NewService(conf core.UploadConfig, logger core.Logger) *service {
	return &service{conf: conf, logger: logger, now: time.Now}
}

func (svc *service) Store(ctx context.Context, r io.Reader) (File, error) {
	data, err := io.ReadAll(io.LimitReader(r, svc.conf.MaxSize+1))
	if err != nil {
		return File{}, errors.Wrap(err, "reading upload")
	}
	if len(data) == 0 {
		return File{}, ErrEmpty
	}
	if int64(len(data)) > svc.conf.MaxSize {
		return File{}, ErrTooLarge
	}

	mtype := mimetype.Detect(data)
	if !svc.allowed(mtype) {
		svc.logger.Debug("rejected upload", map[string]interface{}{"type": mtype.String()})
		return File{}, ErrTypeNotAllowed
	}

	file := File{ContentType: contentType(mtype)}
	if isResizable(mtype) {
		if data, file.Width, file.Height, err = svc.downscale(data, mtype.Extension()); err != nil {
			return File{}, err
		}
	}

	if err := ctx.Err(); err != nil {
		return File{}, err
	}

	now := svc.now().UTC()
	rel := path.Join(fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), uuid.NewString()+mtype.Extension())
	dst := filepath.Join(svc.conf.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return File{}, errors.Wrap(err, "creating upload dir")
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return File{}, errors.Wrap(err, "writing upload")
	}

	file.Path = rel
	file.URL = strings.TrimSuffix(svc.conf.PublicURL, "/") + "/" + rel
	file.Size = int64(len(data))
	svc.logger.Debug("stored upload", map[string]interface{}{"path": rel, "type": file.ContentType, "size": file.Size})
	return file, nil
}

func (svc *service) allowed(mtype *mimetype.MIME) bool {
	for _, t := range svc.conf.AllowedTypes {
		if mtype.Is(t) {
			return true
		}
	}
	return false
}

// downscale shrinks images wider than MaxImageWidth, keeping the aspect ratio.
func (svc *service) downscale(data []byte, ext string) ([]byte, int, int, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, 0, 0, core.WrapKind(core.KindInvalid, err, "invalid image")
	}
	bounds := img.Bounds()
	if svc.conf.MaxImageWidth <= 0 || bounds.Dx() <= svc.conf.MaxImageWidth {
		return data, bounds.Dx(), bounds.Dy(), nil
	}

	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "resolving image format")
	}
	resized := imaging.Resize(img, svc.conf.MaxImageWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		return nil, 0, 0, errors.Wrap(err, "encoding image")
	}
	b := resized.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}

// gifs may be animated and imaging cannot encode webp
func isResizable(mtype *mimetype.MIME) bool {
	return mtype.Is("image/jpeg") || mtype.Is("image/png")
}

func contentType(mtype *mimetype.MIME) string {
	ct := mtype.String()
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}
