package httpcontroller

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"

	"github.com/petalnet/petalnet-go/internal/errors"
)

// User facing upload messages
const (
	msgNoFile          = "Please choose an image file to upload."
	msgEmptyFilename   = "Invalid file. Please choose again."
	msgUnsupportedType = "Unsupported file format. Please upload a PNG, JPEG or WEBP image."
	msgTooLarge        = "The file is too large. The limit is %d MB."
	msgUnreadable      = "The image could not be read. Please upload a valid PNG, JPEG or WEBP file."
	msgModelMissing    = "The classifier model is unavailable, so the image cannot be identified right now."
	msgSystemError     = "A system error occurred while processing the image. Please try again."
)

const uploadsRoute = "/uploads"

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// userError is an error message meant for the person uploading.
type userError struct {
	status  int
	message string
}

func (e *userError) Error() string { return e.message }

func newUserError(status int, format string, args ...any) *userError {
	return &userError{status: status, message: fmt.Sprintf(format, args...)}
}

// storedUpload is an accepted upload saved in the upload directory.
type storedUpload struct {
	Name string // generated file name
	Path string // path on the upload filesystem
	URL  string // where the page can show it
	Size int64
}

// receiveUpload validates the multipart field "file" and stores it under a
// fresh uuid name that keeps the original extension.
func (s *Server) receiveUpload(c echo.Context) (*storedUpload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, newUserError(http.StatusBadRequest, msgNoFile)
		}
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge {
			return nil, newUserError(http.StatusRequestEntityTooLarge, msgTooLarge, s.Settings.WebServer.MaxUploadMB)
		}
		return nil, newUserError(http.StatusBadRequest, msgNoFile)
	}

	ext, uerr := s.validateUpload(fh)
	if uerr != nil {
		return nil, uerr
	}

	name := uuid.NewString() + ext
	dst := filepath.Join(s.Settings.WebServer.UploadDir, name)
	if err := s.saveUpload(fh, dst); err != nil {
		return nil, err
	}
	s.httpMetrics.ObserveUpload(fh.Size)

	return &storedUpload{
		Name: name,
		Path: dst,
		URL:  path.Join(uploadsRoute, name),
		Size: fh.Size,
	}, nil
}

func (s *Server) validateUpload(fh *multipart.FileHeader) (string, *userError) {
	if strings.TrimSpace(fh.Filename) == "" {
		return "", newUserError(http.StatusBadRequest, msgEmptyFilename)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExtensions[ext] {
		return "", newUserError(http.StatusUnsupportedMediaType, msgUnsupportedType)
	}
	if fh.Size > s.Settings.MaxUploadBytes() {
		return "", newUserError(http.StatusRequestEntityTooLarge, msgTooLarge, s.Settings.WebServer.MaxUploadMB)
	}
	return ext, nil
}

func (s *Server) saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return errors.New(err).
			Component("http").
			Category(errors.CategoryFileIO).
			Context("operation", "open_upload").
			Build()
	}
	defer src.Close()

	if err := s.uploads.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.FileError(err, filepath.Dir(dst))
	}
	out, err := s.uploads.Create(dst)
	if err != nil {
		return errors.FileError(err, dst)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		_ = s.uploads.Remove(dst)
		return errors.FileError(err, dst)
	}
	if err := out.Close(); err != nil {
		return errors.FileError(err, dst)
	}
	return nil
}

// uploadsHandler serves stored uploads from the upload filesystem.
func (s *Server) uploadsHandler() echo.HandlerFunc {
	dir := afero.NewHttpFs(s.uploads).Dir(s.Settings.WebServer.UploadDir)
	return echo.WrapHandler(http.StripPrefix(uploadsRoute+"/", http.FileServer(dir)))
}

func formatBytes(n int64) string {
	return fmt.Sprintf("%dB", n)
}
