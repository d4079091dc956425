package pipeline

import (
	"fmt"
	"image"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/imgutil"
)

// Source produces sequential frames from a capture device.
type Source interface {
	// ReadFrame blocks until the next frame is available.
	ReadFrame() (image.Image, error)
	Close() error
}

// OpenSource opens a capture source from its URL. URLs with the dir:
// scheme read frames from a directory of image files (testing and demo
// setups); everything else is treated as an MJPEG-over-HTTP camera stream.
func OpenSource(url string) (Source, error) {
	if url == "" {
		return nil, fmt.Errorf("capture URL is required")
	}
	if path, ok := strings.CutPrefix(url, "dir:"); ok {
		return OpenDirSource(path, 66*time.Millisecond)
	}
	return OpenMJPEGSource(url)
}

// MJPEGSource reads frames from a network camera serving
// multipart/x-mixed-replace JPEG parts.
type MJPEGSource struct {
	resp   *http.Response
	reader *multipart.Reader
}

// OpenMJPEGSource connects to an MJPEG stream URL.
func OpenMJPEGSource(url string) (*MJPEGSource, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to camera %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("camera %s returned status %d", url, resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		resp.Body.Close()
		return nil, fmt.Errorf("camera %s is not an MJPEG stream (content type %q)", url, resp.Header.Get("Content-Type"))
	}

	return &MJPEGSource{
		resp:   resp,
		reader: multipart.NewReader(resp.Body, params["boundary"]),
	}, nil
}

// ReadFrame reads and decodes the next JPEG part.
func (s *MJPEGSource) ReadFrame() (image.Image, error) {
	part, err := s.reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("reading stream part: %w", err)
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return nil, fmt.Errorf("reading frame data: %w", err)
	}

	return imgutil.DecodeImage(data)
}

// Close releases the HTTP connection.
func (s *MJPEGSource) Close() error {
	return s.resp.Body.Close()
}

// DirSource replays image files from a directory in name order, looping
// forever. It paces frames with a fixed delay so the pipeline behaves like
// a real camera.
type DirSource struct {
	files []string
	next  int
	delay time.Duration
}

// OpenDirSource opens a frame directory.
func OpenDirSource(path string, delay time.Duration) (*DirSource, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(path, e.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", path)
	}
	sort.Strings(files)

	return &DirSource{files: files, delay: delay}, nil
}

// ReadFrame returns the next frame in the loop.
func (s *DirSource) ReadFrame() (image.Image, error) {
	time.Sleep(s.delay)

	data, err := os.ReadFile(s.files[s.next])
	if err != nil {
		return nil, err
	}
	s.next = (s.next + 1) % len(s.files)

	return imgutil.DecodeImage(data)
}

// Close is a no-op for directory sources.
func (s *DirSource) Close() error {
	return nil
}
