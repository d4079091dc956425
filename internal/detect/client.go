package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attend/internal/imgutil"
)

const defaultDetectorURL = "http://localhost:8000"

// Client talks to the face detection server. The server accepts a JPEG
// frame and returns bounding boxes with per-face embeddings.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates a new detection client. dim is the expected embedding
// dimensionality; faces with a different dimension are dropped.
func NewClient(baseURL string, dim int, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{Timeout: timeout},
	}
}

// faceDetection represents a single detected face in the server response.
type faceDetection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2]
	DetScore  float64   `json:"det_score"`
}

// faceResponse represents the response from the face detection endpoint.
type faceResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
	Model      string          `json:"model"`
}

// Detect encodes the frame as JPEG and posts it to the detection server.
func (c *Client) Detect(ctx context.Context, frame image.Image) ([]Detection, error) {
	imageData, err := imgutil.EncodeJPEG(frame)
	if err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}

	body, err := c.postMultipartImage(ctx, "/detect/faces", imageData)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	detections := make([]Detection, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		if len(face.BBox) != 4 {
			continue
		}
		if c.dim > 0 && len(face.Embedding) != c.dim {
			continue
		}
		detections = append(detections, Detection{
			BBox: image.Rect(
				int(face.BBox[0]), int(face.BBox[1]),
				int(face.BBox[2]), int(face.BBox[3]),
			),
			Embedding: face.Embedding,
			Score:     face.DetScore,
		})
	}

	return detections, nil
}

// DetectBytes runs detection over already-encoded image bytes, used by the
// bulk import path where images come straight from disk.
func (c *Client) DetectBytes(ctx context.Context, imageData []byte) ([]Detection, error) {
	body, err := c.postMultipartImage(ctx, "/detect/faces", imageData)
	if err != nil {
		return nil, err
	}

	var resp faceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	detections := make([]Detection, 0, len(resp.Faces))
	for _, face := range resp.Faces {
		if c.dim > 0 && len(face.Embedding) != c.dim {
			continue
		}
		d := Detection{Embedding: face.Embedding, Score: face.DetScore}
		if len(face.BBox) == 4 {
			d.BBox = image.Rect(
				int(face.BBox[0]), int(face.BBox[1]),
				int(face.BBox[2]), int(face.BBox[3]),
			)
		}
		detections = append(detections, d)
	}

	return detections, nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
