// Package detector wraps the external face detector/embedder service.
// The model itself is a black box: image bytes in, detections out.
package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"
)

// Detection is one face found in one image. The bounding box is reported in
// the image's original pixel space as x1, y1, x2, y2; the caller is
// responsible for clamping and discarding degenerate boxes.
type Detection struct {
	BBox       [4]float64 `json:"bbox"`
	Confidence float64    `json:"det_score"`
	Embedding  []float32  `json:"embedding"`
}

// Detector is the contract the scan pipeline depends on.
type Detector interface {
	// Init prepares the detector. It is cheap to call repeatedly; the
	// underlying model is initialized lazily and exactly once.
	Init(ctx context.Context) error
	// DetectFaces returns all faces found in the image.
	DetectFaces(ctx context.Context, imageData []byte) ([]Detection, error)
	// EmbeddingDim returns the fixed embedding vector length of the model.
	EmbeddingDim() int
}

// faceResponse is the JSON shape returned by the detector service.
type faceResponse struct {
	FacesCount int         `json:"faces_count"`
	Faces      []Detection `json:"faces"`
	Model      string      `json:"model"`
}

// Client talks to a local detector/embedder HTTP service.
type Client struct {
	baseURL string
	model   string
	embDim  int
	client  *http.Client

	initOnce sync.Once
	initErr  error
}

// NewClient creates a detector client. timeout covers a single detection
// request; large photos can take a while on CPU.
func NewClient(baseURL, model string, embDim int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		embDim:  embDim,
		client:  &http.Client{Timeout: timeout},
	}
}

// Init verifies the service is reachable. The check runs once; subsequent
// calls return the recorded result.
func (c *Client) Init(ctx context.Context) error {
	c.initOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
		if err != nil {
			c.initErr = fmt.Errorf("failed to create health request: %w", err)
			return
		}
		resp, err := c.client.Do(req)
		if err != nil {
			c.initErr = fmt.Errorf("detector service unreachable at %s: %w", c.baseURL, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			c.initErr = fmt.Errorf("detector service unhealthy (status %d)", resp.StatusCode)
		}
	})
	return c.initErr
}

// EmbeddingDim returns the configured embedding vector length.
func (c *Client) EmbeddingDim() int {
	return c.embDim
}

// DetectFaces posts the image to the detector service and parses the
// returned detections.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte) ([]Detection, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	body, err := c.postMultipartImage(ctx, "/embed/face", imageData)
	if err != nil {
		return nil, err
	}

	var faceResp faceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// A wrong-length embedding means the service runs a different model than
	// configured; embeddings with mixed dimensions must never reach the store.
	if c.embDim > 0 {
		for _, d := range faceResp.Faces {
			if len(d.Embedding) != c.embDim {
				return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(d.Embedding), c.embDim)
			}
		}
	}

	return faceResp.Faces, nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint. The part carries an explicit Content-Type
// based on magic byte detection.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
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

// detectMIMEType detects the MIME type from image data magic bytes.
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// GIF: 47 49 46 38
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x38 {
		return "image/gif"
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 && data[0] == 0x52 && data[1] == 0x49 && data[2] == 0x46 && data[3] == 0x46 &&
		data[8] == 0x57 && data[9] == 0x45 && data[10] == 0x42 && data[11] == 0x50 {
		return "image/webp"
	}
	return "application/octet-stream"
}
