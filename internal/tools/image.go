package tools

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/nextlevelbuilder/mogzi/internal/providers"
)

var imageMediaTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".bmp":  "image/bmp",
}

// ImageCollector gathers images read during a turn so the orchestrator can
// attach them to the next outbound model message.
type ImageCollector struct {
	mu     sync.Mutex
	images []providers.ImageContent
}

// Add appends one image.
func (c *ImageCollector) Add(img providers.ImageContent) {
	c.mu.Lock()
	c.images = append(c.images, img)
	c.mu.Unlock()
}

// Drain returns and clears the collected images.
func (c *ImageCollector) Drain() []providers.ImageContent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.images
	c.images = nil
	return out
}

type imageCollectorKey struct{}

// WithImageCollector stores a collector in ctx for read_image_file.
func WithImageCollector(ctx context.Context, c *ImageCollector) context.Context {
	return context.WithValue(ctx, imageCollectorKey{}, c)
}

func imageCollectorFromCtx(ctx context.Context) *ImageCollector {
	c, _ := ctx.Value(imageCollectorKey{}).(*ImageCollector)
	return c
}

// ReadImageFileTool loads an image from disk and stages its bytes as
// multimodal input for the next model request.
type ReadImageFileTool struct {
	guard *Guard
}

func NewReadImageFileTool(guard *Guard) *ReadImageFileTool {
	return &ReadImageFileTool{guard: guard}
}

func (t *ReadImageFileTool) Name() string { return "read_image_file" }

func (t *ReadImageFileTool) Description() string {
	return "Read an image file (png, jpg, jpeg, gif, webp, svg, bmp) and make its bytes available to the model as multimodal input."
}

func (t *ReadImageFileTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Absolute path to the image file",
			},
		},
		"required": []string{"file_path"},
	}
}

func (t *ReadImageFileTool) Execute(ctx context.Context, args map[string]any) *Response {
	path, resp := requireAbsolutePath(t.Name(), args)
	if resp != nil {
		return resp
	}

	ext := strings.ToLower(filepath.Ext(path))
	mediaType, ok := imageMediaTypes[ext]
	if !ok {
		return Failed(t.Name(), "BadArgument: unsupported image extension %q", ext)
	}

	resolved, err := t.guard.Resolve(path)
	if err != nil {
		return FailedErr(t.Name(), err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return Failed(t.Name(), "NotFound: %s", path)
		}
		if os.IsPermission(err) {
			return Failed(t.Name(), "Denied: %s", path)
		}
		return Failed(t.Name(), "IO: %v", err)
	}

	out := Success(t.Name()).
		WithPath(resolved).
		WithSHA256(SHA256Hex(data)).
		Note("File name: %s", filepath.Base(resolved)).
		Note("File size: %d bytes", len(data)).
		Note("Media type: %s", mediaType)

	// Raster formats get their dimensions reported; svg/webp are passed
	// through undecoded.
	if img, decodeErr := imaging.Decode(bytes.NewReader(data)); decodeErr == nil {
		bounds := img.Bounds()
		out.Note("Dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	if collector := imageCollectorFromCtx(ctx); collector != nil {
		collector.Add(providers.ImageContent{
			MediaType: mediaType,
			Data:      base64.StdEncoding.EncodeToString(data),
			FileName:  filepath.Base(resolved),
		})
		out.Note("Image bytes are attached to the next message as multimodal input")
	} else {
		out.Note("No multimodal sink available; image bytes were not attached")
	}
	return out
}
