// Package render calls the external renderer that turns clip
// specifications into video bytes. Rendering is a one-shot external
// call per request: failures surface to the caller and are never
// retried automatically.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dam2452/ranchbot/pkg/types"
)

// Renderer produces video bytes for an ordered list of clip parts.
type Renderer interface {
	Render(ctx context.Context, parts []types.ClipPart) ([]byte, error)
}

// HTTPRenderer calls a render service over HTTP. Every call is bounded
// by the configured timeout so an unresponsive renderer cannot pin a
// request goroutine.
type HTTPRenderer struct {
	url    string
	client *http.Client
}

// NewHTTPRenderer creates a renderer client for the given endpoint.
func NewHTTPRenderer(url string, timeout time.Duration) *HTTPRenderer {
	return &HTTPRenderer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type renderRequest struct {
	Parts []types.ClipPart `json:"parts"`
}

// Render posts the ordered parts and returns the concatenated video.
func (r *HTTPRenderer) Render(ctx context.Context, parts []types.ClipPart) ([]byte, error) {
	body, err := json.Marshal(renderRequest{Parts: parts})
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "failed to encode render request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return nil, types.WrapError(types.KindInternal, "failed to build render request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, types.WrapError(types.KindRenderFailure, "renderer unavailable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.KindRenderFailure,
			fmt.Sprintf("renderer returned status %d", resp.StatusCode))
	}

	video, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.WrapError(types.KindRenderFailure, "failed to read rendered video", err)
	}
	if len(video) == 0 {
		return nil, types.NewError(types.KindRenderFailure, "renderer returned an empty video")
	}
	return video, nil
}
