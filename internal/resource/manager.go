package resource

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecodeFailed is returned when raw bytes cannot be interpreted as a
// supported image format, or when previously persisted content can no longer
// be decoded into a renderable handle.
var ErrDecodeFailed = errors.New("image decode failed")

// Durable is the persistence-safe form of an image: the encoded bytes plus
// their media type. This is the only shape ever written to the store; Data
// marshals as base64 through encoding/json.
type Durable struct {
	MediaType string `json:"mediaType"`
	Data      []byte `json:"data"`
}

// Handle is a process-local renderable reference to a decoded image. Handles
// are never persisted and must be released exactly once, either through entry
// removal or through teardown.
type Handle struct {
	id     string
	render []byte // normalized PNG bytes served to the display surface
	width  int
	height int
}

// ID returns the opaque handle identifier used by the display surface.
func (h *Handle) ID() string { return h.id }

// RenderPNG returns the normalized PNG representation backing this handle.
func (h *Handle) RenderPNG() []byte { return h.render }

// Bounds returns the pixel dimensions of the decoded image.
func (h *Handle) Bounds() (width, height int) { return h.width, h.height }

// Manager converts raw uploads into durable content plus a transient handle,
// re-derives handles from durable content on restore, and reclaims handles.
// All handle bookkeeping lives in one table so teardown can account for every
// live handle.
type Manager struct {
	svgFallbackWidth  int
	svgFallbackHeight int

	mu      sync.Mutex
	handles map[string]*Handle
}

// NewManager creates a resource manager. The SVG fallback dimensions are used
// only when an imported SVG lacks an explicit size.
func NewManager(svgFallbackWidth, svgFallbackHeight int) *Manager {
	return &Manager{
		svgFallbackWidth:  svgFallbackWidth,
		svgFallbackHeight: svgFallbackHeight,
		handles:           make(map[string]*Handle),
	}
}

// Import encodes raw uploaded bytes into a durable form and independently
// derives a transient handle. It succeeds or fails atomically: on error no
// handle is registered.
//
// SVG input is rasterized once at import time and stored as PNG, so restore
// never needs to re-run the rasterizer.
func (m *Manager) Import(data []byte, name string) (Durable, *Handle, error) {
	if len(data) == 0 {
		return Durable{}, nil, fmt.Errorf("%w: empty file %q", ErrDecodeFailed, name)
	}

	if isSVGData(data) {
		rendered, err := m.rasterizeSVG(data)
		if err != nil {
			slog.Error("Import: failed to rasterize SVG", "name", name, "error", err)
			return Durable{}, nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		durable := Durable{MediaType: "image/png", Data: rendered}
		handle, err := m.materialize(durable)
		if err != nil {
			return Durable{}, nil, err
		}
		return durable, handle, nil
	}

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		slog.Error("Import: failed to decode image", "name", name, "error", err)
		return Durable{}, nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	durable := Durable{MediaType: "image/" + format, Data: data}
	handle, err := m.materialize(durable)
	if err != nil {
		return Durable{}, nil, err
	}

	slog.Debug("Import: image imported",
		"name", name, "format", format, "size_bytes", len(data), "handle_id", handle.id)
	return durable, handle, nil
}

// Materialize turns previously persisted durable content back into a live
// renderable handle. Used on session restore.
func (m *Manager) Materialize(d Durable) (*Handle, error) {
	return m.materialize(d)
}

func (m *Manager) materialize(d Durable) (*Handle, error) {
	img, format, err := image.Decode(bytes.NewReader(d.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	render := d.Data
	if format != "png" {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
		render = buf.Bytes()
	}

	handle := &Handle{
		id:     uuid.NewString(),
		render: render,
		width:  img.Bounds().Dx(),
		height: img.Bounds().Dy(),
	}

	m.mu.Lock()
	m.handles[handle.id] = handle
	m.mu.Unlock()
	return handle, nil
}

// Lookup resolves a handle by its identifier. Returns nil when the handle was
// never issued or has already been released.
func (m *Manager) Lookup(id string) *Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[id]
}

// Release reclaims a handle. It is idempotent: releasing nil, an unknown
// handle, or an already-released handle is a no-op.
func (m *Manager) Release(h *Handle) {
	if h == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handles[h.id]; !ok {
		return
	}
	delete(m.handles, h.id)
	slog.Debug("Release: handle reclaimed", "handle_id", h.id)
}

// ReleaseAll reclaims every live handle. Called once on process teardown.
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.handles) > 0 {
		slog.Debug("ReleaseAll: reclaiming handles", "count", len(m.handles))
	}
	m.handles = make(map[string]*Handle)
}

// Live reports the number of currently registered handles.
func (m *Manager) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handles)
}
