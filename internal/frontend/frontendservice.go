package frontend

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"text/template"

	"github.com/labstack/echo/v4"

	"github.com/jo-hoe/goslide/internal/core"
)

const (
	MainPageName = "index.html"
	mimePNG      = "image/png"
)

// FrontendService is the htmx UI surface over the core service. It owns no
// slideshow state; every mutation goes through core.
type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	// Create template renderer
	e.Renderer = &Template{
		templates: template.Must(template.New("").ParseFS(templateFS, viewsPattern)),
	}

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler)
	e.GET("/probe", service.probeHandler)

	e.POST("/htmx/uploadImages", service.htmxUploadImagesHandler)
	e.GET("/htmx/images", service.htmxListImagesHandler)
	e.DELETE("/htmx/image/:id", service.htmxDeleteImageHandler)
	e.POST("/htmx/image/:id/move", service.htmxMoveImageHandler)

	// Playback control and current frame
	e.GET("/htmx/display", service.htmxDisplayHandler)
	e.POST("/htmx/playback/toggle", service.htmxToggleHandler)
	e.POST("/htmx/playback/interval", service.htmxIntervalHandler)
	e.POST("/htmx/key", service.htmxKeyHandler)

	// Transient handle blobs
	e.GET("/image/:handleID", service.imageHandler)
}

func (service *FrontendService) probeHandler(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "ok")
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, MainPageName, map[string]any{
		"IntervalMs": service.coreService.IntervalMs(),
	})
}

// htmxUploadImagesHandler accepts a multi-file upload. Files beyond the
// remaining capacity are rejected and the notice carries the count; decode
// failures are reported per file without aborting the rest.
func (service *FrontendService) htmxUploadImagesHandler(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		slog.Error("htmxUploadImagesHandler: failed to parse multipart form",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to read uploaded files")
	}

	files := form.File["images"]
	if len(files) == 0 {
		return ctx.String(http.StatusBadRequest, "No files uploaded")
	}

	uploads := make([]core.FileUpload, 0, len(files))
	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			slog.Error("htmxUploadImagesHandler: failed to open uploaded file",
				"error", err, "filename", fh.Filename)
			continue
		}
		data, err := io.ReadAll(src)
		if cerr := src.Close(); cerr != nil {
			slog.Error("htmxUploadImagesHandler: failed to close uploaded file reader",
				"error", cerr, "filename", fh.Filename)
		}
		if err != nil {
			slog.Error("htmxUploadImagesHandler: failed to read uploaded file",
				"error", err, "filename", fh.Filename)
			continue
		}
		uploads = append(uploads, core.FileUpload{Name: fh.Filename, Data: data})
	}

	result := service.coreService.ImportFiles(uploads)

	var notice strings.Builder
	fmt.Fprintf(&notice, "Added %d image(s).", result.Accepted)
	if result.Rejected > 0 {
		fmt.Fprintf(&notice, " %d rejected: collection is limited to %d images.",
			result.Rejected, service.config.MaxImages)
	}
	if result.Failed > 0 {
		fmt.Fprintf(&notice, " %d could not be decoded.", result.Failed)
	}

	listHTML := service.buildImageListHTML()
	html := fmt.Sprintf(`<div id="upload-result">%s</div><div id="image-list" hx-swap-oob="true">%s</div>`,
		notice.String(), listHTML)
	return ctx.HTML(http.StatusOK, html)
}

func (service *FrontendService) htmxListImagesHandler(ctx echo.Context) error {
	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, service.buildImageListHTML())
}

func (service *FrontendService) htmxDeleteImageHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	if id == "" {
		slog.Warn("htmxDeleteImageHandler: missing image id", "status", http.StatusBadRequest)
		return ctx.String(http.StatusBadRequest, "Missing image ID")
	}

	if !service.coreService.RemoveImage(id) {
		slog.Warn("htmxDeleteImageHandler: unknown image id", "status", http.StatusNotFound, "image_id", id)
		return ctx.String(http.StatusNotFound, "Image not found")
	}

	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, service.buildImageListHTML())
}

func (service *FrontendService) htmxMoveImageHandler(ctx echo.Context) error {
	id := ctx.Param("id")
	dir := strings.ToLower(strings.TrimSpace(ctx.QueryParam("dir")))
	if id == "" || (dir != "up" && dir != "down") {
		slog.Warn("htmxMoveImageHandler: invalid params", "id", id, "dir", dir)
		return ctx.String(http.StatusBadRequest, "Invalid parameters")
	}

	service.coreService.MoveImage(id, dir)

	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, service.buildImageListHTML())
}

// htmxDisplayHandler returns the current frame fragment. Polled by the page
// while the show runs.
func (service *FrontendService) htmxDisplayHandler(ctx echo.Context) error {
	service.setNoCache(ctx)

	current := service.coreService.Current()
	if current == nil || current.Handle == nil {
		return ctx.HTML(http.StatusOK, `<p>No images yet. Upload some to start the show.</p>`)
	}
	html := fmt.Sprintf(`<img src="/image/%s" alt="%s" style="max-width:100%%;max-height:80vh">`,
		current.Handle.ID(), template.HTMLEscapeString(current.DisplayName))
	return ctx.HTML(http.StatusOK, html)
}

func (service *FrontendService) htmxToggleHandler(ctx echo.Context) error {
	service.coreService.TogglePlayback()
	return service.playbackStateFragment(ctx)
}

// IntervalRequest is the playback interval form payload.
type IntervalRequest struct {
	IntervalMs int `form:"intervalMs" validate:"required,min=1"`
}

func (service *FrontendService) htmxIntervalHandler(ctx echo.Context) error {
	var req IntervalRequest
	if err := ctx.Bind(&req); err != nil {
		slog.Warn("htmxIntervalHandler: failed to bind request", "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid interval")
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}

	applied := service.coreService.SetIntervalMs(req.IntervalMs)
	return ctx.HTML(http.StatusOK,
		fmt.Sprintf(`<span id="interval-state">Interval: %d ms</span>`, applied))
}

// KeyRequest reports one key event plus whether a text-entry control had
// focus, which suppresses the playback toggle.
type KeyRequest struct {
	Key         string `form:"key" json:"key" validate:"required"`
	TextFocused bool   `form:"textFocused" json:"textFocused"`
}

func (service *FrontendService) htmxKeyHandler(ctx echo.Context) error {
	var req KeyRequest
	if err := ctx.Bind(&req); err != nil {
		slog.Warn("htmxKeyHandler: failed to bind request", "error", err)
		return ctx.String(http.StatusBadRequest, "Invalid key event")
	}
	if err := ctx.Validate(&req); err != nil {
		return err
	}

	service.coreService.HandleKey(req.Key, req.TextFocused)
	return service.playbackStateFragment(ctx)
}

func (service *FrontendService) playbackStateFragment(ctx echo.Context) error {
	state := "Stopped"
	if service.coreService.Playing() {
		state = "Playing"
	}
	return ctx.HTML(http.StatusOK, fmt.Sprintf(`<span id="playback-state">%s</span>`, state))
}

// imageHandler serves the normalized PNG behind a transient display handle.
func (service *FrontendService) imageHandler(ctx echo.Context) error {
	handleID := ctx.Param("handleID")
	if handleID == "" {
		return ctx.String(http.StatusBadRequest, "Missing handle ID")
	}

	handle := service.coreService.LookupHandle(handleID)
	if handle == nil {
		slog.Warn("imageHandler: handle not available", "status", http.StatusNotFound, "handle_id", handleID)
		return ctx.String(http.StatusNotFound, "Image not available")
	}

	service.setNoCache(ctx)
	return ctx.Blob(http.StatusOK, mimePNG, handle.RenderPNG())
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) buildImageListHTML() string {
	entries := service.coreService.Entries()

	var b strings.Builder
	if len(entries) == 0 {
		b.WriteString(`<p>No images uploaded yet.</p>`)
		return b.String()
	}

	b.WriteString(`<div class="vertical-list" id="image-sort-list">`)
	for i, entry := range entries {
		disableUp := ""
		disableDown := ""
		if i == 0 {
			disableUp = " disabled"
		}
		if i == len(entries)-1 {
			disableDown = " disabled"
		}

		name := template.HTMLEscapeString(entry.DisplayName)
		b.WriteString(fmt.Sprintf(`<div class="vertical-item" data-id="%s"><article>
	<img src="/image/%s" alt="%s" style="max-width:12rem;height:auto">
	<footer style="display:flex;gap:0.5rem;align-items:center;flex-wrap:wrap">
		<small>%s</small>
		<div style="display:flex;gap:0.5rem">
			<button hx-post="/htmx/image/%s/move?dir=up" hx-target="#image-list" hx-swap="innerHTML"%s aria-label="Move up" title="Move up">&#9650;</button>
			<button hx-post="/htmx/image/%s/move?dir=down" hx-target="#image-list" hx-swap="innerHTML"%s aria-label="Move down" title="Move down">&#9660;</button>
			<button hx-delete="/htmx/image/%s" hx-target="#image-list" hx-swap="innerHTML" class="secondary">Delete</button>
		</div>
	</footer>
</article></div>`, entry.ID, entry.Handle.ID(), name, name, entry.ID, disableUp, entry.ID, disableDown, entry.ID))
	}
	b.WriteString(`</div>`)
	return b.String()
}
