package menu

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Chosen17/TraqrPOSCloud/internal/apperr"
	"github.com/Chosen17/TraqrPOSCloud/internal/httpserver"
	"github.com/Chosen17/TraqrPOSCloud/pkg/identity"
)

// maxUploadBytes bounds a device-sourced menu item image (spec §6,
// POST /sync/upload-item-image error code 413).
const maxUploadBytes = 8 << 20 // 8 MiB

// CanonicalResolver resolves the device whose menu rows are authoritative
// for a store, satisfied by *projector.CanonicalChecker. Declared here
// (rather than importing pkg/projector) because projector already imports
// pkg/menu; the dependency runs the other way at the handler layer.
type CanonicalResolver interface {
	IsCanonical(ctx context.Context, storeID, deviceID uuid.UUID) (bool, error)
	CanonicalDeviceID(ctx context.Context, storeID uuid.UUID) (uuid.UUID, error)
}

// Handler exposes the device-facing menu-pull and image-upload routes
// (spec §6): GET /sync/menu and POST /sync/upload-item-image.
type Handler struct {
	repo       *Repo
	canonical  CanonicalResolver
	uploadDir  string
	publicBase string
}

// NewHandler builds a Handler. uploadDir is the local directory uploaded
// images are written to; publicBase is prefixed onto the returned URL.
func NewHandler(repo *Repo, canonical CanonicalResolver, uploadDir, publicBase string) *Handler {
	return &Handler{repo: repo, canonical: canonical, uploadDir: uploadDir, publicBase: strings.TrimRight(publicBase, "/")}
}

type categoryView struct {
	LocalCategoryID string  `json:"local_category_id"`
	Name            string  `json:"name"`
	ImageURL        *string `json:"image_url,omitempty"`
}

type itemView struct {
	LocalItemID     string  `json:"local_item_id"`
	LocalCategoryID *string `json:"local_category_id,omitempty"`
	Name            string  `json:"name"`
	Visible         bool    `json:"visible"`
	ImageURL        *string `json:"image_url,omitempty"`
}

type menuResponse struct {
	Categories []categoryView `json:"categories"`
	Items      []itemView     `json:"items"`
}

// Pull handles GET /sync/menu?copy_from_store_id=. It normally serves the
// requesting device's own menu snapshot; copy_from_store_id lets a freshly
// activated device (which has emitted no config events of its own yet)
// bootstrap by reading the named store's canonical device's snapshot
// instead — e.g. opening a second till at a store that already has a menu.
func (h *Handler) Pull(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.FromContext(r.Context())
	if !ok {
		httpserver.RespondAppError(w, apperr.Unauthorized("no device principal in context"))
		return
	}

	sourceDeviceID := principal.DeviceID
	if raw := r.URL.Query().Get("copy_from_store_id"); raw != "" {
		storeID, err := uuid.Parse(raw)
		if err != nil {
			httpserver.RespondAppError(w, apperr.BadRequest("copy_from_store_id is not a valid id"))
			return
		}
		canonicalID, err := h.canonical.CanonicalDeviceID(r.Context(), storeID)
		if err != nil {
			httpserver.RespondAppError(w, apperr.BadRequest("copy_from_store_id has no canonical device to copy from"))
			return
		}
		sourceDeviceID = canonicalID
	}

	categories, err := h.repo.ListCategories(r.Context(), sourceDeviceID)
	if err != nil {
		httpserver.RespondAppError(w, apperr.Internal(err))
		return
	}
	items, err := h.repo.ListItems(r.Context(), sourceDeviceID)
	if err != nil {
		httpserver.RespondAppError(w, apperr.Internal(err))
		return
	}

	resp := menuResponse{
		Categories: make([]categoryView, len(categories)),
		Items:      make([]itemView, len(items)),
	}
	for i, c := range categories {
		resp.Categories[i] = categoryView{LocalCategoryID: c.LocalCategoryID, Name: c.Name, ImageURL: c.ImageURL}
	}
	for i, it := range items {
		resp.Items[i] = itemView{
			LocalItemID:     it.LocalItemID,
			LocalCategoryID: it.LocalCategoryID,
			Name:            it.Name,
			Visible:         it.Visible,
			ImageURL:        it.ImageURL,
		}
	}

	httpserver.Respond(w, http.StatusOK, resp)
}

type uploadResponse struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// UploadItemImage handles POST /sync/upload-item-image (multipart `file`).
func (h *Handler) UploadItemImage(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity.FromContext(r.Context()); !ok {
		httpserver.RespondAppError(w, apperr.Unauthorized("no device principal in context"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpserver.RespondAppError(w, apperr.New(apperr.KindPayloadTooLarge, "upload exceeds the maximum allowed size"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpserver.RespondAppError(w, apperr.BadRequest("missing multipart field 'file'"))
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		httpserver.RespondAppError(w, apperr.BadRequest("unsupported image extension %q", ext))
		return
	}

	name, err := randomFilename(ext)
	if err != nil {
		httpserver.RespondAppError(w, apperr.Internal(err))
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		httpserver.RespondAppError(w, apperr.Internal(err))
		return
	}

	destPath := filepath.Join(h.uploadDir, name)
	dest, err := os.Create(destPath)
	if err != nil {
		httpserver.RespondAppError(w, apperr.Internal(err))
		return
	}
	defer dest.Close()

	if _, err := io.Copy(dest, file); err != nil {
		httpserver.RespondAppError(w, apperr.Internal(err))
		return
	}

	relPath := filepath.ToSlash(filepath.Join("uploads", name))
	httpserver.Respond(w, http.StatusOK, uploadResponse{
		URL:  h.publicBase + "/" + relPath,
		Path: relPath,
	})
}

func randomFilename(ext string) (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating upload filename: %w", err)
	}
	return hex.EncodeToString(buf) + ext, nil
}
