package blobstore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/athlos/athlos/internal/platform/apperror"
	"github.com/athlos/athlos/internal/platform/auth"
)

// Handler exposes attachment upload and retrieval endpoints.
type Handler struct {
	store BlobStore
}

func NewHandler(store BlobStore) *Handler {
	return &Handler{store: store}
}

// Register mounts attachment routes on the given group.
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Upload)
	g.GET("/:id", h.Download)
	g.GET("/:id/metadata", h.GetMetadata)
	g.DELETE("/:id", h.Delete)
}

// Upload accepts a multipart form with a "file" part and optional "category"
// field. The caller becomes the attachment owner.
func (h *Handler) Upload(c echo.Context) error {
	identity, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperror.Validation("file part is required", map[string]string{"file": "required"})
	}
	if fileHeader.Size > MaxFileSize {
		return apperror.Validation("file exceeds maximum allowed size", map[string]string{"file": "too large"})
	}

	category := c.FormValue("category")
	if category == "" {
		category = "other"
	}
	if !AllowedCategories[category] {
		return apperror.Validation("unknown category", map[string]string{"category": "must be one of injury-image, checkup-attachment, other"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("opening upload: %w", err)
	}
	defer src.Close()

	meta, err := h.store.Upload(c.Request().Context(), BlobMetadata{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		OwnerID:     identity.ID.String(),
		Category:    category,
		CreatedBy:   identity.ID.String(),
	}, src)
	if err != nil {
		return mapStoreError(err)
	}

	return c.JSON(http.StatusCreated, meta)
}

// Download streams the attachment content. Athletes can only fetch their own
// attachments; doctors and admins can fetch any.
func (h *Handler) Download(c echo.Context) error {
	meta, err := h.authorize(c)
	if err != nil {
		return err
	}

	body, meta, err := h.store.Download(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	defer body.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", meta.FileName))
	return c.Stream(http.StatusOK, meta.ContentType, body)
}

// GetMetadata returns attachment metadata without content.
func (h *Handler) GetMetadata(c echo.Context) error {
	meta, err := h.authorize(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meta)
}

// Delete removes an attachment. Only the owner or an admin may delete.
func (h *Handler) Delete(c echo.Context) error {
	identity, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	meta, err := h.store.GetMetadata(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapStoreError(err)
	}
	if identity.Role != auth.RoleAdmin && meta.OwnerID != identity.ID.String() {
		return apperror.Forbidden("only the attachment owner can delete it")
	}

	if err := h.store.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapStoreError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// authorize loads metadata and enforces read access. Owners, doctors, and
// admins pass.
func (h *Handler) authorize(c echo.Context) (*BlobMetadata, error) {
	identity, ok := auth.IdentityFromContext(c.Request().Context())
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	meta, err := h.store.GetMetadata(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, mapStoreError(err)
	}

	switch identity.Role {
	case auth.RoleAdmin, auth.RoleDoctor:
		return meta, nil
	}
	if meta.OwnerID == identity.ID.String() {
		return meta, nil
	}
	return nil, apperror.Forbidden("attachment belongs to another user")
}

func mapStoreError(err error) error {
	switch {
	case errors.Is(err, ErrBlobNotFound):
		return apperror.NotFound("attachment not found")
	case errors.Is(err, ErrFileTooLarge):
		return apperror.Validation("file exceeds maximum allowed size", map[string]string{"file": "too large"})
	case errors.Is(err, ErrInvalidContentType):
		return apperror.Validation("content type is not allowed", map[string]string{"file": "unsupported content type"})
	case errors.Is(err, ErrMissingFileName):
		return apperror.Validation("file name is required", map[string]string{"file": "name required"})
	}
	return err
}
