package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"canister/internal/service"
)

// Pre-signed download URL expiry bounds, in seconds.
const (
	defaultExpirySec = 900
	minExpirySec     = 60
	maxExpirySec     = 3600
)

// ArtifactHandler exposes the artifact endpoints. Handlers stay minimal and
// free of business logic; everything interesting lives in the service.
type ArtifactHandler struct {
	svc service.ArtifactService
}

// NewArtifactHandler creates the handler for /artifacts routes.
func NewArtifactHandler(svc service.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{svc: svc}
}

var _ Registrar = (*ArtifactHandler)(nil)

// Routes mounts the artifact endpoints.
// The literal /artifacts/lookup route is registered before /artifacts/:id so
// it is never captured by the id parameter.
func (h *ArtifactHandler) Routes(r fiber.Router) {
	r.Post("/artifacts", h.upload)
	r.Get("/artifacts", h.list)
	r.Get("/artifacts/lookup", h.lookup)
	r.Get("/artifacts/:id", h.get)
	r.Get("/artifacts/:id/content", h.content)
	r.Get("/artifacts/:id/download", h.download)
	r.Delete("/artifacts/:id", h.delete)
}

// upload accepts multipart/form-data with a "file" part plus "name" and
// "version" form fields, streams the content to storage, and returns the
// stored metadata with 201.
func (h *ArtifactHandler) upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
	}
	name := c.FormValue("name")
	if name == "" {
		return writeError(c, fiber.StatusBadRequest, "NAME_REQUIRED", "name is required")
	}
	version := c.FormValue("version")
	if version == "" {
		return writeError(c, fiber.StatusBadRequest, "VERSION_REQUIRED", "version is required")
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
	}
	defer f.Close()

	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}

	art, err := h.svc.Upload(c.UserContext(), f, name, version, ct, fh.Size)
	if err != nil {
		if errors.Is(err, service.ErrVersionExists) {
			return writeError(c, fiber.StatusConflict, "VERSION_EXISTS", "artifact version already exists")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	return c.Status(fiber.StatusCreated).JSON(art)
}

// list returns a page of artifacts with limit & offset, optionally filtered
// by exact name.
func (h *ArtifactHandler) list(c *fiber.Ctx) error {
	limitStr := c.Query("limit", "10")
	offsetStr := c.Query("offset", "0")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
	}

	res, err := h.svc.List(c.UserContext(), c.Query("name"), limit, offset)
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	return c.JSON(res)
}

// lookup resolves an artifact by name and version query parameters.
func (h *ArtifactHandler) lookup(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return writeError(c, fiber.StatusBadRequest, "NAME_REQUIRED", "name is required")
	}
	version := c.Query("version")
	if version == "" {
		return writeError(c, fiber.StatusBadRequest, "VERSION_REQUIRED", "version is required")
	}

	art, err := h.svc.Lookup(c.UserContext(), name, version)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "artifact not found")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	return c.JSON(art)
}

// get returns artifact metadata by ID.
func (h *ArtifactHandler) get(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}
	art, err := h.svc.Get(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "artifact not found")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	return c.JSON(art)
}

// content streams the artifact bytes from object storage to the client.
func (h *ArtifactHandler) content(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}
	rc, art, err := h.svc.Fetch(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "artifact not found")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}

	c.Set(fiber.HeaderContentType, art.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+art.Name+`-`+art.Version+`"`)
	c.Set("X-Artifact-Digest", art.Digest)

	// SendStream closes rc once the response body has been written.
	if art.Size > 0 {
		return c.SendStream(rc, int(art.Size))
	}
	return c.SendStream(rc)
}

// download returns a pre-signed URL so clients fetch the content straight
// from object storage. expiry_sec must be within [60, 3600], default 900.
func (h *ArtifactHandler) download(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}

	expiryStr := c.Query("expiry_sec", strconv.Itoa(defaultExpirySec))
	sec, err := strconv.Atoi(expiryStr)
	if err != nil || sec < minExpirySec || sec > maxExpirySec {
		return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", "expiry_sec must be between 60 and 3600")
	}

	u, err := h.svc.DownloadURL(c.UserContext(), id, time.Duration(sec)*time.Second)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "artifact not found")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	return c.JSON(fiber.Map{
		"url":            u,
		"expires_in_sec": sec,
	})
}

// delete removes an artifact by ID.
func (h *ArtifactHandler) delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}
	if err := h.svc.Delete(c.UserContext(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "artifact not found")
		}
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
