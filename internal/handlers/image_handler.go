package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"photoadmit/internal/admission"
	"photoadmit/internal/records"
	"photoadmit/internal/utils"
)

const (
	minFilesPerUpload = 1
	maxFilesPerUpload = 10
	maxFileSizeBytes  = 10 * 1024 * 1024
)

var allowedUploadExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".heic": true, ".heif": true,
}

// ImageHandler exposes the five /api/images routes of §6 over an
// admission.Facade; the sixth, /health, is served by the router itself.
type ImageHandler struct {
	facade *admission.Facade
}

// NewImageHandler creates a new image handler.
func NewImageHandler(facade *admission.Facade) *ImageHandler {
	return &ImageHandler{facade: facade}
}

// imageSummary is the per-file shape returned from POST /api/images.
type imageSummary struct {
	ID           uuid.UUID      `json:"id"`
	Status       records.Status `json:"status"`
	OriginalName string         `json:"originalName"`
}

// UploadImages handles POST /api/images: multipart images[] (1-10
// files, each <= 10 MiB, extension in the allowed set).
func (h *ImageHandler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		utils.SendError(c, utils.InvalidRequest("multipart form could not be parsed"))
		return
	}

	fileHeaders := form.File["images[]"]
	if len(fileHeaders) == 0 {
		fileHeaders = form.File["images"]
	}
	if len(fileHeaders) < minFilesPerUpload {
		utils.SendError(c, utils.InvalidRequest("no files uploaded"))
		return
	}
	if len(fileHeaders) > maxFilesPerUpload {
		utils.SendError(c, utils.InvalidRequest("too many files, maximum is 10"))
		return
	}

	files := make([]admission.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		if fh.Size > maxFileSizeBytes {
			utils.SendError(c, utils.InvalidRequest("file \""+fh.Filename+"\" exceeds the 10 MiB limit"))
			return
		}
		if !allowedUploadExtensions[extLower(fh.Filename)] {
			utils.SendError(c, utils.InvalidRequest("file \""+fh.Filename+"\" has an unsupported extension"))
			return
		}

		data, err := readMultipartFile(fh)
		if err != nil {
			utils.SendError(c, utils.NewAPIError(http.StatusInternalServerError, "Server Error", err))
			return
		}

		files = append(files, admission.UploadFile{
			OriginalName: fh.Filename,
			Data:         data,
			ContentType:  fh.Header.Get("Content-Type"),
		})
	}

	results := h.facade.UploadBatch(c.Request.Context(), files)

	summaries := make([]imageSummary, 0, len(results))
	for _, r := range results {
		summaries = append(summaries, imageSummary{ID: r.ID, Status: r.Status, OriginalName: r.OriginalName})
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Images uploaded successfully",
		"images":  summaries,
	})
}

// ListImages handles GET /api/images: query page>=1, limit>=1, status?.
func (h *ImageHandler) ListImages(c *gin.Context) {
	page, limit := utils.GetPagination(c)
	offset := utils.GetOffset(page, limit)

	var statusFilter records.Status
	if raw := c.Query("status"); raw != "" {
		statusFilter = records.Status(toUpperASCII(raw))
		switch statusFilter {
		case records.StatusPending, records.StatusProcessing, records.StatusProcessed, records.StatusFailed:
		default:
			utils.SendError(c, utils.InvalidRequest("status must be one of pending, processing, processed, failed"))
			return
		}
	}

	images, total, err := h.facade.List(c.Request.Context(), statusFilter, page, limit, offset)
	if err != nil {
		utils.SendError(c, utils.NewAPIError(http.StatusInternalServerError, "Server Error", err))
		return
	}

	pagination := utils.NewPagination(page, limit, total)
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"images":     images,
		"pagination": pagination,
	})
}

// GetImage handles GET /api/images/:id.
func (h *ImageHandler) GetImage(c *gin.Context) {
	id, err := parseImageID(c)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	image, err := h.facade.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			utils.SendError(c, utils.NotFound("image not found"))
			return
		}
		utils.SendError(c, utils.NewAPIError(http.StatusInternalServerError, "Server Error", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "image": image})
}

// DeleteImage handles DELETE /api/images/:id.
func (h *ImageHandler) DeleteImage(c *gin.Context) {
	id, err := parseImageID(c)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	if err := h.facade.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, records.ErrNotFound) {
			utils.SendError(c, utils.NotFound("image not found"))
			return
		}
		utils.SendError(c, utils.NewAPIError(http.StatusInternalServerError, "Server Error", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Image deleted"})
}

// ReprocessImage handles POST /api/images/:id/process.
func (h *ImageHandler) ReprocessImage(c *gin.Context) {
	id, err := parseImageID(c)
	if err != nil {
		utils.SendError(c, err)
		return
	}

	if err := h.facade.Reprocess(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, records.ErrNotFound):
			utils.SendError(c, utils.NotFound("image not found"))
		case errors.Is(err, admission.ErrAlreadyProcessed):
			utils.SendError(c, utils.InvalidRequest("image already processed"))
		default:
			utils.SendError(c, utils.NewAPIError(http.StatusInternalServerError, "Server Error", err))
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Reprocessing scheduled",
		"imageId": id,
	})
}

func parseImageID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, utils.InvalidRequest("invalid image id")
	}
	return id, nil
}

func extLower(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			return toLowerASCII(name[i:])
		}
	}
	return ""
}

func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

func readMultipartFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
