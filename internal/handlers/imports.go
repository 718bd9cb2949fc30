package handlers

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/services"
)

type ImportHandler struct {
	log           *logger.Logger
	importService services.ImportService
}

func NewImportHandler(log *logger.Logger, importService services.ImportService) *ImportHandler {
	return &ImportHandler{
		log:           log.With("handler", "ImportHandler"),
		importService: importService,
	}
}

func uploadFromForm(header *multipart.FileHeader) (services.FileUpload, multipart.File, error) {
	f, err := header.Open()
	if err != nil {
		return services.FileUpload{}, nil, err
	}
	return services.FileUpload{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Reader:   f,
	}, f, nil
}

// POST /api/imports
func (h *ImportHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())

	header, err := c.FormFile("file")
	if err != nil {
		RespondBadRequest(c, "a file is required")
		return
	}
	upload, f, err := uploadFromForm(header)
	if err != nil {
		RespondBadRequest(c, "could not read uploaded file")
		return
	}
	defer f.Close()

	imp, err := h.importService.CreateImport(c.Request.Context(), rd, upload)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"import": imp})
}

// POST /api/imports/:id/files
func (h *ImportHandler) AppendFile(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	importID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid import id")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		RespondBadRequest(c, "a file is required")
		return
	}
	upload, f, err := uploadFromForm(header)
	if err != nil {
		RespondBadRequest(c, "could not read uploaded file")
		return
	}
	defer f.Close()

	imp, err := h.importService.AppendFile(c.Request.Context(), rd, importID, upload)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"import": imp})
}

// GET /api/imports
func (h *ImportHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	imports, err := h.importService.ListImports(c.Request.Context(), rd)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"imports": imports})
}

// GET /api/imports/:id
func (h *ImportHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	importID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid import id")
		return
	}
	imp, err := h.importService.GetImport(c.Request.Context(), rd, importID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"import": imp})
}

// GET /api/imports/:id/status
// Poll target for clients without an SSE connection.
func (h *ImportHandler) Status(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	importID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid import id")
		return
	}
	status, err := h.importService.GetStatus(c.Request.Context(), rd, importID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, status)
}

// POST /api/imports/:id/retry
func (h *ImportHandler) Retry(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	importID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid import id")
		return
	}
	imp, err := h.importService.Retry(c.Request.Context(), rd, importID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"import": imp})
}

// POST /api/imports/:id/convert
// Materializes the extraction into the agent's wizard draft.
func (h *ImportHandler) Convert(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	importID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "invalid import id")
		return
	}
	draft, err := h.importService.Convert(c.Request.Context(), rd, importID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"draft": draft})
}
