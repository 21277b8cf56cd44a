package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/colenew1/Upload-BPO/normalization"
	apperrors "github.com/colenew1/Upload-BPO/server/errors"
	"github.com/colenew1/Upload-BPO/server/services"
)

// UploadHandler обработчик загрузки книг и превью-сессий
type UploadHandler struct {
	uploadService   *services.UploadService
	maxUploadSizeMB int
}

// NewUploadHandler создает новый обработчик загрузок
func NewUploadHandler(uploadService *services.UploadService, maxUploadSizeMB int) *UploadHandler {
	return &UploadHandler{
		uploadService:   uploadService,
		maxUploadSizeMB: maxUploadSizeMB,
	}
}

// SendJSONError единый формат ошибки для фронтенда
func SendJSONError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": true, "message": message})
}

// sendAppError мэппит ошибку приложения на HTTP ответ
func sendAppError(c *gin.Context, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		SendJSONError(c, appErr.StatusCode(), appErr.UserMessage())
		return
	}
	SendJSONError(c, http.StatusInternalServerError, "internal server error")
}

// HandleUpload принимает multipart xlsx файл и создает превью-сессию
func (h *UploadHandler) HandleUpload(c *gin.Context) {
	client := c.PostForm("client")
	if client == "" {
		SendJSONError(c, http.StatusBadRequest, "client form field is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "file form field is required")
		return
	}

	maxBytes := int64(h.maxUploadSizeMB) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		SendJSONError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds maximum size of %d MB", h.maxUploadSizeMB))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		SendJSONError(c, http.StatusBadRequest, "failed to open uploaded file")
		return
	}
	defer file.Close()

	preview, err := h.uploadService.ProcessUpload(c.Request.Context(), file, services.UploadOptions{
		Client:            client,
		BehaviorSheetHint: c.PostForm("behavior_sheet"),
		MetricSheetHint:   c.PostForm("metric_sheet"),
	})
	if err != nil {
		sendAppError(c, err)
		return
	}

	c.JSON(http.StatusCreated, preview)
}

// HandleGetPreview возвращает сохраненное превью
func (h *UploadHandler) HandleGetPreview(c *gin.Context) {
	preview, err := h.uploadService.GetPreview(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// HandleCommitPreview коммитит превью в хранилище записей
func (h *UploadHandler) HandleCommitPreview(c *gin.Context) {
	result, err := h.uploadService.CommitPreview(c.Request.Context(), c.Param("id"))
	if err != nil {
		sendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleExportSummary выгружает сводку нормализации превью
func (h *UploadHandler) HandleExportSummary(c *gin.Context) {
	format := normalization.ExportFormat(c.DefaultQuery("format", string(normalization.FormatJSON)))

	switch format {
	case normalization.FormatJSON:
		c.Header("Content-Type", "application/json")
	case normalization.FormatCSV:
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", "attachment; filename=normalization_summary.csv")
	case normalization.FormatExcel:
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Disposition", "attachment; filename=normalization_summary.xlsx")
	default:
		SendJSONError(c, http.StatusBadRequest, fmt.Sprintf("unsupported export format: %s", format))
		return
	}

	if err := h.uploadService.ExportSummary(c.Request.Context(), c.Param("id"), format, c.Writer); err != nil {
		sendAppError(c, err)
		return
	}
}
