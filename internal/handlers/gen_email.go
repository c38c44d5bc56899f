package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tuanngo/rmreach/internal/models"
	"github.com/tuanngo/rmreach/internal/repositories"
	"github.com/tuanngo/rmreach/internal/services"
)

type GenEmailHandler struct {
	emailService     *services.GeneratedEmailService
	schedulerService *services.EmailSchedulerService
}

func NewGenEmailHandler(
	emailService *services.GeneratedEmailService,
	schedulerService *services.EmailSchedulerService,
) *GenEmailHandler {
	return &GenEmailHandler{
		emailService:     emailService,
		schedulerService: schedulerService,
	}
}

// RegisterRoutes mounts the generated email endpoints on the router
func (h *GenEmailHandler) RegisterRoutes(r *gin.Engine) {
	group := r.Group("/gen-email")
	{
		group.GET("/list", h.ListEmails)
		group.GET("/:id", h.GetEmail)
		group.POST("/regenerate/:emailId", h.RegenerateEmail)
		group.POST("/regenerate-rm/:rmId", h.RegenerateRMEmails)
		group.PATCH("/:id/status", h.UpdateEmailStatus)
		group.DELETE("/:id", h.DeleteEmail)
		group.POST("/:id/task", h.CreateTaskForEmail)
		group.POST("/trigger-generation", h.TriggerGeneration)
		group.POST("/trigger-generation-rm/:rmId", h.TriggerGenerationForRM)
	}
}

// ListEmails lists a relationship manager's generated emails, newest first.
// Supports optional status, customerId and emailType filters.
func (h *GenEmailHandler) ListEmails(c *gin.Context) {
	rmID, err := strconv.ParseInt(c.Query("rmId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "rmId query parameter is required",
		})
		return
	}

	filter, err := parseEmailFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	emails, err := h.emailService.ListByRM(rmID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(emails),
		"data":    emails,
	})
}

// GetEmail returns one email with customer and RM details resolved
func (h *GenEmailHandler) GetEmail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	email, err := h.emailService.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    email,
	})
}

// RegenerateEmail re-generates one email's content from its stored
// metadata. The email returns to DRAFT with a fresh expiry.
func (h *GenEmailHandler) RegenerateEmail(c *gin.Context) {
	id, ok := parseIDParam(c, "emailId")
	if !ok {
		return
	}

	var request models.RegenerateEmailRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data: " + err.Error(),
			})
			return
		}
	}

	email, err := h.emailService.Regenerate(c.Request.Context(), id, request.Model, request.CustomPrompt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email regenerated successfully",
		"data":    email,
	})
}

// RegenerateRMEmails regenerates a relationship manager's matching emails.
// Item failures are reported in the result, not as an overall failure.
func (h *GenEmailHandler) RegenerateRMEmails(c *gin.Context) {
	rmID, ok := parseIDParam(c, "rmId")
	if !ok {
		return
	}

	filter, err := parseEmailFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	var request models.RegenerateEmailRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Invalid request data: " + err.Error(),
			})
			return
		}
	}

	result, err := h.emailService.RegenerateByRM(c.Request.Context(), rmID, filter, request.Model, request.CustomPrompt)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// UpdateEmailStatus moves an email to SENT or DELETED
func (h *GenEmailHandler) UpdateEmailStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var request models.UpdateEmailStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request data: " + err.Error(),
		})
		return
	}
	if err := request.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	email, err := h.emailService.UpdateStatus(id, request.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email status updated successfully",
		"data":    email,
	})
}

// DeleteEmail removes an email permanently
func (h *GenEmailHandler) DeleteEmail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.emailService.Delete(id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email deleted successfully",
	})
}

// CreateTaskForEmail manually syncs the follow-up task for a sent email
func (h *GenEmailHandler) CreateTaskForEmail(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	email, err := h.emailService.CreateTaskForEmail(id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task created successfully",
		"data": gin.H{
			"email_id": email.ID,
			"task_id":  services.TaskIDForEmail(email),
		},
	})
}

// TriggerGeneration runs the full daily pass on demand
func (h *GenEmailHandler) TriggerGeneration(c *gin.Context) {
	result, err := h.schedulerService.RunDailyPass(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Generation pass completed",
		"data":    result,
	})
}

// TriggerGenerationForRM runs a generation pass for one relationship manager
func (h *GenEmailHandler) TriggerGenerationForRM(c *gin.Context) {
	rmID, ok := parseIDParam(c, "rmId")
	if !ok {
		return
	}

	result, err := h.schedulerService.RunForRM(c.Request.Context(), rmID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Generation pass completed",
		"data":    result,
	})
}

// parseIDParam reads a numeric path parameter, writing the 400 itself
func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid " + name + " parameter",
		})
		return 0, false
	}
	return id, true
}

// parseEmailFilter reads the optional status, customerId and emailType
// query filters
func parseEmailFilter(c *gin.Context) (repositories.EmailFilter, error) {
	var filter repositories.EmailFilter

	if raw := c.Query("status"); raw != "" {
		status := models.EmailStatus(raw)
		if !status.IsValid() {
			return filter, &models.ValidationError{Field: "status", Message: "invalid status filter"}
		}
		filter.Status = &status
	}

	if raw := c.Query("customerId"); raw != "" {
		customerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, &models.ValidationError{Field: "customerId", Message: "invalid customerId filter"}
		}
		filter.CustomerID = &customerID
	}

	if raw := c.Query("emailType"); raw != "" {
		emailType := models.EmailType(raw)
		if !emailType.IsValid() {
			return filter, &models.ValidationError{Field: "emailType", Message: "invalid emailType filter"}
		}
		filter.EmailType = &emailType
	}

	return filter, nil
}

// respondError maps service errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"message": err.Error(),
		})
	case errors.Is(err, services.ErrContentGeneration), errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": err.Error(),
		})
	}
}
