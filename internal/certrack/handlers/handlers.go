package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/danupranata/certrack/internal/certrack/controller"
	"github.com/danupranata/certrack/internal/certrack/db"
	e "github.com/danupranata/certrack/internal/certrack/errors"
	"github.com/danupranata/certrack/internal/certrack/importer"
	"github.com/danupranata/certrack/internal/certrack/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	planner  *importer.Planner
	svc      *controller.CertificationService
	repo     *db.Repository
	logger   *zap.Logger
	validate *validator.Validate
}

func NewHandler(planner *importer.Planner, svc *controller.CertificationService, repo *db.Repository, logger *zap.Logger) *Handler {
	return &Handler{
		planner:  planner,
		svc:      svc,
		repo:     repo,
		logger:   logger.Named("http_handler"),
		validate: validator.New(),
	}
}

func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api/v1")

	api.POST("/employees/import", h.importRoster)
	api.GET("/employees/:nip/eligibility", h.employeeEligibility)
	api.GET("/employees/:nip/notifications", h.listNotifications)

	api.POST("/rules", h.createRule)
	api.GET("/rules/:id/eligibility", h.ruleEligibility)

	api.POST("/certifications", h.issueCertification)
	api.PUT("/certifications/:id", h.updateCertification)
	api.DELETE("/certifications/:id", h.invalidateCertification)

	api.POST("/mappings", h.createMapping)
	api.PATCH("/mappings/:id", h.toggleMapping)
	api.POST("/exceptions", h.setException)

	api.POST("/batches", h.createBatch)
	api.POST("/batches/:id/results", h.recordBatchResult)

	api.POST("/notifications/:id/read", h.markNotificationRead)
}

// fail maps domain errors onto status codes without leaking internals.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, e.ErrInvalidInput),
		errors.Is(err, importer.ErrRosterNoData),
		errors.Is(err, importer.ErrRosterTooManyRows):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, e.ErrRosterTooSmall):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) importRoster(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing roster file"})
		return
	}
	defer file.Close()

	rows, err := importer.ParseRoster(file)
	if err != nil {
		h.fail(c, err)
		return
	}
	dryRun := c.Query("dry_run") == "true"
	result, err := h.planner.Apply(c.Request.Context(), rows, dryRun)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) employeeEligibility(c *gin.Context) {
	emp, err := h.repo.FindEmployeeByNIP(c.Request.Context(), c.Param("nip"))
	if err != nil {
		h.fail(c, err)
		return
	}
	rows, err := h.repo.ListEligibilityByEmployee(c.Request.Context(), emp.ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nip": emp.NIP, "eligibility": rows})
}

func (h *Handler) ruleEligibility(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
		return
	}
	rows, err := h.repo.ListEligibilityByRule(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule_id": id, "eligibility": rows})
}

type createRuleRequest struct {
	Certification            string `json:"certification" validate:"required"`
	Level                    string `json:"level" validate:"required"`
	Subfield                 string `json:"subfield"`
	ValidityMonths           int    `json:"validity_months" validate:"required,min=1"`
	ReminderMonths           int    `json:"reminder_months" validate:"min=0"`
	MandatoryAfterHireMonths int    `json:"mandatory_after_hire_months" validate:"min=0"`
}

func (h *Handler) createRule(c *gin.Context) {
	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule, err := h.svc.CreateRule(c.Request.Context(), &models.CertificationRule{
		Certification:            req.Certification,
		Level:                    req.Level,
		Subfield:                 req.Subfield,
		ValidityMonths:           req.ValidityMonths,
		ReminderMonths:           req.ReminderMonths,
		MandatoryAfterHireMonths: req.MandatoryAfterHireMonths,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rule)
}

type certificationRequest struct {
	EmployeeID string `json:"employee_id" validate:"required,uuid"`
	RuleID     string `json:"rule_id" validate:"required,uuid"`
	Number     string `json:"number" validate:"required"`
	IssuedAt   string `json:"issued_at" validate:"required"`
	ValidFrom  string `json:"valid_from"`
	ValidUntil string `json:"valid_until"`
	FileURL    string `json:"file_url"`
	Status     string `json:"status"`
}

func (h *Handler) issueCertification(c *gin.Context) {
	var req certificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cert := &models.EmployeeCertification{
		EmployeeID: uuid.MustParse(req.EmployeeID),
		RuleID:     uuid.MustParse(req.RuleID),
		Number:     req.Number,
		IssuedAt:   parseDate(req.IssuedAt),
		ValidFrom:  parseDate(req.ValidFrom),
		ValidUntil: parseDate(req.ValidUntil),
		FileURL:    req.FileURL,
	}
	created, err := h.svc.IssueCertification(c.Request.Context(), cert)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) updateCertification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certification id"})
		return
	}
	var req certificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	updated, err := h.svc.UpdateCertification(c.Request.Context(), &models.EmployeeCertification{
		ID:         id,
		Number:     req.Number,
		ValidFrom:  parseDate(req.ValidFrom),
		ValidUntil: parseDate(req.ValidUntil),
		FileURL:    req.FileURL,
		Status:     models.CertificationStatus(req.Status),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *Handler) invalidateCertification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certification id"})
		return
	}
	if err := h.svc.InvalidateCertification(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type mappingRequest struct {
	JobPositionID string `json:"job_position_id" validate:"required,uuid"`
	RuleID        string `json:"rule_id" validate:"required,uuid"`
}

func (h *Handler) createMapping(c *gin.Context) {
	var req mappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.svc.CreateMapping(c.Request.Context(), &models.JobCertificationMapping{
		JobPositionID: uuid.MustParse(req.JobPositionID),
		RuleID:        uuid.MustParse(req.RuleID),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *Handler) toggleMapping(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid mapping id"})
		return
	}
	var req struct {
		Active *bool `json:"active" validate:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if err := h.svc.SetMappingActive(c.Request.Context(), id, *req.Active); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type exceptionRequest struct {
	EmployeeID string `json:"employee_id" validate:"required,uuid"`
	RuleID     string `json:"rule_id" validate:"required,uuid"`
	Excluded   bool   `json:"excluded"`
	Active     bool   `json:"active"`
}

func (h *Handler) setException(c *gin.Context) {
	var req exceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	exc := &models.EmployeeEligibilityException{
		EmployeeID: uuid.MustParse(req.EmployeeID),
		RuleID:     uuid.MustParse(req.RuleID),
		Excluded:   req.Excluded,
		Active:     req.Active,
	}
	if err := h.svc.SetException(c.Request.Context(), exc); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, exc)
}

type batchRequest struct {
	Name      string `json:"name" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=TRAINING REFRESHMENT EXTENSION"`
	RuleID    string `json:"rule_id" validate:"required,uuid"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date"`
}

func (h *Handler) createBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	b, err := h.svc.CreateBatch(c.Request.Context(), &models.Batch{
		Name:      req.Name,
		Type:      models.BatchType(req.Type),
		RuleID:    uuid.MustParse(req.RuleID),
		StartDate: parseDate(req.StartDate),
		EndDate:   parseDate(req.EndDate),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type batchResultRequest struct {
	EmployeeID string `json:"employee_id" validate:"required,uuid"`
	Result     string `json:"result" validate:"required,oneof=REGISTERED PASSED FAILED"`
}

func (h *Handler) recordBatchResult(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid batch id"})
		return
	}
	var req batchResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed payload"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	err = h.svc.RecordBatchResult(c.Request.Context(), &models.EmployeeBatch{
		BatchID:    batchID,
		EmployeeID: uuid.MustParse(req.EmployeeID),
		Result:     models.BatchResult(req.Result),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listNotifications(c *gin.Context) {
	emp, err := h.repo.FindEmployeeByNIP(c.Request.Context(), c.Param("nip"))
	if err != nil {
		h.fail(c, err)
		return
	}
	unreadOnly := c.Query("unread") == "true"
	rows, err := h.repo.ListNotifications(c.Request.Context(), emp.ID, unreadOnly)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": rows})
}

func (h *Handler) markNotificationRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	if err := h.repo.MarkNotificationRead(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
