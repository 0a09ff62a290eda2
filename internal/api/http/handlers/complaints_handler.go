package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/campusvoice/complaint-service/internal/api/dto"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/service"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

// ComplaintsHandler serves the complaint workflow for all three roles plus public tracking.
type ComplaintsHandler struct {
	complaints *service.ComplaintService
	responses  *service.ResponseService
}

// NewComplaintsHandler constructs handler.
func NewComplaintsHandler(complaints *service.ComplaintService, responses *service.ResponseService) *ComplaintsHandler {
	return &ComplaintsHandler{complaints: complaints, responses: responses}
}

// Submit handles POST /complaints. Accepts JSON or multipart with files under "files".
func (h *ComplaintsHandler) Submit(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.SubmitComplaintRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	uploads, err := multipartUploads(c, "files")
	if err != nil {
		return err
	}

	result, err := h.complaints.SubmitComplaint(c.UserContext(), user, service.SubmitInput{
		Type:        domain.ComplaintType(req.Type),
		Title:       req.Title,
		Description: req.Description,
		Files:       uploads,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data":         complaintSummary(result.Complaint),
		"notification": notificationStatus(result.Notification),
	})
}

func multipartUploads(c *fiber.Ctx, field string) ([]service.Upload, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, apperrors.NewFieldError(field, "invalid multipart payload")
	}
	headers := form.File[field]
	uploads := make([]service.Upload, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		uploads = append(uploads, service.Upload{
			FileName: fh.Filename,
			Open:     func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return uploads, nil
}

// ListOwn handles GET /student/complaints.
func (h *ComplaintsHandler) ListOwn(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	query, err := parseComplaintQuery(c)
	if err != nil {
		return err
	}
	complaints, err := h.complaints.ListForStudent(c.UserContext(), user, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummaries(complaints)})
}

// GetOwn handles GET /student/complaints/:id.
func (h *ComplaintsHandler) GetOwn(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	detail, err := h.complaints.GetForStudent(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(detail, true)})
}

// ListAll handles GET /general/complaints.
func (h *ComplaintsHandler) ListAll(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	query, err := parseComplaintQuery(c)
	if err != nil {
		return err
	}
	complaints, err := h.complaints.ListAll(c.UserContext(), user, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummaries(complaints)})
}

// ListDepartment handles GET /department/complaints.
func (h *ComplaintsHandler) ListDepartment(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	query, err := parseComplaintQuery(c)
	if err != nil {
		return err
	}
	complaints, err := h.complaints.ListForDepartment(c.UserContext(), user, query)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintSummaries(complaints)})
}

// GetManaged handles GET /general/complaints/:id and GET /department/complaints/:id.
func (h *ComplaintsHandler) GetManaged(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	detail, err := h.complaints.GetForManager(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": complaintDetail(detail, false)})
}

// Assign handles POST /general/complaints/:id/assign.
func (h *ComplaintsHandler) Assign(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.AssignDepartmentRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.complaints.AssignDepartment(c.UserContext(), user, c.Params("id"), req.DepartmentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data":         complaintSummary(result.Complaint),
		"notification": notificationStatus(result.Notification),
	})
}

// Respond handles POST /department/complaints/:id/responses.
func (h *ComplaintsHandler) Respond(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.FileResponseRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.responses.FileResponse(c.UserContext(), user, c.Params("id"), req.Message)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"response":  responseView(result.Response),
			"complaint": complaintSummary(result.Complaint),
		},
		"notification": notificationStatus(result.Notification),
	})
}

// ListResponses handles GET /general/responses.
func (h *ComplaintsHandler) ListResponses(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	visible, err := parseBoolQuery(c.Query("visible"))
	if err != nil {
		return apperrors.NewFieldError("visible", "must be a boolean")
	}
	responses, err := h.responses.ListResponses(c.UserContext(), user, service.ResponseQuery{
		ComplaintID: optionalString(c.Query("complaint_id")),
		Visible:     visible,
		Limit:       parseInt(c.Query("limit"), 0),
		Offset:      parseInt(c.Query("offset"), 0),
	})
	if err != nil {
		return err
	}
	items := make([]dto.ResponseView, 0, len(responses))
	for i := range responses {
		items = append(items, responseView(&responses[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// SetVisibility handles POST /general/responses/:id/visibility.
func (h *ComplaintsHandler) SetVisibility(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.VisibilityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	result, err := h.responses.SetResponseVisibility(c.UserContext(), user, c.Params("id"), *req.Visible)
	if err != nil {
		return err
	}
	body := fiber.Map{
		"data":    responseView(result.Response),
		"changed": result.Changed,
	}
	if result.Notification != nil {
		body["notification"] = notificationStatus(*result.Notification)
	}
	return c.JSON(body)
}

// Track handles GET /track/:code without authentication.
func (h *ComplaintsHandler) Track(c *fiber.Ctx) error {
	view, err := h.complaints.TrackComplaint(c.UserContext(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": view})
}

func parseComplaintQuery(c *fiber.Ctx) (service.ComplaintQuery, error) {
	query := service.ComplaintQuery{
		DepartmentID: optionalString(c.Query("department_id")),
		SearchTerm:   optionalString(c.Query("q")),
		Limit:        parseInt(c.Query("limit"), 0),
		Offset:       parseInt(c.Query("offset"), 0),
	}
	for _, raw := range splitCSV(c.Query("status")) {
		status, err := domain.ParseComplaintStatus(raw)
		if err != nil {
			return query, apperrors.NewFieldError("status", err.Error())
		}
		query.Statuses = append(query.Statuses, status)
	}
	for _, raw := range splitCSV(c.Query("type")) {
		kind, err := domain.ParseComplaintType(raw)
		if err != nil {
			return query, apperrors.NewFieldError("type", err.Error())
		}
		query.Types = append(query.Types, kind)
	}
	var err error
	if query.CreatedFrom, err = parseTime(c.Query("created_from")); err != nil {
		return query, apperrors.NewFieldError("created_from", "must be RFC3339")
	}
	if query.CreatedTo, err = parseTime(c.Query("created_to")); err != nil {
		return query, apperrors.NewFieldError("created_to", "must be RFC3339")
	}
	if query.CreatedFrom != nil && query.CreatedTo != nil && query.CreatedTo.Before(*query.CreatedFrom) {
		return query, apperrors.NewFieldError("created_to", "must not precede created_from")
	}
	return query, nil
}
