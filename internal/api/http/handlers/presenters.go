package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campusvoice/complaint-service/internal/api/dto"
	"github.com/campusvoice/complaint-service/internal/auth"
	"github.com/campusvoice/complaint-service/internal/domain"
	"github.com/campusvoice/complaint-service/internal/service"
	apperrors "github.com/campusvoice/complaint-service/pkg/util"
)

func currentUser(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User, nil
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
		DepartmentID: user.DepartmentID,
		GPA:          user.GPA,
		CreatedAt:    user.CreatedAt,
	}
}

func departmentResponse(dept *domain.Department) dto.DepartmentResponse {
	return dto.DepartmentResponse{
		ID:        dept.ID,
		Name:      dept.Name,
		CreatedAt: dept.CreatedAt,
		UpdatedAt: dept.UpdatedAt,
	}
}

func complaintSummary(complaint *domain.Complaint) dto.ComplaintSummary {
	return dto.ComplaintSummary{
		ID:           complaint.ID,
		TrackingCode: complaint.TrackingCode,
		Type:         complaint.Type,
		Title:        complaint.Title,
		Status:       complaint.Status,
		DepartmentID: complaint.DepartmentID,
		CreatedAt:    complaint.CreatedAt,
		UpdatedAt:    complaint.UpdatedAt,
	}
}

func complaintSummaries(complaints []domain.Complaint) []dto.ComplaintSummary {
	items := make([]dto.ComplaintSummary, 0, len(complaints))
	for i := range complaints {
		items = append(items, complaintSummary(&complaints[i]))
	}
	return items
}

// complaintDetail renders a complaint. Students do not see sender ids.
func complaintDetail(detail *service.ComplaintDetail, forStudent bool) dto.ComplaintDetailResponse {
	out := dto.ComplaintDetailResponse{
		ComplaintSummary: complaintSummary(detail.Complaint),
		Description:      detail.Complaint.Description,
		Attachments:      make([]dto.AttachmentResponse, 0, len(detail.Complaint.Attachments)),
		Responses:        make([]dto.ResponseView, 0, len(detail.Responses)),
	}
	if !forStudent {
		out.SubmitterID = detail.Complaint.SubmitterID
	}
	for _, a := range detail.Complaint.Attachments {
		out.Attachments = append(out.Attachments, dto.AttachmentResponse{
			ID:        a.ID,
			FileName:  a.FileName,
			MimeType:  a.MimeType,
			SizeBytes: a.SizeBytes,
			URL:       a.URL,
		})
	}
	for i := range detail.Responses {
		view := responseView(&detail.Responses[i])
		if forStudent {
			view.SenderID = nil
		}
		out.Responses = append(out.Responses, view)
	}
	return out
}

func responseView(response *domain.Response) dto.ResponseView {
	return dto.ResponseView{
		ID:               response.ID,
		ComplaintID:      response.ComplaintID,
		SenderID:         response.SenderID,
		Message:          response.Message,
		VisibleToStudent: response.VisibleToStudent,
		PublishedAt:      response.PublishedAt,
		CreatedAt:        response.CreatedAt,
	}
}

func notificationStatus(result service.NotificationResult) dto.NotificationStatus {
	return dto.NotificationStatus{Delivered: result.Delivered, Error: result.Error}
}

func sessionResponse(session *domain.ChatbotSession) dto.ChatbotSessionResponse {
	return dto.ChatbotSessionResponse{
		ID:                     session.ID,
		ExternalConversationID: session.ExternalConversationID,
		StartedAt:              session.StartedAt,
		LastActivityAt:         session.LastActivityAt,
		EndedAt:                session.EndedAt,
		Active:                 session.Active(),
	}
}
