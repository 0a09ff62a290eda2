package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/campusvoice/complaint-service/internal/api/dto"
	"github.com/campusvoice/complaint-service/internal/service"
)

// ChatbotHandler manages a student's chatbot sessions.
type ChatbotHandler struct {
	service *service.ChatbotService
}

// NewChatbotHandler builds handler.
func NewChatbotHandler(chatbotService *service.ChatbotService) *ChatbotHandler {
	return &ChatbotHandler{service: chatbotService}
}

// Start POST /chatbot/sessions. The body is optional.
func (h *ChatbotHandler) Start(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req dto.ChatbotSessionRequest
	if len(c.Body()) > 0 {
		if err := bind(c, &req); err != nil {
			return err
		}
	}
	session, err := h.service.StartSession(c.UserContext(), user, req.ExternalConversationID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionResponse(session)})
}

// List GET /chatbot/sessions.
func (h *ChatbotHandler) List(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	sessions, err := h.service.ListSessions(c.UserContext(), user)
	if err != nil {
		return err
	}
	items := make([]dto.ChatbotSessionResponse, 0, len(sessions))
	for i := range sessions {
		items = append(items, sessionResponse(&sessions[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Touch POST /chatbot/sessions/:id/touch.
func (h *ChatbotHandler) Touch(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	session, err := h.service.Touch(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// End POST /chatbot/sessions/:id/end.
func (h *ChatbotHandler) End(c *fiber.Ctx) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	session, err := h.service.End(c.UserContext(), user, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}
