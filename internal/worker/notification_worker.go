package worker

import (
	"github.com/campusvoice/complaint-service/internal/service"
)

// StartNotificationWorker registers notification handlers on the dispatcher.
// Delivery runs inline with the publishing request.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
