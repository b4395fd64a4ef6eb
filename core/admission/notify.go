package admission

import (
	"fmt"

	"github.com/trezcool/admissions/core"
)

type notificationData struct {
	Name            string
	AppliedDate     string
	AdmissionNumber string
	RejectionReason string
}

func newNotificationData(app Application) notificationData {
	data := notificationData{
		Name:            app.Name,
		AdmissionNumber: app.AdmissionNumber,
		RejectionReason: app.RejectionReason,
	}
	if !app.AppliedAt.IsZero() {
		data.AppliedDate = app.AppliedAt.Format(core.DateLayout)
	}
	return data
}

// notify hands `msg` to the email service. The transition it reports on already happened:
// failures are logged and never returned.
func (svc *Service) notify(msg *core.EmailMessage) {
	defer func() {
		if r := recover(); r != nil {
			svc.logger.Error(fmt.Sprintf("dispatching %s notification: %v", msg.TemplateName, r))
		}
	}()

	if !msg.HasRecipients() || msg.To[0].Address == "" {
		svc.logger.Warn(fmt.Sprintf("%s notification not sent: no recipient", msg.TemplateName))
		return
	}
	svc.mailSvc.SendMessages(msg)
}
