package models

import (
	"encoding/json"
	"time"

	id "estekhdam/pkg/domain"
)

type Channel string

const (
	ChannelInApp Channel = "inapp"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

type DeliveryState string

const (
	DeliverySent   DeliveryState = "sent"
	DeliveryFailed DeliveryState = "failed"
)

// Template keys.
const (
	TemplateCaseCreated      = "case_created"
	TemplateCandidateAccount = "candidate_account"
	TemplateDocumentReviewed = "document_reviewed"
	TemplateVideoReviewed    = "video_reviewed"
	TemplatePhysicalReviewed = "physical_reviewed"
	TemplateCaseClosed       = "case_closed"
)

// Notification is append-only; only ReadAt changes after creation.
type Notification struct {
	ID            id.NotificationID
	ToUserID      id.UserID
	Channel       Channel
	TemplateKey   string
	Payload       json.RawMessage
	SentAt        time.Time
	DeliveryState DeliveryState
	ReadAt        *time.Time
}

func (n Notification) IsRead() bool {
	return n.ReadAt != nil
}
