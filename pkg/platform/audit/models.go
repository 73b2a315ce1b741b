package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose so sinks can
// apply different retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers changes to who may see which records.
	// These are written in the same transaction as the state change.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers refused access attempts.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// AuditEvent names an action recorded in the trail.
type AuditEvent string

const (
	EventIdentityRegistered AuditEvent = "identity_registered"
	EventDocumentAdded      AuditEvent = "document_added"
	EventAccessGranted      AuditEvent = "access_granted"
	EventAccessRevoked      AuditEvent = "access_revoked"
	EventAccessDenied       AuditEvent = "access_denied"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventIdentityRegistered: CategoryCompliance,
	EventAccessGranted:      CategoryCompliance,
	EventAccessRevoked:      CategoryCompliance,

	EventAccessDenied: CategorySecurity,

	EventDocumentAdded: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. It is
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Category  EventCategory `json:"category"`
	Timestamp time.Time     `json:"timestamp"`
	Action    AuditEvent    `json:"action"`
	// Actor is the verified caller that performed the action.
	Actor string `json:"actor"`
	// Subject is the other party or object acted on: the consumer of a grant,
	// the owner whose documents were requested, or a content pointer.
	Subject   string `json:"subject,omitempty"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	// ClientAgent is a browser and OS summary, never the raw header.
	ClientAgent string `json:"client_agent,omitempty"`
}

// Store persists audit events. Append must join a transaction carried in ctx
// when the implementation is SQL-backed.
type Store interface {
	Append(ctx context.Context, event Event) error
}
