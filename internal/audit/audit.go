// Package audit records security relevant events: logins, logouts, key
// lifecycle changes, team changes and authorization denials.
package audit

import (
	"context"
	"time"

	"crm-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ActorType represents the type of entity performing an action
type ActorType string

const (
	ActorTypeUser   ActorType = "user"
	ActorTypeAPIKey ActorType = "api_key"
	ActorTypeSystem ActorType = "system"
)

// ResourceType represents the type of resource being acted upon
type ResourceType string

const (
	ResourceTypeAPIKey  ResourceType = "api_key"
	ResourceTypeSession ResourceType = "session"
	ResourceTypeMember  ResourceType = "team_member"
	ResourceTypeUser    ResourceType = "user"
	ResourceTypeCRM     ResourceType = "crm_resource"
)

// Action represents the action being performed
type Action string

const (
	ActionCreate     Action = "create"
	ActionDelete     Action = "delete"
	ActionRevoke     Action = "revoke"
	ActionLogin      Action = "login"
	ActionLogout     Action = "logout"
	ActionInvite     Action = "invite"
	ActionChangeRole Action = "change_role"
	ActionRemove     Action = "remove"
	ActionAccess     Action = "access"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

// Context keys the auth middleware populates
const (
	ContextKeyUserID   = "user_id"
	ContextKeyAPIKeyID = "api_key_id"
)

const recordTimeout = 2 * time.Second

// Event represents an audit event
type Event struct {
	ID           uuid.UUID      `json:"id"`
	EventType    string         `json:"eventType"`
	ActorType    ActorType      `json:"actorType"`
	ActorID      *uuid.UUID     `json:"actorId,omitempty"`
	ResourceType ResourceType   `json:"resourceType"`
	ResourceID   *uuid.UUID     `json:"resourceId,omitempty"`
	Action       Action         `json:"action"`
	Status       Status         `json:"status"`
	IPAddress    string         `json:"ipAddress"`
	UserAgent    string         `json:"userAgent"`
	RequestID    string         `json:"requestId"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// Recorder persists audit events
type Recorder interface {
	Record(ctx context.Context, event *Event) error
}

// Logger builds events from request context and hands them to a Recorder
// in the background so requests never wait on the audit sink.
type Logger struct {
	recorder Recorder
	log      *zap.Logger
	now      func() time.Time
}

func NewLogger(recorder Recorder, log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{recorder: recorder, log: log, now: time.Now}
}

// LogFromContext records an event for the request in c
func (l *Logger) LogFromContext(c echo.Context, resourceType ResourceType, resourceID *uuid.UUID, action Action, status Status, metadata map[string]any) {
	event := l.newEvent(c, resourceType, resourceID, action, status, metadata)
	l.dispatch(event)
}

// LogError records a failed action with error details
func (l *Logger) LogError(c echo.Context, resourceType ResourceType, resourceID *uuid.UUID, action Action, err error) {
	msg := logger.SanitizeLogMessage(err.Error())
	event := l.newEvent(c, resourceType, resourceID, action, StatusFailure, map[string]any{"error": msg})
	event.ErrorMessage = msg
	l.dispatch(event)
}

func (l *Logger) newEvent(c echo.Context, resourceType ResourceType, resourceID *uuid.UUID, action Action, status Status, metadata map[string]any) *Event {
	event := &Event{
		ID:           uuid.New(),
		EventType:    string(action) + "_" + string(resourceType),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		Status:       status,
		IPAddress:    c.RealIP(),
		UserAgent:    c.Request().UserAgent(),
		RequestID:    c.Response().Header().Get(echo.HeaderXRequestID),
		CreatedAt:    l.now().UTC(),
		ActorType:    ActorTypeSystem,
	}
	if metadata != nil {
		event.Metadata = logger.SanitizeMap(metadata)
	}

	if uid, ok := c.Get(ContextKeyUserID).(uuid.UUID); ok {
		event.ActorType = ActorTypeUser
		event.ActorID = &uid
	} else if kid, ok := c.Get(ContextKeyAPIKeyID).(uuid.UUID); ok {
		event.ActorType = ActorTypeAPIKey
		event.ActorID = &kid
	}
	return event
}

func (l *Logger) dispatch(event *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	go func() {
		defer cancel()
		if err := l.recorder.Record(ctx, event); err != nil {
			l.log.Warn("audit record failed",
				zap.String("event_type", event.EventType),
				zap.String("request_id", event.RequestID),
				zap.Error(err))
		}
	}()
}
