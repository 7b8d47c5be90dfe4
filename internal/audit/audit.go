// Package audit is the append-only record of lifecycle and
// administrative actions. Entries survive retention purges.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// Actions recorded by the engine.
const (
	ActionCampaignCreated   = "CAMPAIGN_CREATED"
	ActionCampaignUpdated   = "CAMPAIGN_UPDATED"
	ActionCampaignDeleted   = "CAMPAIGN_DELETED"
	ActionCampaignScheduled = "CAMPAIGN_SCHEDULED"
	ActionCampaignPaused    = "CAMPAIGN_PAUSED"
	ActionCampaignResumed   = "CAMPAIGN_RESUMED"
	ActionCampaignStopped   = "CAMPAIGN_STOPPED"
	ActionCampaignRunNow    = "CAMPAIGN_RUN_NOW"
	ActionRunStarted        = "CAMPAIGN_RUN_STARTED"
	ActionRunCompleted      = "CAMPAIGN_RUN_COMPLETED"
	ActionRunFailed         = "CAMPAIGN_RUN_FAILED"
	ActionTemplateCreated   = "TEMPLATE_CREATED"
	ActionTemplateUpdated   = "TEMPLATE_UPDATED"
	ActionTemplateDeleted   = "TEMPLATE_DELETED"
	ActionSettingsUpdated   = "TRANSPORT_SETTINGS_UPDATED"
	ActionRetentionPurge    = "DATA_RETENTION_PURGE"
)

// Store persists audit entries.
type Store interface {
	Insert(ctx context.Context, e *domain.AuditEntry) error
}

// Logger writes audit entries. Write failures are logged and swallowed;
// auditing must never fail the action it describes.
type Logger struct {
	store Store
}

// NewLogger creates an audit logger backed by the given store.
func NewLogger(store Store) *Logger {
	return &Logger{store: store}
}

// Record appends one entry.
func (l *Logger) Record(ctx context.Context, action, entityType, entityID, actor, actorIP, details string) {
	if l == nil || l.store == nil {
		return
	}
	e := &domain.AuditEntry{
		ID:         uuid.New().String(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Actor:      actor,
		ActorIP:    actorIP,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
	if err := l.store.Insert(ctx, e); err != nil {
		log.Printf("[Audit] write failed for %s %s/%s: %v", action, entityType, entityID, err)
	}
}
