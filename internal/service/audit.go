package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/noah-isme/shift-booking-api/internal/models"
)

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type requestOriginKey struct{}

// RequestOrigin identifies where a mutating call came from.
type RequestOrigin struct {
	IP        string
	UserAgent string
}

// WithRequestOrigin stores the caller's address on ctx for audit records.
func WithRequestOrigin(ctx context.Context, origin RequestOrigin) context.Context {
	return context.WithValue(ctx, requestOriginKey{}, origin)
}

func originFromContext(ctx context.Context, component string) RequestOrigin {
	if origin, ok := ctx.Value(requestOriginKey{}).(RequestOrigin); ok {
		return origin
	}
	return RequestOrigin{IP: "system", UserAgent: component}
}

// auditor writes best-effort audit rows. Failures are logged, never returned.
type auditor struct {
	repo      auditLogger
	logger    *zap.Logger
	component string
}

func (a auditor) record(ctx context.Context, actor *models.JWTClaims, action, resource, resourceID string, oldValues, newValues interface{}) {
	if a.repo == nil {
		return
	}
	origin := originFromContext(ctx, a.component)
	log := &models.AuditLog{
		UserID:    userIDPtr(actor),
		Action:    action,
		Resource:  resource,
		IPAddress: origin.IP,
		UserAgent: origin.UserAgent,
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if oldValues != nil {
		log.OldValues, _ = json.Marshal(oldValues)
	}
	if newValues != nil {
		log.NewValues, _ = json.Marshal(newValues)
	}
	if err := a.repo.CreateAuditLog(ctx, log); err != nil && a.logger != nil {
		a.logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}

func userIDPtr(actor *models.JWTClaims) *string {
	if actor == nil || actor.UserID == "" {
		return nil
	}
	id := actor.UserID
	return &id
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
