package treasury

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/policy"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ApprovalPort records the submit/approve/reject trail for requisitions.
// Satisfied by shared.ApprovalRecorder.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// IdempotencyPort guards check release against duplicate requests.
// Satisfied by shared.IdempotencyStore.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

func currentActor(ctx context.Context) (policy.Actor, error) {
	actor := shared.ActorFromContext(ctx)
	if actor == nil {
		return nil, httpx.ErrUnauthorized
	}
	return actor, nil
}

func actorID(actor policy.Actor) int64 {
	if ident, ok := actor.(interface{ UserIdentifier() int64 }); ok {
		return ident.UserIdentifier()
	}
	return 0
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

func defaultString(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
