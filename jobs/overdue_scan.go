package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
)

// OverdueScanner marks unpaid invoices past their due date. Implemented by
// the accounts payable service; the scan is the only producer of the
// overdue status.
type OverdueScanner interface {
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

// NewOverdueScanHandler builds the Asynq handler for the overdue scan.
func NewOverdueScanHandler(scanner OverdueScanner, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload OverdueScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		asOf := payload.AsOf
		if asOf.IsZero() {
			asOf = time.Now()
		}
		tracker := metrics.Track("invoice_overdue_scan")
		count, err := scanner.MarkOverdue(ctx, asOf)
		if err != nil {
			if logger != nil {
				logger.Error("invoice overdue scan", slog.Any("error", err))
			}
			return tracker.End(err)
		}
		metrics.AddOverdueInvoices(count)
		if logger != nil && count > 0 {
			logger.Info("invoice overdue scan", slog.Int("marked", count))
		}
		return tracker.End(nil)
	}
}
