package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/signalvault/vaultagent/internal/domain"
)

// archiveBatchSize bounds how many journal rows a single snapshot covers.
const archiveBatchSize = 10000

// Archiver periodically snapshots the settlement journal and the
// liquidation audit trail to object storage as JSONL files. Rows are never
// deleted from the primary store here; pruning is a separate operator step
// taken after an archive has been verified.
type Archiver struct {
	writer       domain.BlobWriter
	settlements  domain.SettlementStore
	liquidations domain.LiquidationStore
	logger       *slog.Logger
}

// NewArchiver creates an Archiver. Either store may be nil; the
// corresponding snapshot is skipped.
func NewArchiver(
	writer domain.BlobWriter,
	settlements domain.SettlementStore,
	liquidations domain.LiquidationStore,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		writer:       writer,
		settlements:  settlements,
		liquidations: liquidations,
		logger:       logger.With(slog.String("component", "archiver")),
	}
}

// Run snapshots both stores on the given interval until the context is
// cancelled.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := a.ArchiveOnce(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// ArchiveOnce uploads one snapshot of each configured store.
func (a *Archiver) ArchiveOnce(ctx context.Context) error {
	if a.settlements != nil {
		if _, err := a.ArchiveSettlements(ctx); err != nil {
			return err
		}
	}
	if a.liquidations != nil {
		if _, err := a.ArchiveLiquidations(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ArchiveSettlements snapshots the settlement journal to
// archive/settlements/YYYY-MM-DD.jsonl and returns the row count.
func (a *Archiver) ArchiveSettlements(ctx context.Context) (int, error) {
	records, err := a.settlements.ListRecent(ctx, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements query: %w", err)
	}
	buf, err := marshalJSONL(records)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive settlements marshal: %w", err)
	}
	return len(records), a.upload(ctx, "settlements", buf, len(records))
}

// ArchiveLiquidations snapshots the liquidation audit trail to
// archive/liquidations/YYYY-MM-DD.jsonl and returns the row count.
func (a *Archiver) ArchiveLiquidations(ctx context.Context) (int, error) {
	events, err := a.liquidations.ListRecent(ctx, archiveBatchSize)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive liquidations query: %w", err)
	}
	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive liquidations marshal: %w", err)
	}
	return len(events), a.upload(ctx, "liquidations", buf, len(events))
}

// upload puts JSONL bytes under archive/<kind>/, partitioned by day. Empty
// snapshots are skipped.
func (a *Archiver) upload(ctx context.Context, kind string, buf []byte, count int) error {
	if count == 0 {
		return nil
	}

	path := fmt.Sprintf("archive/%s/%s.jsonl", kind, time.Now().UTC().Format("2006-01-02"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive %s upload: %w", kind, err)
	}

	a.logger.InfoContext(ctx, "archive uploaded",
		slog.String("kind", kind),
		slog.String("path", path),
		slog.Int("count", count),
	)
	return nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON. Each
// element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
