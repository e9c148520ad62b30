package service

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/iliyamo/wellness-api/internal/clock"
	"github.com/iliyamo/wellness-api/internal/model"
	"github.com/iliyamo/wellness-api/internal/repository"
)

const logLineTime = "2006-01-02 15:04:05-07:00"

// LogArchiver exports a day of request logs to object storage and purges
// rows past retention.
type LogArchiver struct {
	logs      *repository.RequestLogRepo
	store     ObjectStore
	bucket    string
	calendar  clock.Calendar
	clock     clock.Clock
	retention time.Duration
}

func NewLogArchiver(logs *repository.RequestLogRepo, store ObjectStore, bucket string, cal clock.Calendar,
	clk clock.Clock, retentionDays int) *LogArchiver {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &LogArchiver{logs: logs, store: store, bucket: bucket, calendar: cal, clock: clk,
		retention: time.Duration(retentionDays) * 24 * time.Hour}
}

// ArchiveKey is the object key for one local day's export.
func ArchiveKey(d clock.Date) string { return fmt.Sprintf("logs/%s-requests.txt", d) }

// RunOnce exports yesterday (local) and then purges.  The purge runs even
// when the export fails; both errors are reported.
func (a *LogArchiver) RunOnce(ctx context.Context) error {
	now := a.clock.Now()
	day := a.calendar.DayOf(now).AddDays(-1)

	exportErr := a.Export(ctx, day)
	if exportErr != nil {
		log.Printf("archiver: export %s failed: %v", day, exportErr)
	}

	n, err := a.logs.DeleteBefore(ctx, now.Add(-a.retention))
	if err != nil {
		log.Printf("archiver: purge failed: %v", err)
		if exportErr != nil {
			return fmt.Errorf("export: %v; purge: %w", exportErr, err)
		}
		return fmt.Errorf("purge request logs: %w", err)
	}
	log.Printf("archiver: purged %d request logs older than %s", n, a.retention)
	return exportErr
}

// Export writes one line per request of day to the bucket.
func (a *LogArchiver) Export(ctx context.Context, day clock.Date) error {
	from, to := a.calendar.Bounds(day)
	rows, err := a.logs.ListBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list request logs: %w", err)
	}
	body := a.render(rows)
	url, err := a.store.Store(ctx, body, a.bucket, ArchiveKey(day))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	log.Printf("archiver: exported %d request logs for %s to %s", len(rows), day, url)
	return nil
}

func (a *LogArchiver) render(rows []model.RequestLog) []byte {
	var buf bytes.Buffer
	loc := a.calendar.Location()
	for _, r := range rows {
		fmt.Fprintf(&buf, "%s: %s %s - %d\n", r.CreatedAt.In(loc).Format(logLineTime), r.Method, r.URL, r.StatusCode)
	}
	return buf.Bytes()
}

// Start schedules RunOnce on a six-field cron expression (seconds first) in the
// calendar's zone.  The caller stops the returned scheduler on shutdown.
func (a *LogArchiver) Start(schedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds(), cron.WithLocation(a.calendar.Location()))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_ = a.RunOnce(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule log archive %q: %w", schedule, err)
	}
	c.Start()
	log.Printf("archiver: scheduled at %q", schedule)
	return c, nil
}
