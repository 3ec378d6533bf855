package jobs

import (
	"context"
	"log"
	"time"
)

type scanPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ScanRetentionJob periodically deletes scan events older than the retention window.
type ScanRetentionJob struct {
	events    scanPruner
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
	done      chan struct{}
	stopped   chan struct{}
}

func NewScanRetentionJob(events scanPruner, retention, interval time.Duration) *ScanRetentionJob {
	return &ScanRetentionJob{
		events:    events,
		retention: retention,
		interval:  interval,
		now:       time.Now,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
}

// Start runs one pass immediately, then one per interval until Stop.
// A non-positive retention keeps scans forever and the job does nothing.
func (j *ScanRetentionJob) Start() {
	if j.retention <= 0 {
		log.Println("ScanRetentionJob: retention disabled, scan events are kept forever")
		close(j.stopped)
		return
	}
	log.Printf("ScanRetentionJob: started (retention %s, every %s)", j.retention, j.interval)

	go func() {
		defer close(j.stopped)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.cleanup()
		for {
			select {
			case <-ticker.C:
				j.cleanup()
			case <-j.done:
				log.Println("ScanRetentionJob: stopped")
				return
			}
		}
	}()
}

// Stop ends the job and waits for a running pass to finish.
func (j *ScanRetentionJob) Stop() {
	close(j.done)
	<-j.stopped
}

func (j *ScanRetentionJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := j.now().UTC().Add(-j.retention)
	count, err := j.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("ScanRetentionJob: cleanup failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("ScanRetentionJob: deleted %d scan event(s) older than %s", count, cutoff.Format(time.RFC3339))
	}
}
