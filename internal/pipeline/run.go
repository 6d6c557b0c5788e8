package pipeline

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Hk-V1/consignee-renamer/constants"
	"github.com/Hk-V1/consignee-renamer/internal/archive"
	"github.com/Hk-V1/consignee-renamer/internal/entity"
	"github.com/Hk-V1/consignee-renamer/internal/namer"
)

// Run owns one archive's scratch state from unpack to delivery. All scratch
// directories belong to the run and are removed by Close on every exit path.
type Run struct {
	ID        uuid.UUID
	Source    string
	Entries   []entity.SourceEntry
	Stats     archive.ScanStats
	StartedAt time.Time

	scratchDir string
	unpackDir  string
	stagingDir string
	outputPath string

	keepStaging bool
	closeOnce   sync.Once

	mu         sync.Mutex
	status     constants.RunStatus
	records    []entity.AuditRecord
	found      int
	seq        int
	processed  map[int]struct{}
	resolver   *namer.Resolver
	finishedAt *time.Time
	failure    string
}

// Status returns the run's current state.
func (r *Run) Status() constants.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Run) setStatus(s constants.RunStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

func (r *Run) fail(err error) {
	now := time.Now().UTC()
	r.mu.Lock()
	r.status = constants.RunStatusFailed
	r.failure = err.Error()
	r.finishedAt = &now
	r.mu.Unlock()
}

func (r *Run) finish() {
	now := time.Now().UTC()
	r.mu.Lock()
	r.status = constants.RunStatusDone
	r.finishedAt = &now
	r.mu.Unlock()
}

func (r *Run) appendRecord(rec entity.AuditRecord) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	if rec.Found {
		r.found++
	}
	r.mu.Unlock()
}

// Records returns the audit records accumulated so far, in processing order.
func (r *Run) Records() []entity.AuditRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.AuditRecord, len(r.records))
	copy(out, r.records)
	return out
}

// OutputPath is the staged output archive. Empty until repack.
func (r *Run) OutputPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == constants.RunStatusRepacked || r.status == constants.RunStatusDone {
		return r.outputPath
	}
	return ""
}

// StagingDir exposes the flat directory of renamed files.
func (r *Run) StagingDir() string {
	return r.stagingDir
}

// Summary renders the run for transfer and persistence.
func (r *Run) Summary() entity.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := entity.RunSummary{
		ID:         r.ID,
		Source:     r.Source,
		Status:     string(r.status),
		StartedAt:  r.StartedAt,
		FinishedAt: r.finishedAt,
		Entries:    len(r.Entries),
		Found:      r.found,
		Missing:    len(r.records) - r.found,
	}
	if r.status == constants.RunStatusRepacked || r.status == constants.RunStatusDone {
		name := constants.DefaultOutputName
		s.OutputName = &name
	}
	if r.failure != "" {
		f := r.failure
		s.Error = &f
	}
	return s
}

// Close releases the run's scratch area. It is idempotent and safe on every
// exit path; with KeepStaging set the directories are left for inspection.
func (r *Run) Close() error {
	var err error
	r.closeOnce.Do(func() {
		if r.keepStaging || r.scratchDir == "" {
			return
		}
		err = os.RemoveAll(r.scratchDir)
	})
	return err
}
