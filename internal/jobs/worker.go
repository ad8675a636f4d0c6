package jobs

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"gorm.io/gorm"
)

type Worker struct {
	ID   string
	Repo *Repo
	DB   *gorm.DB
}

// noticeRow reads just what dispatch needs from the notices table.
type noticeRow struct {
	ID     uint64    `gorm:"column:id"`
	Title  string    `gorm:"column:title"`
	Status string    `gorm:"column:status"`
	DueAt  time.Time `gorm:"column:due_at"`
}

func (noticeRow) TableName() string { return "notices" }

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				log.Printf("worker claim error: %v\n", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(job)
		}
	}
}

func (w *Worker) handle(job *Job) {
	switch job.Type {
	case TypeReminderDispatch:
		w.handleReminder(job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

// handleReminder surfaces the reminder when its event comes due. The event
// may have been deleted or the notice closed by hand in the meantime; both
// make the job a no-op.
func (w *Worker) handleReminder(job *Job) {
	type payload struct {
		EventID uint64 `json:"event_id"`
	}
	var p payload
	if err := json.Unmarshal(job.Payload, &p); err != nil {
		_ = w.Repo.MarkFailed(job.ID, "bad payload")
		return
	}

	var n noticeRow
	if err := w.DB.
		Where("event_id = ?", p.EventID).
		First(&n).Error; err != nil {

		if err == gorm.ErrRecordNotFound {
			_ = w.Repo.MarkDone(job.ID)
			return
		}
		w.retry(job, "db read error")
		return
	}

	if n.Status != "pendiente" {
		_ = w.Repo.MarkDone(job.ID)
		return
	}

	log.Printf("[RECORDATORIO] owner=%d evento=%d %q\n", job.OwnerID, p.EventID, n.Title)
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
