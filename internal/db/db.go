package db

import (
	"fmt"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
	"inmocrm/internal/event"
	"inmocrm/internal/jobs"
	"inmocrm/internal/notice"
	"inmocrm/internal/property"
	"inmocrm/internal/stage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&stage.Stage{},
		&stage.History{},
		&contact.Contact{},
		&property.Property{},
		&event.Event{},
		&notice.Notice{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// One event per property slot. The application-level conflict check runs
	// inside the write transaction; this backs it against races.
	if err := gdb.Exec(`
create unique index if not exists uq_events_property_slot
on events(property_id, starts_at)
where property_id is not null;
`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		`create index if not exists idx_contacts_owner_next on contacts(owner_id, next_contact_at);`,
		`create index if not exists idx_contacts_owner_last on contacts(owner_id, last_contact_at);`,
		`create index if not exists idx_events_owner_starts on events(owner_id, starts_at);`,
		`create index if not exists idx_notices_owner_due on notices(owner_id, due_at);`,
		`create index if not exists idx_notices_status_due on notices(status, due_at);`,
		`create index if not exists idx_stage_histories_contact on stage_histories(contact_id, changed_at desc);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	// Baseline pipeline phases
	return stage.Seed(gdb)
}
