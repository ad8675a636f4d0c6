package transfer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
	"inmocrm/internal/event"
	"inmocrm/internal/property"
	"inmocrm/internal/stage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newService(t *testing.T) (*Service, auth.Identity) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&stage.Stage{}, &stage.History{},
		&contact.Contact{}, &property.Property{}, &event.Event{},
	))
	require.NoError(t, stage.Seed(db))
	return &Service{DB: db, Loc: time.UTC}, auth.Identity{UserID: 1}
}

func TestImportCreatesAndUpserts(t *testing.T) {
	svc, id := newService(t)

	res, err := svc.Import(context.Background(), id, ImportRequest{
		Leads: []LeadRow{
			{Name: "Ana", LastName: "Suárez", Email: "ana@example.com", StagePhase: "Nuevo"},
			{Name: "Beto", Email: "beto@example.com"},
		},
		Properties: []PropertyRow{
			{Code: "P-1", Title: "Casa del lago", Kind: "casa", Price: 100000},
		},
	})
	require.NoError(t, err)
	require.False(t, res.Failed())
	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, 2, res.Leads.Created)
	assert.Equal(t, 1, res.Properties.Created)

	// second run: one row changed, one identical
	res, err = svc.Import(context.Background(), id, ImportRequest{
		Leads: []LeadRow{
			{Name: "Ana María", Email: "ana@example.com"},
			{Name: "Beto", Email: "beto@example.com"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Leads.Created)
	assert.Equal(t, 1, res.Leads.Updated)
	assert.Equal(t, 1, res.Leads.Unchanged)

	var c contact.Contact
	require.NoError(t, svc.DB.Where("email = ?", "ana@example.com").First(&c).Error)
	assert.Equal(t, "Ana María", c.Name)
	assert.Equal(t, "Suárez", c.LastName) // blank row field left the stored value
}

func TestImportReportsRowErrors(t *testing.T) {
	svc, id := newService(t)

	res, err := svc.Import(context.Background(), id, ImportRequest{
		Leads: []LeadRow{
			{Name: "Ana", Email: "ana@example.com"},
			{Name: "SinMail"},
			{Name: "Zoe", Email: "zoe@example.com", StagePhase: "Inexistente"},
		},
		Properties: []PropertyRow{
			{Title: "sin código"},
			{Code: "P-1", Title: "ok", Kind: "castillo"},
		},
	})
	require.NoError(t, err)
	require.True(t, res.Failed())

	assert.Equal(t, 1, res.Leads.Created)
	require.Len(t, res.Leads.Errors, 2)
	assert.Equal(t, 1, res.Leads.Errors[0].Index)
	assert.Equal(t, "email requerido", res.Leads.Errors[0].Error)
	assert.Equal(t, 2, res.Leads.Errors[1].Index)
	assert.Contains(t, res.Leads.Errors[1].Error, "Inexistente")

	require.Len(t, res.Properties.Errors, 2)
	assert.Contains(t, res.Properties.Errors[1].Error, "castillo")
}

func TestImportEvents(t *testing.T) {
	svc, id := newService(t)

	p := property.Property{OwnerID: 1, Code: "P-1", Title: "Casa", Kind: "casa"}
	require.NoError(t, svc.DB.Create(&p).Error)
	c := contact.Contact{OwnerID: 1, Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, svc.DB.Create(&c).Error)

	res, err := svc.Import(context.Background(), id, ImportRequest{
		Events: []EventRow{
			{Type: "Visita", StartsAt: "2026-09-10 15:00", PropertyID: &p.ID, ContactID: &c.ID},
			{Type: "Fiesta", StartsAt: "2026-09-10 16:00"},
			{Type: "Llamada", StartsAt: "no es fecha"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Events.Created)
	require.Len(t, res.Events.Errors, 2)

	// same (property, starts_at) slot: upsert, not duplicate
	res, err = svc.Import(context.Background(), id, ImportRequest{
		Events: []EventRow{
			{Type: "Reunion", StartsAt: "2026-09-10 15:00", PropertyID: &p.ID},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Events.Created)
	assert.Equal(t, 1, res.Events.Updated)

	var n int64
	require.NoError(t, svc.DB.Model(&event.Event{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestImportRejectsForeignRefs(t *testing.T) {
	svc, id := newService(t)

	p := property.Property{OwnerID: 2, Code: "AJENA", Title: "Casa ajena", Kind: "casa"}
	require.NoError(t, svc.DB.Create(&p).Error)

	res, err := svc.Import(context.Background(), id, ImportRequest{
		Events: []EventRow{
			{Type: "Visita", StartsAt: "2026-09-10 15:00", PropertyID: &p.ID},
		},
	})
	require.NoError(t, err)
	require.Len(t, res.Events.Errors, 1)
	assert.Contains(t, res.Events.Errors[0].Error, "no encontrada")
}

func TestImportDryRunRollsBack(t *testing.T) {
	svc, id := newService(t)

	res, err := svc.Import(context.Background(), id, ImportRequest{
		DryRun: true,
		Leads: []LeadRow{
			{Name: "Ana", Email: "ana@example.com"},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Leads.Created)

	var n int64
	require.NoError(t, svc.DB.Model(&contact.Contact{}).Count(&n).Error)
	assert.Zero(t, n)
}
