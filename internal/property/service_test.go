package property_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/contact"
	"inmocrm/internal/event"
	"inmocrm/internal/jobs"
	"inmocrm/internal/notice"
	"inmocrm/internal/property"
	"inmocrm/internal/stage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&stage.Stage{}, &contact.Contact{}, &property.Property{},
		&event.Event{}, &notice.Notice{}, &jobs.Job{},
	))
	return db
}

func seedContact(t *testing.T, db *gorm.DB, owner uint64) *contact.Contact {
	t.Helper()
	c := contact.Contact{OwnerID: owner, Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, db.Create(&c).Error)
	return &c
}

func seedProperty(t *testing.T, svc *property.Service, id auth.Identity, code string) *property.Property {
	t.Helper()
	p := property.Property{Code: code, Title: "Casa " + code, Price: 100000}
	require.NoError(t, svc.Create(context.Background(), id, &p))
	return &p
}

func TestUpdateStampsSoldAt(t *testing.T) {
	db := openDB(t)
	svc := &property.Service{DB: db, Loc: time.UTC}
	id := auth.Identity{UserID: 1}
	p := seedProperty(t, svc, id, "P-1")

	got, err := svc.Update(context.Background(), id, p.ID,
		map[string]any{"status": property.StatusSold})
	require.NoError(t, err)

	var stored property.Property
	require.NoError(t, db.First(&stored, got.ID).Error)
	assert.Equal(t, property.StatusSold, stored.Status)
	require.NotNil(t, stored.SoldAt)
}

func TestDeleteCascadesAndRecomputesContactNext(t *testing.T) {
	db := openDB(t)
	id := auth.Identity{UserID: 1}
	propSvc := &property.Service{DB: db, Loc: time.UTC}
	evSvc := &event.Service{DB: db, Loc: time.UTC}

	c := seedContact(t, db, id.UserID)
	doomed := seedProperty(t, propSvc, id, "P-1")
	kept := seedProperty(t, propSvc, id, "P-2")

	// earliest event sits on the property about to go away
	first, err := evSvc.Create(context.Background(), id, event.WriteInput{
		Type: event.TypeVisit, StartsAt: time.Now().UTC().Add(24 * time.Hour),
		ContactID: &c.ID, PropertyID: &doomed.ID,
	})
	require.NoError(t, err)
	second, err := evSvc.Create(context.Background(), id, event.WriteInput{
		Type: event.TypeMeeting, StartsAt: time.Now().UTC().Add(72 * time.Hour),
		ContactID: &c.ID, PropertyID: &kept.ID,
	})
	require.NoError(t, err)

	var before contact.Contact
	require.NoError(t, db.First(&before, c.ID).Error)
	require.NotNil(t, before.NextContactAt)
	require.True(t, before.NextContactAt.Equal(first.StartsAt))

	require.NoError(t, propSvc.Delete(context.Background(), id, doomed.ID))

	var events, notices, pending int64
	require.NoError(t, db.Model(&event.Event{}).
		Where("property_id = ?", doomed.ID).Count(&events).Error)
	assert.Zero(t, events)
	require.NoError(t, db.Model(&notice.Notice{}).
		Where("event_id = ?", first.ID).Count(&notices).Error)
	assert.Zero(t, notices)
	require.NoError(t, db.Model(&jobs.Job{}).
		Where("status = 'PENDING'").Count(&pending).Error)
	assert.EqualValues(t, 1, pending) // only the kept property's reminder survives

	// next-contact falls forward to the surviving event
	var after contact.Contact
	require.NoError(t, db.First(&after, c.ID).Error)
	require.NotNil(t, after.NextContactAt)
	assert.True(t, after.NextContactAt.Equal(second.StartsAt))
}

func TestDeleteClearsNextWhenNoEventsRemain(t *testing.T) {
	db := openDB(t)
	id := auth.Identity{UserID: 1}
	propSvc := &property.Service{DB: db, Loc: time.UTC}
	evSvc := &event.Service{DB: db, Loc: time.UTC}

	c := seedContact(t, db, id.UserID)
	p := seedProperty(t, propSvc, id, "P-1")

	_, err := evSvc.Create(context.Background(), id, event.WriteInput{
		Type: event.TypeVisit, StartsAt: time.Now().UTC().Add(24 * time.Hour),
		ContactID: &c.ID, PropertyID: &p.ID,
	})
	require.NoError(t, err)

	require.NoError(t, propSvc.Delete(context.Background(), id, p.ID))

	var after contact.Contact
	require.NoError(t, db.First(&after, c.ID).Error)
	assert.Nil(t, after.NextContactAt)
}
