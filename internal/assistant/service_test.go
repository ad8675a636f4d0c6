package assistant

import (
	"context"
	"fmt"
	"strings"
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

func newService(t *testing.T) (*Service, auth.Identity) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&stage.Stage{}, &stage.History{},
		&contact.Contact{}, &property.Property{},
		&event.Event{}, &notice.Notice{}, &jobs.Job{},
	))

	events := &event.Service{DB: db, Loc: time.UTC}
	return &Service{Loc: time.UTC, Events: events}, auth.Identity{UserID: 1}
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	svc, id := newService(t)
	_, err := svc.Ask(context.Background(), id, "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestAskCreateNeedsTimeAndEntity(t *testing.T) {
	svc, id := newService(t)

	_, err := svc.Ask(context.Background(), id, "agendá una visita mañana @propiedad 1")
	assert.ErrorIs(t, err, ErrNoTime)

	_, err = svc.Ask(context.Background(), id, "agendá una visita mañana a las 15")
	assert.ErrorIs(t, err, ErrNoEntity)
}

func TestAskCreateUnknownRefsAnswer404(t *testing.T) {
	svc, id := newService(t)

	_, err := svc.Ask(context.Background(), id, "agendá una visita mañana a las 15 @propiedad 99")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Error(), "propiedad #99")

	_, err = svc.Ask(context.Background(), id, "agendá una llamada mañana a las 15 con el lead 42")
	require.ErrorAs(t, err, &nf)
	assert.Contains(t, nf.Error(), "lead/contacto #42")
}

func TestAskCreatesEvent(t *testing.T) {
	svc, id := newService(t)
	db := svc.Events.DB

	p := property.Property{OwnerID: id.UserID, Code: "P-1", Title: "Casa del lago", Kind: property.KindHouse}
	require.NoError(t, db.Create(&p).Error)

	q := fmt.Sprintf("agendá una visita mañana a las 15:30 @propiedad %d nota: llevar contrato", p.ID)
	reply, err := svc.Ask(context.Background(), id, q)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(reply.Answer, "Listo, agendé una visita para el "), reply.Answer)
	assert.Contains(t, reply.Answer, "Casa del lago")

	var ev event.Event
	require.NoError(t, db.First(&ev).Error)
	assert.Equal(t, event.TypeVisit, ev.Type)
	assert.Equal(t, 15, ev.StartsAt.UTC().Hour())
	assert.Equal(t, 30, ev.StartsAt.Minute())
	assert.Equal(t, "llevar contrato", ev.Notes)
	require.NotNil(t, ev.PropertyID)
	assert.Equal(t, p.ID, *ev.PropertyID)
}

func TestAskCreateCanUseForeignProperty(t *testing.T) {
	svc, id := newService(t)
	db := svc.Events.DB

	// another agent's listing: the assistant may still book a visit there
	p := property.Property{OwnerID: 2, Code: "P-2", Title: "Depto ajeno", Kind: property.KindApartment}
	require.NoError(t, db.Create(&p).Error)

	q := fmt.Sprintf("agendá una visita mañana a las 10 @propiedad %d", p.ID)
	_, err := svc.Ask(context.Background(), id, q)
	assert.NoError(t, err)
}

func TestAskQueryCountsAndSummarizes(t *testing.T) {
	svc, id := newService(t)
	db := svc.Events.DB

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	mk := func(h int, typ string) {
		at := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), h, 0, 0, 0, time.UTC)
		require.NoError(t, db.Create(&event.Event{
			OwnerID: id.UserID, Type: typ, StartsAt: at,
		}).Error)
	}
	mk(9, event.TypeMeeting)
	mk(11, event.TypeMeeting)
	mk(16, event.TypeCall)

	reply, err := svc.Ask(context.Background(), id, "qué reuniones tengo esta semana")
	require.NoError(t, err)
	assert.Contains(t, reply.Answer, "Tenés 2 reuniones para esta semana")
	assert.Contains(t, reply.Answer, "09:00")
	assert.EqualValues(t, 2, reply.Data["count"])

	reply, err = svc.Ask(context.Background(), id, "qué tengo mañana")
	require.NoError(t, err)
	assert.EqualValues(t, 3, reply.Data["count"])
}

func TestAskQueryEmpty(t *testing.T) {
	svc, id := newService(t)

	reply, err := svc.Ask(context.Background(), id, "qué visitas tengo esta semana")
	require.NoError(t, err)
	assert.Contains(t, reply.Answer, "No encontré")
	assert.EqualValues(t, 0, reply.Data["count"])
}

func TestAskQueryScopedToOwner(t *testing.T) {
	svc, id := newService(t)
	db := svc.Events.DB

	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	require.NoError(t, db.Create(&event.Event{
		OwnerID: 2, Type: event.TypeMeeting, StartsAt: tomorrow,
	}).Error)

	reply, err := svc.Ask(context.Background(), id, "qué tengo esta semana")
	require.NoError(t, err)
	assert.EqualValues(t, 0, reply.Data["count"])
}
