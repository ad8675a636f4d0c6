package transfer

import (
	"context"
	"testing"
	"time"

	"inmocrm/internal/contact"
	"inmocrm/internal/event"
	"inmocrm/internal/notice"
	"inmocrm/internal/stage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	svc, id := newService(t)
	require.NoError(t, svc.DB.AutoMigrate(&notice.Notice{}))

	var nuevo stage.Stage
	require.NoError(t, svc.DB.Where("phase = ?", "Nuevo").First(&nuevo).Error)

	for i := 0; i < 3; i++ {
		c := contact.Contact{OwnerID: 1, Name: "lead", StageID: &nuevo.ID}
		require.NoError(t, svc.DB.Create(&c).Error)
	}

	now := time.Now().UTC()
	require.NoError(t, svc.DB.Create(&event.Event{
		OwnerID: 1, Type: "Visita", StartsAt: now.Add(24 * time.Hour),
	}).Error)
	require.NoError(t, svc.DB.Create(&notice.Notice{
		OwnerID: 1, Title: "vencida", DueAt: now.Add(-time.Hour), Status: notice.StatusPending,
	}).Error)

	d, err := svc.Dashboard(context.Background(), id)
	require.NoError(t, err)

	assert.EqualValues(t, 3, d.Contacts)
	assert.EqualValues(t, 1, d.Events)
	require.Len(t, d.PipelineByStage, 1)
	assert.Equal(t, "Nuevo", d.PipelineByStage[0].Phase)
	assert.EqualValues(t, 3, d.PipelineByStage[0].Count)
	require.Len(t, d.UpcomingEvents, 1)
	require.Len(t, d.OverdueNotices, 1)
	assert.Equal(t, notice.StatusOverdue, d.OverdueNotices[0].Status)
	assert.Len(t, d.LatestContacts, 3)
}
