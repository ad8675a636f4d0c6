package transfer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSVRoundTrip(t *testing.T) {
	data := &ExportData{Sections: []Section{
		{
			Resource: ResourceLeads,
			Columns:  []string{"id", "nombre", "apellido", "email", "telefono", "estado_fase", "creado_en"},
			Rows: [][]any{
				{1, "Ana", "García", "ana@example.com", "1155", "Nuevo", "2026-06-01T10:00:00Z"},
			},
		},
		{
			Resource: ResourceEvents,
			Columns:  []string{"id", "tipo", "fecha_hora", "propiedad_id", "contacto_id", "email", "nombre", "apellido", "notas"},
			Rows: [][]any{
				{7, "Visita", "2026-06-10T15:00:00Z", 3, nil, "", "", "", "llevar llaves"},
			},
		},
	}}

	body, err := data.WriteCSV()
	require.NoError(t, err)

	req, err := ParseCSV(strings.NewReader(string(body)))
	require.NoError(t, err)

	require.Len(t, req.Leads, 1)
	assert.Equal(t, "Ana", req.Leads[0].Name)
	assert.Equal(t, "ana@example.com", req.Leads[0].Email)
	assert.Equal(t, "Nuevo", req.Leads[0].StagePhase)

	require.Len(t, req.Events, 1)
	ev := req.Events[0]
	assert.EqualValues(t, 7, ev.ID)
	assert.Equal(t, "Visita", ev.Type)
	require.NotNil(t, ev.PropertyID)
	assert.EqualValues(t, 3, *ev.PropertyID)
	assert.Nil(t, ev.ContactID)
	assert.Equal(t, "llevar llaves", ev.Notes)
}

func TestParseCSVRejectsUnknownSection(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("=== USUARIOS ===\nid\n1\n"))
	assert.ErrorIs(t, err, ErrUnknownSection)

	// data before any banner is just as wrong
	_, err = ParseCSV(strings.NewReader("id,nombre\n1,Ana\n"))
	assert.ErrorIs(t, err, ErrUnknownSection)
}

func TestParseJSON(t *testing.T) {
	req, err := ParseJSON(strings.NewReader(`{
		"dry_run": true,
		"leads": [{"nombre": "Ana", "email": "ana@example.com"}],
		"propiedades": [{"codigo": "P-1", "titulo": "Casa del lago"}]
	}`))
	require.NoError(t, err)
	assert.True(t, req.DryRun)
	require.Len(t, req.Leads, 1)
	assert.Equal(t, "Ana", req.Leads[0].Name)
	require.Len(t, req.Properties, 1)
	assert.Equal(t, "P-1", req.Properties[0].Code)
}
