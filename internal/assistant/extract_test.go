package assistant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC) // a Friday

func TestIsCreateIntent(t *testing.T) {
	assert.True(t, IsCreateIntent("agendá una visita mañana"))
	assert.True(t, IsCreateIntent("creá una reunión para el lunes"))
	assert.True(t, IsCreateIntent("Programar reunión con el lead 4"))
	assert.True(t, IsCreateIntent("crea una llamada"))
	assert.False(t, IsCreateIntent("qué reuniones tengo esta semana"))
	assert.False(t, IsCreateIntent("visitas para mañana"))
}

func TestExtractDate(t *testing.T) {
	cases := []struct {
		text    string
		wantDay int
		ok      bool
	}{
		{"qué tengo hoy", 28, true},
		{"visitas de mañana", 29, true},
		{"y pasado mañana?", 30, true},
		{"reunión el 15/09/2026", 15, true},
		{"reunión el 2026-09-15", 15, true},
		{"reunión el 31/02/2026", 0, false}, // rollover rejected
		{"sin fecha alguna", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := ExtractDate(tc.text, base)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.wantDay, got.Day())
			}
		})
	}
}

func TestExtractDateRelativePriority(t *testing.T) {
	// "pasado mañana" must not be read as plain "mañana"
	got, ok := ExtractDate("pasado mañana a las 9", base)
	require.True(t, ok)
	assert.Equal(t, 30, got.Day())

	// relative words win over explicit dates
	got, ok = ExtractDate("hoy, no el 15/09/2026", base)
	require.True(t, ok)
	assert.Equal(t, 28, got.Day())
}

func TestExtractTime(t *testing.T) {
	cases := []struct {
		text   string
		hh, mm int
		ok     bool
	}{
		{"a las 15:30", 15, 30, true},
		{"a las 9", 9, 0, true},
		{"las 18 hs", 18, 0, true},
		{"mañana 14:15 en la oficina", 14, 15, true},
		{"a las 99", 0, 0, false},
		{"sin hora", 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			hh, mm, ok := ExtractTime(tc.text)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.hh, hh)
				assert.Equal(t, tc.mm, mm)
			}
		})
	}
}

func TestExtractType(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"qué reuniones tengo", "Reunion", true},
		{"una reunión con ana", "Reunion", true},
		{"agendar llamada", "Llamada", true},
		{"visitas de la semana", "Visita", true},
		{"qué tengo mañana", "", false},
	}
	for _, tc := range cases {
		got, ok := ExtractType(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestExtractPropertyID(t *testing.T) {
	cases := []struct {
		text string
		want uint64
		ok   bool
	}{
		{"visita @12", 12, true},
		{"visita #12", 12, true},
		{"@Propiedad 7", 7, true},
		{"en la propiedad 33", 33, true},
		{"propiedad: 33", 33, true},
		{"sin referencia", 0, false},
	}
	for _, tc := range cases {
		got, ok := ExtractPropertyID(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}

func TestExtractLeadID(t *testing.T) {
	got, ok := ExtractLeadID("@lead 45")
	require.True(t, ok)
	assert.EqualValues(t, 45, got)

	got, ok = ExtractLeadID("con el contacto 8")
	require.True(t, ok)
	assert.EqualValues(t, 8, got)

	// bare @N counts as a lead only when the word lead/contacto appears
	got, ok = ExtractLeadID("llamada al lead @9")
	require.True(t, ok)
	assert.EqualValues(t, 9, got)

	_, ok = ExtractLeadID("visita @9")
	assert.False(t, ok)
}

func TestExtractNotes(t *testing.T) {
	assert.Equal(t, "llevar contrato", ExtractNotes("agendá visita mañana nota: llevar contrato"))
	assert.Equal(t, "", ExtractNotes("agendá visita mañana"))
}

func TestWantsWeek(t *testing.T) {
	assert.True(t, WantsWeek("qué tengo esta semana"))
	assert.True(t, WantsWeek("agenda de la semana"))
	assert.False(t, WantsWeek("qué tengo mañana"))
}

func TestTypeLabelAndPluralize(t *testing.T) {
	assert.Equal(t, "reunión", TypeLabel("Reunion"))
	assert.Equal(t, "evento", TypeLabel(""))

	assert.Equal(t, "reuniones", Pluralize("reunión"))
	assert.Equal(t, "llamadas", Pluralize("llamada"))
	assert.Equal(t, "visitas", Pluralize("visita"))
	assert.Equal(t, "eventos", Pluralize("evento"))
}

func TestInterpretCombines(t *testing.T) {
	in := Interpret("agendá una visita mañana a las 15:30 @propiedad 12 con el lead 4 nota: traer dni", base)

	assert.True(t, in.Create)
	require.True(t, in.HasDay)
	assert.Equal(t, 29, in.Day.Day())
	require.True(t, in.HasTime)
	assert.Equal(t, 15, in.Hour)
	assert.Equal(t, 30, in.Minute)
	require.True(t, in.HasType)
	assert.Equal(t, "Visita", in.Type)
	require.True(t, in.HasProp)
	assert.EqualValues(t, 12, in.PropertyID)
	require.True(t, in.HasLead)
	assert.EqualValues(t, 4, in.LeadID)
	assert.Equal(t, "traer dni", in.Notes)

	at := in.EventAt(base)
	assert.Equal(t, time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC), at)
}

func TestInterpretQueryDefaults(t *testing.T) {
	in := Interpret("qué reuniones tengo esta semana", base)
	assert.False(t, in.Create)
	assert.True(t, in.Week)
	assert.False(t, in.HasDay)
	assert.Equal(t, "Reunion", in.Type)
}
