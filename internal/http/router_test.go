package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inmocrm/internal/auth"
	"inmocrm/internal/config"
	"inmocrm/internal/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrateAndIndexes(gdb))

	cfg := config.Config{Location: time.UTC}
	srv := httptest.NewServer(NewRouter(cfg, gdb, auth.NewJWT("test-secret")))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*nethttp.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := nethttp.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func register(t *testing.T, srv *httptest.Server, email string) string {
	t.Helper()
	resp, body := call(t, srv, "POST", "/api/auth/register", "", map[string]any{
		"name": "Agente", "email": email, "password": "secretísima",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterLoginMe(t *testing.T) {
	srv := newTestServer(t)
	register(t, srv, "agente@example.com")

	resp, body := call(t, srv, "POST", "/api/auth/login", "", map[string]any{
		"email": "agente@example.com", "password": "secretísima",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	token := body["token"].(string)

	resp, body = call(t, srv, "GET", "/api/me", token, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "agente@example.com", body["email"])

	resp, _ = call(t, srv, "POST", "/api/auth/login", "", map[string]any{
		"email": "agente@example.com", "password": "incorrecta",
	})
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)

	resp, body := call(t, srv, "POST", "/api/auth/register", "", map[string]any{
		"name": "A", "email": "no-es-mail", "password": "corta",
	})
	require.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	fields, _ := body["fields"].(map[string]any)
	assert.Contains(t, fields, "Email")
	assert.Contains(t, fields, "Password")
}

func TestRequiresAuth(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := call(t, srv, "GET", "/api/contacts/", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
}

func TestContactsAreTenantScoped(t *testing.T) {
	srv := newTestServer(t)
	alice := register(t, srv, "alice@example.com")
	bob := register(t, srv, "bob@example.com")

	resp, _ := call(t, srv, "POST", "/api/contacts/", alice, map[string]any{
		"name": "Ana", "email": "ana@example.com",
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	_, body := call(t, srv, "GET", "/api/contacts/", alice, nil)
	assert.EqualValues(t, 1, body["count"])

	_, body = call(t, srv, "GET", "/api/contacts/", bob, nil)
	assert.EqualValues(t, 0, body["count"])
}

func TestEventConflictAnswers409(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "agente@example.com")

	resp, prop := call(t, srv, "POST", "/api/properties/", token, map[string]any{
		"code": "P-1", "title": "Casa del lago", "price": 100000,
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	propID := prop["id"]

	start := time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02T15:04:05")

	resp, _ = call(t, srv, "POST", "/api/events/", token, map[string]any{
		"type": "Visita", "starts_at": start, "property": propID,
	})
	require.Equal(t, nethttp.StatusCreated, resp.StatusCode)

	resp, body := call(t, srv, "POST", "/api/events/", token, map[string]any{
		"type": "Reunion", "starts_at": start, "property": propID,
	})
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestStageWritesAreStaffOnly(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "agente@example.com")

	resp, _ := call(t, srv, "POST", "/api/stages/", token, map[string]any{
		"phase": "Congelado",
	})
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)

	// seeded pipeline is readable by anyone
	resp, _ = call(t, srv, "GET", "/api/stages/", token, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
}

func TestAssistantEndpoint(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "agente@example.com")

	resp, body := call(t, srv, "POST", "/api/assistant", token, map[string]any{
		"query": "qué visitas tengo esta semana",
	})
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, body["answer"], "No encontré")

	resp, _ = call(t, srv, "POST", "/api/assistant", token, map[string]any{
		"query": "agendá una visita mañana a las 15 @propiedad 99",
	})
	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
}

func TestImportMultipartCSV(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "agente@example.com")

	csvBody := "=== LEADS ===\n" +
		"id,nombre,apellido,email,telefono,estado_fase,creado_en\n" +
		",Ana,García,ana@example.com,1155,Nuevo,\n"

	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	fw, err := mpw.CreateFormFile("file", "import.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	req, err := nethttp.NewRequest("POST", srv.URL+"/api/import", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)

	out := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	leads, _ := out["leads"].(map[string]any)
	assert.EqualValues(t, 1, leads["created"])

	_, body := call(t, srv, "GET", "/api/contacts/", token, nil)
	assert.EqualValues(t, 1, body["count"])
}

func TestDashboardAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	token := register(t, srv, "agente@example.com")

	resp, body := call(t, srv, "GET", "/api/dashboard", token, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "pipeline_by_stage")

	resp, body = call(t, srv, "GET", "/api/metrics?year=2026&month=6", token, nil)
	require.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 6, body["month"])
}
