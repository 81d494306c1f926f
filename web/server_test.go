// ABOUTME: Tests for the web server routes and websocket events
// ABOUTME: Uses httptest against an in-memory repository
package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/logging"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/store"
)

func setupTestServer(t *testing.T) (*crm.Repository, *httptest.Server, *Server) {
	t.Helper()
	log := logging.Discard()
	repo, err := crm.New(crm.Options{
		Store:    store.New(store.NewMemoryKV(), log),
		Notifier: &notify.Recorder{},
		Clock:    clock.NewMock(),
		Logger:   log,
	})
	require.NoError(t, err)
	srv, err := NewServer(repo, log)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		_ = repo.Close()
	})
	return repo, ts, srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestDashboard(t *testing.T) {
	_, ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Sales Funnel")
	assert.Contains(t, string(body), "Jane Smith")
	assert.Contains(t, string(body), "Proposal Sent")
}

func TestLeadsSearch(t *testing.T) {
	_, ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/leads?q=jane")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Jane Smith")
	assert.NotContains(t, string(body), "John Doe")
}

func TestExportCSV(t *testing.T) {
	_, ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/export.csv?funnel=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "leads-export-")
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(string(body), "\n")
	assert.Equal(t, "ID,Name,Phone,Email,Stage,Source,Created At", lines[0])
	assert.Len(t, lines, 3)
}

func TestWebhookRequiresActiveWebhook(t *testing.T) {
	repo, ts, _ := setupTestServer(t)

	resp := postJSON(t, ts.URL+"/webhooks/funnels/1", `{"name":"Web Lead","phone":"+15550001"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/webhooks/funnels/missing", `{"name":"Web Lead","phone":"+15550001"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Len(t, repo.Leads(), 2)
}

func TestWebhookCreatesLead(t *testing.T) {
	repo, ts, _ := setupTestServer(t)
	_, err := repo.SetWebhook("1", true, "")
	require.NoError(t, err)

	resp := postJSON(t, ts.URL+"/webhooks/funnels/1", `{"name":"Web Lead","phone":"+15550001","email":"web@example.com"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var lead models.Lead
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lead))
	assert.Equal(t, models.SourceWebhook, lead.Source)
	assert.Equal(t, "1", lead.FunnelID)
	assert.Equal(t, "1-1", lead.Stage)

	resp = postJSON(t, ts.URL+"/webhooks/funnels/1", `{"name":"No Phone"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/webhooks/funnels/1", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	assert.Len(t, repo.Leads(), 3)
}

func TestLeadMessages(t *testing.T) {
	_, ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/leads/2/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var messages []models.ChatMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&messages))
	require.Len(t, messages, 2)
	assert.Equal(t, models.DirectionOutgoing, messages[0].Direction)
	assert.Equal(t, models.DirectionIncoming, messages[1].Direction)

	resp2, err := http.Get(ts.URL + "/leads/1/messages")
	require.NoError(t, err)
	defer resp2.Body.Close()
	body, err := io.ReadAll(resp2.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(body))

	resp3, err := http.Get(ts.URL + "/leads/nope/messages")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

func TestGraph(t *testing.T) {
	_, ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/graph?funnel=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "digraph")

	resp2, err := http.Get(ts.URL + "/graph?funnel=nope")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestWebsocketReceivesEvents(t *testing.T) {
	repo, ts, srv := setupTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return srv.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = repo.MoveLead("1", "1-3", "1")
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var e crm.Event
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, crm.LeadMoved, e.Kind)
	assert.Equal(t, "1", e.ID)
}
