// ABOUTME: Tests for repository construction, persistence and events
// ABOUTME: Uses an in-memory KV, a mock clock and a recording notifier
package crm

import (
	"errors"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/logging"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/store"
)

type testEnv struct {
	repo  *Repository
	rec   *notify.Recorder
	clock *clock.Mock
	kv    *store.MemoryKV
	store *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithKV(t, store.NewMemoryKV())
}

func newTestEnvWithKV(t *testing.T, kv *store.MemoryKV) *testEnv {
	t.Helper()
	mock := clock.NewMock()
	mock.Add(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Sub(mock.Now()))
	rec := &notify.Recorder{}
	st := store.New(kv, logging.Discard())
	repo, err := New(Options{Store: st, Notifier: rec, Clock: mock, Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return &testEnv{repo: repo, rec: rec, clock: mock, kv: kv, store: st}
}

func TestNewSeedsAndPersists(t *testing.T) {
	env := newTestEnv(t)

	assert.Len(t, env.repo.Funnels(), 1)
	assert.Len(t, env.repo.Leads(), 2)
	assert.Len(t, env.repo.Users(), 2)

	require.NoError(t, env.repo.Flush())
	var leads []models.Lead
	ok, err := env.store.Load(store.KeyLeads, &leads)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, leads, 2)
}

func TestPersistedStateSurvivesReload(t *testing.T) {
	kv := store.NewMemoryKV()
	env := newTestEnvWithKV(t, kv)

	lead, err := env.repo.AddLead(models.Lead{Name: "Ada", Phone: "+4400"})
	require.NoError(t, err)
	require.NoError(t, env.repo.Close())

	reloaded := newTestEnvWithKV(t, kv)
	got, err := reloaded.repo.Lead(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Len(t, reloaded.repo.Leads(), 3)
}

func TestBackgroundFlush(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.repo.AddFunnel("Partners", nil, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var funnels []models.Funnel
		ok, err := env.store.Load(store.KeyFunnels, &funnels)
		return err == nil && ok && len(funnels) == 2
	}, time.Second, 5*time.Millisecond)
}

type failingKV struct{ *store.MemoryKV }

func (failingKV) Set(key, value []byte) error { return errors.New("disk full") }

func TestFlushKeepsFailedKeysDirty(t *testing.T) {
	st := store.New(failingKV{store.NewMemoryKV()}, logging.Discard())
	repo, err := New(Options{Store: st, Notifier: &notify.Recorder{}, Clock: clock.NewMock(), Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	assert.Error(t, repo.Flush())
	assert.Error(t, repo.Flush(), "keys stay dirty after a failed save")
}

// lockedKV fails the first read of one key, the way a busy SQLite file or an
// unreachable charm server would.
type lockedKV struct {
	*store.MemoryKV
	key    store.Key
	failed bool
}

func (k *lockedKV) Get(key []byte) ([]byte, error) {
	if !k.failed && string(key) == string(k.key) {
		k.failed = true
		return nil, errors.New("database is locked")
	}
	return k.MemoryKV.Get(key)
}

func TestNewDoesNotSeedOverUnreadableSlot(t *testing.T) {
	mem := store.NewMemoryKV()
	st := store.New(mem, logging.Discard())
	stored := []models.Lead{
		{ID: "a", Name: "Ada", Phone: "+1"},
		{ID: "b", Name: "Bob", Phone: "+2"},
		{ID: "c", Name: "Cy", Phone: "+3"},
	}
	require.NoError(t, st.Save(store.KeyLeads, stored))

	kv := &lockedKV{MemoryKV: mem, key: store.KeyLeads}
	repo, err := New(Options{Store: store.New(kv, logging.Discard()), Notifier: &notify.Recorder{}, Clock: clock.NewMock(), Logger: logging.Discard()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Nil(t, repo)

	var leads []models.Lead
	ok, err := st.Load(store.KeyLeads, &leads)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored, leads)

	_, funnelsWritten, err := st.Raw(store.KeyFunnels)
	require.NoError(t, err)
	assert.False(t, funnelsWritten, "nothing is seeded when a read fails")

	// Once the backend recovers the stored leads load unchanged.
	repo, err = New(Options{Store: store.New(kv, logging.Discard()), Notifier: &notify.Recorder{}, Clock: clock.NewMock(), Logger: logging.Discard()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	assert.Len(t, repo.Leads(), 3)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	env := newTestEnv(t)

	var events []Event
	unsubscribe := env.repo.Subscribe(func(e Event) { events = append(events, e) })

	lead, err := env.repo.AddLead(models.Lead{Name: "Ada", Phone: "+4400"})
	require.NoError(t, err)
	_, err = env.repo.MoveLead(lead.ID, "1-3", "1")
	require.NoError(t, err)

	unsubscribe()
	require.NoError(t, env.repo.DeleteLead(lead.ID))

	assert.Equal(t, []Event{
		{Kind: LeadCreated, ID: lead.ID},
		{Kind: LeadMoved, ID: lead.ID},
	}, events)
}

func TestCloseIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.Close())
	require.NoError(t, env.repo.Close())
}
