package auth

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/filecoin-project/go-clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/models"
)

type recorder struct {
	mu         sync.Mutex
	prompts    int
	successes  int
	failures   int
	logouts    []LogoutReason
	countdowns []time.Duration
	notices    []string
}

func (r *recorder) PromptPIN() { r.mu.Lock(); r.prompts++; r.mu.Unlock() }
func (r *recorder) LoginSucceeded(time.Time, time.Duration) {
	r.mu.Lock()
	r.successes++
	r.mu.Unlock()
}
func (r *recorder) LoginFailed() { r.mu.Lock(); r.failures++; r.mu.Unlock() }
func (r *recorder) LoggedOut(reason LogoutReason) {
	r.mu.Lock()
	r.logouts = append(r.logouts, reason)
	r.mu.Unlock()
}
func (r *recorder) Countdown(d time.Duration) {
	r.mu.Lock()
	r.countdowns = append(r.countdowns, d)
	r.mu.Unlock()
}
func (r *recorder) Notify(msg string, _ Severity) {
	r.mu.Lock()
	r.notices = append(r.notices, msg)
	r.mu.Unlock()
}

func (r *recorder) count(reason LogoutReason) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.logouts {
		if got == reason {
			n++
		}
	}
	return n
}

var epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, kv kvstore.Store) (*Manager, *clock.Mock, *recorder) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(epoch)
	rec := &recorder{}
	m := NewManager(kv, Options{Clock: mock, Signals: rec, Notifier: rec})
	t.Cleanup(m.Close)
	return m, mock, rec
}

// restart simulates a fresh process reading the same store at the mock's time
func restart(t *testing.T, kv kvstore.Store, mock *clock.Mock) (*Manager, *recorder) {
	t.Helper()
	rec := &recorder{}
	m := NewManager(kv, Options{Clock: mock, Signals: rec, Notifier: rec})
	t.Cleanup(m.Close)
	return m, rec
}

func TestWrongThenRightPIN(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	m, mock, rec := newTestManager(t, kv)

	err := m.SubmitPIN("1234")
	assert.ErrorIs(t, err, errors.ErrInvalidPIN)
	assert.Equal(t, LoggedOut, m.State())
	assert.Equal(t, 1, rec.failures)

	require.NoError(t, m.SubmitPIN("1989"))
	assert.Equal(t, LoggedIn, m.State())
	assert.Equal(t, 1, rec.successes)

	at, ok := m.AuthenticatedAt()
	assert.True(t, ok)
	assert.True(t, at.Equal(mock.Now()))

	flag, _, _ := kv.Get(KeyAuthenticated)
	assert.Equal(t, "true", flag)
	stamp, _, _ := kv.Get(KeyAuthTime)
	assert.Equal(t, strconv.FormatInt(epoch.UnixMilli(), 10), stamp)
	assert.Equal(t, SessionTimeout, m.Remaining())
}

func TestLastSubmittedPINDecides(t *testing.T) {
	sequences := [][]string{
		{"1989"},
		{"0000"},
		{"1989", "1989"},
		{"1989", "1988"},
		{"1988", "1989"},
		{"", "1989", "19890"},
		{"1989", " 1989", "1989"},
	}
	for _, seq := range sequences {
		m, _, _ := newTestManager(t, kvstore.NewMemoryStore())
		for _, pin := range seq {
			_ = m.SubmitPIN(pin)
		}
		want := seq[len(seq)-1] == Secret
		assert.Equal(t, want, m.IsAuthenticated(), "sequence %q", seq)
	}
}

func TestRequestLoginOnlyPrompts(t *testing.T) {
	m, _, rec := newTestManager(t, kvstore.NewMemoryStore())
	m.RequestLogin()
	assert.Equal(t, 1, rec.prompts)
	assert.False(t, m.IsAuthenticated())
}

func TestRestoreWithinTimeout(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	m, mock, _ := newTestManager(t, kv)
	require.NoError(t, m.SubmitPIN(Secret))
	m.Close()

	mock.Add(29 * time.Minute)
	restored, _ := restart(t, kv, mock)
	assert.Equal(t, LoggedIn, restored.RestoreOnLoad())
	assert.Equal(t, time.Minute, restored.Remaining())
	assert.Equal(t, 1, restored.ActiveTimers())
}

func TestRestoreReloadsDocuments(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	m, mock, _ := newTestManager(t, kv)
	require.NoError(t, m.SubmitPIN(Secret))

	docs, err := m.Documents()
	require.NoError(t, err)
	data := []byte("%PDF")
	require.NoError(t, docs.Insert(models.AdminDocument{
		ID:         "a1b2c3d4",
		Name:       "a.pdf",
		Size:       int64(len(data)),
		Data:       data,
		UploadedAt: mock.Now(),
	}))
	_, err = docs.RecordDownload("a1b2c3d4")
	require.NoError(t, err)
	before := docs.List()
	m.Close()

	mock.Add(10 * time.Minute)
	restored, _ := restart(t, kv, mock)
	require.Equal(t, LoggedIn, restored.RestoreOnLoad())

	reloaded, err := restored.Documents()
	require.NoError(t, err)
	after := reloaded.List()
	require.Len(t, after, 1)
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, before[0].Name, after[0].Name)
	assert.Equal(t, before[0].Data, after[0].Data)
	assert.Equal(t, 1, after[0].Downloads)
	assert.True(t, before[0].UploadedAt.Equal(after[0].UploadedAt))
}

func TestRestoreAfterTimeoutClearsSession(t *testing.T) {
	for _, after := range []time.Duration{SessionTimeout, 31 * time.Minute, 48 * time.Hour} {
		kv := kvstore.NewMemoryStore()
		m, mock, _ := newTestManager(t, kv)
		require.NoError(t, m.SubmitPIN(Secret))
		m.Close()

		mock.Add(after)
		restored, rec := restart(t, kv, mock)
		assert.Equal(t, LoggedOut, restored.RestoreOnLoad(), "after %s", after)
		assert.Equal(t, 1, rec.count(ReasonExpired))

		_, ok, _ := kv.Get(KeyAuthenticated)
		assert.False(t, ok)
		_, ok, _ = kv.Get(KeyAuthTime)
		assert.False(t, ok)
	}
}

func TestRestoreRejectsBadStamps(t *testing.T) {
	cases := map[string]map[string]string{
		"nothing stored": {},
		"flag only":      {KeyAuthenticated: "true"},
		"garbage time":   {KeyAuthenticated: "true", KeyAuthTime: "yesterday"},
		"future time":    {KeyAuthenticated: "true", KeyAuthTime: strconv.FormatInt(epoch.Add(time.Hour).UnixMilli(), 10)},
		"flag false":     {KeyAuthenticated: "false", KeyAuthTime: strconv.FormatInt(epoch.UnixMilli(), 10)},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			kv := kvstore.NewMemoryStore()
			for k, v := range values {
				require.NoError(t, kv.Set(k, v))
			}
			m, _, _ := newTestManager(t, kv)
			assert.Equal(t, LoggedOut, m.RestoreOnLoad())
			keys, err := kv.Keys()
			require.NoError(t, err)
			assert.Empty(t, keys)
		})
	}
}

func TestRestoreFailsClosedWhenStorageUnavailable(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	m, mock, _ := newTestManager(t, kv)
	require.NoError(t, m.SubmitPIN(Secret))
	m.Close()

	kv.SetUnavailable(true)
	restored, rec := restart(t, kv, mock)
	assert.Equal(t, LoggedOut, restored.RestoreOnLoad())
	_, err := restored.Documents()
	assert.ErrorIs(t, err, errors.ErrNotAuthenticated)
	assert.Equal(t, 1, rec.count(ReasonStorage))
}

func TestLoginFailsClosedWhenStorageUnavailable(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	kv.SetUnavailable(true)
	m, _, _ := newTestManager(t, kv)

	err := m.SubmitPIN(Secret)
	assert.ErrorIs(t, err, errors.ErrStorageUnavailable)
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 0, m.ActiveTimers())
}

func TestLogoutIsIdempotent(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	m, _, rec := newTestManager(t, kv)
	require.NoError(t, m.SubmitPIN(Secret))

	m.Logout()
	keysOnce, _ := kv.Keys()
	stateOnce := m.State()
	remainingOnce := m.Remaining()
	noticesOnce := len(rec.notices)

	m.Logout()
	keysTwice, _ := kv.Keys()
	assert.Equal(t, keysOnce, keysTwice)
	assert.Equal(t, stateOnce, m.State())
	assert.Equal(t, remainingOnce, m.Remaining())
	assert.Equal(t, noticesOnce, len(rec.notices))
	assert.Equal(t, 0, m.ActiveTimers())
}

func TestDocumentsHiddenAfterLogout(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	m, mock, _ := newTestManager(t, kv)
	require.NoError(t, m.SubmitPIN(Secret))

	docs, err := m.Documents()
	require.NoError(t, err)
	require.NoError(t, docs.Insert(models.AdminDocument{
		ID: "X", Name: "report.pdf", Size: 4, Data: []byte("%PDF"), UploadedAt: epoch,
	}))
	m.Logout()

	restored, _ := restart(t, kv, mock)
	assert.Equal(t, LoggedOut, restored.RestoreOnLoad())
	_, err = restored.Documents()
	assert.ErrorIs(t, err, errors.ErrNotAuthenticated)

	// Still on disk, visible again after the next login
	raw, ok, _ := kv.Get("adminFiles")
	assert.True(t, ok)
	assert.Contains(t, raw, `"id":"X"`)

	require.NoError(t, restored.SubmitPIN(Secret))
	docs, err = restored.Documents()
	require.NoError(t, err)
	doc, err := docs.Get("X")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), doc.Data)
}

func TestTickExpiresExactlyOnce(t *testing.T) {
	m, mock, rec := newTestManager(t, kvstore.NewMemoryStore())
	require.NoError(t, m.SubmitPIN(Secret))

	mock.Set(epoch.Add(SessionTimeout - time.Second))
	m.Tick()
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, time.Second, m.Remaining())

	mock.Set(epoch.Add(SessionTimeout))
	m.Tick()
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 0, m.ActiveTimers())

	mock.Add(10 * time.Second)
	m.Tick()
	m.Tick()
	assert.Equal(t, 1, rec.count(ReasonExpired))
}

func TestTickerExpiresSession(t *testing.T) {
	m, mock, rec := newTestManager(t, kvstore.NewMemoryStore())
	require.NoError(t, m.SubmitPIN(Secret))

	mock.Add(SessionTimeout + time.Second)
	assert.Eventually(t, func() bool { return !m.IsAuthenticated() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, rec.count(ReasonExpired))
}

func TestReloginRestartsTimer(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	m, mock, rec := newTestManager(t, kv)
	require.NoError(t, m.SubmitPIN(Secret))

	mock.Set(epoch.Add(20 * time.Minute))
	require.NoError(t, m.SubmitPIN(Secret))
	assert.Equal(t, 1, m.ActiveTimers())

	// The first login's deadline passes without ending the second session
	mock.Set(epoch.Add(SessionTimeout + time.Minute))
	m.Tick()
	assert.True(t, m.IsAuthenticated())
	assert.Equal(t, 19*time.Minute, m.Remaining())
	assert.Equal(t, 0, rec.count(ReasonExpired))
}

func TestTickNoticesExternalLogout(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	m, _, rec := newTestManager(t, kv)
	require.NoError(t, m.SubmitPIN(Secret))

	// Another process sharing the store logs out
	require.NoError(t, kv.Remove(KeyAuthenticated))
	require.NoError(t, kv.Remove(KeyAuthTime))

	assert.True(t, m.IsAuthenticated())
	m.Tick()
	assert.False(t, m.IsAuthenticated())
	assert.Equal(t, 1, rec.count(ReasonExternal))
}
