// Package auth owns the admin session: a fixed PIN gate whose login time is
// persisted in the durable store and whose expiry is driven by a ticker.
//
// The PIN is a convenience gate for the admin surfaces, not an access
// control boundary. It is compared as a plain string and there is no
// attempt limit.
package auth

import (
	"strconv"
	"sync"
	"time"

	"github.com/filecoin-project/go-clock"
	logging "github.com/ipfs/go-log/v2"

	"pdfdesk/pkg/errors"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/storage"
)

var log = logging.Logger("auth")

const (
	// Secret is the admin PIN
	Secret = "1989"
	// SessionTimeout bounds a login
	SessionTimeout = 30 * time.Minute
	// TickInterval is how often the countdown is refreshed
	TickInterval = time.Second
)

// Durable keys holding the session
const (
	KeyAuthenticated = "adminAuthenticated"
	KeyAuthTime      = "adminAuthTime"
)

// State of the admin session
type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	if s == LoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// Options configures a Manager. Zero values select the real clock, no-op
// signal sinks and the default document cap.
type Options struct {
	Clock        clock.Clock
	Signals      Signals
	Notifier     Notifier
	MaxDocuments int
}

// Manager is the admin session. All transitions run under one mutex; at most
// one ticker goroutine is alive at a time.
type Manager struct {
	kv           kvstore.Store
	clock        clock.Clock
	signals      Signals
	notifier     Notifier
	maxDocuments int

	mutex           sync.Mutex
	authenticated   bool
	authenticatedAt time.Time
	remaining       time.Duration
	docs            *storage.DocumentStore

	ticker     *clock.Ticker
	tickerDone chan struct{}
	generation uint64
}

// NewManager creates a logged out manager backed by kv. Call RestoreOnLoad
// once to pick up a session persisted by an earlier run.
func NewManager(kv kvstore.Store, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Signals == nil {
		opts.Signals = nopSignals{}
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.MaxDocuments <= 0 {
		opts.MaxDocuments = storage.MaxAdminDocuments
	}
	return &Manager{
		kv:           kv,
		clock:        opts.Clock,
		signals:      opts.Signals,
		notifier:     opts.Notifier,
		maxDocuments: opts.MaxDocuments,
	}
}

// RequestLogin asks the PIN entry surface to prompt. It does not change state.
func (m *Manager) RequestLogin() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.signals.PromptPIN()
}

// SubmitPIN logs in when candidate matches the secret. A wrong PIN leaves
// the manager logged out, ending the current session if there is one.
func (m *Manager) SubmitPIN(candidate string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if candidate != Secret {
		if m.authenticated {
			m.logoutLocked(ReasonInvalidPIN)
		}
		log.Infof("Rejected admin PIN")
		m.signals.LoginFailed()
		m.notifier.Notify("Invalid PIN", SeverityError)
		return errors.ErrInvalidPIN
	}

	now := time.UnixMilli(m.clock.Now().UnixMilli())
	if err := m.persistLocked(now); err != nil {
		m.logoutLocked(ReasonStorage)
		m.notifier.Notify("Could not save admin session", SeverityError)
		return err
	}

	docs, err := storage.LoadDocuments(m.kv, m.maxDocuments)
	if err != nil {
		m.logoutLocked(ReasonStorage)
		m.notifier.Notify("Could not load admin documents", SeverityError)
		return err
	}

	m.enterLocked(now, SessionTimeout, docs)
	log.Infof("Admin logged in, %d documents", docs.Len())
	m.signals.LoginSucceeded(now, SessionTimeout)
	m.notifier.Notify("Admin access granted", SeveritySuccess)
	return nil
}

// RestoreOnLoad resumes a persisted session that has not expired yet and
// reloads the admin documents. Anything else, including an unreadable
// store, ends in Logout.
func (m *Manager) RestoreOnLoad() State {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	flag, ok, err := m.kv.Get(KeyAuthenticated)
	if err != nil {
		log.Warnf("Session restore: storage unavailable: %v", err)
		m.logoutLocked(ReasonStorage)
		return LoggedOut
	}
	if !ok || flag != "true" {
		m.logoutLocked(ReasonNoSession)
		return LoggedOut
	}

	at, err := m.readAuthTimeLocked()
	if err != nil {
		log.Warnf("Session restore: %v", err)
		m.logoutLocked(ReasonNoSession)
		return LoggedOut
	}

	elapsed := m.clock.Since(at)
	if elapsed < 0 {
		log.Warnf("Session restore: login time %s is in the future", at.Format(time.RFC3339))
		m.logoutLocked(ReasonNoSession)
		return LoggedOut
	}
	if elapsed >= SessionTimeout {
		m.logoutLocked(ReasonExpired)
		return LoggedOut
	}

	docs, err := storage.LoadDocuments(m.kv, m.maxDocuments)
	if err != nil {
		log.Warnf("Session restore: loading documents: %v", err)
		m.logoutLocked(ReasonStorage)
		return LoggedOut
	}

	remaining := SessionTimeout - elapsed
	m.enterLocked(at, remaining, docs)
	log.Infof("Restored admin session, %s left", remaining.Round(time.Second))
	m.signals.LoginSucceeded(at, remaining)
	return LoggedIn
}

// Tick refreshes the countdown from the clock and ends the session once it
// reaches zero. It also re-reads the durable store so a logout performed by
// another process sharing it takes effect here.
func (m *Manager) Tick() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.tickLocked()
}

func (m *Manager) tickLocked() {
	if !m.authenticated {
		return
	}

	flag, ok, err := m.kv.Get(KeyAuthenticated)
	if err != nil {
		log.Warnf("Storage unavailable during session check: %v", err)
		m.logoutLocked(ReasonStorage)
		return
	}
	if !ok || flag != "true" {
		log.Infof("Admin session cleared by another process")
		m.logoutLocked(ReasonExternal)
		return
	}
	// Another process may have logged in again since
	if at, err := m.readAuthTimeLocked(); err == nil && at.After(m.authenticatedAt) {
		m.authenticatedAt = at
	}

	m.remaining = SessionTimeout - m.clock.Since(m.authenticatedAt)
	if m.remaining <= 0 {
		m.remaining = 0
		m.logoutLocked(ReasonExpired)
		return
	}
	m.signals.Countdown(m.remaining)
}

// Logout ends the session. Calling it while logged out only re-clears the
// persisted fields.
func (m *Manager) Logout() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.logoutLocked(ReasonManual)
}

// IsAuthenticated reports whether admin capabilities are granted
func (m *Manager) IsAuthenticated() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.authenticated
}

// State returns the current session state
func (m *Manager) State() State {
	if m.IsAuthenticated() {
		return LoggedIn
	}
	return LoggedOut
}

// Remaining returns the session time left as of the last transition or tick
func (m *Manager) Remaining() time.Duration {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.authenticated {
		return 0
	}
	return m.remaining
}

// AuthenticatedAt returns the login time; ok is false while logged out
func (m *Manager) AuthenticatedAt() (time.Time, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.authenticatedAt, m.authenticated
}

// Documents returns the admin document collection. It is only reachable
// while logged in.
func (m *Manager) Documents() (*storage.DocumentStore, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.authenticated || m.docs == nil {
		return nil, errors.ErrNotAuthenticated
	}
	return m.docs, nil
}

// Close stops the ticker. The persisted session is left in place so the
// next run can restore it.
func (m *Manager) Close() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.stopTickerLocked()
}

func (m *Manager) enterLocked(at time.Time, remaining time.Duration, docs *storage.DocumentStore) {
	m.authenticated = true
	m.authenticatedAt = at
	m.remaining = remaining
	m.docs = docs
	m.startTickerLocked()
}

func (m *Manager) logoutLocked(reason LogoutReason) {
	wasAuthenticated := m.authenticated

	m.authenticated = false
	m.authenticatedAt = time.Time{}
	m.remaining = 0
	m.docs = nil
	m.stopTickerLocked()

	if err := m.kv.Remove(KeyAuthenticated); err != nil {
		log.Warnf("Clearing %s: %v", KeyAuthenticated, err)
	}
	if err := m.kv.Remove(KeyAuthTime); err != nil {
		log.Warnf("Clearing %s: %v", KeyAuthTime, err)
	}

	m.signals.LoggedOut(reason)
	if !wasAuthenticated && reason != ReasonExpired {
		return
	}
	log.Infof("Admin logged out (%s)", reason)
	switch reason {
	case ReasonExpired:
		m.notifier.Notify("Admin session expired", SeverityInfo)
	case ReasonManual:
		m.notifier.Notify("Logged out", SeverityInfo)
	case ReasonExternal:
		m.notifier.Notify("Admin session ended elsewhere", SeverityInfo)
	case ReasonStorage:
		m.notifier.Notify("Storage unavailable, admin session closed", SeverityWarning)
	}
}

func (m *Manager) persistLocked(at time.Time) error {
	if err := m.kv.Set(KeyAuthenticated, "true"); err != nil {
		return err
	}
	return m.kv.Set(KeyAuthTime, strconv.FormatInt(at.UnixMilli(), 10))
}

func (m *Manager) readAuthTimeLocked() (time.Time, error) {
	raw, ok, err := m.kv.Get(KeyAuthTime)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, errors.New(errors.ErrTypeAuth, "AUTH_TIME_MISSING", "login time missing")
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrTypeAuth, "AUTH_TIME_INVALID", "login time unparseable").
			WithContext("value", raw)
	}
	return time.UnixMilli(ms), nil
}

func (m *Manager) startTickerLocked() {
	m.stopTickerLocked()

	m.generation++
	gen := m.generation
	ticker := m.clock.Ticker(TickInterval)
	done := make(chan struct{})
	m.ticker = ticker
	m.tickerDone = done

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.mutex.Lock()
				// A tick that raced a stop or restart belongs to a dead timer
				if gen == m.generation && m.ticker == ticker {
					m.tickLocked()
				}
				m.mutex.Unlock()
			}
		}
	}()
}

func (m *Manager) stopTickerLocked() {
	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	close(m.tickerDone)
	m.ticker = nil
	m.tickerDone = nil
}

// ActiveTimers reports how many ticker goroutines the manager considers
// live; it is 0 or 1
func (m *Manager) ActiveTimers() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.ticker != nil {
		return 1
	}
	return 0
}
