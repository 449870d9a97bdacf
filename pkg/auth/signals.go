package auth

import "time"

// Severity classifies a user-facing notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// LogoutReason says why a session ended
type LogoutReason string

const (
	ReasonManual     LogoutReason = "manual"
	ReasonExpired    LogoutReason = "expired"
	ReasonInvalidPIN LogoutReason = "invalid_pin"
	ReasonNoSession  LogoutReason = "no_session"
	ReasonExternal   LogoutReason = "external"
	ReasonStorage    LogoutReason = "storage"
)

// Signals receives the session transitions that drive the admin surfaces.
// Calls are made while the manager holds its lock, so implementations must
// not call back into the Manager.
type Signals interface {
	PromptPIN()
	LoginSucceeded(at time.Time, remaining time.Duration)
	LoginFailed()
	LoggedOut(reason LogoutReason)
	Countdown(remaining time.Duration)
}

// Notifier is a fire-and-forget sink for user-facing messages
type Notifier interface {
	Notify(message string, severity Severity)
}

type nopSignals struct{}

func (nopSignals) PromptPIN()                              {}
func (nopSignals) LoginSucceeded(time.Time, time.Duration) {}
func (nopSignals) LoginFailed()                            {}
func (nopSignals) LoggedOut(LogoutReason)                  {}
func (nopSignals) Countdown(time.Duration)                 {}

type nopNotifier struct{}

func (nopNotifier) Notify(string, Severity) {}
