package session

import "sync"

// LoginView is the view every "not authenticated" path ends on.
const LoginView = "login"

// Navigator is the view controller the gateway drives. The console REPL
// implements it; single commands use a navigator that prints a login hint.
type Navigator interface {
	CurrentView() string
	Navigate(view string)
}

// AuthenticatedNotifier is implemented by navigators that want to know
// when the session becomes authenticated, for instance to show the
// operator's name in the prompt.
type AuthenticatedNotifier interface {
	OnAuthenticated(user IdentityView)
}

// IdentityView is the read-only face of the identity record.
type IdentityView interface {
	Name() string
	Email() string
	IsAdmin() bool
}

// ViewTracker is a minimal Navigator that only remembers the current view
// and calls OnNavigate when it changes.
type ViewTracker struct {
	mu         sync.Mutex
	view       string
	OnNavigate func(view string)
}

// NewViewTracker starts at view.
func NewViewTracker(view string, onNavigate func(string)) *ViewTracker {
	return &ViewTracker{view: view, OnNavigate: onNavigate}
}

func (v *ViewTracker) CurrentView() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.view
}

func (v *ViewTracker) Navigate(view string) {
	v.mu.Lock()
	v.view = view
	fn := v.OnNavigate
	v.mu.Unlock()
	if fn != nil {
		fn(view)
	}
}
