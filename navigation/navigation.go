// Package navigation is the seam between the session client and the host
// application's screens.
package navigation

import "sync"

const (
	RouteSignIn     = "/sign-in"
	RouteOnboarding = "/onboarding"
	RouteReauth     = "/reauth"
	RouteHome       = "/home"
)

// Navigator is implemented by the host application.
type Navigator interface {
	CurrentRoute() string
	// Navigate pushes route on top of the current screen.
	Navigate(route string)
	// Replace resets the history to route.
	Replace(route string)
}

var _ Navigator = (*Stack)(nil)

// Stack is an in-memory Navigator for headless hosts and tests.
type Stack struct {
	mu      sync.Mutex
	routes  []string
	history []string
}

func NewStack(initial string) *Stack {
	s := &Stack{}
	if initial != "" {
		s.routes = []string{initial}
		s.history = []string{initial}
	}
	return s
}

func (s *Stack) CurrentRoute() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.routes) == 0 {
		return ""
	}
	return s.routes[len(s.routes)-1]
}

func (s *Stack) Navigate(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, route)
	s.history = append(s.history, route)
}

func (s *Stack) Replace(route string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = []string{route}
	s.history = append(s.history, route)
}

// Back pops the current route. It reports false when there is nothing to go back to.
func (s *Stack) Back() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.routes) < 2 {
		return false
	}
	s.routes = s.routes[:len(s.routes)-1]
	s.history = append(s.history, s.routes[len(s.routes)-1])
	return true
}

// History returns every route shown, in order.
func (s *Stack) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.history...)
}
