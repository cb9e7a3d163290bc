package guard

import (
	"strings"
	"sync"
)

/*
Navigator tracks the current route of a screen based UI and runs the guard
whenever the path changes. Navigating again to the path already shown reuses
its resolved outcome.

A denied navigation never enters the history: the unauthorized path replaces
it, so going back cannot land on guarded content without a fresh check.
*/
type Navigator struct {
	mu        sync.Mutex
	guard     *Guard
	isGuarded func(path string) bool
	history   []string
	outcome   Outcome
}

// NewNavigator guards every path for which isGuarded returns true. A nil
// isGuarded guards everything but the unauthorized path.
func NewNavigator(guard *Guard, isGuarded func(path string) bool) *Navigator {
	if isGuarded == nil {
		isGuarded = func(path string) bool {
			return path != guard.UnauthorizedPath()
		}
	}
	return &Navigator{
		guard:     guard,
		isGuarded: isGuarded,
	}
}

// PrefixGuarded guards prefix and everything below it.
func PrefixGuarded(prefix string) func(string) bool {
	prefix = strings.TrimRight(prefix, "/")
	return func(path string) bool {
		return path == prefix || strings.HasPrefix(path, prefix+"/")
	}
}

// Navigate moves to path and returns where the UI actually landed together
// with the outcome. Public paths resolve to a zero Outcome (state Unknown).
func (n *Navigator) Navigate(path string) (string, Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if current, ok := n.current(); ok && current == path {
		return current, n.outcome
	}
	landed, outcome := n.resolve(path)
	if current, ok := n.current(); !ok || current != landed {
		n.history = append(n.history, landed)
	}
	return landed, outcome
}

// Back pops the current entry and re-resolves the previous one. It reports
// false when there is nothing to go back to.
func (n *Navigator) Back() (string, Outcome, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.history) < 2 {
		current, _ := n.current()
		return current, n.outcome, false
	}
	n.history = n.history[:len(n.history)-1]
	previous := n.history[len(n.history)-1]
	landed, outcome := n.resolve(previous)
	n.history[len(n.history)-1] = landed
	return landed, outcome, true
}

// Current returns the path on screen and its outcome.
func (n *Navigator) Current() (string, Outcome) {
	n.mu.Lock()
	defer n.mu.Unlock()
	current, _ := n.current()
	return current, n.outcome
}

// Reset forgets the history, e.g. after logout.
func (n *Navigator) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.history = nil
	n.outcome = Outcome{}
}

func (n *Navigator) current() (string, bool) {
	if len(n.history) == 0 {
		return "", false
	}
	return n.history[len(n.history)-1], true
}

func (n *Navigator) resolve(path string) (string, Outcome) {
	if !n.isGuarded(path) {
		n.outcome = Outcome{}
		return path, n.outcome
	}

	n.outcome = n.guard.Evaluate()
	if !n.outcome.Authorized() {
		return n.guard.UnauthorizedPath(), n.outcome
	}
	return path, n.outcome
}
