package session

// Decision is the outcome of guarding a page.
type Decision int

const (
	Allow Decision = iota
	// Loading means the session has not been resolved yet.
	Loading
	RedirectLogin
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect_login"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Decide says whether s may view a page, and what to show instead if not.
func Decide(s *Session, adminOnly bool) Decision {
	switch s.State() {
	case StateLoading:
		return Loading
	case StateUnauthenticated:
		return RedirectLogin
	}
	if !s.IsAuthenticated() {
		return RedirectLogin
	}
	if adminOnly && !s.User().IsAdmin() {
		return Forbidden
	}
	return Allow
}
