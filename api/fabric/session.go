package fabric

// Session is the authenticated state of a client: the controller it talks
// to and the token issued at login. Values are immutable; the client swaps
// in a new Session on every (re)authentication.
type Session struct {
	BaseURL string
	Token   string
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}
