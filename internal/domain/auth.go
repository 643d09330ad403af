package domain

// Identity is the authenticated caller, rebuilt from a verified token on
// every request and never persisted.
type Identity struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ClientMeta carries request metadata recorded alongside audit entries.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}
