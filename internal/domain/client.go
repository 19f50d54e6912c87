package domain

// Client is a geocoded customer or prospect owned by one user.
//
// Clients are never hard-deleted: deactivation is terminal so that routes
// referencing the client keep their history. A nil Location means the
// address has not been geocoded yet.
type Client struct {
	ID       string
	OwnerID  string
	Name     string
	Address  string
	Location *Point
	Active   bool
	OpensAt  TimeOfDay
	ClosesAt TimeOfDay
}

// Hours returns the opening window, falling back to 09:00-17:00
// when the stored window is empty.
func (c Client) Hours() (TimeOfDay, TimeOfDay) {
	if c.OpensAt == 0 && c.ClosesAt == 0 {
		return DefaultOpensAt, DefaultClosesAt
	}
	return c.OpensAt, c.ClosesAt
}

// CandidateClient is a client annotated with its corridor proximity.
// Score is 100 on the corridor line and degrades linearly to 0 at the radius.
type CandidateClient struct {
	Client         Client
	DistanceMeters float64
	Score          float64
}
