package trip

// Trip is a shared calendar. Members is a set of account ids; the owner is
// not implicitly a member.
type Trip struct {
	ID          string   `json:"id"`
	Owner       string   `json:"owner"`
	Name        string   `json:"name"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

// CascadeResult counts the records removed alongside a trip.
type CascadeResult struct {
	Events      int64 `json:"events"`
	Invitations int64 `json:"invitations"`
}

// HasMember reports whether accountID is in the trip's member set.
func (t Trip) HasMember(accountID string) bool {
	for _, id := range t.Members {
		if id == accountID {
			return true
		}
	}
	return false
}
