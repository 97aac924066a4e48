package invitation

import "time"

// Invitation is a pending offer for invitee to join a trip. Accepting or
// rejecting it removes the record.
type Invitation struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	InviterID string    `json:"inviter_id"`
	InviteeID string    `json:"invitee_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Enriched is an invitation joined with the names a client shows. Invitee
// listings fill the trip and inviter fields, trip listings fill the invitee.
type Enriched struct {
	Invitation
	TripName        string `json:"trip_name,omitempty"`
	TripStart       string `json:"trip_start,omitempty"`
	TripEnd         string `json:"trip_end,omitempty"`
	InviterUsername string `json:"inviter_username,omitempty"`
	InviteeUsername string `json:"invitee_username,omitempty"`
}

// Stale is an invitation whose trip or counterpart account no longer exists.
type Stale struct {
	Invitation
	Reason string `json:"reason"`
}

// Listing separates resolvable invitations from stale ones.
type Listing struct {
	Invitations []Enriched `json:"invitations"`
	Stale       []Stale    `json:"stale"`
}

type ProposeRequest struct {
	TripID          string `json:"trip_id"`
	InviterID       string `json:"inviter_id"`
	InviteeUsername string `json:"invitee_username"`
}

const (
	reasonTripMissing    = "trip not found"
	reasonInviterMissing = "inviter not found"
	reasonInviteeMissing = "invitee not found"
)
