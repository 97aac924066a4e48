package invitation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"backend-tripcal/internal/account"
	"backend-tripcal/internal/db"
	"backend-tripcal/internal/notify"
	"backend-tripcal/internal/shared/apperr"
	"backend-tripcal/internal/trip"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const pendingIndex = "invitations_trip_invitee_key"

const selectInvitation = `
	SELECT id, trip_id, inviter_id, invitee_id, created_at
	FROM invitations`

// AccountLookup resolves invitee usernames.
type AccountLookup interface {
	GetByUsername(ctx context.Context, username string) (account.Account, error)
}

// Notifier receives a notice for every workflow transition.
type Notifier interface {
	Publish(accountID string, n notify.Notice)
}

type Service struct {
	db       db.Pool
	accounts AccountLookup
	trips    *trip.Service
	notifier Notifier
	now      func() time.Time
}

func NewService(pool db.Pool, accounts AccountLookup, notifier Notifier) *Service {
	return &Service{
		db:       pool,
		accounts: accounts,
		trips:    trip.NewService(pool),
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Propose creates a pending invitation for the named user. The membership
// check is skipped when the trip cannot be found.
func (s *Service) Propose(ctx context.Context, req ProposeRequest) (Invitation, error) {
	invitee, err := s.accounts.GetByUsername(ctx, req.InviteeUsername)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Invitation{}, apperr.ErrUnknownInvitee
		}
		return Invitation{}, err
	}

	var pending bool
	err = s.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM invitations WHERE trip_id=$1 AND invitee_id=$2)
	`, req.TripID, invitee.ID).Scan(&pending)
	if err != nil {
		return Invitation{}, err
	}
	if pending {
		return Invitation{}, apperr.ErrAlreadyPending
	}

	t, err := s.trips.GetTrip(ctx, req.TripID)
	switch {
	case err == nil:
		if t.HasMember(invitee.ID) {
			return Invitation{}, apperr.ErrAlreadyMember
		}
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return Invitation{}, err
	}

	inv := Invitation{
		ID:        uuid.NewString(),
		TripID:    req.TripID,
		InviterID: req.InviterID,
		InviteeID: invitee.ID,
		CreatedAt: s.now(),
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO invitations (id, trip_id, inviter_id, invitee_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, inv.ID, inv.TripID, inv.InviterID, inv.InviteeID, inv.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, pendingIndex) {
			return Invitation{}, apperr.ErrAlreadyPending
		}
		return Invitation{}, err
	}

	s.publish(inv.InviteeID, notify.KindInvitationProposed, inv, inv.InviterID)
	return inv, nil
}

// ListForInvitee returns the invitee's pending invitations with trip and
// inviter details.
func (s *Service) ListForInvitee(ctx context.Context, inviteeID string) (Listing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT i.id, i.trip_id, i.inviter_id, i.invitee_id, i.created_at,
			t.name, t.start_date, t.end_date, a.username
		FROM invitations i
		LEFT JOIN trips t ON t.id = i.trip_id
		LEFT JOIN accounts a ON a.id = i.inviter_id
		WHERE i.invitee_id=$1
		ORDER BY i.created_at
	`, inviteeID)
	if err != nil {
		return Listing{}, err
	}
	defer rows.Close()

	out := newListing()
	for rows.Next() {
		var (
			inv                   Invitation
			name, start, end, usr *string
		)
		if err := rows.Scan(&inv.ID, &inv.TripID, &inv.InviterID, &inv.InviteeID, &inv.CreatedAt,
			&name, &start, &end, &usr); err != nil {
			return Listing{}, err
		}
		switch {
		case name == nil:
			out.Stale = append(out.Stale, Stale{Invitation: inv, Reason: reasonTripMissing})
		case usr == nil:
			out.Stale = append(out.Stale, Stale{Invitation: inv, Reason: reasonInviterMissing})
		default:
			out.Invitations = append(out.Invitations, Enriched{
				Invitation:      inv,
				TripName:        *name,
				TripStart:       deref(start),
				TripEnd:         deref(end),
				InviterUsername: *usr,
			})
		}
	}
	return out, rows.Err()
}

// ListForTrip returns the trip's pending invitations with invitee usernames.
func (s *Service) ListForTrip(ctx context.Context, tripID string) (Listing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT i.id, i.trip_id, i.inviter_id, i.invitee_id, i.created_at, a.username
		FROM invitations i
		LEFT JOIN accounts a ON a.id = i.invitee_id
		WHERE i.trip_id=$1
		ORDER BY i.created_at
	`, tripID)
	if err != nil {
		return Listing{}, err
	}
	defer rows.Close()

	out := newListing()
	for rows.Next() {
		var (
			inv Invitation
			usr *string
		)
		if err := rows.Scan(&inv.ID, &inv.TripID, &inv.InviterID, &inv.InviteeID, &inv.CreatedAt, &usr); err != nil {
			return Listing{}, err
		}
		if usr == nil {
			out.Stale = append(out.Stale, Stale{Invitation: inv, Reason: reasonInviteeMissing})
			continue
		}
		out.Invitations = append(out.Invitations, Enriched{Invitation: inv, InviteeUsername: *usr})
	}
	return out, rows.Err()
}

// Accept adds the invitee to the trip and removes the invitation in one
// transaction. An invitation whose trip is gone is still removed, and the
// missing trip is reported.
func (s *Service) Accept(ctx context.Context, id string) (Invitation, error) {
	var (
		inv         Invitation
		tripMissing bool
	)
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		var err error
		inv, err = scanInvitation(tx.QueryRow(ctx, selectInvitation+` WHERE id=$1 FOR UPDATE`, id))
		if err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("invitation")
			}
			return err
		}

		err = s.trips.With(tx).AddMember(ctx, inv.TripID, inv.InviteeID)
		if errors.Is(err, apperr.ErrNotFound) {
			tripMissing = true
		} else if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `DELETE FROM invitations WHERE id=$1`, id)
		return err
	})
	if err != nil {
		return Invitation{}, err
	}
	if tripMissing {
		slog.Info("removed invitation for missing trip", "invitation_id", id, "trip_id", inv.TripID)
		return Invitation{}, apperr.NotFound("trip")
	}

	s.publish(inv.InviterID, notify.KindInvitationAccepted, inv, inv.InviteeID)
	return inv, nil
}

// Reject removes the invitation without touching membership.
func (s *Service) Reject(ctx context.Context, id string) (Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRow(ctx, `
		DELETE FROM invitations WHERE id=$1
		RETURNING id, trip_id, inviter_id, invitee_id, created_at
	`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Invitation{}, apperr.NotFound("invitation")
		}
		return Invitation{}, err
	}

	s.publish(inv.InviterID, notify.KindInvitationRejected, inv, inv.InviteeID)
	return inv, nil
}

func (s *Service) publish(to, kind string, inv Invitation, actor string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(to, notify.Notice{
		Kind:         kind,
		InvitationID: inv.ID,
		TripID:       inv.TripID,
		ActorID:      actor,
		At:           s.now(),
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row scanner) (Invitation, error) {
	var inv Invitation
	err := row.Scan(&inv.ID, &inv.TripID, &inv.InviterID, &inv.InviteeID, &inv.CreatedAt)
	return inv, err
}

func newListing() Listing {
	return Listing{Invitations: []Enriched{}, Stale: []Stale{}}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
