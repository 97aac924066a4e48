package invitation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"backend-tripcal/internal/account"
	"backend-tripcal/internal/notify"
	"backend-tripcal/internal/shared/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
)

var errQuery = errors.New("query error")

var (
	invitationColumns = []string{"id", "trip_id", "inviter_id", "invitee_id", "created_at"}
	tripColumns       = []string{"id", "owner", "name", "start_date", "end_date", "description", "members"}
	fixedNow          = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)
)

type stubAccounts map[string]string

func (s stubAccounts) GetByUsername(_ context.Context, username string) (account.Account, error) {
	if username == "broken" {
		return account.Account{}, errQuery
	}
	id, ok := s[username]
	if !ok {
		return account.Account{}, apperr.NotFound("user")
	}
	return account.Account{ID: id, Username: username}, nil
}

type sent struct {
	to     string
	notice notify.Notice
}

type recorder struct {
	mu    sync.Mutex
	sends []sent
}

func (r *recorder) Publish(accountID string, n notify.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, sent{to: accountID, notice: n})
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func newTestService(t *testing.T) (*Service, pgxmock.PgxPoolIface, *recorder) {
	t.Helper()
	mock := newMock(t)
	rec := &recorder{}
	svc := NewService(mock, stubAccounts{"bob": "u2", "carol": "u3"}, rec)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock, rec
}

func strPtr(s string) *string { return &s }

func expectPending(mock pgxmock.PgxPoolIface, tripID, inviteeID string, pending bool) {
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM invitations`).
		WithArgs(tripID, inviteeID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(pending))
}

func expectTrip(mock pgxmock.PgxPoolIface, tripID string, members []string) {
	mock.ExpectQuery(`SELECT id, owner, name, start_date, end_date, description, members`).
		WithArgs(tripID).
		WillReturnRows(pgxmock.NewRows(tripColumns).
			AddRow(tripID, "u1", "Lisbon", "2026-05-01", "2026-05-07", "", members))
}

func TestProposeCreatesInvitation(t *testing.T) {
	svc, mock, rec := newTestService(t)

	expectPending(mock, "t1", "u2", false)
	expectTrip(mock, "t1", []string{"u3"})
	mock.ExpectExec(`INSERT INTO invitations`).
		WithArgs(pgxmock.AnyArg(), "t1", "u1", "u2", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inv, err := svc.Propose(context.Background(), ProposeRequest{TripID: "t1", InviterID: "u1", InviteeUsername: "bob"})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if inv.ID == "" || inv.TripID != "t1" || inv.InviterID != "u1" || inv.InviteeID != "u2" {
		t.Fatalf("unexpected invitation: %+v", inv)
	}
	if !inv.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected created_at %v", inv.CreatedAt)
	}
	if len(rec.sends) != 1 || rec.sends[0].to != "u2" || rec.sends[0].notice.Kind != notify.KindInvitationProposed {
		t.Fatalf("unexpected notifications: %+v", rec.sends)
	}
	if rec.sends[0].notice.ActorID != "u1" || rec.sends[0].notice.InvitationID != inv.ID {
		t.Fatalf("unexpected notice: %+v", rec.sends[0].notice)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProposeUnknownInvitee(t *testing.T) {
	svc, mock, rec := newTestService(t)

	_, err := svc.Propose(context.Background(), ProposeRequest{TripID: "t1", InviterID: "u1", InviteeUsername: "nobody"})
	if !errors.Is(err, apperr.ErrUnknownInvitee) {
		t.Fatalf("expected unknown invitee, got %v", err)
	}
	if len(rec.sends) != 0 {
		t.Fatalf("expected no notifications")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProposeLookupFault(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Propose(context.Background(), ProposeRequest{TripID: "t1", InviterID: "u1", InviteeUsername: "broken"})
	if !errors.Is(err, errQuery) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestProposeAlreadyPending(t *testing.T) {
	svc, mock, _ := newTestService(t)

	expectPending(mock, "t1", "u2", true)

	_, err := svc.Propose(context.Background(), ProposeRequest{TripID: "t1", InviterID: "u1", InviteeUsername: "bob"})
	if !errors.Is(err, apperr.ErrAlreadyPending) {
		t.Fatalf("expected already pending, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProposeAlreadyMember(t *testing.T) {
	svc, mock, _ := newTestService(t)

	expectPending(mock, "t1", "u2", false)
	expectTrip(mock, "t1", []string{"u2"})

	_, err := svc.Propose(context.Background(), ProposeRequest{TripID: "t1", InviterID: "u1", InviteeUsername: "bob"})
	if !errors.Is(err, apperr.ErrAlreadyMember) {
		t.Fatalf("expected already member, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProposeMissingTripSkipsMemberCheck(t *testing.T) {
	svc, mock, _ := newTestService(t)

	expectPending(mock, "gone", "u2", false)
	mock.ExpectQuery(`FROM trips`).WithArgs("gone").WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO invitations`).
		WithArgs(pgxmock.AnyArg(), "gone", "u1", "u2", fixedNow).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if _, err := svc.Propose(context.Background(), ProposeRequest{TripID: "gone", InviterID: "u1", InviteeUsername: "bob"}); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProposeUniqueRaceReportsPending(t *testing.T) {
	svc, mock, rec := newTestService(t)

	expectPending(mock, "t1", "u2", false)
	expectTrip(mock, "t1", nil)
	mock.ExpectExec(`INSERT INTO invitations`).
		WithArgs(pgxmock.AnyArg(), "t1", "u1", "u2", fixedNow).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: pendingIndex})

	_, err := svc.Propose(context.Background(), ProposeRequest{TripID: "t1", InviterID: "u1", InviteeUsername: "bob"})
	if !errors.Is(err, apperr.ErrAlreadyPending) {
		t.Fatalf("expected already pending, got %v", err)
	}
	if len(rec.sends) != 0 {
		t.Fatalf("expected no notifications")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProposeStoreFaults(t *testing.T) {
	req := ProposeRequest{TripID: "t1", InviterID: "u1", InviteeUsername: "bob"}

	svc, mock, _ := newTestService(t)
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs("t1", "u2").WillReturnError(errQuery)
	if _, err := svc.Propose(context.Background(), req); !errors.Is(err, errQuery) {
		t.Fatalf("expected pending check error, got %v", err)
	}

	svc, mock, _ = newTestService(t)
	expectPending(mock, "t1", "u2", false)
	mock.ExpectQuery(`FROM trips`).WithArgs("t1").WillReturnError(errQuery)
	if _, err := svc.Propose(context.Background(), req); !errors.Is(err, errQuery) {
		t.Fatalf("expected trip lookup error, got %v", err)
	}

	svc, mock, _ = newTestService(t)
	expectPending(mock, "t1", "u2", false)
	expectTrip(mock, "t1", nil)
	mock.ExpectExec(`INSERT INTO invitations`).
		WithArgs(pgxmock.AnyArg(), "t1", "u1", "u2", fixedNow).
		WillReturnError(errQuery)
	if _, err := svc.Propose(context.Background(), req); !errors.Is(err, errQuery) {
		t.Fatalf("expected insert error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListForInviteeSeparatesStale(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery(`LEFT JOIN trips t ON t.id = i.trip_id`).
		WithArgs("u2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "trip_id", "inviter_id", "invitee_id", "created_at", "name", "start_date", "end_date", "username"}).
			AddRow("i1", "t1", "u1", "u2", fixedNow, strPtr("Lisbon"), strPtr("2026-05-01"), strPtr("2026-05-07"), strPtr("alice")).
			AddRow("i2", "t-gone", "u1", "u2", fixedNow, nil, nil, nil, strPtr("alice")).
			AddRow("i3", "t1", "u-gone", "u2", fixedNow, strPtr("Lisbon"), strPtr("2026-05-01"), strPtr("2026-05-07"), nil))

	listing, err := svc.ListForInvitee(context.Background(), "u2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listing.Invitations) != 1 {
		t.Fatalf("expected one resolvable invitation, got %d", len(listing.Invitations))
	}
	got := listing.Invitations[0]
	if got.ID != "i1" || got.TripName != "Lisbon" || got.TripStart != "2026-05-01" || got.TripEnd != "2026-05-07" || got.InviterUsername != "alice" {
		t.Fatalf("unexpected enrichment: %+v", got)
	}
	if len(listing.Stale) != 2 {
		t.Fatalf("expected two stale invitations, got %d", len(listing.Stale))
	}
	if listing.Stale[0].ID != "i2" || listing.Stale[0].Reason != reasonTripMissing {
		t.Fatalf("unexpected stale entry: %+v", listing.Stale[0])
	}
	if listing.Stale[1].ID != "i3" || listing.Stale[1].Reason != reasonInviterMissing {
		t.Fatalf("unexpected stale entry: %+v", listing.Stale[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListForInviteeEmpty(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery(`FROM invitations i`).
		WithArgs("u9").
		WillReturnRows(pgxmock.NewRows([]string{"id", "trip_id", "inviter_id", "invitee_id", "created_at", "name", "start_date", "end_date", "username"}))

	listing, err := svc.ListForInvitee(context.Background(), "u9")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listing.Invitations == nil || listing.Stale == nil {
		t.Fatalf("expected non-nil empty slices")
	}
}

func TestListForTripSeparatesStale(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery(`LEFT JOIN accounts a ON a.id = i.invitee_id`).
		WithArgs("t1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "trip_id", "inviter_id", "invitee_id", "created_at", "username"}).
			AddRow("i1", "t1", "u1", "u2", fixedNow, strPtr("bob")).
			AddRow("i2", "t1", "u1", "u-gone", fixedNow, nil))

	listing, err := svc.ListForTrip(context.Background(), "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listing.Invitations) != 1 || listing.Invitations[0].InviteeUsername != "bob" {
		t.Fatalf("unexpected invitations: %+v", listing.Invitations)
	}
	if len(listing.Stale) != 1 || listing.Stale[0].Reason != reasonInviteeMissing {
		t.Fatalf("unexpected stale: %+v", listing.Stale)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListQueryErrors(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectQuery(`FROM invitations i`).WithArgs("u2").WillReturnError(errQuery)
	if _, err := svc.ListForInvitee(context.Background(), "u2"); !errors.Is(err, errQuery) {
		t.Fatalf("expected query error, got %v", err)
	}
	mock.ExpectQuery(`FROM invitations i`).WithArgs("t1").WillReturnError(errQuery)
	if _, err := svc.ListForTrip(context.Background(), "t1"); !errors.Is(err, errQuery) {
		t.Fatalf("expected query error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func expectLockedInvitation(mock pgxmock.PgxPoolIface, id string) {
	mock.ExpectQuery(`FROM invitations WHERE id=\$1 FOR UPDATE`).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows(invitationColumns).AddRow(id, "t1", "u1", "u2", fixedNow))
}

func TestAcceptGrantsMembershipAndDeletes(t *testing.T) {
	svc, mock, rec := newTestService(t)

	mock.ExpectBegin()
	expectLockedInvitation(mock, "i1")
	mock.ExpectExec(`UPDATE trips`).WithArgs("t1", "u2").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM invitations WHERE id=\$1`).WithArgs("i1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	inv, err := svc.Accept(context.Background(), "i1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if inv.TripID != "t1" || inv.InviteeID != "u2" {
		t.Fatalf("unexpected invitation: %+v", inv)
	}
	if len(rec.sends) != 1 || rec.sends[0].to != "u1" || rec.sends[0].notice.Kind != notify.KindInvitationAccepted {
		t.Fatalf("unexpected notifications: %+v", rec.sends)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAcceptMissingInvitation(t *testing.T) {
	svc, mock, rec := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WithArgs("gone").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Accept(context.Background(), "gone")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if msg, _ := apperr.Message(err); msg != "invitation not found" {
		t.Fatalf("unexpected message %q", msg)
	}
	if len(rec.sends) != 0 {
		t.Fatalf("expected no notifications")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAcceptMissingTripStillDeletes(t *testing.T) {
	svc, mock, rec := newTestService(t)

	mock.ExpectBegin()
	expectLockedInvitation(mock, "i1")
	mock.ExpectExec(`UPDATE trips`).WithArgs("t1", "u2").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectExec(`DELETE FROM invitations`).WithArgs("i1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	_, err := svc.Accept(context.Background(), "i1")
	if msg, _ := apperr.Message(err); msg != "trip not found" {
		t.Fatalf("expected trip not found, got %v", err)
	}
	if len(rec.sends) != 0 {
		t.Fatalf("expected no notifications")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAcceptRollsBackOnFault(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin()
	expectLockedInvitation(mock, "i1")
	mock.ExpectExec(`UPDATE trips`).WithArgs("t1", "u2").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`DELETE FROM invitations`).WithArgs("i1").WillReturnError(errQuery)
	mock.ExpectRollback()

	if _, err := svc.Accept(context.Background(), "i1"); !errors.Is(err, errQuery) {
		t.Fatalf("expected delete error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}

	svc, mock, _ = newTestService(t)
	mock.ExpectBegin()
	expectLockedInvitation(mock, "i1")
	mock.ExpectExec(`UPDATE trips`).WithArgs("t1", "u2").WillReturnError(errQuery)
	mock.ExpectRollback()

	if _, err := svc.Accept(context.Background(), "i1"); !errors.Is(err, errQuery) {
		t.Fatalf("expected update error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAcceptBeginError(t *testing.T) {
	svc, mock, _ := newTestService(t)

	mock.ExpectBegin().WillReturnError(errQuery)
	if _, err := svc.Accept(context.Background(), "i1"); !errors.Is(err, errQuery) {
		t.Fatalf("expected begin error, got %v", err)
	}
}

func TestReject(t *testing.T) {
	svc, mock, rec := newTestService(t)

	mock.ExpectQuery(`DELETE FROM invitations WHERE id=\$1`).
		WithArgs("i1").
		WillReturnRows(pgxmock.NewRows(invitationColumns).AddRow("i1", "t1", "u1", "u2", fixedNow))

	inv, err := svc.Reject(context.Background(), "i1")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if inv.ID != "i1" {
		t.Fatalf("unexpected invitation: %+v", inv)
	}
	if len(rec.sends) != 1 || rec.sends[0].to != "u1" || rec.sends[0].notice.Kind != notify.KindInvitationRejected {
		t.Fatalf("unexpected notifications: %+v", rec.sends)
	}

	mock.ExpectQuery(`DELETE FROM invitations`).WithArgs("i1").WillReturnError(pgx.ErrNoRows)
	if _, err := svc.Reject(context.Background(), "i1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	mock.ExpectQuery(`DELETE FROM invitations`).WithArgs("i1").WillReturnError(errQuery)
	if _, err := svc.Reject(context.Background(), "i1"); !errors.Is(err, errQuery) {
		t.Fatalf("expected store error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNilNotifier(t *testing.T) {
	mock := newMock(t)
	svc := NewService(mock, stubAccounts{}, nil)

	mock.ExpectQuery(`DELETE FROM invitations`).
		WithArgs("i1").
		WillReturnRows(pgxmock.NewRows(invitationColumns).AddRow("i1", "t1", "u1", "u2", fixedNow))
	if _, err := svc.Reject(context.Background(), "i1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
