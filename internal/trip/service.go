package trip

import (
	"context"
	"log/slog"

	"backend-tripcal/internal/db"
	"backend-tripcal/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const selectTrip = `
	SELECT id, owner, name, start_date, end_date, description, members
	FROM trips`

type Service struct {
	db db.Pool
}

func NewService(db db.Pool) *Service {
	return &Service{db: db}
}

// With returns a Service running its statements on q, typically a pgx.Tx
// owned by another store.
func (s *Service) With(q db.Pool) *Service {
	return &Service{db: q}
}

func (s *Service) CreateTrip(ctx context.Context, input Trip) (Trip, error) {
	input.ID = uuid.NewString()
	input.Members = memberSet(input.Members)
	_, err := s.db.Exec(ctx, `
		INSERT INTO trips (id, owner, name, start_date, end_date, description, members)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, input.ID, input.Owner, input.Name, input.Start, input.End, input.Description, input.Members)
	if err != nil {
		return Trip{}, err
	}
	return input, nil
}

// ListTripsFor returns every trip the account owns or belongs to.
func (s *Service) ListTripsFor(ctx context.Context, accountID string) ([]Trip, error) {
	rows, err := s.db.Query(ctx, selectTrip+`
		WHERE owner=$1 OR $1 = ANY(members)
		ORDER BY start_date, name
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trips := []Trip{}
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

func (s *Service) GetTrip(ctx context.Context, id string) (Trip, error) {
	trip, err := scanTrip(s.db.QueryRow(ctx, selectTrip+` WHERE id=$1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Trip{}, apperr.NotFound("trip")
		}
		return Trip{}, err
	}
	return trip, nil
}

// UpdateTrip overwrites every mutable field of the trip.
func (s *Service) UpdateTrip(ctx context.Context, id string, input Trip) (Trip, error) {
	input.ID = id
	input.Members = memberSet(input.Members)
	tag, err := s.db.Exec(ctx, `
		UPDATE trips
		SET owner=$2, name=$3, start_date=$4, end_date=$5, description=$6, members=$7
		WHERE id=$1
	`, input.ID, input.Owner, input.Name, input.Start, input.End, input.Description, input.Members)
	if err != nil {
		return Trip{}, err
	}
	if tag.RowsAffected() == 0 {
		return Trip{}, apperr.NotFound("trip")
	}
	return input, nil
}

// DeleteTrip removes the trip together with its events and invitations in a
// single transaction.
func (s *Service) DeleteTrip(ctx context.Context, id string) (CascadeResult, error) {
	var result CascadeResult
	err := db.InTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM trips WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("trip")
		}

		tag, err = tx.Exec(ctx, `DELETE FROM events WHERE trip_id=$1`, id)
		if err != nil {
			return err
		}
		result.Events = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM invitations WHERE trip_id=$1`, id)
		if err != nil {
			return err
		}
		result.Invitations = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return CascadeResult{}, err
	}
	slog.Debug("trip deleted", "trip_id", id, "events", result.Events, "invitations", result.Invitations)
	return result, nil
}

// AddMember inserts accountID into the trip's member set. Adding an existing
// member is a no-op.
func (s *Service) AddMember(ctx context.Context, tripID, accountID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE trips
		SET members = CASE WHEN $2 = ANY(members) THEN members ELSE array_append(members, $2) END
		WHERE id=$1
	`, tripID, accountID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("trip")
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrip(row scanner) (Trip, error) {
	var trip Trip
	if err := row.Scan(&trip.ID, &trip.Owner, &trip.Name, &trip.Start, &trip.End, &trip.Description, &trip.Members); err != nil {
		return Trip{}, err
	}
	if trip.Members == nil {
		trip.Members = []string{}
	}
	return trip, nil
}

// memberSet drops blanks and repeats while keeping first-seen order.
func memberSet(members []string) []string {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, id := range members {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
