package event

import (
	"context"
	"encoding/json"
	"fmt"

	"backend-tripcal/internal/db"
	"backend-tripcal/internal/shared/apperr"

	"github.com/google/uuid"
)

const selectEvent = `
	SELECT id, trip_id, creator, title, start_time, end_time, type, location, cost, details, votes, payments, cost_assignments
	FROM events`

type Service struct {
	db db.Querier
}

func NewService(db db.Querier) *Service {
	return &Service{db: db}
}

func (s *Service) CreateEvent(ctx context.Context, input Event) (Event, error) {
	input.ID = uuid.NewString()
	normalize(&input)
	assignments, err := json.Marshal(input.CostAssignments)
	if err != nil {
		return Event{}, fmt.Errorf("encode cost assignments: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO events (id, trip_id, creator, title, start_time, end_time, type, location, cost, details, votes, payments, cost_assignments)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, input.ID, input.TripID, input.Creator, input.Title, input.Start, input.End, input.Type, input.Location,
		input.Cost, input.Details, []byte(input.Votes), []byte(input.Payments), assignments)
	if err != nil {
		return Event{}, err
	}
	return input, nil
}

func (s *Service) ListEventsForTrip(ctx context.Context, tripID string) ([]Event, error) {
	rows, err := s.db.Query(ctx, selectEvent+`
		WHERE trip_id=$1
		ORDER BY start_time, title
	`, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Service) GetEvent(ctx context.Context, id string) (Event, error) {
	ev, err := scanEvent(s.db.QueryRow(ctx, selectEvent+` WHERE id=$1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Event{}, apperr.NotFound("event")
		}
		return Event{}, err
	}
	return ev, nil
}

// UpdateEvent overwrites the event's fields. The owning trip and creator are
// fixed at creation.
func (s *Service) UpdateEvent(ctx context.Context, id string, input Event) (Event, error) {
	input.ID = id
	normalize(&input)
	assignments, err := json.Marshal(input.CostAssignments)
	if err != nil {
		return Event{}, fmt.Errorf("encode cost assignments: %w", err)
	}

	row := s.db.QueryRow(ctx, `
		UPDATE events
		SET title=$2, start_time=$3, end_time=$4, type=$5, location=$6, cost=$7, details=$8,
		    votes=$9, payments=$10, cost_assignments=$11
		WHERE id=$1
		RETURNING trip_id, creator
	`, input.ID, input.Title, input.Start, input.End, input.Type, input.Location, input.Cost, input.Details,
		[]byte(input.Votes), []byte(input.Payments), assignments)
	if err := row.Scan(&input.TripID, &input.Creator); err != nil {
		if db.IsNoRows(err) {
			return Event{}, apperr.NotFound("event")
		}
		return Event{}, err
	}
	return input, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM events WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("event")
	}
	return nil
}

// Conflicts groups the trip's overlapping events.
func (s *Service) Conflicts(ctx context.Context, tripID string) ([]ConflictGroup, error) {
	events, err := s.ListEventsForTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return ConflictGroups(events), nil
}

// CostSummary splits the trip's event costs across assigned members.
func (s *Service) CostSummary(ctx context.Context, tripID string) ([]MemberCost, error) {
	events, err := s.ListEventsForTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return SplitCosts(events), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (Event, error) {
	var (
		ev          Event
		votes       []byte
		payments    []byte
		assignments []byte
	)
	err := row.Scan(&ev.ID, &ev.TripID, &ev.Creator, &ev.Title, &ev.Start, &ev.End, &ev.Type, &ev.Location,
		&ev.Cost, &ev.Details, &votes, &payments, &assignments)
	if err != nil {
		return Event{}, err
	}
	ev.Votes = json.RawMessage(votes)
	ev.Payments = json.RawMessage(payments)
	if len(assignments) > 0 {
		if err := json.Unmarshal(assignments, &ev.CostAssignments); err != nil {
			return Event{}, fmt.Errorf("decode cost assignments for event %s: %w", ev.ID, err)
		}
	}
	normalize(&ev)
	return ev, nil
}

// normalize fills empty JSON fields and rounds Cost to the cents the column
// keeps.
func normalize(ev *Event) {
	ev.Cost = ev.Cost.Round(2)
	if len(ev.Votes) == 0 || string(ev.Votes) == "null" {
		ev.Votes = json.RawMessage(`[]`)
	}
	if len(ev.Payments) == 0 || string(ev.Payments) == "null" {
		ev.Payments = json.RawMessage(`{}`)
	}
	if ev.CostAssignments == nil {
		ev.CostAssignments = map[string]bool{}
	}
}
