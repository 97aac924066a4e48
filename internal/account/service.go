package account

import (
	"context"
	"fmt"

	"backend-tripcal/internal/db"
	"backend-tripcal/internal/shared/apperr"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	usernameIndex = "accounts_username_key"
	emailIndex    = "accounts_email_key"
)

const selectAccount = `
	SELECT id, username, password_hash, email, first_name, last_name, date_created
	FROM accounts`

type Service struct {
	db   db.Querier
	cost int
}

func NewService(db db.Querier) *Service {
	return &Service{db: db, cost: bcrypt.DefaultCost}
}

// CreateAccount persists a new account with a bcrypt-hashed credential.
func (s *Service) CreateAccount(ctx context.Context, req SignupRequest) (Account, error) {
	taken, err := s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username=$1)`, req.Username)
	if err != nil {
		return Account{}, err
	}
	if taken {
		return Account{}, apperr.ErrDuplicateUsername
	}
	if req.Email != "" {
		taken, err := s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email=$1)`, req.Email)
		if err != nil {
			return Account{}, err
		}
		if taken {
			return Account{}, apperr.ErrDuplicateEmail
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	acc := Account{
		ID:           uuid.NewString(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO accounts (id, username, password_hash, email, first_name, last_name)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING date_created
	`, acc.ID, acc.Username, acc.PasswordHash, acc.Email, acc.FirstName, acc.LastName)
	if err := row.Scan(&acc.DateCreated); err != nil {
		return Account{}, conflict(err)
	}
	return acc, nil
}

// Authenticate returns the account whose stored hash matches password.
// Unknown usernames and wrong passwords are indistinguishable to callers.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Account, error) {
	acc, err := s.GetByUsername(ctx, username)
	if err != nil {
		if _, ok := apperr.Message(err); ok {
			return Account{}, apperr.ErrInvalidCredentials
		}
		return Account{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return Account{}, apperr.ErrInvalidCredentials
	}
	return acc, nil
}

// UpdateProfile overwrites the profile fields of the account currently named
// req.OldUsername. The id and credential are left untouched.
func (s *Service) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (Account, error) {
	if req.Username != req.OldUsername {
		taken, err := s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username=$1)`, req.Username)
		if err != nil {
			return Account{}, err
		}
		if taken {
			return Account{}, apperr.ErrDuplicateUsername
		}
	}
	if req.Email != "" {
		taken, err := s.exists(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email=$1 AND username<>$2)`, req.Email, req.OldUsername)
		if err != nil {
			return Account{}, err
		}
		if taken {
			return Account{}, apperr.ErrDuplicateEmail
		}
	}

	row := s.db.QueryRow(ctx, `
		UPDATE accounts
		SET username=$2, email=$3, first_name=$4, last_name=$5
		WHERE username=$1
		RETURNING id, username, password_hash, email, first_name, last_name, date_created
	`, req.OldUsername, req.Username, req.Email, req.FirstName, req.LastName)
	acc, err := scanAccount(row)
	if err != nil {
		if db.IsNoRows(err) {
			return Account{}, apperr.NotFound("user")
		}
		return Account{}, conflict(err)
	}
	return acc, nil
}

// ChangePassword replaces the credential after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	acc, err := s.GetByUsername(ctx, req.Username)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return apperr.ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	tag, err := s.db.Exec(ctx, `UPDATE accounts SET password_hash=$2 WHERE id=$1`, acc.ID, string(hash))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func (s *Service) GetByUsername(ctx context.Context, username string) (Account, error) {
	acc, err := scanAccount(s.db.QueryRow(ctx, selectAccount+` WHERE username=$1`, username))
	if err != nil {
		if db.IsNoRows(err) {
			return Account{}, apperr.NotFound("user")
		}
		return Account{}, err
	}
	return acc, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Account, error) {
	acc, err := scanAccount(s.db.QueryRow(ctx, selectAccount+` WHERE id=$1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Account{}, apperr.NotFound("user")
		}
		return Account{}, err
	}
	return acc, nil
}

func (s *Service) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := s.db.QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (Account, error) {
	var acc Account
	err := row.Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.Email, &acc.FirstName, &acc.LastName, &acc.DateCreated)
	return acc, err
}

// conflict maps unique-index races that slipped past the existence checks.
func conflict(err error) error {
	switch {
	case db.IsUniqueViolation(err, usernameIndex):
		return apperr.ErrDuplicateUsername
	case db.IsUniqueViolation(err, emailIndex):
		return apperr.ErrDuplicateEmail
	}
	return err
}
