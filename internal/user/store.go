package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/sratabix/gifselector/internal/database"
)

var ErrUserNotFound = errors.New("user does not exist")

type (
	// User is the external/public API for the user model. The password
	// hash and salt are excluded from any JSON serialisation.
	User struct {
		ID             uuid.UUID  `db:"id" json:"id"`
		Username       string     `db:"username" json:"username"`
		HashedPassword []byte     `db:"password" json:"-"`
		HashSalt       []byte     `db:"salt" json:"-"`
		CreatedAt      time.Time  `db:"created_at" json:"created_at"`
		UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
		LastLoginAt    *time.Time `db:"last_login" json:"last_login"`
		LastRefreshAt  *time.Time `db:"last_refresh" json:"last_refresh"`
	}

	Store struct {
		hasher *argonHasher
	}
)

func NewStore() *Store {
	return &Store{
		newArgon2IdHasher(1, 64, 64*1024, 1, 128),
	}
}

func (store *Store) Create(db database.Queryable, username []byte, rawPassword []byte) error {
	hash, err := store.hasher.GenerateHash(rawPassword, []byte{})
	if err != nil {
		return fmt.Errorf("provided password is invalid: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO users(id, username, password, salt, created_at, updated_at, last_login, last_refresh)
		VALUES ($1, $2, $3, $4, current_timestamp, current_timestamp, NULL, NULL)
	`, uuid.New(), username, hash.hash, hash.salt)
	if err != nil {
		return fmt.Errorf("failed to insert new user: %w", err)
	}

	return nil
}

func (store *Store) List(db database.Queryable) ([]*User, error) {
	query, args, err := selectUserBuilder().ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct list users query: %w", err)
	}

	var results []User
	if err := db.Select(&results, query, args...); err != nil {
		return nil, err
	}

	output := make([]*User, len(results))
	for k := range results {
		output[k] = &results[k]
	}

	return output, nil
}

// GetWithUsernameAndPassword finds a user with the matching username and
// returns it IF and ONLY IF the raw (unhashed) password provided hashes
// (with the same salt as the existing user) to a MATCHING hash.
func (store *Store) GetWithUsernameAndPassword(db database.Queryable, username []byte, rawPassword []byte) (*User, error) {
	query, args, err := selectUserBuilder().Where("users.username=?", username).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select user query: %w", err)
	}

	var user User
	if err := db.Get(&user, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to find user with username %s: %w", username, err)
	}

	if err := store.hasher.Compare(user.HashedPassword, user.HashSalt, rawPassword); err != nil {
		return nil, fmt.Errorf("password supplied for user %s is invalid: %v", username, err)
	}

	return &user, nil
}

func (store *Store) GetWithID(db database.Queryable, id uuid.UUID) (*User, error) {
	query, args, err := selectUserBuilder().Where("users.id=?", id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to construct select user query: %w", err)
	}

	var user User
	if err := db.Get(&user, db.Rebind(query), args...); err != nil {
		return nil, ErrUserNotFound
	}

	return &user, nil
}

func (store *Store) RecordLogin(db database.Queryable, userID uuid.UUID) error {
	_, err := db.Exec(`UPDATE users SET last_login=current_timestamp WHERE id = $1`, userID)
	return err
}

func (store *Store) RecordRefresh(db database.Queryable, userID uuid.UUID) error {
	_, err := db.Exec(`UPDATE users SET last_refresh=current_timestamp WHERE id = $1`, userID)
	return err
}

func selectUserBuilder() squirrel.SelectBuilder {
	return squirrel.
		Select("users.*").
		From("users")
}
