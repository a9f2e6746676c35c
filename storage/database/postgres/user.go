package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/user"
)

const userColumns = "id, username, email, full_name, role, is_active, hashed_password, created_at, updated_at, last_login"

var userOrderFields = map[string]bool{
	"id": true, "username": true, "email": true, "full_name": true, "role": true, "created_at": true, "last_login": true,
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows || err == user.ErrNotFound {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	w := new(where)
	w.add("(username = ? OR email = ?)", username, email)
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		w.add("id NOT IN (?)", ids)
	}
	q, args, err := w.build(exe, "SELECT username, email FROM users"+w.String()+" LIMIT 1")
	if err != nil {
		return err
	}

	var found struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err = sqlx.GetContext(ctx, exe, &found, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if found.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	id, err := insert(ctx, repo.getExec(exec), `
		INSERT INTO users (username, email, full_name, role, is_active, hashed_password, created_at, updated_at, last_login)
		VALUES (:username, :email, :full_name, :role, :is_active, :hashed_password, :created_at, :updated_at, :last_login)
		RETURNING id`, usr)
	if err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID = id
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	exe := repo.getExec(exec)
	w := new(where)
	if filter != nil {
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add("(full_name ILIKE ? OR username ILIKE ? OR email ILIKE ?)", val, val, val)
		}
		if filter.Role != "" {
			w.add("role = ?", filter.Role)
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}
	q, args, err := w.build(exe, "SELECT "+userColumns+" FROM users"+w.String()+orderBy(ordering, userOrderFields, "id ASC"))
	if err != nil {
		return nil, err
	}

	users := make([]user.User, 0)
	if err = sqlx.SelectContext(ctx, exe, &users, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	exe := repo.getExec(exec)
	w := new(where)
	switch {
	case filter.ID > 0:
		w.add("id = ?", filter.ID)
	case filter.Username != "":
		w.add("username = ?", filter.Username)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	case filter.UsernameOrEmail != "":
		w.add("(username = ? OR email = ?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}
	q, args, err := w.build(exe, "SELECT "+userColumns+" FROM users"+w.String()+" LIMIT 1")
	if err != nil {
		return user.User{}, err
	}

	var usr user.User
	if err = sqlx.GetContext(ctx, exe, &usr, q, args...); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "getting user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := update(ctx, repo.getExec(exec), `
		UPDATE users SET
			username = :username, email = :email, full_name = :full_name, role = :role, is_active = :is_active,
			hashed_password = :hashed_password, updated_at = :updated_at, last_login = :last_login
		WHERE id = :id`, usr, user.ErrNotFound)
	if err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "updating user")
	}
	return usr, nil
}
