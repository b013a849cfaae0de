package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/aicanvas/core"
	"github.com/trezcool/aicanvas/core/user"
)

const userColumns = "id, email, role, name, created_at"

type userRow struct {
	ID        string      `db:"id"`
	Email     string      `db:"email"`
	Role      string      `db:"role"`
	Name      null.String `db:"name"`
	CreatedAt int64       `db:"created_at"`
}

func (r userRow) unpack() user.User {
	return user.User{
		ID:        r.ID,
		Email:     r.Email,
		Role:      r.Role,
		Name:      r.Name,
		CreatedAt: fromUnix(r.CreatedAt),
	}
}

type userRepository struct {
	baseRepository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{baseRepository{exec: exec}}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	row := userRow{ID: usr.ID, Email: usr.Email, Role: usr.Role, Name: usr.Name, CreatedAt: toUnix(usr.CreatedAt)}
	_, err := sqlx.NamedExecContext(ctx, repo.getExec(exec),
		"INSERT INTO users ("+userColumns+") VALUES (:id, :email, :role, :name, :created_at)", row)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.unpack(), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var (
		query = "SELECT " + userColumns + " FROM users WHERE "
		arg   string
	)
	switch {
	case filter.ID != "":
		query += "id = ?"
		arg = filter.ID
	case filter.Email != "":
		query += "email = ?"
		arg = filter.Email
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	if err := repo.getExec(exec).GetContext(ctx, &row, query, arg); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.unpack(), nil
}

// UpdateUser updates the mutable fields of a User. Email and role are fixed at creation.
func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	res, err := repo.getExec(exec).ExecContext(ctx, "UPDATE users SET name = ? WHERE id = ?", usr.Name, usr.ID)
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID}, exec...)
}
