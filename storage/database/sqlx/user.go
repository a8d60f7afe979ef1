package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const userColumns = `id, username, password_hash, role, full_name, email, profile_picture,
	current_class_id, academic_year, created_at, updated_at, last_login`

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) *userRepository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)

	query := "SELECT COUNT(*) FROM users WHERE username = ?"
	args := []interface{}{username}
	if len(excludedUsers) > 0 {
		ids := make([]int, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		query += " AND id NOT IN (?)"
		args = append(args, ids)
	}
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "expanding excluded users")
	}

	var cnt int
	if err = sqlx.GetContext(ctx, exe, &cnt, exe.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking username uniqueness")
	}
	if cnt > 0 {
		return user.ErrUsernameExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	id, err := insert(ctx, repo.getExec(exec), `INSERT INTO users (
		username, password_hash, role, full_name, email, profile_picture,
		current_class_id, academic_year, created_at, updated_at, last_login
	) VALUES (
		:username, :password_hash, :role, :full_name, :email, :profile_picture,
		:current_class_id, :academic_year, :created_at, :updated_at, :last_login
	)`, usr)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	usr.ID = id
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	var conds conditions

	if filter != nil {
		// users with FullName, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + core.CleanString(filter.Search, true /* lower */) + "%"
			conds.add("(LOWER(full_name) LIKE ? OR LOWER(username) LIKE ? OR LOWER(email) LIKE ?)", val, val, val)
		}
		if filter.Role != "" {
			conds.add("role = ?", filter.Role)
		}
		if filter.Email != "" {
			conds.add("email = ?", core.CleanString(filter.Email, true /* lower */))
		}
		if filter.CurrentClassID != 0 {
			conds.add("current_class_id = ?", filter.CurrentClassID)
		}
	}

	users := make([]user.User, 0)
	query := "SELECT " + userColumns + " FROM users" + conds.where() + orderBy(ordering, "id ASC")
	if err := selectAll(ctx, repo.getExec(exec), &users, query, conds.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var conds conditions
	switch {
	case filter.ID != 0:
		conds.add("id = ?", filter.ID)
	case filter.Username != "":
		conds.add("username = ?", filter.Username)
	case filter.Email != "":
		conds.add("email = ?", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	// several accounts may share an email: the oldest one wins
	query := "SELECT " + userColumns + " FROM users" + conds.where() + " ORDER BY id ASC LIMIT 1"
	if err := get(ctx, repo.getExec(exec), &usr, user.ErrNotFound, query, conds.args...); err != nil {
		if err == user.ErrNotFound {
			return user.User{}, err
		}
		return user.User{}, errors.Wrap(err, "finding user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	err := update(ctx, repo.getExec(exec), user.ErrNotFound, `UPDATE users SET
		username = :username, password_hash = :password_hash, role = :role, full_name = :full_name,
		email = :email, profile_picture = :profile_picture, current_class_id = :current_class_id,
		academic_year = :academic_year, updated_at = :updated_at, last_login = :last_login
	WHERE id = :id`, usr)
	if err != nil {
		switch {
		case err == user.ErrNotFound:
			return user.User{}, err
		case isUniqueViolation(err):
			return user.User{}, user.ErrUsernameExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return usr, nil
}

func (repo userRepository) DeleteUser(ctx context.Context, id int, exec ...core.DBExecutor) error {
	return deleteByID(ctx, repo.getExec(exec), user.ErrNotFound, "users", id)
}
