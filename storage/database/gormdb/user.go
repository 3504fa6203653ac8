package gormrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/darasa-lms/darasa/core"
	"github.com/darasa-lms/darasa/core/user"
)

type userRepository struct {
	db *gorm.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func (repo userRepository) boil(usr user.User) *userRow {
	// users created without a password (eg. by an admin) cannot log in until they reset it
	hash := usr.PasswordHash
	if hash == nil {
		hash = []byte{}
	}
	return &userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Username:     nullString(usr.Username),
		Email:        nullString(usr.Email),
		IsActive:     usr.IsActive,
		Role:         usr.Role,
		PasswordHash: hash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    nullTime(usr.LastLogin),
	}
}

func (repo userRepository) unboil(u *userRow) user.User {
	usr := user.User{
		ID:           u.ID,
		Name:         u.Name,
		IsActive:     u.IsActive,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
	if u.Username != nil {
		usr.Username = *u.Username
	}
	if u.Email != nil {
		usr.Email = *u.Email
	}
	if u.LastLogin != nil {
		usr.LastLogin = *u.LastLogin
	}
	return usr
}

// trapNotFound maps gorm's "record not found" to user.ErrNotFound
func (repo userRepository) trapNotFound(err error, msg string) error {
	if isNotFound(err) {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	check := func(column, value string, errExists error) error {
		if value == "" {
			return nil
		}
		q := conn(ctx, repo.db).Model(&userRow{}).Where(column+" = ?", value)
		if len(excludedUsers) > 0 {
			ids := make([]string, 0, len(excludedUsers))
			for _, u := range excludedUsers {
				ids = append(ids, u.ID)
			}
			q = q.Where("id NOT IN ?", ids)
		}
		var cnt int64
		if err := q.Count(&cnt).Error; err != nil {
			return errors.Wrap(err, "checking user uniqueness")
		}
		if cnt > 0 {
			return errExists
		}
		return nil
	}

	if err := check("username", username, user.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, user.ErrEmailExists)
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = newID()
	u := repo.boil(usr)
	if err := conn(ctx, repo.db).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return user.User{}, core.WrapKind(core.KindConflict, err, "a user with this username or email already exists")
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return repo.unboil(u), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := conn(ctx, repo.db).Model(&userRow{})

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(username) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", val, val, val)
		}
		if len(filter.Roles) > 0 {
			q = q.Where("role IN ?", filter.Roles)
		}
		if filter.IsActive != nil {
			q = q.Where("is_active = ?", *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where("created_at >= ?", filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where("created_at <= ?", filter.CreatedTo.UTC())
		}
	}

	var rows []userRow
	if err := q.Order(orderClause(ordering, "created_at DESC")).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for i := range rows {
		users = append(users, repo.unboil(&rows[i]))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := conn(ctx, repo.db)

	switch {
	case filter.ID != "":
		if !validID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where("id = ?", filter.ID)
	case filter.Username != "":
		q = q.Where("username = ?", filter.Username)
	case filter.Email != "":
		q = q.Where("email = ?", filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		var email string
		uname := filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 {
			email = filter.UsernameOrEmail[1]
		}
		if email == "" {
			email = uname
		} else if uname == "" {
			uname = email
		}
		if uname == "" {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where("username = ? OR email = ?", uname, email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var u userRow
	if err := q.First(&u).Error; err != nil {
		return user.User{}, repo.trapNotFound(err, "finding user")
	}
	return repo.unboil(&u), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	u := repo.boil(usr)
	if err := conn(ctx, repo.db).Save(u).Error; err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	return repo.unboil(u), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo userRepository) ChangeRole(ctx context.Context, id, from, to string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	res := conn(ctx, repo.db).Model(&userRow{}).
		Where("id = ? AND role = ?", id, from).
		Updates(map[string]interface{}{"role": to, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, errors.Wrap(res.Error, "changing user role")
	}
	return res.RowsAffected > 0, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}
	res := conn(ctx, repo.db).Where("id IN ?", valid).Delete(&userRow{})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "deleting users")
	}
	return int(res.RowsAffected), nil
}

func (repo userRepository) CountByRole(ctx context.Context) (map[string]int64, error) {
	counts, err := countBy(conn(ctx, repo.db), &userRow{}, "role")
	if err != nil {
		return nil, errors.Wrap(err, "counting users by role")
	}
	return counts, nil
}
