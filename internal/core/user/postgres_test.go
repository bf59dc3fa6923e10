package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/recordkeeper/internal/common"
	"github.com/dmitrijs2005/recordkeeper/internal/core/role"
	"github.com/dmitrijs2005/recordkeeper/internal/metrics"
	"github.com/dmitrijs2005/recordkeeper/internal/source"
)

const (
	getUserRe     = `(?s)^select u\.id, u\.username, u\.email, u\.password, u\.role_id, .*from core\.users u .*left join corrupt_record c on c\.id = u\.id::text where c\.id is null and \(u\.id = \$1::uuid or u\.username = \$2::text or \(\$3::text is not null and u\.email = \$3::text\)\) group by u\.id limit 1$`
	getUserRoleRe = `(?s)^select r\.id, r\.name, r\.level, coalesce\(array_agg\(p\.privilege\) .*from core\.roles r left join core\.role_privileges p on p\.role_id = r\.id left join corrupt_record c on c\.id = r\.id::text where c\.id is null and r\.id = \$1 group by r\.id$`
	upsertUserRe  = `(?s)^insert into core\.users \(id, username, email, password, role_id, version, first_version\) values .*on conflict \(id\) do update set username = excluded\.username, email = excluded\.email, password = excluded\.password, role_id = excluded\.role_id, version = excluded\.version$`
	deletePrivRe  = `(?s)^delete from core\.user_privileges where user_id = \$1 and privilege <> all\(\$2::text\[\]\)$`
	insertPrivRe  = `(?s)^insert into core\.user_privileges \(user_id, privilege\) select \$1, unnest\(\$2::text\[\]\) on conflict do nothing$`
	quarantineRe  = `(?s)^insert into corrupt_record`
)

var (
	userColumns = []string{"id", "username", "email", "password", "role_id", "va", "vt", "fa", "ft", "privileges"}
	roleColumns = []string{"id", "name", "level", "privileges"}
)

func newSourceWithMock(t *testing.T) (*source.PgSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return source.NewPgSource(db, source.WithMetrics(metrics.New(prometheus.NewRegistry()))), mock
}

var testHash = func() string {
	p, err := GeneratePassword("1234")
	if err != nil {
		panic(err)
	}
	return p.Hash()
}()

func TestGetUser_ByUsername_WithRole(t *testing.T) {
	src, mock := newSourceWithMock(t)

	id := uuid.Must(uuid.NewV7())
	roleID := uuid.Must(uuid.NewV7())
	ts := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(getUserRe).
		WithArgs(nil, "developer", nil).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "developer", nil, testHash, roleID.String(), uuid.Nil.String(), ts, uuid.Nil.String(), ts, `{}`))
	mock.ExpectQuery(getUserRoleRe).
		WithArgs(roleID.String()).
		WillReturnRows(sqlmock.NewRows(roleColumns).AddRow(roleID.String(), "DEVELOPER", int64(4), `{"MANAGE ROLES","MANAGE USERS"}`))

	view, err := source.Read(context.Background(), src, GetUserByUsername("developer"))
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, id, view.ID.Key())
	assert.Equal(t, Username("developer"), view.User.Username())
	assert.Nil(t, view.User.Email())
	assert.True(t, view.User.Password().Verify("1234"))
	require.NotNil(t, view.Role)
	assert.Equal(t, roleID, view.Role.ID.Key())
	assert.Equal(t, role.Name("DEVELOPER"), view.Role.Name)
	assert.Equal(t, role.Developer, view.Role.Level)
	assert.Equal(t, []string{"MANAGE ROLES", "MANAGE USERS"}, view.Role.Privileges.Strings())
	assert.True(t, view.FirstVersion.Equal(view.Version))

	rec := view.AsRecord()
	require.NotNil(t, rec.State().Role())
	assert.Equal(t, roleID, rec.State().Role().Key())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_ByEmail_RoleMissing(t *testing.T) {
	src, mock := newSourceWithMock(t)

	id := uuid.Must(uuid.NewV7())
	roleID := uuid.Must(uuid.NewV7())
	ts := time.Now().Add(-time.Minute)

	mock.ExpectQuery(getUserRe).
		WithArgs(nil, nil, "dev@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(id.String(), "developer", "dev@example.com", testHash, roleID.String(), uuid.Nil.String(), ts, uuid.Nil.String(), ts, `{"MANAGE USERS"}`))
	mock.ExpectQuery(getUserRoleRe).
		WithArgs(roleID.String()).
		WillReturnRows(sqlmock.NewRows(roleColumns))

	view, err := source.Read(context.Background(), src, GetUserByEmail("dev@example.com"))
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Nil(t, view.Role)
	require.NotNil(t, view.User.Email())
	assert.Equal(t, Email("dev@example.com"), *view.User.Email())
	assert.Equal(t, []string{"MANAGE USERS"}, view.User.Privileges().Strings())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_ByID_NotFound(t *testing.T) {
	src, mock := newSourceWithMock(t)
	id, err := ParseID(uuid.Must(uuid.NewV7()).String())
	require.NoError(t, err)

	mock.ExpectQuery(getUserRe).
		WithArgs(id.String(), nil, nil).
		WillReturnRows(sqlmock.NewRows(userColumns))

	view, err := source.Read(context.Background(), src, GetUserByID(id))
	require.NoError(t, err)
	assert.Nil(t, view)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUser_CorruptRowIsQuarantined(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    any
		password string
		cause    string
	}{
		{name: "bad username", username: "X", email: nil, password: testHash, cause: "invalid value for Username"},
		{name: "bad email", username: "developer", email: "not-an-email", password: testHash, cause: "invalid value for Email"},
		{name: "bad password", username: "developer", email: nil, password: "plaintext", cause: "invalid value for Password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, mock := newSourceWithMock(t)
			id := uuid.Must(uuid.NewV7())
			ts := time.Now().Add(-time.Minute)

			mock.ExpectQuery(getUserRe).
				WillReturnRows(sqlmock.NewRows(userColumns).
					AddRow(id.String(), tt.username, tt.email, tt.password, nil, uuid.Nil.String(), ts, uuid.Nil.String(), ts, `{}`))
			mock.ExpectExec(quarantineRe).
				WithArgs(id.String(), "User", tt.cause).
				WillReturnResult(sqlmock.NewResult(0, 1))

			view, err := source.Read(context.Background(), src, GetUserByUsername("developer"))
			require.NoError(t, err)
			assert.Nil(t, view)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetUser_CorruptRoleQuarantinesUser(t *testing.T) {
	tests := []struct {
		name       string
		roleName   string
		privileges string
		cause      string
	}{
		{name: "bad role name", roleName: "bad_role!", privileges: `{}`, cause: "invalid value for RoleName"},
		{name: "bad role privilege", roleName: "DEVELOPER", privileges: `{"MANAGE USERS","drop tables"}`, cause: "invalid value for Privilege"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, mock := newSourceWithMock(t)

			id := uuid.Must(uuid.NewV7())
			roleID := uuid.Must(uuid.NewV7())
			ts := time.Now().Add(-time.Minute)

			mock.ExpectQuery(getUserRe).
				WillReturnRows(sqlmock.NewRows(userColumns).
					AddRow(id.String(), "developer", nil, testHash, roleID.String(), uuid.Nil.String(), ts, uuid.Nil.String(), ts, `{}`))
			mock.ExpectQuery(getUserRoleRe).
				WillReturnRows(sqlmock.NewRows(roleColumns).AddRow(roleID.String(), tt.roleName, int64(0), tt.privileges))
			mock.ExpectExec(quarantineRe).
				WithArgs(id.String(), "User", tt.cause).
				WillReturnResult(sqlmock.NewResult(0, 1))

			view, err := source.Read(context.Background(), src, GetUserByUsername("developer"))
			require.NoError(t, err)
			assert.Nil(t, view)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGetUser_DBError(t *testing.T) {
	src, mock := newSourceWithMock(t)

	mock.ExpectQuery(getUserRe).WillReturnError(errors.New("db err"))

	_, err := source.Read(context.Background(), src, GetUserByUsername("developer"))
	require.ErrorIs(t, err, common.ErrPersistence)
	assert.Regexp(t, `db error: .*db err`, err.Error())
}

func TestWriteUser(t *testing.T) {
	src, mock := newSourceWithMock(t)

	roleID, err := role.ParseID(uuid.Must(uuid.NewV7()).String())
	require.NoError(t, err)
	author := uuid.New()
	rec, err := New("developer", "1234", nil, &roleID, []string{"MANAGE USERS"}, author)
	require.NoError(t, err)
	key := rec.ID().String()

	mock.ExpectBegin()
	mock.ExpectExec(upsertUserRe).
		WithArgs(key, "developer", nil, rec.State().Password().Hash(), roleID.String(), author.String(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deletePrivRe).
		WithArgs(key, `{"MANAGE USERS"}`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insertPrivRe).
		WithArgs(key, `{"MANAGE USERS"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, source.Write(context.Background(), src, WriteUser{Record: rec}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteUser_UpsertFailureRollsBack(t *testing.T) {
	src, mock := newSourceWithMock(t)

	rec, err := New("developer", "1234", nil, nil, nil, uuid.Nil)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(upsertUserRe).WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	err = source.Write(context.Background(), src, WriteUser{Record: rec})
	require.ErrorIs(t, err, common.ErrPersistence)
	assert.Contains(t, err.Error(), "unique constraint")
	require.NoError(t, mock.ExpectationsWereMet())
}
