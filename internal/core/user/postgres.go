package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dmitrijs2005/recordkeeper/internal/core"
	"github.com/dmitrijs2005/recordkeeper/internal/core/role"
	"github.com/dmitrijs2005/recordkeeper/internal/source"
)

const getUserQuery = `select u.id, u.username, u.email, u.password, u.role_id,
		(u.version).author, (u.version)."timestamp",
		(u.first_version).author, (u.first_version)."timestamp",
		coalesce(array_agg(p.privilege) filter (where p.privilege is not null), '{}')
	from core.users u
	left join core.user_privileges p on p.user_id = u.id
	left join corrupt_record c on c.id = u.id::text
	where c.id is null
		and (u.id = $1::uuid or u.username = $2::text or ($3::text is not null and u.email = $3::text))
	group by u.id
	limit 1`

const getUserRoleQuery = `select r.id, r.name, r.level,
		coalesce(array_agg(p.privilege) filter (where p.privilege is not null), '{}')
	from core.roles r
	left join core.role_privileges p on p.role_id = r.id
	left join corrupt_record c on c.id = r.id::text
	where c.id is null and r.id = $1
	group by r.id`

const upsertUserQuery = `insert into core.users (id, username, email, password, role_id, version, first_version)
	values ($1, $2, $3, $4, $5, row($6::uuid, $7::timestamp)::version, row($6::uuid, $7::timestamp)::version)
	on conflict (id) do update
	set username = excluded.username, email = excluded.email, password = excluded.password,
		role_id = excluded.role_id, version = excluded.version`

const deleteUserPrivilegesQuery = `delete from core.user_privileges
	where user_id = $1 and privilege <> all($2::text[])`

const insertUserPrivilegesQuery = `insert into core.user_privileges (user_id, privilege)
	select $1, unnest($2::text[])
	on conflict do nothing`

type row struct {
	id           string
	username     string
	email        sql.NullString
	password     string
	roleID       sql.NullString
	version      source.RecordVersion
	firstVersion source.RecordVersion
	privileges   pq.StringArray
}

func (r *row) view() (*DetailedView, error) {
	id, err := ParseID(r.id)
	if err != nil {
		return nil, err
	}
	username, err := ParseUsername(r.username)
	if err != nil {
		return nil, err
	}
	var email *Email
	if r.email.Valid {
		e, err := ParseEmail(r.email.String)
		if err != nil {
			return nil, err
		}
		email = &e
	}
	password, err := ParsePassword(r.password)
	if err != nil {
		return nil, err
	}
	var roleID *role.ID
	if r.roleID.Valid {
		rid, err := role.ParseID(r.roleID.String)
		if err != nil {
			return nil, err
		}
		roleID = &rid
	}
	privileges, err := core.ParsePrivileges(r.privileges)
	if err != nil {
		return nil, err
	}
	version, err := r.version.ToVersion()
	if err != nil {
		return nil, err
	}
	first, err := r.firstVersion.ToVersion()
	if err != nil {
		return nil, err
	}

	return &DetailedView{
		ID: id,
		User: User{
			username:   username,
			password:   password,
			email:      email,
			role:       roleID,
			privileges: privileges,
		},
		Version:      version,
		FirstVersion: first,
	}, nil
}

type roleRow struct {
	id         string
	name       string
	level      int16
	privileges pq.StringArray
}

func (r *roleRow) snapshot() (*Role, error) {
	id, err := role.ParseID(r.id)
	if err != nil {
		return nil, err
	}
	name, err := role.ParseName(r.name)
	if err != nil {
		return nil, err
	}
	privileges, err := core.ParsePrivileges(r.privileges)
	if err != nil {
		return nil, err
	}
	return &Role{ID: id, Name: name, Level: role.LevelFromCode(r.level), Privileges: privileges}, nil
}

func (op GetUser) Read(ctx context.Context, conn *source.PgConn) (*DetailedView, error) {
	var id uuid.NullUUID
	if op.id != nil {
		id = uuid.NullUUID{UUID: op.id.Key(), Valid: true}
	}
	var username, email sql.NullString
	if op.username != nil {
		username = sql.NullString{String: op.username.String(), Valid: true}
	}
	if op.email != nil {
		email = sql.NullString{String: op.email.String(), Valid: true}
	}

	var r row
	err := conn.QueryRowContext(ctx, getUserQuery, id, username, email).Scan(
		&r.id, &r.username, &r.email, &r.password, &r.roleID,
		&r.version.Author, &r.version.Timestamp,
		&r.firstVersion.Author, &r.firstVersion.Timestamp,
		&r.privileges,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	view, err := r.view()
	if err != nil {
		return nil, quarantine(ctx, conn, r.id, err)
	}

	if view.User.role == nil {
		return view, nil
	}

	var rr roleRow
	err = conn.QueryRowContext(ctx, getUserRoleQuery, view.User.role.Key()).Scan(&rr.id, &rr.name, &rr.level, &rr.privileges)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return view, nil
	case err != nil:
		return nil, fmt.Errorf("db error: %w", err)
	}

	// A user whose role snapshot cannot be mapped is quarantined as a whole.
	snapshot, err := rr.snapshot()
	if err != nil {
		return nil, quarantine(ctx, conn, r.id, err)
	}
	view.Role = snapshot
	return view, nil
}

func quarantine(ctx context.Context, conn *source.PgConn, id string, cause error) error {
	return source.AddCorruptRecord(ctx, conn, id, ModelName, cause)
}

func (op WriteUser) Write(ctx context.Context, conn *source.PgConn) error {
	rec := op.Record
	state := rec.State()
	v := source.FromVersion(rec.Version())
	key := rec.ID().Key()

	var email sql.NullString
	if state.email != nil {
		email = sql.NullString{String: state.email.String(), Valid: true}
	}
	var roleID uuid.NullUUID
	if state.role != nil {
		roleID = uuid.NullUUID{UUID: state.role.Key(), Valid: true}
	}

	if _, err := conn.ExecContext(ctx, upsertUserQuery,
		key, state.username.String(), email, state.password.Hash(), roleID, v.Author, v.Timestamp); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return source.ReconcileSet(ctx, conn, deleteUserPrivilegesQuery, insertUserPrivilegesQuery, key, state.privileges.Strings())
}
