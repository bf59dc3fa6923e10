package role

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dmitrijs2005/recordkeeper/internal/core"
	"github.com/dmitrijs2005/recordkeeper/internal/source"
)

const getRoleQuery = `select r.id, r.name, r.level,
		(r.version).author, (r.version)."timestamp",
		(r.first_version).author, (r.first_version)."timestamp",
		coalesce(array_agg(p.privilege) filter (where p.privilege is not null), '{}')
	from core.roles r
	left join core.role_privileges p on p.role_id = r.id
	left join corrupt_record c on c.id = r.id::text
	where c.id is null and (r.id = $1::uuid or r.name = $2::text)
	group by r.id
	limit 1`

const upsertRoleQuery = `insert into core.roles (id, name, level, version, first_version)
	values ($1, $2, $3, row($4::uuid, $5::timestamp)::version, row($4::uuid, $5::timestamp)::version)
	on conflict (id) do update
	set name = excluded.name, level = excluded.level, version = excluded.version`

const deleteRolePrivilegesQuery = `delete from core.role_privileges
	where role_id = $1 and privilege <> all($2::text[])`

const insertRolePrivilegesQuery = `insert into core.role_privileges (role_id, privilege)
	select $1, unnest($2::text[])
	on conflict do nothing`

// row is the raw column shape of a role before validation.
type row struct {
	id           string
	name         string
	level        int16
	version      source.RecordVersion
	firstVersion source.RecordVersion
	privileges   pq.StringArray
}

func (r *row) view() (*DetailedView, error) {
	id, err := ParseID(r.id)
	if err != nil {
		return nil, err
	}
	name, err := ParseName(r.name)
	if err != nil {
		return nil, err
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
		ID:           id,
		Role:         Role{name: name, level: LevelFromCode(r.level), privileges: privileges},
		Version:      version,
		FirstVersion: first,
	}, nil
}

func (op GetRole) Read(ctx context.Context, conn *source.PgConn) (*DetailedView, error) {
	var id uuid.NullUUID
	if op.id != nil {
		id = uuid.NullUUID{UUID: op.id.Key(), Valid: true}
	}
	var name sql.NullString
	if op.name != nil {
		name = sql.NullString{String: op.name.String(), Valid: true}
	}

	var r row
	err := conn.QueryRowContext(ctx, getRoleQuery, id, name).Scan(
		&r.id, &r.name, &r.level,
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
		if qerr := source.AddCorruptRecord(ctx, conn, r.id, ModelName, err); qerr != nil {
			return nil, qerr
		}
		return nil, nil
	}
	return view, nil
}

func (op WriteRole) Write(ctx context.Context, conn *source.PgConn) error {
	rec := op.Record
	state := rec.State()
	v := source.FromVersion(rec.Version())
	key := rec.ID().Key()

	if _, err := conn.ExecContext(ctx, upsertRoleQuery,
		key, state.name.String(), state.level.Code(), v.Author, v.Timestamp); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return source.ReconcileSet(ctx, conn, deleteRolePrivilegesQuery, insertRolePrivilegesQuery, key, state.privileges.Strings())
}
