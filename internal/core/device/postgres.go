package device

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/dmitrijs2005/recordkeeper/internal/core/user"
	"github.com/dmitrijs2005/recordkeeper/internal/source"
)

const purgeExpiredSessionsQuery = `delete from core.sessions
	where expiration <= (now() at time zone 'utc')`

const listDevicesQuery = `select d.token, d.name, d.status,
		(d.version).author, (d.version)."timestamp",
		(d.first_version).author, (d.first_version)."timestamp",
		s.token, s.user_id, s.expiration
	from core.devices d
	left join core.sessions s on s.device_token = d.token
	left join corrupt_record c on c.id = d.token
	where c.id is null and ($1::smallint is null or d.status = $1::smallint)
	order by d.token`

const deleteDevicesQuery = `delete from core.devices where token = any($1::text[])`

const upsertDeviceQuery = `insert into core.devices (token, name, status, version, first_version)
	values ($1, $2, $3, row($4::uuid, $5::timestamp)::version, row($4::uuid, $5::timestamp)::version)
	on conflict (token) do update
	set name = excluded.name, status = excluded.status, version = excluded.version`

const deleteSessionQuery = `delete from core.sessions where device_token = $1`

const insertSessionQuery = `insert into core.sessions (token, device_token, user_id, expiration)
	values ($1, $2, $3, $4)`

type row struct {
	token        string
	name         string
	status       int16
	version      source.RecordVersion
	firstVersion source.RecordVersion

	sessionToken      sql.NullString
	sessionUser       sql.NullString
	sessionExpiration sql.NullTime
}

func (r *row) view() (*View, error) {
	id, err := ParseID(r.token)
	if err != nil {
		return nil, err
	}
	name, err := ParseName(r.name)
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
	return &View{
		ID:           id,
		Device:       Device{name: name, status: StatusFromCode(r.status), session: r.session()},
		Version:      version,
		FirstVersion: first,
	}, nil
}

// session maps the joined session columns. A session that fails validation
// is treated as absent; the device itself stays valid.
func (r *row) session() *Session {
	if !r.sessionToken.Valid || !r.sessionUser.Valid || !r.sessionExpiration.Valid {
		return nil
	}
	token, err := ParseSessionToken(r.sessionToken.String)
	if err != nil {
		return nil
	}
	userID, err := user.ParseID(r.sessionUser.String)
	if err != nil {
		return nil
	}
	s := NewSession(token, userID, ExpirationAt(r.sessionExpiration.Time))
	return &s
}

func (op ListDevices) Read(ctx context.Context, conn *source.PgConn) ([]*View, error) {
	if _, err := conn.ExecContext(ctx, purgeExpiredSessionsQuery); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	var status sql.NullInt16
	if op.Status != nil {
		status = sql.NullInt16{Int16: op.Status.Code(), Valid: true}
	}

	rows, err := conn.QueryContext(ctx, listDevicesQuery, status)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	views := make([]*View, 0)
	var corrupt []string
	for rows.Next() {
		var r row
		if err := rows.Scan(
			&r.token, &r.name, &r.status,
			&r.version.Author, &r.version.Timestamp,
			&r.firstVersion.Author, &r.firstVersion.Timestamp,
			&r.sessionToken, &r.sessionUser, &r.sessionExpiration,
		); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		v, err := r.view()
		if err != nil {
			corrupt = append(corrupt, r.token)
			continue
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	// Release the connection's result set before issuing the purge.
	rows.Close()

	if len(corrupt) > 0 {
		if _, err := conn.ExecContext(ctx, deleteDevicesQuery, pq.Array(corrupt)); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		source.NotePurged(ctx, conn, ModelName, corrupt)
	}

	return views, nil
}

func (op WriteDevice) Write(ctx context.Context, conn *source.PgConn) error {
	rec := op.Record
	state := rec.State()
	v := source.FromVersion(rec.Version())
	token := rec.ID().String()

	if _, err := conn.ExecContext(ctx, upsertDeviceQuery,
		token, state.name.String(), state.status.Code(), v.Author, v.Timestamp); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	if _, err := conn.ExecContext(ctx, deleteSessionQuery, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if state.session == nil {
		return nil
	}

	s := state.session
	if _, err := conn.ExecContext(ctx, insertSessionQuery,
		s.token.String(), token, s.userID.Key(), s.expiration.Time()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
