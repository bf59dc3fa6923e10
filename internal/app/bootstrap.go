package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/recordkeeper/internal/core/role"
	"github.com/dmitrijs2005/recordkeeper/internal/core/user"
	"github.com/dmitrijs2005/recordkeeper/internal/source"
)

// BootstrapAuthor authors every record seeded by Bootstrap.
var BootstrapAuthor = uuid.Nil

// Account names the developer role and user seeded on first start.
type Account struct {
	Role     string
	Username string
	Password string
}

// Bootstrap makes sure the developer role and the developer user bound to it
// exist. Each step runs in its own transaction; existing rows are left
// untouched.
func Bootstrap(ctx context.Context, src *source.PgSource, acc Account) error {
	name, err := role.ParseName(acc.Role)
	if err != nil {
		return err
	}
	username, err := user.ParseUsername(acc.Username)
	if err != nil {
		return err
	}

	var roleID role.ID
	err = src.Execute(ctx, func(ctx context.Context, conn *source.PgConn) error {
		view, err := role.GetRoleByName(name).Read(ctx, conn)
		if err != nil {
			return err
		}
		if view != nil {
			roleID = view.ID
			return nil
		}

		rec, err := role.New(name.String(), role.Developer, nil, BootstrapAuthor)
		if err != nil {
			return err
		}
		roleID = rec.ID()
		conn.Logger().Info(ctx, "creating bootstrap role", "role", name.String(), "id", roleID.String())
		return role.WriteRole{Record: rec}.Write(ctx, conn)
	})
	if err != nil {
		return fmt.Errorf("bootstrap role: %w", err)
	}

	err = src.Execute(ctx, func(ctx context.Context, conn *source.PgConn) error {
		view, err := user.GetUserByUsername(username).Read(ctx, conn)
		if err != nil {
			return err
		}
		if view != nil {
			return nil
		}

		rec, err := user.New(username.String(), acc.Password, nil, &roleID, nil, BootstrapAuthor)
		if err != nil {
			return err
		}
		conn.Logger().Info(ctx, "creating bootstrap user", "username", username.String(), "id", rec.ID().String())
		return user.WriteUser{Record: rec}.Write(ctx, conn)
	})
	if err != nil {
		return fmt.Errorf("bootstrap user: %w", err)
	}

	return nil
}
