package pgdir

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goIdentity/profile"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = r.values[i].(string)
		case **string:
			if v, ok := r.values[i].(string); ok {
				*ptr = &v
			} else {
				*ptr = nil
			}
		case *bool:
			*ptr = r.values[i].(bool)
		default:
			return errors.New("unexpected scan target")
		}
	}
	return nil
}

type fakeQuerier struct {
	row  fakeRow
	sql  string
	args []any
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql = sql
	q.args = args
	return q.row
}

func TestFindByEmailScansProfile(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{"u1", "Alice", "alice@x.com", "manager", "dep-7", nil, "Lead", true}}}
	d := New(q)

	p, err := d.FindByEmail(context.Background(), " Alice@X.com ")
	require.NoError(t, err)
	require.Equal(t, []any{"alice@x.com"}, q.args)
	require.Equal(t, profile.RoleManager, p.Role)
	require.NotNil(t, p.DepartmentID)
	require.Equal(t, "dep-7", *p.DepartmentID)
	require.Empty(t, p.Phone)
	require.Equal(t, "Lead", p.Position)
	require.True(t, p.Active)
}

func TestFindByEmailUnknownRoleFallsBackToUser(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{"u1", "Alice", "alice@x.com", "superuser", nil, nil, nil, false}}}
	p, err := New(q).FindByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	require.Equal(t, profile.RoleUser, p.Role)
	require.Nil(t, p.DepartmentID)
}

func TestFindByEmailNoRows(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}
	_, err := New(q).FindByEmail(context.Background(), "ghost@x.com")
	require.ErrorIs(t, err, profile.ErrNotFound)
}

func TestFindByEmailWrapsDriverErrors(t *testing.T) {
	boom := errors.New("conn reset")
	q := &fakeQuerier{row: fakeRow{err: boom}}
	_, err := New(q).FindByEmail(context.Background(), "a@x.com")
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, profile.ErrNotFound)
}
