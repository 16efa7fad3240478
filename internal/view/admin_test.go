package view

import (
	"context"
	"errors"
	"testing"

	"github.com/me/journal/internal/session"
	"github.com/me/journal/pkg/model"
)

func TestAdmin_PromoteRefetches(t *testing.T) {
	e := setupEnv(t)
	e.stub.Seed("root", "pw", "", true)
	uid, _ := e.stub.Seed("u123", "pw", "", false)
	e.signIn(t, "root")
	ctx := context.Background()

	a := NewAdmin(e.sess, e.authed())
	if err := a.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if u := findUser(a.Users(), uid); u == nil || u.IsAdmin() {
		t.Fatalf("u123 before promote = %+v", u)
	}

	if err := a.Promote(ctx, uid, No); !errors.Is(err, ErrCancelled) {
		t.Errorf("declined promote err = %v", err)
	}

	before := e.stub.Requests()
	if err := a.Promote(ctx, uid, Yes); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if got := e.stub.Requests() - before; got != 2 {
		t.Errorf("requests = %d, want promote plus refetch", got)
	}
	u := findUser(a.Users(), uid)
	if u == nil || !u.IsAdmin() {
		t.Errorf("u123 after promote = %+v", u)
	}
}

func TestAdmin_DeleteUser(t *testing.T) {
	e := setupEnv(t)
	e.stub.Seed("root", "pw", "", true)
	uid, _ := e.stub.Seed("u123", "pw", "", false)
	e.signIn(t, "root")
	ctx := context.Background()

	a := NewAdmin(e.sess, e.authed())
	a.Load(ctx)

	var asked string
	a.DeleteUser(ctx, uid, ConfirmFunc(func(p string) bool { asked = p; return false }))
	if asked != ConfirmDeleteUser {
		t.Errorf("prompt = %q", asked)
	}
	if len(a.Users()) != 2 {
		t.Fatal("declined delete changed the list")
	}

	if err := a.DeleteUser(ctx, uid, Yes); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if findUser(a.Users(), uid) != nil {
		t.Error("deleted user still listed")
	}
	if err := a.DeleteUser(ctx, uid, Yes); !errors.Is(err, ErrDeleteUserFailed) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestAdmin_NonAdminGetsBanner(t *testing.T) {
	e := setupEnv(t)
	e.stub.Seed("alice", "pw", "", false)
	e.signIn(t, "alice")

	a := NewAdmin(e.sess, e.authed())
	if err := a.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if a.Banner() != MsgFetchUsers {
		t.Errorf("Banner = %q", a.Banner())
	}
}

func TestAdmin_Filter(t *testing.T) {
	fake := &fakeAdmin{users: []model.User{
		{ID: "1", Username: "Alice"},
		{ID: "2", Username: "malice"},
		{ID: "3", Username: "bob"},
	}}
	a := NewAdmin(session.New(session.NewMemoryStorage()), fake)
	a.Load(context.Background())

	if got := a.Filter(""); len(got) != 3 {
		t.Errorf("empty query returned %d", len(got))
	}
	if got := a.Filter("ALI"); len(got) != 2 {
		t.Errorf("Filter(ALI) = %+v", got)
	}
}

func TestAdmin_PromoteFailureKeepsList(t *testing.T) {
	fake := &fakeAdmin{users: []model.User{{ID: "1", Username: "a"}}}
	a := NewAdmin(session.New(session.NewMemoryStorage()), fake)
	ctx := context.Background()
	a.Load(ctx)

	fake.mutateErr = errors.New("403")
	if err := a.Promote(ctx, "1", Yes); !errors.Is(err, ErrPromoteFailed) {
		t.Errorf("err = %v", err)
	}
	if fake.lists != 1 {
		t.Errorf("failed promote refetched (%d lists)", fake.lists)
	}
}

func findUser(users []model.User, id string) *model.User {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}

type fakeAdmin struct {
	users     []model.User
	mutateErr error
	lists     int
}

func (f *fakeAdmin) ListUsers(context.Context) ([]model.User, error) {
	f.lists++
	return append([]model.User(nil), f.users...), nil
}

func (f *fakeAdmin) PromoteUser(context.Context, string) error { return f.mutateErr }

func (f *fakeAdmin) DeleteUser(context.Context, string) error { return f.mutateErr }
