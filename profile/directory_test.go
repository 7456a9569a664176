package profile

import (
	"context"
	"errors"
	"testing"
)

func TestDirectoryFindByEmailIsCaseInsensitive(t *testing.T) {
	dep := "ops"
	d := NewDirectory(Profile{ID: "u1", Email: "Alice@Example.com", Role: RoleAdmin, DepartmentID: &dep, Active: true})

	p, err := d.FindByEmail(context.Background(), "  alice@example.COM ")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if p.ID != "u1" || p.Role != RoleAdmin {
		t.Fatalf("unexpected profile %+v", p)
	}

	*p.DepartmentID = "mutated"
	again, _ := d.FindByEmail(context.Background(), "alice@example.com")
	if *again.DepartmentID != "ops" {
		t.Fatal("expected directory to hand out copies")
	}
}

func TestDirectoryMissingProfile(t *testing.T) {
	d := NewDirectory()
	if _, err := d.FindByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	d.Put(Profile{ID: "u2", Email: "bob@example.com", Role: RoleUser})
	d.Delete("BOB@example.com")
	if _, err := d.FindByEmail(context.Background(), "bob@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleManager, RoleUser} {
		if !r.Valid() {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	if Role("root").Valid() {
		t.Fatal("unexpected valid role")
	}
}
