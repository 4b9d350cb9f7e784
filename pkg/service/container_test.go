package service

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-pongoview/pkg/view"
)

func TestServiceManagerBuildsSharedServices(t *testing.T) {
	sm := NewServiceManager()
	builds := 0
	sm.SetService("greeting", "hello")
	sm.SetFactory("Message", func(c Container) (any, error) {
		builds++
		greeting, err := Lookup[string](c, "greeting")
		if err != nil {
			return nil, err
		}
		return greeting + " world", nil
	})

	if sm.Built("message") || !sm.Built("greeting") {
		t.Fatalf("expected only the registered instance to be built")
	}
	for i := 0; i < 2; i++ {
		got, err := Lookup[string](sm, "message")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if got != "hello world" {
			t.Fatalf("unexpected message %q", got)
		}
	}
	if builds != 1 || !sm.Built("message") {
		t.Fatalf("expected a single cached build, got %d", builds)
	}
	if diff := cmp.Diff([]string{"greeting", "message"}, sm.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestServiceManagerErrors(t *testing.T) {
	sm := NewServiceManager()
	if _, err := sm.Get("missing"); !errors.Is(err, view.ErrRuntime) {
		t.Fatalf("expected runtime error, got %v", err)
	}

	sm.SetService("number", 42)
	if _, err := Lookup[string](sm, "number"); !errors.Is(err, view.ErrRuntime) {
		t.Fatalf("expected type mismatch runtime error, got %v", err)
	}

	sm.SetFactory("a", func(c Container) (any, error) { return c.Get("b") })
	sm.SetFactory("b", func(c Container) (any, error) { return c.Get("a") })
	_, err := sm.Get("a")
	if !errors.Is(err, view.ErrRuntime) {
		t.Fatalf("expected cycle to be reported, got %v", err)
	}
	if sm.Has("a") == false {
		t.Fatalf("failed builds must keep the factory")
	}
}

func TestServiceManagerOverrides(t *testing.T) {
	sm := NewServiceManager()
	sm.SetFactory("x", func(Container) (any, error) { return "factory", nil })
	sm.SetService("x", "instance")
	got, _ := sm.Get("x")
	if got != "instance" {
		t.Fatalf("expected instance to replace factory, got %v", got)
	}

	sm.SetFactory("x", func(Container) (any, error) { return "factory", nil })
	got, _ = sm.Get("x")
	if got != "factory" {
		t.Fatalf("expected factory to replace instance, got %v", got)
	}
}
