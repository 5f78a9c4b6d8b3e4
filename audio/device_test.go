// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"slices"
	"testing"
)

// stubPlatform is a test platform that never opens anything.
type stubPlatform struct {
	name string
}

func (p *stubPlatform) Name() string                     { return p.name }
func (p *stubPlatform) SupportsFloat() bool              { return false }
func (p *stubPlatform) MinBufferSize(Config) (int, error) { return 0, nil }
func (p *stubPlatform) Open(Config, int) (Device, error) {
	return nil, errors.New("stub platform cannot open devices")
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	p := &stubPlatform{name: "stub"}

	registry.Register(p)

	got, ok := registry.Get("stub")
	if !ok {
		t.Fatal("Registry.Get() failed to retrieve registered platform")
	}

	if got != p {
		t.Error("Registry.Get() returned different platform instance")
	}
}

func TestRegistry_GetNonExistent(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	if _, ok := registry.Get("nonexistent"); ok {
		t.Error("Registry.Get() returned ok=true for non-existent platform")
	}

	_, err := registry.Lookup("nonexistent")
	if !errors.Is(err, ErrUnknownPlatform) {
		t.Errorf("Registry.Lookup() error = %v, want ErrUnknownPlatform", err)
	}
}

func TestRegistry_Overwrite(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	first := &stubPlatform{name: "same"}
	second := &stubPlatform{name: "same"}

	registry.Register(first)
	registry.Register(second)

	got, err := registry.Lookup("same")
	if err != nil {
		t.Fatalf("Registry.Lookup() error = %v", err)
	}

	if got != second {
		t.Error("Registry.Lookup() did not return the overwritten platform")
	}
}

func TestRegistry_Names(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Register(&stubPlatform{name: "zeta"})
	registry.Register(&stubPlatform{name: "alpha"})
	registry.Register(&stubPlatform{name: "mid"})

	want := []string{"alpha", "mid", "zeta"}
	if got := registry.Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	p := &stubPlatform{name: "shared"}

	done := make(chan bool)
	for range 10 {
		go func() {
			registry.Register(p)
			done <- true
		}()
	}

	for range 10 {
		go func() {
			_, _ = registry.Get("shared")
			done <- true
		}()
	}

	for range 20 {
		<-done
	}

	got, ok := registry.Get("shared")
	if !ok || got != p {
		t.Error("Registry returned wrong platform after concurrent operations")
	}
}
