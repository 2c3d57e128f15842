// Package hashing provides the named digest algorithms used to fingerprint
// tracked files. Algorithms are looked up by identifier in a Registry; every
// Provider is a stateless function from bytes to a hex-encoded digest.
package hashing

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnsupportedAlgorithm is matched by every UnsupportedAlgorithmError.
var ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

// UnsupportedAlgorithmError reports an identifier that is not registered.
type UnsupportedAlgorithmError struct {
	ID    string
	Known []string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported hash algorithm %q (known: %s)", e.ID, strings.Join(e.Known, ", "))
}

func (e *UnsupportedAlgorithmError) Is(target error) bool {
	return target == ErrUnsupportedAlgorithm
}

// Provider computes a digest over a byte slice. Implementations must be
// pure: the same input always yields the same string.
type Provider interface {
	Name() string
	Digest(content []byte) string
}

// SumFunc returns the raw digest bytes for content.
type SumFunc func(content []byte) []byte

type funcProvider struct {
	name string
	sum  SumFunc
}

// NewProvider wraps a raw digest function as a Provider whose Digest is the
// lowercase hex encoding of sum's output.
//
//nolint:ireturn // constructor returns interface by design
func NewProvider(name string, sum SumFunc) Provider {
	return &funcProvider{name: Normalize(name), sum: sum}
}

func (p *funcProvider) Name() string { return p.name }

func (p *funcProvider) Digest(content []byte) string {
	return hex.EncodeToString(p.sum(content))
}

// Normalize folds an algorithm identifier to its registry key: lowercase,
// with '-' treated as '_' so "SHA3-256" and "sha3_256" name the same entry.
func Normalize(id string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(id)), "-", "_")
}

// Registry maps algorithm identifiers to providers.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Default returns a registry populated with every built-in algorithm.
func Default() *Registry {
	r := NewRegistry()
	for _, p := range builtins() {
		if err := r.Register(p); err != nil {
			panic(fmt.Sprintf("register builtin: %v", err))
		}
	}
	return r
}

// Register adds p under its name. Registering a name twice is an error.
func (r *Registry) Register(p Provider) error {
	key := Normalize(p.Name())
	if key == "" {
		return errors.New("register provider: empty name")
	}
	if _, ok := r.providers[key]; ok {
		return fmt.Errorf("register provider %s: already registered", key)
	}
	r.providers[key] = p
	return nil
}

// Resolve returns the provider registered under id.
//
//nolint:ireturn // registry hands out the registered interface value
func (r *Registry) Resolve(id string) (Provider, error) {
	if p, ok := r.providers[Normalize(id)]; ok {
		return p, nil
	}
	return nil, &UnsupportedAlgorithmError{ID: id, Known: r.Names()}
}

// Names returns the registered identifiers in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
