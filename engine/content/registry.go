package content

import (
	"fmt"
	"strings"
	"sync"
)

// Reader names without a namespace resolve against this one.
const builtinNamespace = "Ember.Content"

/**
 * @brief A TypeReader materializes one runtime type from a cursor.
 * Reader instances are stateless with respect to values being read:
 * all per-read state lives in the AssetReader, so one cached instance
 * safely serves concurrent loads.
 */
type TypeReader interface {
	/** @brief Tag of the runtime type this reader produces. */
	TargetType() string
	/** @brief Value types are read inline, without the reference-index
	 * indirection used for reference types. */
	IsValueType() bool
	Read(ar *AssetReader, existing interface{}) (interface{}, error)
}

// Resolver resolves a serialized type name to a reader. Passed to
// ReaderInitializer so collection readers can resolve their element
// readers after construction.
type Resolver interface {
	Resolve(typeName string) (TypeReader, error)
}

// ReaderInitializer is the optional post-construction hook. It runs
// exactly once per reader instance, after the reader table of the
// stream that first referenced it has been fully constructed. Cache
// hits never re-initialize.
type ReaderInitializer interface {
	Initialize(resolver Resolver) error
}

// ReaderFactory constructs a reader for a parsed type name. Generic
// readers receive their argument list through the TypeName.
type ReaderFactory func(t TypeName) (TypeReader, error)

/**
 * @brief Process-wide reader resolution cache. The single mutex is held
 * for the whole table-construction phase of a stream load, never during
 * the per-object read phase, which only touches the resolved immutable
 * reader slice.
 */
type TypeReaderRegistry struct {
	mu        sync.Mutex
	factories map[string]ReaderFactory
	cache     map[string]TypeReader
}

var onceRegistry sync.Once
var registrySingleton *TypeReaderRegistry

// Registry returns the process-wide registry, populating the built-in
// factory table on first use.
func Registry() *TypeReaderRegistry {
	onceRegistry.Do(func() {
		registrySingleton = &TypeReaderRegistry{
			factories: make(map[string]ReaderFactory),
			cache:     make(map[string]TypeReader),
		}
		registerBuiltinReaders(registrySingleton)
	})
	return registrySingleton
}

// ResetTypeReaderRegistry drops every cached reader instance while
// keeping factory registrations. Intended for test isolation only.
func ResetTypeReaderRegistry() {
	reg := Registry()
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.cache = make(map[string]TypeReader)
}

// RegisterFactory registers a constructor under a generic-erased type
// name (e.g. "Ember.Content.ListReader"). Later registrations replace
// earlier ones.
func (reg *TypeReaderRegistry) RegisterFactory(name string, f ReaderFactory) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.factories[name] = f
}

// RegisterReader registers a non-generic reader constructor. This is
// the open extension point for user-defined asset types.
func (reg *TypeReaderRegistry) RegisterReader(name string, f func() TypeReader) {
	reg.RegisterFactory(name, func(TypeName) (TypeReader, error) {
		return f(), nil
	})
}

// Resolve resolves a single serialized type name to its cached reader.
func (reg *TypeReaderRegistry) Resolve(typeName string) (TypeReader, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var pending []TypeReader
	rd, err := reg.resolveLocked(typeName, &pending)
	if err != nil {
		return nil, err
	}
	if err := reg.initializePending(pending); err != nil {
		return nil, err
	}
	return rd, nil
}

// ResolveTable resolves every reader named by one stream's reader
// table under a single lock acquisition, then initializes any freshly
// constructed readers.
func (reg *TypeReaderRegistry) ResolveTable(typeNames []string) ([]TypeReader, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var pending []TypeReader
	out := make([]TypeReader, len(typeNames))
	for i, name := range typeNames {
		rd, err := reg.resolveLocked(name, &pending)
		if err != nil {
			return nil, err
		}
		out[i] = rd
	}
	if err := reg.initializePending(pending); err != nil {
		return nil, err
	}
	return out, nil
}

func (reg *TypeReaderRegistry) resolveLocked(raw string, pending *[]TypeReader) (TypeReader, error) {
	parsed, err := ParseTypeName(raw)
	if err != nil {
		// Diagnostics carry the original unnormalized string.
		return nil, fmt.Errorf("cannot resolve type reader for '%s': %w", raw, err)
	}
	t := parsed.normalized()
	if !strings.Contains(t.Name, ".") {
		t.Name = builtinNamespace + "." + t.Name
	}
	normalized := t.String()

	if rd, ok := reg.cache[normalized]; ok {
		return rd, nil
	}
	factory, ok := reg.factories[t.Name]
	if !ok {
		return nil, fmt.Errorf("no type reader registered for '%s' (normalized '%s')", raw, normalized)
	}
	rd, err := factory(t)
	if err != nil {
		return nil, fmt.Errorf("failed to construct type reader for '%s': %w", raw, err)
	}
	// Cache before initialization so self-referential generic types
	// terminate.
	reg.cache[normalized] = rd
	*pending = append(*pending, rd)
	return rd, nil
}

func (reg *TypeReaderRegistry) initializePending(pending []TypeReader) error {
	for _, rd := range pending {
		if init, ok := rd.(ReaderInitializer); ok {
			if err := init.Initialize(lockedResolver{reg}); err != nil {
				return err
			}
		}
	}
	return nil
}

// lockedResolver performs nested resolution while the registry mutex is
// already held by the table-construction phase.
type lockedResolver struct {
	reg *TypeReaderRegistry
}

func (r lockedResolver) Resolve(typeName string) (TypeReader, error) {
	var pending []TypeReader
	rd, err := r.reg.resolveLocked(typeName, &pending)
	if err != nil {
		return nil, err
	}
	if err := r.reg.initializePending(pending); err != nil {
		return nil, err
	}
	return rd, nil
}
