package content

import (
	"strings"
	"sync"
	"testing"
)

func TestRegistryResolveIdempotent(t *testing.T) {
	ResetTypeReaderRegistry()

	a, err := Registry().Resolve("Ember.Content.Int32Reader")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Registry().Resolve("Ember.Content.Int32Reader, Ember.Pipeline, Version=4.0.0.0")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("same normalized type resolved to different reader instances")
	}
}

func TestRegistryBareNameQualification(t *testing.T) {
	ResetTypeReaderRegistry()

	a, err := Registry().Resolve("Int32Reader")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Registry().Resolve("Ember.Content.Int32Reader")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("bare name did not resolve into the builtin namespace")
	}
}

func TestRegistryUnknownType(t *testing.T) {
	_, err := Registry().Resolve("Ember.Content.NoSuchReader")
	if err == nil {
		t.Fatal("expected error for unknown type")
	}
	if !strings.Contains(err.Error(), "NoSuchReader") {
		t.Errorf("error does not name the offending type: %v", err)
	}
}

func TestRegistryGenericResolution(t *testing.T) {
	ResetTypeReaderRegistry()

	rd, err := Registry().Resolve("Ember.Content.ListReader`1[[Ember.Content.StringReader, A, Version=1.0]]")
	if err != nil {
		t.Fatal(err)
	}
	lr, ok := rd.(*arrayReader)
	if !ok {
		t.Fatalf("resolved %T, want *arrayReader", rd)
	}
	if lr.elem == nil {
		t.Fatal("element reader was not initialized")
	}
	if lr.elem.TargetType() != "String" {
		t.Errorf("element reader target = %q, want String", lr.elem.TargetType())
	}

	// Differently-qualified spelling of the same generic hits the cache.
	again, err := Registry().Resolve("Ember.Content.ListReader`1[[Ember.Content.StringReader]]")
	if err != nil {
		t.Fatal(err)
	}
	if again != rd {
		t.Error("equivalent generic names resolved to different instances")
	}
}

// A self-referential generic type must terminate because the reader is
// cached before its initialize hook resolves the argument.
func TestRegistryCyclicGeneric(t *testing.T) {
	ResetTypeReaderRegistry()

	name := "Ember.Content.ListReader`1[[Ember.Content.ListReader`1[[Ember.Content.Int32Reader]]]]"
	rd, err := Registry().Resolve(name)
	if err != nil {
		t.Fatal(err)
	}
	outer := rd.(*arrayReader)
	inner, ok := outer.elem.(*arrayReader)
	if !ok {
		t.Fatalf("inner reader is %T, want *arrayReader", outer.elem)
	}
	if inner.elem.TargetType() != "Int32" {
		t.Errorf("inner element target = %q", inner.elem.TargetType())
	}
}

func TestRegistryConcurrentResolve(t *testing.T) {
	ResetTypeReaderRegistry()

	const workers = 16
	results := make([]TypeReader, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			rd, err := Registry().Resolve("Ember.Content.Vector3Reader")
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = rd
		}(i)
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent resolutions returned different instances")
		}
	}
}

func TestRegistryResolveTable(t *testing.T) {
	ResetTypeReaderRegistry()

	readers, err := Registry().ResolveTable([]string{
		"Ember.Content.Int32Reader",
		"Ember.Content.StringReader",
		"Ember.Content.Int32Reader",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(readers) != 3 {
		t.Fatalf("got %d readers, want 3", len(readers))
	}
	if readers[0] != readers[2] {
		t.Error("duplicate table entries resolved to different instances")
	}
	if readers[1].TargetType() != "String" {
		t.Errorf("readers[1] target = %q", readers[1].TargetType())
	}
}
