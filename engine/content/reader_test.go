package content

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"
)

// Test-only reader set, registered once under a namespace that cannot
// collide with the builtins.

type trackedResource struct {
	Name      string
	Destroyed bool
}

var destroyMu sync.Mutex
var destroyLog []string

func resetDestroyLog() {
	destroyMu.Lock()
	destroyLog = nil
	destroyMu.Unlock()
}

func destroyedNames() []string {
	destroyMu.Lock()
	defer destroyMu.Unlock()
	return append([]string(nil), destroyLog...)
}

func (r *trackedResource) Destroy() error {
	if r.Destroyed {
		return fmt.Errorf("resource '%s' destroyed twice", r.Name)
	}
	r.Destroyed = true
	destroyMu.Lock()
	destroyLog = append(destroyLog, r.Name)
	destroyMu.Unlock()
	return nil
}

type refPair struct {
	A, B interface{}
}

type typedPair struct {
	A, B *trackedResource
}

var onceTestReaders sync.Once

func registerTestReaders() {
	onceTestReaders.Do(func() {
		reg := Registry()
		reg.RegisterReader("EmberTest.ResourceReader", func() TypeReader {
			return &funcReader{target: "TrackedResource", read: func(ar *AssetReader, _ interface{}) (interface{}, error) {
				name, err := ar.Cursor().ReadString()
				if err != nil {
					return nil, err
				}
				return &trackedResource{Name: name}, nil
			}}
		})
		reg.RegisterReader("EmberTest.PairReader", func() TypeReader {
			return &funcReader{target: "RefPair", read: func(ar *AssetReader, _ interface{}) (interface{}, error) {
				p := &refPair{}
				if err := ar.ReadSharedResource(func(v interface{}) error { p.A = v; return nil }); err != nil {
					return nil, err
				}
				if err := ar.ReadSharedResource(func(v interface{}) error { p.B = v; return nil }); err != nil {
					return nil, err
				}
				return p, nil
			}}
		})
		reg.RegisterReader("EmberTest.TypedPairReader", func() TypeReader {
			return &funcReader{target: "TypedPair", read: func(ar *AssetReader, _ interface{}) (interface{}, error) {
				p := &typedPair{}
				if err := ReadShared(ar, func(r *trackedResource) { p.A = r }); err != nil {
					return nil, err
				}
				if err := ReadShared(ar, func(r *trackedResource) { p.B = r }); err != nil {
					return nil, err
				}
				return p, nil
			}}
		})
		reg.RegisterReader("EmberTest.FailReader", func() TypeReader {
			return &funcReader{target: "Fail", read: func(ar *AssetReader, _ interface{}) (interface{}, error) {
				return nil, fmt.Errorf("materialization failed on purpose")
			}}
		})
	})
}

func buildStream(t *testing.T, method byte, build func(sw *StreamWriter)) []byte {
	t.Helper()
	sw := NewStreamWriter()
	build(sw)
	var buf bytes.Buffer
	if err := sw.Finish(&buf, method); err != nil {
		t.Fatalf("failed to build stream: %v", err)
	}
	return buf.Bytes()
}

func TestReadAssetStringScenario(t *testing.T) {
	registerTestReaders()
	// Reader table ["Int32Reader","StringReader"], no shared resources,
	// primary object [index=2, "hello"].
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		sw.AddReader("Int32Reader", 1)
		idx := sw.AddReader("StringReader", 1)
		sw.Body().Write7BitEncodedInt(idx)
		sw.Body().WriteString("hello")
	})

	v, err := ReadAsset(bytes.NewReader(stream), "strings/hello", nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != "hello" {
		t.Errorf("ReadAsset = %v (%T), want \"hello\"", v, v)
	}
}

func TestReadAssetNullPrimary(t *testing.T) {
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		sw.AddReader("Ember.Content.StringReader", 1)
		sw.Body().Write7BitEncodedInt(0)
	})
	v, err := ReadAsset(bytes.NewReader(stream), "null", nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Errorf("index 0 yielded %v, want nil", v)
	}
}

func TestReadAssetReaderIndexOutOfRange(t *testing.T) {
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		sw.AddReader("Ember.Content.StringReader", 1)
		sw.Body().Write7BitEncodedInt(3)
	})
	if _, err := ReadAsset(bytes.NewReader(stream), "bad", nil); err == nil {
		t.Fatal("expected error for out-of-range reader index")
	}
}

func TestReadAssetUnresolvableReader(t *testing.T) {
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		idx := sw.AddReader("Nope.Content.MysteryReader", 1)
		sw.Body().Write7BitEncodedInt(idx)
	})
	_, err := ReadAsset(bytes.NewReader(stream), "bad", nil)
	if err == nil {
		t.Fatal("expected error for unresolvable reader")
	}
	if !strings.Contains(err.Error(), "MysteryReader") {
		t.Errorf("error does not name the offending type: %v", err)
	}
}

func TestReadAssetBadMagic(t *testing.T) {
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		sw.AddReader("Ember.Content.StringReader", 1)
		sw.Body().Write7BitEncodedInt(0)
	})
	stream[0] = 'X'
	if _, err := ReadAsset(bytes.NewReader(stream), "bad", nil); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestReadAssetUnsupportedVersion(t *testing.T) {
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		sw.AddReader("Ember.Content.StringReader", 1)
		sw.Body().Write7BitEncodedInt(0)
	})
	stream[4] = 99
	_, err := ReadAsset(bytes.NewReader(stream), "bad", nil)
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if !strings.Contains(err.Error(), "99") {
		t.Errorf("error does not name the version: %v", err)
	}
}

func TestReadAssetTruncated(t *testing.T) {
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		idx := sw.AddReader("Ember.Content.StringReader", 1)
		sw.Body().Write7BitEncodedInt(idx)
		sw.Body().WriteString("hello")
	})
	if _, err := ReadAsset(bytes.NewReader(stream[:len(stream)-3]), "bad", nil); err == nil {
		t.Fatal("expected error for truncated stream")
	}
}

func TestReadAssetCompressionRoundTrip(t *testing.T) {
	payload := strings.Repeat("the quick brown fox jumps over the lazy dog ", 64)
	for _, method := range []byte{CompressionNone, CompressionLZ4, CompressionZstd, CompressionZlib} {
		stream := buildStream(t, method, func(sw *StreamWriter) {
			idx := sw.AddReader("Ember.Content.StringReader", 1)
			sw.Body().Write7BitEncodedInt(idx)
			sw.Body().WriteString(payload)
		})
		v, err := ReadAsset(bytes.NewReader(stream), "compressed", nil)
		if err != nil {
			t.Fatalf("method %d: %v", method, err)
		}
		if v != payload {
			t.Errorf("method %d: payload corrupted", method)
		}
	}
}

func TestReadAssetUnknownCompressionMethod(t *testing.T) {
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		sw.AddReader("Ember.Content.StringReader", 1)
		sw.Body().Write7BitEncodedInt(0)
	})
	// The flags byte keeps its reserved bits; only 0-3 exist, so force
	// a compressed method and leave no rawSize field behind it.
	stream[5] = CompressionZstd
	if _, err := ReadAsset(bytes.NewReader(stream), "bad", nil); err == nil {
		t.Fatal("expected error for corrupted compression flags")
	}
}

func TestSharedResourceReferenceEquality(t *testing.T) {
	registerTestReaders()
	// One shared resource referenced from two sites of the primary
	// object; both must resolve to the same instance.
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		pairIdx := sw.AddReader("EmberTest.PairReader", 1)
		resIdx := sw.AddReader("EmberTest.ResourceReader", 1)
		sw.SetSharedResourceCount(1)
		b := sw.Body()
		b.Write7BitEncodedInt(pairIdx)
		b.Write7BitEncodedInt(1) // A -> shared slot 1
		b.Write7BitEncodedInt(1) // B -> shared slot 1
		b.Write7BitEncodedInt(resIdx)
		b.WriteString("shared-res")
	})

	v, err := ReadAsset(bytes.NewReader(stream), "shared", nil)
	if err != nil {
		t.Fatal(err)
	}
	pair := v.(*refPair)
	if pair.A == nil || pair.A != pair.B {
		t.Fatalf("shared resource not reference-equal: A=%p B=%p", pair.A, pair.B)
	}
	if res := pair.A.(*trackedResource); res.Name != "shared-res" {
		t.Errorf("shared resource name = %q", res.Name)
	}
}

func TestSharedResourceCycle(t *testing.T) {
	registerTestReaders()
	// Shared slot 1 references slot 2 and vice versa; both must be
	// fully materialized when fixups run.
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		pairIdx := sw.AddReader("EmberTest.PairReader", 1)
		sw.SetSharedResourceCount(2)
		b := sw.Body()
		// primary: pair(shared1, shared2)
		b.Write7BitEncodedInt(pairIdx)
		b.Write7BitEncodedInt(1)
		b.Write7BitEncodedInt(2)
		// shared 1: pair(shared2, null)
		b.Write7BitEncodedInt(pairIdx)
		b.Write7BitEncodedInt(2)
		b.Write7BitEncodedInt(0)
		// shared 2: pair(shared1, null)
		b.Write7BitEncodedInt(pairIdx)
		b.Write7BitEncodedInt(1)
		b.Write7BitEncodedInt(0)
	})

	v, err := ReadAsset(bytes.NewReader(stream), "cycle", nil)
	if err != nil {
		t.Fatal(err)
	}
	root := v.(*refPair)
	s1 := root.A.(*refPair)
	s2 := root.B.(*refPair)
	if s1.A != s2 {
		t.Error("shared 1 does not point at shared 2")
	}
	if s2.A != s1 {
		t.Error("shared 2 does not point at shared 1")
	}
	if s1.B != nil || s2.B != nil {
		t.Error("null shared references must stay nil")
	}
}

func TestSharedResourceIndexOutOfRange(t *testing.T) {
	registerTestReaders()
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		pairIdx := sw.AddReader("EmberTest.PairReader", 1)
		sw.SetSharedResourceCount(1)
		b := sw.Body()
		b.Write7BitEncodedInt(pairIdx)
		b.Write7BitEncodedInt(5) // only 1 slot declared
		b.Write7BitEncodedInt(0)
		// shared 1: a null pair is enough
		b.Write7BitEncodedInt(0)
	})
	if _, err := ReadAsset(bytes.NewReader(stream), "bad", nil); err == nil {
		t.Fatal("expected error for shared index out of range")
	}
}

func TestSharedResourceTypeMismatch(t *testing.T) {
	registerTestReaders()
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		pairIdx := sw.AddReader("EmberTest.TypedPairReader", 1)
		strIdx := sw.AddReader("Ember.Content.StringReader", 1)
		sw.SetSharedResourceCount(1)
		b := sw.Body()
		b.Write7BitEncodedInt(pairIdx)
		b.Write7BitEncodedInt(1)
		b.Write7BitEncodedInt(0)
		// shared slot holds a string, not a trackedResource
		b.Write7BitEncodedInt(strIdx)
		b.WriteString("wrong type")
	})
	_, err := ReadAsset(bytes.NewReader(stream), "bad", nil)
	if err == nil {
		t.Fatal("expected type mismatch error")
	}
	if !strings.Contains(err.Error(), "mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSharedResourceCountLimit(t *testing.T) {
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		sw.AddReader("Ember.Content.StringReader", 1)
		sw.SetSharedResourceCount(100)
		sw.Body().Write7BitEncodedInt(0)
	})
	_, err := ReadAsset(bytes.NewReader(stream), "bad", &ReadOptions{MaxSharedResources: 10})
	if err == nil {
		t.Fatal("expected error for shared count over limit")
	}
}

// A disposable produced before a later failure must still reach the
// collector: its native resources are already allocated.
func TestDisposableRetainedOnFailure(t *testing.T) {
	registerTestReaders()
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		pairIdx := sw.AddReader("EmberTest.PairReader", 1)
		resIdx := sw.AddReader("EmberTest.ResourceReader", 1)
		failIdx := sw.AddReader("EmberTest.FailReader", 1)
		sw.SetSharedResourceCount(2)
		b := sw.Body()
		b.Write7BitEncodedInt(pairIdx)
		b.Write7BitEncodedInt(1)
		b.Write7BitEncodedInt(2)
		b.Write7BitEncodedInt(resIdx)
		b.WriteString("leaky")
		b.Write7BitEncodedInt(failIdx)
	})

	var collected []Disposable
	_, err := ReadAsset(bytes.NewReader(stream), "fail", &ReadOptions{
		RecordDisposable: func(d Disposable) { collected = append(collected, d) },
	})
	if err == nil {
		t.Fatal("expected load failure")
	}
	if len(collected) != 1 {
		t.Fatalf("collected %d disposables, want 1", len(collected))
	}
	if res := collected[0].(*trackedResource); res.Name != "leaky" {
		t.Errorf("collected resource = %q", res.Name)
	}
}

func TestReadObjectAsTypeMismatch(t *testing.T) {
	registerTestReaders()
	Registry().RegisterReader("EmberTest.Int32HolderReader", func() TypeReader {
		return &funcReader{target: "Int32Holder", read: func(ar *AssetReader, _ interface{}) (interface{}, error) {
			return ReadObjectAs[int32](ar)
		}}
	})
	stream := buildStream(t, CompressionNone, func(sw *StreamWriter) {
		holderIdx := sw.AddReader("EmberTest.Int32HolderReader", 1)
		strIdx := sw.AddReader("Ember.Content.StringReader", 1)
		b := sw.Body()
		b.Write7BitEncodedInt(holderIdx)
		b.Write7BitEncodedInt(strIdx)
		b.WriteString("not an int")
	})
	_, err := ReadAsset(bytes.NewReader(stream), "bad", nil)
	if err == nil {
		t.Fatal("expected type mismatch error")
	}
	if !strings.Contains(err.Error(), "mismatch") {
		t.Errorf("unexpected error: %v", err)
	}
}
