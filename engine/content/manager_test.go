package content

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/emberworks/ember/engine/config"
	"github.com/emberworks/ember/engine/core"
)

func newTestManager(t *testing.T) (*ContentManager, string) {
	t.Helper()
	registerTestReaders()
	root := t.TempDir()
	cfg := config.DefaultContentConfig()
	cfg.RootPath = root
	cm, err := NewContentManager(cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	return cm, root
}

func writeTestAsset(t *testing.T, root, name string, build func(sw *StreamWriter)) {
	t.Helper()
	sw := NewStreamWriter()
	build(sw)
	path := filepath.Join(root, filepath.FromSlash(name)+AssetExtension)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := sw.Finish(f, CompressionNone); err != nil {
		t.Fatal(err)
	}
}

func stringAsset(value string) func(sw *StreamWriter) {
	return func(sw *StreamWriter) {
		idx := sw.AddReader("Ember.Content.StringReader", 1)
		sw.Body().Write7BitEncodedInt(idx)
		sw.Body().WriteString(value)
	}
}

func TestManagerLoadAndCache(t *testing.T) {
	cm, root := newTestManager(t)
	writeTestAsset(t, root, "greeting", stringAsset("hi"))

	v, err := Load[string](cm, "greeting")
	if err != nil {
		t.Fatal(err)
	}
	if v != "hi" {
		t.Errorf("loaded %q", v)
	}
	if !cm.IsLoaded("greeting") {
		t.Error("asset not in cache after load")
	}

	// Remove the backing file: the second load must come from cache.
	os.Remove(filepath.Join(root, "greeting"+AssetExtension))
	again, err := Load[string](cm, "greeting")
	if err != nil {
		t.Fatal(err)
	}
	if again != "hi" {
		t.Error("cache did not serve the second load")
	}
}

func TestManagerAssetNotFound(t *testing.T) {
	cm, _ := newTestManager(t)
	_, err := cm.LoadAsset("missing")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, core.ErrAssetNotFound) {
		t.Errorf("error = %v, want ErrAssetNotFound", err)
	}
}

func TestManagerLoadTypeMismatch(t *testing.T) {
	cm, root := newTestManager(t)
	writeTestAsset(t, root, "greeting", stringAsset("hi"))
	if _, err := Load[int32](cm, "greeting"); err == nil {
		t.Fatal("expected type mismatch error")
	}
}

func TestManagerUnloadAllReverseOrder(t *testing.T) {
	cm, root := newTestManager(t)
	writeTestAsset(t, root, "resources", func(sw *StreamWriter) {
		listIdx := sw.AddReader("Ember.Content.ListReader`1[[EmberTest.ResourceReader]]", 1)
		resIdx := sw.AddReader("EmberTest.ResourceReader", 1)
		b := sw.Body()
		b.Write7BitEncodedInt(listIdx)
		b.WriteUint32(3)
		for _, name := range []string{"a", "b", "c"} {
			b.Write7BitEncodedInt(resIdx)
			b.WriteString(name)
		}
	})

	resetDestroyLog()
	if _, err := cm.LoadAsset("resources"); err != nil {
		t.Fatal(err)
	}
	if err := cm.UnloadAll(); err != nil {
		t.Fatal(err)
	}
	if got := destroyedNames(); !reflect.DeepEqual(got, []string{"c", "b", "a"}) {
		t.Errorf("destroy order = %v, want [c b a]", got)
	}
	if cm.IsLoaded("resources") {
		t.Error("cache not emptied by UnloadAll")
	}
}

func TestManagerExternalReference(t *testing.T) {
	cm, root := newTestManager(t)
	writeTestAsset(t, root, "level/child", stringAsset("payload"))
	writeTestAsset(t, root, "level/parent", func(sw *StreamWriter) {
		idx := sw.AddReader("Ember.Content.ExternalReferenceReader`1[[Ember.Content.StringReader]]", 1)
		sw.Body().Write7BitEncodedInt(idx)
		sw.Body().WriteString("child")
	})

	v, err := Load[string](cm, "level/parent")
	if err != nil {
		t.Fatal(err)
	}
	if v != "payload" {
		t.Errorf("external reference resolved to %q", v)
	}
	if !cm.IsLoaded("level/child") {
		t.Error("referenced asset not cached under its own name")
	}
}

func TestManagerCyclicExternalReference(t *testing.T) {
	cm, root := newTestManager(t)
	refAsset := func(target string) func(sw *StreamWriter) {
		return func(sw *StreamWriter) {
			idx := sw.AddReader("Ember.Content.ExternalReferenceReader", 1)
			sw.Body().Write7BitEncodedInt(idx)
			sw.Body().WriteString(target)
		}
	}
	writeTestAsset(t, root, "ping", refAsset("pong"))
	writeTestAsset(t, root, "pong", refAsset("ping"))

	_, err := cm.LoadAsset("ping")
	if err == nil {
		t.Fatal("expected cyclic external reference error")
	}
}

func TestNormalizeAssetName(t *testing.T) {
	t.Parallel()
	cases := map[string]string{
		"greeting":            "greeting",
		"greeting.emb":        "greeting",
		"level\\child":        "level/child",
		"level/../greeting":   "greeting",
		"./textures/checker":  "textures/checker",
	}
	for in, want := range cases {
		if got := normalizeAssetName(in); got != want {
			t.Errorf("normalizeAssetName(%q) = %q, want %q", in, got, want)
		}
	}
}
