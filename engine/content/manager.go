package content

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/emberworks/ember/engine/config"
	"github.com/emberworks/ember/engine/containers"
	"github.com/emberworks/ember/engine/core"
	"github.com/emberworks/ember/engine/graphics"
)

// File extension of compiled asset streams.
const AssetExtension = ".emb"

const pendingReloadCapacity = 256

/**
 * @brief Owns asset loading for one content root: cache keyed by
 * normalized asset name, disposable tracking for deterministic
 * teardown, and the optional file watcher feeding reload events.
 */
type ContentManager struct {
	config *config.ContentConfig
	device graphics.Device

	mutex       sync.RWMutex
	cache       map[string]interface{}
	loading     map[string]bool
	disposables []Disposable

	fsnotify *fsnotify.Watcher
	pending  *containers.RingQueue[string]
	done     chan struct{}
	watching bool
}

func NewContentManager(cfg *config.ContentConfig, device graphics.Device) (*ContentManager, error) {
	if cfg == nil {
		cfg = config.DefaultContentConfig()
	}
	cm := &ContentManager{
		config:  cfg,
		device:  device,
		cache:   make(map[string]interface{}),
		loading: make(map[string]bool),
		pending: containers.NewRingQueue[string](pendingReloadCapacity),
		done:    make(chan struct{}),
	}
	if cfg.WatchForChanges {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		cm.fsnotify = watcher
	}
	return cm, nil
}

// Initialize starts the file watcher when watching is configured. Safe
// to call on a non-watching manager.
func (cm *ContentManager) Initialize() error {
	if cm.fsnotify == nil {
		return nil
	}
	if err := cm.watchRecursive(cm.config.RootPath); err != nil {
		return fmt.Errorf("failed to watch content root '%s': %w", cm.config.RootPath, err)
	}
	cm.watching = true
	go cm.start()
	core.LogInfo("content manager watching '%s'", cm.config.RootPath)
	return nil
}

// normalizeAssetName canonicalizes an asset name into the cache key:
// forward slashes, cleaned, extension stripped.
func normalizeAssetName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSuffix(name, AssetExtension)
	return path.Clean(name)
}

// assetFilePath maps a normalized asset name to its on-disk path.
func (cm *ContentManager) assetFilePath(name string) string {
	return filepath.Join(cm.config.RootPath, filepath.FromSlash(name)+AssetExtension)
}

// LoadAsset loads a compiled asset by name, returning the cached
// instance when the asset was loaded before. External references
// re-enter here on the same goroutine; a cycle of external references
// is a load error, not a hang.
func (cm *ContentManager) LoadAsset(name string) (interface{}, error) {
	key := normalizeAssetName(name)

	cm.mutex.Lock()
	if v, ok := cm.cache[key]; ok {
		cm.mutex.Unlock()
		return v, nil
	}
	if cm.loading[key] {
		cm.mutex.Unlock()
		return nil, fmt.Errorf("cyclic external reference involving asset '%s'", key)
	}
	cm.loading[key] = true
	cm.mutex.Unlock()
	defer func() {
		cm.mutex.Lock()
		delete(cm.loading, key)
		cm.mutex.Unlock()
	}()

	v, err := cm.loadFromDisk(key)
	if err != nil {
		return nil, err
	}

	cm.mutex.Lock()
	if cached, ok := cm.cache[key]; ok {
		// Another goroutine finished the same load first; keep the
		// established instance so reference equality holds.
		cm.mutex.Unlock()
		return cached, nil
	}
	cm.cache[key] = v
	cm.mutex.Unlock()
	return v, nil
}

func (cm *ContentManager) loadFromDisk(key string) (interface{}, error) {
	session := uuid.New().String()
	filePath := cm.assetFilePath(key)

	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("asset '%s': %w", key, core.ErrAssetNotFound)
		}
		return nil, fmt.Errorf("asset '%s': %w", key, err)
	}
	defer f.Close()

	clock := core.NewClock()
	clock.Start()
	core.LogDebug("loading asset '%s' from '%s' (session=%s)", key, filePath, session)

	v, err := ReadAsset(f, key, &ReadOptions{
		Manager:            cm,
		Device:             cm.device,
		MaxSharedResources: cm.config.MaxSharedResources,
	})
	clock.Update()
	if err != nil {
		core.LogError("asset '%s' failed after %.2fms (session=%s): %v", key, clock.ElapsedMS(), session, err)
		return nil, err
	}
	core.MetricsRecordLoad(clock.ElapsedMS())
	core.LogInfo("loaded asset '%s' in %.2fms (session=%s)", key, clock.ElapsedMS(), session)
	return v, nil
}

// Load loads an asset and asserts its runtime type.
func Load[T any](cm *ContentManager, name string) (T, error) {
	var zero T
	v, err := cm.LoadAsset(name)
	if err != nil {
		return zero, err
	}
	tv, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("asset '%s' type mismatch: expected %T, actual %T", name, zero, v)
	}
	return tv, nil
}

// IsLoaded reports whether the named asset is in the cache.
func (cm *ContentManager) IsLoaded(name string) bool {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	_, ok := cm.cache[normalizeAssetName(name)]
	return ok
}

func (cm *ContentManager) recordDisposable(d Disposable) {
	cm.mutex.Lock()
	cm.disposables = append(cm.disposables, d)
	cm.mutex.Unlock()
}

// Unload evicts one asset from the cache. Its disposables are released
// only by UnloadAll, since shared resources may alias across assets.
func (cm *ContentManager) Unload(name string) {
	cm.mutex.Lock()
	delete(cm.cache, normalizeAssetName(name))
	cm.mutex.Unlock()
}

// UnloadAll empties the cache and destroys every recorded disposable in
// reverse creation order. Destruction failures are logged and the
// first one is returned; teardown always runs to completion.
func (cm *ContentManager) UnloadAll() error {
	cm.mutex.Lock()
	disposables := cm.disposables
	cm.disposables = nil
	cm.cache = make(map[string]interface{})
	cm.mutex.Unlock()

	var firstErr error
	for i := len(disposables) - 1; i >= 0; i-- {
		if err := disposables[i].Destroy(); err != nil {
			core.LogError("failed to destroy asset resource: %v", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Shutdown stops the watcher and unloads everything.
func (cm *ContentManager) Shutdown() error {
	if cm.watching {
		close(cm.done)
		cm.watching = false
	} else if cm.fsnotify != nil {
		cm.fsnotify.Close()
	}
	return cm.UnloadAll()
}

func (cm *ContentManager) start() {
	for {
		select {
		case e, ok := <-cm.fsnotify.Events:
			if !ok {
				return
			}
			if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					cm.watchRecursive(e.Name)
				}
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				cm.handleFileEvent(e.Name)
			}

		case err, ok := <-cm.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("file watcher: %v", err)

		case <-cm.done:
			cm.fsnotify.Close()
			return
		}
	}
}

// watchRecursive adds the directory and every subdirectory to the
// watch list.
func (cm *ContentManager) watchRecursive(root string) error {
	return filepath.Walk(root, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			return cm.fsnotify.Add(walkPath)
		}
		return nil
	})
}

func (cm *ContentManager) handleFileEvent(filePath string) {
	if filepath.Ext(filePath) != AssetExtension {
		return
	}
	rel, err := filepath.Rel(cm.config.RootPath, filePath)
	if err != nil {
		return
	}
	name := normalizeAssetName(filepath.ToSlash(rel))

	cm.mutex.Lock()
	if err := cm.pending.Enqueue(name); err != nil {
		core.LogWarn("reload queue full, dropping change for asset '%s'", name)
	}
	cm.mutex.Unlock()

	ctx := core.EventContext{}
	ctx.Data.C[0] = name
	core.EventFire(core.EVENT_CODE_ASSET_FILE_CHANGED, cm, ctx)
}

// ProcessPendingReloads drains the change queue and re-loads every
// cached asset whose file changed, firing reloaded/failed events.
// Call from the owner's update loop; file events only enqueue.
func (cm *ContentManager) ProcessPendingReloads() {
	for {
		cm.mutex.Lock()
		name, err := cm.pending.Dequeue()
		if err != nil {
			cm.mutex.Unlock()
			return
		}
		_, cached := cm.cache[name]
		delete(cm.cache, name)
		cm.mutex.Unlock()

		if !cached {
			continue
		}
		ctx := core.EventContext{}
		ctx.Data.C[0] = name
		if _, err := cm.LoadAsset(name); err != nil {
			core.LogError("reload of asset '%s' failed: %v", name, err)
			ctx.Data.C[1] = err.Error()
			core.EventFire(core.EVENT_CODE_ASSET_LOAD_FAILED, cm, ctx)
			continue
		}
		core.LogInfo("reloaded asset '%s'", name)
		core.EventFire(core.EVENT_CODE_ASSET_RELOADED, cm, ctx)
	}
}
