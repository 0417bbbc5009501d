package am

import (
	"crypto/sha256"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/logger"
	"github.com/teranos/attrgen/sym"
)

// DefaultDebounce collapses bursts of editor writes into one reload.
const DefaultDebounce = 500 * time.Millisecond

// ReloadCallback receives every config that loaded and validated after a
// change on disk.
type ReloadCallback func(*Config) error

// ConfigWatcher reloads one config file when it changes on disk and hands
// the new Config to registered callbacks. Counter values raised by hand in
// the file or its counters file reach a running process this way.
//
// The parent directory is watched rather than the file, so editors that save
// by rename keep being followed.
type ConfigWatcher struct {
	path     string
	counters string
	fs       *fsnotify.Watcher
	logger   *zap.SugaredLogger

	mu        sync.Mutex
	callbacks []ReloadCallback
	debounce  time.Duration
	timer     *time.Timer
	stopped   bool

	// ownDigest is the hash of the content we last wrote ourselves. A change
	// event whose file content still hashes to it is not a reload.
	ownDigest [sha256.Size]byte
	ownSet    bool
}

var (
	globalWatcher   *ConfigWatcher
	globalWatcherMu sync.Mutex
)

// NewConfigWatcher prepares a watcher for path. Nothing is delivered until
// Start is called.
func NewConfigWatcher(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", path)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, errors.Wrapf(err, "config file %s", abs)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	return &ConfigWatcher{
		path:     abs,
		counters: CountersPath(abs),
		fs:       fsw,
		logger:   logger.WithSymbol(logger.ComponentLogger("am.watcher"), sym.AM),
		debounce: DefaultDebounce,
	}, nil
}

// OnReload registers a callback.
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// SetDebounce overrides the debounce period.
func (cw *ConfigWatcher) SetDebounce(d time.Duration) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.debounce = d
}

// MarkOwnWrite records content about to be written to the file by this
// process so the resulting events do not trigger a reload.
func (cw *ConfigWatcher) MarkOwnWrite(content []byte) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.ownDigest = sha256.Sum256(content)
	cw.ownSet = true
}

// isOwnWrite reports whether the file at name is exactly what we last wrote.
func (cw *ConfigWatcher) isOwnWrite(name string) bool {
	data, err := os.ReadFile(name)
	if err != nil {
		return false
	}
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.ownSet && sha256.Sum256(data) == cw.ownDigest
}

// Start begins delivering reloads in a background goroutine.
func (cw *ConfigWatcher) Start() {
	go cw.loop()
}

func (cw *ConfigWatcher) loop() {
	for {
		select {
		case event, ok := <-cw.fs.Events:
			if !ok {
				return
			}
			if !cw.relevant(event) {
				continue
			}
			if cw.isOwnWrite(event.Name) {
				cw.logger.Debugw("Ignoring own config write", logger.FieldPath, event.Name)
				continue
			}
			cw.logger.Infow("Config change detected",
				logger.FieldPath, event.Name,
				"op", event.Op.String())
			cw.schedule()

		case err, ok := <-cw.fs.Errors:
			if !ok {
				return
			}
			cw.logger.Warnw("Config watcher error", logger.FieldError, err)
		}
	}
}

func (cw *ConfigWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	if isBackupFile(event.Name) {
		return false
	}
	name, err := filepath.Abs(event.Name)
	return err == nil && (name == cw.path || name == cw.counters)
}

func (cw *ConfigWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.stopped {
		return
	}
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.debounce, func() {
		if err := cw.reload(); err != nil {
			cw.logger.Errorw("Config reload failed", logger.FieldPath, cw.path, logger.FieldError, err)
		}
	})
}

// reload loads and validates the file, then runs every callback. A failing
// callback does not stop the others.
func (cw *ConfigWatcher) reload() error {
	cfg, err := LoadFromFile(cw.path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "reloaded config is invalid")
	}

	cw.mu.Lock()
	callbacks := append([]ReloadCallback(nil), cw.callbacks...)
	cw.mu.Unlock()

	cw.logger.Infow("Config reloaded", logger.FieldPath, cw.path, logger.FieldCount, len(callbacks))
	for _, callback := range callbacks {
		if err := callback(cfg); err != nil {
			cw.logger.Warnw("Reload callback failed", logger.FieldError, err)
		}
	}
	return nil
}

// Stop cancels a pending reload and closes the underlying watcher.
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	cw.stopped = true
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()
	return cw.fs.Close()
}

// isBackupFile matches the rotated .back1 .. .back9 copies made before a
// write.
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasPrefix(ext, ".back") && len(ext) == len(".back")+1
}

// SetGlobalWatcher registers the watcher that ApplyCounterPatches notifies of
// its own writes. Pass nil to unregister.
func SetGlobalWatcher(watcher *ConfigWatcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = watcher
}

// GetGlobalWatcher returns the registered watcher, if any.
func GetGlobalWatcher() *ConfigWatcher {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	return globalWatcher
}
