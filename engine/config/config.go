package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"

	"github.com/codefiesta/VimKit-sub001/engine/core"
)

// Application is the windowing and logging section.
type Application struct {
	Name     string `toml:"name"`
	Width    uint32 `toml:"width"`
	Height   uint32 `toml:"height"`
	LogLevel string `toml:"log_level"`
}

// Culling is the runtime culling section. Every switch can change between
// frames via hot reload.
type Culling struct {
	OcclusionEnabled       bool `toml:"occlusion_enabled"`
	OcclusionVisualization bool `toml:"occlusion_visualization"`
	// Draw-loop budget in milliseconds. Zero issues no draws, negative
	// disables the budget.
	FrameBudgetMS float64 `toml:"frame_budget_ms"`
	// Group count below which frustum culling is skipped.
	MinInstancedMeshes      int     `toml:"min_instanced_meshes"`
	ContributionTestEnabled bool    `toml:"contribution_test_enabled"`
	MinContributionArea     float32 `toml:"min_contribution_area"`
	DepthTestEnabled        bool    `toml:"depth_test_enabled"`
}

type Config struct {
	Application Application `toml:"application"`
	Culling     Culling     `toml:"culling"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Application: Application{
			Name:     "Viewer",
			Width:    1280,
			Height:   720,
			LogLevel: "info",
		},
		Culling: Culling{
			OcclusionEnabled:    true,
			FrameBudgetMS:       -1,
			MinContributionArea: 64,
		},
	}
}

// Load reads a TOML configuration file, layering it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("func Load - read %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("func Load - parse %s: %w", path, err)
	}
	return cfg, nil
}

// Watcher reloads the configuration whenever the file changes on disk and
// fires EVENT_CODE_CONFIG_RELOADED. Consumers re-read Current on the event.
type Watcher struct {
	mutex   sync.RWMutex
	path    string
	current Config
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewWatcher(path string) (*Watcher, error) {
	cfg, err := Load(path)
	if err != nil {
		// A missing file is fine; the defaults apply until it appears.
		core.LogWarn("config: %s, using defaults", err.Error())
		cfg = Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	// Watch the directory, not the file: editors replace files on save and
	// the inode watch would go stale.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		core.LogError(err.Error())
		return nil, err
	}

	w := &Watcher{
		path:    path,
		current: cfg,
		watcher: fw,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			core.LogError("config watcher: %s", err.Error())
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		// Keep the last good configuration on a bad edit.
		core.LogWarn("config reload failed, keeping previous: %s", err.Error())
		return
	}

	w.mutex.Lock()
	w.current = cfg
	w.mutex.Unlock()

	core.LogInfo("configuration reloaded from %s", w.path)
	core.EventFire(core.EVENT_CODE_CONFIG_RELOADED, w, core.EventContext{})
}

// Current returns the active configuration.
func (w *Watcher) Current() Config {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	return w.current
}

func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
