package skills

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sentineld/sentinel/internal/observability"
)

// ManifestWatcher hot-reloads external command skills from a directory:
// whenever a .yaml manifest is written, removed, or created, it reloads
// the whole directory into the registry. This is the Go equivalent of the
// prototype dropping a new skill file next to its registry and calling
// reload() — skill_writing tasks produce a manifest here instead of a .py
// module.
type ManifestWatcher struct {
	dir      string
	registry *SkillRegistry
	log      *observability.Logger
	watcher  *fsnotify.Watcher
}

// NewManifestWatcher creates a watcher over dir, registering any manifests
// already present before watching begins.
func NewManifestWatcher(dir string, registry *SkillRegistry, log *observability.Logger) (*ManifestWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = observability.NewLogger("skills.watcher", nil)
	}
	mw := &ManifestWatcher{dir: dir, registry: registry, log: log, watcher: w}
	mw.reload()
	registry.SetReloadHook(mw.reloadOne)
	return mw, nil
}

// Start begins watching dir for manifest changes until ctx is cancelled.
// It should be run in its own goroutine.
func (mw *ManifestWatcher) Start(ctx context.Context) error {
	if err := mw.watcher.Add(mw.dir); err != nil {
		return err
	}
	defer mw.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-mw.watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".yaml") {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(250*time.Millisecond, mw.reload)
		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return nil
			}
			mw.log.Warn("manifest watcher error", "err", err.Error())
		}
	}
}

func (mw *ManifestWatcher) reload() {
	manifests, errs := LoadManifestDir(mw.dir)
	for _, err := range errs {
		mw.log.Warn("skipped malformed skill manifest", "err", err.Error())
	}
	for _, m := range manifests {
		if mw.registry.Get(m.ID) != nil {
			continue
		}
		mw.registry.Register(&Skill{
			Executor: NewCommandSkill(m),
			Meta: SkillMeta{
				ID:     m.ID,
				Name:   m.Name,
				Type:   m.Type,
				Status: SkillStatusActive,
			},
		})
		mw.log.Info("loaded external skill manifest", "skill", m.ID)
	}
}

// reloadOne rescans the manifest directory looking specifically for id —
// e.g. a skill_writing task dropped a manifest moments ago, before
// fsnotify's debounce fired a full reload. Returns whether id is present
// in the registry once the rescan completes.
func (mw *ManifestWatcher) reloadOne(id string) bool {
	mw.log.Info("targeted skill reload", "skill", id)
	mw.reload()
	return mw.registry.Get(id) != nil
}
