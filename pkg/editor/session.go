package editor

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	errs "github.com/matzehuels/novella/pkg/errors"
	novellaio "github.com/matzehuels/novella/pkg/io"
	"github.com/matzehuels/novella/pkg/observability"
	"github.com/matzehuels/novella/pkg/playback"
	"github.com/matzehuels/novella/pkg/storage"
	"github.com/matzehuels/novella/pkg/story"
)

// Session is the single writer of one project. Every mutation runs under
// one mutex and is followed by an autosave of the full document before the
// call returns.
type Session struct {
	mu      sync.Mutex
	name    string
	backend storage.Store
	store   *story.Store
	player  *playback.Player
	start   string
	version novellaio.Version
	logger  *log.Logger
	opts    []story.Option
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStoreOptions passes options to the underlying story.Store.
func WithStoreOptions(opts ...story.Option) Option {
	return func(s *Session) { s.opts = append(s.opts, opts...) }
}

// Open loads the named project from backend. A missing project starts
// empty. A document that cannot be parsed also starts empty, with a warning;
// the unreadable bytes stay in the backend until the first mutation
// overwrites them.
func Open(ctx context.Context, backend storage.Store, name string, opts ...Option) (*Session, error) {
	if name == "" {
		name = storage.DefaultProject
	}
	if err := errs.ValidateProjectName(name); err != nil {
		return nil, err
	}
	s := &Session{name: name, backend: backend, logger: log.Default()}
	for _, opt := range opts {
		opt(s)
	}

	p, version, err := s.load(ctx)
	observability.Editor().OnLoad(ctx, version.String(), len(p.Scenes), err)
	if err != nil {
		return nil, err
	}
	s.version = version
	s.store = story.NewStore(p, s.opts...)
	s.player = playback.New(s.store.Project(), "")
	return s, nil
}

func (s *Session) load(ctx context.Context) (*story.Project, novellaio.Version, error) {
	data, err := s.backend.Load(ctx, s.name)
	switch {
	case errs.Is(err, errs.ErrCodeProjectNotFound) || errs.IsNotFound(err):
		s.logger.Warn("project not found, starting empty", "project", s.name, "backend", s.backend.Backend())
		return story.NewProject(), novellaio.VersionCurrent, nil
	case err != nil:
		return story.NewProject(), novellaio.VersionInvalid, err
	}

	version := novellaio.DetectVersion(data)
	p, err := novellaio.Unmarshal(data)
	if err != nil {
		s.logger.Warn("unreadable project, starting empty", "project", s.name, "err", errs.UserMessage(err))
		return story.NewProject(), version, nil
	}
	if version != novellaio.VersionCurrent {
		s.logger.Info("upgraded legacy document", "project", s.name, "from", version)
	}
	s.logger.Debug("loaded project", "project", s.name, "scenes", len(p.Scenes), "loose", len(p.LooseLayers))
	return p, version, nil
}

// Name returns the project name.
func (s *Session) Name() string { return s.name }

// Backend returns the storage backend.
func (s *Session) Backend() storage.Store { return s.backend }

// LoadedVersion reports the document shape found when the session opened.
func (s *Session) LoadedVersion() novellaio.Version { return s.version }

// Read calls fn with the store while holding the session lock. fn must not
// keep references to entities past its return.
func (s *Session) Read(fn func(st *story.Store)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.store)
}

// Snapshot returns a deep copy of the project.
func (s *Session) Snapshot() *story.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Project().Clone()
}

// Document returns the serialized project.
func (s *Session) Document() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return novellaio.Marshal(s.store.Project())
}

// mutate runs op under the lock and autosaves on success.
func (s *Session) mutate(ctx context.Context, op string, fn func(st *story.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	err := fn(s.store)
	observability.Editor().OnMutation(ctx, op, time.Since(start), err)
	if err != nil {
		if errs.IsNotFound(err) {
			s.logger.Warn("ignored edit on missing entity", "op", op, "err", errs.UserMessage(err))
		} else {
			s.logger.Debug("edit rejected", "op", op, "err", err)
		}
		return err
	}
	return s.save(ctx)
}

// save must be called with s.mu held.
func (s *Session) save(ctx context.Context) error {
	data, err := novellaio.Marshal(s.store.Project())
	if err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "serialize project")
	}
	start := time.Now()
	err = s.backend.Save(ctx, s.name, data)
	observability.Editor().OnAutosave(ctx, s.backend.Backend(), len(data), time.Since(start), err)
	if err != nil {
		s.logger.Error("autosave failed", "project", s.name, "err", err)
		if errs.GetCode(err) == "" {
			err = errs.Wrap(errs.ErrCodeStorage, err, "autosave")
		}
		return err
	}
	s.logger.Debug("autosaved", "project", s.name, "bytes", len(data))
	return nil
}

// Save writes the project without mutating it.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

// Replace swaps in a whole project, as an import does.
func (s *Session) Replace(ctx context.Context, p *story.Project) error {
	if p == nil {
		p = story.NewProject()
	}
	return s.mutate(ctx, "project.replace", func(st *story.Store) error {
		st.Replace(p)
		s.player = playback.New(p, s.start)
		return nil
	})
}

// Bootstrap creates one scene when the project has none and reports whether
// it did.
func (s *Session) Bootstrap(ctx context.Context) (bool, error) {
	created := false
	err := s.mutate(ctx, "project.bootstrap", func(st *story.Store) error {
		if len(st.Scenes()) > 0 {
			return nil
		}
		st.CreateScene()
		created = true
		return nil
	})
	return created, err
}

// =============================================================================
// Scenes
// =============================================================================

// SceneUpdate carries the scene fields to change; nil fields are kept.
type SceneUpdate struct {
	Title      *string
	Body       *string
	Background *string
}

// CreateScene adds a scene and returns its id.
func (s *Session) CreateScene(ctx context.Context) (string, error) {
	var id string
	err := s.mutate(ctx, "scene.create", func(st *story.Store) error {
		id = st.CreateScene().ID
		return nil
	})
	return id, err
}

// DeleteScene removes a scene with everything it owns and clears choices
// that pointed at it.
func (s *Session) DeleteScene(ctx context.Context, id string) error {
	return s.mutate(ctx, "scene.delete", func(st *story.Store) error {
		if !st.DeleteScene(id) {
			return errs.NotFound("scene", id)
		}
		return nil
	})
}

// UpdateScene changes scene text fields.
func (s *Session) UpdateScene(ctx context.Context, id string, u SceneUpdate) error {
	return s.mutate(ctx, "scene.update", func(st *story.Store) error {
		if st.Scene(id) == nil {
			return errs.NotFound("scene", id)
		}
		if u.Title != nil {
			if err := st.SetSceneTitle(id, *u.Title); err != nil {
				return err
			}
		}
		if u.Body != nil {
			if err := st.SetSceneBody(id, *u.Body); err != nil {
				return err
			}
		}
		if u.Background != nil {
			return st.SetSceneBackground(id, *u.Background)
		}
		return nil
	})
}

// =============================================================================
// Choices
// =============================================================================

// ChoiceUpdate carries the choice fields to change; nil fields are kept.
// An empty Target clears the link.
type ChoiceUpdate struct {
	Text   *string
	Target *string
	Group  *string
	Style  *story.ChoiceStyle
}

// AddChoice adds a choice to a scene and returns its id.
func (s *Session) AddChoice(ctx context.Context, sceneID string) (string, error) {
	var id string
	err := s.mutate(ctx, "choice.add", func(st *story.Store) error {
		c, err := st.AddChoice(sceneID)
		if err != nil {
			return err
		}
		id = c.ID
		return nil
	})
	return id, err
}

// DeleteChoice removes a choice.
func (s *Session) DeleteChoice(ctx context.Context, id string) error {
	return s.mutate(ctx, "choice.delete", func(st *story.Store) error {
		if !st.DeleteChoice(id) {
			return errs.NotFound("choice", id)
		}
		return nil
	})
}

// UpdateChoice changes choice fields. The update is validated as a whole
// before anything is applied.
func (s *Session) UpdateChoice(ctx context.Context, id string, u ChoiceUpdate) error {
	return s.mutate(ctx, "choice.update", func(st *story.Store) error {
		if c, _ := st.Choice(id); c == nil {
			return errs.NotFound("choice", id)
		}
		if u.Target != nil && *u.Target != "" && st.Scene(*u.Target) == nil {
			return errs.NotFound("scene", *u.Target)
		}
		if u.Text != nil {
			if err := st.SetChoiceText(id, *u.Text); err != nil {
				return err
			}
		}
		if u.Target != nil {
			if err := st.SetChoiceTarget(id, *u.Target); err != nil {
				return err
			}
		}
		if u.Group != nil {
			if err := st.SetChoiceGroup(id, *u.Group); err != nil {
				return err
			}
		}
		if u.Style != nil {
			return st.SetChoiceStyle(id, *u.Style)
		}
		return nil
	})
}

// =============================================================================
// Layers
// =============================================================================

// LayerUpdate carries the layer fields to change; nil fields are kept.
// Content and Style apply to text layers, Src to image layers.
type LayerUpdate struct {
	Content *string
	Style   *story.TextStyle
	Src     *string
}

// AddLayer adds a layer to a scene, or a loose layer when ownerID is empty.
func (s *Session) AddLayer(ctx context.Context, kind story.LayerKind, ownerID string) (string, error) {
	var id string
	err := s.mutate(ctx, "layer.add", func(st *story.Store) error {
		l, err := st.AddLayer(kind, ownerID)
		if err != nil {
			return err
		}
		id = l.ID
		return nil
	})
	return id, err
}

// DeleteLayer removes a layer wherever it lives.
func (s *Session) DeleteLayer(ctx context.Context, id string) error {
	return s.mutate(ctx, "layer.delete", func(st *story.Store) error {
		if !st.DeleteLayer(id) {
			return errs.NotFound("layer", id)
		}
		return nil
	})
}

// UpdateLayer changes layer content, style or image source. Like
// UpdateChoice, the update is checked as a whole before any field changes.
func (s *Session) UpdateLayer(ctx context.Context, id string, u LayerUpdate) error {
	return s.mutate(ctx, "layer.update", func(st *story.Store) error {
		l := st.Layer(id)
		if l == nil {
			return errs.NotFound("layer", id)
		}
		if u.Src != nil {
			if err := errs.ValidateImageSource(*u.Src); err != nil {
				return err
			}
		}
		if (u.Content != nil || u.Style != nil) && l.Kind != story.LayerText {
			return errs.New(errs.ErrCodeInvalidInput, "layer %q is not a text layer", id)
		}
		if u.Src != nil && l.Kind != story.LayerImage {
			return errs.New(errs.ErrCodeInvalidInput, "layer %q is not an image layer", id)
		}
		if u.Content != nil {
			if err := st.SetLayerContent(id, *u.Content); err != nil {
				return err
			}
		}
		if u.Style != nil {
			if err := st.SetTextStyle(id, *u.Style); err != nil {
				return err
			}
		}
		if u.Src != nil {
			return st.SetImageSource(id, *u.Src)
		}
		return nil
	})
}

// ReorderLayer moves a layer forward (delta > 0) or backward in its stack.
func (s *Session) ReorderLayer(ctx context.Context, id string, delta int) error {
	return s.mutate(ctx, "layer.reorder", func(st *story.Store) error {
		return st.ReorderLayer(id, delta)
	})
}

// UpdateGeometry commits the final rectangle of a move or resize.
func (s *Session) UpdateGeometry(ctx context.Context, id string, r story.Rect) error {
	return s.mutate(ctx, "geometry.update", func(st *story.Store) error {
		return st.UpdateGeometry(id, r)
	})
}

// =============================================================================
// Playback
// =============================================================================

// SetStart sets the scene playback starts from and restarts the player.
// An empty or unknown id starts at the first scene.
func (s *Session) SetStart(start string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = start
	s.player = playback.New(s.store.Project(), start)
}

// Play returns the current playback view.
func (s *Session) Play() playback.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return detach(s.player.Current())
}

// Choose follows a choice of the current scene and returns the new view.
func (s *Session) Choose(choiceID string) (playback.View, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Current()
	moved, err := s.player.Choose(choiceID)
	if err != nil {
		return playback.View{}, false, err
	}
	return detach(s.player.Current()), moved, nil
}

// Restart moves playback back to the start scene.
func (s *Session) Restart() playback.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Restart()
	return detach(s.player.Current())
}

// detach copies the view's layers so callers can use it after the lock is
// released.
func detach(v playback.View) playback.View {
	layers := make([]*story.Layer, len(v.Layers))
	for i, l := range v.Layers {
		cp := *l
		layers[i] = &cp
	}
	v.Layers = layers
	return v
}
