package scene

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-batch/engine/ecs"
)

// defaultCapacity is the number of entity slots a scene preallocates when no world is supplied.
const defaultCapacity = 1024

// scene implements the Scene interface.
type scene struct {
	mu sync.RWMutex

	name   string
	active bool
	world  *ecs.World
}

// Scene is a named entity world that can be submitted to the batching pipeline.
// Scenes can be hot-swapped via the Active flag to switch between different views or levels.
// Name and Active are safe for concurrent access; the World is owned by the frame thread.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// SetName sets the scene's identifier.
	SetName(name string)

	// Active returns whether this scene is currently active for rendering.
	Active() bool

	// SetActive sets whether this scene is active for rendering.
	SetActive(active bool)

	// World returns the scene's entity world.
	World() *ecs.World

	// ResolveAssets resolves every renderable's mesh and texture path to registry indices.
	// Meshes that cannot be loaded are marked mesh.TypeNone and skipped by batching.
	// Textures that cannot be loaded downgrade the renderable to a color material.
	//
	// Parameters:
	//   - r: the registries and logger to resolve against
	//
	// Returns:
	//   - ResolveReport: counts of resolved, missing and downgraded assets
	ResolveAssets(r Resolver) ResolveReport
}

var _ Scene = &scene{}

// NewScene creates a new Scene. The scene is active and owns an empty world unless options say otherwise.
//
// Parameters:
//   - options: functional options for name, world and active state
//
// Returns:
//   - Scene: the newly created scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		active: true,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.world == nil {
		s.world = ecs.NewWorld(defaultCapacity)
	}
	return s
}

func (s *scene) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

func (s *scene) SetName(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

func (s *scene) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) World() *ecs.World {
	return s.world
}

func (s *scene) ResolveAssets(r Resolver) ResolveReport {
	return resolveAssets(s.world, r)
}
