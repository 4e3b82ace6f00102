package scene

import "github.com/Carmen-Shannon/oxy-batch/engine/ecs"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		s.name = name
	}
}

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithWorld uses an existing world instead of creating an empty one.
//
// Parameters:
//   - w: the entity world
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithWorld(w *ecs.World) SceneBuilderOption {
	return func(s *scene) {
		s.world = w
	}
}

// WithCapacity sets the number of entity slots preallocated for a new world.
// It has no effect when combined with WithWorld.
//
// Parameters:
//   - n: the slot capacity (ignored if <= 0)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithCapacity(n int) SceneBuilderOption {
	return func(s *scene) {
		if n > 0 && s.world == nil {
			s.world = ecs.NewWorld(n)
		}
	}
}
