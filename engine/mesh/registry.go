package mesh

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

// ErrNoLoader is returned when an external mesh is requested and no Loader is configured.
var ErrNoLoader = errors.New("mesh: no loader configured for external meshes")

const preloadQueueSize = 256

// Loader produces geometry for an external mesh path.
// Implementations must be safe for concurrent use; Preload calls Load from worker goroutines.
type Loader interface {
	Load(path string) (*Proxy, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) (*Proxy, error)

// Load calls f(path).
func (f LoaderFunc) Load(path string) (*Proxy, error) {
	return f(path)
}

// registry is the implementation of the Registry interface.
type registry struct {
	mu sync.RWMutex

	meshes []*Proxy
	byPath map[string]int

	loader Loader
	logger *zap.Logger

	preloadWorkers int
	pool           worker.DynamicWorkerPool
	poolOnce       sync.Once
}

// Registry owns deduplicated mesh geometry addressable by stable integer index.
// Builtin shapes occupy indices 0..2; external meshes follow in resolution order.
type Registry interface {
	// Resolve maps a mesh path to its registry index, loading the mesh on first use.
	// Paths naming a builtin shape resolve to the builtin without touching the Loader.
	//
	// Parameters:
	//   - path: the mesh path or builtin name
	//
	// Returns:
	//   - Type: the mesh type the path resolved to
	//   - int: the stable registry index
	//   - error: ErrNoLoader, a load error, or a validation error
	Resolve(path string) (Type, int, error)

	// Retrieve returns the geometry stored at index.
	//
	// Parameters:
	//   - index: a registry index previously returned by Resolve
	//
	// Returns:
	//   - *Proxy: the mesh geometry
	//   - bool: false if the index is out of range
	Retrieve(index int) (*Proxy, bool)

	// Register stores caller-built geometry under path, replacing nothing if the path is known.
	//
	// Parameters:
	//   - path: the key for the mesh
	//   - p: the geometry
	//
	// Returns:
	//   - int: the registry index of the mesh
	//   - error: error if the geometry is malformed
	Register(path string, p *Proxy) (int, error)

	// Preload resolves many external paths concurrently on the worker pool.
	// Indices are assigned in argument order regardless of load completion order.
	//
	// Parameters:
	//   - paths: the mesh paths to load
	//
	// Returns:
	//   - error: the joined load errors, nil if every path resolved
	Preload(paths []string) error

	// Len returns the number of registered meshes, builtins included.
	Len() int

	// Close stops the preload worker pool, if one was started.
	Close()
}

var _ Registry = &registry{}

// NewRegistry creates a mesh Registry with the builtin shapes pre-registered.
//
// Parameters:
//   - options: functional options for loader, logger and worker configuration
//
// Returns:
//   - Registry: the new registry
func NewRegistry(options ...RegistryBuilderOption) Registry {
	r := &registry{
		byPath:         make(map[string]int),
		logger:         zap.NewNop(),
		preloadWorkers: runtime.NumCPU(),
	}
	for _, b := range builtins {
		r.byPath[b.name] = len(r.meshes)
		r.meshes = append(r.meshes, b.build())
	}

	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *registry) Resolve(path string) (Type, int, error) {
	typ := BuiltinType(path)
	switch typ {
	case TypeNone:
		return TypeNone, -1, fmt.Errorf("mesh: empty path")
	case TypeCube, TypePyramid, TypeSurface:
		return typ, int(typ - TypeCube), nil
	}

	r.mu.RLock()
	idx, ok := r.byPath[path]
	r.mu.RUnlock()
	if ok {
		return TypeExternal, idx, nil
	}

	p, err := r.load(path)
	if err != nil {
		return TypeNone, -1, err
	}
	idx, err = r.Register(path, p)
	if err != nil {
		return TypeNone, -1, err
	}
	return TypeExternal, idx, nil
}

func (r *registry) Retrieve(index int) (*Proxy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.meshes) {
		return nil, false
	}
	return r.meshes[index], true
}

func (r *registry) Register(path string, p *Proxy) (int, error) {
	if p == nil {
		return -1, fmt.Errorf("mesh %s: nil geometry", path)
	}
	if err := p.Validate(); err != nil {
		return -1, fmt.Errorf("mesh %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.byPath[path]; ok {
		return idx, nil
	}
	idx := len(r.meshes)
	r.byPath[path] = idx
	r.meshes = append(r.meshes, p)
	r.logger.Debug("mesh registered",
		zap.String("path", path),
		zap.Int("index", idx),
		zap.Int("vertices", p.VertexCount()),
		zap.Int("indices", p.IndexCount()))
	return idx, nil
}

func (r *registry) Preload(paths []string) error {
	pending := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	r.mu.RLock()
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		if _, ok := r.byPath[p]; ok || BuiltinType(p) != TypeExternal {
			continue
		}
		pending = append(pending, p)
	}
	r.mu.RUnlock()
	if len(pending) == 0 {
		return nil
	}

	r.poolOnce.Do(func() {
		r.pool = worker.NewDynamicWorkerPool(r.preloadWorkers, preloadQueueSize, time.Second)
	})

	proxies := make([]*Proxy, len(pending))
	errs := make([]error, len(pending))

	// pool.Wait() blocks until idle workers exit; a WaitGroup gives the barrier we need.
	var wg sync.WaitGroup
	for i, path := range pending {
		wg.Add(1)
		i, path := i, path
		r.pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: path,
			Do: func() (any, error) {
				defer wg.Done()
				proxies[i], errs[i] = r.load(path)
				return proxies[i], errs[i]
			},
		})
	}
	wg.Wait()

	for i, path := range pending {
		if errs[i] != nil {
			continue
		}
		if _, err := r.Register(path, proxies[i]); err != nil {
			errs[i] = err
		}
	}
	return errors.Join(errs...)
}

func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.meshes)
}

func (r *registry) Close() {
	if r.pool != nil {
		r.pool.Stop()
	}
}

func (r *registry) load(path string) (*Proxy, error) {
	if r.loader == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLoader, path)
	}
	p, err := r.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load mesh %s: %w", path, err)
	}
	return p, nil
}
