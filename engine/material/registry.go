package material

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

const preloadQueueSize = 256

// registry is the implementation of the Registry interface.
type registry struct {
	mu sync.RWMutex

	textures []*Texture
	byPath   map[string]int

	loader TextureLoader
	logger *zap.Logger

	preloadWorkers int
	pool           worker.DynamicWorkerPool
	poolOnce       sync.Once
}

// Registry owns deduplicated textures addressable by stable integer index.
type Registry interface {
	// ResolveTexture maps a texture path to its registry index, decoding it on first use.
	//
	// Parameters:
	//   - path: the texture path
	//
	// Returns:
	//   - int: the stable registry index
	//   - error: error if the texture cannot be loaded
	ResolveTexture(path string) (int, error)

	// Texture returns the texture stored at index.
	//
	// Parameters:
	//   - index: a registry index previously returned by ResolveTexture
	//
	// Returns:
	//   - *Texture: the decoded texture
	//   - bool: false if the index is out of range
	Texture(index int) (*Texture, bool)

	// Preload decodes many textures concurrently on the worker pool.
	// Indices are assigned in argument order regardless of decode completion order.
	//
	// Parameters:
	//   - paths: the texture paths to load
	//
	// Returns:
	//   - error: the joined load errors, nil if every path resolved
	Preload(paths []string) error

	// Len returns the number of registered textures.
	Len() int

	// Close stops the preload worker pool, if one was started.
	Close()
}

var _ Registry = &registry{}

// NewRegistry creates an empty texture Registry that decodes from disk by default.
//
// Parameters:
//   - options: functional options for loader, logger and worker configuration
//
// Returns:
//   - Registry: the new registry
func NewRegistry(options ...RegistryBuilderOption) Registry {
	r := &registry{
		byPath:         make(map[string]int),
		loader:         FileLoader,
		logger:         zap.NewNop(),
		preloadWorkers: runtime.NumCPU(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *registry) ResolveTexture(path string) (int, error) {
	if path == "" {
		return -1, fmt.Errorf("material: empty texture path")
	}

	r.mu.RLock()
	idx, ok := r.byPath[path]
	r.mu.RUnlock()
	if ok {
		return idx, nil
	}

	tex, err := r.load(path)
	if err != nil {
		return -1, err
	}
	return r.register(tex), nil
}

func (r *registry) Texture(index int) (*Texture, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.textures) {
		return nil, false
	}
	return r.textures[index], true
}

func (r *registry) Preload(paths []string) error {
	pending := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	r.mu.RLock()
	for _, p := range paths {
		if _, dup := seen[p]; dup || p == "" {
			continue
		}
		seen[p] = struct{}{}
		if _, ok := r.byPath[p]; !ok {
			pending = append(pending, p)
		}
	}
	r.mu.RUnlock()
	if len(pending) == 0 {
		return nil
	}

	r.poolOnce.Do(func() {
		r.pool = worker.NewDynamicWorkerPool(r.preloadWorkers, preloadQueueSize, time.Second)
	})

	textures := make([]*Texture, len(pending))
	errs := make([]error, len(pending))

	var wg sync.WaitGroup
	for i, path := range pending {
		wg.Add(1)
		i, path := i, path
		r.pool.SubmitTask(worker.Task{
			ID:      i,
			Payload: path,
			Do: func() (any, error) {
				defer wg.Done()
				textures[i], errs[i] = r.load(path)
				return textures[i], errs[i]
			},
		})
	}
	wg.Wait()

	for i := range pending {
		if errs[i] == nil {
			r.register(textures[i])
		}
	}
	return errors.Join(errs...)
}

func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.textures)
}

func (r *registry) Close() {
	if r.pool != nil {
		r.pool.Stop()
	}
}

func (r *registry) load(path string) (*Texture, error) {
	if r.loader == nil {
		return nil, fmt.Errorf("material: no texture loader for %s", path)
	}
	data, err := r.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load texture %s: %w", path, err)
	}
	if data.Width == 0 || data.Height == 0 {
		return nil, fmt.Errorf("load texture %s: empty image", path)
	}
	return &Texture{Path: path, TextureStagingData: data}, nil
}

func (r *registry) register(tex *Texture) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.byPath[tex.Path]; ok {
		return idx
	}
	idx := len(r.textures)
	r.byPath[tex.Path] = idx
	r.textures = append(r.textures, tex)
	r.logger.Debug("texture registered",
		zap.String("path", tex.Path),
		zap.Int("index", idx),
		zap.Uint32("width", tex.Width),
		zap.Uint32("height", tex.Height))
	return idx
}
