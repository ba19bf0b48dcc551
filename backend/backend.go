package backend

import (
	"errors"

	"github.com/gogpu/ember"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Well-known backend names.
const (
	BackendMetal  = "metal"
	BackendVulkan = "vulkan"
	BackendGLES   = "gles"
)

// Device is the capability interface every backend implements.
// It abstracts one native graphics API, allowing the encoding layer to
// target Vulkan, OpenGL ES, or Metal without backend-specific branches
// outside the factory.
//
// Devices must be registered via Register() and are selected via Get() or
// Default().
type Device interface {
	// Name returns the backend identifier (e.g., "vulkan", "gles").
	Name() string

	// Init initializes the native device and queue. It must be called
	// before any resource creation.
	Init() error

	// Close releases all backend resources. The device must not be used
	// after Close.
	Close()

	// CreateCommandBuffer creates a new encoding context. Command buffers
	// are single-use: encode passes, then submit.
	CreateCommandBuffer() (ember.CommandBuffer, error)

	// CreateDeviceBuffer allocates a GPU-visible buffer.
	CreateDeviceBuffer(desc ember.DeviceBufferDescriptor) (ember.DeviceBuffer, error)

	// CreateTexture allocates a texture.
	CreateTexture(desc ember.TextureDescriptor) (ember.Texture, error)
}
