package inpaint

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Tensor names of the exported inpainting graph.
const (
	onnxImageInput  = "image"
	onnxMaskInput   = "mask"
	onnxImageOutput = "output"
)

var ortEnvMu sync.Mutex

// initONNXRuntime loads the shared library and creates the process-wide
// runtime environment if no other model has done so.
func initONNXRuntime(libraryPath string) error {
	ortEnvMu.Lock()
	defer ortEnvMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize onnxruntime: %w", err)
	}
	return nil
}

// shapeTensors holds preallocated input and output tensors for one padded
// crop size.
type shapeTensors struct {
	image  *ort.Tensor[float32]
	mask   *ort.Tensor[float32]
	output *ort.Tensor[float32]
}

func (s *shapeTensors) destroy() {
	s.image.Destroy()
	s.mask.Destroy()
	s.output.Destroy()
}

// onnxModel runs an inpainting graph through onnxruntime.
//
// Tensors are cached per padded size so a page with many similar bubbles
// allocates once per shape. The cache is dropped by ReleaseCache after each
// batch.
type onnxModel struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	cache   map[[2]int]*shapeTensors
}

// newONNXModel opens the model at path on device ("cpu", "cuda" or
// "cuda:N").
func newONNXModel(path, device, libraryPath string) (*onnxModel, error) {
	if err := initONNXRuntime(libraryPath); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if deviceID, ok := cudaDevice(device); ok {
		cuda, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return nil, fmt.Errorf("failed to create CUDA options: %w", err)
		}
		defer cuda.Destroy()
		if err := cuda.Update(map[string]string{"device_id": strconv.Itoa(deviceID)}); err != nil {
			return nil, fmt.Errorf("failed to configure CUDA device %d: %w", deviceID, err)
		}
		if err := options.AppendExecutionProviderCUDA(cuda); err != nil {
			return nil, fmt.Errorf("failed to enable CUDA provider: %w", err)
		}
	}

	session, err := ort.NewDynamicAdvancedSession(path,
		[]string{onnxImageInput, onnxMaskInput}, []string{onnxImageOutput}, options)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", path, err)
	}
	return &onnxModel{session: session, cache: make(map[[2]int]*shapeTensors)}, nil
}

// cudaDevice parses "cuda" or "cuda:N".
func cudaDevice(device string) (int, bool) {
	d := strings.ToLower(strings.TrimSpace(device))
	if d == "cuda" || d == "gpu" {
		return 0, true
	}
	rest, ok := strings.CutPrefix(d, "cuda:")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (m *onnxModel) tensors(width, height int) (*shapeTensors, error) {
	key := [2]int{width, height}
	if t, ok := m.cache[key]; ok {
		return t, nil
	}
	w, h := int64(width), int64(height)
	img, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, h, w))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate image tensor: %w", err)
	}
	mask, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1, h, w))
	if err != nil {
		img.Destroy()
		return nil, fmt.Errorf("failed to allocate mask tensor: %w", err)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, h, w))
	if err != nil {
		img.Destroy()
		mask.Destroy()
		return nil, fmt.Errorf("failed to allocate output tensor: %w", err)
	}
	t := &shapeTensors{image: img, mask: mask, output: out}
	m.cache[key] = t
	return t, nil
}

func (m *onnxModel) Infer(img, mask []float32, width, height int) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, fmt.Errorf("model is closed")
	}

	t, err := m.tensors(width, height)
	if err != nil {
		return nil, err
	}
	copy(t.image.GetData(), img)
	copy(t.mask.GetData(), mask)

	if err := m.session.Run([]ort.Value{t.image, t.mask}, []ort.Value{t.output}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	out := make([]float32, 3*width*height)
	copy(out, t.output.GetData())
	return out, nil
}

func (m *onnxModel) ReleaseCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, t := range m.cache {
		t.destroy()
		delete(m.cache, k)
	}
}

func (m *onnxModel) Close() error {
	m.ReleaseCache()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
