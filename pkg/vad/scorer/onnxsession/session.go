// Package onnxsession wraps github.com/yalue/onnxruntime_go with the
// lazy-global-environment, thread-count/device-selection, and
// input/output-name-introspection shape of the original C++
// onnx-common.cc, so every backend package (silerov4, silerov5, fsmn, ten)
// shares one way of loading a model and one way of discovering its port
// names for classification.
package onnxsession

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	envOnce sync.Once
	envErr  error
)

// SharedLibraryPath is overridable for environments where the ONNX
// Runtime shared library doesn't live at the platform default path.
var SharedLibraryPath string

// ensureEnvironment lazily initializes the process-wide ONNX Runtime
// environment exactly once, mirroring GetOrtEnv()'s function-local static
// Ort::Env in the C++ original.
func ensureEnvironment() error {
	envOnce.Do(func() {
		if SharedLibraryPath != "" {
			ort.SetSharedLibraryPath(SharedLibraryPath)
		}
		envErr = ort.InitializeEnvironment()
	})
	return envErr
}

// Session bundles a loaded ONNX Runtime session with the input/output
// port names the model declares, for classification via
// scorer.Classify and for backend-specific tensor wiring.
type Session struct {
	Raw         *ort.DynamicAdvancedSession
	InputNames  []string
	OutputNames []string
}

// Open loads the model at path, inspects its declared input/output port
// names, and returns a Session. numThreads configures intra/inter-op
// parallelism when deviceID < 0 (CPU); deviceID >= 0 requests the CUDA
// execution provider, mirroring GetSessionOptions' device_id branch.
func Open(ctx context.Context, path string, numThreads, deviceID int) (*Session, error) {
	if err := ensureEnvironment(); err != nil {
		return nil, fmt.Errorf("unable to initialize the onnx runtime environment: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read model port signature of %s: %w", path, err)
	}
	inputNames := namesOf(inputs)
	outputNames := namesOf(outputs)
	logger.Debugf(ctx, "onnx model %s: inputs=%v outputs=%v", path, inputNames, outputNames)

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("unable to create onnx session options: %w", err)
	}
	defer options.Destroy()

	if deviceID >= 0 {
		cudaOpts, err := newCUDAOptions(deviceID)
		if err != nil {
			return nil, fmt.Errorf("unable to configure cuda device %d: %w", deviceID, err)
		}
		if err := options.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			return nil, fmt.Errorf("unable to select cuda device %d: %w", deviceID, err)
		}
		logger.Infof(ctx, "initializing onnx session on cuda:%d", deviceID)
	} else {
		if err := options.SetIntraOpNumThreads(numThreads); err != nil {
			return nil, fmt.Errorf("unable to set intra-op thread count: %w", err)
		}
		if err := options.SetInterOpNumThreads(numThreads); err != nil {
			return nil, fmt.Errorf("unable to set inter-op thread count: %w", err)
		}
		logger.Infof(ctx, "initializing onnx session on cpu with %d threads", numThreads)
	}

	raw, err := ort.NewDynamicAdvancedSession(path, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("unable to create onnx session from %s: %w", path, err)
	}

	return &Session{Raw: raw, InputNames: inputNames, OutputNames: outputNames}, nil
}

// Close releases the underlying ONNX Runtime session.
func (s *Session) Close() error {
	if s == nil || s.Raw == nil {
		return nil
	}
	return s.Raw.Destroy()
}

func namesOf(info []ort.InputOutputInfo) []string {
	names := make([]string, len(info))
	for i, v := range info {
		names[i] = v.Name
	}
	return names
}

func newCUDAOptions(deviceID int) (*ort.CUDAProviderOptions, error) {
	opts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return nil, err
	}
	if err := opts.Update(map[string]string{"device_id": fmt.Sprintf("%d", deviceID)}); err != nil {
		opts.Destroy()
		return nil, err
	}
	return opts, nil
}
