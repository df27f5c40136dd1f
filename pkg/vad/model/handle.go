package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"

	"github.com/xaionaro-go/streamvad/pkg/vad/config"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer/onnxsession"
)

// Handle owns the resources shared by every Instance built from it: the
// loaded ONNX session (or, for a directly-admitted backend, nothing
// comparable) and the classified backend factory. It is reference-counted:
// the underlying session is only destroyed once the Handle itself has been
// closed and every Instance born from it has also been closed.
type Handle struct {
	kind    scorer.Kind
	session *onnxsession.Session
	factory scorer.Factory

	// direct builds a Scorer without going through ONNX port-signature
	// classification, for backends with no ONNX session at all (the
	// webrtc-fvad classical detector).
	direct func(sampleRate int) (scorer.Scorer, error)

	mu       sync.Mutex
	refCount int
	closed   bool
}

// Create loads the ONNX model at path, classifies its backend by matching
// declared input/output port names against the registry, and returns a
// Handle holding no mutable streaming state. device_id >= 0 selects an
// accelerator; -1 selects CPU.
func Create(ctx context.Context, path string, numThreads, deviceID int) (*Handle, error) {
	session, err := onnxsession.Open(ctx, path, numThreads, deviceID)
	if err != nil {
		return nil, fmt.Errorf("unable to open model %s: %w", path, err)
	}

	factory, err := scorer.Classify(session.InputNames, session.OutputNames)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrUnknownBackend, path, err)
	}

	logger.Infof(ctx, "loaded %s model from %s", factory.Kind(), path)
	return &Handle{kind: factory.Kind(), session: session, factory: factory}, nil
}

// CreateFirst tries each candidate model path in order and returns a
// Handle for the first one that loads and classifies successfully,
// aggregating every failure with go-multierror if none do — the same
// try-loop-then-aggregate shape the teacher uses to probe candidate audio
// backends in NewRecorderAuto, generalized here to candidate model files.
func CreateFirst(ctx context.Context, paths []string, numThreads, deviceID int) (*Handle, error) {
	var errs *multierror.Error
	for _, path := range paths {
		handle, err := Create(ctx, path, numThreads, deviceID)
		if err != nil {
			logger.Debugf(ctx, "unable to load candidate model %s: %v", path, err)
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		return handle, nil
	}
	if errs == nil {
		return nil, fmt.Errorf("vad model: no candidate model paths given")
	}
	return nil, fmt.Errorf("vad model: unable to load any candidate model: %w", errs.ErrorOrNil())
}

// NewHandleFromScorer builds a Handle directly from a Scorer constructor,
// bypassing ONNX port-signature classification entirely. It exists for
// backends with no ONNX session to classify (the webrtc-fvad classical
// detector) and for tests that want to drive the dispatcher with a
// scripted mock Scorer.
func NewHandleFromScorer(kind scorer.Kind, newScorer func(sampleRate int) (scorer.Scorer, error)) *Handle {
	return &Handle{kind: kind, direct: newScorer}
}

// Kind reports which backend variant this handle was classified as.
func (h *Handle) Kind() scorer.Kind { return h.kind }

// Init builds a fresh streaming Instance sharing this handle's resources.
// The instance owns its own recurrent tensors, smoothing window, and
// segment state; it never mutates anything belonging to the handle.
func (h *Handle) Init(cfg config.Config) (*Instance, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHandleClosed
	}
	h.refCount++
	h.mu.Unlock()

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		h.release()
		return nil, err
	}

	sc, err := h.newScorer(cfg)
	if err != nil {
		h.release()
		return nil, fmt.Errorf("vad model: unable to build scorer: %w", err)
	}

	instance, err := newInstance(h, sc, cfg)
	if err != nil {
		h.release()
		return nil, err
	}
	return instance, nil
}

func (h *Handle) newScorer(cfg config.Config) (scorer.Scorer, error) {
	if h.direct != nil {
		return h.direct(cfg.SampleRate)
	}
	return h.factory.NewScorer(h.session, cfg.SampleRate)
}

// Close marks the handle closed; once every instance born from it has also
// been closed, the underlying ONNX session is released.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.refCount == 0 {
		return h.closeSession()
	}
	return nil
}

// release decrements the reference count, called once per Instance.Close
// (and on Init failure paths that incremented but never handed out an
// instance). It releases the session once the count reaches zero and the
// handle itself has already been closed.
func (h *Handle) release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.refCount > 0 {
		h.refCount--
	}
	if h.closed && h.refCount == 0 {
		return h.closeSession()
	}
	return nil
}

func (h *Handle) closeSession() error {
	if h.session == nil {
		return nil
	}
	return h.session.Close()
}
