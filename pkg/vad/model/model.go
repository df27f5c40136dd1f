// Package model implements the public two-phase facade described by the
// engine: a Handle that owns the shared, reference-counted scorer
// resources for one loaded model, and an Instance created from a Handle
// plus a Config that owns all mutable per-stream state.
//
// Grounded on VadModel::create/init/reset/flush in
// original_source/vad-filter-onnx/vad/vad-model.cc, with the
// reference-counted resource-sharing shape adapted from the teacher's
// NewRecorderAuto/NewPlayerAuto try-loop in
// github.com/xaionaro-go/audio's pkg/audio/recorder.go and player.go.
package model

import "errors"

// ErrUnknownBackend is returned by Create when the model file's declared
// ONNX input/output port names do not match any registered backend.
var ErrUnknownBackend = errors.New("vad model: unknown backend port signature")

// ErrNotInitialized is returned by Instance.Decode when the instance was
// not built via Handle.Init or has already been closed.
var ErrNotInitialized = errors.New("vad model: instance not initialized")

// ErrHandleClosed is returned by Init when called on a Handle that has
// already been closed.
var ErrHandleClosed = errors.New("vad model: handle is closed")
