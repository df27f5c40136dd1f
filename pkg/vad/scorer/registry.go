package scorer

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer/onnxsession"
)

// Factory builds a Scorer bound to a loaded inference session once its
// port signature has been classified.
type Factory interface {
	// Kind identifies the backend this factory builds.
	Kind() Kind

	// Match reports whether this factory's backend declares exactly this
	// input/output port-name signature.
	Match(inputNames, outputNames []string) bool

	// NewScorer builds a Scorer bound to an already-open ONNX session.
	// The concrete tensor wiring lives in each backend package; the
	// registry only needs Match to classify.
	NewScorer(session *onnxsession.Session, sampleRate int) (Scorer, error)
}

type factoryWithPriority struct {
	priority int
	Factory
}

var registry = map[reflect.Type]factoryWithPriority{}

// Register adds a Factory to the classification registry. Higher priority
// values are tried first by Classify. Panics if the same factory type is
// registered twice, mirroring the teacher's backend-registry discipline
// of failing loudly on a programming mistake rather than silently
// shadowing a prior registration.
func Register(priority int, f Factory) {
	t := reflect.ValueOf(f).Type()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if _, ok := registry[t]; ok {
		panic(fmt.Errorf("a scorer factory of type %v is already registered", t))
	}
	registry[t] = factoryWithPriority{priority: priority, Factory: f}
}

func orderedFactories() []Factory {
	var withPriority []factoryWithPriority
	for _, f := range registry {
		withPriority = append(withPriority, f)
	}
	sort.Slice(withPriority, func(i, j int) bool {
		return withPriority[i].priority > withPriority[j].priority
	})
	factories := make([]Factory, len(withPriority))
	for i, f := range withPriority {
		factories[i] = f.Factory
	}
	return factories
}

// Classify walks the registered factories in priority order and returns
// the first whose declared port signature matches. If none match, it
// returns a multierror describing every attempted match, analogous to how
// the teacher's NewRecorderAuto aggregates every failed backend probe.
func Classify(inputNames, outputNames []string) (Factory, error) {
	var errs *multierror.Error
	for _, f := range orderedFactories() {
		if f.Match(inputNames, outputNames) {
			return f, nil
		}
		errs = multierror.Append(errs, fmt.Errorf(
			"%s: port signature in=%v out=%v did not match", f.Kind(), inputNames, outputNames))
	}
	if errs == nil {
		return nil, fmt.Errorf("no scorer backends registered")
	}
	return nil, fmt.Errorf("unrecognized model port signature in=%v out=%v: %w",
		inputNames, outputNames, errs.ErrorOrNil())
}
