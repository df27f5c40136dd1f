package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/observability"

	"github.com/xaionaro-go/streamvad/pkg/audio/pcm"
	"github.com/xaionaro-go/streamvad/pkg/audio/types"
	"github.com/xaionaro-go/streamvad/pkg/vad/config"
	"github.com/xaionaro-go/streamvad/pkg/vad/model"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer"
	"github.com/xaionaro-go/streamvad/pkg/vad/scorer/webrtcfvad"
	"github.com/xaionaro-go/streamvad/pkg/vad/segment"
)

// chunkBytes is 100ms of 16kHz s16le mono PCM; decode is chunk-size
// independent (see pkg/vad/segment's property test) so this is chosen for
// a reasonable read granularity, not correctness.
const chunkBytes = 3200

func main() {
	loggerLevel := logger.LevelDebug
	pflag.Var(&loggerLevel, "log-level", "Log level")
	modelPath := pflag.String("model", "", "path to the ONNX VAD model (ignored for --backend webrtc-fvad)")
	backend := pflag.String("backend", "silero-v4", "backend kind: silero-v4, silero-v5, fsmn, ten, webrtc-fvad")
	sampleRate := pflag.Int("sample-rate", 16000, "PCM sample rate in Hz")
	threshold := pflag.Float64("threshold", 0.4, "speech probability threshold")
	inputPath := pflag.String("input", "", "raw s16le mono PCM file to read (defaults to stdin)")
	numThreads := pflag.Int("threads", 1, "ONNX Runtime intra/inter-op thread count")
	deviceID := pflag.Int("device-id", -1, "CUDA device id, or -1 for CPU")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	logger.Infof(ctx, "starting vadstream with backend %q", *backend)
	handle, err := openHandle(ctx, *backend, *modelPath, *numThreads, *deviceID)
	assertNoError(err)
	defer handle.Close()

	instance, err := handle.Init(config.Config{
		Threshold:  *threshold,
		SampleRate: *sampleRate,
	})
	assertNoError(err)
	defer instance.Close()

	in := io.Reader(os.Stdin)
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		assertNoError(err)
		defer f.Close()
		in = f
	}
	rc := datacounter.NewReaderCounter(in)

	observability.Go(ctx, func(ctx context.Context) {
		logger.Tracef(ctx, "started the throughput printer loop")
		t := time.NewTicker(time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				logger.Debugf(ctx, "read: %d bytes", rc.Count())
			}
		}
	})

	format := types.PCMFormatS16LE
	raw := make([]byte, chunkBytes)
	samples := make([]float32, chunkBytes/format.Size())
	for {
		n, readErr := rc.Read(raw)
		isLast := readErr == io.EOF
		if n > 0 {
			m, err := pcm.ToFloat32(format, raw[:n], samples)
			assertNoError(err)
			segs, err := instance.Decode(samples[:m], isLast)
			assertNoError(err)
			printSegments(segs)
		}
		if isLast {
			break
		}
		if readErr != nil {
			assertNoError(readErr)
		}
	}

	if seg := instance.Flush(); seg.Idx >= 0 {
		printSegments([]segment.Segment{seg})
	}
}

func openHandle(ctx context.Context, backend, modelPath string, numThreads, deviceID int) (*model.Handle, error) {
	if backend == string(scorer.KindWebRTCFVAD) {
		return model.NewHandleFromScorer(scorer.KindWebRTCFVAD, func(sampleRate int) (scorer.Scorer, error) {
			return webrtcfvad.New(sampleRate, 30, webrtcfvad.ModeAggressive)
		}), nil
	}
	if modelPath == "" {
		return nil, fmt.Errorf("vadstream: --model is required for backend %q", backend)
	}
	return model.Create(ctx, modelPath, numThreads, deviceID)
}

func printSegments(segs []segment.Segment) {
	for _, s := range segs {
		fmt.Printf("segment idx=%d start=%d end=%d start_ms=%d end_ms=%d\n", s.Idx, s.Start, s.End, s.StartMs, s.EndMs)
	}
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
