// Package benchmark measures per-call latency and throughput of the block
// modes on the software engine and the simulated hardware engine, and how
// evenly the scheduler serves concurrent handles.
package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"slices"
	"time"

	"blockmode-go/pkg/blockmode"
	"blockmode-go/pkg/buffers"
	"blockmode-go/pkg/hwsim"
	"blockmode-go/pkg/log"
	"blockmode-go/pkg/primitive"
)

// Target selects the engine under test.
type Target int

const (
	TargetSoftware Target = iota
	TargetHardware
)

func (t Target) String() string {
	switch t {
	case TargetSoftware:
		return "software"
	case TargetHardware:
		return "hardware"
	default:
		return "unknown"
	}
}

type Options struct {
	Target     Target
	Mode       blockmode.Mode
	Iterations int
	ChunkSize  int
	// Handles is used by Fairness.
	Handles int
	// Latency is the simulated peripheral busy time in polls.
	Latency int
}

func DefaultOptions() *Options {
	return &Options{
		Target:     TargetSoftware,
		Mode:       blockmode.ModeCBC,
		Iterations: 1000,
		ChunkSize:  buffers.DefaultChunkSize,
		Handles:    4,
		Latency:    2,
	}
}

// Results holds the per-call latencies of one run.
type Results struct {
	Target        Target
	Mode          blockmode.Mode
	ChunkSize     int
	Calls         int
	Bytes         int64
	MinLatency    time.Duration
	MaxLatency    time.Duration
	AvgLatency    time.Duration
	MedianLatency time.Duration
	P95Latency    time.Duration
	P99Latency    time.Duration
	TotalTime     time.Duration
	// Polls and Loads are peripheral counters; zero in software.
	Polls uint64
	Loads uint64
}

// Throughput is in MiB/s.
func (r *Results) Throughput() float64 {
	if r.TotalTime <= 0 {
		return 0
	}
	return float64(r.Bytes) / (1 << 20) / r.TotalTime.Seconds()
}

func newEngine(opts *Options, handles int) (*blockmode.Engine, *hwsim.Peripheral) {
	cfg := blockmode.DefaultConfig()
	cfg.Handles = max(handles, 1)
	if opts.Target == TargetSoftware {
		return blockmode.NewSoftware(cfg), nil
	}
	dev := hwsim.New(hwsim.Config{Latency: opts.Latency})
	return blockmode.NewHardware(dev, cfg), dev
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}

func modeParams(m blockmode.Mode) blockmode.Params {
	p := blockmode.Params{Mode: m, Key: primitive.AESKey(randomBytes(16))}
	switch m {
	case blockmode.ModeECB:
	case blockmode.ModeGCM:
		p.IV = randomBytes(12)
	default:
		p.IV = randomBytes(16)
	}
	return p
}

func openHandle(ctx context.Context, e *blockmode.Engine, m blockmode.Mode) (blockmode.Handle, error) {
	h, err := e.Open()
	if err != nil {
		return h, err
	}
	if err := e.Initialize(h, modeParams(m)); err != nil {
		return h, err
	}
	return h, e.Wait(ctx, h)
}

// encrypt runs one Encrypt call on either engine.
func encrypt(ctx context.Context, e *blockmode.Engine, h blockmode.Handle, dst, src []byte) error {
	if _, err := e.Encrypt(h, dst, src, 0); err != nil {
		return err
	}
	return e.Wait(ctx, h)
}

// Run encrypts Iterations chunks on one handle and times every call.
func Run(ctx context.Context, opts *Options) (*Results, error) {
	if opts.Iterations <= 0 || opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("benchmark: iterations and chunk size must be positive")
	}
	e, dev := newEngine(opts, 1)
	h, err := openHandle(ctx, e, opts.Mode)
	if err != nil {
		return nil, fmt.Errorf("benchmark: %w", err)
	}
	defer e.Close(h)

	pool := buffers.ForSize(opts.ChunkSize)
	src := pool.Get()[:opts.ChunkSize]
	dst := pool.Get()
	defer pool.Put(src)
	defer pool.Put(dst)
	rand.Read(src)

	latencies := make([]time.Duration, 0, opts.Iterations)
	var total int64
	start := time.Now()
	for i := 0; i < opts.Iterations; i++ {
		t0 := time.Now()
		if err := encrypt(ctx, e, h, dst, src); err != nil {
			return nil, fmt.Errorf("benchmark: call %d: %w", i, err)
		}
		latencies = append(latencies, time.Since(t0))
		total += int64(e.Processed(h))
	}

	r := calculateStats(latencies, time.Since(start))
	r.Target = opts.Target
	r.Mode = opts.Mode
	r.ChunkSize = opts.ChunkSize
	r.Bytes = total
	if dev != nil {
		r.Polls = dev.Stats().Polls
		r.Loads = dev.Stats().Loads
	}
	return r, nil
}

func calculateStats(latencies []time.Duration, totalTime time.Duration) *Results {
	r := &Results{Calls: len(latencies), TotalTime: totalTime}
	if len(latencies) == 0 {
		return r
	}
	slices.Sort(latencies)

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	r.MinLatency = latencies[0]
	r.MaxLatency = latencies[len(latencies)-1]
	r.AvgLatency = sum / time.Duration(len(latencies))
	r.MedianLatency = latencies[len(latencies)/2]
	r.P95Latency = latencies[(len(latencies)*95)/100]
	r.P99Latency = latencies[(len(latencies)*99)/100]
	return r
}

// RunAll benchmarks every mode on both targets. Failed runs are logged and
// skipped.
func RunAll(ctx context.Context, base *Options) []*Results {
	var results []*Results
	for _, target := range []Target{TargetSoftware, TargetHardware} {
		for _, m := range blockmode.Modes() {
			opts := *base
			opts.Target = target
			opts.Mode = m
			log.Debug().Str("target", target.String()).Str("mode", m.String()).Msg("benchmark: running")
			r, err := Run(ctx, &opts)
			if err != nil {
				log.Error().Err(err).Str("target", target.String()).Str("mode", m.String()).Msg("benchmark: run failed")
				continue
			}
			results = append(results, r)
		}
	}
	return results
}

func PrintResults(r *Results) {
	fmt.Printf("=== %s / %s, %d-byte chunks ===\n", r.Target, r.Mode, r.ChunkSize)
	fmt.Printf("Calls: %d  Bytes: %d  Total: %v  Throughput: %.2f MiB/s\n", r.Calls, r.Bytes, r.TotalTime, r.Throughput())
	fmt.Printf("Latency min/avg/median: %v / %v / %v\n", r.MinLatency, r.AvgLatency, r.MedianLatency)
	fmt.Printf("Latency p95/p99/max: %v / %v / %v\n", r.P95Latency, r.P99Latency, r.MaxLatency)
	if r.Target == TargetHardware {
		fmt.Printf("Peripheral polls: %d  key loads: %d\n", r.Polls, r.Loads)
	}
}

// SaveResultsToFile writes results as CSV.
func SaveResultsToFile(results []*Results, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(f, "Target,Mode,ChunkSize,Calls,Bytes,MinLatency,AvgLatency,MedianLatency,P95Latency,P99Latency,MaxLatency,TotalTime,MiBps,Polls,Loads")
	for _, r := range results {
		fmt.Fprintf(f, "%s,%s,%d,%d,%d,%d,%d,%d,%d,%d,%d,%d,%.3f,%d,%d\n",
			r.Target, r.Mode, r.ChunkSize, r.Calls, r.Bytes,
			r.MinLatency.Nanoseconds(),
			r.AvgLatency.Nanoseconds(),
			r.MedianLatency.Nanoseconds(),
			r.P95Latency.Nanoseconds(),
			r.P99Latency.Nanoseconds(),
			r.MaxLatency.Nanoseconds(),
			r.TotalTime.Nanoseconds(),
			r.Throughput(), r.Polls, r.Loads)
	}
	return f.Close()
}
