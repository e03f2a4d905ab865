package benchmark

import (
	"context"
	"fmt"
	"time"

	"blockmode-go/pkg/blockmode"
	"blockmode-go/pkg/buffers"
)

// FairnessResults describes how evenly Tasks served a set of handles that
// all kept work queued.
type FairnessResults struct {
	Handles    int
	Iterations int
	// Rounds is the number of Tasks calls until every handle finished.
	Rounds int
	// MaxLag is the largest gap in completed calls between two handles
	// seen at any point.
	MaxLag int
	// Index is Jain's fairness index of the completed calls at the moment
	// the first handle finished; 1 is perfectly even.
	Index     float64
	Loads     uint64
	TotalTime time.Duration
}

// Fairness keeps opts.Handles hardware handles busy with opts.Iterations
// Encrypt calls each and drives them with Tasks.
func Fairness(ctx context.Context, opts *Options) (*FairnessResults, error) {
	if opts.Handles <= 0 || opts.Iterations <= 0 {
		return nil, fmt.Errorf("fairness: handles and iterations must be positive")
	}
	hwOpts := *opts
	hwOpts.Target = TargetHardware
	e, dev := newEngine(&hwOpts, opts.Handles)

	pool := buffers.ForSize(opts.ChunkSize)
	src := make([]byte, opts.ChunkSize)
	hs := make([]blockmode.Handle, opts.Handles)
	dst := make([][]byte, opts.Handles)
	for i := range hs {
		h, err := openHandle(ctx, e, opts.Mode)
		if err != nil {
			return nil, fmt.Errorf("fairness: %w", err)
		}
		hs[i] = h
		dst[i] = pool.Get()
		defer pool.Put(dst[i])
		defer e.Close(h)
	}

	done := make([]int, len(hs))
	staged := make([]bool, len(hs))
	res := &FairnessResults{Handles: len(hs), Iterations: opts.Iterations}
	start := time.Now()
	for {
		finished := 0
		for i, h := range hs {
			switch e.State(h) {
			case blockmode.StateError:
				return nil, fmt.Errorf("fairness: handle %d: %w", i, e.Err(h))
			case blockmode.StateIdle:
				if staged[i] {
					staged[i] = false
					done[i]++
				}
				if done[i] == opts.Iterations {
					finished++
					continue
				}
				if _, err := e.Encrypt(h, dst[i], src, 0); err != nil {
					return nil, fmt.Errorf("fairness: handle %d: %w", i, err)
				}
				staged[i] = true
			}
		}
		lo, hi := done[0], done[0]
		for _, d := range done {
			lo, hi = min(lo, d), max(hi, d)
		}
		res.MaxLag = max(res.MaxLag, hi-lo)
		if hi == opts.Iterations && res.Index == 0 {
			res.Index = jainIndex(done)
		}
		if finished == len(hs) {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.Tasks()
		res.Rounds++
	}
	res.TotalTime = time.Since(start)
	res.Loads = dev.Stats().Loads
	return res, nil
}

func jainIndex(xs []int) float64 {
	var sum, sq float64
	for _, x := range xs {
		sum += float64(x)
		sq += float64(x) * float64(x)
	}
	if sq == 0 {
		return 0
	}
	return sum * sum / (float64(len(xs)) * sq)
}

func PrintFairness(r *FairnessResults) {
	fmt.Printf("=== scheduler fairness: %d handles x %d calls ===\n", r.Handles, r.Iterations)
	fmt.Printf("Tasks rounds: %d  key loads: %d  total: %v\n", r.Rounds, r.Loads, r.TotalTime)
	fmt.Printf("Max lag: %d calls  Jain index: %.4f\n", r.MaxLag, r.Index)
}
