package selftest

import (
	"context"
	"errors"
	"testing"

	"blockmode-go/pkg/blockmode"
	"blockmode-go/pkg/hwsim"
)

func TestVectorsPassOnBothEngines(t *testing.T) {
	engines := map[string]*blockmode.Engine{
		"software": blockmode.NewSoftware(blockmode.DefaultConfig()),
		"hardware": blockmode.NewHardware(hwsim.New(hwsim.DefaultConfig()), blockmode.DefaultConfig()),
	}
	for name, e := range engines {
		results, err := Run(context.Background(), e, Vectors())
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(results) != len(Vectors()) {
			t.Fatalf("%s: %d results", name, len(results))
		}
		for _, r := range results {
			if !r.Passed() {
				t.Errorf("%s: %s: %v", name, r.Vector.Name, r.Err)
			}
		}
	}
}

func TestMismatchIsReported(t *testing.T) {
	v := Vectors()[0]
	v.CT = "00" + v.CT[2:]
	results, err := Run(context.Background(), blockmode.NewSoftware(blockmode.DefaultConfig()), []Vector{v})
	if err != nil {
		t.Fatal(err)
	}
	if !errors.Is(results[0].Err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", results[0].Err)
	}

	bad := Vectors()[7]
	bad.Tag = "00" + bad.Tag[2:]
	results, _ = Run(context.Background(), blockmode.NewSoftware(blockmode.DefaultConfig()), []Vector{bad})
	if results[0].Passed() {
		t.Fatalf("wrong tag accepted")
	}
}

func TestRunHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := Run(ctx, blockmode.NewSoftware(blockmode.DefaultConfig()), Vectors())
	if !errors.Is(err, context.Canceled) || len(results) != 0 {
		t.Fatalf("got %d results, err %v", len(results), err)
	}
}
