package buffers

import "testing"

func TestPoolSizes(t *testing.T) {
	p := NewBufferPool(100)
	b := p.Get()
	if len(b) != 100 {
		t.Fatalf("len = %d", len(b))
	}
	p.Put(b[:10])
	if got := p.Get(); len(got) != 100 {
		t.Fatalf("resliced buffer came back with len %d", len(got))
	}
	p.Put(make([]byte, 5)) // too small, dropped
	if got := p.Get(); len(got) != 100 {
		t.Fatalf("undersized buffer was pooled")
	}
}

func TestForSize(t *testing.T) {
	if ForSize(DefaultChunkSize) != ChunkPool {
		t.Fatalf("default chunk size should share ChunkPool")
	}
	if p := ForSize(64); p == ChunkPool || p.Size() != 64+ChunkSlack {
		t.Fatalf("unexpected pool for 64-byte chunks")
	}
}
