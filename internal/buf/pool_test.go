package buf

import "testing"

func TestAllocFree(t *testing.T) {
	sizes := []int{32, 512, 4096, 16384, 65536, 262144, 1048576, 4194304}

	for _, size := range sizes {
		b := alloc(size)
		if len(b) != size {
			t.Errorf("expected size %d, got %d", size, len(b))
		}
		for i := range b {
			b[i] = byte(i % 256)
		}
		free(b)

		b2 := alloc(size)
		if len(b2) != size {
			t.Errorf("expected size %d, got %d", size, len(b2))
		}
		free(b2)
	}
}

func TestAllocOversized(t *testing.T) {
	size := Size16M + 1024
	b := alloc(size)
	if len(b) != size {
		t.Errorf("expected size %d, got %d", size, len(b))
	}
	free(b) // must not panic even though it isn't pool-backed
}

func TestFreeNil(t *testing.T) {
	free(nil) // must not panic
}
