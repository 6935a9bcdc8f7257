package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDs_Order(t *testing.T) {
	gen := NewSequentialIDs("write")

	assert.Equal(t, "write-1", gen.Generate())
	assert.Equal(t, "write-2", gen.Generate())
	assert.Equal(t, "write-3", gen.Generate())
}

func TestSequentialIDs_DefaultPrefix(t *testing.T) {
	gen := NewSequentialIDs("")
	assert.Equal(t, "id-1", gen.Generate())
}

func TestSequentialIDs_Reset(t *testing.T) {
	gen := NewSequentialIDs("w")
	gen.Generate()
	gen.Generate()

	gen.Reset()
	assert.Equal(t, "w-1", gen.Generate())
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDs("t")

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every ID must be unique")
}
