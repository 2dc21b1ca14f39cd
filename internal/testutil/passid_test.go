package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedPassIDs(t *testing.T) {
	gen := NewFixedPassIDs("pass-richdocuments")
	assert.Equal(t, "pass-richdocuments", gen.Generate())
	assert.Equal(t, "pass-richdocuments", gen.Generate())

	assert.Equal(t, DefaultPassID, NewFixedPassIDs("").Generate())
}

func TestFixedPassIDs_ThreadSafe(t *testing.T) {
	gen := NewFixedPassIDs("shared")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}
