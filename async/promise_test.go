package async

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ExamplePromise_Wait() {
	var p = make(Promise)

	go func() {
		time.Sleep(10 * time.Millisecond)
		fmt.Println("Store reset completes.")
		p.Resolve()
	}()

	fmt.Println("Waiting on reset.")
	p.Wait()
	fmt.Println("Purge may begin.")

	// Output:
	// Waiting on reset.
	// Store reset completes.
	// Purge may begin.
}

func TestResolvedAndWaitWithContext(t *testing.T) {
	var p = make(Promise)
	assert.False(t, p.Resolved())

	var ctx, cancel = context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	assert.Equal(t, context.DeadlineExceeded, p.WaitWithContext(ctx))

	p.Resolve()
	assert.True(t, p.Resolved())
	assert.NoError(t, p.WaitWithContext(context.Background()))
}
