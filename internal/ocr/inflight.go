package ocr

import "context"

type callResult struct {
	words []rawWord
	err   error
}

// callLimiter bounds calls that cannot be interrupted. A call abandoned by
// its caller still holds its slot until it returns.
type callLimiter struct {
	slots chan struct{}
}

func newCallLimiter(n int) *callLimiter {
	if n < 1 {
		n = 1
	}
	return &callLimiter{slots: make(chan struct{}, n)}
}

// do runs fn in its own goroutine and waits for it or for ctx, whichever
// ends first.
func (l *callLimiter) do(ctx context.Context, fn func() ([]rawWord, error)) ([]rawWord, error) {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	done := make(chan callResult, 1)
	go func() {
		defer func() { <-l.slots }()
		words, err := fn()
		done <- callResult{words: words, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.words, res.err
	}
}
