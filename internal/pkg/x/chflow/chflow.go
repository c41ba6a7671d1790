// Package chflow holds channel helpers that give up when a context is done.
package chflow

import "context"

// Receive returns the next value of ch. ok is false when ch is closed or ctx is done first.
func Receive[T any](ctx context.Context, ch <-chan T) (v T, ok bool) {
	select {
	case <-ctx.Done():
		return v, false
	case v, ok = <-ch:
		return v, ok
	}
}

// Send delivers v on ch and reports false if ctx was done before ch accepted it.
func Send[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- v:
		return true
	}
}

// Forward relays fn(v) for every v read from in to out. It returns once in is closed or
// ctx is done. out is left open.
func Forward[T, U any](ctx context.Context, in <-chan T, out chan<- U, fn func(T) U) {
	for {
		v, ok := Receive(ctx, in)
		if !ok {
			return
		}

		if !Send(ctx, out, fn(v)) {
			return
		}
	}
}
