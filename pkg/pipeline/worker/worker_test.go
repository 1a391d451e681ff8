package worker_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/shpitdev/ensembl-homology-pipeline/pkg/pipeline/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestProcessAll_PartialOutputContinues(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, gene string) (string, error) {
		if gene == "ENSG_BAD" {
			return "", errors.New("boom")
		}
		return "ok", nil
	}

	out, err := worker.ProcessAll(context.Background(), []string{"ENSG_BAD", "ENSG_GOOD"}, fn, worker.Options{Workers: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(out))
	}
	if out[0].Err == nil || out[0].Err.Error() != "boom" || out[0].Index != 0 {
		t.Fatalf("unexpected out[0]: %#v", out[0])
	}
	if out[1].Err != nil || out[1].Output != "ok" || out[1].Index != 1 {
		t.Fatalf("unexpected out[1]: %#v", out[1])
	}
}

func TestProcessAll_DefaultIsSequential(t *testing.T) {
	t.Parallel()

	var inFlight, maxInFlight atomic.Int32
	var mu sync.Mutex
	var order []int

	fn := func(_ context.Context, n int) (int, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
		return n * 2, nil
	}

	items := []int{0, 1, 2, 3, 4, 5}
	out, err := worker.ProcessAll(context.Background(), items, fn, worker.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := maxInFlight.Load(); got != 1 {
		t.Fatalf("expected at most 1 call in flight, got %d", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(order, items) {
		t.Fatalf("expected input-order processing, got %v", order)
	}
	for i, r := range out {
		if r.Output != i*2 {
			t.Fatalf("out[%d]=%d want %d", i, r.Output, i*2)
		}
	}
}

func TestProcessAll_ResultsAlignedWithInputUnderConcurrency(t *testing.T) {
	t.Parallel()

	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	fn := func(_ context.Context, n int) (int, error) {
		// Later items finish first.
		time.Sleep(time.Duration(len(items)-n) * 100 * time.Microsecond)
		return n, nil
	}

	out, err := worker.ProcessAll(context.Background(), items, fn, worker.Options{Workers: 8})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range out {
		if r.Index != i || r.Input != i || r.Output != i {
			t.Fatalf("out[%d] misaligned: %#v", i, r)
		}
	}
}

func TestProcessAll_AppliesRequestTimeout(t *testing.T) {
	t.Parallel()

	fn := func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	out, err := worker.ProcessAll(context.Background(), []string{"ENSG0001"}, fn, worker.Options{
		Workers:        1,
		RequestTimeout: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(out[0].Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", out[0].Err)
	}
}

func TestProcessAll_RateLimit(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, s string) (string, error) { return s, nil }

	start := time.Now()
	_, err := worker.ProcessAll(context.Background(), []string{"a", "b", "c"}, fn, worker.Options{
		Workers:      3,
		RateLimitRPS: 50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Burst of 1 at 50 rps: the 2nd and 3rd calls wait ~20ms each.
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Fatalf("expected rate limiting to delay calls, finished in %s", elapsed)
	}
}

func TestProcessAll_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := worker.ProcessAll(ctx, []string{"a", "b"}, func(_ context.Context, s string) (string, error) {
		return s, nil
	}, worker.Options{Workers: 1})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestProcessAllWithCallback_CompletesInCompletionOrder(t *testing.T) {
	t.Parallel()

	releaseSlow := make(chan struct{})
	startedSlow := make(chan struct{})
	var firstCallbackInput atomic.Value
	firstCallbackInput.Store("")

	fn := func(_ context.Context, gene string) (string, error) {
		if gene == "ENSG_SLOW" {
			close(startedSlow)
			<-releaseSlow
		}
		return gene, nil
	}

	var mu sync.Mutex
	var seen []string
	doneErr := make(chan error, 1)
	go func() {
		_, err := worker.ProcessAllWithCallback(
			context.Background(),
			[]string{"ENSG_SLOW", "ENSG_FAST"},
			fn,
			func(res worker.Result[string, string]) error {
				mu.Lock()
				defer mu.Unlock()
				seen = append(seen, res.Input)
				if len(seen) == 1 {
					firstCallbackInput.Store(res.Input)
				}
				return nil
			},
			worker.Options{Workers: 2},
		)
		doneErr <- err
	}()

	select {
	case <-startedSlow:
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for slow task to start")
	}

	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) {
		if firstCallbackInput.Load().(string) == "ENSG_FAST" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := firstCallbackInput.Load().(string); got != "ENSG_FAST" {
		t.Fatalf("expected fast callback first, got %q", got)
	}

	close(releaseSlow)
	select {
	case err := <-doneErr:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for completion")
	}

	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(seen, []string{"ENSG_FAST", "ENSG_SLOW"}) {
		t.Fatalf("unexpected callback order: %v", seen)
	}
}

func TestProcessAllWithCallback_CallbackErrorStopsRun(t *testing.T) {
	t.Parallel()

	callbackErr := errors.New("callback failed")
	_, err := worker.ProcessAllWithCallback(
		context.Background(),
		[]string{"ENSG0001"},
		func(_ context.Context, gene string) (string, error) {
			return gene, nil
		},
		func(worker.Result[string, string]) error {
			return callbackErr
		},
		worker.Options{Workers: 1},
	)
	if !errors.Is(err, callbackErr) {
		t.Fatalf("expected callback error, got %v", err)
	}
}
