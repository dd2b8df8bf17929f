package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSingleFlight_DedupesConcurrentFetches(t *testing.T) {
	var g SingleFlight
	var calls atomic.Int32
	var shared atomic.Int32

	const workers = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err, wasShared := g.Do("espn:nba", func() (any, error) {
				calls.Add(1)
				time.Sleep(20 * time.Millisecond)
				return []byte(`{"events":[]}`), nil
			})
			if err != nil {
				t.Errorf("singleflight call failed: %v", err)
			}
			if _, ok := v.([]byte); !ok {
				t.Errorf("unexpected value type %T", v)
			}
			if wasShared {
				shared.Add(1)
			}
		}()
	}

	close(start)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected upstream to be hit once, got %d", got)
	}
	if got := shared.Load(); got != workers-1 {
		t.Fatalf("expected %d shared results, got %d", workers-1, got)
	}
}

func TestSingleFlight_ReleasesKeyAfterCompletion(t *testing.T) {
	var g SingleFlight
	var calls int

	for i := 0; i < 3; i++ {
		if _, _, shared := g.Do("propgen:nhl", func() (any, error) {
			calls++
			return nil, nil
		}); shared {
			t.Fatalf("sequential calls must not be shared")
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 sequential executions, got %d", calls)
	}
}

func TestSingleFlight_DoChanSharesOneCall(t *testing.T) {
	var g SingleFlight
	var calls atomic.Int32
	release := make(chan struct{})
	fn := func() (any, error) {
		calls.Add(1)
		<-release
		return "payload", nil
	}

	first := g.DoChan("espn:nba", fn)
	second := g.DoChan("espn:nba", fn)

	select {
	case <-first:
		t.Fatalf("call finished before release")
	case <-second:
		t.Fatalf("call finished before release")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)

	for _, ch := range []<-chan Result{first, second} {
		res := <-ch
		if res.Err != nil || res.Val != "payload" {
			t.Fatalf("unexpected result: %+v", res)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
}
