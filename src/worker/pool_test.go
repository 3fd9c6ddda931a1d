package worker

import (
	"sync"
	"testing"
	"time"

	"ai-text-assist/src/inject"
	"ai-text-assist/src/windowctx"
)

type fakeDeliverer struct {
	mu      sync.Mutex
	texts   []string
	block   chan struct{}
	results inject.Result
}

func (f *fakeDeliverer) Inject(text string, target *windowctx.Context) inject.Result {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.mu.Unlock()
	return f.results
}

func TestSubmitDeliversAndCallsBack(t *testing.T) {
	d := &fakeDeliverer{results: inject.Result{Success: true, Method: inject.MethodClipboard}}
	p := New(1, d)
	defer p.Close()

	done := make(chan inject.Result, 1)
	if !p.Submit("hello", nil, func(res inject.Result) { done <- res }) {
		t.Fatal("Submit returned false on empty queue")
	}

	select {
	case res := <-done:
		if !res.Success {
			t.Errorf("Expected successful result, got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for callback")
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.texts) != 1 || d.texts[0] != "hello" {
		t.Errorf("Delivered texts = %v", d.texts)
	}
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	d := &fakeDeliverer{block: make(chan struct{})}
	p := New(1, d)

	// First job occupies the worker, second fills the 1-slot queue.
	p.Submit("one", nil, nil)
	// Give the worker a moment to pick up the first job so the slot frees.
	time.Sleep(50 * time.Millisecond)
	if !p.Submit("two", nil, nil) {
		t.Fatal("Second Submit should fill the queue slot")
	}
	if p.Submit("three", nil, nil) {
		t.Error("Third Submit should be dropped while queue is full")
	}

	close(d.block)
	p.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.texts) != 2 {
		t.Errorf("Expected 2 delivered jobs, got %v", d.texts)
	}
}

func TestCloseDrainsPendingWork(t *testing.T) {
	d := &fakeDeliverer{}
	p := New(1, d)
	p.Submit("pending", nil, nil)
	p.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.texts) != 1 {
		t.Errorf("Expected pending job delivered before close, got %v", d.texts)
	}
}
