package agent

import (
	"context"
	"time"
)

// fakeInvoker returns canned responses and records prompts
type fakeInvoker struct {
	response string
	prompts  []string
}

func (f *fakeInvoker) Invoke(ctx context.Context, prompt string) string {
	f.prompts = append(f.prompts, prompt)
	return f.response
}

// fakeSearcher returns a canned evidence block
type fakeSearcher struct {
	block string
}

func (f *fakeSearcher) Aggregate(ctx context.Context, claim string) string {
	return f.block
}

func newTestAgents(inv Invoker, s Searcher) *Agents {
	a := New(inv, s, nil)
	a.now = func() time.Time { return time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC) }
	return a
}
