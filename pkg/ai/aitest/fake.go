// Package aitest provides a scriptable ai.GraphAIClient for tests.
package aitest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/ai"
)

// FakeClient answers oracle calls with the configured functions. Unset
// functions return empty output. Calls are recorded and safe for
// concurrent use.
type FakeClient struct {
	// Complete handles GenerateCompletion and GenerateChat. For chats the
	// prompt is the last message.
	Complete func(ctx context.Context, prompt string) (string, error)
	// Structured returns the raw JSON decoded into out by
	// GenerateCompletionWithFormat.
	Structured func(ctx context.Context, prompt string) (string, error)
	// Load handles LoadModel.
	Load func(ctx context.Context, model string) error

	mu      sync.Mutex
	prompts []string
	options []ai.GenerateOptions
	chats   int
	loaded  []string
	metrics ai.MetricsRecorder
}

func (f *FakeClient) record(prompt string, opts []ai.GenerateOption) {
	var options ai.GenerateOptions
	for _, o := range opts {
		o(&options)
	}
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.options = append(f.options, options)
	f.mu.Unlock()
	f.metrics.Add(ai.ModelMetrics{InputTokens: len(prompt), TotalTokens: len(prompt)})
}

// Prompts returns every prompt received so far, in arrival order.
func (f *FakeClient) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// Calls returns the number of oracle calls received so far.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// Options returns the resolved options of every call, in arrival order.
func (f *FakeClient) Options() []ai.GenerateOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ai.GenerateOptions(nil), f.options...)
}

// Chats returns how many calls arrived through GenerateChat.
func (f *FakeClient) Chats() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chats
}

// Loaded returns the models passed to LoadModel.
func (f *FakeClient) Loaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.loaded...)
}

func (f *FakeClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.record(prompt, opts)
	if f.Complete == nil {
		return "", nil
	}
	return f.Complete(ctx, prompt)
}

func (f *FakeClient) GenerateCompletionWithFormat(
	ctx context.Context,
	name string,
	description string,
	prompt string,
	out any,
	opts ...ai.GenerateOption,
) error {
	f.record(prompt, opts)
	if f.Structured == nil {
		return json.Unmarshal([]byte("{}"), out)
	}
	raw, err := f.Structured(ctx, prompt)
	if err != nil {
		return err
	}
	return ai.UnmarshalFlexible(raw, out)
}

func (f *FakeClient) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Message
	}
	f.mu.Lock()
	f.chats++
	f.mu.Unlock()
	return f.GenerateCompletion(ctx, prompt, opts...)
}

func (f *FakeClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	var options ai.GenerateOptions
	for _, o := range opts {
		o(&options)
	}
	f.mu.Lock()
	f.loaded = append(f.loaded, options.Model)
	f.mu.Unlock()
	if f.Load == nil {
		return nil
	}
	return f.Load(ctx, options.Model)
}

func (f *FakeClient) ResetMetrics()                { f.metrics.Reset() }
func (f *FakeClient) GetMetrics() ai.ModelMetrics { return f.metrics.Snapshot() }
