package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kiwi/graphrag/internal/util"
)

// CallPolicy controls retries and the per-attempt timeout of oracle calls.
type CallPolicy struct {
	MaxRetries int
	Timeout    time.Duration
	Backoff    util.Backoff
}

// attemptTimeoutError deliberately does not unwrap to context.DeadlineExceeded
// so the retry helpers treat it as a regular failure.
type attemptTimeoutError struct {
	timeout time.Duration
}

func (e *attemptTimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %s", e.timeout)
}

func (p CallPolicy) attempt(ctx context.Context, fn func(context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	err := fn(callCtx)
	if err != nil && ctx.Err() == nil && callCtx.Err() == context.DeadlineExceeded {
		return &attemptTimeoutError{timeout: p.Timeout}
	}
	return err
}

// Complete runs a single-prompt completion under policy. Failures, including
// attempts running past the timeout, come back as *OracleCallError.
func Complete(
	ctx context.Context,
	client GraphAIClient,
	policy CallPolicy,
	op string,
	prompt string,
	opts ...GenerateOption,
) (string, error) {
	out, err := util.RetryWithBackoff(ctx, policy.MaxRetries, policy.Backoff, func(ctx context.Context) (string, error) {
		var resp string
		err := policy.attempt(ctx, func(ctx context.Context) error {
			var err error
			resp, err = client.GenerateCompletion(ctx, prompt, opts...)
			return err
		})
		return resp, err
	})
	if err != nil {
		return "", &OracleCallError{Op: op, Err: err}
	}
	return out, nil
}

// Chat is Complete for a conversation.
func Chat(
	ctx context.Context,
	client GraphAIClient,
	policy CallPolicy,
	op string,
	messages []ChatMessage,
	opts ...GenerateOption,
) (string, error) {
	out, err := util.RetryWithBackoff(ctx, policy.MaxRetries, policy.Backoff, func(ctx context.Context) (string, error) {
		var resp string
		err := policy.attempt(ctx, func(ctx context.Context) error {
			var err error
			resp, err = client.GenerateChat(ctx, messages, opts...)
			return err
		})
		return resp, err
	})
	if err != nil {
		return "", &OracleCallError{Op: op, Err: err}
	}
	return out, nil
}

// CompleteWithFormat is Complete for structured output decoded into out.
func CompleteWithFormat(
	ctx context.Context,
	client GraphAIClient,
	policy CallPolicy,
	op string,
	name string,
	description string,
	prompt string,
	out any,
	opts ...GenerateOption,
) error {
	_, err := util.RetryWithBackoff(ctx, policy.MaxRetries, policy.Backoff, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, policy.attempt(ctx, func(ctx context.Context) error {
			return client.GenerateCompletionWithFormat(ctx, name, description, prompt, out, opts...)
		})
	})
	if err != nil {
		return &OracleCallError{Op: op, Err: err}
	}
	return nil
}
