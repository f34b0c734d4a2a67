package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imann24/ai-browser-agent/pkg/browser"
	"github.com/imann24/ai-browser-agent/pkg/config"
	"github.com/imann24/ai-browser-agent/pkg/llm"
	"github.com/imann24/ai-browser-agent/pkg/types"
)

// scriptedProvider replays canned responses; the last response repeats
// once the script runs out. It records every Complete call.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []string
	calls     [][]*types.Message
	err       error
	blockCtx  bool
}

func (p *scriptedProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.mu.Lock()
	snapshot := append([]*types.Message(nil), messages...)
	p.calls = append(p.calls, snapshot)
	call := len(p.calls) - 1
	p.mu.Unlock()

	if p.blockCtx {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}

	idx := call
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	return types.NewAssistantMessage(p.responses[idx]), nil
}

func (p *scriptedProvider) GetModel() string   { return "scripted" }
func (p *scriptedProvider) GetBaseURL() string { return "" }

func (p *scriptedProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// fakeDriver records navigations and serves canned page content.
type fakeDriver struct {
	mu          sync.Mutex
	navigations []string
	navErr      error
	content     string
	closeCount  int
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.navErr != nil {
		return d.navErr
	}
	d.navigations = append(d.navigations, url)
	return nil
}

func (d *fakeDriver) Content(ctx context.Context) (string, error) {
	return d.content, nil
}

func (d *fakeDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), nil
}

func (d *fakeDriver) URL() string { return "" }

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCount++
	return nil
}

func (d *fakeDriver) navigationCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.navigations)
}

// recorder collects callback invocations.
type recorder struct {
	mu          sync.Mutex
	progress    []string
	screenshots []string
}

func (r *recorder) callbacks() *types.TaskCallbacks {
	return &types.TaskCallbacks{
		OnProgress: func(text string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.progress = append(r.progress, text)
		},
		OnScreenshot: func(image []byte, description string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.screenshots = append(r.screenshots, description)
		},
	}
}

func (r *recorder) progressLines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.progress...)
}

func newTestAgent(t *testing.T, provider llm.Provider, driver *fakeDriver, opts ...Option) *Agent {
	t.Helper()
	session := browser.NewSession(
		func() (browser.Driver, error) { return driver, nil },
		browser.WithSettleDelay(0),
	)
	t.Cleanup(session.Close)
	return NewAgent(provider, session, opts...)
}

func TestRunTaskFinishImmediately(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"action":"finish","result":"done"}`}}
	driver := &fakeDriver{}
	ag := newTestAgent(t, provider, driver)

	res := ag.RunTask(context.Background(), "do nothing", nil)
	assert.Equal(t, ReasonFinished, res.Reason)
	assert.Equal(t, "Task completed after 0 navigation steps: done", res.Message)
	assert.Equal(t, 0, driver.navigationCount())
}

func TestRunTaskNavigateThenFinish(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"action":"navigate","url":"https://example.com"}`,
		`{"action":"finish","result":"all set"}`,
	}}
	driver := &fakeDriver{content: "<html><body><p>Example Domain</p></body></html>"}
	rec := &recorder{}
	ag := newTestAgent(t, provider, driver)

	res := ag.RunTask(context.Background(), "open example.com", rec.callbacks())
	require.Equal(t, ReasonFinished, res.Reason)
	assert.Equal(t, "Task completed after 1 navigation steps: all set", res.Message)
	assert.Equal(t, []string{"https://example.com"}, driver.navigations)

	// The second query must carry the observation derived from the page.
	require.Equal(t, 2, provider.callCount())
	second := provider.calls[1]
	last := second[len(second)-1]
	assert.Equal(t, types.RoleUser, last.Role)
	assert.Contains(t, last.Content, "Navigated to https://example.com. Page content: ")
	assert.Contains(t, last.Content, "Example Domain")

	assert.Equal(t, []string{
		"Planning to navigate",
		"Navigating to https://example.com",
		"Analyzing page content from https://example.com",
		"Planning to finish",
	}, rec.progressLines())
}

func TestRunTaskHistoryOnlyGrows(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"action":"navigate","url":"https://a.test"}`,
		`{"action":"navigate","url":"https://b.test"}`,
		`{"action":"finish","result":"ok"}`,
	}}
	driver := &fakeDriver{content: "<p>page</p>"}
	ag := newTestAgent(t, provider, driver)

	res := ag.RunTask(context.Background(), "walk two pages", nil)
	require.Equal(t, ReasonFinished, res.Reason)

	// Each query's history must be a strict prefix extension of the
	// previous query's history.
	require.Equal(t, 3, provider.callCount())
	for i := 1; i < len(provider.calls); i++ {
		prev, cur := provider.calls[i-1], provider.calls[i]
		require.Greater(t, len(cur), len(prev))
		for j := range prev {
			assert.Equal(t, prev[j].Content, cur[j].Content, "history rewritten at query %d position %d", i, j)
		}
	}
}

func TestRunTaskMaxDepth(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"action":"navigate","url":"https://example.com"}`}}
	driver := &fakeDriver{content: "<p>loop</p>"}
	ag := newTestAgent(t, provider, driver)

	res := ag.RunTask(context.Background(), "loop forever", nil)
	assert.Equal(t, ReasonMaxDepth, res.Reason)
	assert.Equal(t,
		"Reached maximum navigation depth (10 steps). Last action was: navigate to https://example.com",
		res.Message)

	// Exactly 10 navigations: the 11th navigate action terminates the
	// task without an 11th navigation call.
	assert.Equal(t, 10, driver.navigationCount())
	assert.Equal(t, 11, provider.callCount())
}

func TestRunTaskNavigationFailure(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"action":"navigate","url":"https://example.com"}`}}
	driver := &fakeDriver{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	ag := newTestAgent(t, provider, driver)

	res := ag.RunTask(context.Background(), "open example.com", nil)
	assert.Equal(t, ReasonNavigationFailure, res.Reason)
	assert.Equal(t, "Failed to navigate to the URL: https://example.com", res.Message)

	// No observation was appended: the provider saw only the initial query.
	assert.Equal(t, 1, provider.callCount())
}

func TestRunTaskFind(t *testing.T) {
	t.Run("WithText", func(t *testing.T) {
		provider := &scriptedProvider{responses: []string{`{"action":"find","text":"the answer is 42"}`}}
		ag := newTestAgent(t, provider, &fakeDriver{})

		res := ag.RunTask(context.Background(), "find the answer", nil)
		assert.Equal(t, ReasonFound, res.Reason)
		assert.Equal(t, "Found information after 0 navigation steps: the answer is 42", res.Message)
	})

	t.Run("EmptyText", func(t *testing.T) {
		provider := &scriptedProvider{responses: []string{`{"action":"find"}`}}
		ag := newTestAgent(t, provider, &fakeDriver{})

		res := ag.RunTask(context.Background(), "find the answer", nil)
		assert.Equal(t, ReasonFound, res.Reason)
		assert.Equal(t, "Found something after 0 navigation steps but no text was provided", res.Message)
	})
}

func TestRunTaskUnknownAction(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"action":"click","selector":"#go"}`}}
	ag := newTestAgent(t, provider, &fakeDriver{})

	res := ag.RunTask(context.Background(), "click something", nil)
	assert.Equal(t, ReasonError, res.Reason)
	assert.Equal(t, "Unhandled action after 0 navigation steps: click", res.Message)
}

func TestRunTaskMalformedFallback(t *testing.T) {
	raw := "I am not sure what to do here, sorry!"
	provider := &scriptedProvider{responses: []string{raw}}
	ag := newTestAgent(t, provider, &fakeDriver{})

	res := ag.RunTask(context.Background(), "do something", nil)
	assert.Equal(t, ReasonMalformed, res.Reason, "fallback finish must stay distinguishable from a genuine finish")
	assert.Contains(t, res.Message, raw, "the model's output is never dropped")
}

func TestRunTaskProviderError(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection refused")}
	ag := newTestAgent(t, provider, &fakeDriver{})

	res := ag.RunTask(context.Background(), "anything", nil)
	assert.Equal(t, ReasonError, res.Reason)
	assert.Equal(t, "Error: connection refused", res.Message)
}

func TestRunTaskWhitelistBlocked(t *testing.T) {
	whitelist, err := config.NewURLWhitelist([]string{"example.com"})
	require.NoError(t, err)

	provider := &scriptedProvider{responses: []string{`{"action":"navigate","url":"https://evil.test/phish"}`}}
	driver := &fakeDriver{}
	ag := newTestAgent(t, provider, driver, WithWhitelist(whitelist))

	res := ag.RunTask(context.Background(), "open evil.test", nil)
	assert.Equal(t, ReasonNavigationFailure, res.Reason)
	assert.Contains(t, res.Message, "blocked by the URL whitelist")
	assert.Equal(t, 0, driver.navigationCount(), "blocked navigation must never reach the driver")
}

func TestExecuteReturnsMessage(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"action":"finish","result":"ok"}`}}
	ag := newTestAgent(t, provider, &fakeDriver{})
	rec := &recorder{}

	got := ag.Execute("quick task", rec.callbacks())
	assert.Equal(t, "Task completed after 0 navigation steps: ok", got)
	assert.Contains(t, rec.progressLines(), "Task completed")
}

func TestExecuteTimeout(t *testing.T) {
	provider := &scriptedProvider{blockCtx: true}
	ag := newTestAgent(t, provider, &fakeDriver{}, WithTimeout(100*time.Millisecond))
	rec := &recorder{}

	start := time.Now()
	res := ag.ExecuteResult("slow task", rec.callbacks())
	elapsed := time.Since(start)

	assert.Equal(t, ReasonTimeout, res.Reason)
	assert.Equal(t, TimeoutMessage, res.Message)
	assert.Less(t, elapsed, 5*time.Second)

	timedOut := false
	for _, line := range rec.progressLines() {
		if strings.Contains(line, "timed out") {
			timedOut = true
		}
	}
	assert.True(t, timedOut, "expected a timed-out progress event, got %v", rec.progressLines())
}

func TestExecuteSequentialTasksReuseSession(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`{"action":"navigate","url":"https://example.com"}`,
		`{"action":"finish","result":"first"}`,
		`{"action":"navigate","url":"https://example.com"}`,
		`{"action":"finish","result":"second"}`,
	}}
	driver := &fakeDriver{content: "<p>hi</p>"}

	factoryCalls := 0
	session := browser.NewSession(func() (browser.Driver, error) {
		factoryCalls++
		return driver, nil
	}, browser.WithSettleDelay(0))
	defer session.Close()

	ag := NewAgent(provider, session)

	first := ag.Execute("task one", nil)
	second := ag.Execute("task two", nil)
	assert.Contains(t, first, "first")
	assert.Contains(t, second, "second")
	assert.Equal(t, 1, factoryCalls, "the browser session must be reused across tasks")
	assert.Equal(t, 0, driver.closeCount)
}

func TestExecuteRecoversPanic(t *testing.T) {
	provider := &panickyProvider{}
	ag := newTestAgent(t, provider, &fakeDriver{})

	res := ag.ExecuteResult("boom", nil)
	assert.Equal(t, ReasonError, res.Reason)
	assert.Contains(t, res.Message, "Failed to execute task:")
}

type panickyProvider struct{}

func (p *panickyProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	panic(fmt.Errorf("provider exploded"))
}
func (p *panickyProvider) GetModel() string   { return "panicky" }
func (p *panickyProvider) GetBaseURL() string { return "" }
