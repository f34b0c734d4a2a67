package agent

import (
	"context"
	"fmt"

	"github.com/imann24/ai-browser-agent/pkg/action"
	"github.com/imann24/ai-browser-agent/pkg/types"
)

// RunTask drives the action loop for one instruction until a terminal
// action, the navigation cap, or a failure. Conversation history is
// created fresh per task and only ever appended to.
//
// Most callers want Execute, which wraps RunTask in the wall-clock budget.
func (a *Agent) RunTask(ctx context.Context, instruction string, cb *types.TaskCallbacks) *ExecutionResult {
	a.log.Debugf("running task: %s", instruction)

	if w := a.session.Screenshots(); w != nil {
		w.ResetTask()
	}
	a.checkpoint(ctx, cb, "initial", "Initial state")

	history := []*types.Message{
		types.NewSystemMessage(a.systemPrompt),
		types.NewUserMessage(instruction),
	}

	res, err := a.queryAction(ctx, history)
	if err != nil {
		return a.taskError(ctx, cb, err)
	}
	history = append(history, types.NewAssistantMessage(res.Raw))
	cb.Progress("Planning to " + string(res.Action.Kind))

	navigationCount := 0
	act, outcome := res.Action, res.Outcome

	for act.Kind == action.KindNavigate && navigationCount < MaxNavigations {
		navigationCount++
		url := act.URL
		a.log.Debugf("navigate action #%d to %s", navigationCount, url)
		cb.Progress("Navigating to " + url)

		if a.whitelist != nil && !a.whitelist.Allows(url) {
			a.log.Warnf("navigation to %s blocked by whitelist", url)
			a.checkpoint(ctx, cb, "error", "Navigation blocked")
			return &ExecutionResult{
				Message: fmt.Sprintf("Navigation to %s was blocked by the URL whitelist", url),
				Reason:  ReasonNavigationFailure,
			}
		}

		if !a.session.Navigate(ctx, url) {
			a.checkpoint(ctx, cb, "error", "Navigation failed")
			return &ExecutionResult{
				Message: fmt.Sprintf("Failed to navigate to the URL: %s", url),
				Reason:  ReasonNavigationFailure,
			}
		}

		a.checkpoint(ctx, cb, "navigation", "Navigated to "+url)

		content := a.session.Content(ctx)
		observation := fmt.Sprintf("Navigated to %s. Page content: %s...", url, prefix(content, observationPrefixLen))
		cb.Progress("Analyzing page content from " + url)

		history = append(history, types.NewUserMessage(observation))

		res, err = a.queryAction(ctx, history)
		if err != nil {
			return a.taskError(ctx, cb, err)
		}
		history = append(history, types.NewAssistantMessage(res.Raw))

		act, outcome = res.Action, res.Outcome
		cb.Progress("Planning to " + string(act.Kind))

		a.checkpoint(ctx, cb, "analysis", fmt.Sprintf("Analysis after navigation #%d", navigationCount))
	}

	// An 11th navigate action terminates the task without an 11th
	// navigation call.
	if act.Kind == action.KindNavigate {
		url := act.URL
		if url == "" {
			url = "unknown URL"
		}
		return &ExecutionResult{
			Message: fmt.Sprintf("Reached maximum navigation depth (%d steps). Last action was: navigate to %s", MaxNavigations, url),
			Reason:  ReasonMaxDepth,
		}
	}

	switch act.Kind {
	case action.KindFinish:
		reason := ReasonFinished
		if outcome == action.OutcomeFallback {
			// The "finish" is synthetic: the model's text never parsed.
			reason = ReasonMalformed
		}
		return &ExecutionResult{
			Message: fmt.Sprintf("Task completed after %d navigation steps: %s", navigationCount, act.Result),
			Reason:  reason,
		}

	case action.KindFind:
		if act.Text == "" {
			return &ExecutionResult{
				Message: fmt.Sprintf("Found something after %d navigation steps but no text was provided", navigationCount),
				Reason:  ReasonFound,
			}
		}
		return &ExecutionResult{
			Message: fmt.Sprintf("Found information after %d navigation steps: %s", navigationCount, act.Text),
			Reason:  ReasonFound,
		}

	default:
		return &ExecutionResult{
			Message: fmt.Sprintf("Unhandled action after %d navigation steps: %s", navigationCount, act.Raw),
			Reason:  ReasonError,
		}
	}
}

// queryResult pairs a normalized action with the raw text that produced
// it, so the history records what the model actually said.
type queryResult struct {
	Action  *action.Action
	Outcome action.Outcome
	Raw     string
}

// queryAction sends the accumulated history to the provider and
// normalizes the response. Only transport failures return an error;
// malformed content always normalizes to an Action.
func (a *Agent) queryAction(ctx context.Context, history []*types.Message) (*queryResult, error) {
	if a.tokenizer != nil {
		a.log.Debugf("prompt tokens before send: %d", a.tokenizer.CountMessagesTokens(history))
	}

	msg, err := a.provider.Complete(ctx, history)
	if err != nil {
		return nil, err
	}

	res := a.normalizer.Normalize(msg.Content)
	if res.Outcome != action.OutcomeParsed {
		a.log.Warnf("response required %s recovery: %s", res.Outcome, msg.Content)
	}

	return &queryResult{Action: res.Action, Outcome: res.Outcome, Raw: msg.Content}, nil
}

// taskError converts an unexpected failure into a terminal result, with a
// best-effort exception screenshot.
func (a *Agent) taskError(ctx context.Context, cb *types.TaskCallbacks, err error) *ExecutionResult {
	a.log.Errorf("task failed: %v", err)
	a.checkpoint(ctx, cb, "exception", fmt.Sprintf("Error: %s", err))
	return &ExecutionResult{
		Message: fmt.Sprintf("Error: %s", err),
		Reason:  ReasonError,
	}
}

// checkpoint captures an inline screenshot for the caller and an audit
// file on disk. All failures are swallowed; a checkpoint never aborts the
// loop.
func (a *Agent) checkpoint(ctx context.Context, cb *types.TaskCallbacks, kind, description string) {
	image := a.session.Screenshot(ctx)
	if path := a.session.ScreenshotToFile(ctx, kind); path != "" {
		description = description + " " + path
	}
	cb.Screenshot(image, description)
}

// prefix bounds s to at most n bytes.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
