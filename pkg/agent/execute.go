package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/imann24/ai-browser-agent/pkg/types"
)

// TimeoutMessage is the fixed result returned when a task exceeds its
// wall-clock budget.
const TimeoutMessage = "The operation timed out. The agent was taking too long to complete the task."

// Execute runs one task synchronously and returns the result string.
// See ExecuteResult for the tagged form.
func (a *Agent) Execute(instruction string, cb *types.TaskCallbacks) string {
	return a.ExecuteResult(instruction, cb).Message
}

// ExecuteResult runs one task synchronously under the agent's wall-clock
// budget and returns the tagged terminal result.
//
// Each call creates a single-use timeout context; the browser session is
// never recreated or closed here; its lifetime belongs to the owner.
// Cancellation is observed at the loop's suspension points (LLM call,
// navigation, content and screenshot extraction), so an in-flight
// navigation is allowed to finish before a timeout is noticed; any
// navigations already performed remain in effect.
func (a *Agent) ExecuteResult(instruction string, cb *types.TaskCallbacks) *ExecutionResult {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	done := make(chan *ExecutionResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.log.Errorf("task panicked: %v", r)
				done <- &ExecutionResult{
					Message: fmt.Sprintf("Failed to execute task: %v", r),
					Reason:  ReasonError,
				}
			}
		}()
		done <- a.RunTask(ctx, instruction, cb)
	}()

	select {
	case res := <-done:
		a.log.Debugf("task completed: %s", res.Message)
		cb.Progress("Task completed")
		return res

	case <-ctx.Done():
		a.log.Warnf("task timed out after %s", a.timeout)
		cb.Progress(fmt.Sprintf("Task timed out after %d seconds", int(a.timeout/time.Second)))
		return &ExecutionResult{Message: TimeoutMessage, Reason: ReasonTimeout}
	}
}
