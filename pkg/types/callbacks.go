package types

// TaskCallbacks holds optional handlers the caller can register to observe
// a task while it runs. Both handlers are fire-and-forget: the agent never
// waits on them and a nil handler is simply skipped.
type TaskCallbacks struct {
	// OnProgress receives short human-readable status lines
	// (planning, navigating, analyzing, timed out).
	OnProgress func(text string)

	// OnScreenshot receives raw PNG bytes plus a description of the
	// checkpoint the screenshot was taken at.
	OnScreenshot func(image []byte, description string)
}

// Progress invokes OnProgress if it is set.
func (c *TaskCallbacks) Progress(text string) {
	if c == nil || c.OnProgress == nil {
		return
	}
	c.OnProgress(text)
}

// Screenshot invokes OnScreenshot if it is set and the image is non-empty.
func (c *TaskCallbacks) Screenshot(image []byte, description string) {
	if c == nil || c.OnScreenshot == nil || len(image) == 0 {
		return
	}
	c.OnScreenshot(image, description)
}
