package resolve

// PushScope pushes a new metadata frame, snapshotted from the currently
// active frame's keys (spec §4.3: "each push snapshots the metadata").
// The returned func pops the frame; callers MUST `defer` it immediately
// so the frame is restored on every exit path, including a panic recovered
// higher up the call stack (spec §4.4, §9: "scoped acquisition... must not
// rely on exception semantics for cleanup" — the defer here supplies that
// guarantee explicitly rather than leaning on any implicit unwind).
func (c *Context) PushScope() func() {
	c.mu.Lock()
	parent := c.scopeStack[len(c.scopeStack)-1]
	frame := make(map[string]any, len(parent))
	for k, v := range parent {
		frame[k] = v
	}
	c.scopeStack = append(c.scopeStack, frame)
	c.mu.Unlock()

	popped := false
	return func() {
		if popped {
			return
		}
		popped = true
		c.mu.Lock()
		if len(c.scopeStack) > 1 {
			c.scopeStack = c.scopeStack[:len(c.scopeStack)-1]
		}
		c.mu.Unlock()
	}
}

// SetMeta sets a free-form per-scope flag in the active frame (spec §4.3
// metadata field: e.g. "ProcessingInsertSelect", "InsertTargetTable",
// "currentSelectInto", "inApply").
func (c *Context) SetMeta(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scopeStack[len(c.scopeStack)-1][key] = value
}

// GetMeta reads a per-scope flag from the active frame.
func (c *Context) GetMeta(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.scopeStack[len(c.scopeStack)-1][key]
	return v, ok
}

// GetMetaString is a convenience wrapper over GetMeta for string-valued
// flags such as InsertTargetTable/currentSelectInto.
func (c *Context) GetMetaString(key string) (string, bool) {
	v, ok := c.GetMeta(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetMetaBool is a convenience wrapper over GetMeta for boolean flags such
// as ProcessingInsertSelect/inApply.
func (c *Context) GetMetaBool(key string) bool {
	v, ok := c.GetMeta(key)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Depth reports the current scope nesting depth (1 = top level), mostly
// useful for tests and diagnostics.
func (c *Context) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.scopeStack)
}
