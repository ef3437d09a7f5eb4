package relay

// PendingTimer reports the kind of the armed timer, or "" when none is.
func (c *Conn) PendingTimer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return ""
	}
	return c.timerKind
}
