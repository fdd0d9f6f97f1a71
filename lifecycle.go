package sheetreview

// Close stops polling, waits for the poll goroutine to exit and persists
// the snapshot when a cache is configured.
func (c *client) Close() error {
	c.pollMu.Lock()
	if c.closed {
		c.pollMu.Unlock()
		return nil
	}
	c.closed = true
	c.pollMu.Unlock()

	if err := c.PollingOff(); err != nil {
		return err
	}
	c.pollWG.Wait()

	if c.options.cache != nil {
		return c.Persist()
	}
	return nil
}
