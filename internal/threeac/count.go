package threeac

// Count holds the three independent counters a lowering pass advances:
// integer temps and float temps (both per-function — reset on every
// Function) and labels (global across the whole program, so an if/while in
// one function never reuses a label minted by another).
type Count struct {
	regular int
	float   int
	label   int
}

// nextTemp bumps the counter for bank and returns the new temp — numbering
// is contiguous starting at 1, matching the label counter's convention.
func (c *Count) nextTemp(bank Bank) Operand {
	if bank == F {
		c.float++
		return TempFloat(c.float)
	}
	c.regular++
	return Temp(c.regular)
}

// nextLabel bumps the label counter once and returns its new value.
func (c *Count) nextLabel() int {
	c.label++
	return c.label
}

// reset clears the per-function temp counters; the label counter survives.
func (c *Count) reset() {
	c.regular = 0
	c.float = 0
}
