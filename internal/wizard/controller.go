package wizard

// Controller sequences the steps of a wizard. Steps are 0-based; next and
// prev move one step at a time and clamp at both ends.
type Controller struct {
	titles []string
	step   int
	gate   func(step int) error
}

// NewController creates a controller over the given step titles. gate, when
// non-nil, is consulted before leaving a step forwards; a non-nil error keeps
// the wizard on that step.
func NewController(titles []string, gate func(step int) error) *Controller {
	if len(titles) == 0 {
		titles = []string{""}
	}
	return &Controller{titles: titles, gate: gate}
}

// Step returns the current step index.
func (c *Controller) Step() int { return c.step }

// Steps returns the number of steps.
func (c *Controller) Steps() int { return len(c.titles) }

// Titles returns the step titles.
func (c *Controller) Titles() []string { return c.titles }

// IsLast reports whether the current step is the final one.
func (c *Controller) IsLast() bool { return c.step == len(c.titles)-1 }

// Next advances one step unless the gate rejects the current one. On the
// last step it is a no-op.
func (c *Controller) Next() error {
	if c.IsLast() {
		return nil
	}
	if c.gate != nil {
		if err := c.gate(c.step); err != nil {
			return err
		}
	}
	c.step++
	return nil
}

// Prev moves back one step. On the first step it is a no-op.
func (c *Controller) Prev() {
	if c.step > 0 {
		c.step--
	}
}
