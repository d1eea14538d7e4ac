package canister

import "slices"

// Validate statically checks the whole graph without constructing anything:
// every required dependency has exactly one eligible provider, no singleton
// captures a scoped instance, and the graph is acyclic. Start runs the same
// checks; calling Validate directly suits wiring tests.
func (c *Container) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.validateLocked()
}

func (c *Container) validateLocked() error {
	for _, p := range c.providers {
		for _, d := range p.deps {
			if d.group != "" {
				for _, ref := range c.groups[groupKey{t: d.t, group: d.group}] {
					if err := checkEdge(p, ref.prov, d); err != nil {
						return err
					}
				}
				continue
			}
			ref, err := c.selectOffer(d.key())
			if err != nil {
				if d.optional {
					if _, missing := err.(MissingError); missing {
						continue
					}
				}
				return attachPath(err, Path{p.display(), d.String()})
			}
			if err := checkEdge(p, ref.prov, d); err != nil {
				return err
			}
		}
	}
	return c.findCycleLocked()
}

// checkEdge rejects captive dependencies: a singleton holding a scoped
// instance would keep it alive long after its scope closed.
func checkEdge(from, to *provider, d dep) error {
	if from.lifetime == lifetimeSingleton && to.lifetime == lifetimeScoped {
		return ScopeError{
			Key:    to.display(),
			Reason: "captive scoped dependency of singleton " + from.display(),
			Path:   Path{from.display(), d.String()},
		}
	}
	return nil
}

// edgesLocked returns the providers p's dependencies would select. Missing
// and ambiguous dependencies yield no edge; validateLocked reports those
// separately.
func (c *Container) edgesLocked(p *provider) []*provider {
	var out []*provider
	for _, d := range p.deps {
		if d.group != "" {
			for _, ref := range c.groups[groupKey{t: d.t, group: d.group}] {
				out = append(out, ref.prov)
			}
			continue
		}
		ref, err := c.selectOffer(d.key())
		if err != nil {
			continue
		}
		out = append(out, ref.prov)
	}
	return out
}

const (
	colorWhite = iota
	colorGrey
	colorBlack
)

func (c *Container) findCycleLocked() error {
	state := make(map[*provider]int, len(c.providers))
	var stack []*provider

	var visit func(p *provider) error
	visit = func(p *provider) error {
		state[p] = colorGrey
		stack = append(stack, p)
		for _, q := range c.edgesLocked(p) {
			switch state[q] {
			case colorGrey:
				i := slices.Index(stack, q)
				cyc := make(Path, 0, len(stack)-i+1)
				for _, sp := range stack[i:] {
					cyc = append(cyc, sp.display())
				}
				cyc = append(cyc, q.display())
				return CycleError{Path: cyc}
			case colorWhite:
				if err := visit(q); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[p] = colorBlack
		return nil
	}

	for _, p := range c.providers {
		if state[p] == colorWhite {
			if err := visit(p); err != nil {
				return err
			}
		}
	}
	return nil
}
