package canister

import "fmt"

// Module is a named, reusable batch of registrations. Packages export a
// Module describing their wiring; the composition root applies them to one
// container:
//
//	var Module = canister.NewModule("storage").
//		Provide(NewClient).
//		Provide(NewBlobStore, canister.As(new(BlobStore)))
//
// Modules register nothing by themselves; Apply does.
type Module struct {
	name string
	regs []moduleReg
	subs []*Module
}

type moduleReg struct {
	ctor    any
	value   any
	isValue bool
	opts    []ProvideOption
}

// NewModule returns an empty module. The name only appears in errors.
func NewModule(name string) *Module {
	return &Module{name: name}
}

// Provide appends a constructor registration. It returns the module for
// chaining.
func (m *Module) Provide(ctor any, opts ...ProvideOption) *Module {
	m.regs = append(m.regs, moduleReg{ctor: ctor, opts: opts})
	return m
}

// ProvideValue appends a value registration.
func (m *Module) ProvideValue(value any, opts ...ProvideOption) *Module {
	m.regs = append(m.regs, moduleReg{value: value, isValue: true, opts: opts})
	return m
}

// Include nests other modules; Apply registers their contents before this
// module's own.
func (m *Module) Include(subs ...*Module) *Module {
	m.subs = append(m.subs, subs...)
	return m
}

// Apply registers the modules' contents in order, depth first. The first
// failure aborts and comes back wrapped with the module's name.
func (c *Container) Apply(mods ...*Module) error {
	for _, m := range mods {
		if err := c.applyModule(m); err != nil {
			return err
		}
	}
	return nil
}

func (c *Container) applyModule(m *Module) error {
	for _, sub := range m.subs {
		if err := c.applyModule(sub); err != nil {
			return err
		}
	}
	for _, r := range m.regs {
		var err error
		if r.isValue {
			err = c.ProvideValue(r.value, r.opts...)
		} else {
			err = c.Provide(r.ctor, r.opts...)
		}
		if err != nil {
			return fmt.Errorf("canister: module %s: %w", m.name, err)
		}
	}
	return nil
}
