package canister

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
)

// In marks a struct whose exported fields are resolved individually instead
// of the struct itself. Embed it by value:
//
//	type serverParams struct {
//		canister.In
//
//		Cfg    *config.Config
//		Store  BlobStore   `name:"archive"`
//		Routes []Registrar `group:"http.routes"`
//		Tracer Tracer      `optional:"true"`
//	}
//
// Field tags: `name` requests a qualified registration, `group` collects a
// value group into a slice field, and `optional:"true"` leaves the field at
// its zero value when no registration matches.
type In struct{}

// Out marks a struct whose exported fields are each registered under their
// own type when the constructor returns it. Field tags `name` and `group`
// mirror the In tags.
type Out struct{}

var (
	errType     = reflect.TypeFor[error]()
	contextType = reflect.TypeFor[context.Context]()
	inType      = reflect.TypeFor[In]()
	outType     = reflect.TypeFor[Out]()
)

func embedsMarker(t reflect.Type, marker reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == marker {
			return true
		}
	}
	return false
}

func isIn(t reflect.Type) bool  { return embedsMarker(t, inType) }
func isOut(t reflect.Type) bool { return embedsMarker(t, outType) }

func ctorOrigin(v reflect.Value) string {
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "unknown"
	}
	file, line := f.FileLine(f.Entry())
	return fmt.Sprintf("%s:%d", file, line)
}

// fieldDep derives the dependency one In field (or one Out field offer)
// declares via its tags.
func fieldDep(f reflect.StructField) (dep, error) {
	d := dep{t: f.Type, name: f.Tag.Get("name"), group: f.Tag.Get("group")}
	if d.name != "" && d.group != "" {
		return dep{}, fmt.Errorf("field %s mixes name and group tags", f.Name)
	}
	switch f.Tag.Get("optional") {
	case "":
	case "true":
		d.optional = true
	case "false":
	default:
		return dep{}, fmt.Errorf("field %s has invalid optional tag %q", f.Name, f.Tag.Get("optional"))
	}
	if d.group != "" {
		if f.Type.Kind() != reflect.Slice {
			return dep{}, fmt.Errorf("field %s has a group tag but is not a slice", f.Name)
		}
		d.t = f.Type.Elem()
	}
	return d, nil
}

// analyzeParams turns a function's inputs into params, expanding In structs.
func analyzeParams(ft reflect.Type, origin string) ([]param, error) {
	params := make([]param, 0, ft.NumIn())
	for i := 0; i < ft.NumIn(); i++ {
		pt := ft.In(i)
		if pt == contextType {
			return nil, RegistrationError{Origin: origin, Reason: "constructors do not receive a context.Context; create one inside when needed"}
		}
		if !isIn(pt) {
			params = append(params, param{t: pt, dep: dep{t: pt}})
			continue
		}
		p := param{t: pt}
		for j := 0; j < pt.NumField(); j++ {
			f := pt.Field(j)
			if f.Anonymous && f.Type == inType {
				continue
			}
			if !f.IsExported() {
				return nil, RegistrationError{Origin: origin, Reason: fmt.Sprintf("parameter struct %s has unexported field %s", pt, f.Name)}
			}
			if isIn(f.Type) {
				return nil, RegistrationError{Origin: origin, Reason: fmt.Sprintf("parameter struct %s nests another parameter struct in field %s", pt, f.Name)}
			}
			d, err := fieldDep(f)
			if err != nil {
				return nil, RegistrationError{Origin: origin, Reason: fmt.Sprintf("parameter struct %s: %v", pt, err)}
			}
			p.fields = append(p.fields, inField{index: j, dep: d})
		}
		params = append(params, p)
	}
	return params, nil
}

func flattenDeps(params []param) []dep {
	var deps []dep
	for _, p := range params {
		if p.fields == nil {
			deps = append(deps, p.dep)
			continue
		}
		for _, f := range p.fields {
			deps = append(deps, f.dep)
		}
	}
	return deps
}

// analyzeResults derives the offers of a constructor from its return values
// and the registration options.
func analyzeResults(ft reflect.Type, cfg *provideConfig, origin string) (offers []offer, hasErr bool, err error) {
	n := ft.NumOut()
	if n > 0 && ft.Out(n-1) == errType {
		hasErr = true
		n--
	}
	if n == 0 {
		return nil, false, RegistrationError{Origin: origin, Reason: "constructor must return at least one value"}
	}

	rets := make([]reflect.Type, n)
	outStruct := false
	for i := 0; i < n; i++ {
		rt := ft.Out(i)
		if rt == errType {
			return nil, false, RegistrationError{Origin: origin, Reason: "only the last return value may be an error"}
		}
		if isOut(rt) {
			outStruct = true
		}
		rets[i] = rt
	}

	if outStruct {
		if n != 1 {
			return nil, false, RegistrationError{Origin: origin, Reason: "a result struct must be the only return value"}
		}
		if cfg.name != "" || cfg.group != "" || len(cfg.as) > 0 {
			return nil, false, RegistrationError{Origin: origin, Reason: "Name, Group and As do not apply to result structs; use field tags"}
		}
		offers, err = analyzeOutStruct(rets[0], origin)
		return offers, hasErr, err
	}

	if len(cfg.as) > 0 && n != 1 {
		return nil, false, RegistrationError{Origin: origin, Reason: "As requires a constructor with a single result"}
	}

	for i, rt := range rets {
		op := outPath{ret: i, field: -1}
		types := []reflect.Type{rt}
		if len(cfg.as) > 0 {
			types = types[:0]
			for _, it := range cfg.as {
				if !rt.Implements(it) {
					return nil, false, RegistrationError{Origin: origin, Reason: fmt.Sprintf("%s does not implement %s", rt, it)}
				}
				types = append(types, it)
			}
		}
		for _, t := range types {
			if cfg.group != "" {
				offers = append(offers, offer{key: key{t: t}, group: cfg.group, out: op})
				continue
			}
			offers = append(offers, offer{key: key{t: t, name: cfg.name}, out: op})
		}
	}
	return offers, hasErr, nil
}

func analyzeOutStruct(st reflect.Type, origin string) ([]offer, error) {
	var offers []offer
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous && f.Type == outType {
			continue
		}
		if !f.IsExported() {
			return nil, RegistrationError{Origin: origin, Reason: fmt.Sprintf("result struct %s has unexported field %s", st, f.Name)}
		}
		if isOut(f.Type) || isIn(f.Type) {
			return nil, RegistrationError{Origin: origin, Reason: fmt.Sprintf("result struct %s nests a marker struct in field %s", st, f.Name)}
		}
		if f.Tag.Get("optional") != "" {
			return nil, RegistrationError{Origin: origin, Reason: fmt.Sprintf("result struct %s: optional tag is not valid on field %s", st, f.Name)}
		}
		d, err := fieldDep(f)
		if err != nil {
			return nil, RegistrationError{Origin: origin, Reason: fmt.Sprintf("result struct %s: %v", st, err)}
		}
		op := outPath{ret: 0, field: i}
		if d.group != "" {
			// A group field contributes its value as a single element.
			offers = append(offers, offer{key: key{t: f.Type}, group: d.group, out: op})
			continue
		}
		offers = append(offers, offer{key: key{t: f.Type, name: d.name}, out: op})
	}
	if len(offers) == 0 {
		return nil, RegistrationError{Origin: origin, Reason: fmt.Sprintf("result struct %s has no fields to register", st)}
	}
	return offers, nil
}

func distinctOuts(offers []offer) []outPath {
	var outs []outPath
	for _, o := range offers {
		found := false
		for _, seen := range outs {
			if seen == o.out {
				found = true
				break
			}
		}
		if !found {
			outs = append(outs, o.out)
		}
	}
	return outs
}

// analyzeCtor builds a provider from a constructor function and its options.
// It validates everything eagerly so misconfiguration surfaces at Provide,
// not at first resolution.
func analyzeCtor(ctor any, cfg *provideConfig) (*provider, error) {
	v := reflect.ValueOf(ctor)
	if !v.IsValid() || v.Kind() != reflect.Func {
		return nil, RegistrationError{Reason: fmt.Sprintf("constructor must be a function, got %T", ctor)}
	}
	origin := ctorOrigin(v)
	ft := v.Type()
	if ft.IsVariadic() {
		return nil, RegistrationError{Origin: origin, Reason: "variadic constructors are not supported"}
	}

	params, err := analyzeParams(ft, origin)
	if err != nil {
		return nil, err
	}
	offers, hasErr, err := analyzeResults(ft, cfg, origin)
	if err != nil {
		return nil, err
	}

	p := &provider{
		origin:       origin,
		lifetime:     cfg.lifetime,
		eager:        cfg.eager,
		primary:      cfg.primary,
		ctor:         v,
		hasErr:       hasErr,
		params:       params,
		deps:         flattenDeps(params),
		offers:       offers,
		distinctOuts: distinctOuts(offers),
	}
	if err := applyHooks(p, cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// analyzeValue builds a provider from a ready instance.
func analyzeValue(value any, cfg *provideConfig) (*provider, error) {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return nil, RegistrationError{Origin: "value", Reason: "value must not be nil"}
	}
	if cfg.lifetime != lifetimeSingleton {
		return nil, RegistrationError{Origin: "value", Reason: "values are always singletons; Transient and Scoped do not apply"}
	}
	if cfg.eager {
		return nil, RegistrationError{Origin: "value", Reason: "values are built eagerly by definition; Eager does not apply"}
	}

	rt := v.Type()
	if isIn(rt) || isOut(rt) {
		return nil, RegistrationError{Origin: "value", Reason: "marker structs cannot be provided as values"}
	}
	op := outPath{ret: 0, field: -1}
	var offers []offer
	types := []reflect.Type{rt}
	if len(cfg.as) > 0 {
		types = types[:0]
		for _, it := range cfg.as {
			if !rt.Implements(it) {
				return nil, RegistrationError{Origin: "value", Reason: fmt.Sprintf("%s does not implement %s", rt, it)}
			}
			types = append(types, it)
		}
	}
	for _, t := range types {
		if cfg.group != "" {
			offers = append(offers, offer{key: key{t: t}, group: cfg.group, out: op})
			continue
		}
		offers = append(offers, offer{key: key{t: t, name: cfg.name}, out: op})
	}

	p := &provider{
		origin:       "value",
		lifetime:     lifetimeSingleton,
		primary:      cfg.primary,
		isValue:      true,
		value:        v,
		offers:       offers,
		distinctOuts: distinctOuts(offers),
	}
	if err := applyHooks(p, cfg); err != nil {
		return nil, err
	}
	return p, nil
}

// applyHooks validates and attaches WithStart/WithStop functions. Hooks are
// rejected on transient registrations (nothing tracks those instances) and
// on multi-result constructors (the hook target would be ambiguous).
func applyHooks(p *provider, cfg *provideConfig) error {
	if len(cfg.startHooks) == 0 && len(cfg.stopHooks) == 0 {
		return nil
	}
	if p.lifetime == lifetimeTransient {
		return RegistrationError{Origin: p.origin, Reason: "lifecycle hooks are not valid on transient registrations"}
	}
	if len(p.distinctOuts) != 1 {
		return RegistrationError{Origin: p.origin, Reason: "lifecycle hooks require a registration with a single result"}
	}
	target := p.hookTargetType()
	for _, h := range cfg.startHooks {
		if err := checkHook(h, target, p.origin); err != nil {
			return err
		}
		p.startHooks = append(p.startHooks, reflect.ValueOf(h))
	}
	for _, h := range cfg.stopHooks {
		if err := checkHook(h, target, p.origin); err != nil {
			return err
		}
		p.stopHooks = append(p.stopHooks, reflect.ValueOf(h))
	}
	return nil
}

// hookTargetType is the static type hooks receive: the constructor's single
// result (or the value's type), before any As rebinding.
func (p *provider) hookTargetType() reflect.Type {
	if p.isValue {
		return p.value.Type()
	}
	t := p.ctor.Type().Out(p.distinctOuts[0].ret)
	if f := p.distinctOuts[0].field; f >= 0 {
		t = t.Field(f).Type
	}
	return t
}

func checkHook(h any, target reflect.Type, origin string) error {
	hv := reflect.ValueOf(h)
	if !hv.IsValid() || hv.Kind() != reflect.Func {
		return RegistrationError{Origin: origin, Reason: fmt.Sprintf("hook must be a function, got %T", h)}
	}
	ht := hv.Type()
	if ht.NumIn() != 2 || ht.In(0) != contextType {
		return RegistrationError{Origin: origin, Reason: "hook must have signature func(context.Context, T) error"}
	}
	if !target.AssignableTo(ht.In(1)) {
		return RegistrationError{Origin: origin, Reason: fmt.Sprintf("hook parameter %s cannot receive %s", ht.In(1), target)}
	}
	if ht.NumOut() != 1 || ht.Out(0) != errType {
		return RegistrationError{Origin: origin, Reason: "hook must return exactly one error"}
	}
	return nil
}
