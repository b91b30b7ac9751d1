package opcall

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
)

var (
	// ErrUnknownSpecMethod is returned when an OperationSpec names a method
	// the service type does not have.
	ErrUnknownSpecMethod = errors.New("operation spec names unknown method")

	// ErrUnsupportedSignature is returned when an exposed method's results
	// are not one of (), (T), (error) or (T, error).
	ErrUnsupportedSignature = errors.New("unsupported method signature")

	// ErrUnsupportedParamType is returned when a parameter type has no
	// conversion strategy (channels, functions, unsafe pointers).
	ErrUnsupportedParamType = errors.New("unsupported parameter type")
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// serviceDesc is the immutable descriptor table for one service type,
// built once at Dispatcher construction and read on every call.
type serviceDesc struct {
	typ reflect.Type
	ops map[string][]*operationDesc
}

// operationDesc represents one eligible method under its external name.
type operationDesc struct {
	name         string // external operation name
	method       reflect.Method
	wantsCtx     bool
	params       []*paramDesc
	returnsValue bool
	returnsError bool
}

// paramDesc carries everything the binder and converter need for one
// parameter. The conversion strategy is selected here, not per call.
type paramDesc struct {
	name     string
	header   bool
	optional bool
	typ      reflect.Type
	convert  convertFunc
}

// lookup returns the candidates registered under the external name,
// case-sensitive. Zero candidates means the operation does not exist;
// two or more means renamed overloads that binding must disambiguate.
func (s *serviceDesc) lookup(name string) []*operationDesc {
	return s.ops[name]
}

// names returns the external operation names in sorted order.
func (s *serviceDesc) names() []string {
	out := make([]string, 0, len(s.ops))
	for name := range s.ops {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// buildService scans the probe instance's type and derives the descriptor
// table. Only exported methods are visible to reflection, so unexported
// methods are structurally unreachable. Methods promoted from embedded
// Hidden implementors and methods excluded by the service's own
// OperationSpec entries are dropped; a spec entry may also override the
// external name, creating overloads when two methods share one.
func buildService(probe any) (*serviceDesc, error) {
	t := reflect.TypeOf(probe)
	if t == nil {
		return nil, errors.New("service instance is nil")
	}

	specs := make(map[string]OperationSpec)
	if d, ok := probe.(Describer); ok {
		for _, sp := range d.Operations() {
			if _, found := t.MethodByName(sp.Method); !found {
				return nil, fmt.Errorf("%w: %s", ErrUnknownSpecMethod, sp.Method)
			}
			specs[sp.Method] = sp
		}
	}

	hidden := hiddenMethodNames(t)

	svc := &serviceDesc{
		typ: t,
		ops: make(map[string][]*operationDesc),
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)

		if isReservedMethod(probe, m.Name) {
			continue
		}

		sp, hasSpec := specs[m.Name]
		if hasSpec && sp.Exclude {
			continue
		}
		// An explicit spec entry re-exposes a method an embedded Hidden
		// type would otherwise conceal.
		if !hasSpec && hidden[m.Name] {
			continue
		}

		op, err := buildOperation(m, sp)
		if err != nil {
			return nil, err
		}

		svc.ops[op.name] = append(svc.ops[op.name], op)
	}

	return svc, nil
}

func buildOperation(m reflect.Method, sp OperationSpec) (*operationDesc, error) {
	op := &operationDesc{
		name:   sp.Name,
		method: m,
	}
	if op.name == "" {
		op.name = m.Name
	}

	mt := m.Type

	// Inputs: skip the receiver; a leading context.Context is bound from
	// the caller's context rather than from the parameter maps.
	first := 1
	if mt.NumIn() > first && mt.In(first) == ctxType {
		op.wantsCtx = true
		first++
	}

	for i := first; i < mt.NumIn(); i++ {
		pos := i - first
		p := &paramDesc{
			name: fmt.Sprintf("arg%d", pos),
			typ:  mt.In(i),
		}
		if pos < len(sp.Params) {
			ps := sp.Params[pos]
			if ps.Name != "" {
				p.name = ps.Name
			}
			p.header = ps.Header
			p.optional = ps.Optional
		}

		conv, err := converterFor(p.typ)
		if err != nil {
			return nil, fmt.Errorf("%w: %s parameter %q (%s)", ErrUnsupportedParamType, m.Name, p.name, p.typ)
		}
		p.convert = conv

		op.params = append(op.params, p)
	}

	switch mt.NumOut() {
	case 0:
	case 1:
		if mt.Out(0) == errType {
			op.returnsError = true
		} else {
			op.returnsValue = true
		}
	case 2:
		if mt.Out(0) == errType || mt.Out(1) != errType {
			return nil, fmt.Errorf("%w: %s must return (T, error)", ErrUnsupportedSignature, m.Name)
		}
		op.returnsValue = true
		op.returnsError = true
	default:
		return nil, fmt.Errorf("%w: %s returns %d values", ErrUnsupportedSignature, m.Name, mt.NumOut())
	}

	return op, nil
}

// isReservedMethod reports whether name belongs to the metadata surface
// rather than to the service's callable operations.
func isReservedMethod(probe any, name string) bool {
	switch name {
	case "Operations":
		_, ok := probe.(Describer)
		return ok
	case "HiddenOperations":
		_, ok := probe.(Hidden)
		return ok
	}
	return false
}

// hiddenMethodNames collects the method names promoted from embedded
// fields whose types implement Hidden.
func hiddenMethodNames(t reflect.Type) map[string]bool {
	names := make(map[string]bool)

	st := t
	if st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	if st.Kind() != reflect.Struct {
		return names
	}

	hiddenType := reflect.TypeOf((*Hidden)(nil)).Elem()
	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		if ft.Kind() != reflect.Pointer {
			ft = reflect.PointerTo(ft)
		}
		if !ft.Implements(hiddenType) {
			continue
		}
		for j := 0; j < ft.NumMethod(); j++ {
			names[ft.Method(j).Name] = true
		}
	}

	return names
}
