package opcall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"

	"github.com/go-playground/validator/v10"
)

// Dispatcher exposes the exported methods of a service type as callable
// operations. It is built once per service type, holds only immutable
// descriptor state, and is safe for concurrent use. Every call obtains a
// fresh service instance from the factory, so service types may keep
// per-call mutable state.
type Dispatcher struct {
	factory      func() any
	svc          *serviceDesc
	conv         converter
	mapper       ErrorMapper
	interceptors []Interceptor
	logger       *slog.Logger
}

// New builds a dispatcher for the service type produced by factory. The
// factory is called once here to derive the descriptor table and once per
// Invoke to obtain the receiving instance.
func New(factory func() any) (*Dispatcher, error) {
	if factory == nil {
		return nil, errors.New("opcall: nil factory")
	}

	svc, err := buildService(factory())
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		factory: factory,
		svc:     svc,
		conv: converter{
			codec:    jsonCodec{},
			validate: validator.New(),
		},
		logger: slog.Default(),
	}, nil
}

// WithCodec replaces the decode capability used for object-shaped
// parameters. It returns the dispatcher for chaining.
func (d *Dispatcher) WithCodec(c Codec) *Dispatcher {
	d.conv.codec = c
	return d
}

// WithErrorMapper installs the mapping consulted before default
// classification of errors raised by invoked operations.
func (d *Dispatcher) WithErrorMapper(m ErrorMapper) *Dispatcher {
	d.mapper = m
	return d
}

// WithInterceptor adds an interceptor around operation invocation.
// Interceptors run in the order added, the first one outermost.
func (d *Dispatcher) WithInterceptor(i Interceptor) *Dispatcher {
	d.interceptors = append(d.interceptors, i)
	return d
}

// WithLogger sets the logger used for internal-failure diagnostics.
// If not set, slog.Default() is used.
func (d *Dispatcher) WithLogger(logger *slog.Logger) *Dispatcher {
	d.logger = logger
	return d
}

// OperationInfo is the read-only description of one exposed operation,
// for hosts that build documentation or routing tables.
type OperationInfo struct {
	Name   string
	Method string
	Params []ParamInfo
}

// ParamInfo describes one parameter of an exposed operation.
type ParamInfo struct {
	Name     string
	Header   bool
	Optional bool
	Type     reflect.Type
}

// Operations returns the exposed operations sorted by external name.
// Renamed overloads appear once per underlying method.
func (d *Dispatcher) Operations() []OperationInfo {
	var out []OperationInfo
	for _, name := range d.svc.names() {
		for _, op := range d.svc.lookup(name) {
			info := OperationInfo{
				Name:   op.name,
				Method: op.method.Name,
			}
			for _, p := range op.params {
				info.Params = append(info.Params, ParamInfo{
					Name:     p.name,
					Header:   p.header,
					Optional: p.optional,
					Type:     p.typ,
				})
			}
			out = append(out, info)
		}
	}
	return out
}

// Invoke resolves the named operation against the two parameter maps,
// converts the raw values, invokes the method on a fresh instance and
// returns its native result. Any failure is a *Failure whose Kind the
// caller can branch on. The per-call pipeline is strictly linear; the
// first failing stage determines the outcome category.
func (d *Dispatcher) Invoke(ctx context.Context, operation string, params, headers map[string]string) (any, error) {
	candidates := d.svc.lookup(operation)
	if len(candidates) == 0 {
		return nil, NotFoundf("operation %q not found", operation)
	}

	op, bound, failure := selectOperation(operation, candidates, params, headers)
	if failure != nil {
		return nil, failure
	}

	args := make([]reflect.Value, 0, len(bound))
	for _, b := range bound {
		v, err := b.param.convert(&d.conv, b.raw, b.present)
		if err != nil {
			return nil, BadRequestf("parameter %q: %v", b.param.name, err).WithCause(err)
		}
		args = append(args, v)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx = withOperation(ctx, operation)

	invoke := func(ctx context.Context) (any, error) {
		return d.call(ctx, op, args)
	}

	var (
		result any
		err    error
	)
	if chain := chainInterceptors(d.interceptors); chain != nil {
		result, err = chain(ctx, operation, invoke)
	} else {
		result, err = invoke(ctx)
	}
	if err != nil {
		f := classify(err, d.mapper)
		if f.Kind == KindInternal {
			d.log().Error("operation failed",
				slog.String("operation", operation),
				slog.Any("error", f.Unwrap()))
		}
		return nil, f
	}

	return result, nil
}

// call performs the reflective invocation on a fresh instance. Panics are
// converted to errors so they run through the same classification as
// returned errors.
func (d *Dispatcher) call(ctx context.Context, op *operationDesc, args []reflect.Value) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			d.log().Error("panic in operation",
				slog.String("operation", op.name),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic in operation %s: %v", op.name, rec)
		}
	}()

	instance := d.factory()
	recv := reflect.ValueOf(instance)
	if recv.Type() != d.svc.typ {
		return nil, fmt.Errorf("factory returned %T, want %s", instance, d.svc.typ)
	}

	in := make([]reflect.Value, 0, len(args)+2)
	in = append(in, recv)
	if op.wantsCtx {
		in = append(in, reflect.ValueOf(ctx))
	}
	in = append(in, args...)

	out := op.method.Func.Call(in)

	if op.returnsError {
		if ev := out[len(out)-1]; !ev.IsNil() {
			return nil, ev.Interface().(error)
		}
	}
	if op.returnsValue {
		return out[0].Interface(), nil
	}
	return nil, nil
}

func (d *Dispatcher) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.Default()
}
