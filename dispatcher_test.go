package opcall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

var errQuota = errors.New("quota exceeded")

type widgetService struct {
	hits int
}

func (s *widgetService) Operations() []OperationSpec {
	return []OperationSpec{
		{Method: "IntEcho", Name: "intEcho", Params: []ParamSpec{{Name: "value"}}},
		{Method: "BoolEcho", Name: "boolEcho", Params: []ParamSpec{{Name: "flag"}}},
		{Method: "Greet", Name: "greet", Params: []ParamSpec{
			{Name: "name"},
			{Name: "X-Trace", Header: true},
		}},
		{Method: "EchoWidget", Name: "echoWidget", Params: []ParamSpec{{Name: "widget"}}},
		{Method: "FindByID", Name: "find", Params: []ParamSpec{{Name: "id"}}},
		{Method: "FindByName", Name: "find", Params: []ParamSpec{{Name: "name"}}},
		{Method: "Retired", Exclude: true},
	}
}

func (s *widgetService) IntEcho(v int) int                { return v }
func (s *widgetService) BoolEcho(v bool) bool             { return v }
func (s *widgetService) Greet(name, trace string) string  { return name + "|" + trace }
func (s *widgetService) EchoWidget(w widget) widget       { return w }
func (s *widgetService) FindByID(id int) string           { return fmt.Sprintf("id:%d", id) }
func (s *widgetService) FindByName(name string) string    { return "name:" + name }
func (s *widgetService) Retired() string                  { return "old" }
func (s *widgetService) Fail() error                      { return errors.New("boom") }
func (s *widgetService) FailWrapped() error               { return fmt.Errorf("charge declined: %w", errQuota) }
func (s *widgetService) FailTyped() error                 { return NotFoundf("gone") }
func (s *widgetService) Explode()                         { panic("kaboom") }
func (s *widgetService) Drop()                            {}

func (s *widgetService) Hits() int {
	s.hits++
	return s.hits
}

func (s *widgetService) Current(ctx context.Context) string {
	name, _ := OperationFromContext(ctx)
	return name
}

func (s *widgetService) secret() {} //nolint:unused // unexported methods must stay invisible

func newWidgetDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	d, err := New(func() any { return &widgetService{} })
	if err != nil {
		t.Fatal(err)
	}
	// Keep panic and internal-failure diagnostics out of test output.
	return d.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func wantKind(t *testing.T, err error, kind Kind) *Failure {
	t.Helper()
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("expected *Failure, got %v", err)
	}
	if f.Kind != kind {
		t.Fatalf("expected kind %s, got %s (message: %s)", kind, f.Kind, f.Message)
	}
	return f
}

func TestInvoke_UnknownOperation(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "teleport", nil, nil)
	f := wantKind(t, err, KindNotFound)
	if !strings.Contains(f.Message, "teleport") {
		t.Errorf("expected operation name in message, got %q", f.Message)
	}
}

func TestInvoke_IntParameter(t *testing.T) {
	d := newWidgetDispatcher(t)

	got, err := d.Invoke(context.Background(), "intEcho",
		map[string]string{"value": "34"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 34 {
		t.Errorf("expected 34, got %v", got)
	}
}

func TestInvoke_BoolParameter(t *testing.T) {
	d := newWidgetDispatcher(t)

	got, err := d.Invoke(context.Background(), "boolEcho",
		map[string]string{"flag": "true"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != true {
		t.Errorf("expected true, got %v", got)
	}
}

func TestInvoke_ConversionFailure(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "intEcho",
		map[string]string{"value": "thirty-four"}, nil)
	f := wantKind(t, err, KindBadRequest)
	if !strings.Contains(f.Message, `"value"`) || !strings.Contains(f.Message, "thirty-four") {
		t.Errorf("expected parameter name and raw value in message, got %q", f.Message)
	}
}

func TestInvoke_UnmappedError(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "Fail", nil, nil)
	f := wantKind(t, err, KindInternal)
	if f.Message != "internal error" {
		t.Errorf("expected generic message, got %q", f.Message)
	}
	if f.Unwrap() == nil || f.Unwrap().Error() != "boom" {
		t.Errorf("expected original cause preserved, got %v", f.Unwrap())
	}
}

func TestInvoke_MappedError(t *testing.T) {
	d := newWidgetDispatcher(t).WithErrorMapper(func(err error) *Failure {
		if errors.Is(err, errQuota) {
			return BadRequestf("over quota")
		}
		return nil
	})

	_, err := d.Invoke(context.Background(), "FailWrapped", nil, nil)
	f := wantKind(t, err, KindBadRequest)
	if f.Message != "over quota" {
		t.Errorf("expected mapped message, got %q", f.Message)
	}
}

func TestInvoke_TypedFailurePassthrough(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "FailTyped", nil, nil)
	f := wantKind(t, err, KindNotFound)
	if f.Message != "gone" {
		t.Errorf("expected failure passed through unchanged, got %q", f.Message)
	}
}

func TestInvoke_Panic(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "Explode", nil, nil)
	f := wantKind(t, err, KindInternal)
	if f.Unwrap() == nil || !strings.Contains(f.Unwrap().Error(), "kaboom") {
		t.Errorf("expected panic value preserved as cause, got %v", f.Unwrap())
	}
}

func TestInvoke_UnexportedMethod(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "secret", nil, nil)
	wantKind(t, err, KindNotFound)
}

func TestInvoke_ExcludedOperation(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "Retired", nil, nil)
	wantKind(t, err, KindNotFound)
}

func TestInvoke_RenamedOperation(t *testing.T) {
	d := newWidgetDispatcher(t)

	// The Go method name is not an operation name once overridden.
	_, err := d.Invoke(context.Background(), "IntEcho",
		map[string]string{"value": "1"}, nil)
	wantKind(t, err, KindNotFound)
}

func TestInvoke_HeaderIsOptional(t *testing.T) {
	d := newWidgetDispatcher(t)

	got, err := d.Invoke(context.Background(), "greet",
		map[string]string{"name": "ada"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "ada|" {
		t.Errorf("expected absent header observed as zero value, got %v", got)
	}

	got, err = d.Invoke(context.Background(), "greet",
		map[string]string{"name": "ada"},
		map[string]string{"X-Trace": "t-1"})
	if err != nil {
		t.Fatal(err)
	}
	if got != "ada|t-1" {
		t.Errorf("expected header bound, got %v", got)
	}
}

func TestInvoke_MisplacedHeader(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "greet",
		map[string]string{"name": "ada", "X-Trace": "t-1"}, nil)
	f := wantKind(t, err, KindBadRequest)
	if !strings.Contains(f.Message, "X-Trace") {
		t.Errorf("expected misplaced parameter named, got %q", f.Message)
	}
}

func TestInvoke_OverloadSelection(t *testing.T) {
	d := newWidgetDispatcher(t)

	got, err := d.Invoke(context.Background(), "find",
		map[string]string{"id": "7"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "id:7" {
		t.Errorf("expected FindByID selected, got %v", got)
	}

	got, err = d.Invoke(context.Background(), "find",
		map[string]string{"name": "ada"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "name:ada" {
		t.Errorf("expected FindByName selected, got %v", got)
	}
}

func TestInvoke_AmbiguousOverload(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "find",
		map[string]string{"id": "7", "name": "ada"}, nil)
	f := wantKind(t, err, KindBadRequest)
	if !strings.Contains(f.Message, "unable to distinguish methods") {
		t.Errorf("expected distinguish message, got %q", f.Message)
	}
}

func TestInvoke_ObjectRoundTrip(t *testing.T) {
	d := newWidgetDispatcher(t)

	got, err := d.Invoke(context.Background(), "echoWidget",
		map[string]string{"widget": `{"id":7,"label":"spanner","tags":["tool"]}`}, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := widget{ID: 7, Label: "spanner", Tags: []string{"tool"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestInvoke_ObjectValidation(t *testing.T) {
	d := newWidgetDispatcher(t)

	_, err := d.Invoke(context.Background(), "echoWidget",
		map[string]string{"widget": `{"id":7}`}, nil)
	wantKind(t, err, KindBadRequest)
}

func TestInvoke_VoidResult(t *testing.T) {
	d := newWidgetDispatcher(t)

	got, err := d.Invoke(context.Background(), "Drop", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected unit result nil, got %v", got)
	}
}

func TestInvoke_FreshInstancePerCall(t *testing.T) {
	d := newWidgetDispatcher(t)

	for i := 0; i < 3; i++ {
		got, err := d.Invoke(context.Background(), "Hits", nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		if got != 1 {
			t.Fatalf("expected per-call state to reset, got %v on call %d", got, i+1)
		}
	}
}

func TestInvoke_ContextCarriesOperation(t *testing.T) {
	d := newWidgetDispatcher(t)

	got, err := d.Invoke(context.Background(), "Current", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != "Current" {
		t.Errorf("expected operation name from context, got %v", got)
	}
}

func TestInvoke_Interceptors(t *testing.T) {
	var order []string
	d := newWidgetDispatcher(t).
		WithInterceptor(func(ctx context.Context, op string, next HandlerFunc) (any, error) {
			order = append(order, "outer:"+op)
			res, err := next(ctx)
			order = append(order, "outer done")
			return res, err
		}).
		WithInterceptor(func(ctx context.Context, op string, next HandlerFunc) (any, error) {
			order = append(order, "inner")
			return next(ctx)
		})

	got, err := d.Invoke(context.Background(), "intEcho",
		map[string]string{"value": "5"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("expected 5, got %v", got)
	}
	want := []string{"outer:intEcho", "inner", "outer done"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("expected order %v, got %v", want, order)
	}
}

func TestInvoke_InterceptorShortCircuit(t *testing.T) {
	d := newWidgetDispatcher(t).
		WithInterceptor(func(ctx context.Context, op string, next HandlerFunc) (any, error) {
			return nil, BadRequestf("rejected by interceptor")
		})

	_, err := d.Invoke(context.Background(), "intEcho",
		map[string]string{"value": "5"}, nil)
	f := wantKind(t, err, KindBadRequest)
	if f.Message != "rejected by interceptor" {
		t.Errorf("unexpected message %q", f.Message)
	}
}

func TestOperations_Introspection(t *testing.T) {
	d := newWidgetDispatcher(t)

	ops := d.Operations()
	byName := make(map[string][]OperationInfo)
	for i, op := range ops {
		byName[op.Name] = append(byName[op.Name], op)
		if i > 0 && ops[i-1].Name > op.Name {
			t.Fatal("expected operations sorted by name")
		}
	}

	if len(byName["find"]) != 2 {
		t.Errorf("expected both find overloads listed, got %d", len(byName["find"]))
	}
	if _, ok := byName["Retired"]; ok {
		t.Error("excluded operation must not be listed")
	}

	greet := byName["greet"]
	if len(greet) != 1 || len(greet[0].Params) != 2 {
		t.Fatalf("unexpected greet metadata: %+v", greet)
	}
	if !greet[0].Params[1].Header {
		t.Error("expected X-Trace flagged as header")
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil factory")
	}
	if _, err := New(func() any { return &badReturnsService{} }); err == nil {
		t.Error("expected error for unsupported signature")
	}
}
