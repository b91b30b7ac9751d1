package opcall

// Describer is implemented by services that customize how their methods are
// exposed: renaming operations, excluding them, or naming their parameters.
//
// Go reflection carries no parameter names, so a service that wants callers
// to address parameters by name must describe them here. Methods without an
// entry are still exposed under their own name, with parameters named arg0,
// arg1, … and treated as required non-headers.
type Describer interface {
	Operations() []OperationSpec
}

// OperationSpec describes how one method of a service is exposed.
type OperationSpec struct {
	// Method is the Go method name the spec applies to.
	Method string

	// Name is the external operation name. Empty means the method's own
	// name. Two methods may share an external name; such overloads are
	// disambiguated per call by the supplied parameters.
	Name string

	// Exclude removes the method from the operation set entirely. An
	// excluded method is unreachable under any name, including its own.
	Exclude bool

	// Params describes the method's parameters positionally, excluding a
	// leading context.Context. Missing trailing entries get defaults.
	Params []ParamSpec
}

// ParamSpec describes one parameter of an operation.
type ParamSpec struct {
	// Name is the key the parameter is looked up under. Empty means the
	// positional default argN.
	Name string

	// Header sources the parameter from the header map instead of the
	// primary parameter map. Header parameters are always optional.
	Header bool

	// Optional permits a non-header parameter to be absent; the method
	// then observes the type's zero value (nil for pointer, slice and
	// map types). Headers are optional regardless of this flag.
	Optional bool
}

// Hidden marks a type whose promoted methods are not exposed as operations.
// Embed a Hidden implementor to share behavior across services without
// widening their callable surface.
type Hidden interface {
	HiddenOperations()
}
