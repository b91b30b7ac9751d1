// Package opcall exposes the exported methods of plain service types as
// callable operations addressed by name plus two flat string parameter
// maps, one for primary parameters and one for headers.
//
// A Dispatcher is built once per service type from a zero-argument factory:
//
//	d, err := opcall.New(func() any { return &AccountService{} })
//	if err != nil { ... }
//	result, err := d.Invoke(ctx, "Balance",
//		map[string]string{"account": "acc-1"},
//		map[string]string{"tenant": "t-42"},
//	)
//
// Raw string values are converted to the method's parameter types with a
// fixed strategy order: primitive parsing, string identity, the
// encoding.TextUnmarshaler factory convention, and finally JSON decoding
// through an injectable Codec for object and list shapes.
//
// Failures are categorized as not-found, bad-request or internal (see
// Kind); callers and transport adapters branch on the category instead of
// on concrete error types. Errors returned by invoked methods can be
// translated through an ErrorMapper; everything unrecognized becomes an
// internal failure with its cause preserved.
//
// Services may implement Describer to rename operations, exclude them, or
// declare parameter names and header/optional flags; without it parameters
// are positional (arg0, arg1, …). The httpbind subpackage adapts a
// Dispatcher to HTTP, flattening query strings and headers into the two
// maps.
package opcall
