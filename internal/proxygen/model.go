// Package proxygen generates typed proxy implementations of Go interfaces.
// A generated proxy forwards each method through a proxy.Invoker and
// registers its constructor with proxy.Default from init.
package proxygen

import "errors"

var (
	ErrTypeNotFound     = errors.New("type not found")
	ErrNotInterface     = errors.New("type is not an interface")
	ErrGenericInterface = errors.New("generic interfaces are not supported")
	ErrUnexportedMethod = errors.New("interface has unexported methods and cannot be implemented from another package")
	ErrNoTypes          = errors.New("no interface types given")
	ErrPackageErrors    = errors.New("package has errors")
	ErrNoPackagesFound  = errors.New("no packages found")
	ErrMultiplePackages = errors.New("pattern matched more than one package")
)

// File is everything needed to render one generated file.
type File struct {
	Package    string
	ProxyPkg   string
	StdImports []Import
	Imports    []Import
	Interfaces []Interface
}

// Import is one import line. Alias is empty when it equals the package name.
type Import struct {
	Alias string
	Path  string
}

// Interface is one interface to proxy.
type Interface struct {
	Name        string
	TypeRef     string
	ProxyType   string
	Constructor string
	Methods     []Method
}

// Method is one interface method with its rendered fragments.
type Method struct {
	Name string

	// Params is the parameter list, e.g. "ctx context.Context, tags ...string".
	Params string
	// Results is the result list including the leading space, e.g. " (int, error)".
	Results string
	// Args lists the parameter names passed to the invoker.
	Args string
	// CallArgs re-reads the arguments from the invocation for the target call.
	CallArgs string
	// ResultVars names the target's results, e.g. "r0, r1".
	ResultVars string
	// Returns reads the results back from the invocation.
	Returns string
}

// HasResults reports whether the method returns anything.
func (m Method) HasResults() bool {
	return m.ResultVars != ""
}
