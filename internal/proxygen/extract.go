package proxygen

import (
	"fmt"
	"go/types"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/tools/go/packages"
)

// ProxyImportPath is the runtime package generated code calls into.
const ProxyImportPath = "github.com/GoCodeAlone/interception/proxy"

// LoadPackage loads and type-checks the single package matched by pattern,
// resolved relative to dir.
func LoadPackage(dir, pattern string) (*types.Package, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedImports | packages.NeedTypes | packages.NeedTypesSizes |
			packages.NeedSyntax | packages.NeedTypesInfo,
		Dir: dir,
	}

	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load package %s: %w", pattern, err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPackagesFound, pattern)
	}
	if len(pkgs) > 1 {
		return nil, fmt.Errorf("%w: %s", ErrMultiplePackages, pattern)
	}

	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		msgs := make([]string, 0, len(pkg.Errors))
		for _, e := range pkg.Errors {
			msgs = append(msgs, e.Error())
		}
		return nil, fmt.Errorf("%w: %s", ErrPackageErrors, strings.Join(msgs, "; "))
	}
	return pkg.Types, nil
}

// Build produces the render model for the named interfaces of pkg. The
// generated file belongs to the package at outPath named outName; when
// outPath is empty the file is generated into pkg itself.
func Build(pkg *types.Package, names []string, outPath, outName string) (*File, error) {
	if len(names) == 0 {
		return nil, ErrNoTypes
	}
	if outPath == "" {
		outPath = pkg.Path()
	}
	if outName == "" {
		outName = pkg.Name()
	}

	imp := newImports(outPath)
	file := &File{Package: outName, ProxyPkg: imp.alias(ProxyImportPath, "proxy")}

	for _, name := range names {
		iface, err := buildInterface(pkg, name, outPath, file.ProxyPkg, imp)
		if err != nil {
			return nil, err
		}
		file.Interfaces = append(file.Interfaces, *iface)
	}

	file.StdImports, file.Imports = imp.split()
	return file, nil
}

func buildInterface(pkg *types.Package, name, outPath, proxyPkg string, imp *imports) (*Interface, error) {
	obj := pkg.Scope().Lookup(name)
	if obj == nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrTypeNotFound, name, pkg.Path())
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInterface, name)
	}
	named, ok := tn.Type().(*types.Named)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInterface, name)
	}
	if named.TypeParams().Len() > 0 {
		return nil, fmt.Errorf("%w: %s", ErrGenericInterface, name)
	}
	it, ok := named.Underlying().(*types.Interface)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInterface, name)
	}

	crossPackage := pkg.Path() != outPath
	qualifier := imp.qualifier

	out := &Interface{
		Name:        name,
		TypeRef:     types.TypeString(named, qualifier),
		ProxyType:   lowerFirst(name) + "Proxy",
		Constructor: constructorName(name),
	}

	// NumMethods includes embedded interface methods, already sorted by name.
	for i := 0; i < it.NumMethods(); i++ {
		fn := it.Method(i)
		if crossPackage && !fn.Exported() {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnexportedMethod, name, fn.Name())
		}
		sig := fn.Type().(*types.Signature)
		out.Methods = append(out.Methods, buildMethod(fn.Name(), sig, qualifier, imp, proxyPkg, out.ProxyType))
	}
	return out, nil
}

func buildMethod(name string, sig *types.Signature, q types.Qualifier, im *imports, proxyPkg, proxyType string) Method {
	m := Method{Name: name}
	params, results := sig.Params(), sig.Results()

	// Qualify every type first so that all referenced package names are
	// known before parameter names are chosen.
	ptypes := make([]string, params.Len())
	var variadicElem string
	for i := 0; i < params.Len(); i++ {
		ptypes[i] = types.TypeString(params.At(i).Type(), q)
		if sig.Variadic() && i == params.Len()-1 {
			variadicElem = types.TypeString(params.At(i).Type().(*types.Slice).Elem(), q)
		}
	}
	rtypes := make([]string, results.Len())
	for i := 0; i < results.Len(); i++ {
		rtypes[i] = types.TypeString(results.At(i).Type(), q)
	}

	reserved := map[string]bool{"p": true, "inv": true, proxyType: true}
	for n := range im.names {
		reserved[n] = true
	}
	for i := range rtypes {
		reserved["r"+strconv.Itoa(i)] = true
	}

	names := paramNames(params, reserved)

	var decl, args, call []string
	for i := 0; i < params.Len(); i++ {
		pname := names[i]
		args = append(args, pname)

		if variadicElem != "" && i == params.Len()-1 {
			decl = append(decl, pname+" ..."+variadicElem)
			call = append(call, fmt.Sprintf("%s.Arg[%s](inv, %d)...", proxyPkg, ptypes[i], i))
			continue
		}
		decl = append(decl, pname+" "+ptypes[i])
		call = append(call, fmt.Sprintf("%s.Arg[%s](inv, %d)", proxyPkg, ptypes[i], i))
	}

	var rvars, rets []string
	for i, typ := range rtypes {
		rvars = append(rvars, "r"+strconv.Itoa(i))
		rets = append(rets, fmt.Sprintf("%s.Result[%s](inv, %d)", proxyPkg, typ, i))
	}

	m.Params = strings.Join(decl, ", ")
	m.Args = strings.Join(args, ", ")
	m.CallArgs = strings.Join(call, ", ")
	m.ResultVars = strings.Join(rvars, ", ")
	m.Returns = strings.Join(rets, ", ")
	switch len(rtypes) {
	case 0:
	case 1:
		m.Results = " " + rtypes[0]
	default:
		m.Results = " (" + strings.Join(rtypes, ", ") + ")"
	}
	return m
}

// paramNames keeps usable source names first, then gives the rest argN,
// skipping any name already taken.
func paramNames(params *types.Tuple, reserved map[string]bool) []string {
	names := make([]string, params.Len())
	used := map[string]bool{}
	for i := range names {
		name := params.At(i).Name()
		if name == "" || name == "_" || reserved[name] || used[name] {
			continue
		}
		names[i] = name
		used[name] = true
	}
	for i, name := range names {
		if name != "" {
			continue
		}
		name = "arg" + strconv.Itoa(i)
		for n := 2; used[name] || reserved[name]; n++ {
			name = "arg" + strconv.Itoa(i) + "_" + strconv.Itoa(n)
		}
		names[i] = name
		used[name] = true
	}
	return names
}

// imports assigns a unique local name to every package referenced from the
// output package.
type imports struct {
	self   string
	byPath map[string]string
	names  map[string]bool
}

func newImports(self string) *imports {
	return &imports{self: self, byPath: map[string]string{}, names: map[string]bool{}}
}

func (im *imports) alias(path, name string) string {
	if a, ok := im.byPath[path]; ok {
		return a
	}
	a := name
	for i := 2; im.names[a]; i++ {
		a = name + strconv.Itoa(i)
	}
	im.byPath[path] = a
	im.names[a] = true
	return a
}

func (im *imports) qualifier(p *types.Package) string {
	if p.Path() == im.self {
		return ""
	}
	return im.alias(p.Path(), p.Name())
}

func (im *imports) split() (std, other []Import) {
	paths := make([]string, 0, len(im.byPath))
	for p := range im.byPath {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		imp := Import{Path: p}
		if a := im.byPath[p]; a != lastElem(p) {
			imp.Alias = a
		}
		if isStd(p) {
			std = append(std, imp)
		} else {
			other = append(other, imp)
		}
	}
	return std, other
}

func isStd(path string) bool {
	first, _, _ := strings.Cut(path, "/")
	return !strings.Contains(first, ".")
}

func lastElem(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func constructorName(name string) string {
	r, _ := utf8.DecodeRuneInString(name)
	if unicode.IsUpper(r) {
		return "New" + name + "Proxy"
	}
	return "new" + upperFirst(name) + "Proxy"
}

func lowerFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[n:]
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[n:]
}
