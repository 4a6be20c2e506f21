package proxygen

import (
	"bytes"
	"fmt"
	"go/format"
	"strings"
	"text/template"
)

const fileTemplate = `// Code generated by proxygen. DO NOT EDIT.

package {{.Package}}

import (
{{- range .StdImports}}
	{{if .Alias}}{{.Alias}} {{end}}"{{.Path}}"
{{- end}}
{{- if and .StdImports .Imports}}
{{end}}
{{- range .Imports}}
	{{if .Alias}}{{.Alias}} {{end}}"{{.Path}}"
{{- end}}
)
{{- range $iface := .Interfaces}}

// {{.ProxyType}} routes {{.Name}} calls through a {{$.ProxyPkg}}.Invoker.
type {{.ProxyType}} struct {
	target  {{.TypeRef}}
	invoker *{{$.ProxyPkg}}.Invoker
}

// {{.Constructor}} returns {{article .Name}} {{.Name}} that forwards to target through invoker.
func {{.Constructor}}(target {{.TypeRef}}, invoker *{{$.ProxyPkg}}.Invoker) {{.TypeRef}} {
	return &{{.ProxyType}}{target: target, invoker: invoker}
}

// ProxyInvoker returns the invoker behind the proxy.
func (p *{{.ProxyType}}) ProxyInvoker() *{{$.ProxyPkg}}.Invoker {
	return p.invoker
}
{{- range $m := .Methods}}

func (p *{{$iface.ProxyType}}) {{$m.Name}}({{$m.Params}}){{$m.Results}} {
{{- if $m.HasResults}}
	inv := p.invoker.Invoke({{printf "%q" $m.Name}}, []any{ {{- $m.Args -}} }, func(inv *{{$.ProxyPkg}}.Invocation) {
		{{$m.ResultVars}} := p.target.{{$m.Name}}({{$m.CallArgs}})
		inv.ReturnValues = []any{ {{- $m.ResultVars -}} }
	})
	return {{$m.Returns}}
{{- else}}
	p.invoker.Invoke({{printf "%q" $m.Name}}, []any{ {{- $m.Args -}} }, func(inv *{{$.ProxyPkg}}.Invocation) {
		p.target.{{$m.Name}}({{$m.CallArgs}})
	})
{{- end}}
}
{{- end}}
{{- end}}

func init() {
{{- range .Interfaces}}
	{{$.ProxyPkg}}.MustRegister({{$.ProxyPkg}}.Default, {{.Constructor}})
{{- end}}
}
`

var tmpl = template.Must(template.New("proxy").Funcs(template.FuncMap{
	"article": article,
}).Parse(fileTemplate))

// Render executes the template for f and formats the result.
func Render(f *File) ([]byte, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, f); err != nil {
		return nil, fmt.Errorf("failed to render proxies: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to format generated code: %w\n%s", err, buf.String())
	}
	return src, nil
}

// Generate loads pattern from dir and renders proxies for the named
// interfaces into a file for the same package.
func Generate(dir, pattern string, names ...string) ([]byte, error) {
	pkg, err := LoadPackage(dir, pattern)
	if err != nil {
		return nil, err
	}
	f, err := Build(pkg, names, "", "")
	if err != nil {
		return nil, err
	}
	return Render(f)
}

func article(name string) string {
	if name != "" && strings.ContainsRune("AEIOUaeiou", rune(name[0])) {
		return "an"
	}
	return "a"
}
