package compiler

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed templates/*.tpl
var templatesFS embed.FS

// templates holds the parsed listing templates.
var templates *template.Template

func init() {
	var err error
	templates, err = template.New("listing").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(templatesFS, "templates/*.tpl")
	if err != nil {
		panic(fmt.Sprintf("failed to parse listing templates: %v", err))
	}
}

// render executes the named listing template.
func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".tpl", data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

type headerListing struct {
	Kind      string
	Name      string
	Variables []string
	RootType  string
}

type leafListing struct {
	Getter     string
	TypeSymbol string
	TypeName   string
}

type wrapperListing struct {
	Getter      string
	Type        string
	Inner       string
	Item        string
	ItemNonNull bool
}

type objectListing struct {
	Getter   string
	TypeName string
	Root     bool
	Fields   []fieldListing
}

type fieldListing struct {
	Key         string
	Guard       string
	Typename    bool
	FieldDef    string
	Resolve     string
	ResolveInfo string
	Get         string
	Args        []string
	NonNull     bool
}

type trailerListing struct {
	Entry     string
	Schema    string
	Operation string
}

// describeGuard renders the run-time inclusion test of a field.
func describeGuard(f collectedField) string {
	if f.static() {
		return ""
	}
	var alts []string
	for _, n := range f.Nodes {
		for _, c := range n.when {
			var checks []string
			for _, v := range c {
				if v.Skip {
					checks = append(checks, "!$"+v.Variable)
				} else {
					checks = append(checks, "$"+v.Variable)
				}
			}
			alts = append(alts, strings.Join(checks, " && "))
		}
	}
	return strings.Join(alts, " || ")
}
