package annotation

import (
	"embed"
	"html/template"
	"io"
	"io/fs"

	"github.com/abiosoft/mold"
	"github.com/russross/blackfriday/v2"
)

var (
	//go:embed templates
	templateFS embed.FS

	//go:embed assets/css/style.css
	cssContent string

	//go:embed assets/favicon.svg
	faviconContent string

	// TemplateFuncMap contains the template functions available to every page
	TemplateFuncMap = template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"markdown": func(text string) template.HTML {
			return template.HTML(blackfriday.Run([]byte(text)))
		},
	}
)

// Templates renders the embedded pages inside the base layout
type Templates struct {
	engine mold.Engine
}

func NewTemplates() (*Templates, error) {
	root, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine, err := mold.New(root,
		mold.WithLayout("layouts/layout.html"),
		mold.WithFuncMap(TemplateFuncMap),
	)
	if err != nil {
		return nil, err
	}
	return &Templates{engine: engine}, nil
}

// RenderPage renders templates/pages/<pageName>.html
func (t *Templates) RenderPage(w io.Writer, pageName string, data map[string]any) error {
	return t.engine.Render(w, "pages/"+pageName+".html", data)
}

// GetFavicon returns the embedded favicon content
func GetFavicon() string {
	return faviconContent
}

// GetStylesheet returns the embedded stylesheet
func GetStylesheet() string {
	return cssContent
}
