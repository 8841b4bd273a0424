package site

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"strings"

	"github.com/junsooki/EdgeCam/internal/session"
)

//go:embed assets/index.html.tmpl assets/static
var assets embed.FS

var pageTmpl = template.Must(template.New("index.html.tmpl").Funcs(template.FuncMap{
	"gradient": gradient,
}).ParseFS(assets, "assets/index.html.tmpl"))

// Page is the data rendered into the landing page.
type Page struct {
	Content    *Content
	State      session.State
	InstanceID string
	WebRTC     bool
}

// CameraUnavailable reports whether the fallback card replaces the demo.
func (p Page) CameraUnavailable() bool {
	return p.State.Camera == session.CameraUnavailable
}

// Render writes the landing page.
func Render(w io.Writer, p Page) error {
	if p.Content == nil {
		p.Content = Default()
	}
	return pageTmpl.Execute(w, p)
}

// Static returns the script and stylesheet served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "assets/static")
	if err != nil {
		panic(err)
	}
	return sub
}

// gradient turns "a,b" into a CSS linear-gradient.
func gradient(s string) template.CSS {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
		if !isHexColor(parts[i]) {
			return template.CSS("#00bfff")
		}
	}
	if len(parts) == 1 {
		return template.CSS(parts[0])
	}
	return template.CSS(fmt.Sprintf("linear-gradient(135deg, %s)", strings.Join(parts, ", ")))
}

func isHexColor(s string) bool {
	if len(s) != 4 && len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}
