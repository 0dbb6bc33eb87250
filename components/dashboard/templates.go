package dashboard

import (
	"embed"
	"io/fs"

	template "github.com/goliatone/go-template"
)

//go:embed templates/*.html templates/**/*.html
var snapshotTemplates embed.FS

// SnapshotTemplates exposes the embedded snapshot templates so applications
// can copy and customize them.
func SnapshotTemplates() fs.FS {
	sub, err := fs.Sub(snapshotTemplates, "templates")
	if err != nil {
		return snapshotTemplates
	}
	return sub
}

// NewTemplateRenderer creates the pongo2 renderer used by RenderHTML. A
// non-nil override replaces the embedded templates; it must provide
// dashboard.html and the partials it includes.
func NewTemplateRenderer(override fs.FS) (Renderer, error) {
	if override != nil {
		return template.NewRenderer(
			template.WithFS(override),
			template.WithExtension(".html"),
		)
	}
	return template.NewRenderer(
		template.WithFS(snapshotTemplates),
		template.WithBaseDir("templates"),
		template.WithExtension(".html"),
	)
}
