package server

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/conneroisu/sandcastle/internal/config"
)

// indexPage builds the browsable project shell as a templ component.
func indexPage(cfg *config.Config, files []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>sandcastle preview</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
h1 { font-size: 1.2rem; }
li { margin: 0.2rem 0; }
code { color: #555; }
</style>
</head>
<body>
<h1>sandcastle preview</h1>
`); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<p>serving on <code>%s:%d</code></p>\n<ul>\n",
			templ.EscapeString(cfg.Server.Host), cfg.Server.Port); err != nil {
			return err
		}
		for _, file := range files {
			escaped := templ.EscapeString(file)
			if _, err := fmt.Fprintf(w, `<li><a href="%s">%s</a></li>`+"\n", escaped, escaped); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul>\n</body>\n</html>\n")
		return err
	})
}

// renderIndex renders the shell to bytes so the reload script can be
// injected before the response is written.
func renderIndex(ctx context.Context, cfg *config.Config, files []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexPage(cfg, files).Render(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
