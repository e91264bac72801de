package report

import (
	"bytes"
	"html/template"

	"github.com/russross/blackfriday/v2"
)

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 72em; margin: 2em auto; padding: 0 1em; color: #222; }
pre { background: #f6f8fa; padding: 1em; overflow-x: auto; font-size: 0.85em; }
code { font-family: monospace; }
h2 { border-bottom: 1px solid #ddd; padding-bottom: 0.2em; }
img { max-width: 100%; border: 1px solid #ddd; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

func renderHTML(r Report) ([]byte, error) {
	body := blackfriday.Run(renderMarkdown(r))

	var b bytes.Buffer
	err := page.Execute(&b, struct {
		Title string
		Body  template.HTML
	}{
		Title: r.Title,
		Body:  template.HTML(body),
	})
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}
