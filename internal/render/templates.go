package render

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
)

var (
	entryTemplate = template.Must(template.New("entry").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Chat Archive</title>
<link rel="stylesheet" href="{{.Stylesheet}}">
</head>
<body>
<h1>Chats</h1>
<ul class="chat-list">
{{range .Chats}}<li><a href="{{.Dir}}/index.html">{{.Name}}</a></li>
{{end}}</ul>
</body>
</html>
`))

	chatIndexTemplate = template.Must(template.New("chat-index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.ChatName}}</title>
<link rel="stylesheet" href="{{.Stylesheet}}">
</head>
<body>
<h1>{{.ChatName}}</h1>
<p><a href="../index.html">All chats</a></p>
<ul class="year-list">
{{range .Years}}<li><a href="{{.}}.html">{{.}}</a></li>
{{end}}</ul>
</body>
</html>
`))

	yearTemplate = template.Must(template.New("year").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.ChatName}} — {{.Year}}</title>
<link rel="stylesheet" href="{{.Stylesheet}}">
</head>
<body>
<h1>{{.ChatName}} <span class="year">{{.Year}}</span></h1>
<p><a href="index.html">Years</a></p>
<div class="messages">
{{range .Messages}}<div class="message">
<span class="timestamp">{{.Timestamp}}</span>
<span class="sender">{{.Sender}}</span>
<div class="content">
{{range .Lines}}<p>{{.}}</p>
{{end}}{{if .Unresolved}}<p class="missing">(attachment missing: {{.MediaName}})</p>
{{else if .MediaImage}}<a href="{{.MediaHref}}"><img src="{{.MediaHref}}" alt="{{.MediaName}}"></a>
{{else if .MediaHref}}<p><a href="{{.MediaHref}}">{{.MediaName}}</a></p>
{{end}}</div>
</div>
{{end}}</div>
</body>
</html>
`))
)

// writeTemplate renders a template to a temp file in the target directory
// and renames it into place.
func writeTemplate(target string, tmpl *template.Template, data any) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".wab-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if err := tmpl.Execute(tmp, data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("executing template: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// writeFileAtomic writes raw bytes with the same temp-and-rename protocol.
func writeFileAtomic(target string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".wab-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}
