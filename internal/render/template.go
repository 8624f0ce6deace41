package render

import "html/template"

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .BookTitle}}{{.Title}} - {{.BookTitle}}{{else}}{{.Title}}{{end}}</title>
<style>
body { max-width: 48rem; margin: 2rem auto; padding: 0 1rem; font-family: sans-serif; line-height: 1.5; }
pre { background: #f6f8fa; padding: 0.75rem; overflow-x: auto; }
nav.pager { display: flex; justify-content: space-between; margin: 2rem 0; }
</style>
</head>
<body>
{{- define "pager"}}
<nav class="pager">
<span>{{with .Prev}}<a rel="prev" href="{{.Href}}">&larr; {{.Title}}</a>{{end}}</span>
{{- with .Index}}
<a href="{{.}}">Contents</a>
{{- end}}
<span>{{with .Next}}<a rel="next" href="{{.Href}}">{{.Title}} &rarr;</a>{{end}}</span>
</nav>
{{- end}}
{{template "pager" .}}
<h1>{{.Title}}</h1>
{{- if .Contents}}
<ol class="contents">
{{- range .Contents}}
<li><a href="{{.Href}}">{{.Title}}</a>
{{- if .Sections}}
<ul>
{{- range .Sections}}
<li><a href="{{.Href}}">{{.Title}}</a></li>
{{- end}}
</ul>
{{- end}}
</li>
{{- end}}
</ol>
{{- end}}
{{- range .Sections}}
<section id="{{.Anchor}}">
<h2><a href="#{{.Anchor}}">{{.Title}}</a></h2>
{{- range .Blocks}}
{{- if .Code}}
<pre id="{{.ID}}"><code class="language-{{.Language}}">{{.Display}}</code></pre>
{{- else}}
{{.Prose}}
{{- end}}
{{- end}}
</section>
{{- end}}
{{template "pager" .}}
</body>
</html>
`))
