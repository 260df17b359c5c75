package server

import (
	"errors"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/search"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/internal/validate"
)

const sourcePreviewLen = 600

type pageView struct {
	Document    string
	Query       string
	Answer      string
	Model       string
	TookMS      int64
	Sources     []sourceView
	Messages    []string
	Error       string
	ShowFullDoc bool
	Pages       []*models.Page
}

type sourceView struct {
	Label   string
	Source  string
	Page    int
	Score   float64
	Content template.HTML
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>tanya{{if .Document}} - {{.Document}}{{end}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem auto; max-width: 72rem; padding: 0 1rem; }
textarea { width: 100%; min-height: 5rem; font: inherit; }
.columns { display: grid; grid-template-columns: 1fr 1fr; gap: 2rem; }
.source { border-bottom: 1px solid #ddd; padding: .5rem 0; }
.meta { color: #666; font-size: .85rem; }
.message { background: #fff4e5; border-left: 4px solid #f0a020; padding: .5rem 1rem; }
.error { background: #fdecea; border-left: 4px solid #d93025; padding: .5rem 1rem; }
.page { white-space: pre-wrap; }
mark { background: #fff176; }
</style>
</head>
<body>
<h1>tanya</h1>
{{if .Document}}<p class="meta">Asking about <strong>{{.Document}}</strong></p>{{end}}
{{if .ShowFullDoc}}
<details>
<summary>Document</summary>
{{range $i, $p := .Pages}}{{if $i}}<hr>{{end}}<div class="page" id="page-{{$p.Number}}">{{$p.Content}}</div>{{end}}
</details>
{{end}}
<form method="post" action="/">
<label for="query">Ask a question about the document</label>
<textarea id="query" name="query">{{.Query}}</textarea>
<button type="submit">Submit</button>
</form>
{{range .Messages}}<p class="message">{{.}}</p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Answer}}
<div class="columns">
<section>
<h4>Answer</h4>
<p>{{.Answer}}</p>
<p class="meta">{{.Model}} &middot; {{.TookMS}} ms</p>
</section>
<section>
<h4>Sources</h4>
{{range .Sources}}
<div class="source">
<p>{{.Content}}</p>
<p class="meta">[{{.Label}}] {{.Source}} page {{.Page}} &middot; score {{printf "%.3f" .Score}}</p>
</div>
{{end}}
</section>
</div>
{{end}}
</body>
</html>
`))

func (s *Server) newPage() *pageView {
	v := &pageView{ShowFullDoc: s.config.Query.ShowFullDocOrDefault()}
	if doc := s.session.Document(); doc != nil {
		v.Document = doc.Name
		if v.ShowFullDoc {
			v.Pages = doc.Pages
		}
	}
	if msgs := s.session.LoadErrors(); len(msgs) > 0 {
		v.Messages = append(v.Messages, msgs...)
	} else if v.Document == "" {
		v.Messages = append(v.Messages, "The document is still being indexed.")
	}
	return v
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.newPage())
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	v := s.newPage()
	if err := r.ParseForm(); err != nil {
		v.Error = "invalid form submission"
		s.render(w, http.StatusBadRequest, v)
		return
	}
	v.Query = r.PostFormValue("query")
	if failures := validate.Run(validate.QueryCheck(v.Query)); len(failures) > 0 {
		for _, f := range failures {
			v.Messages = append(v.Messages, f.Message)
		}
		s.render(w, http.StatusOK, v)
		return
	}

	result, err := s.session.Ask(r.Context(), s.session.DefaultRequest(v.Query))
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("query failed", zap.Error(err))
		}
		var valErr *session.ValidationError
		if errors.As(err, &valErr) {
			for _, f := range valErr.Failures {
				v.Messages = append(v.Messages, f.Message)
			}
		} else {
			v.Error = err.Error()
		}
		s.render(w, status, v)
		return
	}

	v.Answer = result.Answer
	v.Model = result.Model
	v.TookMS = result.TookMillis()
	for _, src := range result.Sources {
		v.Sources = append(v.Sources, sourceView{
			Label:   src.Chunk.Label(),
			Source:  src.Chunk.Source(),
			Page:    src.Chunk.Page,
			Score:   src.Score,
			Content: template.HTML(search.Highlight(strings.TrimSpace(src.Chunk.Content), v.Query, sourcePreviewLen)),
		})
	}
	s.render(w, http.StatusOK, v)
}

func (s *Server) render(w http.ResponseWriter, status int, v *pageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, v); err != nil {
		s.logger.Error("render failed", zap.Error(err))
	}
}
