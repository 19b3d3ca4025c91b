package web

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/digkill/BizPlanGen/internal/models"
	"github.com/digkill/BizPlanGen/internal/service"
)

type fieldView struct {
	Name      string
	Label     string
	Value     string
	Multiline bool
}

type indexPage struct {
	Fields     []fieldView
	Paid       bool
	SelfReport bool
	HasPlan    bool
	Message    string
}

type checkoutPage struct {
	Form *service.CheckoutForm
}

type jobPage struct {
	Job  models.GenerationJob
	Done bool
	Plan string
}

var fieldLabels = map[string]string{
	service.FieldIdea:     "Business Idea",
	service.FieldIndustry: "Industry",
	service.FieldAudience: "Target Audience",
	service.FieldFunding:  "Funding Needs",
	service.FieldGoals:    "Business Goals",
}

func fieldViews(req models.PlanRequest) []fieldView {
	values := map[string]string{
		service.FieldIdea:     req.Idea,
		service.FieldIndustry: req.Industry,
		service.FieldAudience: req.Audience,
		service.FieldFunding:  req.Funding,
		service.FieldGoals:    req.Goals,
	}
	views := make([]fieldView, 0, len(service.FieldNames))
	for _, name := range service.FieldNames {
		views = append(views, fieldView{
			Name:      name,
			Label:     fieldLabels[name],
			Value:     values[name],
			Multiline: name == service.FieldIdea || name == service.FieldGoals,
		})
	}
	return views
}

const layoutTmpl = `{{define "layout"}}<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    {{block "head" .}}{{end}}
    <title>AI Business Plan Generator</title>
    <style>
      body { font-family: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial, sans-serif; max-width: 900px; margin: 2rem auto; padding: 0 1rem; color: #1f2937; }
      label { display: block; font-weight: 600; margin-top: 1rem; }
      input[type=text], textarea { width: 100%; padding: .5rem; border: 1px solid #d1d5db; border-radius: 6px; }
      textarea { min-height: 5rem; }
      button, .button { margin-top: 1rem; padding: .6rem 1.2rem; border: 0; border-radius: 6px; background: #3399cc; color: #fff; cursor: pointer; text-decoration: none; display: inline-block; }
      .notice { background: #ecfdf5; border: 1px solid #10b981; padding: .75rem; border-radius: 6px; }
      .error { background: #fef2f2; border: 1px solid #ef4444; padding: .75rem; border-radius: 6px; }
      pre { white-space: pre-wrap; background: #f9fafb; padding: 1rem; border-radius: 6px; }
    </style>
  </head>
  <body>
    <h1>📊 AI Business Plan Generator</h1>
    {{block "content" .}}{{end}}
  </body>
</html>{{end}}`

const indexTmpl = `{{define "content"}}
<p>Generate a professional business plan for your startup or project using AI.</p>
{{if .Message}}<p class="error">{{.Message}}</p>{{end}}
<form method="post" action="/fields">
  {{range .Fields}}
  <label for="{{.Name}}">{{.Label}}</label>
  {{if .Multiline}}<textarea id="{{.Name}}" name="{{.Name}}">{{.Value}}</textarea>{{else}}<input type="text" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}" />{{end}}
  {{end}}
  <button type="submit">Save</button>
  {{if .Paid}}
  <p class="notice">✅ Payment Successful. You may now generate your plan.</p>
  <button type="submit" formaction="/generate">🚀 Generate Business Plan</button>
  {{else}}
  <h2>💳 Payment</h2>
  <button type="submit" formaction="/pay">🔒 Pay ₹99 to Generate Plan</button>
  {{end}}
</form>
{{if .SelfReport}}
<form method="post" action="/payment/confirm">
  <button type="submit">✅ I have completed payment</button>
</form>
{{end}}
{{if .HasPlan}}<p><a class="button" href="/download">📥 Download Plan as TXT</a></p>{{end}}
{{end}}`

const checkoutTmpl = `{{define "content"}}
<h2>💳 Payment</h2>
<form action="{{.Form.Action}}" method="{{.Form.Method}}">
  {{range .Form.Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}"/>
  {{end}}<input class="button" type="submit" value="Pay with Razorpay"/>
</form>
{{end}}`

const jobTmpl = `{{define "head"}}{{if not .Done}}<meta http-equiv="refresh" content="2" />{{end}}{{end}}
{{define "content"}}
{{if not .Done}}
<p>Generating your business plan...</p>
<form method="post" action="/generate/{{.Job.ID}}/cancel">
  <button type="submit">Cancel</button>
</form>
{{else if eq .Job.State "succeeded"}}
<h2>📄 Generated Business Plan</h2>
<pre>{{.Plan}}</pre>
<p><a class="button" href="/download">📥 Download Plan as TXT</a></p>
<p><a href="/">Back</a></p>
{{else}}
<p class="error">{{.Job.Message}}</p>
<p><a href="/">Back</a></p>
{{end}}
{{end}}`

var (
	indexPageTmpl    = template.Must(template.Must(template.New("index").Parse(layoutTmpl)).Parse(indexTmpl))
	checkoutPageTmpl = template.Must(template.Must(template.New("checkout").Parse(layoutTmpl)).Parse(checkoutTmpl))
	jobPageTmpl      = template.Must(template.Must(template.New("job").Parse(layoutTmpl)).Parse(jobTmpl))
)

func (s *Server) render(w http.ResponseWriter, status int, tmpl *template.Template, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.log.Error("render page", "template", tmpl.Name(), "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
