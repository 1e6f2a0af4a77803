package notify

import (
	"bytes"
	"html/template"
)

const layout = `<!doctype html><html><body style="font-family:Arial,sans-serif;background:#f4f6f8;padding:24px">
<div style="max-width:560px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
{{template "content" .}}
<p style="color:#888;font-size:12px;margin-top:32px">{{.Brand}}</p>
</div></body></html>`

var templates = map[string]string{
	"booking": `{{define "content"}}<h2>Your wash is booked</h2>
<p>Hi {{.Name}},</p>
<p>Thanks for your booking. Here are the details:</p>
<table cellpadding="4">
<tr><td>Booking</td><td>#{{.Booking.ID}}</td></tr>
<tr><td>Service</td><td>{{.Booking.ServiceName}}</td></tr>
<tr><td>Date</td><td>{{.Booking.AppointmentDate}} at {{.Booking.AppointmentTime}}</td></tr>
<tr><td>Duration</td><td>{{.Booking.TotalDuration}} min</td></tr>
<tr><td>Total</td><td>${{.Booking.TotalPrice.StringFixed 2}}</td></tr>
</table>
<p>See you soon!</p>{{end}}`,

	"tip": `{{define "content"}}<h2>How did we do?</h2>
<p>Hi {{.Name}},</p>
<p>Your {{.Booking.ServiceName}} on {{.Booking.AppointmentDate}} is complete. If you enjoyed it, you can leave a tip for the crew or a review.</p>
<p><a href="{{.Link}}" style="background:#0b7285;color:#fff;padding:10px 16px;border-radius:4px;text-decoration:none">Leave a tip</a></p>{{end}}`,

	"welcome": `{{define "content"}}<h2>Welcome to {{.Membership.PlanName}}</h2>
<p>Hi {{.Name}},</p>
<p>Your {{.Membership.BillingCycle}} membership is active{{if .Membership.Price}} at ${{.Membership.Price}}{{end}}.{{if .Membership.PeriodEnd}} It renews on {{.Membership.PeriodEnd.Format "January 2, 2006"}}.{{end}}</p>
{{if eq .Membership.Kind "self_service"}}<p>Show this email at the self-service bay to check in.</p>{{end}}{{end}}`,

	"broadcast": `{{define "content"}}{{if .BannerURL}}<img src="{{.BannerURL}}" alt="" style="width:100%;border-radius:6px">{{end}}
<h2>{{.Title}}</h2>
{{range .Paragraphs}}<p>{{.}}</p>{{end}}{{end}}`,
}

var parsed = func() map[string]*template.Template {
	out := make(map[string]*template.Template, len(templates))
	for name, body := range templates {
		t := template.Must(template.New("layout").Parse(layout))
		out[name] = template.Must(t.Parse(body))
	}
	return out
}()

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := parsed[name].Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
