package notify

import (
	"fmt"
	"strings"
	"text/template"

	"storefront/internal/domain"
)

type mailTemplate struct {
	subject string
	body    *template.Template
}

var templates = map[domain.NotificationKind]mailTemplate{
	domain.NotificationVerification: {
		subject: "Verify your email address",
		body: template.Must(template.New("verification").Parse(
			"Hi {{.first_name}},\n\n" +
				"Please confirm your email address by following this link:\n\n" +
				"{{.verify_url}}\n\n" +
				"The link expires in one hour.\n")),
	},
	domain.NotificationProcessed: {
		subject: "Your order is on its way",
		body: template.Must(template.New("processed").Parse(
			"Hi {{.first_name}},\n\n" +
				"Your order {{.order_id}} has been processed.\n" +
				"{{if .tracking_link}}Track it here: {{.tracking_link}}\n{{end}}" +
				"{{if .tracking_code}}Tracking code: {{.tracking_code}}\n{{end}}")),
	},
	domain.NotificationConfirmation: {
		subject: "Order confirmed",
		body: template.Must(template.New("confirmation").Parse(
			"Hi {{.first_name}},\n\n" +
				"We received your payment for order {{.order_id}}.\n" +
				"Total: {{.total}}\n\nThank you for your purchase.\n")),
	},
}

// Render produces the subject and body for a notification kind. Unknown
// kinds are an error so a bad event never produces an empty email.
func Render(kind domain.NotificationKind, data map[string]string) (subject, body string, err error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", kind)
	}

	var buf strings.Builder
	if err := tmpl.body.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("render %s template: %w", kind, err)
	}

	return tmpl.subject, buf.String(), nil
}
