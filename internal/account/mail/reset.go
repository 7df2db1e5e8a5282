package mail

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
<body style="font-family: sans-serif;">
  <h2>Password recovery</h2>
  <p>We received a request to reset the password for <b>{{.Email}}</b>.</p>
  <p><a href="{{.Link}}">Reset your password</a></p>
  <p>This link expires in {{.ExpiresIn}}. If you did not request a reset,
  you can ignore this email.</p>
</body>
</html>`))

// RenderResetEmail builds the password recovery message for email. The link
// points at the frontend reset page with the token as a query parameter.
func RenderResetEmail(frontendURL, email, token string, ttl time.Duration) (Message, error) {
	link := strings.TrimRight(frontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)

	var b strings.Builder
	err := resetTemplate.Execute(&b, struct {
		Email     string
		Link      string
		ExpiresIn string
	}{
		Email:     email,
		Link:      link,
		ExpiresIn: formatTTL(ttl),
	})
	if err != nil {
		return Message{}, fmt.Errorf("mail: render reset email: %w", err)
	}

	return Message{
		To:      email,
		Subject: "Password recovery for " + email,
		HTML:    b.String(),
	}, nil
}

func formatTTL(ttl time.Duration) string {
	if h := int(ttl.Hours()); h >= 1 {
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d minutes", int(ttl.Minutes()))
}
