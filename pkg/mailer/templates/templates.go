package templates

import (
	"bytes"
	"fmt"
	"html/template"
)

var confirmationCodeHTML = template.Must(template.New("confirmation_code").Parse(`
<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif; color: #333;">
    <h2>Confirm your account</h2>
    <p>Use the code below to confirm your sign-up:</p>
    <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{.Code}}</p>
    <p>The code expires in {{.ExpiresInMinutes}} minutes. If you did not sign up, ignore this email.</p>
  </body>
</html>
`))

// Render returns subject, text and HTML bodies for the named template.
func Render(name string, data map[string]any) (subject, text, html string, err error) {
	switch name {
	case "confirmation_code":
		var buf bytes.Buffer
		if err := confirmationCodeHTML.Execute(&buf, data); err != nil {
			return "", "", "", err
		}
		subject = "Your confirmation code"
		text = fmt.Sprintf("Your confirmation code is %v. It expires in %v minutes.",
			data["Code"], data["ExpiresInMinutes"])
		return subject, text, buf.String(), nil
	default:
		return "", "", "", fmt.Errorf("unknown template %q", name)
	}
}
