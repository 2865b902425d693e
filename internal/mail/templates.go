// AngelaMos | 2026
// templates.go

package mail

import (
	"bytes"
	"fmt"
	"html/template"
	texttpl "text/template"
)

type LinkVars struct {
	Name string
	Link string
	TTL  string
}

const verifyText = `Hi {{.Name}},

Confirm your email address by opening the link below:

{{.Link}}

The link expires in {{.TTL}}.
`

const verifyHTML = `<p>Hi {{.Name}},</p>
<p>Confirm your email address by opening the link below:</p>
<p><a href="{{.Link}}">Verify email</a></p>
<p>The link expires in {{.TTL}}.</p>
`

const resetText = `Hi {{.Name}},

Someone asked to reset the password on your account. If it was you, open:

{{.Link}}

The link expires in {{.TTL}}. If you did not ask for this, ignore this email.
`

const resetHTML = `<p>Hi {{.Name}},</p>
<p>Someone asked to reset the password on your account. If it was you, open the link below:</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>The link expires in {{.TTL}}. If you did not ask for this, ignore this email.</p>
`

var (
	verifyTextTpl = texttpl.Must(texttpl.New("verify_txt").Parse(verifyText))
	verifyHTMLTpl = template.Must(template.New("verify_html").Parse(verifyHTML))
	resetTextTpl  = texttpl.Must(texttpl.New("reset_txt").Parse(resetText))
	resetHTMLTpl  = template.Must(template.New("reset_html").Parse(resetHTML))
)

func VerifyEmailMessage(to string, vars LinkVars) (Message, error) {
	return render(to, "Verify your email address", verifyTextTpl, verifyHTMLTpl, vars)
}

func PasswordResetMessage(to string, vars LinkVars) (Message, error) {
	return render(to, "Reset your password", resetTextTpl, resetHTMLTpl, vars)
}

func render(
	to, subject string,
	txt *texttpl.Template,
	html *template.Template,
	vars LinkVars,
) (Message, error) {
	var tb, hb bytes.Buffer

	if err := txt.Execute(&tb, vars); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", txt.Name(), err)
	}
	if err := html.Execute(&hb, vars); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", html.Name(), err)
	}

	return Message{
		To:      to,
		Subject: subject,
		Text:    tb.String(),
		HTML:    hb.String(),
	}, nil
}
