package entity

var templates = map[TriggerKey]Template{
	TriggerKeyAccountRegistered: {
		TriggerKey: TriggerKeyAccountRegistered,
		Subject:    "Welcome to {{.service_name}}",
		Body: `<p>An account for <b>{{.identifier}}</b> was registered on {{.at}}.</p>
<p>Sign in with the code shown by your authenticator app.</p>
<p>If this was not you, contact {{.support_email}}.</p>`,
	},
	TriggerKeyAccountSecretRotated: {
		TriggerKey: TriggerKeyAccountSecretRotated,
		Subject:    "Your {{.service_name}} authenticator was reset",
		Body: `<p>The one-time password secret of <b>{{.identifier}}</b> was replaced on {{.at}}.</p>
<p>Codes from the previous authenticator entry no longer work.</p>
<p>If you did not request this, contact {{.support_email}} immediately.</p>`,
	},
}

// TemplateFor returns the email template of tk.
func TemplateFor(tk TriggerKey) (Template, bool) {
	t, ok := templates[tk]
	return t, ok
}
