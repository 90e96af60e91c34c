package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "notification.generic.title", defaultGenericTitle)
	message.SetString(lang, "notification.generic.body", defaultGenericBody)
	message.SetString(lang, "notification.security_login.title", "New sign-in")
	message.SetString(lang, "notification.security_login.body", "Your account signed in from %s (%s).")
	message.SetString(lang, "notification.role_changed.title", "Your role changed")
	message.SetString(lang, "notification.role_changed.body", "You are now a barangay %s.")
	message.SetString(lang, "notification.emergency_created.title", "Emergency reported")
	message.SetString(lang, "notification.emergency_created.body", "A %s emergency was reported at %s.")
	message.SetString(lang, "notification.emergency_status.title", "Emergency update")
	message.SetString(lang, "notification.emergency_status.body", "Your emergency request is now %s.")
	message.SetString(lang, "notification.document_status.title", "Document request update")
	message.SetString(lang, "notification.document_status.body", "Request %s is now %s.")
}
