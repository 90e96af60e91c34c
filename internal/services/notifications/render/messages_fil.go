package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Filipino

	message.SetString(lang, "notification.generic.title", "Abiso")
	message.SetString(lang, "notification.generic.body", "May bago kang abiso.")
	message.SetString(lang, "notification.security_login.title", "Bagong pag-sign in")
	message.SetString(lang, "notification.security_login.body", "Nag-sign in ang iyong account mula sa %s (%s).")
	message.SetString(lang, "notification.role_changed.title", "Nagbago ang iyong tungkulin")
	message.SetString(lang, "notification.role_changed.body", "Ikaw ay barangay %s na ngayon.")
	message.SetString(lang, "notification.emergency_created.title", "May iniulat na emergency")
	message.SetString(lang, "notification.emergency_created.body", "May iniulat na %s na emergency sa %s.")
	message.SetString(lang, "notification.emergency_status.title", "Update sa emergency")
	message.SetString(lang, "notification.emergency_status.body", "Ang iyong emergency request ay %s na ngayon.")
	message.SetString(lang, "notification.document_status.title", "Update sa dokumento")
	message.SetString(lang, "notification.document_status.body", "Ang request %s ay %s na ngayon.")
}
