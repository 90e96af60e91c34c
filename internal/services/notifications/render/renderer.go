// Package render turns stored notification topics and payloads into
// localized inbox copy.
package render

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/louisbranch/baranex/internal/services/notifications/domain"
)

const (
	defaultGenericTitle = "Notification"
	defaultGenericBody  = "You have a new notification."
)

// Supported lists the inbox languages, preferred first.
var Supported = []language.Tag{language.English, language.Filipino}

var matcher = language.NewMatcher(Supported)

// Input is one render request for a stored notification.
type Input struct {
	Topic       string
	PayloadJSON string
}

// Output is localized copy derived from one notification.
type Output struct {
	Title    string `json:"title"`
	BodyText string `json:"body"`
}

// Localizer is the minimal message-printer contract required by the renderer.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// PrinterFor picks a printer for an Accept-Language header value.
func PrinterFor(acceptLanguage string) *message.Printer {
	_, index := language.MatchStrings(matcher, acceptLanguage)
	if index < 0 || index >= len(Supported) {
		index = 0
	}
	return message.NewPrinter(Supported[index])
}

type payload struct {
	Platform      string `json:"platform"`
	IP            string `json:"ip"`
	Role          string `json:"role"`
	Type          string `json:"type"`
	Location      string `json:"location"`
	Status        string `json:"status"`
	ControlNumber string `json:"control_number"`
}

// Render returns localized copy for one notification.
func Render(loc Localizer, input Input) Output {
	var p payload
	if raw := strings.TrimSpace(input.PayloadJSON); raw != "" {
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return genericOutput(loc)
		}
	}

	switch domain.NormalizeTopic(input.Topic) {
	case domain.TopicSecurityLogin:
		return keyed(loc, "security_login", orUnknown(p.Platform), orUnknown(p.IP))
	case domain.TopicRoleChanged:
		if p.Role == "" {
			return genericOutput(loc)
		}
		return keyed(loc, "role_changed", p.Role)
	case domain.TopicEmergencyCreated:
		return keyed(loc, "emergency_created", orUnknown(p.Type), orUnknown(p.Location))
	case domain.TopicEmergencyStatus:
		if p.Status == "" {
			return genericOutput(loc)
		}
		return keyed(loc, "emergency_status", p.Status)
	case domain.TopicDocumentStatus:
		if p.Status == "" {
			return genericOutput(loc)
		}
		return keyed(loc, "document_status", orUnknown(p.ControlNumber), p.Status)
	default:
		return genericOutput(loc)
	}
}

func keyed(loc Localizer, name string, args ...any) Output {
	titleKey := "notification." + name + ".title"
	bodyKey := "notification." + name + ".body"
	title := localize(loc, titleKey)
	body := localize(loc, bodyKey, args...)
	if title == titleKey || body == bodyKey || title == "" || body == "" {
		return genericOutput(loc)
	}
	return Output{Title: title, BodyText: body}
}

func genericOutput(loc Localizer) Output {
	return Output{
		Title:    localizeWithFallback(loc, "notification.generic.title", defaultGenericTitle),
		BodyText: localizeWithFallback(loc, "notification.generic.body", defaultGenericBody),
	}
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}

func localize(loc Localizer, key string, args ...any) string {
	if loc == nil {
		return key
	}
	return loc.Sprintf(key, args...)
}

func localizeWithFallback(loc Localizer, key string, fallback string) string {
	value := strings.TrimSpace(localize(loc, key))
	if value == "" || value == key {
		return fallback
	}
	return value
}
