package render

import (
	"fmt"
	"testing"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/louisbranch/baranex/internal/services/notifications/domain"
)

func TestRenderSecurityLoginLocalized(t *testing.T) {
	t.Parallel()

	loc := fakeLocalizer{values: map[string]string{
		"notification.security_login.title": "New sign-in",
		"notification.security_login.body":  "Your account signed in from %s (%s).",
	}}

	out := Render(loc, Input{
		Topic:       domain.TopicSecurityLogin,
		PayloadJSON: `{"platform":"desktop","ip":"203.0.113.7"}`,
	})

	if out.Title != "New sign-in" {
		t.Fatalf("title = %q, want %q", out.Title, "New sign-in")
	}
	if out.BodyText != "Your account signed in from desktop (203.0.113.7)." {
		t.Fatalf("body = %q", out.BodyText)
	}
}

func TestRenderMalformedPayloadFallsBack(t *testing.T) {
	t.Parallel()

	loc := fakeLocalizer{values: map[string]string{
		"notification.generic.title": "Notification",
		"notification.generic.body":  "You have a new notification.",
	}}

	out := Render(loc, Input{Topic: domain.TopicEmergencyStatus, PayloadJSON: `{"status":`})
	if out.Title != "Notification" || out.BodyText != "You have a new notification." {
		t.Fatalf("unexpected fallback: %+v", out)
	}
}

func TestRenderMissingRequiredFieldFallsBack(t *testing.T) {
	t.Parallel()

	out := Render(nil, Input{Topic: domain.TopicRoleChanged, PayloadJSON: `{}`})
	if out.Title != defaultGenericTitle {
		t.Fatalf("title = %q, want generic", out.Title)
	}
}

func TestRenderWithNilLocalizerReturnsHumanReadableDefaults(t *testing.T) {
	t.Parallel()

	out := Render(nil, Input{Topic: domain.TopicSecurityLogin, PayloadJSON: `{"platform":"web"}`})
	if out.Title != "Notification" || out.BodyText != "You have a new notification." {
		t.Fatalf("unexpected defaults: %+v", out)
	}
}

func TestRenderUnknownTopicFallsBack(t *testing.T) {
	t.Parallel()

	out := Render(message.NewPrinter(language.English), Input{Topic: "unknown.topic", PayloadJSON: `{}`})
	if out.Title != "Notification" {
		t.Fatalf("title = %q, want %q", out.Title, "Notification")
	}
}

func TestRenderWithRealPrinterUsesRegisteredCatalog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		accept    string
		wantTitle string
		wantBody  string
	}{
		{"english", "en-US,en;q=0.9", "Document request update", "Request 2026-000123 is now ready."},
		{"filipino", "fil-PH", "Update sa dokumento", "Ang request 2026-000123 ay ready na ngayon."},
		{"unsupported defaults to english", "ja", "Document request update", "Request 2026-000123 is now ready."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := Render(PrinterFor(tc.accept), Input{
				Topic:       domain.TopicDocumentStatus,
				PayloadJSON: `{"control_number":"2026-000123","status":"ready"}`,
			})
			if out.Title != tc.wantTitle || out.BodyText != tc.wantBody {
				t.Fatalf("render = %+v, want %q / %q", out, tc.wantTitle, tc.wantBody)
			}
		})
	}
}

type fakeLocalizer struct {
	values map[string]string
}

func (f fakeLocalizer) Sprintf(key message.Reference, args ...any) string {
	asString, ok := key.(string)
	if !ok {
		return ""
	}
	template := f.values[asString]
	if template == "" {
		return asString
	}
	if len(args) == 0 {
		return template
	}
	return fmt.Sprintf(template, args...)
}
