package domain

import "strings"

// Topics produced by Baranex services.
const (
	TopicSecurityLogin    = "security.login"
	TopicRoleChanged      = "account.role_changed"
	TopicEmergencyCreated = "emergency.created"
	TopicEmergencyStatus  = "emergency.status"
	TopicDocumentStatus   = "document.status"
)

// NormalizeTopic normalizes a producer-provided topic token.
func NormalizeTopic(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
