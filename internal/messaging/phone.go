package messaging

import "strings"

const whatsappPrefix = "whatsapp:"

// NormalizeWhatsApp ensures the address carries the whatsapp: prefix Twilio
// expects. Already-prefixed values pass through unchanged.
func NormalizeWhatsApp(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, whatsappPrefix) {
		return value
	}
	return whatsappPrefix + value
}

// StripWhatsApp removes the whatsapp: prefix for storage; conversations and
// leads are keyed by the bare phone address.
func StripWhatsApp(value string) string {
	return strings.TrimPrefix(strings.TrimSpace(value), whatsappPrefix)
}
