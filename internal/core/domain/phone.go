package domain

import "strings"

// ValidPhoneNumber reports whether phone is an 11-digit local mobile
// number starting with 09.
func ValidPhoneNumber(phone string) bool {
	if len(phone) != 11 || !strings.HasPrefix(phone, "09") {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MaskPhone hides the middle digits of a phone number for logs.
func MaskPhone(phone string) string {
	if len(phone) < 8 {
		return "***"
	}
	return phone[:4] + "***" + phone[len(phone)-4:]
}
