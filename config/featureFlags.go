package config

import (
	"os"
	"strings"
)

// InlineEventProcessing processes domain events right after the writing transaction commits.
// The dispatcher still picks up anything that fails inline.
//
// Set via env:
// - INLINE_EVENT_PROCESSING=false (default true)
func InlineEventProcessing() bool {
	return boolFromEnv("INLINE_EVENT_PROCESSING", true)
}

// AccessListRequiresAdmin restricts ban/permanent list changes to admins.
//
// Set via env:
// - ACCESS_LIST_REQUIRES_ADMIN=false (default true)
func AccessListRequiresAdmin() bool {
	return boolFromEnv("ACCESS_LIST_REQUIRES_ADMIN", true)
}

// DomainEventTopic is the Pub/Sub topic domain events are published to. Empty disables publishing.
func DomainEventTopic() string {
	return strings.TrimSpace(os.Getenv("DOMAIN_EVENT_TOPIC"))
}

func boolFromEnv(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return def
	case "1", "true", "yes", "y":
		return true
	case "0", "false", "no", "n":
		return false
	default:
		return def
	}
}
