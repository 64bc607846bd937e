package config

import (
	"os"
	"strings"
)

// Carrier RPA bot webhook endpoints.
//
// Set via env:
// - MERIDIAN_WEBHOOK_URL
// - LAKELAND_WEBHOOK_URL
// - COLUMBIA_WEBHOOK_URL
//
// A per-carrier override stored on the carriers table (webhook_url) wins over env.
var defaultWebhookURLs = map[string]string{
	"meridian": "https://rpa.meridian-bots.io/webhook/start",
	"lakeland": "https://rpa.lakeland-bots.io/webhook/start",
	"columbia": "https://rpa.columbia-bots.io/webhook/start",
}

func CarrierWebhookURL(carrierCode string) string {
	carrierCode = strings.ToLower(strings.TrimSpace(carrierCode))
	envKey := strings.ToUpper(carrierCode) + "_WEBHOOK_URL"
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		return v
	}
	return defaultWebhookURLs[carrierCode]
}

// SimulatedProgressEnabled gates the client-facing simulated status advance
// (queued -> accepted -> running dwell timers) on the rpa-status endpoint.
//
// Set via env:
// - SIMULATED_PROGRESS_ENABLED=false to serve raw persisted status only.
func SimulatedProgressEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("SIMULATED_PROGRESS_ENABLED")))
	if v == "" {
		return true
	}
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
