package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate trims free-text fields, then runs the tag validator and
// a few softer checks that only produce warnings.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.App.BaseURL = strings.TrimRight(strings.TrimSpace(out.App.BaseURL), "/")
	out.Enrichment.ProcessedPolicy = strings.ToLower(strings.TrimSpace(out.Enrichment.ProcessedPolicy))
	out.Enrichment.PlaceholderImage = strings.TrimSpace(out.Enrichment.PlaceholderImage)
	out.Gemini.TextModel = strings.TrimSpace(out.Gemini.TextModel)
	out.Gemini.ImageModel = strings.TrimSpace(out.Gemini.ImageModel)
	out.RapidAPI.Host = strings.TrimSpace(out.RapidAPI.Host)
	out.Publish.WebhookURL = strings.TrimSpace(out.Publish.WebhookURL)
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))
	out.Log.Format = strings.ToLower(strings.TrimSpace(out.Log.Format))

	if err := Validate(out); err != nil {
		for _, line := range strings.Split(err.Error(), "\n- ")[1:] {
			res.addErr("%s", line)
		}
	}

	// polling sanity
	if out.Autopilot.ScanSeconds > 0 && out.Autopilot.ScanSeconds < 30 {
		res.addWarn("autopilot.scan_seconds is very low (%d) and may exhaust the AI quota.", out.Autopilot.ScanSeconds)
	}
	if out.Tracker.RefreshSeconds > 0 && out.Tracker.RefreshSeconds < 15 {
		res.addWarn("tracker.refresh_seconds is very low (%d) and may cause rate limits.", out.Tracker.RefreshSeconds)
	}

	if out.Enrichment.ImageFallback && out.Enrichment.PlaceholderImage == "" {
		res.addWarn("enrichment.image_fallback is on but placeholder_image is empty; only OpenGraph artwork will be used.")
	}
	if out.Enrichment.ProcessedPolicy == PolicyMarkSucceeded {
		res.addWarn("processed_policy=mark_succeeded retries failing matches on every autopilot cycle.")
	}

	if out.Publish.Auto && out.Publish.WebhookURL == "" {
		res.addErr("publish.webhook_url is required when publish.auto=true")
	}

	if out.RapidAPI.Enabled && out.RapidAPI.RequestsPerSecond == 0 {
		res.addWarn("rapidapi.requests_per_second is 0; requests will not be rate limited.")
	}

	return out, res
}
