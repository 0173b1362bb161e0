package ingest

import (
	"html"
	"strconv"

	"flightreview/internal/domain/logrecord"
	"flightreview/internal/pkg/validator"
)

// UploadMeta carries every recognized upload form field with a typed
// value. It is built once at the HTTP or CLI boundary and passed through
// the pipeline unchanged.
type UploadMeta struct {
	Title            string
	Description      string
	Email            string
	Source           string
	Type             string
	AllowForAnalysis bool
	Obfuscated       bool
	Public           bool
	Feedback         string
	WindSpeed        int
	Rating           string `validate:"omitempty,oneof=good unsatisfactory crash_sw_hw crash_pilot"`
	VideoURL         string `validate:"omitempty,url"`
	VehicleName      string
	ErrorLabels      string
}

// DefaultMeta returns the field values used when no form supplies them,
// notably for bulk directory admission.
func DefaultMeta() UploadMeta {
	return UploadMeta{
		Email:            "(no email provided)",
		Source:           logrecord.SourceBulk,
		Type:             "personal",
		AllowForAnalysis: true,
		Public:           true,
		WindSpeed:        -1,
	}
}

// FormValues hands out raw form field values by name, "" when absent.
type FormValues func(name string) string

// MetaFromForm builds UploadMeta from the upload form fields, applying
// the documented defaults and escaping user-entered text.
func MetaFromForm(value FormValues) UploadMeta {
	meta := UploadMeta{
		Description:      html.EscapeString(value("description")),
		Email:            orDefault(value("email"), "(no email provided)"),
		Source:           orDefault(value("source"), logrecord.SourceWebUI),
		Type:             orDefault(value("type"), "personal"),
		AllowForAnalysis: value("allowForAnalysis") == "true",
		Obfuscated:       value("obfuscated") == "true",
		Public:           true,
		Feedback:         html.EscapeString(value("feedback")),
		WindSpeed:        -1,
		VehicleName:      html.EscapeString(value("vehicleName")),
	}
	if ws, err := strconv.Atoi(value("windSpeed")); err == nil {
		meta.WindSpeed = ws
	}
	if r := value("rating"); r != "" && r != "notset" {
		meta.Rating = r
	}
	meta.VideoURL = value("videoUrl")
	if value("public") == "false" {
		meta.Public = false
	}

	// Fields that fail validation are dropped, not rejected: a bad video
	// URL or rating never blocks a log from being admitted.
	if fieldErrs := validator.Validate(meta); fieldErrs != nil {
		if _, bad := fieldErrs["VideoURL"]; bad {
			meta.VideoURL = ""
		}
		if _, bad := fieldErrs["Rating"]; bad {
			meta.Rating = ""
		}
	}
	return meta
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
