package logging

import "strings"

// FormatSubject builds the job/platform subject string used in console output.
// Job IDs are shortened to their first segment.
func FormatSubject(jobID, platform string) string {
	jobID = strings.TrimSpace(jobID)
	platform = strings.TrimSpace(platform)
	if idx := strings.IndexByte(jobID, '-'); idx > 0 {
		jobID = jobID[:idx]
	}
	switch {
	case jobID != "" && platform != "":
		return "Job " + jobID + " (" + platform + ")"
	case jobID != "":
		return "Job " + jobID
	default:
		return platform
	}
}
