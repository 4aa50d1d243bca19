package metrics

import "testing"

func TestNormalizePathCollapsesJobIDs(t *testing.T) {
	cases := map[string]string{
		"/healthz":                       "/healthz",
		"/v1/ocr/jobs":                   "/v1/ocr/jobs",
		"/v1/ocr/jobs/abc-123":           "/v1/ocr/jobs/{job_id}",
		"/v1/ocr/jobs/abc-123/status":    "/v1/ocr/jobs/{job_id}/status",
		"/v1/ocr/jobs/abc-123/result":    "/v1/ocr/jobs/{job_id}/result",
		"/v1/ocr/jobs/abc/def/extra":     "/v1/ocr/jobs/{job_id}/def/extra",
	}
	for input, want := range cases {
		if got := normalizePath(input); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", input, got, want)
		}
	}
}
