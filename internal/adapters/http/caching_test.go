package http

import "testing"

func TestCacheControlFor(t *testing.T) {
	cases := map[string]string{
		"/v1/health":               "public, max-age=10",
		"/metrics":                 "no-cache",
		"/v1/photos/abc":           "private, max-age=31536000, immutable",
		"/v1/cafes/nearby":         "private, max-age=60",
		"/v1/fog.png":              "private, max-age=30",
		"/v1/visited-coords":       "private, max-age=30",
		"/v1/cafes/c1":             "private, no-cache",
		"/v1/cafes/export.geojson": "private, no-cache",
		"/docs":                    "",
	}
	for path, want := range cases {
		if got := cacheControlFor(path); got != want {
			t.Errorf("%s: expected %q, got %q", path, want, got)
		}
	}
}
