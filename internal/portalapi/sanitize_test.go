package portalapi

import (
	"encoding/json"
	"testing"
)

func TestSanitizeNaN(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"avg_response_time": NaN}`, `{"avg_response_time": 0}`},
		{"negative", `[-NaN,1]`, `[0,1]`},
		{"inside string", `{"note":"NaN stays"}`, `{"note":"NaN stays"}`},
		{"escaped quote", `{"a":"x\"NaN","b":NaN}`, `{"a":"x\"NaN","b":0}`},
		{"identifier", `{"a":NaNa}`, `{"a":NaNa}`},
		{"end of input", `NaN`, `0`},
		{"untouched", `{"a":1.5}`, `{"a":1.5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := string(SanitizeNaN([]byte(tc.in)))
			if got != tc.want {
				t.Fatalf("SanitizeNaN(%s) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestSanitizedMetricParsesAsZero(t *testing.T) {
	body := []byte(`{"metrics":{"avg_response_time": NaN, "total": 12},"graph_urls":{}}`)
	var payload struct {
		Metrics map[string]float64 `json:"metrics"`
	}
	if err := json.Unmarshal(SanitizeNaN(body), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Metrics["avg_response_time"] != 0 || payload.Metrics["total"] != 12 {
		t.Fatalf("metrics = %#v", payload.Metrics)
	}
}
