package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDefaultKeyFunc(t *testing.T) {
	cases := []struct {
		name      string
		keyHeader string
		trustXFF  bool
		remote    string
		headers   map[string]string
		want      string
	}{
		{
			name:      "header wins when set",
			keyHeader: "X-Client",
			remote:    "10.0.0.1:1234",
			headers:   map[string]string{"X-Client": " client-123 "},
			want:      "client-123",
		},
		{
			name:      "empty header falls back to ip",
			keyHeader: "X-Client",
			remote:    "10.0.0.1:1234",
			headers:   map[string]string{"X-Client": "   "},
			want:      "10.0.0.1",
		},
		{
			name:     "trusted xff uses first ip",
			trustXFF: true,
			remote:   "10.0.0.9:5555",
			headers:  map[string]string{"X-Forwarded-For": "1.2.3.4, 5.6.7.8"},
			want:     "1.2.3.4",
		},
		{
			// um cliente não pode fugir da suspensão trocando o XFF
			name:    "untrusted xff is ignored",
			remote:  "10.0.0.9:5555",
			headers: map[string]string{"X-Forwarded-For": "9.9.9.9"},
			want:    "10.0.0.9",
		},
		{
			name:   "ipv6 remote addr",
			remote: "[::1]:4000",
			want:   "::1",
		},
		{
			name:   "remote addr without port",
			remote: "10.0.0.7",
			want:   "10.0.0.7",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fn := DefaultKeyFunc(tc.keyHeader, tc.trustXFF)

			r := httptest.NewRequest(http.MethodGet, "http://example/", nil)
			r.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				r.Header.Set(k, v)
			}

			if got := fn(r); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
