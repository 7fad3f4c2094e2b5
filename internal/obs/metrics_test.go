package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/v1/auth/login", "/v1/auth/login"},
		{"/v1/auth/login?next=/home", "/v1/auth/login"},
		{"/metrics", "/metrics"},
		{"", "/"},
		{"?raw=1", "/"},
	}
	for _, tc := range cases {
		if got := CanonicalPath(tc.in); got != tc.want {
			t.Errorf("CanonicalPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
