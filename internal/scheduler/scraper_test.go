package scheduler

import "testing"

func TestLooksLikeExportLink(t *testing.T) {
	cases := []struct {
		href string
		want bool
	}{
		{"/account/export.csv", true},
		{"/reports/download?format=xlsx", true},
		{"/profile/settings", false},
		{"", false},
	}
	for _, c := range cases {
		if got := looksLikeExportLink(c.href); got != c.want {
			t.Errorf("looksLikeExportLink(%q) = %v, want %v", c.href, got, c.want)
		}
	}
}

func TestHostOf(t *testing.T) {
	if got := hostOf("https://nutrition.example.com/app"); got != "nutrition.example.com" {
		t.Errorf("hostOf returned %q", got)
	}
}
