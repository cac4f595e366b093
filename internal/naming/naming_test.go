package naming

import (
	"regexp"
	"strings"
	"testing"
)

var safeNameRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"myapp", "myapp"},
		{"My Project!! 123", "my-project-123"},
		{"UPPER_case name", "upper-case-name"},
		{"trailing-hyphen-", "trailing-hyphen"},
		{"!!!", "project"},
		{"", "project"},
		{"an-extremely-long-project-name-indeed", "an-extremely-long-pr"},
	}
	for _, tt := range tests {
		got := SafeName(tt.in)
		if got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if len(got) > 20 {
			t.Errorf("SafeName(%q) = %q exceeds 20 characters", tt.in, got)
		}
		if !safeNameRe.MatchString(got) {
			t.Errorf("SafeName(%q) = %q is not a legal name fragment", tt.in, got)
		}
	}
}

func TestSuffix(t *testing.T) {
	re := regexp.MustCompile(`^[a-z0-9]{6}$`)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s := Suffix()
		if !re.MatchString(s) {
			t.Fatalf("Suffix() = %q, want 6 lowercase alphanumerics", s)
		}
		seen[s] = true
	}
	if len(seen) < 2 {
		t.Error("Suffix() produced no variation across 100 calls")
	}
}

func TestNewSandboxNameUnique(t *testing.T) {
	a := NewSandboxName("My Project!! 123")
	b := NewSandboxName("My Project!! 123")
	if a == b {
		t.Errorf("two derived sandbox names are equal: %q", a)
	}
	re := regexp.MustCompile(`^my-project-123-[a-z0-9]{6}$`)
	for _, name := range []string{a, b} {
		if !re.MatchString(name) {
			t.Errorf("sandbox name %q does not match expected shape", name)
		}
	}
}

func TestDerivedResourceNames(t *testing.T) {
	const name = "myapp-x7k2m9"
	if got := ServiceName(name); got != "myapp-x7k2m9-service" {
		t.Errorf("ServiceName = %q", got)
	}
	if got := AppIngressName(name); got != "myapp-x7k2m9-app-ingress" {
		t.Errorf("AppIngressName = %q", got)
	}
	if got := TTYDIngressName(name); got != "myapp-x7k2m9-ttyd-ingress" {
		t.Errorf("TTYDIngressName = %q", got)
	}
	if got := CredentialSecretName("myapp-db-x7k2m9"); got != "myapp-db-x7k2m9-conn-credential" {
		t.Errorf("CredentialSecretName = %q", got)
	}
}

func TestURLs(t *testing.T) {
	if got := AppURL("myapp-x7k2m9", "usw.example.io"); got != "https://myapp-x7k2m9-app.usw.example.io" {
		t.Errorf("AppURL = %q", got)
	}
	if got := TTYDURL("myapp-x7k2m9", "usw.example.io"); got != "https://myapp-x7k2m9-ttyd.usw.example.io" {
		t.Errorf("TTYDURL = %q", got)
	}
}

func TestClusterPrefix(t *testing.T) {
	name := NewClusterName("myapp")
	if !strings.HasPrefix(name, ClusterPrefix("myapp")+"-") {
		t.Errorf("cluster name %q does not start with prefix %q", name, ClusterPrefix("myapp"))
	}
}
