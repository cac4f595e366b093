// Package naming derives deterministic, cluster-legal resource names from
// human project names. Every object belonging to one sandbox is addressed by
// exact name derived here; nothing downstream re-derives or fuzzy-matches.
package naming

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// suffixCharset is lowercase-alphanumeric so generated names stay valid
	// DNS labels without further escaping.
	suffixCharset = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLen     = 6
	maxSafeLen    = 20
)

// SafeName converts a project display name into a cluster-legal name
// fragment: lowercased, restricted to [a-z0-9-], at most 20 characters, with
// no leading or trailing hyphen.
func SafeName(projectName string) string {
	lower := strings.ToLower(projectName)
	var b strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	s := b.String()
	if len(s) > maxSafeLen {
		s = s[:maxSafeLen]
	}
	s = strings.Trim(s, "-")
	if s == "" {
		s = "project"
	}
	return s
}

// Suffix returns a cryptographically random 6-character lowercase
// alphanumeric string.
func Suffix() string {
	b := make([]byte, suffixLen)
	max := big.NewInt(int64(len(suffixCharset)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("naming: crypto/rand failed: " + err.Error())
		}
		b[i] = suffixCharset[n.Int64()]
	}
	return string(b)
}

// NewSandboxName derives a fresh sandbox name for a project. Two calls with
// the same project name yield different results; the caller must record the
// returned name durably.
func NewSandboxName(projectName string) string {
	return SafeName(projectName) + "-" + Suffix()
}

// NewClusterName derives a fresh database cluster name for a project.
func NewClusterName(projectName string) string {
	return ClusterPrefix(projectName) + "-" + Suffix()
}

// ClusterPrefix is the stable part of a project's database cluster name,
// used only by the legacy prefix-scan lookup.
func ClusterPrefix(projectName string) string {
	return SafeName(projectName) + "-db"
}

// ServiceName returns the network service name for a sandbox.
func ServiceName(sandboxName string) string {
	return sandboxName + "-service"
}

// AppIngressName returns the dev-server ingress name for a sandbox.
func AppIngressName(sandboxName string) string {
	return sandboxName + "-app-ingress"
}

// TTYDIngressName returns the terminal ingress name for a sandbox.
func TTYDIngressName(sandboxName string) string {
	return sandboxName + "-ttyd-ingress"
}

// AppHost returns the public hostname of the sandbox dev server.
func AppHost(sandboxName, ingressDomain string) string {
	return sandboxName + "-app." + ingressDomain
}

// TTYDHost returns the public hostname of the sandbox terminal.
func TTYDHost(sandboxName, ingressDomain string) string {
	return sandboxName + "-ttyd." + ingressDomain
}

// AppURL returns the public HTTPS URL of the sandbox dev server.
func AppURL(sandboxName, ingressDomain string) string {
	return "https://" + AppHost(sandboxName, ingressDomain)
}

// TTYDURL returns the public HTTPS URL of the sandbox terminal.
func TTYDURL(sandboxName, ingressDomain string) string {
	return "https://" + TTYDHost(sandboxName, ingressDomain)
}

// CredentialSecretName returns the name of the generated connection
// credential secret for a database cluster.
func CredentialSecretName(clusterName string) string {
	return clusterName + "-conn-credential"
}
