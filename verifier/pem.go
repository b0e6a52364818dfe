package verifier

import "strings"

const (
	pemLineLength       = 64
	pemCertificateBegin = "-----BEGIN CERTIFICATE-----"
	pemCertificateEnd   = "-----END CERTIFICATE-----"
)

// CertToPEM wraps a base64 DER certificate (an x5c entry) into PEM text,
// breaking the body every 64 characters.
func CertToPEM(cert string) string {
	var b strings.Builder
	b.Grow(len(cert) + len(cert)/pemLineLength + len(pemCertificateBegin) + len(pemCertificateEnd) + 3)

	b.WriteString(pemCertificateBegin)
	b.WriteByte('\n')
	for len(cert) > 0 {
		n := min(pemLineLength, len(cert))
		b.WriteString(cert[:n])
		b.WriteByte('\n')
		cert = cert[n:]
	}
	b.WriteString(pemCertificateEnd)
	b.WriteByte('\n')

	return b.String()
}
