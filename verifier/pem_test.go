package verifier

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertToPEM_Structure(t *testing.T) {
	alphabet := "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

	for _, length := range []int{0, 1, 63, 64, 65, 127, 128, 129, 1000, 1368} {
		var b strings.Builder
		for i := 0; i < length; i++ {
			b.WriteByte(alphabet[i%len(alphabet)])
		}
		input := b.String()

		out := CertToPEM(input)
		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

		require.GreaterOrEqual(t, len(lines), 2)
		assert.Equal(t, "-----BEGIN CERTIFICATE-----", lines[0])
		assert.Equal(t, "-----END CERTIFICATE-----", lines[len(lines)-1])

		body := lines[1 : len(lines)-1]
		assert.Len(t, body, (length+63)/64, "length %d", length)
		for i, line := range body {
			if i < len(body)-1 {
				assert.Len(t, line, 64)
			} else {
				assert.LessOrEqual(t, len(line), 64)
				assert.NotEmpty(t, line)
			}
		}
		assert.Equal(t, input, strings.Join(body, ""), "length %d", length)
	}
}

func TestCertToPEM_ParsesAsCertificate(t *testing.T) {
	privateKey, cert := generateTestKey(t)

	block, rest := pem.Decode([]byte(CertToPEM(cert)))
	require.NotNil(t, block)
	assert.Empty(t, rest)
	assert.Equal(t, "CERTIFICATE", block.Type)

	parsed, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	pub, ok := parsed.PublicKey.(*rsa.PublicKey)
	require.True(t, ok)
	assert.True(t, privateKey.PublicKey.Equal(pub))
}
