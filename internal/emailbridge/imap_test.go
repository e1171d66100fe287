package emailbridge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainTextSimple(t *testing.T) {
	raw := "From: omar@example.com\r\nSubject: MedForce Clinic\r\n\r\nMy GP referred me."
	text, err := extractPlainText(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "My GP referred me.", text)
}

func TestExtractPlainTextMultipart(t *testing.T) {
	raw := strings.Join([]string{
		"From: omar@example.com",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/plain",
		"",
		"plain version",
		"--b1",
		"Content-Type: text/html",
		"",
		"<p>html version</p>",
		"--b1--",
		"",
	}, "\r\n")
	text, err := extractPlainText(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "plain version", strings.TrimSpace(text))
}

func TestExtractPlainTextNoTextPart(t *testing.T) {
	raw := strings.Join([]string{
		"From: omar@example.com",
		`Content-Type: multipart/mixed; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: image/png",
		"",
		"binary",
		"--b1--",
		"",
	}, "\r\n")
	_, err := extractPlainText(strings.NewReader(raw))
	assert.Error(t, err)
}
