package control

import (
	"errors"
	"testing"

	"github.com/ralt/aptrepo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeepsOrderAndContinuations(t *testing.T) {
	data := "Package: hello\n" +
		"Version: 2.10-3\n" +
		"Architecture: amd64\n" +
		"X-Custom-Field:   spaced value  \n" +
		"Description: short summary\n" +
		" long description line one\n" +
		" .\n" +
		"\tline with tab\n"

	fields, err := Parse([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, []models.Field{
		{Name: "Package", Value: "hello"},
		{Name: "Version", Value: "2.10-3"},
		{Name: "Architecture", Value: "amd64"},
		{Name: "X-Custom-Field", Value: "spaced value"},
		{Name: "Description", Value: "short summary\n long description line one\n .\n\tline with tab"},
	}, fields)
}

func TestParseRoundTrip(t *testing.T) {
	data := "Package: hello\n" +
		"Depends: libc6 (>= 2.34),\n" +
		" libfoo\n" +
		"Conffiles:\n" +
		" /etc/hello.conf 0123\n" +
		"Description: greet\n" +
		" More text.\n"

	fields, err := Parse([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, data, string(Format(fields)))
}

func TestParseCRLFAndSurroundingBlankLines(t *testing.T) {
	fields, err := Parse([]byte("\r\n\nPackage: a\r\nVersion: 1\r\n\r\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []models.Field{
		{Name: "Package", Value: "a"},
		{Name: "Version", Value: "1"},
	}, fields)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		line int
	}{
		{"continuation first", " leading continuation\nPackage: a\n", 1},
		{"missing colon", "Package: a\nnot a field\n", 2},
		{"second stanza", "Package: a\n\nPackage: b\n", 3},
		{"empty name", ": value\n", 1},
		{"name with space", "Bad Name: value\n", 1},
		{"duplicate", "Package: a\npackage: b\n", 2},
		{"empty", "\n\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, models.IsKind(err, models.ErrFormat))

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			assert.Equal(t, tt.line, parseErr.Line)
		})
	}
}

func TestParseRejectsInvalidUTF8(t *testing.T) {
	_, err := Parse([]byte("Package: \xff\xfe\n"))
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrFormat))
}

func TestWriteField(t *testing.T) {
	fields := []models.Field{
		{Name: "Empty", Value: ""},
		{Name: "Multi", Value: "\n first\n second"},
		{Name: "Plain", Value: "x"},
	}
	assert.Equal(t, "Empty:\nMulti:\n first\n second\nPlain: x\n", string(Format(fields)))
}
