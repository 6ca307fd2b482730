package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_ValidateURL(t *testing.T) {
	t.Parallel()
	allowed := []string{"example.com", "gifs.net"}

	tests := []struct {
		name        string
		url         string
		expectedErr error
	}{
		{"exact domain match", "https://example.com/post/1", nil},
		{"subdomain match", "https://media.example.com/x.gif", nil},
		{"nested subdomain match", "https://a.b.gifs.net/x", nil},
		{"case insensitive hostname", "https://MEDIA.Example.COM/x", nil},
		{"unlisted domain", "https://notexample.com/x", ErrDomainNotAllowed},
		{"suffix is not a subdomain", "https://evilexample.com/x", ErrDomainNotAllowed},
		{"domain in query only", "https://evil.com/?u=example.com", ErrDomainNotAllowed},
		{"unparseable", "://missing-scheme", ErrInvalidURL},
		{"no hostname", "not a url", ErrInvalidURL},
		{"empty", "", ErrInvalidURL},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			parsed, err := ValidateURL(test.url, allowed)
			if test.expectedErr == nil {
				assert.Nil(t, err)
				assert.NotNil(t, parsed)
			} else {
				assert.ErrorIs(t, err, test.expectedErr)
				assert.Nil(t, parsed)
			}
		})
	}
}

func Test_ValidateURL_EmptyAllowList(t *testing.T) {
	t.Parallel()

	_, err := ValidateURL("https://example.com/x", nil)
	assert.ErrorIs(t, err, ErrDomainNotAllowed)
}
