package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDocstring(t *testing.T) {
	doc := ParseDocstring(`Fetch a web page.

    Downloads the page and returns
    its body.

    Arguments:
        url (str): Address to fetch.
        timeout (float, optional): Seconds to wait
            before giving up.

    Returns:
        str: The body.

    Raises:
        ValueError: On bad input.

    Examples:
        >>> fetch("https://example.com")
        '<html>...'
    `)

	assert.Equal(t, "Fetch a web page.", doc.Short)
	assert.Equal(t, "Downloads the page and returns\nits body.", doc.Long)
	assert.Equal(t, []DocArg{
		{Name: "url", Type: "str", Description: "Address to fetch."},
		{Name: "timeout", Type: "float, optional", Description: "Seconds to wait before giving up."},
	}, doc.Args)
	assert.Equal(t, "str: The body.", doc.Returns)
	assert.Equal(t, "ValueError: On bad input.", doc.Raises)
	assert.Equal(t, `fetch("https://example.com")`, doc.Example)
}

func TestCleandoc(t *testing.T) {
	assert.Equal(t, "First.\n\nSecond\n  indented", cleandoc("First.\n\n    Second\n      indented\n    "))
	assert.Equal(t, "Only", cleandoc("\n  Only\n"))
}
