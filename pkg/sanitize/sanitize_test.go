package sanitize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeMarkup(t *testing.T) {
	t.Run("plain text is unchanged", func(t *testing.T) {
		in := "no onions, extra cheese please"
		assert.Equal(t, in, EscapeMarkup(in))
		assert.Equal(t, in, EscapeMarkup(EscapeMarkup(in)))
	})

	t.Run("script tags lose angle brackets", func(t *testing.T) {
		out := EscapeMarkup(`<script>alert("x")</script>`)
		assert.NotContains(t, out, "<")
		assert.NotContains(t, out, ">")
		assert.NotContains(t, out, `"`)
		assert.Equal(t, "&lt;script&gt;alert(&quot;x&quot;)&lt;/script&gt;", out)
	})

	t.Run("ampersand is encoded", func(t *testing.T) {
		assert.Equal(t, "salt &amp; pepper", EscapeMarkup("salt & pepper"))
	})
}

func TestOrderBody(t *testing.T) {
	body := []byte(`{"table":"T1","session":"s","notes":"<b>hi</b>","items":[{"name":"Fries <large>","quantity":2,"unit_price":4.5,"notes":"<i>crispy</i>"},{"name":"Soda","quantity":1}]}`)

	out, err := OrderBody(body)
	require.NoError(t, err)

	var got struct {
		Table string `json:"table"`
		Notes string `json:"notes"`
		Items []struct {
			Name      string  `json:"name"`
			Quantity  int     `json:"quantity"`
			UnitPrice float64 `json:"unit_price"`
			Notes     string  `json:"notes"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(out, &got))

	assert.Equal(t, "T1", got.Table)
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", got.Notes)
	assert.Equal(t, "&lt;i&gt;crispy&lt;/i&gt;", got.Items[0].Notes)
	assert.Equal(t, "Fries <large>", got.Items[0].Name)
	assert.Equal(t, 4.5, got.Items[0].UnitPrice)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.Equal(t, "", got.Items[1].Notes)
	assert.False(t, strings.Contains(string(out), "<b>"))
}

func TestOrderBodyRejectsInvalidJSON(t *testing.T) {
	_, err := OrderBody([]byte(`{"notes":`))
	assert.Error(t, err)
}

func TestOrderBodyEmpty(t *testing.T) {
	out, err := OrderBody(nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
