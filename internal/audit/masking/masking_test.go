package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "sgk_****5678", MaskSecret("sgk_abcdef12345678"))
	assert.Equal(t, "****", MaskSecret("abc"))
	assert.Equal(t, "", MaskSecret("  "))
}

func TestMaskSensitive(t *testing.T) {
	out := MaskSensitive(map[string]any{
		"api_key":   "sgk_abcdef12345678",
		"key_id":    "sgk_abcdef",
		"plan":      "enterprise",
		"nested":    map[string]any{"token": "abcdefgh"},
		"":          "dropped",
		"new_price": 7998,
	})
	assert.Equal(t, "sgk_****5678", out["api_key"])
	assert.Equal(t, "sgk_abcdef", out["key_id"])
	assert.Equal(t, "enterprise", out["plan"])
	assert.Equal(t, map[string]any{"token": "****efgh"}, out["nested"])
	assert.Equal(t, 7998, out["new_price"])
	assert.NotContains(t, out, "")
}
