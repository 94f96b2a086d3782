package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFields(t *testing.T) {
	got := FormatFields(map[string]string{"verdict": "accepted", "size": "10.00 MB"})
	assert.Equal(t, "• size    → 10.00 MB\n• verdict → accepted\n", got)
}

func TestFormatFieldsEmpty(t *testing.T) {
	assert.Equal(t, "", FormatFields(nil))
}
