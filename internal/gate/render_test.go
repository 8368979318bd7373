package gate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderFullBlock(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, &Block{
		Title:        "Subscription Expired",
		Message:      "This store's subscription has ended. Contact the owner to renew.",
		Reason:       "Subscription ended on 01/01/2024, 09:30:00 am",
		EndingDate:   "01/01/2024, 09:30:00 am",
		ContactPhone: "01012345678",
	})
	require.NoError(t, err)

	page := buf.String()
	assert.Contains(t, page, "<title>Subscription Expired</title>")
	assert.Contains(t, page, "<h1>Subscription Expired</h1>")
	assert.Contains(t, page, "<strong>Ending Date:</strong> 01/01/2024, 09:30:00 am")
	assert.Contains(t, page, `<a href="tel:01012345678"`)
	assert.Contains(t, page, "Call 010 1234 5678")
	assert.Contains(t, page, "<strong>Reason</strong>")
	assert.Contains(t, page, "Subscription ended on 01/01/2024, 09:30:00 am")
}

func TestRenderOmitsOptionalBoxes(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, &Block{Title: "Access Denied", Message: "m", Reason: "No UID provided"})
	require.NoError(t, err)

	page := buf.String()
	assert.Contains(t, page, "<h1>Access Denied</h1>")
	assert.NotContains(t, page, "Ending Date:")
	assert.NotContains(t, page, "tel:")
	assert.Contains(t, page, "No UID provided")
}

func TestRenderEscapesRecordData(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, &Block{Title: "Verification Failed", Reason: "<script>alert(1)</script>"})
	require.NoError(t, err)

	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
}

func TestRenderNilBlock(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, nil))
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "010 1234 5678", FormatPhone("01012345678"))
	assert.Equal(t, "+201012345678", FormatPhone("+201012345678"))
	assert.Equal(t, "0101234", FormatPhone("0101234"))
}
