package controlmode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLine_Output(t *testing.T) {
	msg := ParseLine("%output %3 hello\\040world")
	require.Equal(t, Output, msg.Type)
	require.Equal(t, "%3", msg.PaneID)
	require.Equal(t, "hello world", msg.Data)
}

func TestParseLine_OutputNoSpaceAfterColon(t *testing.T) {
	msg := ParseLine("%output %3:hi")
	require.Equal(t, Output, msg.Type)
	require.Equal(t, "hi", msg.Data)
}

func TestParseLine_BeginEnd(t *testing.T) {
	begin := ParseLine("%begin 1234567890 1 0")
	require.Equal(t, Begin, begin.Type)
	require.Equal(t, 1, begin.CommandNumber)
	require.EqualValues(t, 1234567890, begin.Timestamp)

	end := ParseLine("%end 1234567891 1 0")
	require.Equal(t, End, end.Type)
	require.Equal(t, 1, end.CommandNumber)
	require.Equal(t, 0, end.ExitCode)
}

func TestParseLine_Error(t *testing.T) {
	msg := ParseLine("%error 1234567890 2 unknown command")
	require.Equal(t, Error, msg.Type)
	require.Equal(t, 2, msg.CommandNumber)
	require.Equal(t, "unknown command", msg.ErrorMessage)
}

func TestParseLine_WindowAndSessionEvents(t *testing.T) {
	require.Equal(t, WindowAdd, ParseLine("%window-add @5").Type)
	require.Equal(t, WindowClose, ParseLine("%window-close @5").Type)

	renamed := ParseLine("%window-renamed @5 new-name")
	require.Equal(t, WindowRenamed, renamed.Type)
	require.Equal(t, "@5", renamed.WindowID)
	require.Equal(t, "new-name", renamed.Name)

	changed := ParseLine("%session-changed $2 work")
	require.Equal(t, SessionChanged, changed.Type)
	require.Equal(t, "$2", changed.SessionID)
	require.Equal(t, "work", changed.Name)

	require.Equal(t, SessionsChanged, ParseLine("%sessions-changed").Type)
}

func TestParseLine_MalformedFallsBackToUnknown(t *testing.T) {
	require.Equal(t, Unknown, ParseLine("%begin not-enough-fields").Type)
	require.Equal(t, Unknown, ParseLine("plain text, not a notification").Type)
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	original := "line one\ttab\x01ctl\\backslash"
	escaped := Escape(original)
	require.Equal(t, original, Unescape(escaped))
}

func TestEscape_NewlineLeftLiteral(t *testing.T) {
	require.Equal(t, "a\nb", Escape("a\nb"))
}

func TestUnescape_TruncatedSequenceLeftLiteral(t *testing.T) {
	require.Equal(t, `abc\04`, Unescape(`abc\04`))
}

func TestUnescape_KnownOctalValues(t *testing.T) {
	require.Equal(t, " ", Unescape(`\040`))
	require.Equal(t, "\\", Unescape(`\134`))
}
