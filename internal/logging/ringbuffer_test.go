package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingBuffer_BasicWrite(t *testing.T) {
	rb := NewRingBuffer(64)

	n, err := rb.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "hello", string(rb.Bytes()))
}

func TestRingBuffer_Wrap(t *testing.T) {
	rb := NewRingBuffer(10)

	_, _ = rb.Write([]byte("abcdefghij")) // fills exactly
	_, _ = rb.Write([]byte("12345"))      // wraps

	require.Equal(t, "fghij12345", string(rb.Bytes()))
}

func TestRingBuffer_LargerThanCapacity(t *testing.T) {
	rb := NewRingBuffer(5)

	_, _ = rb.Write([]byte("0123456789"))

	require.Equal(t, "56789", string(rb.Bytes()))
}

func TestRingBuffer_MultipleSmallWrites(t *testing.T) {
	rb := NewRingBuffer(8)

	_, _ = rb.Write([]byte("AA"))
	_, _ = rb.Write([]byte("BB"))
	_, _ = rb.Write([]byte("CC"))
	_, _ = rb.Write([]byte("DD"))
	require.Equal(t, "AABBCCDD", string(rb.Bytes()))

	_, _ = rb.Write([]byte("EE"))
	require.Equal(t, "BBCCDDEE", string(rb.Bytes()))
}

func TestRingBuffer_DefaultSize(t *testing.T) {
	rb := NewRingBuffer(0)
	require.Equal(t, defaultRingBufferSize, rb.size)
}

func TestRingBuffer_DumpToFile(t *testing.T) {
	rb := NewRingBuffer(32)
	_, _ = rb.Write([]byte("dump_test_data"))

	path := filepath.Join(t.TempDir(), "dump.bin")
	require.NoError(t, rb.DumpToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "dump_test_data", string(data))
}

func TestRingBuffer_DumpJSONL_TrimsPartialLeadingLine(t *testing.T) {
	rb := NewRingBuffer(16)

	// The two 8-byte lines exactly fill the 16-byte buffer. DumpJSONL drops
	// everything up to and including the first newline, so only the second
	// line survives in the dump.
	_, _ = rb.Write([]byte(`{"a":1}` + "\n" + `{"b":2}` + "\n"))

	path := filepath.Join(t.TempDir(), "dump.jsonl")
	require.NoError(t, rb.DumpJSONL(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"b":2}`+"\n", string(data))
}

func TestRingBuffer_DumpJSONL_NoNewlineKeepsWholeBuffer(t *testing.T) {
	rb := NewRingBuffer(32)
	_, _ = rb.Write([]byte(`{"a":1}`))

	path := filepath.Join(t.TempDir(), "dump.jsonl")
	require.NoError(t, rb.DumpJSONL(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `{"a":1}`, string(data))
}

func TestRingBuffer_Concurrent(t *testing.T) {
	rb := NewRingBuffer(1024)
	done := make(chan struct{})

	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_, _ = rb.Write([]byte("x"))
			}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	require.Len(t, rb.Bytes(), 1000)
}
