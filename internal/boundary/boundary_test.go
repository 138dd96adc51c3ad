package boundary

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Success(t *testing.T) {
	b := New(nil)
	var out bytes.Buffer
	require.NoError(t, b.Render(&out, func(w io.Writer) error {
		_, err := io.WriteString(w, "Visa Free\n")
		return err
	}))
	assert.Equal(t, "Visa Free\n", out.String())
	assert.False(t, b.Failed())
	assert.NoError(t, b.Err())
}

func TestRender_ErrorShowsNoticeAndDiscardsPartialOutput(t *testing.T) {
	b := New(nil)
	var out bytes.Buffer
	boom := errors.New("template broke")
	require.NoError(t, b.Render(&out, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return boom
	}))
	assert.NotContains(t, out.String(), "partial")
	assert.Contains(t, out.String(), "Something went wrong")
	assert.Contains(t, out.String(), "We encountered an unexpected error. Please try again.")
	assert.True(t, b.Failed())
	assert.ErrorIs(t, b.Err(), boom)
}

func TestRender_PanicIsRecovered(t *testing.T) {
	b := New(nil)
	var out bytes.Buffer
	require.NoError(t, b.Render(&out, func(w io.Writer) error {
		panic("nil map")
	}))
	var pe *PanicError
	require.ErrorAs(t, b.Err(), &pe)
	assert.Equal(t, "nil map", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestRender_StaysFailedUntilRetry(t *testing.T) {
	b := New(nil)
	calls := 0
	fail := true
	render := func(w io.Writer) error {
		calls++
		if fail {
			return errors.New("flaky")
		}
		_, err := io.WriteString(w, "ok")
		return err
	}

	var out bytes.Buffer
	require.NoError(t, b.Render(&out, render))
	fail = false
	out.Reset()
	require.NoError(t, b.Render(&out, render))
	assert.Equal(t, 1, calls, "render is not retried implicitly")
	assert.True(t, strings.HasPrefix(out.String(), "Something went wrong"))

	b.Retry()
	out.Reset()
	require.NoError(t, b.Render(&out, render))
	assert.Equal(t, "ok", out.String())
	assert.Equal(t, 2, calls)
}

func TestWithNotice(t *testing.T) {
	b := New(nil, WithNotice(Notice{Title: "Oops", Message: "Later."}))
	var out bytes.Buffer
	require.NoError(t, b.Render(&out, func(io.Writer) error { return errors.New("x") }))
	assert.Equal(t, "Oops\nLater.\n", out.String())
	assert.Equal(t, "Oops", b.Notice().Title)
}
