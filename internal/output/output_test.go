package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func swap(t *testing.T, jsonMode bool) (*bytes.Buffer, *bytes.Buffer, *int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := -1
	prevOut, prevErr, prevExit, prevJSON := Stdout, Stderr, exit, JSONMode
	Stdout, Stderr, JSONMode = &out, &errOut, jsonMode
	exit = func(c int) { code = c }
	t.Cleanup(func() {
		Stdout, Stderr, exit, JSONMode = prevOut, prevErr, prevExit, prevJSON
	})
	return &out, &errOut, &code
}

func TestPrint_JSONEnvelope(t *testing.T) {
	out, _, _ := swap(t, true)
	called := false

	Print(map[string]int{"events": 3}, func() { called = true })

	assert.False(t, called)
	var res struct {
		Success bool           `json:"success"`
		Data    map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Data["events"])
}

func TestPrint_TextCallsFn(t *testing.T) {
	out, _, _ := swap(t, false)
	called := false

	Print("ignored", func() { called = true })

	assert.True(t, called)
	assert.Empty(t, out.String())
}

func TestPrintError(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		_, errOut, code := swap(t, false)
		PrintError(errors.New("boom"))
		assert.Equal(t, "Error: boom\n", errOut.String())
		assert.Equal(t, 1, *code)
	})

	t.Run("json", func(t *testing.T) {
		out, _, code := swap(t, true)
		PrintError(errors.New("boom"))

		var res Result
		require.NoError(t, json.Unmarshal(out.Bytes(), &res))
		assert.False(t, res.Success)
		assert.Equal(t, "boom", res.Error)
		assert.Equal(t, 1, *code)
	})
}

func TestRaw(t *testing.T) {
	out, _, _ := swap(t, true)
	require.NoError(t, Raw([]byte("a,b\n")))
	assert.Equal(t, "a,b\n", out.String())
}
