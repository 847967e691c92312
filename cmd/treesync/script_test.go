package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript(t *testing.T) {
	sc, err := parseScript([]byte(`
[[step]]
edit = { offset = 0, delete = 2, text = "x" }

[[step]]
tree = [{ offset = 1, text = "y" }, { offset = 3, delete = 1 }]

[[step]]
commit = true

[[step]]
wait = true
`))
	require.NoError(t, err)
	require.Len(t, sc.Steps, 4)

	assert.Equal(t, &Replace{Offset: 0, Delete: 2, Text: "x"}, sc.Steps[0].Edit)
	assert.Equal(t, []Replace{{Offset: 1, Text: "y"}, {Offset: 3, Delete: 1}}, sc.Steps[1].Tree)
	assert.True(t, sc.Steps[2].Commit)
	assert.True(t, sc.Steps[3].Wait)
}

func TestParseScriptErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:    "empty step",
			input:   "[[step]]\n",
			wantErr: errBadStep,
		},
		{
			name:    "two actions",
			input:   "[[step]]\ncommit = true\nwait = true\n",
			wantErr: errBadStep,
		},
		{
			name:  "negative offset",
			input: "[[step]]\nedit = { offset = -1, text = \"x\" }\n",
		},
		{
			name:  "negative delete in tree",
			input: "[[step]]\ntree = [{ offset = 0, delete = -3 }]\n",
		},
		{
			name:  "unknown field",
			input: "[[step]]\ninsert = \"x\"\n",
		},
		{
			name:  "syntax",
			input: "[[step]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseScript([]byte(tt.input))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
