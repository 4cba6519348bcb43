package llm

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFakeBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake binary scripts require a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-cli")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestCLIClientChatParsesJSONEnvelope(t *testing.T) {
	bin := writeFakeBinary(t, `cat <<'EOF'
{"result": "done thing", "usage": {"input_tokens": 10, "output_tokens": 5}}
EOF
`)
	c := NewCLIClient(bin)
	resp, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "done thing", resp.Content)
	assert.Equal(t, 15, resp.Usage.TotalTokens)
}

func TestCLIClientChatFallsBackToBraceExtraction(t *testing.T) {
	bin := writeFakeBinary(t, `echo "here is your answer: {\"x\": 1} thanks"`)
	c := NewCLIClient(bin)
	resp, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, `{"x": 1}`, resp.Content)
}

func TestCLIClientChatClassifiesMissingBinary(t *testing.T) {
	c := NewCLIClient(filepath.Join(t.TempDir(), "does-not-exist"))
	_, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, Options{})
	require.Error(t, err)
}

func TestBuildCommandArgsIncludesModelAndTools(t *testing.T) {
	args := buildCommandArgs(Options{Model: "sonnet", ToolWhitelist: []string{"read_file"}})
	assert.Contains(t, args, "--model")
	assert.Contains(t, args, "sonnet")
	assert.Contains(t, args, "--allow-tool")
	assert.Contains(t, args, "read_file")
}

func TestExtractJSONObjectFindsBalancedBraces(t *testing.T) {
	assert.Equal(t, `{"a":{"b":1}}`, extractJSONObject(`prefix {"a":{"b":1}} suffix`))
	assert.Equal(t, "", extractJSONObject("no braces here"))
}

func TestApproxCountTokens(t *testing.T) {
	assert.Equal(t, 0, ApproxCountTokens(""))
	assert.Equal(t, 3, ApproxCountTokens("abcdefghij"))
}
