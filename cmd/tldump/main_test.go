package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-tl/compress"
	"mini-tl/message"
	"mini-tl/registry"
	"mini-tl/service"
)

func hexOf(t *testing.T, e message.Entity) string {
	t.Helper()
	data, err := message.Serialize(e)
	require.NoError(t, err)
	return hex.EncodeToString(data)
}

func TestRunHexLines(t *testing.T) {
	env, err := compress.Pack(&service.LegacyPong{PingID: 4}, compress.NewGzip())
	require.NoError(t, err)

	input := strings.Join([]string{
		"# comment",
		hexOf(t, &service.Pong{MsgID: 1, PingID: 2}),
		"",
		hexOf(t, env),
		hexOf(t, message.NewObjectVector(message.True, &service.RpcError{Code: 1, Message: "x"})),
	}, "\n")

	var stdout, stderr bytes.Buffer
	err = run(context.Background(), []string{"-hex"}, strings.NewReader(input), &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	dec := json.NewDecoder(&stdout)
	var first, second map[string]any
	require.NoError(t, dec.Decode(&first))
	assert.Equal(t, "#347773c5", first["_"])
	assert.Equal(t, 2.0, first["PingID"])

	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, "#347773c5", second["_"])
	assert.Equal(t, 4.0, second["PingID"])

	var third []any
	require.NoError(t, dec.Decode(&third))
	assert.Equal(t, true, third[0])
}

func TestRunBinaryFile(t *testing.T) {
	data, err := message.Serialize(&service.Ping{PingID: 77})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "ping.bin")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-stats", path}, nil, &stdout, &stderr))
	assert.Contains(t, stdout.String(), `"#7abe77ec"`)
}

func TestRunReportsFailures(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-hex"}, strings.NewReader("deadbeef\nb5757299\n"), &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2")
	assert.Contains(t, stderr.String(), "stdin:1")
	assert.Contains(t, stdout.String(), "true")
}

func TestRunBadHex(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-hex"}, strings.NewReader("zz\n"), &stdout, &stderr)
	assert.Error(t, err)
}

func TestRunCatalogNeedsEndpoints(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-publish"}, strings.NewReader(""), &stdout, &stderr)
	assert.ErrorContains(t, err, "no etcd endpoints")
}

func TestRunLimitsFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "minitl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[limits]\nmax_vector_len = 1\n"), 0o644))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", path, "-hex"},
		strings.NewReader(hexOf(t, message.NewLongVector(1, 2))), &stdout, &stderr)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "vector too long")
}

type fakeCatalog struct {
	published []message.TypeID
	closedAt  int // bytes on stdout when Close ran, -1 while open
	stdout    *bytes.Buffer
}

func (f *fakeCatalog) Publish(_ context.Context, _ string, reg *registry.Registry, _ int64) error {
	f.published = reg.IDs()
	return nil
}

func (f *fakeCatalog) Withdraw(context.Context, string) error { return nil }

func (f *fakeCatalog) Lookup(context.Context, string) ([]message.TypeID, error) {
	return []message.TypeID{service.PingID}, nil
}

func (f *fakeCatalog) Watch(context.Context, string) <-chan []message.TypeID { return nil }

func (f *fakeCatalog) Close() error {
	f.closedAt = f.stdout.Len()
	return nil
}

func TestRunKeepsCatalogOpenWhileDecoding(t *testing.T) {
	var stdout, stderr bytes.Buffer
	fake := &fakeCatalog{closedAt: -1, stdout: &stdout}
	orig := dialCatalog
	dialCatalog = func([]string, time.Duration) (catalog, error) { return fake, nil }
	defer func() { dialCatalog = orig }()

	t.Setenv("MINITL_ETCD_ENDPOINTS", "127.0.0.1:2379")
	path := filepath.Join(t.TempDir(), "minitl.toml")
	require.NoError(t, os.WriteFile(path, []byte("[catalog]\nnode = \"edge-1\"\n"), 0o644))

	err := run(context.Background(), []string{"-config", path, "-publish", "-peer", "edge-2", "-hex"},
		strings.NewReader(hexOf(t, message.True)), &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	assert.ElementsMatch(t, []message.TypeID{service.PingID, service.PongID, service.RpcErrorID}, fake.published)
	assert.Contains(t, stdout.String(), "peer edge-2 lacks #347773c5")
	assert.Contains(t, stdout.String(), "true")
	assert.Equal(t, stdout.Len(), fake.closedAt, "catalog closed before decoding finished")
}
