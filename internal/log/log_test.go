package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRedactionSecretField(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "secret", "abc123")
	require.Equal(t, "[REDACTED]", out["secret"])
}

func TestRedactionAPIKeyField(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "api_key", "usda-key")
	require.Equal(t, "[REDACTED]", out["api_key"])
}

func TestRedactionTokenField(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "token", "abc.token.xyz")
	require.Equal(t, "[REDACTED]", out["token"])
}

func TestRedactionPasswordField(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "password", "not-safe")
	require.Equal(t, "[REDACTED]", out["password"])
}

func TestRedactionIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "Session_Token", "0b6c")
	require.Equal(t, "[REDACTED]", out["Session_Token"])
}

func TestRedactionNestedGroup(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewJSONHandler(&buf, nil)))
	logger.Info("request", slog.Group("usda", slog.String("key", "k"), slog.String("state", "IA")))

	out := map[string]any{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &out))
	group := out["usda"].(map[string]any)
	require.Equal(t, "[REDACTED]", group["key"])
	require.Equal(t, "IA", group["state"])
}

func TestRedactionWithAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewJSONHandler(&buf, nil))).With("token", "t")
	logger.Info("signed in")
	require.Contains(t, buf.String(), `"token":"[REDACTED]"`)
}

func TestNonSensitiveFieldsPassThrough(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "value", "12.5")
	require.Equal(t, "12.5", out["value"])
}

func TestLogFileRotatesBySize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fieldbuddy.log")
	logger, closer, err := New(Options{File: path, MaxSizeMB: 1, MaxFiles: 5})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	payload := strings.Repeat("a", 600*1024)
	for i := 0; i < 3; i++ {
		logger.Info("reading batch", "payload", payload)
	}

	files, err := filepath.Glob(filepath.Join(dir, "fieldbuddy*"))
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(files), 2)
}

func TestLogFileKeepsConfiguredBackups(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "fieldbuddy.log")
	logger, closer, err := New(Options{File: path, MaxSizeMB: 1, MaxFiles: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = closer.Close() })

	payload := strings.Repeat("b", 600*1024)
	for i := 0; i < 12; i++ {
		logger.Info("reading batch", "payload", payload)
	}

	// Old backups are removed in the background after each rotation.
	require.Eventually(t, func() bool {
		files, err := filepath.Glob(filepath.Join(dir, "fieldbuddy-*"))
		return err == nil && len(files) <= 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLogFileRejectsNonPositiveLimits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fieldbuddy.log")
	_, _, err := New(Options{File: path, MaxSizeMB: 0, MaxFiles: 5})
	require.ErrorIs(t, err, errRotationLimits)
	_, _, err = New(Options{File: path, MaxSizeMB: 10, MaxFiles: -1})
	require.ErrorIs(t, err, errRotationLimits)
}

func TestRedactionMasksQueryKeyInURLs(t *testing.T) {
	t.Parallel()

	const apiURL = "https://quickstats.nass.usda.gov/api/api_GET/?key=ABC-123&commodity_desc=CORN&format=JSON"
	parsed, err := url.Parse(apiURL)
	require.NoError(t, err)

	var buf bytes.Buffer
	logger := slog.New(NewRedactingHandler(slog.NewJSONHandler(&buf, nil)))
	logger.Warn("quickstats request failed",
		"url", apiURL,
		"request", parsed,
		"err", &url.Error{Op: "Get", URL: apiURL, Err: errors.New("connection refused")},
		slog.Group("retry", slog.String("next", apiURL)),
	)

	line := buf.String()
	require.NotContains(t, line, "ABC-123")
	require.Contains(t, line, "key=[REDACTED]")
	require.Contains(t, line, "commodity_desc=CORN")
	require.Contains(t, line, "connection refused")

	buf.Reset()
	logger.With("endpoint", apiURL).Info("calling " + apiURL)
	require.NotContains(t, buf.String(), "ABC-123")
}

func TestRedactionLeavesPlainEqualsAlone(t *testing.T) {
	t.Parallel()
	out := logSingleField(t, "expr", "value >= 30 && monkey=1")
	require.Equal(t, "value >= 30 && monkey=1", out["expr"])
}

func logSingleField(t *testing.T, key, value string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	base := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewRedactingHandler(base))
	logger.Info("test", key, value)

	line := bytes.TrimSpace(buf.Bytes())
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(line, &out))
	return out
}

func TestNewLoggerLevelsAndFile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, closer, err := New(Options{Level: "warn", Stderr: &buf})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "api_key", "k")
	require.NoError(t, closer.Close())
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"api_key":"[REDACTED]"`)

	path := filepath.Join(t.TempDir(), "logs", "fieldbuddy.log")
	logger, closer, err = New(Options{Level: "debug", File: path, MaxSizeMB: 10, MaxFiles: 5})
	require.NoError(t, err)
	logger.Debug("to file")
	require.NoError(t, closer.Close())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "to file")

	_, _, err = New(Options{Level: "loud"})
	require.Error(t, err)
}

func TestRedactingHandlerTypeIsDocumented(t *testing.T) {
	t.Parallel()

	file, err := parser.ParseFile(token.NewFileSet(), "redacting_handler.go", nil, parser.ParseComments)
	require.NoError(t, err)

	var doc string
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			if ts := spec.(*ast.TypeSpec); ts.Name.Name == "RedactingHandler" {
				doc = gen.Doc.Text()
			}
		}
	}
	require.Contains(t, doc, "RedactingHandler scrubs records")
}
