package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-querydash/components/dashboard"
)

func TestParseFilters(t *testing.T) {
	got, err := parseFilters([]string{
		"region=North",
		" product =[\"Widget\",\"Gizmo\"]",
		`date={"from":"2024-01-01","to":"2024-03-31"}`,
		"note=a=b",
	})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, filterSelection{field: "region", value: "North"}, got[0])
	assert.Equal(t, "product", got[1].field)
	assert.Equal(t, []any{"Widget", "Gizmo"}, got[1].value)
	assert.Equal(t, map[string]any{"from": "2024-01-01", "to": "2024-03-31"}, got[2].value)
	assert.Equal(t, "a=b", got[3].value)

	_, err = parseFilters([]string{"region"})
	assert.Error(t, err)
	_, err = parseFilters([]string{"=North"})
	assert.Error(t, err)
	_, err = parseFilters([]string{"product=[broken"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestServeConfigValidation(t *testing.T) {
	base := serveCmd{Listen: ":8080", Timeout: time.Second, Concurrency: 4, BasePath: "/api"}

	mock := base
	mock.Mock = true
	require.NoError(t, mock.validate())

	remote := base
	remote.Backend = "https://query.example.com"
	require.NoError(t, remote.validate())

	missing := base
	assert.Error(t, missing.validate(), "backend is required without --mock")

	badURL := base
	badURL.Backend = "not a url"
	assert.Error(t, badURL.validate())

	badPath := mock
	badPath.BasePath = "api"
	assert.Error(t, badPath.validate())
}

func TestLoadFixturesDefaultsToDemo(t *testing.T) {
	data, err := loadFixtures("")
	require.NoError(t, err)
	assert.Len(t, data.Default.Data, 48)
	assert.Len(t, data.Default.Charts, 3)

	path := filepath.Join(t.TempDir(), "fixtures.json")
	raw := `{"specifications":{"sales":{"title":"Sales","data":[{"region":"North","sales":1}]}},"mapping_reads":2}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	data, err = loadFixtures(path)
	require.NoError(t, err)
	assert.Equal(t, "Sales", data.Specifications["sales"].Title)
	assert.Equal(t, 2, data.MappingReads)
	assert.Equal(t, "Sales Overview", data.Default.Title)
}

func TestLoadedServiceAppliesFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.json")
	raw := `{"title":"Sales","filters":[{"field":"region","type":"dropdown"}],` +
		`"data":[{"region":"North","sales":1},{"region":"South","sales":2},{"region":"North","sales":3}]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	g := &Globals{LogLevel: "error"}
	service, err := loadedService(t.Context(), g, path, "", []string{"region=North"}, dashboard.Options{})
	require.NoError(t, err)
	view, err := service.View(t.Context(), cliSession)
	require.NoError(t, err)
	assert.Equal(t, 3, view.TotalRows)
	assert.Equal(t, 2, view.FilteredRows)

	_, err = loadedService(t.Context(), g, path, "", []string{"missing=x"}, dashboard.Options{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "missing"))
}
