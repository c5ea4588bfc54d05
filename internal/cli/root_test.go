package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partscout/pkg/config"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "partscout", cmd.Use)

	for _, name := range []string{"serve", "resolve", "patterns"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	cfgFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, cfgFlag)
	assert.Equal(t, "partscout.yml", cfgFlag.DefValue)

	resolveCmd, _, err := cmd.Find([]string{"resolve"})
	require.NoError(t, err)
	assert.NotNil(t, resolveCmd.Flags().Lookup("json"))
}

func buildApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Validate())

	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestBuild_CatalogOnly(t *testing.T) {
	app := buildApp(t, nil)
	assert.Nil(t, app.Tokens)
	assert.False(t, app.Engine.LiveEnabled())
}

func TestBuild_PartsTechNeedsCredentials(t *testing.T) {
	app := buildApp(t, func(c *config.Config) {
		c.PartsTech.Username = "shop"
		c.PartsTech.APIKey = "secret"
	})
	assert.NotNil(t, app.Tokens)
	assert.True(t, app.Engine.LiveEnabled())
}

func TestRouter_ResolveWithDemoProvider(t *testing.T) {
	app := buildApp(t, func(c *config.Config) { c.PartsTech.Demo = true })
	srv := httptest.NewServer(NewRouter(app))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/resolve/D16W73005025")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Identity struct {
			EngineCode string `json:"engine_code"`
		} `json:"identity"`
		CatalogLayer string `json:"catalog_layer"`
		Result       struct {
			SourceStatus string `json:"source_status"`
		} `json:"result"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "D16W7", body.Identity.EngineCode)
	assert.Equal(t, "engine", body.CatalogLayer)
	assert.Equal(t, "live_available", body.Result.SourceStatus)

	st := app.Tokens.Status()
	assert.EqualValues(t, 1, st.Renewals)
}
