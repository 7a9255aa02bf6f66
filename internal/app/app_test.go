package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onlinellm-gateway/backend/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               8080,
		LogLevel:           "DEBUG",
		AzureEndpoint:      "https://example.openai.azure.com",
		AzureKey:           "upstream-key",
		AzureDeployment:    "gpt-4o",
		AzureAPIVersion:    "2024-06-01",
		OnlineModelMarker:  "_onlinellm",
		SearchBaseURL:      "https://html.duckduckgo.com/html/",
		SearchSnippetClass: "result__snippet",
		SearchMaxResults:   5,
		SearchTimeout:      10 * time.Second,
		UpstreamTimeout:    60 * time.Second,
		RequestTimeout:     90 * time.Second,
		Sampling:           config.DefaultSampling(),
	}
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(testConfig())
	require.NoError(t, err)
	require.NotNil(t, app)

	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.Server.Handler)
	assert.Equal(t, ":8080", app.Server.Addr)
}

func TestNewApp_NilConfig(t *testing.T) {
	app, err := NewApp(nil)
	assert.Error(t, err)
	assert.Nil(t, app)
}

func TestApp_Serve(t *testing.T) {
	t.Run("Serves until the context is cancelled", func(t *testing.T) {
		cfg := testConfig()
		app, err := NewApp(cfg)
		require.NoError(t, err)

		// Reserve a free port so the test knows where to connect.
		probe, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		app.Server.Addr = probe.Addr().String()
		require.NoError(t, probe.Close())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- app.Serve(ctx) }()

		var resp *http.Response
		require.Eventually(t, func() bool {
			resp, err = http.Get("http://" + app.Server.Addr + "/healthz")
			return err == nil
		}, 5*time.Second, 20*time.Millisecond)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, string(body))

		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not shut down")
		}
	})

	t.Run("Bind failure is reported", func(t *testing.T) {
		occupied, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer func() { _ = occupied.Close() }()

		app, err := NewApp(testConfig())
		require.NoError(t, err)
		app.Server.Addr = occupied.Addr().String()

		err = app.Serve(context.Background())
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "bind "))
	})
}

func TestRun_MissingConfig(t *testing.T) {
	for _, key := range []string{
		"AZURE_OPENAI_ENDPOINT",
		"AZURE_OPENAI_KEY",
		"AZURE_OPENAI_DEPLOYMENT_NAME",
		"AZURE_OPENAI_API_VERSION",
	} {
		t.Setenv(key, "")
	}

	assert.Equal(t, 1, Run("", nil))
}

// TestApp_EndToEnd drives the fully wired handler against a fake search engine
// and a fake Azure OpenAI deployment.
func TestApp_EndToEnd(t *testing.T) {
	searchServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "capital of France", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, `<html><body>
			<a class="result__snippet">Paris is the capital of France.</a>
			<a class="result__snippet">France is in Europe.</a>
		</body></html>`)
	}))
	defer searchServer.Close()

	var upstreamBody map[string]any
	azureServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o/chat/completions", r.URL.Path)
		assert.Equal(t, "upstream-key", r.Header.Get("Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&upstreamBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"chatcmpl-e2e","object":"chat.completion","created":1700000000,"model":"gpt-4o",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Paris."},"finish_reason":"stop"}]}`)
	}))
	defer azureServer.Close()

	cfg := testConfig()
	cfg.AzureEndpoint = azureServer.URL
	cfg.GatewayAPIKey = "gateway-key"
	cfg.SearchBaseURL = searchServer.URL + "/html/"

	app, err := NewApp(cfg)
	require.NoError(t, err)
	gateway := httptest.NewServer(app.Server.Handler)
	defer gateway.Close()

	post := func(apiKey string) *http.Response {
		body := `{"model":"gpt4_onlinellm","messages":[{"role":"user","content":"capital of France"}]}`
		req, err := http.NewRequest(http.MethodPost, gateway.URL+"/openai/deployments/gpt4_onlinellm/chat/completions", strings.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("api-key", apiKey)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	t.Run("Upstream key is not accepted inbound", func(t *testing.T) {
		resp := post("upstream-key")
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Online completion", func(t *testing.T) {
		resp := post("gateway-key")
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got struct {
			ID      string `json:"id"`
			Object  string `json:"object"`
			Model   string `json:"model"`
			Choices []struct {
				Index   int `json:"index"`
				Message struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"message"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "chatcmpl-e2e", got.ID)
		assert.Equal(t, "chat.completion", got.Object)
		assert.Equal(t, "gpt4_onlinellm", got.Model)
		require.Len(t, got.Choices, 1)
		assert.Equal(t, "assistant", got.Choices[0].Message.Role)
		assert.Equal(t, "Paris.", got.Choices[0].Message.Content)
		assert.Equal(t, "stop", got.Choices[0].FinishReason)

		messages, ok := upstreamBody["messages"].([]any)
		require.True(t, ok)
		require.Len(t, messages, 2)
		first := messages[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "Relevant information from web search:\nParis is the capital of France.\nFrance is in Europe.", first["content"])
		assert.Equal(t, "gpt-4o", upstreamBody["model"])
	})
}
