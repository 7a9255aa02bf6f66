package main

import (
	"os"

	"github.com/spf13/pflag"

	"onlinellm-gateway/backend/internal/app"
)

// @title           Online LLM Gateway API
// @version         1.0
// @description     OpenAI-compatible chat completion gateway for Azure OpenAI with optional web search enrichment.
// @BasePath        /
// @securityDefinitions.apikey  ApiKeyAuth
// @in                          header
// @name                        api-key
func main() {
	flags := pflag.NewFlagSet("server", pflag.ExitOnError)
	envFile := flags.String("env-file", ".env", "optional env file with configuration")
	flags.Int("port", 8080, "port to listen on (overrides PORT)")
	_ = flags.Parse(os.Args[1:])

	os.Exit(app.Run(*envFile, flags))
}
