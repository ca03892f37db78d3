// Package main is the container healthcheck probe. It exits 0 when the
// local server answers /livez with 200.
package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/garyellow/program-lookup/internal/config"
)

func main() {
	port := os.Getenv(config.EnvPort)
	if port == "" {
		port = "10000"
	}

	client := &http.Client{Timeout: config.HealthcheckClient}
	url := fmt.Sprintf("http://localhost:%s/livez", port)

	resp, err := client.Get(url)
	if err != nil {
		os.Exit(1)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
