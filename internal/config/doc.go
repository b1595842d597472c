// Package config provides configuration management for the market-data proxy.
//
// Configuration is loaded once at startup from environment variables using
// the env package. Only CMC_API_KEY has no default; without it every
// upstream call is rejected by the provider.
//
// Example usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("HTTP server will listen on %s\n", cfg.GetHTTPAddr())
package config
