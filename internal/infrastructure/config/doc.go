// Package config loads and validates reeflink configuration.
//
// Configuration comes from a YAML file, overridden by environment
// variables of the form REEFLINK_SECTION_KEY, with defaults filled in
// for everything optional. Validation runs at load time so bad config
// fails startup rather than a refresh cycle hours later.
//
// Sensitive values (controller and broker credentials, tokens) should
// be supplied via environment variables rather than the file; the
// config file itself should carry restricted permissions (0600).
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Controller.Host)
package config
