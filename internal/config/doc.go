// Package config manages configuration for the donation engine.
//
// Two sources feed it: environment variables (optionally primed from a
// .env file) for process settings, and a YAML rules file for the game
// rules themselves.
//
// # Environment
//
//	cfg, err := config.Load()
//	if err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//
// Key variables:
//
//	SERVER_PORT                 HTTP port (default 8080)
//	SERVER_ENV                  development | production | test
//	STORE_DRIVER                memory | surreal | postgres (default memory)
//	DB_HOST, DB_PORT, ...       SurrealDB connection
//	POSTGRES_DSN                PostgreSQL connection string
//	DONATION_MAX_ATTEMPTS       conflict retries per donation (default 3)
//	NOTIFY_ENDPOINT             generative text endpoint, empty for templates only
//	LEADER_RECONCILE_INTERVAL   periodic leader recomputation, 0 disables
//	RULES_PATH                  rules file, empty for built-in rules
//
// # Rules File
//
//	tiers:
//	  - {name: bronze, min_points: 0}
//	  - {name: silver, min_points: 2000, multiplier: 1.25}
//	catalog:
//	  - {item_type: Winter Coats, base_points: 25, demand_multiplier: 2.0}
//	locations:
//	  - name: South Beach Donation Hub
//	    latitude: 25.7617
//	    longitude: -80.1918
//
// Keys left out of the file keep their built-in values.
package config
