// Package config loads pleskcert settings.
//
// Settings are layered: built-in defaults, then an optional YAML file at
// ~/.config/pleskcert/config.yaml (or the path given with --config), then
// LE_PLESK_* environment variables. Command-line flags are applied last by
// the cli package.
//
// Example config.yaml:
//
//	secure_panel: true
//	host: 127.0.0.1
//	port: 8443
//	scheme: https
//	email: admin@example.com
//
// Environment variables:
//
//	LE_PLESK_SECRET_KEY     API-RPC secret; empty creates one per run
//	LE_PLESK_SECURE_PANEL   also secure the panel's admin interface
//	LE_PLESK_HOST           panel host (default 127.0.0.1)
//	LE_PLESK_PORT           panel port (default from sw-cp-server config)
//	LE_PLESK_SCHEME         http or https
//	LE_PLESK_ROOT           installation root (default per platform)
//	LE_PLESK_TARGET         posix or windows (default detected)
//	LE_PLESK_EMAIL          ACME account email for issue
//	LE_PLESK_DIRECTORY_URL  ACME directory for issue
package config
