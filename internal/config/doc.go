// Package config loads routeagent.json and environment overrides.
//
// Values are layered: built-in defaults from New, then the file, then any
// environment variables that are set. A missing file is not an error.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "addr": ":8080",
//	    "title": "Docs",
//	    "pingInterval": "25s",
//	    "readTimeout": "60s"
//	  },
//	  "log": {"level": "debug", "format": "json"},
//	  "metrics": {"enabled": true, "namespace": "docs"},
//	  "snapshot": {
//	    "backend": "redis",
//	    "ttl": "24h",
//	    "redis": {"addr": "localhost:6379"}
//	  },
//	  "routes": [
//	    {"when": "path == '/'", "view": "home"},
//	    {"when": "size(segments) == 2 && segments[0] == 'users'", "view": "user"},
//	    {"view": "not_found"}
//	  ]
//	}
//
// # Environment
//
// ROUTEAGENT_ADDR, ROUTEAGENT_LOG_LEVEL, ROUTEAGENT_LOG_FORMAT,
// ROUTEAGENT_SNAPSHOT_BACKEND, REDIS_ADDR, REDIS_PASS, S3_BUCKET,
// S3_ENDPOINT, AWS_REGION and friends override the matching keys. See the
// env tags on each section for the full list.
//
// # Usage
//
//	cfg, err := config.LoadFromWorkingDir()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config
