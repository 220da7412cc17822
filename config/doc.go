// Package config loads persistent-ws client settings from YAML.
//
// Values may reference environment variables as ${VAR}; they are expanded
// before parsing. Durations use Go syntax ("10s", "250ms").
//
//	address: wss://stream.example.com/v1
//	wait_interval: 10s
//	max_wait_interval: 2m
//	transport:
//	  handshake_timeout: 10s
//	  ping_interval: 30s
//	  ping_timeout: 60s
//	  headers:
//	    Authorization: Bearer ${STREAM_TOKEN}
package config
