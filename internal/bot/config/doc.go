// Package config loads runtime configuration for the profile bot.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Optional env file (-e/-env-file, default ".env"), loaded with godotenv
//     without overriding variables already present in the environment,
//     followed by the environment itself.
//  4. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-w string   work directory (scratch trees and per-model output)
//	-t string   printer template directory
//	-db string  catalog store path
//	-p int      number of trending pages to scan
//	-d int      delay between variant uploads (seconds)
//	-dry-run    stop after repackaging
//
// # Environment
//
//	CREALITY_ACCOUNT, CREALITY_PASSWORD   login
//	CREALITY_CLIENT_ID, CREALITY_USER_AGENT, CREALITY_DUID
//	PROFILEBOT_*                          see envBindings
//
// # JSON schema
//
// Durations accept "2s" style strings or integer nanoseconds:
//
//	{
//	  "work_dir": "./work",
//	  "upload_delay": "2s",
//	  "catalog_driver": "sqlite"
//	}
package config
