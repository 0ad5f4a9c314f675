// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Each setting is taken from its flag, then the environment, then a default.
A .env file (see -env-file) is loaded into the environment first; it never
overrides variables that are already set.

# Flags and Environment

	-role           ROLE                teacher | student (default: teacher)
	-listen         LISTEN_ADDR         vote listen address (default: :3319)
	-peer           PEER_ADDR           teacher address, required for students
	-p              PORT                HTTP API port (default: 3318)
	-t              DATABASE_TYPE       sqlite | postgres | memory (default: sqlite)
	-d              DATABASE_URL        default file:voting.db for sqlite
	-admin-key      ADMIN_KEY           generated at startup when empty
	-candidates     CANDIDATES          initial list, comma separated
	-write-timeout  WRITE_TIMEOUT       default 10s
	-read-timeout   READ_TIMEOUT        default 0 (none)
	-reconnect      RECONNECT_ATTEMPTS  default 1
	-log-level      LOG_LEVEL           default info

Addresses may be host:port, tcp://host:port or ws://host:port/path.
*/
package cliparse
