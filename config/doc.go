/*
Package config loads storeflow settings from a YAML file and the
environment.

Values are layered: Default, then the YAML file, then STOREFLOW_*
variables. Nested sections map to nested prefixes:

	store:
	  backend: sqlite              # STOREFLOW_STORE_BACKEND
	  sqlitePath: /var/lib/sf.db   # STOREFLOW_STORE_SQLITE_PATH
	  dynamodb:
	    table: records             # STOREFLOW_STORE_DYNAMODB_TABLE
	processor:
	  defaultRetries: 3            # STOREFLOW_PROCESSOR_DEFAULT_RETRIES
	  retryBackoff: 200ms          # STOREFLOW_PROCESSOR_RETRY_BACKOFF
	logging:
	  level: debug                 # STOREFLOW_LOG_LEVEL
*/
package config
