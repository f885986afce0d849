/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package logger

// Component name constants for standardized logging
const (
	ComponentStack     = "Stack"
	ComponentProcessor = "Processor"
	ComponentFacade    = "Facade"
	ComponentStore     = "Store"
	ComponentBridge    = "Bridge"

	// Persisters
	ComponentSQLite   = "SQLite"
	ComponentDynamoDB = "DynamoDB"

	ComponentCLI = "CLI"
)
