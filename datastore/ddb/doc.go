/*
Package ddb persists store records to a single DynamoDB table.

Every record becomes one item. Key attributes are expanded from the
entity's index map in the registry; entities without one use
DefaultIndexMap:

	indexMap := map[string]string{
	    "PK":     "USER#{Id}",   // Becomes "USER#123"
	    "SK":     "{objectId}",  // The record's object id
	    "GSI1PK": "{Email}",     // Direct field value
	}

Templates may reference any record field plus the macros entity, objectId
and primaryKey. Besides the expanded attributes an item carries _objectId,
_entity, _primaryKey and the record's fields as a map.

Flush groups writes into BatchWriteItem calls of at most 25 requests and
resends unprocessed items with backoff. Load and Clear page through the
table with a Scan paginator and only touch items written by this package.
*/
package ddb
