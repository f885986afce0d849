/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/storeflow/storagemodels"
)

// Macros every template may reference besides the record's own fields.
const (
	macroEntity     = "entity"
	macroObjectID   = "objectId"
	macroPrimaryKey = "primaryKey"
)

// DefaultIndexMap is used for entities registered without key templates.
var DefaultIndexMap = map[string]string{
	"PK": "{" + macroEntity + "}",
	"SK": "{" + macroObjectID + "}",
}

var macroPattern = regexp.MustCompile(`{([^}]+)}`)

// expandMacros fills every template in indexMap with values taken from
// keysInput. A macro naming a value that is missing or cannot be rendered
// as text is an error.
func expandMacros(indexMap map[string]string, keysInput any) (map[string]string, error) {
	av, err := attributevalue.MarshalMap(keysInput)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keysInput: %w", err)
	}

	res := make(map[string]string, len(indexMap))
	for attr, template := range indexMap {
		var missing []string
		expanded := macroPattern.ReplaceAllStringFunc(template, func(macro string) string {
			key := strings.Trim(macro, "{}")
			s, ok := macroText(av[key])
			if !ok {
				missing = append(missing, key)
			}
			return s
		})
		if len(missing) > 0 {
			return nil, fmt.Errorf("template %s=%q: no value for %s", attr, template, strings.Join(missing, ", "))
		}
		res[attr] = expanded
	}
	return res, nil
}

func macroText(val types.AttributeValue) (string, bool) {
	switch tv := val.(type) {
	case *types.AttributeValueMemberS:
		return tv.Value, true
	case *types.AttributeValueMemberN:
		return tv.Value, true
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%v", tv.Value), true
	}
	// NULL, binary, sets, lists and maps do not render into a key
	return "", false
}

// macroInput is the value map templates are expanded against.
func macroInput(r *storagemodels.Record) map[string]any {
	in := r.RecordFields()
	in[macroEntity] = r.EntityName()
	in[macroObjectID] = r.ObjectID()
	in[macroPrimaryKey] = r.PrimaryKey()
	return in
}

// keyOf builds the DynamoDB key of r from the key attributes of indexMap.
func keyOf(indexMap map[string]string, keyAttrs []string, r *storagemodels.Record) (map[string]types.AttributeValue, map[string]string, error) {
	expanded, err := expandMacros(indexMap, macroInput(r))
	if err != nil {
		return nil, nil, fmt.Errorf("expand keys of %s: %w", r, err)
	}
	key := make(map[string]types.AttributeValue, len(keyAttrs))
	for _, attr := range keyAttrs {
		v, ok := expanded[attr]
		if !ok || v == "" {
			return nil, nil, fmt.Errorf("expanded index map of %s missing valid %s", r.EntityName(), attr)
		}
		key[attr] = &types.AttributeValueMemberS{Value: v}
	}
	return key, expanded, nil
}

// keyString renders a key for duplicate detection within one batch.
func keyString(key map[string]types.AttributeValue) string {
	var b strings.Builder
	for _, attr := range slices.Sorted(maps.Keys(key)) {
		s, _ := macroText(key[attr])
		b.WriteString(attr)
		b.WriteByte('=')
		b.WriteString(s)
		b.WriteByte(0)
	}
	return b.String()
}
