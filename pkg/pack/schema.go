// Copyright (C) 2017  O.S. Systems Software LTDA.
//
// SPDX-License-Identifier: GPL-2.0

package pack

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// metadataSchema is the contract the server holds package metadata to.
const metadataSchema = `{
    "type": "object",
    "properties": {
        "product": {
            "type": "string",
            "pattern": "^[a-f0-9]{64}$"
        },
        "version": {
            "type": "string",
            "minLength": 1
        },
        "supported-hardware": {
            "anyOf": [
                {"const": "any"},
                {
                    "type": "array",
                    "minItems": 1,
                    "items": {"type": "string", "minLength": 1}
                }
            ]
        },
        "objects": {
            "type": "array",
            "minItems": 1,
            "items": {
                "type": "array",
                "minItems": 1,
                "items": {
                    "type": "object",
                    "properties": {
                        "filename": {"type": "string", "minLength": 1},
                        "mode": {"type": "string", "minLength": 1},
                        "sha256sum": {"type": "string", "pattern": "^[a-f0-9]{64}$"},
                        "size": {"type": "integer", "minimum": 0}
                    },
                    "required": ["filename", "mode", "sha256sum", "size"]
                }
            }
        }
    },
    "required": ["product", "version", "supported-hardware", "objects"],
    "additionalProperties": false
}`

//nolint:gochecknoglobals // compiled once, read-only afterwards.
var compiledMetadataSchema = jsonschema.MustCompileString("metadata.json", metadataSchema)

// ValidateMetadata checks a metadata document against the schema.  The
// document is round-tripped through JSON so that validation sees exactly
// what the server will.
func ValidateMetadata(metadata map[string]interface{}) error {
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		return err
	}
	var instance interface{}
	decoder := json.NewDecoder(bytes.NewReader(jsonBytes))
	decoder.UseNumber()
	if err := decoder.Decode(&instance); err != nil {
		return err
	}
	if err := compiledMetadataSchema.Validate(instance); err != nil {
		return fmt.Errorf("invalid package metadata: %w", err)
	}
	return nil
}
