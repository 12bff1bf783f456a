package api

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const defs = `
	"$defs": {
		"id": {"type": "string", "minLength": 1},
		"ids": {"type": "array", "items": {"$ref": "#/$defs/id"}},
		"record": {
			"type": "object",
			"required": ["id"],
			"properties": {"id": {"type": "string"}}
		},
		"records": {"type": "array", "items": {"$ref": "#/$defs/record"}},
		"filter": {
			"type": "object",
			"required": ["bitArray", "size", "hashCount"],
			"properties": {
				"bitArray": {
					"type": "array",
					"items": {"type": "integer", "minimum": 0, "maximum": 255}
				},
				"size": {"type": "integer", "minimum": 1},
				"hashCount": {"type": "integer", "minimum": 1}
			}
		},
		"change": {
			"type": "object",
			"required": ["questionId", "changeType"],
			"properties": {
				"questionId": {"$ref": "#/$defs/id"},
				"changeType": {"enum": ["add", "remove", "update"]},
				"newQuestionId": {"type": "string"},
				"description": {"type": "string"}
			}
		},
		"modRef": {
			"type": "object",
			"required": ["id"],
			"properties": {
				"id": {"$ref": "#/$defs/id"},
				"questionId": {"type": "string"}
			}
		}
	}`

var (
	createFilterSchema = mustCompile("create-filter.json", `{
	"type": "object",
	"required": ["siteId", "modifiedIds"],
	"properties": {
		"siteId": {"$ref": "#/$defs/id"},
		"modifiedIds": {"$ref": "#/$defs/ids"}
	},`+defs+`
}`)

	filterRecordsSchema = mustCompile("filter-records.json", `{
	"type": "object",
	"required": ["records", "filter"],
	"properties": {
		"siteId": {"type": "string"},
		"records": {"$ref": "#/$defs/records"},
		"filter": {"$ref": "#/$defs/filter"}
	},`+defs+`
}`)

	bloomJoinSchema = mustCompile("bloom-join.json", `{
	"type": "object",
	"required": ["masterRecords", "siteRecords", "modifiedIds"],
	"properties": {
		"masterRecords": {"$ref": "#/$defs/records"},
		"siteRecords": {"$ref": "#/$defs/records"},
		"modifiedIds": {"$ref": "#/$defs/ids"}
	},`+defs+`
}`)

	distributeSchema = mustCompile("distribute.json", `{
	"type": "object",
	"required": ["examId", "collegeIds"],
	"properties": {
		"examId": {"$ref": "#/$defs/id"},
		"collegeIds": {"$ref": "#/$defs/ids"}
	},`+defs+`
}`)

	modifySchema = mustCompile("modify.json", `{
	"type": "object",
	"required": ["examId", "modifications"],
	"properties": {
		"examId": {"$ref": "#/$defs/id"},
		"modifications": {
			"type": "array",
			"minItems": 1,
			"items": {"$ref": "#/$defs/change"}
		}
	},`+defs+`
}`)

	syncSchema = mustCompile("sync.json", `{
	"type": "object",
	"required": ["collegeId", "collegeModifications"],
	"properties": {
		"collegeId": {"$ref": "#/$defs/id"},
		"collegeModifications": {
			"type": "array",
			"items": {"$ref": "#/$defs/modRef"}
		}
	},`+defs+`
}`)

	ackSchema = mustCompile("ack.json", `{
	"type": "object",
	"required": ["collegeId", "ids"],
	"properties": {
		"collegeId": {"$ref": "#/$defs/id"},
		"ids": {"$ref": "#/$defs/ids"}
	},`+defs+`
}`)
)

func mustCompile(name, schema string) *jsonschema.Schema {
	sch, err := jsonschema.CompileString(name, schema)
	if err != nil {
		panic(fmt.Sprintf("BUG: compile %s: %v", name, err))
	}
	return sch
}

// decodeValid validates data against sch and decodes it into v.
func decodeValid(sch *jsonschema.Schema, data []byte, v any) error {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse request: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("validate request: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
