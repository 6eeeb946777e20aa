package server

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/segmentio/encoding/json"

	"github.com/personamatch/engine/pkg/types"
)

const schemaBaseURL = "https://personamatch.dev/schemas/"

// vectorDefs is shared by every method schema that carries a personality vector.
const vectorDefs = `"$defs": {
	"record": {
		"type": "object",
		"required": ["dimension", "score"],
		"properties": {
			"dimension": {"type": "string", "minLength": 1},
			"score": {"type": "number"}
		}
	},
	"vector": {"type": "array", "items": {"$ref": "#/$defs/record"}},
	"userID": {"type": "string", "minLength": 1, "maxLength": 128}
}`

var methodSchemas = map[string]string{
	"matching_score": `{
		"type": "object",
		"required": ["user_a", "user_b"],
		"properties": {
			"user_a": {"$ref": "#/$defs/vector"},
			"user_b": {"$ref": "#/$defs/vector"},
			"user_a_id": {"$ref": "#/$defs/userID"},
			"user_b_id": {"$ref": "#/$defs/userID"},
			"use_weights": {"type": "boolean"},
			"remove_bias": {"type": "boolean"}
		},
		%s
	}`,
	"rank_candidates": `{
		"type": "object",
		"properties": {
			"current_id": {"$ref": "#/$defs/userID"},
			"current": {"$ref": "#/$defs/vector"},
			"candidates": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["id", "data"],
					"properties": {
						"id": {"type": "string"},
						"data": {"$ref": "#/$defs/vector"}
					}
				}
			}
		},
		"oneOf": [
			{"required": ["current_id"], "not": {"required": ["current"]}},
			{"required": ["current", "candidates"], "not": {"required": ["current_id"]}}
		],
		%s
	}`,
	"analyze_compatibility": `{
		"type": "object",
		"required": ["user_a", "user_b"],
		"properties": {
			"user_a": {"$ref": "#/$defs/vector"},
			"user_b": {"$ref": "#/$defs/vector"},
			"user_a_id": {"$ref": "#/$defs/userID"},
			"user_b_id": {"$ref": "#/$defs/userID"},
			"locale": {"enum": ["en", "ko"]}
		},
		%s
	}`,
	"put_profile": `{
		"type": "object",
		"required": ["user_id", "data"],
		"properties": {
			"user_id": {"$ref": "#/$defs/userID"},
			"data": {"$ref": "#/$defs/vector", "minItems": 1}
		},
		%s
	}`,
	"get_profile": `{
		"type": "object",
		"required": ["user_id"],
		"properties": {"user_id": {"$ref": "#/$defs/userID"}},
		%s
	}`,
	"match_history": `{
		"type": "object",
		"required": ["user_id"],
		"properties": {
			"user_id": {"$ref": "#/$defs/userID"},
			"window": {"type": "integer", "minimum": 1, "maximum": 1000}
		},
		%s
	}`,
	"generate_advice": `{
		"type": "object",
		"required": ["user_a", "user_b"],
		"properties": {
			"user_a": {"$ref": "#/$defs/vector", "minItems": 1},
			"user_b": {"$ref": "#/$defs/vector", "minItems": 1},
			"names": {
				"type": "object",
				"properties": {"a": {"type": "string"}, "b": {"type": "string"}}
			},
			"language": {"type": "string"}
		},
		%s
	}`,
}

// paramValidator checks method params against compiled JSON Schemas.
type paramValidator struct {
	schemas map[string]*jsonschema.Schema
}

func newParamValidator() (*paramValidator, error) {
	c := jsonschema.NewCompiler()
	for method, tmpl := range methodSchemas {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(fmt.Sprintf(tmpl, vectorDefs)))
		if err != nil {
			return nil, goerr.Wrap(err, "parse params schema", goerr.V("method", method))
		}
		if err := c.AddResource(schemaBaseURL+method+".json", doc); err != nil {
			return nil, goerr.Wrap(err, "add params schema", goerr.V("method", method))
		}
	}

	v := &paramValidator{schemas: make(map[string]*jsonschema.Schema, len(methodSchemas))}
	for method := range methodSchemas {
		sch, err := c.Compile(schemaBaseURL + method + ".json")
		if err != nil {
			return nil, goerr.Wrap(err, "compile params schema", goerr.V("method", method))
		}
		v.schemas[method] = sch
	}
	return v, nil
}

// decode validates params against method's schema and unmarshals them into dst.
func (v *paramValidator) decode(method string, params json.RawMessage, dst any) *types.RPCError {
	raw := bytes.TrimSpace(params)
	if len(raw) == 0 {
		raw = []byte("null")
	}

	if sch, ok := v.schemas[method]; ok {
		inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return invalidParams(method, err)
		}
		if err := sch.Validate(inst); err != nil {
			return invalidParams(method, err)
		}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return invalidParams(method, err)
	}
	return nil
}

func invalidParams(method string, err error) *types.RPCError {
	return types.NewRPCError(
		types.ErrInvalidVector,
		fmt.Sprintf("invalid %s params", method),
		types.ErrTypeInvalidVector,
		false,
		err.Error(),
	)
}
