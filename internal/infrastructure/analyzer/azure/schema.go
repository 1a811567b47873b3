package azure

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed analyze_result.schema.json
var analyzeResultSchema []byte

const analyzeResultSchemaURL = "analyze_result.schema.json"

func compileAnalyzeResultSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(analyzeResultSchemaURL, bytes.NewReader(analyzeResultSchema)); err != nil {
		return nil, fmt.Errorf("add analyze result schema: %w", err)
	}
	schema, err := compiler.Compile(analyzeResultSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile analyze result schema: %w", err)
	}
	return schema, nil
}

// decodeOperation validates the poll body against the schema before decoding it.
func decodeOperation(schema *jsonschema.Schema, body []byte) (operationResult, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return operationResult{}, fmt.Errorf("decode analyze result: %w", err)
	}
	if err := schema.Validate(raw); err != nil {
		return operationResult{}, fmt.Errorf("analyze result does not match schema: %w", err)
	}

	var out operationResult
	if err := json.Unmarshal(body, &out); err != nil {
		return operationResult{}, fmt.Errorf("decode analyze result: %w", err)
	}
	return out, nil
}

type operationResult struct {
	Status        string `json:"status"`
	AnalyzeResult *struct {
		ModelID string            `json:"modelId"`
		Content string            `json:"content"`
		Pages   []json.RawMessage `json:"pages"`
	} `json:"analyzeResult"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
