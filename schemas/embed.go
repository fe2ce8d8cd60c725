// Package schemas holds the JSON Schemas of the documents climatewash produces.
package schemas

import _ "embed"

// ResultFile is the file name of the evaluation result schema
const ResultFile = "result.schema.json"

// Result is the JSON Schema of a downloadable evaluation result
//
//go:embed result.schema.json
var Result []byte
