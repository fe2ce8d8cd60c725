package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/climatewash/internal/types"
)

const parseSnippetLength = 200

// ParseFindings decodes a model response into findings.
// Fields are decoded leniently: numeric strings become integers and floats are truncated.
// List entries that are not JSON objects are skipped. Fields that cannot be decoded keep their zero value.
func ParseFindings(text string, logger logrus.FieldLogger) types.RawFindings {
	cleaned := CleanJSONBlock(text)
	if strings.TrimSpace(cleaned) == "" {
		return types.ErrorFindings(ErrCodeEmpty, "model returned an empty response")
	}

	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return types.ErrorFindings(ErrCodeParse, fmt.Sprintf("%v: %s", err, types.TruncateRunes(cleaned, parseSnippetLength)))
	}

	if declared, ok := doc["error"]; ok && declared != nil {
		details, _ := doc["details"].(string)
		return types.ErrorFindings(fmt.Sprint(declared), details)
	}

	var findings types.RawFindings
	findings.Violations = decodeList[types.Violation](doc["violations"], "violations", logger)
	findings.Recommendations = decodeList[types.Recommendation](doc["recommendations"], "recommendations", logger)
	if summary, ok := doc["summary"]; ok && summary != nil {
		findings.Summary = fmt.Sprint(summary)
	}
	return findings
}

func decodeList[T any](raw interface{}, field string, logger logrus.FieldLogger) []T {
	out := []T{}
	items, ok := raw.([]interface{})
	if !ok {
		if raw != nil {
			logger.WithField("field", field).Warn("ignoring non-list field in model response")
		}
		return out
	}

	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			logger.WithFields(logrus.Fields{"field": field, "index": i}).Warn("skipping non-object entry in model response")
			continue
		}

		var decoded T
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook:       lenientInt,
			WeaklyTypedInput: true,
			Result:           &decoded,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to build decoder")
			continue
		}
		if err := decoder.Decode(obj); err != nil {
			logger.WithFields(logrus.Fields{"field": field, "index": i}).WithError(err).Warn("defaulting malformed fields in model response")
		}
		out = append(out, decoded)
	}
	return out
}

// lenientInt converts values bound for int fields: numeric strings are parsed, floats are
// truncated and clamped to the int range, anything else becomes 0.
func lenientInt(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to.Kind() != reflect.Int {
		return data, nil
	}
	switch v := data.(type) {
	case int, int64, int32, bool:
		return v, nil
	case float64:
		return clampFloat(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, nil
		}
		return clampFloat(f), nil
	default:
		return 0, nil
	}
}

func clampFloat(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt
	case f <= math.MinInt64:
		return math.MinInt
	}
	return int(f)
}
