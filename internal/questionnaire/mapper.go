package questionnaire

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"vendorq/pkg/domain"
)

// FormData is a flat mapping of form field names to submitted values as
// decoded from JSON with UseNumber.
type FormData map[string]any

const listSeparator = ", "

// Map transforms form values into question records following catalog order.
// Optional fields with a blank value are omitted; required fields always
// appear. Fields not present in the catalog are ignored.
func Map(catalog Catalog, form FormData) []domain.Question {
	questions := make([]domain.Question, 0, len(catalog))
	for _, field := range catalog {
		value := form[field.Name]
		if isBlank(value) && !field.Required {
			continue
		}
		answer := formatAnswer(value)
		questions = append(questions, domain.Question{
			Section:  field.Section,
			Question: field.Question,
			Answer:   answer,
			Required: field.Required,
			Answered: !isBlank(value) && answer != "",
		})
	}
	return questions
}

func isBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case json.Number:
		f, err := v.Float64()
		return err == nil && f == 0
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int:
		return v == 0
	case int64:
		return v == 0
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

func joinStrings(values []string) string {
	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	return joinList(items)
}

func formatAnswer(value any) string {
	switch v := value.(type) {
	case []any:
		return joinList(v)
	case []string:
		return joinStrings(v)
	default:
		return formatScalar(v)
	}
}

// joinList renders list answers as comma separated text. Blank elements keep
// their slot, so [""] renders as "" and ["a", ""] as "a, ".
func joinList(values []any) string {
	parts := make([]string, len(values))
	for i, item := range values {
		parts[i] = formatScalar(item)
	}
	return strings.Join(parts, listSeparator)
}

func formatScalar(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
