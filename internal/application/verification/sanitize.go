package verification

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/pkg/validate"
)

// Sanitize coerces every field of schema to a trimmed string and checks it.
// Fields outside the schema are dropped. Empty optional fields are kept as "".
func Sanitize(schema domain.FormSchema, raw map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(schema.Fields))
	for _, f := range schema.Fields {
		v := strings.TrimSpace(coerce(raw[f.Name]))
		if v == "" {
			if f.Required {
				return nil, &domain.FieldError{Field: f.Name, Reason: "is required"}
			}
			out[f.Name] = ""
			continue
		}
		if err := checkField(f, v); err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func checkField(f domain.FormField, v string) error {
	switch f.Type {
	case domain.FieldEmail:
		if validate.Var(v, "email") != nil {
			return &domain.FieldError{Field: f.Name, Reason: "must be a valid email address"}
		}
	case domain.FieldDate:
		if validate.Var(v, "datetime=2006-01-02") != nil {
			return &domain.FieldError{Field: f.Name, Reason: "must be a date in YYYY-MM-DD format"}
		}
	case domain.FieldSelect:
		if len(f.Options) == 0 {
			return nil
		}
		for _, o := range f.Options {
			if o.Value == v {
				return nil
			}
		}
		return &domain.FieldError{Field: f.Name, Reason: "is not one of the allowed options"}
	}
	return nil
}

func coerce(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
