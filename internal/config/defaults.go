package config

// Default target values.
const (
	DefaultTargetType     = "redshift"
	DefaultRedshiftPort   = 5439
	DefaultRedshiftSchema = "public"
	DefaultDuckDBSchema   = "main"
)

// DefaultSchemaForType returns the default schema for a target type.
func DefaultSchemaForType(targetType string) string {
	if targetType == "redshift" {
		return DefaultRedshiftSchema
	}
	return DefaultDuckDBSchema
}

// ApplyTargetDefaults applies default values to a TargetConfig based on the target type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	if t.Type == "" {
		t.Type = DefaultTargetType
	}
	if t.Schema == "" {
		t.Schema = DefaultSchemaForType(t.Type)
	}
	if t.Type == "redshift" && t.Port == 0 {
		t.Port = DefaultRedshiftPort
	}
}
