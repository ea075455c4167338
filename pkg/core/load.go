package core

// JSON mapping modes understood by every adapter.
const (
	JSONMappingAuto           = "auto"
	JSONMappingAutoIgnoreCase = "auto ignorecase"
)

// Credentials is a resolved object-storage key pair.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	// SessionToken is set for temporary credentials (assumed roles, SSO).
	SessionToken string
}

// Valid reports whether both halves of the key pair are present.
func (c Credentials) Valid() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// String never prints the secret material.
func (c Credentials) String() string {
	if c.AccessKeyID == "" {
		return "credentials(<empty>)"
	}
	return "credentials(" + c.AccessKeyID + ", secret=<redacted>)"
}

// BulkLoadRequest describes one bulk JSON load from object storage.
type BulkLoadRequest struct {
	// Table is the destination table, unquoted.
	Table string
	// Source is the object-storage prefix to read, e.g. s3://bucket/log_data.
	Source string
	// JSONMapping is "auto", "auto ignorecase" or the URI of a JSONPaths document.
	JSONMapping string
	// Region of the source bucket, optional.
	Region      string
	Credentials Credentials
}
