package redshift

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapetl/pkg/core"
)

// copyStatement renders the COPY statement for a bulk JSON load.
//
// COPY is a utility statement and cannot take bind parameters, so every
// caller-supplied value goes through quoteLiteral or QuoteIdentifier here
// and nowhere else.
func (a *Adapter) copyStatement(req core.BulkLoadRequest) (string, error) {
	if err := validateRequest(req); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "COPY %s FROM %s", a.QuoteIdentifier(req.Table), quoteLiteral(req.Source))
	fmt.Fprintf(&b, " ACCESS_KEY_ID %s SECRET_ACCESS_KEY %s",
		quoteLiteral(req.Credentials.AccessKeyID), quoteLiteral(req.Credentials.SecretAccessKey))
	if req.Credentials.SessionToken != "" {
		fmt.Fprintf(&b, " SESSION_TOKEN %s", quoteLiteral(req.Credentials.SessionToken))
	}
	if req.Region != "" {
		fmt.Fprintf(&b, " REGION %s", quoteLiteral(req.Region))
	}
	fmt.Fprintf(&b, " FORMAT AS JSON %s", quoteLiteral(req.JSONMapping))

	return b.String(), nil
}

func validateRequest(req core.BulkLoadRequest) error {
	switch {
	case req.Table == "":
		return fmt.Errorf("bulk load: table is required")
	case req.Source == "":
		return fmt.Errorf("bulk load: source is required")
	case !req.Credentials.Valid():
		return fmt.Errorf("bulk load: access key id and secret access key are required")
	}
	return validateMapping(req.JSONMapping)
}

func validateMapping(mapping string) error {
	switch {
	case mapping == core.JSONMappingAuto, mapping == core.JSONMappingAutoIgnoreCase:
		return nil
	case strings.HasPrefix(mapping, "s3://"):
		return nil
	case mapping == "":
		return fmt.Errorf("bulk load: json mapping is required")
	default:
		return fmt.Errorf("bulk load: json mapping %q must be %q, %q or an s3:// JSONPaths file",
			mapping, core.JSONMappingAuto, core.JSONMappingAutoIgnoreCase)
	}
}

// quoteLiteral renders a string constant. Redshift treats backslash as an
// escape character inside literals, so it is doubled along with quotes.
func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `''`)
	return "'" + s + "'"
}
