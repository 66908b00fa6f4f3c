package taxonomy

import (
	"encoding/xml"
	"fmt"
	"strings"

	"pagetransform/internal/diag"

	"github.com/gofrs/uuid"
)

// ParseError reports a taxonomy field schema without the wanted property.
type ParseError struct {
	Property string
	Reason   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("taxonomy schema: %s: %s", e.Property, e.Reason)
}

func (e *ParseError) DiagCode() diag.Code { return diag.CodeParse }

// Property names used in taxonomy field customizations.
const (
	propTermSetID = "TermSetId"
	propSspID     = "SspId"
)

type fieldSchema struct {
	XMLName    xml.Name        `xml:"Field"`
	Properties []fieldProperty `xml:"Customization>ArrayOfProperty>Property"`
}

type fieldProperty struct {
	Name  string `xml:"Name"`
	Value string `xml:"Value"`
}

// ExtractTermSetOrGroupID returns the term set id (or, with wantGroupID,
// the term store group id) from a taxonomy field schema.
func ExtractTermSetOrGroupID(schemaXML string, wantGroupID bool) (string, error) {
	name := propTermSetID
	if wantGroupID {
		name = propSspID
	}
	return extractGUIDProperty(schemaXML, name)
}

func extractGUIDProperty(schemaXML, name string) (string, error) {
	if strings.TrimSpace(schemaXML) == "" {
		return "", &ParseError{Property: name, Reason: "empty schema"}
	}
	var fs fieldSchema
	if err := xml.Unmarshal([]byte(schemaXML), &fs); err != nil {
		return "", &ParseError{Property: name, Reason: err.Error()}
	}
	for _, p := range fs.Properties {
		if !strings.EqualFold(strings.TrimSpace(p.Name), name) {
			continue
		}
		id, err := uuid.FromString(strings.Trim(strings.TrimSpace(p.Value), "{}"))
		if err != nil {
			return "", &ParseError{Property: name, Reason: fmt.Sprintf("value %q is not a guid", p.Value)}
		}
		return id.String(), nil
	}
	return "", &ParseError{Property: name, Reason: "not present"}
}
