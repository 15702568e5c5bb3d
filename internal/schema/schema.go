// Package schema describes field mappings applied to newly created
// indexes. System fields that act as exact-match filters are mapped as
// keyword fields so they are never tokenized; latlng is a geo-point.
package schema

// FieldType enumerates the supported mapping field types.
type FieldType string

const (
	// FieldKeyword stores the value verbatim for exact-match filtering.
	FieldKeyword FieldType = "keyword"
	// FieldGeoPoint stores a latitude/longitude pair.
	FieldGeoPoint FieldType = "geo_point"
)

// Field is a single field mapping.
type Field struct {
	Name string
	Type FieldType
}

// Mapping is an ordered set of field mappings applied at index creation.
type Mapping struct {
	Fields []Field
}

// keywordFields are the system fields present on every indexed record.
// They carry identifiers, credentials hashes, and bookkeeping values
// that must only ever match exactly.
var keywordFields = []string{
	"id",
	"key",
	"salt",
	"email",
	"groups",
	"updated",
	"password",
	"parentid",
	"creatorid",
	"classname",
	"authtoken",
	"timestamp",
	"identifier",
	"resettoken",
	"tag",
}

// Default returns the mapping applied to indexes created without an
// explicit mapping.
func Default() Mapping {
	fields := make([]Field, 0, len(keywordFields)+1)
	for _, name := range keywordFields {
		fields = append(fields, Field{Name: name, Type: FieldKeyword})
	}
	fields = append(fields, Field{Name: "latlng", Type: FieldGeoPoint})
	return Mapping{Fields: fields}
}

// Lookup returns the type mapped for the named field, or empty string
// when the field has no explicit mapping.
func (m Mapping) Lookup(name string) FieldType {
	for _, f := range m.Fields {
		if f.Name == name {
			return f.Type
		}
	}
	return ""
}
