// Package bundle loads component schemas from a JSON schema bundle and
// exposes them as dynamic component vtables.
//
// A bundle declares enums, record types and components:
//
//	{
//	  "enums": [{"name": "demo.Color", "values": [{"name": "RED", "value": 0}]}],
//	  "types": [{"name": "demo.Vec", "fields": [{"name": "x", "id": 1, "type": "double"}]}],
//	  "components": [{
//	    "name": "demo.Health", "id": 1000,
//	    "fields": [
//	      {"name": "current", "id": 1, "type": "int32"},
//	      {"name": "tags", "id": 2, "type": "string", "container": "list"},
//	      {"name": "scores", "id": 3, "type": "int64", "container": "map", "key_type": "string"}
//	    ]
//	  }]
//	}
//
// Values of bundle components are Records keyed by field name. Scalars
// decode to their canonical Go type (int32, uint64, float64, string, []byte,
// ...), enums to uint32, nested types to Record, lists to []any, options to
// the value or nil, and maps to []Entry in wire order. Encoding accepts any
// Go number that fits the field, enum value names, and plain map[string]any
// for records.
package bundle
