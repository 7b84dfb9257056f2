package local

import (
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/wippyai/worker-sdk/native"
)

// Schema objects use the protobuf wire format: one tag per appended value,
// in append order. Nested objects are length-delimited payloads.

func (r *Runtime) serialize(p native.Ptr) []byte {
	return r.appendObject(nil, p)
}

func (r *Runtime) appendObject(b []byte, p native.Ptr) []byte {
	o := r.object(p)
	for i := range o.values {
		v := &o.values[i]
		num := protowire.Number(v.id)
		switch v.wt {
		case native.WireVarint:
			b = protowire.AppendTag(b, num, protowire.VarintType)
			b = protowire.AppendVarint(b, v.num)
		case native.WireFixed32:
			b = protowire.AppendTag(b, num, protowire.Fixed32Type)
			b = protowire.AppendFixed32(b, uint32(v.num))
		case native.WireFixed64:
			b = protowire.AppendTag(b, num, protowire.Fixed64Type)
			b = protowire.AppendFixed64(b, v.num)
		case native.WireBytes:
			b = protowire.AppendTag(b, num, protowire.BytesType)
			if v.child != 0 {
				b = protowire.AppendBytes(b, r.serialize(v.child))
			} else {
				b = protowire.AppendBytes(b, v.raw)
			}
		}
	}
	return b
}

// merge appends the values encoded in data to p. On malformed input the
// values decoded before the error are kept and the error is returned as a
// native error string.
func (r *Runtime) merge(p native.Ptr, data []byte) string {
	o := r.object(p)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n).Error()
		}
		data = data[n:]

		v := value{id: native.FieldID(num)}
		switch typ {
		case protowire.VarintType:
			x, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return protowire.ParseError(m).Error()
			}
			v.wt, v.num, n = native.WireVarint, x, m
		case protowire.Fixed32Type:
			x, m := protowire.ConsumeFixed32(data)
			if m < 0 {
				return protowire.ParseError(m).Error()
			}
			v.wt, v.num, n = native.WireFixed32, uint64(x), m
		case protowire.Fixed64Type:
			x, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return protowire.ParseError(m).Error()
			}
			v.wt, v.num, n = native.WireFixed64, x, m
		case protowire.BytesType:
			x, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return protowire.ParseError(m).Error()
			}
			v.wt, n = native.WireBytes, m
			v.raw = append([]byte(nil), x...)
		default:
			return "unsupported wire type " + typeName(typ)
		}
		data = data[n:]
		o.append(v)
	}
	return ""
}

func typeName(t protowire.Type) string {
	switch t {
	case protowire.StartGroupType:
		return "start-group"
	case protowire.EndGroupType:
		return "end-group"
	default:
		return "unknown"
	}
}
