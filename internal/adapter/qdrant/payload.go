package qdrant

import (
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

func toPayload(id string, m map[string]any) (map[string]*qdrant.Value, error) {
	payload, err := qdrant.TryValueMap(m)
	if err != nil {
		return nil, fmt.Errorf("convert payload of point %s: %w", id, err)
	}
	return payload, nil
}

func fromValueMap(m map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = fromValue(v)
	}
	return out
}

func fromValue(v *qdrant.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return k.StringValue
	case *qdrant.Value_BoolValue:
		return k.BoolValue
	case *qdrant.Value_IntegerValue:
		return k.IntegerValue
	case *qdrant.Value_DoubleValue:
		return k.DoubleValue
	case *qdrant.Value_ListValue:
		vals := k.ListValue.GetValues()
		out := make([]any, len(vals))
		for i, e := range vals {
			out[i] = fromValue(e)
		}
		return out
	case *qdrant.Value_StructValue:
		return fromValueMap(k.StructValue.GetFields())
	default:
		return nil
	}
}
