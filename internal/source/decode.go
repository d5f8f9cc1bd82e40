package source

import (
	"focustriage/pkg/logx"

	"howett.net/plist"
)

// Payload is the normalized text of a notification.
type Payload struct {
	Title    string
	Body     string
	Subtitle string
}

// Decoder turns a record's property-list blob (binary or XML) into a Payload.
type Decoder struct {
	log logx.Logger
}

func NewDecoder(log logx.Logger) Decoder {
	if log.IsZero() {
		log = logx.Nop()
	}
	return Decoder{log: log}
}

// Decode never fails: a malformed payload yields empty fields and a warning.
// Each field prefers the top-level key and falls back to the one under "req".
func (d Decoder) Decode(data []byte) Payload {
	var root any
	if _, err := plist.Unmarshal(data, &root); err != nil {
		d.log.Warn("failed to parse plist payload", logx.Int("bytes", len(data)), logx.Err(err))
		return Payload{}
	}
	field := func(key string) string {
		if s := lookupString(root, key); s != "" {
			return s
		}
		return lookupString(root, "req", key)
	}
	return Payload{
		Title:    field("titl"),
		Body:     field("body"),
		Subtitle: field("subt"),
	}
}

func lookupString(v any, path ...string) string {
	cur := v
	for _, k := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		if cur, ok = m[k]; !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}
