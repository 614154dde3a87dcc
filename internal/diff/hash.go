package diff

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
)

// ContentHash digests the semantically relevant payload fields. The
// digest is stable across map iteration order so that identical
// payloads always hash identically.
func ContentHash(p Payload) string {
	var b strings.Builder

	for _, name := range scalarFields {
		b.WriteString(name)
		b.WriteByte('=')
		if v := p.scalar(name); v != nil {
			b.WriteString(*v)
		}
		b.WriteByte('\n')
	}

	writeDocument(&b, "structured_data", p.StructuredData)
	writeDocument(&b, "metadata", p.Metadata)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeDocument(b *strings.Builder, prefix string, doc map[string]any) {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteString(prefix)
		b.WriteByte('.')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encodeValue(doc[k]))
		b.WriteByte('\n')
	}
}

func encodeValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
