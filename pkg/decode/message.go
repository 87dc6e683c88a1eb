package decode

import (
	"encoding/hex"

	"github.com/cosmos-network/cosmosingest/pkg/decode/knowntypes"
	"go.uber.org/zap"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// DecodedMessage carries the decoded payload for one body.messages[i]
// entry. "@type" is always present and exact; Value holds the rest.
type DecodedMessage struct {
	TypeURL string
	Value   map[string]any
}

// decodeMessage runs the three-tier dispatch described for the
// decoder pool: a fixed fast-path table, then the dynamic registry,
// then an opaque base64 placeholder.
func decodeMessage(logger *zap.Logger, reg *Registry, m anyMsg) DecodedMessage {
	if dec, ok := knowntypes.Dispatch[m.TypeURL]; ok {
		if v, err := dec(m.Value); err == nil {
			return DecodedMessage{TypeURL: m.TypeURL, Value: v}
		}
	}

	if reg != nil {
		fqName := protoreflect.FullName(trimLeadingSlash(m.TypeURL))
		if v, found, err := reg.decodeDynamic(fqName, m.Value); found {
			if err == nil {
				return DecodedMessage{TypeURL: m.TypeURL, Value: v}
			}
			logger.Warn("dynamic decode failed, falling back to opaque",
				zap.String("type_url", m.TypeURL), zap.Error(err))
		}
	}

	logger.Warn("no decoder for type, emitting opaque placeholder",
		zap.String("type_url", m.TypeURL),
		zap.String("value_prefix_hex", hexPrefix(m.Value, 8)))

	return DecodedMessage{
		TypeURL: m.TypeURL,
		Value:   map[string]any{"value_b64": bytesToBase64(m.Value)},
	}
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}
	return s
}

func hexPrefix(b []byte, n int) string {
	if len(b) > n {
		b = b[:n]
	}
	return hex.EncodeToString(b)
}
