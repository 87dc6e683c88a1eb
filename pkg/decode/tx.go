package decode

import (
	"encoding/hex"

	"go.uber.org/zap"
)

// DecodedTx is the normalized shape handed back for one transaction's
// bytes: { "@type": "/cosmos.tx.v1beta1.Tx", body, auth_info, signatures }.
type DecodedTx struct {
	TypeURL    string           `json:"@type"`
	Body       DecodedTxBody    `json:"body"`
	AuthInfo   DecodedAuthInfo  `json:"auth_info"`
	Signatures []string         `json:"signatures"`
}

type DecodedTxBody struct {
	Messages []DecodedMessage `json:"messages"`
	Memo     string           `json:"memo"`
}

type DecodedAuthInfo struct {
	Fee DecodedFee `json:"fee"`
}

type DecodedFee struct {
	Amount   []map[string]any `json:"amount"`
	GasLimit uint64            `json:"gas_limit"`
	Payer    string            `json:"payer,omitempty"`
	Granter  string            `json:"granter,omitempty"`
}

// decodeTxBytes decodes raw as TxRaw (body_bytes/auth_info_bytes/
// signatures). TxRaw's three fields share field numbers 1/2/3 with
// Tx's body/auth_info/signatures and the wire encoding of an embedded
// submessage field is byte-identical to a bytes field carrying the
// same content, so this one scan also covers a whole encoded Tx and no
// second, Tx-shaped pass is made. If the scan fails or the body bytes
// come back empty, an empty placeholder Tx is returned and a warning
// is logged.
func decodeTxBytes(logger *zap.Logger, reg *Registry, raw []byte) DecodedTx {
	tr, err := decodeTxRaw(raw)
	if err != nil || len(tr.BodyBytes) == 0 {
		logger.Warn("tx decode produced no body, emitting empty placeholder",
			zap.String("raw_prefix_hex", hexPrefix(raw, 8)))
		return DecodedTx{TypeURL: "/cosmos.tx.v1beta1.Tx"}
	}
	return assembleDecodedTx(logger, reg, tr)
}

func assembleDecodedTx(logger *zap.Logger, reg *Registry, tr txRaw) DecodedTx {
	body, _ := decodeTxBody(tr.BodyBytes)
	f := decodeAuthInfo(tr.AuthInfoBytes)

	out := DecodedTx{
		TypeURL: "/cosmos.tx.v1beta1.Tx",
		Body: DecodedTxBody{
			Memo: body.Memo,
		},
		AuthInfo: DecodedAuthInfo{
			Fee: DecodedFee{
				GasLimit: f.GasLimit,
				Payer:    f.Payer,
				Granter:  f.Granter,
			},
		},
	}
	for _, c := range f.Amount {
		out.AuthInfo.Fee.Amount = append(out.AuthInfo.Fee.Amount, map[string]any{"denom": c.Denom, "amount": c.Amount})
	}
	for _, m := range body.Messages {
		out.Body.Messages = append(out.Body.Messages, decodeMessage(logger, reg, m))
	}
	for _, sig := range tr.Signatures {
		out.Signatures = append(out.Signatures, hex.EncodeToString(sig))
	}
	return out
}
