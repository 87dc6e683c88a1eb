package decode

// anyMsg is a decoded google.protobuf.Any: a type URL plus its opaque
// value bytes, not yet decoded into a typed payload.
type anyMsg struct {
	TypeURL string
	Value   []byte
}

func decodeAny(b []byte) (anyMsg, error) {
	fields, err := scanWire(b)
	if err != nil {
		return anyMsg{}, err
	}
	return anyMsg{
		TypeURL: firstString(fields, 1),
		Value:   firstBytes(fields, 2),
	}, nil
}

// txRaw is cosmos.tx.v1beta1.TxRaw: the three independently-signed byte
// spans of a transaction.
type txRaw struct {
	BodyBytes     []byte
	AuthInfoBytes []byte
	Signatures    [][]byte
}

func decodeTxRaw(b []byte) (txRaw, error) {
	fields, err := scanWire(b)
	if err != nil {
		return txRaw{}, err
	}
	return txRaw{
		BodyBytes:     firstBytes(fields, 1),
		AuthInfoBytes: firstBytes(fields, 2),
		Signatures:    allBytes(fields, 3),
	}, nil
}

// txBody is cosmos.tx.v1beta1.TxBody.
type txBody struct {
	Messages []anyMsg
	Memo     string
}

func decodeTxBody(b []byte) (txBody, error) {
	fields, err := scanWire(b)
	if err != nil {
		return txBody{}, err
	}
	var out txBody
	for _, raw := range allBytes(fields, 1) {
		m, err := decodeAny(raw)
		if err != nil {
			continue
		}
		out.Messages = append(out.Messages, m)
	}
	out.Memo = firstString(fields, 2)
	return out, nil
}

// coin is cosmos.base.v1beta1.Coin.
type coin struct {
	Denom  string
	Amount string
}

func decodeCoin(b []byte) coin {
	fields, _ := scanWire(b)
	return coin{Denom: firstString(fields, 1), Amount: firstString(fields, 2)}
}

func decodeCoins(raws [][]byte) []coin {
	out := make([]coin, 0, len(raws))
	for _, r := range raws {
		out = append(out, decodeCoin(r))
	}
	return out
}

// fee is cosmos.tx.v1beta1.Fee.
type fee struct {
	Amount   []coin
	GasLimit uint64
	Payer    string
	Granter  string
}

// authInfo is cosmos.tx.v1beta1.AuthInfo, reduced to the fee: signer
// public keys are not needed downstream.
func decodeAuthInfo(b []byte) fee {
	fields, err := scanWire(b)
	if err != nil {
		return fee{}
	}
	feeBytes := firstBytes(fields, 2)
	if feeBytes == nil {
		return fee{}
	}
	feeFields, _ := scanWire(feeBytes)
	return fee{
		Amount:   decodeCoins(allBytes(feeFields, 1)),
		GasLimit: firstUint(feeFields, 2),
		Payer:    firstString(feeFields, 3),
		Granter:  firstString(feeFields, 4),
	}
}
