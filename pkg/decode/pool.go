package decode

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
)

// Pool is the parallel decoder pool: a shared bounded worker pool
// fronting an immutable protobuf type registry loaded once at
// start-up. Callers hand it a block's worth of base64 tx strings and
// get back normalized DecodedTx values in the same order.
type Pool struct {
	pool     pond.Pool
	registry *Registry
	logger   *zap.Logger
}

// New builds a Pool with size workers sharing registry.
func New(size int, registry *Registry, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = 4
	}
	return &Pool{
		pool:     pond.NewPool(size),
		registry: registry,
		logger:   logger,
	}
}

// Result pairs one decoded transaction with its raw hash, computed
// over the base64-decoded tx bytes before decoding.
type Result struct {
	TxHash string
	Tx     DecodedTx
}

// DecodeBlock decodes every base64 tx string in txs, fanning out
// across the pool's workers and preserving input order on return.
func (p *Pool) DecodeBlock(ctx context.Context, txs []string) ([]Result, error) {
	out := make([]Result, len(txs))
	group := p.pool.NewGroupContext(ctx)

	for i, b64 := range txs {
		i, b64 := i, b64
		group.Submit(func() {
			if ctx.Err() != nil {
				return
			}
			out[i] = p.decodeOne(b64)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		return nil, err
	}
	return out, ctx.Err()
}

func (p *Pool) decodeOne(b64 string) Result {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		p.logger.Warn("tx base64 decode failed", zap.Error(err))
		return Result{TxHash: "", Tx: DecodedTx{TypeURL: "/cosmos.tx.v1beta1.Tx"}}
	}
	sum := sha256.Sum256(raw)
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))
	tx := decodeTxBytes(p.logger, p.registry, raw)
	return Result{TxHash: hash, Tx: tx}
}

// Stop releases the pool's workers. Call once at process shutdown.
func (p *Pool) Stop() {
	p.pool.StopAndWait()
}
