package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/db"
	"github.com/babylonlabs-io/staking-ledger/internal/db/model"
	"github.com/babylonlabs-io/staking-ledger/internal/observability/metrics"
	"github.com/babylonlabs-io/staking-ledger/internal/types"
	"github.com/babylonlabs-io/staking-ledger/internal/utils/poller"
	"github.com/rs/zerolog/log"
)

// ConsumeRequest records the digest of a signed request and rejects a digest
// that was recorded before. A request timestamp is accepted up to the max skew
// on either side of now, so receipts live for twice that long.
func (s *Service) ConsumeRequest(ctx context.Context, digest string, signer address.Address) error {
	now := s.nowFn()
	receipt := &model.RequestReceiptDocument{
		Digest:     digest,
		Signer:     signer.String(),
		ReceivedAt: now,
		ExpiresAt:  now.Add(2 * s.cfg.Ledger.RequestMaxSkew),
	}

	err := s.db.InsertRequestReceipt(ctx, receipt)
	if db.IsDuplicateKeyError(err) {
		log.Ctx(ctx).Warn().Str("signer", receipt.Signer).Str("digest", digest).Msg("Replayed request rejected")
		return types.NewErrorWithMsg(http.StatusUnauthorized, types.Unauthorized, "request %s was already processed", digest)
	}
	if err != nil {
		return types.NewInternalServiceError(fmt.Errorf("failed to record request: %w", err))
	}
	return nil
}

// StartReceiptPruner blocks, removing expired request receipts once per max
// skew until ctx is done.
func (s *Service) StartReceiptPruner(ctx context.Context) {
	pruner := poller.NewPoller(
		s.cfg.Ledger.RequestMaxSkew,
		metrics.RecordPollerDuration("receipt_pruning", s.PruneRequestReceipts),
	)
	pruner.Start(ctx)
}

func (s *Service) PruneRequestReceipts(ctx context.Context) error {
	deleted, err := s.db.DeleteExpiredRequestReceipts(ctx, s.nowFn())
	if err != nil {
		return fmt.Errorf("failed to prune request receipts: %w", err)
	}
	if deleted > 0 {
		log.Ctx(ctx).Debug().Int64("deleted", deleted).Msg("Pruned expired request receipts")
	}
	return nil
}

