package workers

import (
	"context"

	"github.com/yoockh/lingualink/internal/models"
	"github.com/yoockh/lingualink/internal/services"
)

// BridgedCalls decorates the call service so the translation bridge follows
// the call lifecycle: the bridge is opened before the call reports connected
// and torn down whenever the call ends, regardless of which surface ended it.
type BridgedCalls struct {
	services.CallService
	Bridges *BridgeWorker
}

func NewBridgedCalls(inner services.CallService, bridges *BridgeWorker) *BridgedCalls {
	return &BridgedCalls{CallService: inner, Bridges: bridges}
}

// Answer opens the bridge first, then flips the call to connected. A call
// never reports connected without a live bridge; if the transition loses a
// race the fresh bridge is torn down again.
func (b *BridgedCalls) Answer(ctx context.Context, callID string) (*models.CallSession, error) {
	cur, err := b.CallService.Get(ctx, callID)
	if err != nil {
		return nil, err
	}

	if _, err := b.Bridges.Attach(ctx, cur); err != nil {
		return nil, err
	}

	out, err := b.CallService.Answer(ctx, callID)
	if err != nil {
		b.Bridges.Detach(callID)
		return nil, err
	}
	return out, nil
}

func (b *BridgedCalls) End(ctx context.Context, callID string, outcome models.CallOutcome) (*models.CallSession, error) {
	out, err := b.CallService.End(ctx, callID, outcome)
	if err != nil {
		return nil, err
	}
	b.Bridges.Detach(callID)
	return out, nil
}
