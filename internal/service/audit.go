package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/staypay-jp/core/internal/model"
	"github.com/staypay-jp/core/internal/repository"
)

// auditEntry describes one state transition to record. Previous, New and
// Metadata are snapshotted as JSON; ActorID stays nil for system-initiated
// mutations (webhook settlements).
type auditEntry struct {
	EntityType string
	EntityID   uuid.UUID
	Action     model.AuditAction
	ActorID    *uuid.UUID
	Previous   any
	New        any
	TxHash     string
	Metadata   any
}

// appendAudit writes the entry through s, so that inside a transaction the
// audit row commits or rolls back together with the mutation it records.
func appendAudit(ctx context.Context, s repository.Store, e auditEntry) error {
	newState, err := marshalSnapshot(e.New)
	if err != nil {
		return fmt.Errorf("audit %s %s: %w", e.EntityType, e.Action, err)
	}

	entry := &model.AuditLog{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		UserID:     e.ActorID,
		NewState:   newState,
	}

	if e.Previous != nil {
		prev, err := marshalSnapshot(e.Previous)
		if err != nil {
			return fmt.Errorf("audit %s %s: %w", e.EntityType, e.Action, err)
		}
		entry.PreviousState = prev
	}
	if e.TxHash != "" {
		h := e.TxHash
		entry.TxHash = &h
	}
	if e.Metadata != nil {
		meta, err := marshalSnapshot(e.Metadata)
		if err != nil {
			return fmt.Errorf("audit %s %s: %w", e.EntityType, e.Action, err)
		}
		entry.Metadata = meta
	}

	return s.AppendAuditLog(ctx, entry)
}

func marshalSnapshot(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return datatypes.JSON(raw), nil
}
