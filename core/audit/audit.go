// Package audit keeps a log of the changes made to payers, payments and settings.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/profpay/profpay/core"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLogin  Action = "login"
)

// entity types
const (
	EntityPayer           = "payer"
	EntityPayment         = "payment"
	EntityFaculty         = "faculty"
	EntityGroup           = "group"
	EntityPaymentSettings = "payment_settings"
	EntityBudgetSettings  = "budget_settings"
	EntityUser            = "user"
)

type (
	Entry struct {
		ID         int         `json:"id" db:"id"`
		UserID     null.Int    `json:"user_id" db:"user_id"`
		Action     Action      `json:"action" db:"action"`
		EntityType string      `json:"entity_type" db:"entity_type"`
		EntityID   null.Int    `json:"entity_id" db:"entity_id"`
		OldValues  null.JSON   `json:"old_values" db:"old_values"`
		NewValues  null.JSON   `json:"new_values" db:"new_values"`
		IPAddress  null.String `json:"ip_address" db:"ip_address"`
		UserAgent  null.String `json:"user_agent" db:"user_agent"`
		CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	}

	// Actor is who made a change, and from where.
	Actor struct {
		UserID    int
		IPAddress string
		UserAgent string
	}

	QueryFilter struct {
		EntityType string `query:"entity_type" validate:"omitempty,max=50"`
		EntityID   int    `query:"entity_id" validate:"gte=0"`
	}

	Repository interface {
		CreateEntry(ctx context.Context, e Entry, exec ...core.DBExecutor) (Entry, error)
		// QueryEntries returns the entries matching filter, newest first.
		QueryEntries(ctx context.Context, filter QueryFilter, page *core.Pagination, exec ...core.DBExecutor) ([]Entry, int, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record writes an entry for a change made by actor. Old and new values are encoded as JSON, nil is stored as null.
// Failures are only logged.
func (svc *Service) Record(ctx context.Context, actor Actor, action Action, entityType string, entityID int, oldValues, newValues interface{}) {
	e := Entry{
		UserID:     null.NewInt(actor.UserID, actor.UserID > 0),
		IPAddress:  null.NewString(actor.IPAddress, actor.IPAddress != ""),
		UserAgent:  null.NewString(actor.UserAgent, actor.UserAgent != ""),
		Action:     action,
		EntityType: entityType,
		EntityID:   null.NewInt(entityID, entityID > 0),
		CreatedAt:  time.Now().UTC(),
	}
	var err error
	if e.OldValues, err = encode(oldValues); err == nil {
		e.NewValues, err = encode(newValues)
	}
	if err == nil {
		_, err = svc.repo.CreateEntry(ctx, e)
	}
	if err != nil {
		svc.logger.Error("recording audit entry: "+err.Error(), err)
	}
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, page core.Pagination) (core.Page, error) {
	entries, total, err := svc.repo.QueryEntries(ctx, filter, &page)
	if err != nil {
		return core.Page{}, errors.Wrap(err, "querying audit entries")
	}
	if entries == nil {
		entries = []Entry{}
	}
	return core.NewPage(entries, total, page), nil
}

func encode(v interface{}) (null.JSON, error) {
	if v == nil {
		return null.JSON{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return null.JSON{}, errors.Wrap(err, "encoding audit values")
	}
	return null.JSONFrom(b), nil
}
