// internal/storage/models/intent.go
package models

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/rovshanmuradov/whirlpool-positions/internal/position"
)

// TeardownIntent is a journaled intent to tear down one position token.
type TeardownIntent struct {
	BaseModel
	IntentID string         `gorm:"unique;not null;type:varchar(36)"`
	Mint     string         `gorm:"index;not null;type:varchar(44)"`
	Position string         `gorm:"not null;type:varchar(44)"`
	Holder   string         `gorm:"not null;type:varchar(44)"`
	Account  string         `gorm:"not null;type:varchar(44)"`
	Receiver string         `gorm:"not null;type:varchar(44)"`
	Finished bool           `gorm:"index;not null;default:false"`
	Steps    []TeardownStep `gorm:"foreignKey:IntentID;references:IntentID"`
}

// TeardownStep is a completion marker of an intent.
type TeardownStep struct {
	ID         uint      `gorm:"primarykey"`
	IntentID   string    `gorm:"uniqueIndex:idx_intent_step;not null;type:varchar(36)"`
	Step       string    `gorm:"uniqueIndex:idx_intent_step;not null;type:varchar(20)"`
	Sequence   int       `gorm:"not null"`
	RecordedAt time.Time `gorm:"not null"`
}

// FromIntent converts a teardown intent into its persisted form.
func FromIntent(i position.Intent) *TeardownIntent {
	out := &TeardownIntent{
		BaseModel: BaseModel{CreatedAt: i.CreatedAt, UpdatedAt: i.UpdatedAt},
		IntentID:  i.ID.String(),
		Mint:      i.Mint.String(),
		Position:  i.Position.String(),
		Holder:    i.Holder.String(),
		Account:   i.Account.String(),
		Receiver:  i.Receiver.String(),
		Finished:  i.Finished(),
	}
	for n, s := range i.Completed {
		out.Steps = append(out.Steps, TeardownStep{
			IntentID:   out.IntentID,
			Step:       string(s),
			Sequence:   n,
			RecordedAt: i.UpdatedAt,
		})
	}
	return out
}

// ToIntent converts the persisted form back into a teardown intent. Steps
// are expected in sequence order.
func (t *TeardownIntent) ToIntent() (position.Intent, error) {
	id, err := uuid.Parse(t.IntentID)
	if err != nil {
		return position.Intent{}, fmt.Errorf("intent id: %w", err)
	}
	keys := make([]solana.PublicKey, 5)
	for n, s := range []string{t.Mint, t.Position, t.Holder, t.Account, t.Receiver} {
		if keys[n], err = solana.PublicKeyFromBase58(s); err != nil {
			return position.Intent{}, fmt.Errorf("intent %s: %w", t.IntentID, err)
		}
	}
	out := position.Intent{
		ID:        id,
		Mint:      keys[0],
		Position:  keys[1],
		Holder:    keys[2],
		Account:   keys[3],
		Receiver:  keys[4],
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	for _, s := range t.Steps {
		out.Completed = append(out.Completed, position.Step(s.Step))
	}
	return out, nil
}
