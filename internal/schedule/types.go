package schedule

import (
	"time"

	"github.com/goliatone/go-lifecycle/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Kind distinguishes the two schedule slots an item can hold.
type Kind string

const (
	// KindPublication identifies scheduled publication records.
	KindPublication Kind = "publication"
	// KindUnpublishing identifies scheduled unpublishing records.
	KindUnpublishing Kind = "unpublishing"
)

// ScheduledPublication is the durable record for a pending publish action.
// At most one exists per item; it is consumed exactly once when due.
type ScheduledPublication struct {
	bun.BaseModel `bun:"table:scheduled_publications,alias:sp"`

	ID           uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	ItemID       uuid.UUID  `bun:"item_id,notnull,unique,type:uuid" json:"item_id"`
	FireAt       time.Time  `bun:"fire_at,notnull" json:"fire_at"`
	AllLocales   bool       `bun:"all_locales,notnull,default:false" json:"all_locales"`
	Locales      []string   `bun:"locales,type:jsonb" json:"locales,omitempty"`
	NonLocalized bool       `bun:"non_localized,notnull,default:false" json:"non_localized"`
	ClaimedUntil *time.Time `bun:"claimed_until,nullzero" json:"claimed_until,omitempty"`
	Attempts     int        `bun:"attempts,notnull,default:0" json:"attempts"`
	FireFailed   bool       `bun:"fire_failed,notnull,default:false" json:"fire_failed"`
	LastError    string     `bun:"last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Scope reconstructs the locale scope the publication applies to.
func (p *ScheduledPublication) Scope() domain.LocaleScope {
	if p.AllLocales {
		return domain.AllLocales()
	}
	return domain.LocaleSet(p.Locales...)
}

// ScheduledUnpublishing is the durable record for a pending unpublish action.
type ScheduledUnpublishing struct {
	bun.BaseModel `bun:"table:scheduled_unpublishings,alias:su"`

	ID           uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	ItemID       uuid.UUID  `bun:"item_id,notnull,unique,type:uuid" json:"item_id"`
	FireAt       time.Time  `bun:"fire_at,notnull" json:"fire_at"`
	AllLocales   bool       `bun:"all_locales,notnull,default:false" json:"all_locales"`
	Locales      []string   `bun:"locales,type:jsonb" json:"locales,omitempty"`
	ClaimedUntil *time.Time `bun:"claimed_until,nullzero" json:"claimed_until,omitempty"`
	Attempts     int        `bun:"attempts,notnull,default:0" json:"attempts"`
	FireFailed   bool       `bun:"fire_failed,notnull,default:false" json:"fire_failed"`
	LastError    string     `bun:"last_error" json:"last_error,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Scope reconstructs the locale scope the unpublishing applies to.
func (u *ScheduledUnpublishing) Scope() domain.LocaleScope {
	if u.AllLocales {
		return domain.AllLocales()
	}
	return domain.LocaleSet(u.Locales...)
}

// Due pairs a due schedule record with its kind so the dispatcher can fire the
// matching transition. Exactly one of Publication/Unpublishing is set.
type Due struct {
	Kind         Kind
	ItemID       uuid.UUID
	FireAt       time.Time
	Publication  *ScheduledPublication
	Unpublishing *ScheduledUnpublishing
}

// Scope returns the locale scope of the underlying record.
func (d Due) Scope() domain.LocaleScope {
	switch d.Kind {
	case KindPublication:
		if d.Publication != nil {
			return d.Publication.Scope()
		}
	case KindUnpublishing:
		if d.Unpublishing != nil {
			return d.Unpublishing.Scope()
		}
	}
	return domain.LocaleScope{}
}
