package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mataager/SwiftStore/internal/metrics"
)

// Block codes, stable identifiers for each way a store can be refused.
const (
	CodeMissingStoreID = "missing_store_id"
	CodeFetchFailed    = "fetch_failed"
	CodeNotFound       = "not_found"
	CodePending        = "pending"
	CodeStopped        = "stopped"
	CodeComingSoon     = "coming_soon"
	CodeExpired        = "expired"
)

const (
	StatusActive     = "active"
	StatusPending    = "pending"
	StatusStopped    = "stopped"
	StatusComingSoon = "comingsoon"
	// records written by older admin builds use this spelling
	statusComingSoonLegacy = "commingsoon"
)

// Block describes why a store is refused and what the visitor is shown.
type Block struct {
	Code         string `json:"code"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	Reason       string `json:"reason"`
	EndingDate   string `json:"endingDate,omitempty"`
	ContactPhone string `json:"contactPhone,omitempty"`
}

type Decision struct {
	Allowed bool   `json:"allowed"`
	Block   *Block `json:"block,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func block(b Block) Decision {
	return Decision{Block: &b}
}

// evaluation is the state the rules inspect: the requested id and, when one
// was given, the single fetch made for it.
type evaluation struct {
	storeID string
	record  *Record
	err     error
	now     time.Time
	loc     *time.Location
	log     zerolog.Logger
}

type rule struct {
	name  string
	apply func(e *evaluation) (Decision, bool)
}

// rules run in order and the first match decides. Status rules precede the
// expiry rule so a pending store is reported as pending even when its
// subscription is still running.
var rules = []rule{
	{"missing store id", missingStoreID},
	{"fetch failed", fetchFailed},
	{"record not found", recordNotFound},
	{"status pending", statusIs(StatusPending)},
	{"status stopped", statusIs(StatusStopped)},
	{"status coming soon", statusIs(StatusComingSoon)},
	{"subscription expired", subscriptionExpired},
}

func missingStoreID(e *evaluation) (Decision, bool) {
	if e.storeID != "" {
		return Decision{}, false
	}
	return block(Block{
		Code:    CodeMissingStoreID,
		Title:   "Access Denied",
		Message: "Invalid store access. Contact the owner for assistance.",
		Reason:  "No UID provided",
	}), true
}

func fetchFailed(e *evaluation) (Decision, bool) {
	if e.err == nil || errors.Is(e.err, ErrNotFound) {
		return Decision{}, false
	}

	message := "Unable to verify store status. Please try again later."
	var fetchErr *FetchError
	if errors.As(e.err, &fetchErr) && fetchErr.Network {
		message = "Network issue detected. Please check your internet connection and try again."
	}
	return block(Block{
		Code:    CodeFetchFailed,
		Title:   "Verification Failed",
		Message: message,
		Reason:  e.err.Error(),
	}), true
}

func recordNotFound(e *evaluation) (Decision, bool) {
	if e.record != nil && !errors.Is(e.err, ErrNotFound) {
		return Decision{}, false
	}
	return block(Block{
		Code:    CodeNotFound,
		Title:   "Store Not Found",
		Message: "This store doesn't exist. Contact the owner for assistance.",
		Reason:  "Store data not found in database",
	}), true
}

func statusIs(status string) func(e *evaluation) (Decision, bool) {
	return func(e *evaluation) (Decision, bool) {
		current := e.record.normalizedStatus()
		if current == statusComingSoonLegacy {
			current = StatusComingSoon
		}
		if current != status {
			return Decision{}, false
		}

		reason := "Status: " + e.record.normalizedStatus()
		switch status {
		case StatusPending:
			return block(Block{
				Code:         CodePending,
				Title:        "Store Pending",
				Message:      "This store is pending right now. Contact the owner for more information.",
				Reason:       reason,
				EndingDate:   e.record.EndingDate,
				ContactPhone: e.record.PhoneNumber,
			}), true
		case StatusStopped:
			return block(Block{
				Code:         CodeStopped,
				Title:        "Store Suspended",
				Message:      "This store has been suspended. Contact the owner to resolve the issue.",
				Reason:       reason,
				EndingDate:   e.record.EndingDate,
				ContactPhone: e.record.PhoneNumber,
			}), true
		default:
			return block(Block{
				Code:         CodeComingSoon,
				Title:        "Coming Soon",
				Message:      "We're working hard to launch this store. Check back later!",
				Reason:       reason,
				ContactPhone: e.record.PhoneNumber,
			}), true
		}
	}
}

func subscriptionExpired(e *evaluation) (Decision, bool) {
	raw := strings.TrimSpace(e.record.EndingDate)
	if raw == "" {
		return Decision{}, false
	}

	ending, err := ParseEndingDate(raw, e.loc)
	if err != nil {
		e.log.Warn().Err(err).Str("storeId", e.storeID).Msg("ignoring unparseable ending date")
		return Decision{}, false
	}
	if !ending.Before(e.now) {
		return Decision{}, false
	}

	return block(Block{
		Code:         CodeExpired,
		Title:        "Subscription Expired",
		Message:      "This store's subscription has ended. Contact the owner to renew.",
		Reason:       fmt.Sprintf("Subscription ended on %s", raw),
		EndingDate:   raw,
		ContactPhone: e.record.PhoneNumber,
	}), true
}

type Gate struct {
	source Source
	loc    *time.Location
	now    func() time.Time
	log    zerolog.Logger
}

// New returns a gate reading records from source. Ending dates are read in
// loc, or the local zone when loc is nil.
func New(source Source, loc *time.Location, log zerolog.Logger) *Gate {
	if loc == nil {
		loc = time.Local
	}
	return &Gate{
		source: source,
		loc:    loc,
		now:    time.Now,
		log:    log.With().Str("component", "gate").Logger(),
	}
}

// Check makes at most one fetch and returns the first matching rule's
// decision, or Allowed when none match.
func (g *Gate) Check(ctx context.Context, storeID string) Decision {
	e := &evaluation{
		storeID: strings.TrimSpace(storeID),
		now:     g.now(),
		loc:     g.loc,
		log:     g.log,
	}
	if e.storeID != "" {
		e.record, e.err = g.source.Fetch(ctx, e.storeID)
		if e.err != nil && !errors.Is(e.err, ErrNotFound) {
			g.log.Error().Err(e.err).Str("storeId", e.storeID).Msg("store record fetch failed")
		}
	}

	decision := evaluate(e)

	outcome := "allowed"
	if decision.Block != nil {
		outcome = decision.Block.Code
		g.log.Info().Str("storeId", e.storeID).Str("code", outcome).Msg("store access blocked")
	}
	metrics.GateDecisions.WithLabelValues(outcome).Inc()

	return decision
}

func evaluate(e *evaluation) Decision {
	for _, r := range rules {
		if d, ok := r.apply(e); ok {
			e.log.Debug().Str("storeId", e.storeID).Str("rule", r.name).Msg("gate rule matched")
			return d
		}
	}
	return allow()
}

// LoadLocation resolves the configured zone name; empty means local time.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load gate timezone %q: %w", name, err)
	}
	return loc, nil
}
