// Package selection implements the selection state machine: the traveler's
// nationality, destination or compare list, mode and search text.
package selection

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/gxo-labs/visacheck/internal/country"
	"github.com/gxo-labs/visacheck/internal/logger"
	pubcountry "github.com/gxo-labs/visacheck/pkg/visacheck/v1/country"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/events"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
	"github.com/gxo-labs/visacheck/pkg/visacheck/v1/selection"
)

// ErrClosed is returned by Hydrate when the machine was closed first.
var ErrClosed = errors.New("selection machine is closed")

// Persistence is the storage side of the machine. persist.Adapter implements it.
type Persistence interface {
	LoadInitial(ctx context.Context) selection.Persisted
	Save(field selection.Field, state selection.Persisted)
}

// Machine implements selection.Machine. Transitions are serialized by a
// mutex; each applied transition queues one save per changed persisted field.
type Machine struct {
	countries pubcountry.Registry
	persist   Persistence
	log       vclog.Logger
	bus       events.Bus
	session   string

	mu     sync.Mutex
	state  selection.State
	ready  bool
	closed bool
}

var _ selection.Machine = (*Machine)(nil)

// Option configures a Machine.
type Option func(*Machine)

func WithLogger(log vclog.Logger) Option {
	return func(m *Machine) {
		if log != nil {
			m.log = log
		}
	}
}

func WithEventBus(bus events.Bus) Option {
	return func(m *Machine) {
		if bus != nil {
			m.bus = bus
		}
	}
}

func WithSessionID(id string) Option {
	return func(m *Machine) { m.session = id }
}

// NewMachine creates a machine in the Initializing state. Call Hydrate to
// make it Ready.
func NewMachine(countries pubcountry.Registry, persist Persistence, opts ...Option) *Machine {
	if countries == nil || persist == nil {
		panic("selection.NewMachine requires a non-nil country registry and persistence")
	}
	m := &Machine{
		countries: countries,
		persist:   persist,
		log:       logger.NewDiscardLogger(),
		bus:       noopBus{},
		state:     selection.Initial(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With("component", "SelectionMachine")
	return m
}

type noopBus struct{}

func (noopBus) Emit(events.Event) {}

// Hydrate loads the persisted selection and marks the machine Ready. It does
// nothing if the machine is already Ready, and applies nothing if Close was
// called while the load was in flight.
func (m *Machine) Hydrate(ctx context.Context) error {
	m.mu.Lock()
	if m.ready {
		m.mu.Unlock()
		return nil
	}
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.mu.Unlock()

	loaded := m.persist.LoadInitial(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.log.Debugf("Machine closed during hydration, discarding loaded state")
		return ErrClosed
	}
	if m.ready {
		return nil
	}
	m.state.Mode = loaded.Mode
	m.state.NationalityCode = loaded.NationalityCode
	m.state.DestinationCode = loaded.DestinationCode
	m.state.DestinationCodes = slices.Clone(loaded.DestinationCodes)
	if m.state.DestinationCodes == nil {
		m.state.DestinationCodes = []string{}
	}
	m.ready = true
	m.emit(events.StateHydrated, map[string]interface{}{
		"mode":                 string(loaded.Mode),
		"compare_destinations": len(loaded.DestinationCodes),
	})
	m.log.Debugf("Selection hydrated: mode=%s nationality=%q destination=%q", loaded.Mode, loaded.NationalityCode, loaded.DestinationCode)
	return nil
}

// Close marks the machine unmounted. Later transitions are ignored.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *Machine) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready && !m.closed
}

func (m *Machine) Snapshot() selection.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneState(m.state)
}

func (m *Machine) SelectNationality(code string) bool {
	return m.transition("select_nationality", nil, func(s *selection.State) bool {
		if !m.countries.IsValidCode(code) {
			m.log.Warnf("Rejected nationality '%s': not a known country code", code)
			return false
		}
		s.NationalityCode = code
		s.DestinationCode = ""
		s.DestinationCodes = []string{}
		s.DestinationSearch = ""
		return true
	})
}

func (m *Machine) ClearNationality() bool {
	return m.transition("clear_nationality", nil, func(s *selection.State) bool {
		s.NationalityCode = ""
		s.DestinationCode = ""
		s.DestinationCodes = []string{}
		s.DestinationSearch = ""
		return true
	})
}

// SelectDestination sets the single-mode destination.
func (m *Machine) SelectDestination(code string) bool {
	return m.transition("select_destination", nil, func(s *selection.State) bool {
		switch {
		case s.NationalityCode == "":
			m.log.Warnf("Rejected destination '%s': no nationality selected", code)
			return false
		case s.Mode != selection.ModeSingle:
			m.log.Warnf("Rejected destination '%s': not in single mode", code)
			return false
		case !m.countries.IsValidCode(code):
			m.log.Warnf("Rejected destination '%s': not a known country code", code)
			return false
		}
		s.DestinationCode = code
		return true
	})
}

func (m *Machine) ClearDestination() bool {
	return m.transition("clear_destination", nil, func(s *selection.State) bool {
		s.DestinationCode = ""
		return true
	})
}

// SetMode switches between single and compare. Switching to single empties
// the compare list; switching to compare keeps the single destination.
func (m *Machine) SetMode(mode selection.Mode) bool {
	return m.transition("set_mode", nil, func(s *selection.State) bool {
		if !mode.IsValid() {
			m.log.Warnf("Rejected mode '%s'", mode)
			return false
		}
		s.Mode = mode
		if mode == selection.ModeSingle {
			s.DestinationCodes = []string{}
		}
		return true
	})
}

// ToggleCompareDestination removes code from the compare list if present,
// otherwise appends it when the list has room and code is an acceptable
// destination.
func (m *Machine) ToggleCompareDestination(code string) bool {
	return m.transition("toggle_compare_destination", nil, func(s *selection.State) bool {
		if i := slices.Index(s.DestinationCodes, code); i >= 0 {
			s.DestinationCodes = slices.Delete(s.DestinationCodes, i, i+1)
			return true
		}
		switch {
		case s.Mode != selection.ModeCompare:
			m.log.Warnf("Rejected compare destination '%s': not in compare mode", code)
			return false
		case s.NationalityCode == "":
			m.log.Warnf("Rejected compare destination '%s': no nationality selected", code)
			return false
		case code == s.NationalityCode:
			m.log.Warnf("Rejected compare destination '%s': same as nationality", code)
			return false
		case len(s.DestinationCodes) >= selection.MaxCompareDestinations:
			m.log.Warnf("Rejected compare destination '%s': already comparing %d destinations", code, selection.MaxCompareDestinations)
			return false
		case !m.countries.IsValidCode(code):
			m.log.Warnf("Rejected compare destination '%s': not a known country code", code)
			return false
		}
		s.DestinationCodes = append(s.DestinationCodes, code)
		return true
	})
}

// RemoveCompareDestination reports false when code was not in the list.
func (m *Machine) RemoveCompareDestination(code string) bool {
	return m.transition("remove_compare_destination", nil, func(s *selection.State) bool {
		i := slices.Index(s.DestinationCodes, code)
		if i < 0 {
			return false
		}
		s.DestinationCodes = slices.Delete(s.DestinationCodes, i, i+1)
		return true
	})
}

func (m *Machine) ClearCompareDestinations() bool {
	return m.transition("clear_compare_destinations", nil, func(s *selection.State) bool {
		s.DestinationCodes = []string{}
		return true
	})
}

// SetNationalitySearch stores search text, truncated to country.MaxSearchLength runes.
func (m *Machine) SetNationalitySearch(text string) bool {
	return m.transition("set_nationality_search", nil, func(s *selection.State) bool {
		s.NationalitySearch = country.TruncateSearch(text)
		return true
	})
}

// SetDestinationSearch stores search text, truncated to country.MaxSearchLength runes.
func (m *Machine) SetDestinationSearch(text string) bool {
	return m.transition("set_destination_search", nil, func(s *selection.State) bool {
		s.DestinationSearch = country.TruncateSearch(text)
		return true
	})
}

// Reset returns to the initial state. The nationality and destination keys
// are always removed from storage, even if the in-memory values were empty.
func (m *Machine) Reset() bool {
	return m.transition("reset", []selection.Field{selection.FieldNationality}, func(s *selection.State) bool {
		*s = selection.Initial()
		return true
	})
}

// transition applies fn to a copy of the state under the lock. If fn accepts,
// the copy replaces the state and one save per changed persisted field (plus
// any forced fields) is queued, still under the lock so saves keep the order
// of transitions.
func (m *Machine) transition(name string, forced []selection.Field, fn func(s *selection.State) bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.log.Debugf("Ignoring %s: machine closed", name)
		return false
	}
	if !m.ready {
		m.log.Warnf("Ignoring %s: selection state is not ready", name)
		return false
	}

	next := cloneState(m.state)
	if !fn(&next) {
		return false
	}
	before := m.state.Persisted()
	m.state = next
	after := next.Persisted()

	fields := changedFields(before, after)
	for _, f := range forced {
		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}
	// Clearing the nationality removes the destination key too.
	if after.NationalityCode == "" && slices.Contains(fields, selection.FieldNationality) {
		fields = slices.DeleteFunc(fields, func(f selection.Field) bool { return f == selection.FieldDestination })
	}
	for _, f := range fields {
		m.persist.Save(f, after)
	}

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	m.emit(events.SelectionChanged, map[string]interface{}{
		"transition": name,
		"fields":     names,
	})
	return true
}

func (m *Machine) emit(eventType events.EventType, payload map[string]interface{}) {
	m.bus.Emit(events.Event{
		Type:        eventType,
		Timestamp:   time.Now(),
		SessionID:   m.session,
		Nationality: m.state.NationalityCode,
		Payload:     payload,
	})
}

func changedFields(before, after selection.Persisted) []selection.Field {
	var fields []selection.Field
	if before.NationalityCode != after.NationalityCode {
		fields = append(fields, selection.FieldNationality)
	}
	if before.DestinationCode != after.DestinationCode {
		fields = append(fields, selection.FieldDestination)
	}
	if before.Mode != after.Mode {
		fields = append(fields, selection.FieldMode)
	}
	if !slices.Equal(before.DestinationCodes, after.DestinationCodes) {
		fields = append(fields, selection.FieldDestinations)
	}
	return fields
}

func cloneState(s selection.State) selection.State {
	out := s
	out.DestinationCodes = slices.Clone(s.DestinationCodes)
	if out.DestinationCodes == nil {
		out.DestinationCodes = []string{}
	}
	return out
}
