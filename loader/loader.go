// Copyright (c) 2026 basalt3d
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package loader streams assets from a Source into device residency
// without stalling the render loop. A fixed pool of workers reads and
// decodes asset bytes; completed payloads travel back over a bounded
// result channel and are promoted to their device form by the owning
// goroutine, which drains the channel once per frame.
//
// The registry of references is owned by a single goroutine, normally the
// render loop. Every method must be called from that goroutine; workers
// receive task messages and send immutable result payloads, and never
// touch the registry itself.
package loader

import (
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// ErrAlreadyRegistered reports a duplicate registration, which is caller
// misuse rather than a runtime condition.
var ErrAlreadyRegistered = errors.New("reference already registered")

// State tracks one registered object through its loading lifecycle.
type State int

// Lifecycle states, in order. Registered objects move forward only.
const (
	// StateRegistered means the reference and location are known and no
	// work has been dispatched.
	StateRegistered State = iota

	// StateDecoding means a worker is reading and decoding the asset.
	StateDecoding

	// StateDecoded means the payload is ready and waiting for promotion.
	StateDecoded

	// StateResident means the payload has been promoted to its device
	// form and Get will return it.
	StateResident

	// StateFailed means decode or promotion failed. The error is kept for
	// inspection.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateDecoding:
		return "decoding"
	case StateDecoded:
		return "decoded"
	case StateResident:
		return "resident"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

type task struct {
	slot     int
	kind     Kind
	location string
}

type result struct {
	slot    int
	payload Payload
	err     error
}

type entry struct {
	ref      string
	location string
	kind     Kind
	state    State
	payload  Payload
	resident Resident
	err      error
}

// Config configures a Loader.
type Config struct {

	// Workers is the fixed worker pool size, independent of core count.
	// Workers block on file reads and decode work.
	Workers int

	// QueueDepth bounds the task and result channels. A full task queue
	// defers the load to a later LoadAsync call.
	QueueDepth int

	// Debug panics on duplicate registration instead of returning the
	// error, surfacing misuse early in development.
	Debug bool

	// Source provides asset bytes. Fonts and Meshes are the collaborators
	// for their payload kinds and may be nil when those kinds are unused.
	Source Source
	Fonts  FontSource
	Meshes MeshSource
}

// Loader is the asynchronous resource loading frontend. See the package
// documentation for the ownership rules.
type Loader struct {
	source Source
	fonts  FontSource
	meshes MeshSource
	debug  bool

	entries []entry
	slots   map[string]int

	tasks    chan task
	results  chan result
	wg       sync.WaitGroup
	inFlight int
}

// New starts the worker pool and returns a ready Loader.
func New(cfg Config) *Loader {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.QueueDepth < 1 {
		cfg.QueueDepth = 64
	}

	l := &Loader{
		source:  cfg.Source,
		fonts:   cfg.Fonts,
		meshes:  cfg.Meshes,
		debug:   cfg.Debug,
		slots:   make(map[string]int),
		tasks:   make(chan task, cfg.QueueDepth),
		results: make(chan result, cfg.QueueDepth),
	}

	for i := 0; i < cfg.Workers; i++ {
		l.wg.Add(1)
		go l.worker()
	}
	return l
}

func (l *Loader) worker() {
	defer l.wg.Done()
	for t := range l.tasks {
		payload, err := l.decode(t.kind, t.location)
		l.results <- result{slot: t.slot, payload: payload, err: err}
	}
}

// Register records a reference and where to load it from. O(1), no I/O.
// Registering a reference twice is caller misuse: nothing is dispatched,
// Debug mode panics, otherwise ErrAlreadyRegistered is returned.
func (l *Loader) Register(ref, location string, kind Kind) error {
	if _, ok := l.slots[ref]; ok {
		if l.debug {
			panic("loader: duplicate registration of " + ref)
		}
		return ErrAlreadyRegistered
	}

	l.entries = append(l.entries, entry{
		ref:      ref,
		location: location,
		kind:     kind,
		state:    StateRegistered,
	})
	l.slots[ref] = len(l.entries) - 1
	return nil
}

// LoadAsync dispatches the decode of a registered reference to the worker
// pool and returns immediately. Unknown references and references already
// loading or resident are a no-op with a logged notice.
func (l *Loader) LoadAsync(ref string) {
	slot, ok := l.slots[ref]
	if !ok {
		log.Infof("load of unregistered reference %q skipped", ref)
		return
	}

	e := &l.entries[slot]
	if e.state != StateRegistered {
		log.Infof("load of %q skipped, already %s", ref, e.state)
		return
	}

	select {
	case l.tasks <- task{slot: slot, kind: e.kind, location: e.location}:
		e.state = StateDecoding
		l.inFlight++
	default:
		log.Warnf("load of %q deferred, task queue full", ref)
	}
}

// DrainReady receives every completed decode currently available, without
// blocking, promotes each payload on the calling goroutine and returns the
// references that became resident. Failures are logged with the reference
// and kept inspectable through Err. Polled once per frame by the owner;
// an empty return is the common case.
func (l *Loader) DrainReady(p Promoter) []string {
	var ready []string

	pending := l.inFlight
	for i := 0; i < pending; i++ {
		select {
		case r := <-l.results:
			l.inFlight--
			if ref, ok := l.promote(r, p); ok {
				ready = append(ready, ref)
			}
		default:
			return ready
		}
	}
	return ready
}

func (l *Loader) promote(r result, p Promoter) (string, bool) {
	e := &l.entries[r.slot]

	if r.err != nil {
		e.state = StateFailed
		e.err = r.err
		log.Errorf("load of %q failed: %s", e.ref, r.err.Error())
		return "", false
	}

	e.state = StateDecoded
	e.payload = r.payload

	resident, err := p.Promote(r.payload)
	if err != nil {
		e.state = StateFailed
		e.err = err
		log.Errorf("promotion of %q failed: %s", e.ref, err.Error())
		return "", false
	}

	e.resident = resident
	e.state = StateResident
	return e.ref, true
}

// Get returns the device-resident object for a reference. The second
// return is false for unknown or not yet resident references; callers are
// expected to substitute a fallback resource rather than fail.
func (l *Loader) Get(ref string) (Resident, bool) {
	slot, ok := l.slots[ref]
	if !ok {
		return nil, false
	}
	e := &l.entries[slot]
	if e.state != StateResident {
		return nil, false
	}
	return e.resident, true
}

// State reports the lifecycle state of a reference.
func (l *Loader) State(ref string) (State, bool) {
	slot, ok := l.slots[ref]
	if !ok {
		return 0, false
	}
	return l.entries[slot].state, true
}

// Err returns the failure that stopped a reference from becoming
// resident, or nil.
func (l *Loader) Err(ref string) error {
	slot, ok := l.slots[ref]
	if !ok {
		return nil
	}
	return l.entries[slot].err
}

// SyncLoad registers the reference if it is unknown, then decodes and
// promotes on the calling goroutine, blocking until resident. Used for
// assets that must exist before the first frame renders.
func (l *Loader) SyncLoad(ref, location string, kind Kind, p Promoter) error {
	slot, ok := l.slots[ref]
	if !ok {
		if err := l.Register(ref, location, kind); err != nil {
			return err
		}
		slot = l.slots[ref]
	}

	e := &l.entries[slot]
	switch e.state {
	case StateResident:
		return nil
	case StateDecoding:
		return fmt.Errorf("%s is already loading asynchronously", ref)
	}

	payload, err := l.decode(e.kind, e.location)
	if err != nil {
		e.state = StateFailed
		e.err = err
		return err
	}
	e.state = StateDecoded
	e.payload = payload

	resident, err := p.Promote(payload)
	if err != nil {
		e.state = StateFailed
		e.err = err
		return err
	}
	e.resident = resident
	e.state = StateResident
	return nil
}

// Residents returns every resident object, for release at shutdown.
func (l *Loader) Residents() []Resident {
	var out []Resident
	for i := range l.entries {
		if l.entries[i].state == StateResident {
			out = append(out, l.entries[i].resident)
		}
	}
	return out
}

// Close stops the worker pool and discards results of still-running
// decodes. Resident objects are untouched; release them separately before
// device teardown.
func (l *Loader) Close() {
	close(l.tasks)

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	for {
		select {
		case <-l.results:
		case <-done:
			return
		}
	}
}
