// Package mocks provides mock implementations of interfaces for testing.
// These follow Go best practices for test doubles.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/exustash/batect/pkg/events"
	"github.com/exustash/batect/pkg/interfaces"
	"github.com/exustash/batect/pkg/types"
)

// Call records one runtime operation in arrival order.
type Call struct {
	Op     string
	Target string
	Seq    int
}

// MockContainerRuntime is an in-memory ContainerRuntime that records every
// call for ordering assertions and lets tests inject failures, health probe
// behavior and exit codes per container.
type MockContainerRuntime struct {
	mu   sync.Mutex
	seq  int
	call []Call

	networks   map[string]string // id -> name
	containers map[string]interfaces.ContainerSpec
	started    map[string]bool
	removed    map[string]bool

	// failures is keyed "op:target"; target is the container's network alias
	// (its configuration name), the network name, or the image reference.
	failures map[string]error

	// probesUntilHealthy is keyed by alias: how many probes fail before the
	// container reports healthy. Zero means healthy on the first probe.
	probesUntilHealthy map[string]int
	probesSeen         map[string]int

	// exitCodes is keyed by alias; missing entries exit zero.
	exitCodes map[string]int

	// attachStarted is closed when AttachIO begins; attachRelease (when
	// non-nil) blocks AttachIO until closed or the context is cancelled.
	attachStarted chan struct{}
	attachRelease chan struct{}
}

// NewMockContainerRuntime creates a new mock container runtime
func NewMockContainerRuntime() *MockContainerRuntime {
	return &MockContainerRuntime{
		networks:           make(map[string]string),
		containers:         make(map[string]interfaces.ContainerSpec),
		started:            make(map[string]bool),
		removed:            make(map[string]bool),
		failures:           make(map[string]error),
		probesUntilHealthy: make(map[string]int),
		probesSeen:         make(map[string]int),
		exitCodes:          make(map[string]int),
		attachStarted:      make(chan struct{}),
	}
}

// FailOn makes the named operation fail for the given target. The target
// "*" fails the operation regardless of target.
func (m *MockContainerRuntime) FailOn(op, target string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+":"+target] = err
}

// SetExitCode sets the exit code AttachIO reports for a container.
func (m *MockContainerRuntime) SetExitCode(alias string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exitCodes[alias] = code
}

// SetProbesUntilHealthy makes the first n health probes for a container fail.
func (m *MockContainerRuntime) SetProbesUntilHealthy(alias string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probesUntilHealthy[alias] = n
}

// BlockAttach makes AttachIO block until ReleaseAttach is called or the
// context is cancelled.
func (m *MockContainerRuntime) BlockAttach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attachRelease = make(chan struct{})
}

// ReleaseAttach unblocks a blocked AttachIO.
func (m *MockContainerRuntime) ReleaseAttach() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attachRelease != nil {
		close(m.attachRelease)
		m.attachRelease = nil
	}
}

// AttachStarted reports when AttachIO has begun streaming.
func (m *MockContainerRuntime) AttachStarted() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attachStarted
}

// Calls returns a copy of the recorded call log.
func (m *MockContainerRuntime) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.call))
	copy(out, m.call)
	return out
}

// CallsFor returns the recorded operations for one target, in order.
func (m *MockContainerRuntime) CallsFor(target string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ops []string
	for _, c := range m.call {
		if c.Target == target {
			ops = append(ops, c.Op)
		}
	}
	return ops
}

// Remaining returns the targets created but never removed.
func (m *MockContainerRuntime) Remaining() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var left []string
	for id, spec := range m.containers {
		if !m.removed[id] {
			left = append(left, spec.Alias)
		}
	}
	for id, name := range m.networks {
		if !m.removed[id] {
			left = append(left, name)
		}
	}
	return left
}

// ContainerSpecFor returns the creation spec recorded for an alias.
func (m *MockContainerRuntime) ContainerSpecFor(alias string) (interfaces.ContainerSpec, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, spec := range m.containers {
		if spec.Alias == alias {
			return spec, true
		}
	}
	return interfaces.ContainerSpec{}, false
}

func (m *MockContainerRuntime) record(op, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.call = append(m.call, Call{Op: op, Target: target, Seq: m.seq})
	if err, ok := m.failures[op+":"+target]; ok {
		return err
	}
	return m.failures[op+":*"]
}

func (m *MockContainerRuntime) aliasOf(id string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if spec, ok := m.containers[id]; ok {
		return spec.Alias
	}
	if name, ok := m.networks[id]; ok {
		return name
	}
	return id
}

// CreateNetwork creates a network.
func (m *MockContainerRuntime) CreateNetwork(ctx context.Context, name string) (string, error) {
	if err := m.record("create-network", name); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("net-%d", len(m.networks)+1)
	m.networks[id] = name
	return id, nil
}

// RemoveNetwork removes a network.
func (m *MockContainerRuntime) RemoveNetwork(ctx context.Context, networkID string) error {
	if err := m.record("remove-network", m.aliasOf(networkID)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed[networkID] = true
	return nil
}

// AcquireImage pulls or builds an image.
func (m *MockContainerRuntime) AcquireImage(ctx context.Context, spec interfaces.ImageSpec) error {
	ref := spec.Image
	if ref == "" {
		ref = spec.BuildDirectory
	}
	return m.record("acquire-image", ref)
}

// CreateContainer creates a container.
func (m *MockContainerRuntime) CreateContainer(ctx context.Context, spec interfaces.ContainerSpec) (string, error) {
	if err := m.record("create-container", spec.Alias); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := fmt.Sprintf("ctr-%s", spec.Alias)
	m.containers[id] = spec
	return id, nil
}

// StartContainer starts a container.
func (m *MockContainerRuntime) StartContainer(ctx context.Context, containerID string) error {
	if err := m.record("start-container", m.aliasOf(containerID)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started[containerID] = true
	return nil
}

// StopContainer stops a container.
func (m *MockContainerRuntime) StopContainer(ctx context.Context, containerID string) error {
	return m.record("stop-container", m.aliasOf(containerID))
}

// RemoveContainer removes a container.
func (m *MockContainerRuntime) RemoveContainer(ctx context.Context, containerID string) error {
	if err := m.record("remove-container", m.aliasOf(containerID)); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed[containerID] = true
	return nil
}

// PollHealth runs one health probe.
func (m *MockContainerRuntime) PollHealth(ctx context.Context, containerID string, command string) error {
	alias := m.aliasOf(containerID)
	if err := m.record("poll-health", alias); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probesSeen[alias]++
	if m.probesSeen[alias] <= m.probesUntilHealthy[alias] {
		return fmt.Errorf("probe %d for %s reported unhealthy", m.probesSeen[alias], alias)
	}
	return nil
}

// AttachIO streams the container's I/O until it exits.
func (m *MockContainerRuntime) AttachIO(ctx context.Context, containerID string, streams interfaces.IOStreams) (int, error) {
	alias := m.aliasOf(containerID)
	if err := m.record("attach", alias); err != nil {
		return -1, err
	}

	m.mu.Lock()
	m.started[containerID] = true
	release := m.attachRelease
	code := m.exitCodes[alias]
	close(m.attachStarted)
	m.attachStarted = make(chan struct{})
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return -1, ctx.Err()
		}
	}
	return code, nil
}

// InspectExitCode reports the configured exit code for a container.
func (m *MockContainerRuntime) InspectExitCode(ctx context.Context, containerID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alias := containerID
	if spec, ok := m.containers[containerID]; ok {
		alias = spec.Alias
	}
	return m.exitCodes[alias], nil
}

// MockEventSink records published events for assertions.
type MockEventSink struct {
	mu     sync.Mutex
	events []events.Event
}

// NewMockEventSink creates a new mock event sink
func NewMockEventSink() *MockEventSink {
	return &MockEventSink{}
}

// Publish records the event.
func (s *MockEventSink) Publish(event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a copy of the recorded events.
func (s *MockEventSink) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.events))
	copy(out, s.events)
	return out
}

// EventsOfKind returns the recorded events of one kind, in order.
func (s *MockEventSink) EventsOfKind(kind events.Kind) []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []events.Event
	for _, e := range s.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// MockTelemetryRecorder records session metadata in memory.
type MockTelemetryRecorder struct {
	mu       sync.Mutex
	recorded []types.RunMetadata
	err      error
}

// NewMockTelemetryRecorder creates a new mock telemetry recorder
func NewMockTelemetryRecorder() *MockTelemetryRecorder {
	return &MockTelemetryRecorder{}
}

// SetError makes Record return the given error.
func (r *MockTelemetryRecorder) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Record stores the metadata.
func (r *MockTelemetryRecorder) Record(meta types.RunMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.recorded = append(r.recorded, meta)
	return nil
}

// Recorded returns a copy of the stored metadata.
func (r *MockTelemetryRecorder) Recorded() []types.RunMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.RunMetadata, len(r.recorded))
	copy(out, r.recorded)
	return out
}

// Notification records one notifier invocation.
type Notification struct {
	Task      string
	Succeeded bool
	Duration  time.Duration
	Err       error
}

// MockNotifier records notifications in memory.
type MockNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// NotifySuccess records a success notification.
func (n *MockNotifier) NotifySuccess(task string, duration time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, Notification{Task: task, Succeeded: true, Duration: duration})
}

// NotifyFailure records a failure notification.
func (n *MockNotifier) NotifyFailure(task string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, Notification{Task: task, Err: err})
}

// Notifications returns a copy of the recorded notifications.
func (n *MockNotifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.notifications))
	copy(out, n.notifications)
	return out
}
