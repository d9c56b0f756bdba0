package panel

import (
	"fmt"

	"github.com/ksyq12/pleskcert/internal/executor"
	"github.com/ksyq12/pleskcert/internal/packet"
	"github.com/ksyq12/pleskcert/internal/platform"
)

// MockAPI is a scripted API for testing.
//
// Requests are answered by RequestFunc when set, otherwise by Responses
// in order. Utility calls go to the embedded MockExecutor.
type MockAPI struct {
	executor.MockExecutor

	RequestFunc func(req packet.Value) (packet.Value, error)
	Responses   []string
	Requests    []packet.Value
	TargetValue platform.Target

	CheckVersionErr error
	CloseCount      int
}

var _ Transport = (*MockAPI)(nil)

// NewMockAPI creates a mock answering with the given XML responses.
func NewMockAPI(responses ...string) *MockAPI {
	return &MockAPI{Responses: responses}
}

// Request records req and returns the next scripted response.
func (m *MockAPI) Request(req packet.Value) (packet.Value, error) {
	m.Requests = append(m.Requests, req)
	if m.RequestFunc != nil {
		return m.RequestFunc(req)
	}
	if len(m.Responses) == 0 {
		return packet.Value{}, fmt.Errorf("mock: unexpected request %s", packet.MustEncode(req))
	}
	next := m.Responses[0]
	m.Responses = m.Responses[1:]
	return packet.DecodeString(next, packet.Adaptive)
}

// Target returns TargetValue, or the default POSIX target.
func (m *MockAPI) Target() platform.Target {
	if m.TargetValue == nil {
		return platform.NewPOSIXTarget(platform.DefaultPOSIXRoot)
	}
	return m.TargetValue
}

// Operation returns the "<object>/<operation>" names of a request packet,
// in order, for asserting call sequences.
func Operation(req packet.Value) []string {
	var ops []string
	for _, obj := range req.Get("packet").Items() {
		for _, f := range obj.Fields() {
			for _, op := range f.Value.Keys() {
				ops = append(ops, f.Name+"/"+op)
			}
		}
	}
	return ops
}

// CheckVersion returns CheckVersionErr.
func (m *MockAPI) CheckVersion() error {
	return m.CheckVersionErr
}

// Close counts calls.
func (m *MockAPI) Close() error {
	m.CloseCount++
	return nil
}
