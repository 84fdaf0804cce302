package endpoints

import (
	"fmt"
	"net/http"
	"time"

	"sales-routing-backend/internal/dto"
)

type DelayOverrider interface {
	SetDelayOverride(d time.Duration) error
	ClearDelayOverride()
	DelayOverride() (time.Duration, bool)
}

// TimerPresets are the override delays offered to operators testing flows by hand.
var TimerPresets = []time.Duration{30 * time.Second, time.Minute, 5 * time.Minute}

type TestingEndpoints interface {
	TimerOverride(http.ResponseWriter, *http.Request) error
}

type testingEndpoints struct {
	timers DelayOverrider
}

func NewTestingEndpoints(timers DelayOverrider) TestingEndpoints {
	return &testingEndpoints{timers: timers}
}

func (h *testingEndpoints) TimerOverride(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:    h.handleGet,
		http.MethodPut:    h.handleSet,
		http.MethodDelete: h.handleClear,
	})
}

func (h *testingEndpoints) handleGet(w http.ResponseWriter, r *http.Request) error {
	return WriteJSON(w, http.StatusOK, h.current())
}

func (h *testingEndpoints) handleSet(w http.ResponseWriter, r *http.Request) error {
	var req dto.TimerOverrideRequest
	if err := decodeJSON(r, &req, "timer override"); err != nil {
		return err
	}

	delay, err := time.ParseDuration(req.Delay)
	if err != nil || !isPreset(delay) {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    fmt.Sprintf("delay must be one of %v", TimerPresets),
			ErrorLog:   fmt.Errorf("invalid override %q", req.Delay),
		}
	}
	if err := h.timers.SetDelayOverride(delay); err != nil {
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: "Invalid delay", ErrorLog: err}
	}
	return WriteJSON(w, http.StatusOK, h.current())
}

func (h *testingEndpoints) handleClear(w http.ResponseWriter, r *http.Request) error {
	h.timers.ClearDelayOverride()
	return WriteJSON(w, http.StatusOK, h.current())
}

func (h *testingEndpoints) current() dto.TimerOverrideResponse {
	d, ok := h.timers.DelayOverride()
	if !ok {
		return dto.TimerOverrideResponse{}
	}
	return dto.TimerOverrideResponse{
		Active:       true,
		Delay:        d.String(),
		DelaySeconds: int64(d / time.Second),
	}
}

func isPreset(d time.Duration) bool {
	for _, p := range TimerPresets {
		if p == d {
			return true
		}
	}
	return false
}
