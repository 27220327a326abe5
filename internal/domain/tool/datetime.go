package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ncruces/go-strftime"
)

// Clock supplies the current instant; injectable for deterministic tests.
type Clock func() time.Time

// DatetimeHandler answers time and timezone queries. Format strings use
// strftime directives (%Y-%m-%d %H:%M:%S), matching what models are used to
// emitting for this tool.
type DatetimeHandler struct {
	now Clock
}

// NewDatetimeHandler returns the get_datetime handler. A nil clock uses
// time.Now.
func NewDatetimeHandler(now Clock) *DatetimeHandler {
	if now == nil {
		now = time.Now
	}
	return &DatetimeHandler{now: now}
}

func (h *DatetimeHandler) Execute(_ context.Context, args map[string]any) (json.RawMessage, error) {
	tz, _ := args["timezone"].(string)
	format, _ := args["format"].(string)

	t := h.now()
	zone := "local"
	if tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid timezone %q", ErrExecution, tz)
		}
		t = t.In(loc)
		zone = tz
	}

	formatted := t.Format(time.RFC3339)
	if format != "" {
		formatted = strftime.Format(format, t)
	}

	return json.Marshal(map[string]any{
		"datetime":  formatted,
		"timezone":  zone,
		"timestamp": t.Unix(),
	})
}
