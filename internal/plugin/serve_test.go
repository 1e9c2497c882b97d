package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestServe(t *testing.T) {
	actions := map[string]ActionFunc{
		"say": func(req *Request) (any, error) {
			var cfg struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(req.Config, &cfg); err != nil {
				return nil, err
			}
			return map[string]string{"spoken": cfg.Text, "gesture": req.Gesture}, nil
		},
		"noop": func(*Request) (any, error) { return nil, nil },
		"fail": func(*Request) (any, error) { return nil, errors.New("speaker busy") },
	}

	serve := func(t *testing.T, input string) Response {
		t.Helper()
		var out bytes.Buffer
		if err := Serve(strings.NewReader(input), &out, actions); err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
		var resp Response
		if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response %q: %v", out.String(), err)
		}
		return resp
	}

	t.Run("dispatches action", func(t *testing.T) {
		resp := serve(t, `{"action":"say","gesture":"mouth_open","config":{"text":"hello"}}`)
		if !resp.Success {
			t.Fatalf("expected success, got %q", resp.Error)
		}
		if got := string(resp.Data); got != `{"gesture":"mouth_open","spoken":"hello"}` {
			t.Errorf("data = %s", got)
		}
	})

	t.Run("nil result has no data", func(t *testing.T) {
		resp := serve(t, `{"action":"noop"}`)
		if !resp.Success {
			t.Fatal("expected success")
		}
		if len(resp.Data) != 0 {
			t.Errorf("expected empty data, got %s", resp.Data)
		}
	})

	t.Run("action error", func(t *testing.T) {
		resp := serve(t, `{"action":"fail"}`)
		if resp.Success {
			t.Fatal("expected failure")
		}
		if !strings.Contains(resp.Error, "speaker busy") {
			t.Errorf("error = %q", resp.Error)
		}
	})

	t.Run("unknown action", func(t *testing.T) {
		resp := serve(t, `{"action":"dance"}`)
		if resp.Success || !strings.Contains(resp.Error, "unknown action: dance") {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("malformed request", func(t *testing.T) {
		resp := serve(t, `{"action":`)
		if resp.Success || !strings.Contains(resp.Error, "failed to decode request") {
			t.Errorf("unexpected response %+v", resp)
		}
	})
}
