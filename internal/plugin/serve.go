package plugin

import (
	"encoding/json"
	"fmt"
	"io"
)

// ActionFunc handles one plugin action. The returned value, if non-nil, is sent
// back as the response data.
type ActionFunc func(req *Request) (any, error)

// Serve is the plugin side of the protocol: it decodes one Request from r,
// dispatches it to the matching action, and writes a Response to w.
func Serve(r io.Reader, w io.Writer, actions map[string]ActionFunc) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return writeResponse(w, Response{Error: fmt.Sprintf("failed to decode request: %v", err)})
	}

	fn, ok := actions[req.Action]
	if !ok {
		return writeResponse(w, Response{Error: fmt.Sprintf("unknown action: %s", req.Action)})
	}

	out, err := fn(&req)
	if err != nil {
		return writeResponse(w, Response{Error: fmt.Sprintf("action %s failed: %v", req.Action, err)})
	}

	resp := Response{Success: true}
	if out != nil {
		data, err := json.Marshal(out)
		if err != nil {
			return writeResponse(w, Response{Error: fmt.Sprintf("failed to encode result: %v", err)})
		}
		resp.Data = data
	}
	return writeResponse(w, resp)
}

func writeResponse(w io.Writer, resp Response) error {
	return json.NewEncoder(w).Encode(resp)
}
