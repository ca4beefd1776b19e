// Package transport frames an internal channel of JSON values as a
// tab-delimited HTTP streaming response body (spec §4.9).
package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
)

// Delimiter separates frames on the wire: each message is followed by a
// single ASCII tab.
const Delimiter = '\t'

// WriteStream marshals each value received from values as JSON, writes it
// to w followed by Delimiter, and flushes after every frame so the client
// observes messages as they arrive. Returns when values closes or writing
// fails (the client disconnected).
func WriteStream[T any](w http.ResponseWriter, values <-chan T) error {
	flusher, _ := w.(http.Flusher)
	bw := bufio.NewWriter(w)

	for v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("transport: marshal frame: %w", err)
		}
		if _, err := bw.Write(b); err != nil {
			return fmt.Errorf("transport: write frame: %w", err)
		}
		if err := bw.WriteByte(Delimiter); err != nil {
			return fmt.Errorf("transport: write delimiter: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return fmt.Errorf("transport: flush frame: %w", err)
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
	return nil
}
