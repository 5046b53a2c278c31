package observability

import (
	"encoding/json"
	"net"
	"os"
	"strings"
	"time"
)

// GELFWriter turns slog JSON lines into GELF 1.1 messages sent over UDP.
// Attributes other than time, level, and msg become "_"-prefixed fields.
type GELFWriter struct {
	conn     net.Conn
	hostname string
	service  string
}

// NewGELFWriter dials addr (e.g. "graylog:12201").
func NewGELFWriter(addr, service string) (*GELFWriter, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "vendorq"
	}
	if service == "" {
		service = "vendorq"
	}
	return &GELFWriter{conn: conn, hostname: hostname, service: service}, nil
}

// Write sends one message per call and never reports a failure to the
// logger, so a lost collector does not break logging.
func (w *GELFWriter) Write(p []byte) (int, error) {
	payload, err := json.Marshal(w.message(p))
	if err != nil {
		return len(p), nil
	}
	_, _ = w.conn.Write(payload)
	return len(p), nil
}

// Close releases the UDP socket.
func (w *GELFWriter) Close() error { return w.conn.Close() }

func (w *GELFWriter) message(p []byte) map[string]any {
	line := strings.TrimRight(string(p), "\n")
	msg := map[string]any{
		"version":       "1.1",
		"host":          w.hostname,
		"short_message": line,
		"timestamp":     float64(time.Now().UnixNano()) / 1e9,
		"level":         6,
		"_service":      w.service,
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		return msg
	}
	if s, ok := record["msg"].(string); ok {
		msg["short_message"] = s
	}
	if s, ok := record["level"].(string); ok {
		msg["level"] = syslogLevel(s)
	}
	if s, ok := record["time"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
			msg["timestamp"] = float64(ts.UnixNano()) / 1e9
		}
	}
	for k, v := range record {
		switch k {
		case "msg", "level", "time":
			continue
		case "id":
			k = "record_id" // _id is reserved by GELF
		}
		msg["_"+k] = v
	}
	return msg
}

func syslogLevel(level string) int {
	switch {
	case strings.HasPrefix(level, "ERROR"):
		return 3
	case strings.HasPrefix(level, "WARN"):
		return 4
	case strings.HasPrefix(level, "DEBUG"):
		return 7
	default:
		return 6
	}
}
