package secrets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
)

// fakeSecrets answers GetSecretValue calls from a fixed map.
type fakeSecrets struct {
	values map[string]string
	calls  atomic.Int32
}

func (f *fakeSecrets) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls.Add(1)
	var in struct {
		SecretID string `json:"SecretId"`
	}
	raw, _ := io.ReadAll(req.Body)
	_ = json.Unmarshal(raw, &in)
	header := http.Header{"Content-Type": {"application/x-amz-json-1.1"}}
	if req.Header.Get("X-Amz-Target") != "secretsmanager.GetSecretValue" {
		return &http.Response{StatusCode: http.StatusBadRequest, Header: header, Body: io.NopCloser(strings.NewReader(`{"__type":"InvalidRequestException","message":"bad target"}`))}, nil
	}
	value, ok := f.values[in.SecretID]
	if !ok {
		return &http.Response{StatusCode: http.StatusBadRequest, Header: header, Body: io.NopCloser(strings.NewReader(`{"__type":"ResourceNotFoundException","message":"Secrets Manager can't find the specified secret."}`))}, nil
	}
	body, _ := json.Marshal(map[string]string{"ARN": in.SecretID, "Name": "db", "SecretString": value})
	return &http.Response{StatusCode: http.StatusOK, Header: header, Body: io.NopCloser(strings.NewReader(string(body)))}, nil
}

func newTestManager(values map[string]string) (*Manager, *fakeSecrets) {
	fake := &fakeSecrets{values: values}
	return NewManager(Config{
		Region:          "eu-central-1",
		Endpoint:        "https://secrets.mock.local",
		AccessKeyID:     "AKIA",
		SecretAccessKey: "SECRET",
		HTTPClient:      &http.Client{Transport: fake},
	}), fake
}

func TestDatabaseCredentials(t *testing.T) {
	arn := "arn:aws:secretsmanager:eu-central-1:123456789012:secret:db"
	m, fake := newTestManager(map[string]string{
		arn:       `{"username":"app","password":"s3cr3t","engine":"postgres"}`,
		"no-user": `{"password":"x"}`,
		"garbage": `not-json`,
	})
	ctx := context.Background()

	creds, err := m.DatabaseCredentials(ctx, arn)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if creds != (Credentials{Username: "app", Password: "s3cr3t"}) {
		t.Fatalf("unexpected credentials %+v", creds)
	}
	first := m.client
	if _, err := m.DatabaseCredentials(ctx, arn); err != nil {
		t.Fatalf("second call: %v", err)
	}
	if m.client != first {
		t.Fatalf("expected client reuse")
	}
	if fake.calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", fake.calls.Load())
	}

	for _, id := range []string{"no-user", "garbage", "missing", ""} {
		if _, err := m.DatabaseCredentials(ctx, id); err == nil {
			t.Fatalf("%q: expected error", id)
		}
	}
}

func TestNewManagerDefaultsRegion(t *testing.T) {
	if m := NewManager(Config{}); m.cfg.Region != DefaultRegion || m.client != nil {
		t.Fatalf("unexpected manager %+v", m.cfg)
	}
}
