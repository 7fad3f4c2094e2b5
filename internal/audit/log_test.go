package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/waisgo/authcore/internal/auth"
	"github.com/waisgo/authcore/internal/obs"
)

func TestLogSinkRecordFields(t *testing.T) {
	var buf bytes.Buffer
	restore := obs.SetOutput(&buf)
	defer restore()

	ctx := WithRequestID(context.Background(), "req-42")
	sink := NewLogSink()
	err := sink.Record(ctx, auth.Event{
		Action:     auth.ActionLogin,
		IdentityID: "01JAB",
		Email:      "rider@waisgo.io",
		IP:         "203.0.113.9",
		Result:     auth.ResultLockedOut,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not a JSON line: %v\n%s", err, buf.String())
	}
	for key, want := range map[string]string{
		"type":        "audit",
		"action":      auth.ActionLogin,
		"result":      auth.ResultLockedOut,
		"request_id":  "req-42",
		"identity_id": "01JAB",
		"email":       "rider@waisgo.io",
		"ip":          "203.0.113.9",
	} {
		if got, _ := line[key].(string); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
	if _, present := line["user_agent"]; present {
		t.Fatal("empty user agent must be omitted")
	}
}

func TestLogSinkOmitsMissingRequestID(t *testing.T) {
	var buf bytes.Buffer
	restore := obs.SetOutput(&buf)
	defer restore()

	sink := NewLogSink()
	if err := sink.Record(context.Background(), auth.Event{Action: auth.ActionLogout, Result: auth.ResultSucceeded}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not a JSON line: %v", err)
	}
	if _, present := line["request_id"]; present {
		t.Fatal("request_id must be omitted when the context carries none")
	}
}
