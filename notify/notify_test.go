// ABOUTME: Tests for notification sinks
// ABOUTME: Checks the recorder, fan-out, and log output
package notify

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	var r Recorder
	assert.Equal(t, Notification{}, r.Last())

	r.Notify(Notification{Level: Success, Message: "one"})
	r.Notify(Notification{Level: Error, Message: "two"})

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, "two", r.Last().Message)
	assert.Equal(t, Success, r.All()[0].Level)

	r.Reset()
	assert.Zero(t, r.Len())
}

func TestMultiAndFunc(t *testing.T) {
	var r Recorder
	var seen []string
	m := Multi{&r, nil, Func(func(n Notification) { seen = append(seen, n.Message) })}

	m.Notify(Notification{Level: Info, Message: "hello"})

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"hello"}, seen)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	NewLogNotifier(l).Notify(Notification{Level: Error, Message: "Cannot delete funnel with leads"})

	out := buf.String()
	assert.Contains(t, out, "level=warning")
	assert.Contains(t, out, "Cannot delete funnel with leads")
	assert.Contains(t, out, "component=notify")
}
