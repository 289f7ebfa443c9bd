package sink

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ayusman/mudra/internal/collect"
)

type fakeToken struct {
	done chan struct{}
	err  error
	hang bool
}

func (t *fakeToken) Wait() bool { return !t.hang }

func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.hang }

func (t *fakeToken) Done() <-chan struct{} { return t.done }

func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	sent []published
	err  error
	hang bool
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.sent = append(p.sent, published{topic: topic, qos: qos, payload: payload.([]byte)})
	done := make(chan struct{})
	if !p.hang {
		close(done)
	}
	return &fakeToken{done: done, err: p.err, hang: p.hang}
}

func TestMQTTPublisher_PublishTake(t *testing.T) {
	fp := &fakePublisher{}
	p := newMQTTPublisher(fp, MQTTConfig{Topic: "lab/takes", QoS: 1})

	take := collect.Take{TakeID: 3, Gesture: "wave", Score: 75, Quality: collect.QualityBorderline, Reasons: []string{collect.ReasonInsufficientFrames}}
	if err := p.PublishTake(take); err != nil {
		t.Fatalf("PublishTake() failed: %v", err)
	}

	if len(fp.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(fp.sent))
	}
	msg := fp.sent[0]
	if msg.topic != "lab/takes/wave" || msg.qos != 1 {
		t.Errorf("published to %q qos %d", msg.topic, msg.qos)
	}

	var decoded TakeMessage
	if err := json.Unmarshal(msg.payload, &decoded); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if decoded.Take.TakeID != 3 || decoded.Log != "take#3 borderline (75) - insufficient frames" {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestMQTTPublisher_Defaults(t *testing.T) {
	fp := &fakePublisher{}
	p := newMQTTPublisher(fp, MQTTConfig{})

	if err := p.PublishTake(collect.Take{TakeID: 1}); err != nil {
		t.Fatalf("PublishTake() failed: %v", err)
	}
	if fp.sent[0].topic != "mudra/takes" {
		t.Errorf("topic = %q, want mudra/takes", fp.sent[0].topic)
	}
	if p.timeout != 2*time.Second {
		t.Errorf("timeout = %s", p.timeout)
	}
}

func TestMQTTPublisher_Errors(t *testing.T) {
	t.Run("broker error", func(t *testing.T) {
		p := newMQTTPublisher(&fakePublisher{err: errors.New("not authorized")}, MQTTConfig{})
		if err := p.PublishTake(collect.Take{}); err == nil || err.Error() != "not authorized" {
			t.Errorf("expected broker error, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		p := newMQTTPublisher(&fakePublisher{hang: true}, MQTTConfig{Timeout: time.Millisecond})
		if err := p.PublishTake(collect.Take{}); err == nil {
			t.Error("expected timeout error")
		}
	})
}

func TestMQTTPublisher_CloseWithoutConnection(t *testing.T) {
	p := newMQTTPublisher(&fakePublisher{}, MQTTConfig{})
	p.Close()
}
