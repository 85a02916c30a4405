package heart

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestPacemakerAck(t *testing.T) {
	var beats int

	p := NewPacemaker(time.Minute, func(context.Context) error {
		beats++
		return nil
	})
	defer p.Stop()

	if err := p.Pace(); err != nil {
		t.Fatal("first beat failed:", err)
	}

	// Unacked: the next beat must refuse instead of beating.
	if err := p.Pace(); !errors.Is(err, ErrDead) {
		t.Fatal("expected ErrDead, got:", err)
	}

	p.Echo()

	if err := p.Pace(); err != nil {
		t.Fatal("beat after ack failed:", err)
	}

	if beats != 2 {
		t.Fatal("unexpected beat count:", beats)
	}
}

func TestPacemakerPacerError(t *testing.T) {
	oops := errors.New("broken pipe")

	p := NewPacemaker(time.Minute, func(context.Context) error {
		return oops
	})
	defer p.Stop()

	if err := p.Pace(); !errors.Is(err, oops) {
		t.Fatal("pacer error not surfaced:", err)
	}

	// A failed send leaves no outstanding beat.
	if p.Dead() {
		t.Fatal("failed beat marked as outstanding")
	}
}
